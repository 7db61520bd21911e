package planner

import (
	"fmt"
	"strings"

	"modelql/internal/entityschema"
	"modelql/internal/qerr"
	"modelql/internal/sqlutil"
)

// ColumnRef is a resolved dotted path: the qualified SQL reference plus the
// column metadata used to interpret values bound against it.
type ColumnRef struct {
	Qualified string
	Column    entityschema.Column
}

// Join is one rendered relationship join, ready for a squirrel JOIN clause.
type Join struct {
	Clause string
}

// JoinContext resolves dotted column paths against a root entity, emitting
// at most one join per distinct relationship path. Filter and sort share a
// single context so equal paths reuse the same alias.
type JoinContext struct {
	root        *entityschema.Entity
	joins       []Join
	aliasByPath map[string]joinTarget
	aliasCount  int
}

type joinTarget struct {
	alias  string
	entity *entityschema.Entity
}

// NewJoinContext returns a context rooted at entity. Root columns are
// qualified with the entity's table name, matching an unaliased FROM clause.
func NewJoinContext(root *entityschema.Entity) *JoinContext {
	return &JoinContext{root: root, aliasByPath: make(map[string]joinTarget)}
}

// Joins returns the accumulated joins in creation order.
func (jc *JoinContext) Joins() []Join {
	return jc.joins
}

func (jc *JoinContext) nextAlias(name string) string {
	jc.aliasCount++
	return fmt.Sprintf("__%s_%d", name, jc.aliasCount)
}

// ResolvePath resolves a dotted path such as "user.name" to a column
// reference, adding any joins the path requires. Every segment but the last
// must name a relationship on the entity the walk has arrived at; the last
// segment must name one of its columns.
func (jc *JoinContext) ResolvePath(path string) (ColumnRef, error) {
	segments := strings.Split(path, ".")
	entity := jc.root
	qualifier := jc.root.Table
	pathKey := ""

	for _, seg := range segments[:len(segments)-1] {
		rel, ok := entity.Relationship(seg)
		if !ok {
			return ColumnRef{}, qerr.Schemaf("unknown relationship %q on path %q", seg, path)
		}
		if pathKey == "" {
			pathKey = seg
		} else {
			pathKey += "." + seg
		}

		target, exists := jc.aliasByPath[pathKey]
		if !exists {
			alias := jc.nextAlias(rel.Name)
			var on string
			if rel.ToMany {
				on = fmt.Sprintf("%s = %s",
					sqlutil.Qualify(qualifier, entity.PrimaryKey.Name),
					sqlutil.Qualify(alias, rel.FKColumn))
			} else {
				on = fmt.Sprintf("%s = %s",
					sqlutil.Qualify(qualifier, rel.FKColumn),
					sqlutil.Qualify(alias, rel.Target.PrimaryKey.Name))
			}
			target = joinTarget{alias: alias, entity: rel.Target}
			jc.aliasByPath[pathKey] = target
			jc.joins = append(jc.joins, Join{Clause: fmt.Sprintf("%s AS %s ON %s",
				sqlutil.QuoteIdentifier(rel.Target.Table), sqlutil.QuoteIdentifier(alias), on)})
		}
		entity = target.entity
		qualifier = target.alias
	}

	name := segments[len(segments)-1]
	col, ok := entity.Column(name)
	if !ok {
		return ColumnRef{}, qerr.Schemaf("unknown column %q on path %q", name, path)
	}
	return ColumnRef{Qualified: sqlutil.Qualify(qualifier, col.Name), Column: col}, nil
}
