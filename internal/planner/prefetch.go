package planner

import (
	sq "github.com/Masterminds/squirrel"

	"modelql/internal/entityschema"
	"modelql/internal/qerr"
	"modelql/internal/sqlutil"
)

// PlanToOnePrefetch builds the batch query that loads the targets of a
// to-one relationship for a set of foreign-key values gathered from parent
// rows. One statement serves every parent in the batch.
func PlanToOnePrefetch(rel entityschema.Relationship, keys []interface{}) (SQLQuery, error) {
	if len(keys) == 0 {
		return SQLQuery{}, qerr.Schemaf("to-one prefetch for %q requires at least one key", rel.Name)
	}
	target := rel.Target
	query, args, err := sq.Select(columnList(target.SelectColumns())...).
		From(sqlutil.QuoteIdentifier(target.Table)).
		Where(sq.Eq{sqlutil.QuoteIdentifier(target.PrimaryKey.Name): keys}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// PlanToManyPrefetch builds the batch query that loads the children of a
// to-many relationship for a set of parent primary keys. Rows come back
// grouped by owning key so the resolver can bucket them in one pass.
func PlanToManyPrefetch(rel entityschema.Relationship, parentKeys []interface{}) (SQLQuery, error) {
	if len(parentKeys) == 0 {
		return SQLQuery{}, qerr.Schemaf("to-many prefetch for %q requires at least one key", rel.Name)
	}
	target := rel.Target

	cols := target.SelectColumns()
	names := columnList(cols)
	if !hasColumn(cols, rel.FKColumn) {
		names = append(names, sqlutil.QuoteIdentifier(rel.FKColumn))
	}

	fk := sqlutil.QuoteIdentifier(rel.FKColumn)
	query, args, err := sq.Select(names...).
		From(sqlutil.QuoteIdentifier(target.Table)).
		Where(sq.Eq{fk: parentKeys}).
		OrderBy(fk+" ASC", sqlutil.QuoteIdentifier(target.PrimaryKey.Name)+" ASC").
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// ToManyPrefetchColumns returns the scan columns for rows produced by
// PlanToManyPrefetch, in statement order. The owning foreign key is present
// even when the target declares no relationship back to the owner.
func ToManyPrefetchColumns(owner *entityschema.Entity, rel entityschema.Relationship) []entityschema.Column {
	cols := rel.Target.SelectColumns()
	if hasColumn(cols, rel.FKColumn) {
		return cols
	}
	return append(cols, entityschema.Column{Name: rel.FKColumn, Kind: owner.PrimaryKey.Kind, Nullable: true})
}

func columnList(cols []entityschema.Column) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		out[i] = sqlutil.QuoteIdentifier(col.Name)
	}
	return out
}

func hasColumn(cols []entityschema.Column, name string) bool {
	for _, col := range cols {
		if col.Name == name {
			return true
		}
	}
	return false
}
