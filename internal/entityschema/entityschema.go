// Package entityschema holds the static per-model metadata the query engine
// consumes: primary key, scalar columns, and relationships. A Schema is built
// once at process start, is immutable afterwards, and is safe for
// unsynchronized concurrent reads. Schema derivation (reflection,
// introspection, config parsing) happens outside this package; Build only
// validates and links what it is given.
package entityschema

import (
	"modelql/internal/qerr"
)

// ScalarKind classifies a column's value domain. The legal filter operator
// set for a column is derived from its kind.
type ScalarKind int

const (
	KindString ScalarKind = iota
	KindInt
	KindFloat
	KindBool
	KindDateTime
	KindUUID
)

func (k ScalarKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindDateTime:
		return "datetime"
	case KindUUID:
		return "uuid"
	default:
		return "unknown"
	}
}

// ParseScalarKind maps the textual kind used in model definition files to a
// ScalarKind.
func ParseScalarKind(s string) (ScalarKind, error) {
	switch s {
	case "string":
		return KindString, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "bool":
		return KindBool, nil
	case "datetime":
		return KindDateTime, nil
	case "uuid":
		return KindUUID, nil
	default:
		return 0, qerr.Configurationf("unknown column kind %q", s)
	}
}

// Column describes one scalar column.
type Column struct {
	Name       string     `mapstructure:"name"`
	Kind       ScalarKind `mapstructure:"kind"`
	Nullable   bool       `mapstructure:"nullable"`
	HasDefault bool       `mapstructure:"has_default"`
}

// Relationship describes a link to another entity. Foreign-key columns are
// not listed in Entity.Columns; they exist only through the owning-side
// FKColumn recorded here. For a to-one relationship the FK column lives on
// this entity's table; for to-many it lives on the target's table and points
// back at this entity's primary key.
type Relationship struct {
	Name     string
	Target   *Entity
	ToMany   bool
	Nullable bool // to-one only
	FKColumn string
}

// Entity is the static description of one model.
type Entity struct {
	Name          string
	Table         string
	PrimaryKey    Column
	Columns       []Column
	Relationships []Relationship

	columnsByName map[string]Column
	relsByName    map[string]Relationship
}

// Column looks up a column by name. The primary key is included; foreign-key
// columns are not (they are reachable only through relationships).
func (e *Entity) Column(name string) (Column, bool) {
	c, ok := e.columnsByName[name]
	return c, ok
}

// Relationship looks up a relationship by name.
func (e *Entity) Relationship(name string) (Relationship, bool) {
	r, ok := e.relsByName[name]
	return r, ok
}

// SelectColumns returns the columns fetched when loading a row of this
// entity: the primary key, every scalar column, and the owning-side FK
// column of each to-one relationship (needed to attach prefetched targets).
// Order is deterministic and matches the planner's SELECT lists.
func (e *Entity) SelectColumns() []Column {
	out := make([]Column, 0, len(e.Columns)+len(e.Relationships)+1)
	out = append(out, e.PrimaryKey)
	out = append(out, e.Columns...)
	for _, rel := range e.Relationships {
		if rel.ToMany {
			continue
		}
		out = append(out, Column{
			Name:     rel.FKColumn,
			Kind:     rel.Target.PrimaryKey.Kind,
			Nullable: rel.Nullable,
		})
	}
	return out
}

// Schema is the process-wide, read-only set of entities.
type Schema struct {
	byName map[string]*Entity
	order  []string
}

// Entity looks up an entity by name.
func (s *Schema) Entity(name string) (*Entity, bool) {
	e, ok := s.byName[name]
	return e, ok
}

// Entities returns all entities in declaration order.
func (s *Schema) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out
}

// RelationshipConfig is the pre-link form of a Relationship; Target names the
// entity to resolve during Build.
type RelationshipConfig struct {
	Name     string `mapstructure:"name"`
	Target   string `mapstructure:"target"`
	ToMany   bool   `mapstructure:"to_many"`
	Nullable bool   `mapstructure:"nullable"`
	FKColumn string `mapstructure:"fk_column"`
}

// EntityConfig is the pre-link form of an Entity.
type EntityConfig struct {
	Name          string               `mapstructure:"name"`
	Table         string               `mapstructure:"table"`
	PrimaryKey    Column               `mapstructure:"primary_key"`
	Columns       []Column             `mapstructure:"columns"`
	Relationships []RelationshipConfig `mapstructure:"relationships"`
}

// Build validates and links entity configs into an immutable Schema. A model
// without a primary key, a duplicate name, or a dangling relationship target
// is a fatal configuration error.
func Build(configs []EntityConfig) (*Schema, error) {
	schema := &Schema{byName: make(map[string]*Entity, len(configs))}

	for _, cfg := range configs {
		if cfg.Name == "" {
			return nil, qerr.Schemaf("entity with empty name")
		}
		if cfg.PrimaryKey.Name == "" {
			return nil, qerr.Schemaf("entity %q has no primary key column", cfg.Name)
		}
		if _, dup := schema.byName[cfg.Name]; dup {
			return nil, qerr.Schemaf("duplicate entity name %q", cfg.Name)
		}

		table := cfg.Table
		if table == "" {
			table = cfg.Name
		}
		entity := &Entity{
			Name:          cfg.Name,
			Table:         table,
			PrimaryKey:    cfg.PrimaryKey,
			Columns:       append([]Column(nil), cfg.Columns...),
			columnsByName: make(map[string]Column, len(cfg.Columns)+1),
			relsByName:    make(map[string]Relationship),
		}
		entity.columnsByName[entity.PrimaryKey.Name] = entity.PrimaryKey
		for _, col := range entity.Columns {
			if col.Name == "" {
				return nil, qerr.Schemaf("entity %q has a column with empty name", cfg.Name)
			}
			if _, dup := entity.columnsByName[col.Name]; dup {
				return nil, qerr.Schemaf("entity %q declares column %q twice", cfg.Name, col.Name)
			}
			entity.columnsByName[col.Name] = col
		}

		schema.byName[cfg.Name] = entity
		schema.order = append(schema.order, cfg.Name)
	}

	// Link relationships once every entity exists.
	for _, cfg := range configs {
		entity := schema.byName[cfg.Name]
		for _, rc := range cfg.Relationships {
			if rc.Name == "" {
				return nil, qerr.Schemaf("entity %q has a relationship with empty name", cfg.Name)
			}
			target, ok := schema.byName[rc.Target]
			if !ok {
				return nil, qerr.Schemaf("entity %q relationship %q targets unknown entity %q", cfg.Name, rc.Name, rc.Target)
			}
			if rc.FKColumn == "" {
				return nil, qerr.Schemaf("entity %q relationship %q has no foreign-key column", cfg.Name, rc.Name)
			}
			if _, dup := entity.relsByName[rc.Name]; dup {
				return nil, qerr.Schemaf("entity %q declares relationship %q twice", cfg.Name, rc.Name)
			}
			if _, clash := entity.columnsByName[rc.Name]; clash {
				return nil, qerr.Schemaf("entity %q relationship %q collides with a column name", cfg.Name, rc.Name)
			}
			rel := Relationship{
				Name:     rc.Name,
				Target:   target,
				ToMany:   rc.ToMany,
				Nullable: rc.Nullable,
				FKColumn: rc.FKColumn,
			}
			entity.Relationships = append(entity.Relationships, rel)
			entity.relsByName[rc.Name] = rel
		}
	}

	return schema, nil
}
