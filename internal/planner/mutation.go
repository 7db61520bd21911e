package planner

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"modelql/internal/entityschema"
	"modelql/internal/qerr"
	"modelql/internal/sqlutil"
)

// PlanByPK builds the single-row lookup used by item queries and by
// mutations re-reading the row they touched.
func PlanByPK(entity *entityschema.Entity, pkValue interface{}) (SQLQuery, error) {
	query, args, err := sq.Select(columnList(entity.SelectColumns())...).
		From(sqlutil.QuoteIdentifier(entity.Table)).
		Where(sq.Eq{sqlutil.QuoteIdentifier(entity.PrimaryKey.Name): pkValue}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// PlanPKProbe builds an existence check returning only the primary keys that
// are present, for one value or a whole batch.
func PlanPKProbe(entity *entityschema.Entity, pkValues []interface{}) (SQLQuery, error) {
	if len(pkValues) == 0 {
		return SQLQuery{}, qerr.Schemaf("primary key probe on %q requires at least one value", entity.Name)
	}
	pk := sqlutil.QuoteIdentifier(entity.PrimaryKey.Name)
	query, args, err := sq.Select(pk).
		From(sqlutil.QuoteIdentifier(entity.Table)).
		Where(sq.Eq{pk: pkValues}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// PlanInsert builds SQL for inserting a single row with the provided
// columns, in the order given. An empty column list inserts defaults only.
func PlanInsert(entity *entityschema.Entity, columns []string, values []interface{}) (SQLQuery, error) {
	if len(columns) == 0 {
		return SQLQuery{SQL: fmt.Sprintf("INSERT INTO %s () VALUES ()", sqlutil.QuoteIdentifier(entity.Table))}, nil
	}
	if len(columns) != len(values) {
		return SQLQuery{}, qerr.Schemaf("insert on %q has %d columns and %d values", entity.Name, len(columns), len(values))
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = sqlutil.QuoteIdentifier(col)
	}
	query, args, err := sq.Insert(sqlutil.QuoteIdentifier(entity.Table)).
		Columns(quoted...).
		Values(values...).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// SetClause is one column assignment in an update, kept ordered so the
// emitted SQL is deterministic.
type SetClause struct {
	Column string
	Value  interface{}
}

// PlanUpdate builds SQL for updating a single row by primary key. The set
// list reflects only the arguments the caller actually provided; a nil
// value writes NULL.
func PlanUpdate(entity *entityschema.Entity, set []SetClause, pkValue interface{}) (SQLQuery, error) {
	if len(set) == 0 {
		return SQLQuery{}, qerr.Schemaf("update on %q has nothing to set", entity.Name)
	}

	update := sq.Update(sqlutil.QuoteIdentifier(entity.Table))
	for _, clause := range set {
		update = update.Set(sqlutil.QuoteIdentifier(clause.Column), clause.Value)
	}
	update = update.Where(sq.Eq{sqlutil.QuoteIdentifier(entity.PrimaryKey.Name): pkValue})

	query, args, err := update.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// PlanDelete builds SQL for deleting a single row by primary key.
func PlanDelete(entity *entityschema.Entity, pkValue interface{}) (SQLQuery, error) {
	query, args, err := sq.Delete(sqlutil.QuoteIdentifier(entity.Table)).
		Where(sq.Eq{sqlutil.QuoteIdentifier(entity.PrimaryKey.Name): pkValue}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// PlanAdopt builds the UPDATE that points a to-many relationship's children
// at a new owner by rewriting their foreign key.
func PlanAdopt(rel entityschema.Relationship, ownerPK interface{}, childPKs []interface{}) (SQLQuery, error) {
	if !rel.ToMany {
		return SQLQuery{}, qerr.Schemaf("adopt is only valid for to-many relationships, got %q", rel.Name)
	}
	if len(childPKs) == 0 {
		return SQLQuery{}, qerr.Schemaf("adopt on %q requires at least one child", rel.Name)
	}
	target := rel.Target
	query, args, err := sq.Update(sqlutil.QuoteIdentifier(target.Table)).
		Set(sqlutil.QuoteIdentifier(rel.FKColumn), ownerPK).
		Where(sq.Eq{sqlutil.QuoteIdentifier(target.PrimaryKey.Name): childPKs}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}
