package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"modelql/internal/dbexec"
	"modelql/internal/entityschema"
	"modelql/internal/observability"
	"modelql/internal/planner"
	"modelql/internal/qerr"
	"modelql/internal/selection"
)

// Mutation arguments are three-state: a key absent from the map means
// "leave unchanged", an explicit nil means "set NULL", anything else is a
// value. The GraphQL executor only populates args the request provided, so
// map presence carries the distinction.

// Create inserts a row from the provided arguments and returns it with the
// selected relationships attached. Relationship arguments give primary keys
// of existing rows; a key that matches nothing is a not-found error before
// any write happens for that relationship.
func (e *Engine) Create(ctx context.Context, sess dbexec.Session, entity *entityschema.Entity, args map[string]interface{}, tree *selection.Node) (map[string]interface{}, error) {
	columns := make([]string, 0, len(args))
	values := make([]interface{}, 0, len(args))

	for _, col := range entity.Columns {
		if v, ok := args[col.Name]; ok {
			columns = append(columns, col.Name)
			values = append(values, v)
		}
	}
	for _, rel := range entity.Relationships {
		if rel.ToMany {
			continue
		}
		v, ok := args[rel.Name]
		if !ok {
			continue
		}
		fk, err := e.resolveToOneArg(ctx, sess, rel, v)
		if err != nil {
			return nil, err
		}
		columns = append(columns, rel.FKColumn)
		values = append(values, fk)
	}

	plan, err := planner.PlanInsert(entity, columns, values)
	if err != nil {
		return nil, err
	}
	result, err := sess.ExecContext(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, normalizeConstraintErr(err)
	}
	pk, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert id for %s: %w", entity.Name, err)
	}

	if err := e.applyToManyArgs(ctx, sess, entity, args, pk); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "created row", "entity", entity.Name, "pk", pk)
	if metrics := observability.QueryMetricsFromContext(ctx); metrics != nil {
		metrics.RecordMutation(ctx, "create", entity.Name)
	}
	return e.Item(ctx, sess, entity, pk, tree)
}

// Update modifies a row by primary key. Only arguments present in the map
// are written; an explicit nil writes NULL. The updated row is returned
// with the selected relationships attached.
func (e *Engine) Update(ctx context.Context, sess dbexec.Session, entity *entityschema.Entity, pkValue interface{}, args map[string]interface{}, tree *selection.Node) (map[string]interface{}, error) {
	if err := e.requireRow(ctx, sess, entity, pkValue); err != nil {
		return nil, err
	}

	set := make([]planner.SetClause, 0, len(args))
	for _, col := range entity.Columns {
		if v, ok := args[col.Name]; ok {
			set = append(set, planner.SetClause{Column: col.Name, Value: v})
		}
	}
	for _, rel := range entity.Relationships {
		if rel.ToMany {
			continue
		}
		v, ok := args[rel.Name]
		if !ok {
			continue
		}
		fk, err := e.resolveToOneArg(ctx, sess, rel, v)
		if err != nil {
			return nil, err
		}
		set = append(set, planner.SetClause{Column: rel.FKColumn, Value: fk})
	}

	if len(set) > 0 {
		plan, err := planner.PlanUpdate(entity, set, pkValue)
		if err != nil {
			return nil, err
		}
		if _, err := sess.ExecContext(ctx, plan.SQL, plan.Args...); err != nil {
			return nil, normalizeConstraintErr(err)
		}
	}

	if err := e.applyToManyArgs(ctx, sess, entity, args, pkValue); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "updated row", "entity", entity.Name, "pk", pkValue)
	if metrics := observability.QueryMetricsFromContext(ctx); metrics != nil {
		metrics.RecordMutation(ctx, "update", entity.Name)
	}
	return e.Item(ctx, sess, entity, pkValue, tree)
}

// Delete removes a row by primary key. Deleting a missing row is a
// not-found error, not a silent no-op.
func (e *Engine) Delete(ctx context.Context, sess dbexec.Session, entity *entityschema.Entity, pkValue interface{}) (bool, error) {
	if err := e.requireRow(ctx, sess, entity, pkValue); err != nil {
		return false, err
	}

	plan, err := planner.PlanDelete(entity, pkValue)
	if err != nil {
		return false, err
	}
	if _, err := sess.ExecContext(ctx, plan.SQL, plan.Args...); err != nil {
		return false, normalizeConstraintErr(err)
	}

	e.logger.InfoContext(ctx, "deleted row", "entity", entity.Name, "pk", pkValue)
	if metrics := observability.QueryMetricsFromContext(ctx); metrics != nil {
		metrics.RecordMutation(ctx, "delete", entity.Name)
	}
	return true, nil
}

// resolveToOneArg turns a to-one relationship argument into the foreign-key
// value to store. The referenced row must exist; nil clears the key.
func (e *Engine) resolveToOneArg(ctx context.Context, sess dbexec.Session, rel entityschema.Relationship, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if err := e.requireRow(ctx, sess, rel.Target, value); err != nil {
		return nil, err
	}
	return value, nil
}

// applyToManyArgs points the listed children of each to-many relationship
// argument at the given owner. Every child must already exist.
func (e *Engine) applyToManyArgs(ctx context.Context, sess dbexec.Session, entity *entityschema.Entity, args map[string]interface{}, ownerPK interface{}) error {
	for _, rel := range entity.Relationships {
		if !rel.ToMany {
			continue
		}
		raw, ok := args[rel.Name]
		if !ok {
			continue
		}
		childPKs, ok := raw.([]interface{})
		if !ok {
			return qerr.Schemaf("argument %q must be a list of primary keys", rel.Name)
		}
		if len(childPKs) == 0 {
			continue
		}

		if err := e.requireRows(ctx, sess, rel.Target, childPKs); err != nil {
			return err
		}
		plan, err := planner.PlanAdopt(rel, ownerPK, childPKs)
		if err != nil {
			return err
		}
		if _, err := sess.ExecContext(ctx, plan.SQL, plan.Args...); err != nil {
			return normalizeConstraintErr(err)
		}
	}
	return nil
}

func (e *Engine) requireRow(ctx context.Context, sess dbexec.Session, entity *entityschema.Entity, pkValue interface{}) error {
	return e.requireRows(ctx, sess, entity, []interface{}{pkValue})
}

// requireRows probes that every primary key exists, reporting the first
// missing one.
func (e *Engine) requireRows(ctx context.Context, sess dbexec.Session, entity *entityschema.Entity, pkValues []interface{}) error {
	plan, err := planner.PlanPKProbe(entity, pkValues)
	if err != nil {
		return err
	}
	rows, err := sess.QueryContext(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return fmt.Errorf("probe %s: %w", entity.Name, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	found := make(map[string]struct{}, len(pkValues))
	for rows.Next() {
		var pk interface{}
		if err := rows.Scan(&pk); err != nil {
			return err
		}
		found[keyOf(pk)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, pk := range pkValues {
		if _, ok := found[keyOf(pk)]; !ok {
			return qerr.NotFoundf("%s with primary key %v does not exist", entity.Name, pk)
		}
	}
	return nil
}

// normalizeConstraintErr maps driver constraint failures onto the error
// taxonomy the transport layer reports. Other errors pass through.
func normalizeConstraintErr(err error) error {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return err
	}

	switch mysqlErr.Number {
	case 1062:
		return qerr.Constraint("unique constraint violated", err)
	case 1451, 1452:
		return qerr.Constraint("foreign key constraint violated", err)
	case 1048, 1364:
		return qerr.Constraint("column must not be null", err)
	default:
		return err
	}
}
