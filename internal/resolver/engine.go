// Package resolver executes planned queries and mutations against a
// database session and shapes the results for the GraphQL layer. Rows are
// plain maps keyed by column name; related rows are attached in place under
// the relationship name.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"modelql/internal/dbexec"
	"modelql/internal/entityschema"
	"modelql/internal/observability"
	"modelql/internal/planner"
	"modelql/internal/selection"
)

// Engine resolves item and list queries and the mutation set for every
// entity in a schema.
type Engine struct {
	schema         *entityschema.Schema
	logger         *slog.Logger
	defaultPerPage int
	maxPerPage     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for query debug logging.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithPageDefaults overrides the default and maximum page sizes.
func WithPageDefaults(defaultPerPage, maxPerPage int) Option {
	return func(e *Engine) {
		e.defaultPerPage = defaultPerPage
		e.maxPerPage = maxPerPage
	}
}

// New creates an Engine over a built schema.
func New(schema *entityschema.Schema, opts ...Option) *Engine {
	e := &Engine{
		schema:         schema,
		logger:         slog.Default(),
		defaultPerPage: planner.DefaultPerPage,
		maxPerPage:     planner.MaxPerPage,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schema returns the entity schema the engine serves.
func (e *Engine) Schema() *entityschema.Schema {
	return e.schema
}

// Item loads a single row by primary key, with every relationship the
// selection tree asks for attached. A missing row resolves to nil, not an
// error.
func (e *Engine) Item(ctx context.Context, sess dbexec.Session, entity *entityschema.Entity, pkValue interface{}, tree *selection.Node) (map[string]interface{}, error) {
	plan, err := planner.PlanByPK(entity, pkValue)
	if err != nil {
		return nil, err
	}
	results, err := e.queryRows(ctx, sess, plan, entity.SelectColumns())
	if err != nil {
		return nil, fmt.Errorf("item query for %s: %w", entity.Name, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	row := results[0]
	if err := e.prefetch(ctx, sess, entity, results[:1], tree); err != nil {
		return nil, err
	}
	return row, nil
}

// ListParams are the raw list arguments before clamping.
type ListParams struct {
	Filter  []planner.Group
	Sort    []planner.SortSpec
	Page    int
	PerPage int
}

// ListResult is one page of rows plus the total row count for the same
// filter.
type ListResult struct {
	Items []map[string]interface{}
	Total int
}

// List loads one page of rows with filtering and sorting applied, attaches
// selected relationships, and counts the total rows matching the filter.
func (e *Engine) List(ctx context.Context, sess dbexec.Session, entity *entityschema.Entity, params ListParams, tree *selection.Node) (*ListResult, error) {
	page, perPage := planner.ClampPage(params.Page, params.PerPage, e.defaultPerPage, e.maxPerPage)

	plan, err := planner.PlanList(entity, planner.ListArgs{
		Filter:  params.Filter,
		Sort:    params.Sort,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		return nil, err
	}
	e.logger.DebugContext(ctx, "planned list query", "entity", entity.Name, "page", page, "per_page", perPage)

	items, err := e.queryRows(ctx, sess, plan, entity.SelectColumns())
	if err != nil {
		return nil, fmt.Errorf("list query for %s: %w", entity.Name, err)
	}

	countPlan, err := planner.PlanCount(entity, params.Filter)
	if err != nil {
		return nil, err
	}
	total, err := e.queryCount(ctx, sess, countPlan)
	if err != nil {
		return nil, fmt.Errorf("count query for %s: %w", entity.Name, err)
	}

	if metrics := observability.QueryMetricsFromContext(ctx); metrics != nil {
		metrics.RecordListResultRows(ctx, int64(len(items)), entity.Name)
	}

	if err := e.prefetch(ctx, sess, entity, items, tree); err != nil {
		return nil, err
	}
	return &ListResult{Items: items, Total: total}, nil
}

// prefetch executes the load plan for a selection tree: one batched query
// per relationship path, regardless of how many rows were loaded. Loaded
// rows are attached to their parents under the relationship name.
func (e *Engine) prefetch(ctx context.Context, sess dbexec.Session, root *entityschema.Entity, rows []map[string]interface{}, tree *selection.Node) error {
	if tree == nil || len(rows) == 0 {
		return nil
	}
	steps := planner.BuildLoadPlan(root, tree)
	if len(steps) == 0 {
		return nil
	}

	// Rows loaded at each path, so a step can find its parents. The plan
	// guarantees a step's parent path was loaded first.
	metrics := observability.QueryMetricsFromContext(ctx)

	rowsAt := map[string][]map[string]interface{}{"": rows}
	for _, step := range steps {
		parents := rowsAt[step.Parent]
		if len(parents) == 0 {
			continue
		}
		var loaded []map[string]interface{}
		var err error
		if step.Rel.ToMany {
			loaded, err = e.prefetchToMany(ctx, sess, step, parents)
		} else {
			loaded, err = e.prefetchToOne(ctx, sess, step, parents)
		}
		if err != nil {
			return fmt.Errorf("prefetch %s for %s: %w", step.Path, root.Name, err)
		}
		if metrics != nil {
			metrics.RecordPrefetch(ctx, int64(len(parents)), int64(len(loaded)), step.Path)
		}
		rowsAt[step.Path] = loaded
	}
	return nil
}

func (e *Engine) prefetchToOne(ctx context.Context, sess dbexec.Session, step planner.LoadStep, parents []map[string]interface{}) ([]map[string]interface{}, error) {
	rel := step.Rel
	keys := make([]interface{}, 0, len(parents))
	seen := make(map[string]struct{}, len(parents))
	for _, parent := range parents {
		fk := parent[rel.FKColumn]
		if fk == nil {
			continue
		}
		k := keyOf(fk)
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			keys = append(keys, fk)
		}
	}
	if len(keys) == 0 {
		for _, parent := range parents {
			parent[rel.Name] = nil
		}
		return nil, nil
	}

	plan, err := planner.PlanToOnePrefetch(rel, keys)
	if err != nil {
		return nil, err
	}
	targets, err := e.queryRows(ctx, sess, plan, rel.Target.SelectColumns())
	if err != nil {
		return nil, err
	}

	byPK := make(map[string]map[string]interface{}, len(targets))
	for _, target := range targets {
		byPK[keyOf(target[rel.Target.PrimaryKey.Name])] = target
	}
	for _, parent := range parents {
		fk := parent[rel.FKColumn]
		if fk == nil {
			parent[rel.Name] = nil
			continue
		}
		if target, ok := byPK[keyOf(fk)]; ok {
			parent[rel.Name] = target
		} else {
			parent[rel.Name] = nil
		}
	}
	return targets, nil
}

func (e *Engine) prefetchToMany(ctx context.Context, sess dbexec.Session, step planner.LoadStep, parents []map[string]interface{}) ([]map[string]interface{}, error) {
	rel := step.Rel
	ownerPK := step.Owner.PrimaryKey.Name
	keys := make([]interface{}, 0, len(parents))
	seen := make(map[string]struct{}, len(parents))
	for _, parent := range parents {
		pk := parent[ownerPK]
		k := keyOf(pk)
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			keys = append(keys, pk)
		}
	}

	plan, err := planner.PlanToManyPrefetch(rel, keys)
	if err != nil {
		return nil, err
	}
	children, err := e.queryRows(ctx, sess, plan, planner.ToManyPrefetchColumns(step.Owner, rel))
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]map[string]interface{}, len(parents))
	for _, child := range children {
		k := keyOf(child[rel.FKColumn])
		grouped[k] = append(grouped[k], child)
	}
	for _, parent := range parents {
		bucket := grouped[keyOf(parent[ownerPK])]
		if bucket == nil {
			bucket = []map[string]interface{}{}
		}
		parent[rel.Name] = bucket
	}
	return children, nil
}

func (e *Engine) queryRows(ctx context.Context, sess dbexec.Session, plan planner.SQLQuery, cols []entityschema.Column) ([]map[string]interface{}, error) {
	rows, err := sess.QueryContext(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	return scanRows(rows, cols)
}

func (e *Engine) queryCount(ctx context.Context, sess dbexec.Session, plan planner.SQLQuery) (int, error) {
	rows, err := sess.QueryContext(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var total int
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("count query returned no rows")
	}
	if err := rows.Scan(&total); err != nil {
		return 0, err
	}
	return total, rows.Err()
}

func scanRows(rows dbexec.Rows, columns []entityschema.Column) ([]map[string]interface{}, error) {
	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col.Name] = convertValue(values[i])
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

func convertValue(val interface{}) interface{} {
	if val == nil {
		return nil
	}
	if b, ok := val.([]byte); ok {
		return string(b)
	}
	return val
}

// keyOf normalizes a scanned key value for map lookups, since the driver
// may return the same key as int64 in one query and []byte in another.
func keyOf(val interface{}) string {
	return fmt.Sprint(convertValue(val))
}
