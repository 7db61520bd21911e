package planner

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"modelql/internal/entityschema"
	"modelql/internal/sqlutil"
)

// Pagination bounds. Arguments outside the window are clamped, never
// rejected.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// SQLQuery is a planned SQL statement with bound args.
type SQLQuery struct {
	SQL  string
	Args []interface{}
}

// ClampPage normalizes page arguments. Pages start at 1; a perPage of zero
// or less falls back to the default and the maximum is enforced.
func ClampPage(page, perPage, defaultPerPage, maxPerPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// SortSpec is one ORDER BY term on a dotted column path.
type SortSpec struct {
	Path       string
	Descending bool
}

// ParseSort converts sort strings into specs. A leading "-" sorts that path
// in descending order.
func ParseSort(raw []string) []SortSpec {
	specs := make([]SortSpec, 0, len(raw))
	for _, item := range raw {
		if strings.HasPrefix(item, "-") {
			specs = append(specs, SortSpec{Path: item[1:], Descending: true})
		} else {
			specs = append(specs, SortSpec{Path: item})
		}
	}
	return specs
}

// ListArgs are the resolved arguments of a list query. Page and PerPage must
// already be clamped.
type ListArgs struct {
	Filter  []Group
	Sort    []SortSpec
	Page    int
	PerPage int
}

// PlanList builds the page query for an entity list: relationship joins and
// the filter predicate, explicit or primary-key ordering, and LIMIT/OFFSET
// paging. Filter and sort share one join context, so equal paths join once.
func PlanList(entity *entityschema.Entity, args ListArgs) (SQLQuery, error) {
	jc := NewJoinContext(entity)
	cond, err := BuildFilterCondition(jc, args.Filter)
	if err != nil {
		return SQLQuery{}, err
	}
	orderBy, err := buildOrderBy(jc, entity, args.Sort)
	if err != nil {
		return SQLQuery{}, err
	}

	builder := selectEntity(entity, jc, cond).
		OrderBy(orderBy...).
		Limit(uint64(args.PerPage)).
		Offset(uint64((args.Page - 1) * args.PerPage))

	query, sqlArgs, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: sqlArgs}, nil
}

// PlanCount builds the total-row query for the same filter as PlanList,
// dropping ordering and paging. The filtered query is counted as a
// subquery so join multiplicity matches the list query.
func PlanCount(entity *entityschema.Entity, filter []Group) (SQLQuery, error) {
	jc := NewJoinContext(entity)
	cond, err := BuildFilterCondition(jc, filter)
	if err != nil {
		return SQLQuery{}, err
	}

	inner := sq.Select("1").From(sqlutil.QuoteIdentifier(entity.Table))
	for _, join := range jc.Joins() {
		inner = inner.Join(join.Clause)
	}
	if cond != nil {
		inner = inner.Where(cond)
	}
	innerSQL, innerArgs, err := inner.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return SQLQuery{}, err
	}

	return SQLQuery{
		SQL:  "SELECT COUNT(*) FROM (" + innerSQL + ") AS `__count`",
		Args: innerArgs,
	}, nil
}

func selectEntity(entity *entityschema.Entity, jc *JoinContext, cond sq.Sqlizer) sq.SelectBuilder {
	selectCols := entity.SelectColumns()
	cols := make([]string, len(selectCols))
	for i, col := range selectCols {
		cols[i] = sqlutil.Qualify(entity.Table, col.Name)
	}

	builder := sq.Select(cols...).From(sqlutil.QuoteIdentifier(entity.Table))
	for _, join := range jc.Joins() {
		builder = builder.Join(join.Clause)
	}
	if cond != nil {
		builder = builder.Where(cond)
	}
	return builder
}

// buildOrderBy resolves sort paths to qualified columns. Without an explicit
// sort the primary key orders the rows, keeping pages consistent.
func buildOrderBy(jc *JoinContext, entity *entityschema.Entity, sorts []SortSpec) ([]string, error) {
	if len(sorts) == 0 {
		return []string{sqlutil.Qualify(entity.Table, entity.PrimaryKey.Name) + " ASC"}, nil
	}
	out := make([]string, 0, len(sorts))
	for _, spec := range sorts {
		ref, err := jc.ResolvePath(spec.Path)
		if err != nil {
			return nil, err
		}
		dir := " ASC"
		if spec.Descending {
			dir = " DESC"
		}
		out = append(out, ref.Qualified+dir)
	}
	return out, nil
}
