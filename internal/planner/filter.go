package planner

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"modelql/internal/entityschema"
	"modelql/internal/qerr"
)

// Rule is a single filter predicate on a dotted column path. Value may be a
// single JSON value or a list of values; most operators accept either.
type Rule struct {
	Path  string
	Op    string
	Not   bool
	Value interface{}
}

// Group is a conjunction of rules. A filter argument is a disjunction of
// groups: rules within a group combine with AND, groups combine with OR.
type Group []Rule

var kindOps = map[entityschema.ScalarKind]map[string]bool{
	entityschema.KindString:   {"eq": true, "like": true, "isnull": true},
	entityschema.KindInt:      {"eq": true, "lt": true, "le": true, "ge": true, "gt": true, "isnull": true},
	entityschema.KindFloat:    {"eq": true, "lt": true, "le": true, "ge": true, "gt": true, "isnull": true},
	entityschema.KindDateTime: {"eq": true, "lt": true, "le": true, "ge": true, "gt": true, "isnull": true},
	entityschema.KindBool:     {"eq": true, "isnull": true},
	entityschema.KindUUID:     {"eq": true, "isnull": true},
}

// BuildFilterCondition renders filter groups against the join context,
// returning nil when the filter matches every row.
func BuildFilterCondition(jc *JoinContext, groups []Group) (sq.Sqlizer, error) {
	if len(groups) == 0 {
		return nil, nil
	}

	// An empty conjunction is true, which makes the whole disjunction true.
	// Checked before any path resolves so no group registers a join that the
	// dropped condition would never constrain.
	for _, group := range groups {
		if len(group) == 0 {
			return nil, nil
		}
	}

	or := make(sq.Or, 0, len(groups))
	for _, group := range groups {
		and := make(sq.And, 0, len(group))
		for _, rule := range group {
			cond, err := buildRuleCondition(jc, rule)
			if err != nil {
				return nil, err
			}
			and = append(and, cond)
		}
		or = append(or, and)
	}
	if len(or) == 1 {
		return or[0], nil
	}
	return or, nil
}

func buildRuleCondition(jc *JoinContext, rule Rule) (sq.Sqlizer, error) {
	ref, err := jc.ResolvePath(rule.Path)
	if err != nil {
		return nil, err
	}
	if !kindOps[ref.Column.Kind][rule.Op] {
		return nil, qerr.Schemaf("operator %q is not valid for %s column %q", rule.Op, ref.Column.Kind, rule.Path)
	}

	cond, err := buildOpCondition(ref, rule)
	if err != nil {
		return nil, err
	}
	if rule.Not {
		return negate(cond)
	}
	return cond, nil
}

func negate(cond sq.Sqlizer) (sq.Sqlizer, error) {
	query, args, err := cond.ToSql()
	if err != nil {
		return nil, err
	}
	return sq.Expr("NOT ("+query+")", args...), nil
}

func buildOpCondition(ref ColumnRef, rule Rule) (sq.Sqlizer, error) {
	switch rule.Op {
	case "isnull":
		want, ok := rule.Value.(bool)
		if !ok {
			return nil, qerr.Schemaf("isnull value for %q must be a boolean", rule.Path)
		}
		if want {
			return sq.Eq{ref.Qualified: nil}, nil
		}
		return sq.NotEq{ref.Qualified: nil}, nil

	case "eq":
		values, err := prepareValues(ref.Column, rule)
		if err != nil {
			return nil, err
		}
		if len(values) == 1 {
			return sq.Eq{ref.Qualified: values[0]}, nil
		}
		return sq.Eq{ref.Qualified: values}, nil

	case "lt", "le", "ge", "gt":
		values, err := prepareValues(ref.Column, rule)
		if err != nil {
			return nil, err
		}
		or := make(sq.Or, 0, len(values))
		for _, v := range values {
			or = append(or, comparison(ref.Qualified, rule.Op, v))
		}
		if len(or) == 1 {
			return or[0], nil
		}
		return or, nil

	case "like":
		values, err := prepareValues(ref.Column, rule)
		if err != nil {
			return nil, err
		}
		or := make(sq.Or, 0, len(values))
		for _, v := range values {
			str, ok := v.(string)
			if !ok {
				return nil, qerr.Schemaf("like value for %q must be a string", rule.Path)
			}
			or = append(or, sq.Expr(ref.Qualified+" LIKE ? ESCAPE '/'", ContainsPattern(str)))
		}
		if len(or) == 1 {
			return or[0], nil
		}
		return or, nil
	}

	return nil, qerr.Schemaf("unknown filter operator %q", rule.Op)
}

func comparison(qualified, op string, value interface{}) sq.Sqlizer {
	switch op {
	case "lt":
		return sq.Lt{qualified: value}
	case "le":
		return sq.LtOrEq{qualified: value}
	case "ge":
		return sq.GtOrEq{qualified: value}
	default:
		return sq.Gt{qualified: value}
	}
}

// prepareValues normalizes a rule value into a list, converting datetime
// strings for DateTime columns. An empty list stays empty: downstream it
// renders as a condition no row satisfies, matching IN () semantics.
func prepareValues(col entityschema.Column, rule Rule) ([]interface{}, error) {
	var values []interface{}
	if list, ok := rule.Value.([]interface{}); ok {
		values = list
	} else {
		values = []interface{}{rule.Value}
	}

	if col.Kind != entityschema.KindDateTime {
		return values, nil
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			return nil, qerr.Schemaf("datetime value for %q must be a string", rule.Path)
		}
		parsed, err := ParseDateTime(raw)
		if err != nil {
			return nil, err
		}
		out[i] = parsed
	}
	return out, nil
}

// ParseDateTime accepts RFC 3339 timestamps. A timestamp without a zone
// offset is interpreted as UTC.
func ParseDateTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02T15:04:05.999999999", raw)
	if err != nil {
		return time.Time{}, qerr.Schemaf("invalid datetime value %q", raw)
	}
	return t, nil
}

// ContainsPattern prepares a substring LIKE pattern from user input. The "%"
// and "_" wildcards are escaped with "/", which the emitted condition
// declares via ESCAPE.
func ContainsPattern(value string) string {
	value = strings.NewReplacer("/", "//", "%", "/%", "_", "/_").Replace(value)
	return "%" + value + "%"
}
