// Package scalars defines the custom GraphQL scalar types the generated
// schema uses.
package scalars

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// JSON accepts any JSON value, including lists and objects. Filter rule
// values use it so one input type can carry strings, numbers, booleans, and
// value lists.
func JSON() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "JSON",
		Description: "An arbitrary JSON value.",
		Serialize: func(value interface{}) interface{} {
			return value
		},
		ParseValue: func(value interface{}) interface{} {
			return value
		},
		ParseLiteral: literalToValue,
	})
}

func literalToValue(valueAST ast.Value) interface{} {
	switch v := valueAST.(type) {
	case *ast.IntValue:
		parsed, err := strconv.Atoi(v.Value)
		if err != nil {
			return nil
		}
		return parsed
	case *ast.FloatValue:
		parsed, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil
		}
		return parsed
	case *ast.StringValue:
		return v.Value
	case *ast.BooleanValue:
		return v.Value
	case *ast.EnumValue:
		return v.Value
	case *ast.ListValue:
		out := make([]interface{}, 0, len(v.Values))
		for _, item := range v.Values {
			out = append(out, literalToValue(item))
		}
		return out
	case *ast.ObjectValue:
		out := make(map[string]interface{}, len(v.Fields))
		for _, field := range v.Fields {
			out[field.Name.Value] = literalToValue(field.Value)
		}
		return out
	default:
		return nil
	}
}

// DateTime carries RFC 3339 timestamps. A value without a zone offset is
// interpreted as UTC.
func DateTime() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "DateTime",
		Description: "An RFC 3339 timestamp. Without a zone offset, UTC is assumed.",
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case time.Time:
				return v.Format(time.RFC3339Nano)
			case string:
				return v
			case []byte:
				return string(v)
			default:
				return nil
			}
		},
		ParseValue: func(value interface{}) interface{} {
			s, ok := value.(string)
			if !ok {
				return nil
			}
			parsed, ok := parseDateTime(s)
			if !ok {
				return nil
			}
			return parsed
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			sv, ok := valueAST.(*ast.StringValue)
			if !ok {
				return nil
			}
			parsed, ok := parseDateTime(sv.Value)
			if !ok {
				return nil
			}
			return parsed
		},
	})
}

func parseDateTime(raw string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	t, err := time.Parse("2006-01-02T15:04:05.999999999", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// UUID carries UUID values in canonical text form.
func UUID() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "UUID",
		Description: "A UUID in canonical text form.",
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case string:
				return v
			case []byte:
				return string(v)
			case uuid.UUID:
				return v.String()
			default:
				return nil
			}
		},
		ParseValue: func(value interface{}) interface{} {
			s, ok := value.(string)
			if !ok {
				return nil
			}
			parsed, err := uuid.Parse(s)
			if err != nil {
				return nil
			}
			return parsed.String()
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			sv, ok := valueAST.(*ast.StringValue)
			if !ok {
				return nil
			}
			parsed, err := uuid.Parse(sv.Value)
			if err != nil {
				return nil
			}
			return parsed.String()
		},
	})
}
