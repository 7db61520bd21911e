// Package naming derives the GraphQL names of the generated API surface
// from entity names.
package naming

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// Field name suffixes of the generated per-entity operations.
func ItemField(entity string) string   { return entity + "_item" }
func ListField(entity string) string   { return entity + "_list" }
func CreateField(entity string) string { return entity + "_create" }
func UpdateField(entity string) string { return entity + "_update" }
func DeleteField(entity string) string { return entity + "_delete" }

// TypeName derives the GraphQL object type name for an entity: the
// singular form in PascalCase, so an entity configured from a plural table
// name still yields a singular type.
func TypeName(entity string) string {
	return pascal(inflection.Singular(entity))
}

// ListResultTypeName names the envelope type returned by list queries.
func ListResultTypeName(entity string) string {
	return TypeName(entity) + "ListResult"
}

// FilterItemTypeName names the shared filter rule input type.
const FilterItemTypeName = "FilterItem"

func pascal(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
