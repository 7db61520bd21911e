// Package sqlutil provides small SQL identifier helpers shared by the planner.
package sqlutil

import "strings"

// QuoteIdentifier quotes a table, column, or alias name with backticks,
// escaping any backticks inside the name.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Qualify returns a quoted alias.column reference. With an empty alias the
// bare quoted column is returned.
func Qualify(alias, column string) string {
	if alias == "" {
		return QuoteIdentifier(column)
	}
	return QuoteIdentifier(alias) + "." + QuoteIdentifier(column)
}
