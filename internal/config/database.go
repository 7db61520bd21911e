package config

import (
	"fmt"
	"strings"
)

// DSN returns a MySQL-compatible data source name.
// If ConnectionString is set, it is used directly. Otherwise the DSN is built
// from the discrete fields. parseTime and a UTC location are always applied so
// DATETIME columns scan as time.Time in UTC.
func (d *DatabaseConfig) DSN() string {
	var dsn string

	if d.ConnectionString != "" {
		dsn = d.ConnectionString
		if !strings.Contains(dsn, "parseTime") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		if !strings.Contains(dsn, "loc=") {
			dsn += "&loc=UTC"
		}
	} else {
		dsn = fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
			d.User,
			d.Password,
			d.Host,
			d.Port,
			d.Database,
		)
	}

	return dsn
}
