// Package sqlxrepos implements the core repositories on Postgres via sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/tshilobo/soko/core"
)

// orderBy renders an ORDER BY clause from orderings. Fields come from
// hard-coded service defaults or bindings whitelists, never raw user input.
func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
