package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/darasa-app/darasa/core"
)

const orderingParam = "ordering"

// Ordering binds the `?ordering=` query param, a comma list of column names
// with an optional leading "-" for descending. Columns outside the caller's
// allowlist are dropped; user input never reaches the ORDER BY clause raw.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	raw := ctx.QueryParam(orderingParam)
	if raw == "" {
		return
	}

	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" || !orderableField(field, allowed) {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func orderableField(field string, allowed []string) bool {
	for _, col := range allowed {
		if field == col {
			return true
		}
	}
	return false
}
