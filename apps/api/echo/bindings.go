package echoapi

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tshilobo/soko/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the ?ordering= query param ("field,-other"). Fields not in the
// caller's allowed set are rejected; they end up in an ORDER BY clause.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) error {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return nil
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return nil
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !orderingAllowed(field, allowed) {
			return core.NewValidationError(nil, core.FieldError{
				Field: orderingParam, Error: fmt.Sprintf("cannot order by %q", field),
			})
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return nil
}

func orderingAllowed(field string, allowed []string) bool {
	for _, f := range allowed {
		if field == f {
			return true
		}
	}
	return false
}

type SuccessResponse struct {
	Success string `json:"success"`
}
