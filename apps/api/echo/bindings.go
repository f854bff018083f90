package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-curriculum/core"
)

const orderingParam = "ordering"

// Ordering binds ?ordering=field,-field against the fields a listing allows.
type Ordering struct {
	allowed   []string
	Orderings []core.DBOrdering
}

func newOrdering(allowed ...string) *Ordering {
	return &Ordering{allowed: allowed}
}

// Bind fails with a 400 on a field outside the allowed ones. Repeated fields keep their first direction.
func (ord *Ordering) Bind(ctx echo.Context) error {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return nil
	}

	seen := make(map[string]bool)
	for _, field := range strings.Split(val, ",") {
		field = core.CleanString(field, true /* lower */)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = strings.TrimSpace(field[1:]) // drop "-"
		}
		if field == "" || seen[field] {
			continue
		}
		if !ord.allows(field) {
			return echo.NewHTTPError(http.StatusBadRequest, map[string]string{
				orderingParam: fmt.Sprintf("cannot order by %q", field),
			})
		}
		seen[field] = true
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return nil
}

func (ord *Ordering) allows(field string) bool {
	for _, fld := range ord.allowed {
		if fld == field {
			return true
		}
	}
	return false
}
