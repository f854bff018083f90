package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrderings drops orderings on fields that are not in allowed (column names are interpolated into queries).
func FilterOrderings(orderings []DBOrdering, allowed ...string) []DBOrdering {
	var out []DBOrdering
	for _, ord := range orderings {
		for _, fld := range allowed {
			if strings.EqualFold(ord.Field, fld) {
				out = append(out, DBOrdering{Field: fld, Ascending: ord.Ascending})
				break
			}
		}
	}
	return out
}
