package core

import "strings"

// Supported database engines.
const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

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

// ParseOrderings parses a comma separated list of fields, each optionally prefixed with "-" for descending order.
// Fields not listed in `allowed` are dropped.
func ParseOrderings(val string, allowed ...string) []DBOrdering {
	if val == "" {
		return nil
	}
	ok := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		ok[f] = true
	}

	var ords []DBOrdering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !ok[field] {
			continue
		}
		ords = append(ords, DBOrdering{Field: field, Ascending: !descending})
	}
	return ords
}
