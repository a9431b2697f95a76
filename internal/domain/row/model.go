package row

import "time"

// KnownTables lists the collections the API accepts writes for.
var KnownTables = []string{"patients", "todos"}

// Known reports whether table is a collection the server stores.
func Known(table string) bool {
	for _, t := range KnownTables {
		if t == table {
			return true
		}
	}
	return false
}

// Row is a stored record: an open field map under a server-assigned id.
type Row struct {
	ID        string                 `json:"id"`
	Table     string                 `json:"table"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}
