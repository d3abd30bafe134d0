package models

// Trigger describes a database trigger found by introspection.
type Trigger struct {
	Name      string `db:"name" json:"name"`
	Table     string `db:"table_name" json:"table"`
	Event     string `db:"event" json:"event"`
	Timing    string `db:"timing" json:"timing"`
	Statement string `db:"statement" json:"statement"`
}
