package models

// Role identifies what an operator may do through the API.
type Role string

const (
	RoleOperator Role = "OPERATOR"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOperator || r == RoleAdmin
}

// Operator is the library staff member that registers loans.
type Operator struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
	Role  Role   `db:"role" json:"role"`
}
