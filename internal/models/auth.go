package models

import "github.com/golang-jwt/jwt/v5"

// OperatorClaims are carried in operator access tokens. Subject holds the operator ID.
type OperatorClaims struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

// CurrentOperator is the authenticated caller attached to a request.
type CurrentOperator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}
