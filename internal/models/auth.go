package models

import "github.com/golang-jwt/jwt/v5"

// OperatorScope is the only scope the ops API grants.
const OperatorScope = "scheduler:operate"

// OperatorClaims is the JWT payload of an ops API token.
type OperatorClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}
