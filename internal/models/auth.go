package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates roles carried in access tokens.
type UserRole string

// Known roles.
const (
	RoleAdmin UserRole = "ADMIN"
	RoleStaff UserRole = "STAFF"
)

// JWTClaims are the claims of an access token.
type JWTClaims struct {
	UserID string   `json:"uid"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
