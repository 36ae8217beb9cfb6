package models

import "github.com/golang-jwt/jwt/v5"

// Roles carried in API tokens. Any valid token may read; scanning needs moderator or admin.
const (
	RoleViewer    = "viewer"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Claims defines the structure of the JWT claims accepted by the API.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
