package domain

// AdminClaims is the verified payload of an admin bearer token.
type AdminClaims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
}

// RoleAdmin is the only role allowed on admin billing routes.
const RoleAdmin = "admin"
