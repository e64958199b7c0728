package auth

import "context"

// Role enumerates the access levels a principal can hold.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Principal is the authenticated caller of a core operation. It is resolved
// once per request by the security handler and passed explicitly; core code
// never reads identity from ambient context.
type Principal struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID        string
	KeyHash   string
	Name      string
	SubjectID string
	Role      Role
}

// Principal returns the principal this key authenticates as.
func (k *APIKeyInfo) Principal() Principal {
	return Principal{ID: k.SubjectID, Role: k.Role}
}

// Repository provides lookup of API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
