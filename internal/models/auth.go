package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload minted by the account service.
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	FullName    string   `json:"full_name"`
	Role        UserRole `json:"role"`
	IsStaff     bool     `json:"is_staff"`
	IsSuperuser bool     `json:"is_superuser"`
	jwt.RegisteredClaims
}

// Staff reports whether the caller may see grievances they do not own.
func (c *JWTClaims) Staff() bool {
	if c == nil {
		return false
	}
	return c.IsStaff || c.IsSuperuser || c.Role == RoleOfficer || c.Role == RoleAdmin
}
