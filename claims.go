package hospital

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents structured session claims
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	HasRole(role string) bool
	IsStaff() bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"id,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the account ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the account role
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// HasRole checks for an exact role match
func (c *JWTClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// HasAnyRole checks the role against a list
func (c *JWTClaims) HasAnyRole(roles ...string) bool {
	return slices.Contains(roles, c.UserRole)
}

// IsStaff reports whether the session belongs to a doctor or admin
func (c *JWTClaims) IsStaff() bool {
	return Role(c.UserRole).IsStaff()
}

// Actor converts the claims into an ActorRef
func (c *JWTClaims) Actor() ActorRef {
	return ActorRef{ID: c.UserID(), Role: Role(c.UserRole)}
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ActorFromClaims builds an ActorRef from any AuthClaims
func ActorFromClaims(claims AuthClaims) ActorRef {
	if claims == nil {
		return ActorRef{}
	}
	return ActorRef{ID: claims.UserID(), Role: Role(claims.Role())}
}
