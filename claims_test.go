package hospital_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	hospital "github.com/goliatone/go-hospital"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTClaims(t *testing.T) {
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	expires := issued.Add(24 * time.Hour)

	claims := &hospital.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "subject-1",
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UID:      "account-1",
		UserRole: "doctor",
	}

	assert.Equal(t, "subject-1", claims.Subject())
	assert.Equal(t, "account-1", claims.UserID())
	assert.Equal(t, "doctor", claims.Role())
	assert.True(t, claims.HasRole("doctor"))
	assert.False(t, claims.HasRole("admin"))
	assert.True(t, claims.HasAnyRole(hospital.StaffRoles()...))
	assert.True(t, claims.IsStaff())
	assert.Equal(t, expires, claims.Expires())
	assert.Equal(t, issued, claims.IssuedAt())

	actor := claims.Actor()
	assert.Equal(t, "account-1", actor.ID)
	assert.Equal(t, hospital.RoleDoctor, actor.Role)
}

func TestJWTClaimsDefaults(t *testing.T) {
	claims := &hospital.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-only"},
		UserRole:         "patient",
	}

	assert.Equal(t, "subject-only", claims.UserID(), "UserID falls back to the subject")
	assert.False(t, claims.IsStaff())
	assert.False(t, claims.HasAnyRole(hospital.StaffRoles()...))
	assert.True(t, claims.Expires().IsZero())
	assert.True(t, claims.IssuedAt().IsZero())
}

func TestActorFromClaims(t *testing.T) {
	assert.Equal(t, hospital.ActorRef{}, hospital.ActorFromClaims(nil))

	actor := hospital.ActorFromClaims(&hospital.JWTClaims{UID: "a-1", UserRole: "admin"})
	assert.Equal(t, "a-1", actor.ID)
	assert.True(t, actor.IsStaff())
}

func TestClaimsContext(t *testing.T) {
	_, ok := hospital.GetClaims(context.Background())
	assert.False(t, ok)

	claims := &hospital.JWTClaims{UID: "account-1", UserRole: "patient"}
	ctx := hospital.WithClaimsContext(context.Background(), claims)

	got, ok := hospital.GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, "account-1", got.UserID())
}

func TestGetRouterClaims(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(ctx *router.MockContext)
		key      string
		expected string
		ok       bool
	}{
		{
			name: "default key",
			setup: func(ctx *router.MockContext) {
				ctx.LocalsMock["user"] = &hospital.JWTClaims{UID: "account-1"}
			},
			key:      "",
			expected: "account-1",
			ok:       true,
		},
		{
			name: "custom key",
			setup: func(ctx *router.MockContext) {
				ctx.LocalsMock["custom-claims"] = &hospital.JWTClaims{UID: "account-2"}
			},
			key:      "custom-claims",
			expected: "account-2",
			ok:       true,
		},
		{
			name:  "missing",
			setup: func(ctx *router.MockContext) {},
			key:   "",
			ok:    false,
		},
		{
			name: "wrong type",
			setup: func(ctx *router.MockContext) {
				ctx.LocalsMock["user"] = "not-a-claims-object"
			},
			key: "",
			ok:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := router.NewMockContext()
			tt.setup(ctx)

			claims, ok := hospital.GetRouterClaims(ctx, tt.key)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, claims.UserID())
			}
		})
	}
}
