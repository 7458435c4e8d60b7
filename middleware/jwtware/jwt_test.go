package jwtware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-hospital/middleware/jwtware"
)

type testClaims struct {
	id   string
	role string
}

func (c testClaims) Subject() string          { return c.id }
func (c testClaims) UserID() string           { return c.id }
func (c testClaims) Role() string             { return c.role }
func (c testClaims) HasRole(role string) bool { return c.role == role }

type stubValidator struct {
	tokens map[string]testClaims
}

func (s stubValidator) Validate(token string) (jwtware.AuthClaims, error) {
	claims, ok := s.tokens[token]
	if !ok {
		return nil, errors.New("token is malformed")
	}
	return claims, nil
}

func newValidator() stubValidator {
	return stubValidator{tokens: map[string]testClaims{
		"patient-token": {id: "p-1", role: "patient"},
		"doctor-token":  {id: "d-1", role: "doctor"},
	}}
}

type nextRecorder struct {
	called bool
}

func (n *nextRecorder) handler(ctx router.Context) error {
	n.called = true
	return nil
}

func TestJWTWare_HeaderExtraction(t *testing.T) {
	next := &nextRecorder{}
	handler := jwtware.New(jwtware.Config{
		TokenValidator: newValidator(),
	})(next.handler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer patient-token")
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	require.NoError(t, handler(ctx))
	assert.True(t, next.called)
	ctx.AssertCalled(t, "Locals", "user", testClaims{id: "p-1", role: "patient"})
}

func TestJWTWare_MissingTokenAnswersUnauthorized(t *testing.T) {
	next := &nextRecorder{}
	handler := jwtware.New(jwtware.Config{
		TokenValidator: newValidator(),
	})(next.handler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("")

	var body router.ViewContext
	ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Run(func(args mock.Arguments) {
		body = args.Get(1).(router.ViewContext)
	}).Return(nil)

	require.NoError(t, handler(ctx))
	assert.False(t, next.called)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No token, authorization denied", body["message"])
}

func TestJWTWare_InvalidTokenAnswersUnauthorized(t *testing.T) {
	next := &nextRecorder{}
	handler := jwtware.New(jwtware.Config{
		TokenValidator: newValidator(),
	})(next.handler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer forged")

	var body router.ViewContext
	ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Run(func(args mock.Arguments) {
		body = args.Get(1).(router.ViewContext)
	}).Return(nil)

	require.NoError(t, handler(ctx))
	assert.False(t, next.called)
	assert.Equal(t, "Invalid or expired token", body["message"])
}

func TestJWTWare_CustomErrorHandlerReceivesError(t *testing.T) {
	var got error
	handler := jwtware.New(jwtware.Config{
		TokenValidator: newValidator(),
		ErrorHandler: func(ctx router.Context, err error) error {
			got = err
			return err
		},
	})((&nextRecorder{}).handler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Basic abc")

	err := handler(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, got, jwtware.ErrJWTMissingOrMalformed)
}

func TestJWTWare_AllowedRoles(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		allowed bool
	}{
		{name: "doctor allowed", token: "doctor-token", allowed: true},
		{name: "patient denied", token: "patient-token", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &nextRecorder{}
			handler := jwtware.New(jwtware.Config{
				TokenValidator: newValidator(),
				AllowedRoles:   []string{"doctor", "admin"},
			})(next.handler)

			ctx := router.NewMockContext()
			ctx.On("GetString", "Authorization", "").Return("Bearer " + tt.token)
			ctx.On("Locals", "user", mock.Anything).Return(nil).Maybe()
			ctx.On("JSON", router.StatusForbidden, mock.Anything).Return(nil).Maybe()

			require.NoError(t, handler(ctx))
			assert.Equal(t, tt.allowed, next.called)
			if !tt.allowed {
				ctx.AssertCalled(t, "JSON", router.StatusForbidden, mock.Anything)
			}
		})
	}
}

func TestJWTWare_RoleCheckerOverridesAllowedRoles(t *testing.T) {
	next := &nextRecorder{}
	handler := jwtware.New(jwtware.Config{
		TokenValidator: newValidator(),
		AllowedRoles:   []string{"admin"},
		RoleChecker: func(claims jwtware.AuthClaims, allowed []string) bool {
			return claims.UserID() == "d-1"
		},
	})(next.handler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer doctor-token")
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	require.NoError(t, handler(ctx))
	assert.True(t, next.called)
}

func TestJWTWare_QueryLookup(t *testing.T) {
	next := &nextRecorder{}
	handler := jwtware.New(jwtware.Config{
		TokenValidator: newValidator(),
		TokenLookup:    "header:Authorization,query:token",
	})(next.handler)

	ctx := router.NewMockContext()
	ctx.QueriesM["token"] = "doctor-token"
	ctx.On("GetString", "Authorization", "").Return("")
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	require.NoError(t, handler(ctx))
	assert.True(t, next.called)
}

func TestJWTWare_FilterSkipsValidation(t *testing.T) {
	next := &nextRecorder{}
	handler := jwtware.New(jwtware.Config{
		TokenValidator: newValidator(),
		Filter: func(ctx router.Context) bool {
			return true
		},
	})(next.handler)

	ctx := router.NewMockContext()

	require.NoError(t, handler(ctx))
	assert.True(t, next.called)
	ctx.AssertNotCalled(t, "GetString", "Authorization", "")
}

func TestJWTWare_ValidationListenerCanReject(t *testing.T) {
	next := &nextRecorder{}
	listenerErr := errors.New("session revoked")
	var got error

	handler := jwtware.New(jwtware.Config{
		TokenValidator: newValidator(),
		ValidationListeners: []jwtware.ValidationListener{
			func(ctx router.Context, claims jwtware.AuthClaims) error {
				return listenerErr
			},
		},
		ErrorHandler: func(ctx router.Context, err error) error {
			got = err
			return nil
		},
	})(next.handler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer doctor-token")

	require.NoError(t, handler(ctx))
	assert.False(t, next.called)
	assert.ErrorIs(t, got, listenerErr)
}

func TestJWTWare_ContextEnricher(t *testing.T) {
	next := &nextRecorder{}
	var seen string
	handler := jwtware.New(jwtware.Config{
		TokenValidator: newValidator(),
		ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
			seen = claims.UserID()
			return c
		},
	})(next.handler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer doctor-token")
	ctx.On("Locals", "user", mock.Anything).Return(nil)
	ctx.On("Context").Return(context.Background())
	ctx.On("SetContext", mock.Anything).Return().Maybe()

	require.NoError(t, handler(ctx))
	assert.True(t, next.called)
	assert.Equal(t, "d-1", seen)
}

func TestGetDefaultConfigPanicsWithoutValidator(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.GetDefaultConfig(jwtware.Config{})
	})
}

func TestGetExtractorsSkipsUnknownSources(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization,param:jwt,bogus,cookie:session")
	assert.Len(t, extractors, 2)
}
