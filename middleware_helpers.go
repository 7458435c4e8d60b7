package hospital

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-hospital/middleware/jwtware"
)

// sessionGateValidator exposes SessionIssuer.Validate with the jwtware claims type
type sessionGateValidator struct {
	sessions *SessionIssuer
}

func (v sessionGateValidator) Validate(token string) (jwtware.AuthClaims, error) {
	claims, err := v.sessions.Validate(token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ContextEnricherAdapter stores the account claims in the standard context
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

// hasAnyRole is the gate role check for account claims
func hasAnyRole(claims jwtware.AuthClaims, allowed []string) bool {
	if c, ok := claims.(*JWTClaims); ok {
		return c.HasAnyRole(allowed...)
	}
	for _, role := range allowed {
		if claims.HasRole(role) {
			return true
		}
	}
	return false
}

// AuthGateErrorHandler keeps the jwtware responses and tags rejected session
// tokens with the reason they failed validation.
func AuthGateErrorHandler(c router.Context, err error) error {
	if goerrors.Is(err, jwtware.ErrRoleNotAllowed) || goerrors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		return jwtware.DefaultErrorHandler(c, err)
	}

	body := router.ViewContext{
		"success": false,
		"message": "Invalid or expired token",
	}
	switch {
	case IsTokenExpiredError(err):
		body["reason"] = TextCodeTokenExpired
	case IsMalformedError(err):
		body["reason"] = TextCodeTokenMalformed
	}
	return c.JSON(router.StatusUnauthorized, body)
}

// NewAuthGate returns the bearer token middleware for the account routes.
// Passing roles restricts the route to them.
func NewAuthGate(sessions *SessionIssuer, roles ...string) router.MiddlewareFunc {
	cfg := jwtware.Config{
		ContextKey:      DefaultContextKey,
		TokenValidator:  sessionGateValidator{sessions: sessions},
		ErrorHandler:    AuthGateErrorHandler,
		AllowedRoles:    roles,
		ContextEnricher: ContextEnricherAdapter,
	}
	if len(roles) > 0 {
		cfg.RoleChecker = hasAnyRole
	}
	return jwtware.New(cfg)
}
