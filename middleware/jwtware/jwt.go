package jwtware

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup       = "header:" + router.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
	ErrRoleNotAllowed        = errors.New("access denied: role not allowed")
)

// TokenValidator validates a raw bearer token. It mirrors the session
// issuer so the middleware does not import the account package.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// AuthClaims is the subset of session claims the gate inspects
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	HasRole(role string) bool
}

// ValidationListener is invoked after a token has been validated but before authorization checks.
type ValidationListener func(ctx router.Context, claims AuthClaims) error

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	ContextKey     string
	TokenLookup    string
	AuthScheme     string
	// TokenValidator is required for token validation
	TokenValidator TokenValidator

	// AllowedRoles restricts the route to the listed roles. Empty allows any
	// authenticated role.
	AllowedRoles []string
	// RoleChecker replaces the default AllowedRoles membership test
	RoleChecker func(claims AuthClaims, allowed []string) bool

	// ContextEnricher propagates claims to the standard Go context
	ContextEnricher func(c context.Context, claims AuthClaims) context.Context

	ValidationListeners []ValidationListener
}

// New returns the bearer token gate. Claims are stored in locals under
// ContextKey before the next handler runs.
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return proceed(ctx, next)
			}

			raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.TokenValidator.Validate(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := cfg.runValidationListeners(ctx, claims); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := performAuthorizationChecks(claims, cfg); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, claims)

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), claims))
			}

			if cfg.SuccessHandler != nil {
				return cfg.SuccessHandler(ctx)
			}
			return proceed(ctx, next)
		}
	}
}

func proceed(ctx router.Context, next router.HandlerFunc) error {
	if next != nil {
		return next(ctx)
	}
	return ctx.Next()
}

func performAuthorizationChecks(claims AuthClaims, cfg Config) error {
	if len(cfg.AllowedRoles) == 0 && cfg.RoleChecker == nil {
		return nil
	}

	if cfg.RoleChecker != nil {
		if !cfg.RoleChecker(claims, cfg.AllowedRoles) {
			return ErrRoleNotAllowed
		}
		return nil
	}

	if !slices.ContainsFunc(cfg.AllowedRoles, claims.HasRole) {
		return ErrRoleNotAllowed
	}

	return nil
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []JWTExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

// DefaultErrorHandler answers with the JSON envelope used by the account routes
func DefaultErrorHandler(c router.Context, err error) error {
	switch {
	case errors.Is(err, ErrRoleNotAllowed):
		return c.JSON(router.StatusForbidden, router.ViewContext{
			"success": false,
			"message": "Forbidden",
		})
	case errors.Is(err, ErrJWTMissingOrMalformed):
		return c.JSON(router.StatusUnauthorized, router.ViewContext{
			"success": false,
			"message": "No token, authorization denied",
		})
	default:
		return c.JSON(router.StatusUnauthorized, router.ViewContext{
			"success": false,
			"message": "Invalid or expired token",
		})
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	if cfg.TokenValidator == nil {
		panic("HOSPITAL: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(ctx router.Context, claims AuthClaims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, claims); err != nil {
			return err
		}
	}
	return nil
}

// GetExtractors parses a lookup such as "header:Authorization,query:token"
func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c router.Context) (string, error)

func jwtFromHeader(header string, authScheme string) JWTExtractor {
	authScheme = strings.TrimSpace(authScheme)
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l == 0 {
			return "", ErrJWTMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

func jwtFromQuery(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

func jwtFromCookie(name string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
