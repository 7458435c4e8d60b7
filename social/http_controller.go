package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	hospital "github.com/goliatone/go-hospital"
)

const (
	DefaultFrontendURL   = "http://127.0.0.1:5501"
	DefaultLoginPath     = "/hospital-management-system/frontend/login.html"
	DefaultDashboardPath = "/hospital-management-system/frontend/patient-dashboard.html"
)

// Redirect error codes understood by the login page
const (
	RedirectNoUserFound   = "no_user_found"
	RedirectNotPatient    = "not_patient"
	RedirectNotRegistered = "not_registered"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// SignInCommand resolves a verified provider email to a patient session
type SignInCommand interface {
	Execute(ctx context.Context, msg hospital.GoogleSignInMessage) error
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// FrontendURL is the origin serving the static pages
	FrontendURL string

	LoginPath     string
	DashboardPath string

	Logger hospital.Logger
}

// HTTPController runs the Google authorization code flow and hands the
// browser back to the frontend.
type HTTPController struct {
	provider Provider
	states   StateManager
	signIn   SignInCommand
	config   HTTPConfig
	logger   hospital.Logger
}

// NewHTTPController creates a new social auth HTTP controller.
func NewHTTPController(provider Provider, states StateManager, signIn SignInCommand, cfg HTTPConfig) *HTTPController {
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = DefaultFrontendURL
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.DashboardPath == "" {
		cfg.DashboardPath = DefaultDashboardPath
	}

	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	return &HTTPController{
		provider: provider,
		states:   states,
		signIn:   signIn,
		config:   cfg,
		logger:   logger,
	}
}

// RegisterRoutes registers the begin and callback routes under group.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	name := c.provider.Name()
	group.Get("/"+name, c.BeginAuth).SetName("auth." + name)
	group.Get("/"+name+"/callback", c.Callback).SetName("auth." + name + ".callback")
}

// BeginAuth redirects the browser to the provider consent page.
func (c *HTTPController) BeginAuth(ctx router.Context) error {
	state, err := c.states.Encode(&OAuthState{Provider: c.provider.Name()})
	if err != nil {
		c.logger.Error("failed to encode oauth state", "error", err)
		return c.loginError(ctx, RedirectNotRegistered)
	}

	return ctx.Redirect(c.provider.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback.
func (c *HTTPController) Callback(ctx router.Context) error {
	if errCode := ctx.Query("error"); errCode != "" {
		c.logger.Warn("oauth provider returned error", "provider", c.provider.Name(), "error", errCode)
		return c.loginError(ctx, RedirectNotRegistered)
	}

	code := ctx.Query("code")
	rawState := ctx.Query("state")
	if code == "" || rawState == "" {
		return c.loginError(ctx, RedirectNotRegistered)
	}

	state, err := c.states.Decode(rawState)
	if err != nil || state.Provider != c.provider.Name() {
		c.logger.Warn("oauth state rejected", "provider", c.provider.Name(), "error", err)
		return c.loginError(ctx, RedirectNotRegistered)
	}

	reqCtx := ctx.Context()

	token, err := c.provider.Exchange(reqCtx, code)
	if err != nil {
		c.logger.Error("oauth code exchange failed", "provider", c.provider.Name(), "error", err)
		return c.loginError(ctx, RedirectNotRegistered)
	}

	profile, err := c.provider.UserInfo(reqCtx, token)
	if err != nil {
		c.logger.Error("oauth user info failed", "provider", c.provider.Name(), "error", err)
		return c.loginError(ctx, RedirectNotRegistered)
	}

	if !profile.EmailVerified {
		c.logger.Warn("oauth profile rejected", "provider", c.provider.Name(), "email", profile.Email, "error", ErrEmailNotVerified)
		return c.loginError(ctx, RedirectNotRegistered)
	}

	var result *hospital.GoogleSignInResponse
	err = c.signIn.Execute(reqCtx, hospital.GoogleSignInMessage{
		Email: profile.Email,
		Name:  profile.DisplayName(),
		OnResponse: func(res *hospital.GoogleSignInResponse) {
			result = res
		},
	})

	switch {
	case goerrors.Is(err, hospital.ErrSocialNotRegistered):
		return c.redirectNoUser(ctx, profile)
	case goerrors.Is(err, hospital.ErrSocialNotPatient):
		return c.loginError(ctx, RedirectNotPatient)
	case err != nil:
		c.logger.Error("google sign in failed", "email", profile.Email, "error", err)
		return c.loginError(ctx, RedirectNotRegistered)
	case result == nil || result.Session == nil:
		return c.loginError(ctx, RedirectNotRegistered)
	}

	return c.redirectDashboard(ctx, result)
}

func (c *HTTPController) redirectNoUser(ctx router.Context, profile *Profile) error {
	params := url.Values{}
	params.Set("error", RedirectNoUserFound)
	params.Set("google", "true")
	if profile.Email != "" {
		params.Set("email", profile.Email)
	}
	if name := profile.DisplayName(); name != "" {
		params.Set("name", name)
	}
	return ctx.Redirect(c.config.FrontendURL+c.config.LoginPath+"?"+params.Encode(), http.StatusTemporaryRedirect)
}

func (c *HTTPController) redirectDashboard(ctx router.Context, result *hospital.GoogleSignInResponse) error {
	account := result.Account
	user := account.Summary()
	user["name"] = account.FullName()

	payload, err := json.Marshal(user)
	if err != nil {
		c.logger.Error("failed to encode session user", "error", err)
		return c.loginError(ctx, RedirectNotRegistered)
	}

	target := c.config.FrontendURL + c.config.DashboardPath +
		"?token=" + url.QueryEscape(result.Session.Token) +
		"&user=" + url.QueryEscape(string(payload))

	return ctx.Redirect(target, http.StatusTemporaryRedirect)
}

func (c *HTTPController) loginError(ctx router.Context, code string) error {
	target := appendQueryParam(c.config.FrontendURL+c.config.LoginPath, "error", code)
	return ctx.Redirect(target, http.StatusTemporaryRedirect)
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
