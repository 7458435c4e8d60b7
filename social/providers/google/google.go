package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/goliatone/go-hospital/social"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// Config holds Google OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	// Endpoint defaults to google.Endpoint
	Endpoint    oauth2.Endpoint
	UserInfoURL string

	HTTPClient *http.Client
}

// Configured reports whether client credentials are present
func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// DefaultScopes returns the default Google scopes.
func DefaultScopes() []string {
	return []string{"openid", "email", "profile"}
}

// Provider implements social.Provider for Google.
type Provider struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

var _ social.Provider = (*Provider)(nil)

// New creates a new Google provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.Endpoint.AuthURL == "" && cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = googleoauth.Endpoint
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       cfg.Scopes,
			Endpoint:     cfg.Endpoint,
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  client,
	}
}

// Name implements social.Provider.
func (p *Provider) Name() string {
	return "google"
}

// AuthCodeURL implements social.Provider.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange implements social.Provider.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.oauth.Exchange(p.clientContext(ctx), code)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, ErrMessage("exchange", err)).
			WithTextCode(social.TextCodeTokenExchangeFail).
			WithCode(errors.CodeUnauthorized)
	}
	if token.AccessToken == "" {
		return nil, social.ErrTokenExchangeFailed
	}
	return token, nil
}

// UserInfo implements social.Provider.
func (p *Provider) UserInfo(ctx context.Context, token *oauth2.Token) (*social.Profile, error) {
	if token == nil {
		return nil, social.ErrUserInfoFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	client := p.oauth.Client(p.clientContext(ctx), token)
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, ErrMessage("user_info", err)).
			WithTextCode(social.TextCodeUserInfoFail).
			WithCode(errors.CodeUnauthorized)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(fmt.Sprintf("google user_info failed: %s", parseGoogleError(body)), errors.CategoryAuth).
			WithTextCode(social.TextCodeUserInfoFail).
			WithCode(errors.CodeUnauthorized).
			WithMetadata(map[string]any{"status": resp.StatusCode})
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "failed to decode userinfo response").
			WithTextCode(social.TextCodeUserInfoFail)
	}

	return mapProfile(&info), nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// ErrMessage formats a provider failure for operation, surfacing the OAuth
// error code when the token endpoint returned one.
func ErrMessage(operation string, err error) string {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		if retrieve.ErrorCode != "" {
			return fmt.Sprintf("google %s failed: %s", operation, retrieve.ErrorCode)
		}
		return fmt.Sprintf("google %s failed: status %d", operation, retrieve.Response.StatusCode)
	}
	return fmt.Sprintf("google %s failed", operation)
}

type googleErrorResponse struct {
	Error string `json:"error"`
	Desc  string `json:"error_description"`
}

func parseGoogleError(body []byte) string {
	var plain googleErrorResponse
	if err := json.Unmarshal(body, &plain); err == nil && (plain.Error != "" || plain.Desc != "") {
		if plain.Desc != "" {
			return plain.Desc
		}
		return plain.Error
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "google request failed"
	}
	return msg
}
