package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/goliatone/go-hospital/social"
)

func TestProviderAuthCodeURL(t *testing.T) {
	provider := New(Config{
		ClientID:    "client-id",
		CallbackURL: "https://example.com/api/auth/google/callback",
	})

	authURL := provider.AuthCodeURL("state-token")

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", parsed.Host)

	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "https://example.com/api/auth/google/callback", query.Get("redirect_uri"))
	assert.Equal(t, "state-token", query.Get("state"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "select_account", query.Get("prompt"))

	scope := query.Get("scope")
	assert.Contains(t, scope, "email")
	assert.Contains(t, scope, "profile")
}

func newGoogleServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			values, err := url.ParseQuery(string(body))
			assert.NoError(t, err)

			w.Header().Set("Content-Type", "application/json")
			if values.Get("code") != "auth-code" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":             "invalid_grant",
					"error_description": "Bad Request",
				})
				return
			}

			assert.Equal(t, "authorization_code", values.Get("grant_type"))
			assert.Equal(t, "client-id", values.Get("client_id"))
			assert.Equal(t, "client-secret", values.Get("client_secret"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "access-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case "/userinfo":
			w.Header().Set("Content-Type", "application/json")
			if r.Header.Get("Authorization") != "Bearer access-token" {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_token"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"sub":            "google-1",
				"email":          "asha@example.com",
				"email_verified": true,
				"name":           "Asha Rao",
				"given_name":     "Asha",
				"family_name":    "Rao",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestProvider(server *httptest.Server) *Provider {
	return New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "https://example.com/api/auth/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   server.URL + "/auth",
			TokenURL:  server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: server.URL + "/userinfo",
		HTTPClient:  server.Client(),
	})
}

func TestProviderExchangeAndUserInfo(t *testing.T) {
	server := newGoogleServer(t)
	defer server.Close()

	provider := newTestProvider(server)

	token, err := provider.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "access-token", token.AccessToken)

	profile, err := provider.UserInfo(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "google", profile.Provider)
	assert.Equal(t, "google-1", profile.ProviderUserID)
	assert.Equal(t, "asha@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "Asha Rao", profile.DisplayName())
}

func TestProviderExchangeFailure(t *testing.T) {
	server := newGoogleServer(t)
	defer server.Close()

	_, err := newTestProvider(server).Exchange(context.Background(), "wrong-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
	assert.True(t, hasTextCode(err, social.TextCodeTokenExchangeFail))
}

func TestProviderUserInfoFailure(t *testing.T) {
	server := newGoogleServer(t)
	defer server.Close()

	_, err := newTestProvider(server).UserInfo(context.Background(), &oauth2.Token{
		AccessToken: "stale",
		TokenType:   "Bearer",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_token")
	assert.True(t, hasTextCode(err, social.TextCodeUserInfoFail))
}

func hasTextCode(err error, code string) bool {
	var richErr *errors.Error
	return errors.As(err, &richErr) && richErr.TextCode == code
}
