package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	hospital "github.com/goliatone/go-hospital"
)

type stubStateManager struct {
	states    map[string]*OAuthState
	lastToken string
	lastState *OAuthState
	seq       int
}

func (s *stubStateManager) Encode(state *OAuthState) (string, error) {
	if state == nil {
		return "", ErrInvalidState
	}
	if s.states == nil {
		s.states = map[string]*OAuthState{}
	}
	s.seq++
	token := fmt.Sprintf("state-%d", s.seq)
	s.states[token] = state
	s.lastToken = token
	s.lastState = state
	return token, nil
}

func (s *stubStateManager) Decode(token string) (*OAuthState, error) {
	state, ok := s.states[token]
	if !ok {
		return nil, ErrInvalidState
	}
	return state, nil
}

type stubProvider struct {
	authBase    string
	profile     *Profile
	exchangeErr error
	userInfoErr error
	lastState   string
}

func (p *stubProvider) Name() string {
	return "google"
}

func (p *stubProvider) AuthCodeURL(state string) string {
	p.lastState = state
	return p.authBase + "?state=" + url.QueryEscape(state)
}

func (p *stubProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &oauth2.Token{AccessToken: "access-token"}, nil
}

func (p *stubProvider) UserInfo(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	if p.userInfoErr != nil {
		return nil, p.userInfoErr
	}
	return p.profile, nil
}

type stubSignIn struct {
	response *hospital.GoogleSignInResponse
	err      error
	got      hospital.GoogleSignInMessage
}

func (s *stubSignIn) Execute(ctx context.Context, msg hospital.GoogleSignInMessage) error {
	s.got = msg
	if s.err != nil {
		return s.err
	}
	if msg.OnResponse != nil {
		msg.OnResponse(s.response)
	}
	return nil
}

func newCallbackContext(t *testing.T, states *stubStateManager) (*router.MockContext, *string) {
	t.Helper()

	token, err := states.Encode(&OAuthState{Provider: "google"})
	require.NoError(t, err)

	ctx := router.NewMockContext()
	ctx.QueriesM["code"] = "auth-code"
	ctx.QueriesM["state"] = token
	ctx.On("Context").Return(context.Background())

	var redirectURL string
	ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
		redirectURL = args.String(0)
	}).Return(nil)

	return ctx, &redirectURL
}

func googleProfile() *Profile {
	return &Profile{
		Provider:      "google",
		Email:         "asha@example.com",
		EmailVerified: true,
		Name:          "Asha Rao",
	}
}

func TestHTTPControllerBeginAuthRedirects(t *testing.T) {
	states := &stubStateManager{}
	provider := &stubProvider{authBase: "https://accounts.example/auth"}
	controller := NewHTTPController(provider, states, &stubSignIn{}, HTTPConfig{})

	ctx := router.NewMockContext()
	var redirectURL string
	ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
		redirectURL = args.String(0)
	}).Return(nil)

	require.NoError(t, controller.BeginAuth(ctx))
	assert.Equal(t, states.lastToken, provider.lastState)
	assert.Equal(t, "google", states.lastState.Provider)
	assert.Contains(t, redirectURL, "https://accounts.example/auth?state=")
}

func TestHTTPControllerCallbackRedirectsToDashboard(t *testing.T) {
	states := &stubStateManager{}
	account := &hospital.Account{
		ID:        uuid.New(),
		Role:      hospital.RolePatient,
		FirstName: "Asha",
		LastName:  "Rao",
		Email:     "asha@example.com",
	}
	signIn := &stubSignIn{response: &hospital.GoogleSignInResponse{
		Account: account,
		Session: &hospital.SessionObject{Token: "jwt.token.value", Account: account},
	}}
	controller := NewHTTPController(&stubProvider{profile: googleProfile()}, states, signIn, HTTPConfig{
		FrontendURL: "https://clinic.example/",
	})

	ctx, redirectURL := newCallbackContext(t, states)
	require.NoError(t, controller.Callback(ctx))

	assert.Equal(t, "asha@example.com", signIn.got.Email)
	assert.Equal(t, "Asha Rao", signIn.got.Name)

	parsed, err := url.Parse(*redirectURL)
	require.NoError(t, err)
	assert.Equal(t, "clinic.example", parsed.Host)
	assert.Equal(t, DefaultDashboardPath, parsed.Path)
	assert.Equal(t, "jwt.token.value", parsed.Query().Get("token"))

	var user map[string]any
	require.NoError(t, json.Unmarshal([]byte(parsed.Query().Get("user")), &user))
	assert.Equal(t, account.ID.String(), user["_id"])
	assert.Equal(t, "Asha", user["firstName"])
	assert.Equal(t, "Rao", user["lastName"])
	assert.Equal(t, "asha@example.com", user["email"])
	assert.Equal(t, "patient", user["role"])
	assert.Equal(t, "Asha Rao", user["name"])
}

func TestHTTPControllerCallbackUnknownEmail(t *testing.T) {
	states := &stubStateManager{}
	controller := NewHTTPController(&stubProvider{profile: googleProfile()}, states,
		&stubSignIn{err: hospital.ErrSocialNotRegistered}, HTTPConfig{})

	ctx, redirectURL := newCallbackContext(t, states)
	require.NoError(t, controller.Callback(ctx))

	parsed, err := url.Parse(*redirectURL)
	require.NoError(t, err)
	assert.Equal(t, DefaultLoginPath, parsed.Path)

	query := parsed.Query()
	assert.Equal(t, RedirectNoUserFound, query.Get("error"))
	assert.Equal(t, "true", query.Get("google"))
	assert.Equal(t, "asha@example.com", query.Get("email"))
	assert.Equal(t, "Asha Rao", query.Get("name"))
}

func TestHTTPControllerCallbackErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
		signIn   *stubSignIn
		expected string
	}{
		{
			name:     "staff account",
			provider: &stubProvider{profile: googleProfile()},
			signIn:   &stubSignIn{err: hospital.ErrSocialNotPatient},
			expected: RedirectNotPatient,
		},
		{
			name:     "exchange failure",
			provider: &stubProvider{exchangeErr: ErrTokenExchangeFailed},
			signIn:   &stubSignIn{},
			expected: RedirectNotRegistered,
		},
		{
			name:     "user info failure",
			provider: &stubProvider{userInfoErr: ErrUserInfoFailed},
			signIn:   &stubSignIn{},
			expected: RedirectNotRegistered,
		},
		{
			name:     "store failure",
			provider: &stubProvider{profile: googleProfile()},
			signIn:   &stubSignIn{err: errors.New("database is locked")},
			expected: RedirectNotRegistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			states := &stubStateManager{}
			controller := NewHTTPController(tt.provider, states, tt.signIn, HTTPConfig{})

			ctx, redirectURL := newCallbackContext(t, states)
			require.NoError(t, controller.Callback(ctx))

			parsed, err := url.Parse(*redirectURL)
			require.NoError(t, err)
			assert.Equal(t, DefaultLoginPath, parsed.Path)
			assert.Equal(t, tt.expected, parsed.Query().Get("error"))
		})
	}
}

func TestHTTPControllerCallbackRejectsUnverifiedEmail(t *testing.T) {
	profile := googleProfile()
	profile.EmailVerified = false

	account := &hospital.Account{ID: uuid.New(), Role: hospital.RolePatient, Email: profile.Email}
	signIn := &stubSignIn{response: &hospital.GoogleSignInResponse{
		Account: account,
		Session: &hospital.SessionObject{Token: "jwt.token.value", Account: account},
	}}

	states := &stubStateManager{}
	controller := NewHTTPController(&stubProvider{profile: profile}, states, signIn, HTTPConfig{})

	ctx, redirectURL := newCallbackContext(t, states)
	require.NoError(t, controller.Callback(ctx))

	parsed, err := url.Parse(*redirectURL)
	require.NoError(t, err)
	assert.Equal(t, DefaultLoginPath, parsed.Path)
	assert.Equal(t, RedirectNotRegistered, parsed.Query().Get("error"))
	assert.NotContains(t, *redirectURL, "token=")
	assert.Empty(t, signIn.got.Email)
}

func TestHTTPControllerCallbackRejectsUnknownState(t *testing.T) {
	signIn := &stubSignIn{}
	controller := NewHTTPController(&stubProvider{profile: googleProfile()}, &stubStateManager{}, signIn, HTTPConfig{})

	ctx := router.NewMockContext()
	ctx.QueriesM["code"] = "auth-code"
	ctx.QueriesM["state"] = "forged"

	var redirectURL string
	ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
		redirectURL = args.String(0)
	}).Return(nil)

	require.NoError(t, controller.Callback(ctx))
	assert.Contains(t, redirectURL, "error="+RedirectNotRegistered)
	assert.Empty(t, signIn.got.Email)
}

func TestHTTPControllerCallbackProviderDenied(t *testing.T) {
	controller := NewHTTPController(&stubProvider{}, &stubStateManager{}, &stubSignIn{}, HTTPConfig{})

	ctx := router.NewMockContext()
	ctx.QueriesM["error"] = "access_denied"

	var redirectURL string
	ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
		redirectURL = args.String(0)
	}).Return(nil)

	require.NoError(t, controller.Callback(ctx))
	assert.Equal(t, DefaultFrontendURL+DefaultLoginPath+"?error="+RedirectNotRegistered, redirectURL)
}

func TestAppendQueryParam(t *testing.T) {
	assert.Equal(t, "/login?error=x", appendQueryParam("/login", "error", "x"))
	assert.Equal(t, "/login?a=1&error=x", appendQueryParam("/login?a=1", "error", "x"))
	assert.Equal(t, "", appendQueryParam("", "error", "x"))
}
