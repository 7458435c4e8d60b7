package social

import (
	"context"

	"golang.org/x/oauth2"
)

// Provider is an OAuth2 identity provider used for sign in
type Provider interface {
	// Name returns the provider identifier, e.g. "google"
	Name() string

	// AuthCodeURL returns the consent page URL carrying state
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for an access token
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// UserInfo fetches the profile bound to token
	UserInfo(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// Profile is the normalized identity returned by a provider
type Profile struct {
	ProviderUserID string
	Provider       string
	Email          string
	EmailVerified  bool
	Name           string
	FirstName      string
	LastName       string
	AvatarURL      string
	Raw            map[string]any
}

// DisplayName returns Name, or the given and family names joined
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.LastName
	}
}
