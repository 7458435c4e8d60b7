// Package config loads the service configuration from defaults, an optional
// JSON file and HOSPITAL_ prefixed environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix   = "HOSPITAL_"
	EnvFile     = "HOSPITAL_CONFIG"
	DefaultFile = "config/app.json"
)

// ErrMissingSigningKey is returned when auth.signing_key is empty
var ErrMissingSigningKey = goerrors.New("auth.signing_key is required", goerrors.CategoryValidation).
	WithTextCode("MISSING_SIGNING_KEY")

type Config struct {
	Env      string   `koanf:"env"`
	Server   Server   `koanf:"server"`
	Database Database `koanf:"database"`
	Auth     Auth     `koanf:"auth"`
	Codes    Codes    `koanf:"codes"`
	Mail     Mail     `koanf:"mail"`
	Google   Google   `koanf:"google"`
	Frontend Frontend `koanf:"frontend"`
}

type Server struct {
	Address string `koanf:"address"`
}

type Database struct {
	DSN   string `koanf:"dsn"`
	Debug bool   `koanf:"debug"`
}

type Auth struct {
	SigningKey       string        `koanf:"signing_key"`
	Issuer           string        `koanf:"issuer"`
	Audience         []string      `koanf:"audience"`
	SessionTTL       time.Duration `koanf:"session_ttl"`
	GoogleSessionTTL time.Duration `koanf:"google_session_ttl"`
}

type Codes struct {
	VerificationOTPTTL        time.Duration `koanf:"verification_otp_ttl"`
	ActivationOTPTTL          time.Duration `koanf:"activation_otp_ttl"`
	ActivationTokenTTL        time.Duration `koanf:"activation_token_ttl"`
	OTPDeliveryTimeout        time.Duration `koanf:"otp_delivery_timeout"`
	ActivationDeliveryTimeout time.Duration `koanf:"activation_delivery_timeout"`
}

type Mail struct {
	// Driver is "smtp" or "log"
	Driver   string `koanf:"driver"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	FromName string `koanf:"from_name"`
}

type Google struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	CallbackURL  string `koanf:"callback_url"`
	StateSecret  string `koanf:"state_secret"`
}

// Enabled reports whether Google login can be offered
func (g Google) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type Frontend struct {
	BaseURL       string `koanf:"base_url"`
	LoginPath     string `koanf:"login_path"`
	DashboardPath string `koanf:"dashboard_path"`
	ActivatePath  string `koanf:"activate_path"`
}

// ActivationURL is the page activation links point at
func (f Frontend) ActivationURL() string {
	return strings.TrimRight(f.BaseURL, "/") + f.ActivatePath
}

// Defaults returns the baseline values, keyed by koanf path
func Defaults() map[string]any {
	return map[string]any{
		"env":                               "development",
		"server.address":                    ":5000",
		"database.dsn":                      "file:hospital.db?cache=shared",
		"database.debug":                    false,
		"auth.issuer":                       "go-hospital",
		"auth.audience":                     []string{"hospital"},
		"auth.session_ttl":                  "168h",
		"auth.google_session_ttl":           "24h",
		"codes.verification_otp_ttl":        "5m",
		"codes.activation_otp_ttl":          "10m",
		"codes.activation_token_ttl":        "24h",
		"codes.otp_delivery_timeout":        "25s",
		"codes.activation_delivery_timeout": "10s",
		"mail.driver":                       "smtp",
		"mail.host":                         "smtp.gmail.com",
		"mail.port":                         587,
		"mail.from_name":                    "Samyak Hospital",
		"google.callback_url":               "http://localhost:5000/api/auth/google/callback",
		"frontend.base_url":                 "http://127.0.0.1:5501",
		"frontend.login_path":               "/hospital-management-system/frontend/login.html",
		"frontend.dashboard_path":           "/hospital-management-system/frontend/patient-dashboard.html",
		"frontend.activate_path":            "/activate.html",
	}
}

// Option customizes Load
type Option func(*loader)

type loader struct {
	path     string
	required bool
}

// WithFile reads path instead of HOSPITAL_CONFIG or the default file.
// An explicit file must exist.
func WithFile(path string) Option {
	return func(l *loader) {
		l.path = path
		l.required = true
	}
}

// Load builds the Config
func Load(opts ...Option) (*Config, error) {
	l := &loader{}
	for _, opt := range opts {
		opt(l)
	}

	if l.path == "" {
		if p := os.Getenv(EnvFile); p != "" {
			l.path = p
			l.required = true
		} else {
			l.path = DefaultFile
		}
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load config defaults")
	}

	if err := k.Load(file.Provider(l.path), json.Parser()); err != nil {
		if l.required || !errors.Is(err, fs.ErrNotExist) {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, fmt.Sprintf("failed to load config file %s", l.path))
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load environment")
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings required at startup
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		return ErrMissingSigningKey
	}
	if c.Mail.Driver != "smtp" && c.Mail.Driver != "log" {
		return goerrors.New(fmt.Sprintf("unknown mail.driver %q", c.Mail.Driver), goerrors.CategoryValidation)
	}
	return nil
}

// envKey maps HOSPITAL_AUTH__SIGNING_KEY to auth.signing_key
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}
