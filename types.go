package hospital

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes bound into a session
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// PasswordHasher hashes and verifies local credentials
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Notifier delivers transactional email. Implementations must honor ctx
// cancellation so callers can bound delivery time.
type Notifier interface {
	SendOTP(ctx context.Context, to, code string, ttl time.Duration) error
	SendActivationLink(ctx context.Context, to, link string, ttl time.Duration) error
	SendActivationConfirmation(ctx context.Context, to string) error
}

// TokenService issues and validates session credentials
type TokenService interface {
	Issue(identity Identity, ttl time.Duration) (string, time.Time, error)
	Validate(tokenString string) (AuthClaims, error)
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] HOSPITAL " + format(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] HOSPITAL " + format(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] HOSPITAL " + format(msg, args...))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] HOSPITAL " + format(msg, args...))
}

func format(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	b.WriteString("\n")
	return b.String()
}
