package notifier

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"

	hospital "github.com/goliatone/go-hospital"
)

const (
	SubjectOTP                    = "Your OTP Verification Code"
	SubjectActivationLink         = "Activate Your Patient Account"
	SubjectActivationConfirmation = "Account Activated"

	DefaultFromName = "Samyak Hospital"
	DefaultMailer   = "Samyak Hospital System"
	DefaultSMTPPort = 587
	DefaultTimeout  = 25 * time.Second
)

const TextCodeMailerNotConfigured = "MAILER_NOT_CONFIGURED"

// ErrMailerNotConfigured is returned by every send when SMTP credentials are
// missing
var ErrMailerNotConfigured = goerrors.New("Email credentials missing on server. Please configure the mail username and password.", goerrors.CategoryOperation).
	WithTextCode(TextCodeMailerNotConfigured).
	WithCode(goerrors.CodeInternal)

var (
	_ hospital.Notifier = (*SMTPNotifier)(nil)
	_ hospital.Notifier = (*LogNotifier)(nil)
)

// LogNotifier writes messages to the logger instead of sending them. Use it
// for local development only, codes end up in the logs.
type LogNotifier struct {
	logger hospital.Logger
}

func NewLogNotifier(logger hospital.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info("mail", "to", to, "subject", SubjectOTP, "code", code, "ttl", ttl.String())
	return nil
}

func (n *LogNotifier) SendActivationLink(ctx context.Context, to, link string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info("mail", "to", to, "subject", SubjectActivationLink, "link", link, "ttl", ttl.String())
	return nil
}

func (n *LogNotifier) SendActivationConfirmation(ctx context.Context, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info("mail", "to", to, "subject", SubjectActivationConfirmation)
	return nil
}

// Select returns the notifier for driver, "log" or "smtp"
func Select(driver string, cfg SMTPConfig, logger hospital.Logger) (hospital.Notifier, error) {
	switch driver {
	case "log":
		return NewLogNotifier(logger), nil
	case "", "smtp":
		return NewSMTPNotifier(cfg, WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown mail driver %q", driver)
	}
}
