package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	hospital "github.com/goliatone/go-hospital"
)

// SMTPConfig holds the mail server settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From defaults to Username
	From     string
	FromName string
	Timeout  time.Duration
}

// Configured reports whether credentials are present
func (c SMTPConfig) Configured() bool {
	return strings.TrimSpace(c.Username) != "" && strings.TrimSpace(c.Password) != ""
}

// Sender delivers a composed message. *mail.Client implements it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPNotifier sends the account emails through an SMTP relay
type SMTPNotifier struct {
	config SMTPConfig
	sender Sender
	logger hospital.Logger
}

type Option func(*SMTPNotifier)

func WithLogger(logger hospital.Logger) Option {
	return func(n *SMTPNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithSender replaces the SMTP client
func WithSender(sender Sender) Option {
	return func(n *SMTPNotifier) {
		n.sender = sender
	}
}

// NewSMTPNotifier builds the notifier. Missing credentials are not an error
// here, they are logged once and every send fails with ErrMailerNotConfigured.
func NewSMTPNotifier(cfg SMTPConfig, opts ...Option) (*SMTPNotifier, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultSMTPPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FromName == "" {
		cfg.FromName = DefaultFromName
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}

	n := &SMTPNotifier{config: cfg}
	for _, opt := range opts {
		opt(n)
	}

	if n.logger == nil {
		return nil, fmt.Errorf("smtp notifier: logger is required")
	}

	if !cfg.Configured() {
		n.logger.Error("mail credentials are missing, emails will not be sent",
			"username_set", cfg.Username != "",
			"password_set", cfg.Password != "",
		)
		return n, nil
	}

	if n.sender == nil {
		client, err := mail.NewClient(cfg.Host,
			mail.WithPort(cfg.Port),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
			mail.WithTLSPortPolicy(mail.TLSMandatory),
			mail.WithTimeout(cfg.Timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("smtp notifier: %w", err)
		}
		n.sender = client
	}

	return n, nil
}

func (n *SMTPNotifier) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	msg, err := n.message(to, SubjectOTP)
	if err != nil {
		return err
	}

	if err := msg.SetBodyHTMLTemplate(mailTemplates.Lookup("otp"), otpView{
		Code:    code,
		Minutes: wholeMinutes(ttl),
	}); err != nil {
		return err
	}

	return n.send(ctx, msg, to, SubjectOTP)
}

func (n *SMTPNotifier) SendActivationLink(ctx context.Context, to, link string, ttl time.Duration) error {
	msg, err := n.message(to, SubjectActivationLink)
	if err != nil {
		return err
	}

	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Welcome to %s. Please click the link to activate your account: %s", n.config.FromName, link,
	))
	if err := msg.AddAlternativeHTMLTemplate(mailTemplates.Lookup("activation"), activationView{
		Clinic: n.config.FromName,
		Link:   link,
		Hours:  wholeHours(ttl),
	}); err != nil {
		return err
	}

	return n.send(ctx, msg, to, SubjectActivationLink)
}

func (n *SMTPNotifier) SendActivationConfirmation(ctx context.Context, to string) error {
	msg, err := n.message(to, SubjectActivationConfirmation)
	if err != nil {
		return err
	}

	msg.SetBodyString(mail.TypeTextPlain, "Account activated successfully. You may now login.")

	return n.send(ctx, msg, to, SubjectActivationConfirmation)
}

func (n *SMTPNotifier) message(to, subject string) (*mail.Msg, error) {
	if !n.config.Configured() || n.sender == nil {
		return nil, ErrMailerNotConfigured
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(n.config.FromName, n.config.From); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	if err := msg.ReplyTo(n.config.From); err != nil {
		return nil, fmt.Errorf("invalid reply-to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetGenHeader(mail.HeaderXMailer, DefaultMailer)
	msg.SetImportance(mail.ImportanceHigh)

	return msg, nil
}

func (n *SMTPNotifier) send(ctx context.Context, msg *mail.Msg, to, subject string) error {
	if err := n.sender.DialAndSendWithContext(ctx, msg); err != nil {
		n.logger.Error("email send failed", "to", to, "subject", subject, "error", err)
		return err
	}
	n.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}
