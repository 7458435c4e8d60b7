package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	hospital "github.com/goliatone/go-hospital"
	"github.com/goliatone/go-hospital/activitymap"
	"github.com/goliatone/go-hospital/config"
	"github.com/goliatone/go-hospital/notifier"
	"github.com/goliatone/go-hospital/social"
	"github.com/goliatone/go-hospital/social/providers/google"
)

type App struct {
	config   *config.Config
	bunDB    *bun.DB
	repo     hospital.RepositoryManager
	sessions *hospital.SessionIssuer
	deps     hospital.HandlerDeps
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("hospital"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := config.Load()
	if err != nil {
		lgr.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if cfg.Env == "development" {
		redacted := *cfg
		redacted.Auth.SigningKey = "***"
		redacted.Mail.Password = "***"
		redacted.Google.ClientSecret = "***"
		redacted.Google.StateSecret = "***"
		fmt.Println(print.MaybePrettyJSON(redacted))
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Error("failed to initialize persistence", "error", err)
		os.Exit(1)
	}

	if err := WithServices(ctx, app); err != nil {
		lgr.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	WithHTTPServer(app)
	AccountRoutes(app)
	GoogleRoutes(app)

	go func() {
		lgr.Info("server listening", "address", cfg.Server.Address, "env", cfg.Env)
		if err := app.srv.Serve(cfg.Server.Address); err != nil {
			lgr.Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		lgr.Error("server shutdown failed", "error", err)
	}

	if err := app.bunDB.Close(); err != nil {
		lgr.Error("database close failed", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.config.Database.DSN)
	if err != nil {
		return err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if app.config.Database.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		return err
	}

	if err := hospital.Migrate(ctx, db); err != nil {
		return err
	}

	app.bunDB = db
	app.repo = hospital.NewRepositoryManager(db)

	return app.repo.Validate()
}

func WithServices(ctx context.Context, app *App) error {
	cfg := app.config

	tokens := hospital.NewTokenService(
		[]byte(cfg.Auth.SigningKey),
		cfg.Auth.Issuer,
		cfg.Auth.Audience,
		app.GetLogger("auth:tokens"),
	)

	app.sessions = hospital.NewSessionIssuer(tokens, hospital.SessionTTLs{
		Default: cfg.Auth.SessionTTL,
		Google:  cfg.Auth.GoogleSessionTTL,
	})

	mailer, err := notifier.Select(cfg.Mail.Driver, notifier.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		FromName: cfg.Mail.FromName,
	}, app.GetLogger("mail"))
	if err != nil {
		return err
	}

	activity := LogActivitySink(app.GetLogger("activity"))

	issuer := hospital.NewCodeIssuer(app.repo.Accounts(), mailer, hospital.CodeConfig{
		VerificationOTPTTL:        cfg.Codes.VerificationOTPTTL,
		ActivationOTPTTL:          cfg.Codes.ActivationOTPTTL,
		ActivationTokenTTL:        cfg.Codes.ActivationTokenTTL,
		OTPDeliveryTimeout:        cfg.Codes.OTPDeliveryTimeout,
		ActivationDeliveryTimeout: cfg.Codes.ActivationDeliveryTimeout,
		ActivationURL:             cfg.Frontend.ActivationURL(),
	},
		hospital.WithCodeIssuerLogger(app.GetLogger("codes")),
		hospital.WithCodeIssuerActivitySink(activity),
	)

	app.deps = hospital.HandlerDeps{
		Repo:     app.repo,
		Issuer:   issuer,
		Sessions: app.sessions,
		Notifier: mailer,
		Files:    hospital.LocalFileStore{},
		Activity: activity,
		Logger:   app.GetLogger("accounts"),
	}

	return nil
}

func WithHTTPServer(app *App) {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: app.config.Env == "development",
			StrictRouting:     false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, router.ViewContext{
			"status": "ok",
			"env":    app.config.Env,
		})
	}).SetName("health")

	app.srv = srv
}

func AccountRoutes(app *App) {
	hospital.RegisterAccountRoutes(
		app.srv.Router().Group("/api/users"),
		app.deps,
		hospital.WithControllerLogger(app.GetLogger("http:users")),
		hospital.WithControllerDebug(app.config.Env == "development"),
		hospital.WithAuthGate(hospital.NewAuthGate(app.sessions)),
	)
}

func GoogleRoutes(app *App) {
	gcfg := app.config.Google
	if !gcfg.Enabled() {
		app.GetLogger("auth:google").Warn("google client credentials missing, google login disabled")
		return
	}

	stateSecret := gcfg.StateSecret
	if stateSecret == "" {
		stateSecret = app.config.Auth.SigningKey
	}

	provider := google.New(google.Config{
		ClientID:     gcfg.ClientID,
		ClientSecret: gcfg.ClientSecret,
		CallbackURL:  gcfg.CallbackURL,
	})

	controller := social.NewHTTPController(
		provider,
		social.NewEncryptedStateManager(stateSecret, social.DefaultStateTTL),
		hospital.NewGoogleSignInHandler(app.deps),
		social.HTTPConfig{
			FrontendURL:   app.config.Frontend.BaseURL,
			LoginPath:     app.config.Frontend.LoginPath,
			DashboardPath: app.config.Frontend.DashboardPath,
			Logger:        app.GetLogger("auth:google"),
		},
	)

	controller.RegisterRoutes(app.srv.Router().Group("/api/auth"))
}

// LogActivitySink writes lifecycle events to logger
func LogActivitySink(logger glog.Logger) hospital.ActivitySink {
	return hospital.ActivitySinkFunc(func(ctx context.Context, event hospital.ActivityEvent) error {
		logger.Info("activity", activitymap.Normalize(event).Fields()...)
		return nil
	})
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
