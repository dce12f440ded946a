package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/httpapi"
	"github.com/goliatone/go-accounts/logging"
	"github.com/goliatone/go-accounts/metrics"
	"github.com/goliatone/go-accounts/notify"
	"github.com/goliatone/go-accounts/repository"
	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"
)

// App holds the wired services of the daemon.
type App struct {
	config  *config.Config
	logger  *logging.Zap
	db      *bun.DB
	repo    *repository.Manager
	metrics *metrics.Registry

	hasher   accounts.Hasher
	codec    accounts.TokenCodec
	notifier accounts.Notifier

	auth       *accounts.Authenticator
	activation *accounts.ActivationManager
	passwords  *accounts.PasswordResetManager
	profiles   *accounts.ProfileManager
	reaper     *accounts.Reaper

	srv *fiber.App
}

func (a *App) GetLogger(name string) accounts.Logger {
	return a.logger.Named(name)
}

// activitySink counts events and writes them to the audit log.
func (a *App) activitySink() accounts.ActivitySink {
	return accounts.MultiActivitySink{
		a.metrics.ActivitySink(),
		activitymap.NewLogSink(a.GetLogger("audit")),
	}
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Println("============")
	fmt.Println(print.MaybeHighlightJSON(cfg))
	fmt.Println("============")

	lgr := logging.NewZap(logging.New(cfg.Logging.Level, cfg.Logging.Format))
	defer lgr.Sync()

	app := &App{
		config:  cfg,
		logger:  lgr,
		metrics: metrics.NewRegistry(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()

	steps := []func(context.Context, *App) error{
		WithPersistence,
		WithCredentials,
		WithNotifications,
		WithServices,
		WithReaper,
		WithHTTPServer,
	}
	for _, step := range steps {
		if err := step(ctx, app); err != nil {
			lgr.Error("startup failed", "error", err)
			os.Exit(1)
		}
	}
	defer app.db.Close()

	go func() {
		lgr.Info("http server listening", "addr", cfg.Server.Addr)
		if err := app.srv.Listen(cfg.Server.Addr); err != nil {
			lgr.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	lgr.Info("shutting down")

	if err := app.srv.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		lgr.Error("http server shutdown failed", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := repository.Open(app.config.Database.Driver, app.config.Database.DSN)
	if err != nil {
		return err
	}

	if app.config.Database.AutoMigrate {
		migrateLog := repository.WithMigrationLogger(app.GetLogger("migrations"))
		if err := repository.Migrate(ctx, db, migrateLog); err != nil {
			_ = db.Close()
			return err
		}
		if err := repository.SeedRoles(ctx, db); err != nil {
			_ = db.Close()
			return err
		}
	}

	repo := repository.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		_ = db.Close()
		return err
	}

	app.db = db
	app.repo = repo
	return nil
}

func WithCredentials(_ context.Context, app *App) error {
	switch strings.ToLower(app.config.Hasher.Algorithm) {
	case "argon2id", "argon2":
		h, err := accounts.NewArgon2Hasher(accounts.DefaultArgon2Params)
		if err != nil {
			return err
		}
		app.hasher = h
	default:
		app.hasher = accounts.NewBcryptHasher(app.config.Hasher.BcryptCost)
	}

	key, err := accounts.DecodeSigningKey(app.config.Token.Secret)
	if err != nil {
		return err
	}

	app.codec = accounts.NewJWTCodec(key).
		WithSigningMethod(app.config.Token.Algorithm).
		WithTTL(app.config.Token.TTL).
		WithIssuer(app.config.Token.Issuer).
		WithLogger(app.GetLogger("token"))

	return nil
}

func WithNotifications(_ context.Context, app *App) error {
	mail := app.config.Mail

	var mailer notify.Mailer
	if mail.Enabled {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     mail.Host,
			Port:     mail.Port,
			Username: mail.Username,
			Password: mail.Password,
			From:     mail.From,
		}).WithLogger(app.GetLogger("mail"))
	} else {
		mailer = notify.NewLogMailer(app.GetLogger("mail"))
	}

	n, err := notify.NewMailNotifier(mailer, mail.AppName)
	if err != nil {
		return err
	}
	app.notifier = n
	return nil
}

func WithServices(_ context.Context, app *App) error {
	cfg := app.config.Accounts
	sink := app.activitySink()

	role, err := accounts.ParseRole(cfg.DefaultRole)
	if err != nil {
		return err
	}

	app.auth = accounts.NewAuthenticator(app.repo.Users(), app.hasher, app.codec).
		WithLogger(app.GetLogger("auth")).
		WithActivitySink(sink)

	app.activation = accounts.NewActivationManager(app.repo, app.hasher).
		WithNotifier(app.notifier).
		WithKeyTTL(cfg.ActivationKeyTTL).
		WithDefaultRole(role).
		WithHashidIDs(cfg.HashidIDs).
		WithLogger(app.GetLogger("activation")).
		WithActivitySink(sink)

	app.passwords = accounts.NewPasswordResetManager(app.repo, app.hasher).
		WithNotifier(app.notifier).
		WithKeyTTL(cfg.ResetKeyTTL).
		WithLogger(app.GetLogger("passwords")).
		WithActivitySink(sink)

	app.profiles = accounts.NewProfileManager(app.repo.Users()).
		WithLogger(app.GetLogger("profiles")).
		WithActivitySink(sink)

	return nil
}

func WithReaper(ctx context.Context, app *App) error {
	cfg := app.config.Accounts

	schedule, err := accounts.ParseDailySchedule(cfg.ReaperSchedule, time.Local)
	if err != nil {
		return err
	}

	app.reaper = accounts.NewReaper(app.repo).
		WithGracePeriod(cfg.GracePeriod).
		WithSchedule(schedule).
		WithLogger(app.GetLogger("reaper")).
		WithActivitySink(app.activitySink())

	if !cfg.ReaperEnabled {
		app.logger.Info("reaper disabled")
		return nil
	}

	go func() {
		app.logger.Info("reaper started", "schedule", schedule.String(), "grace", cfg.GracePeriod)
		if err := app.reaper.Run(ctx); err != nil {
			app.logger.Error("reaper stopped", "error", err)
		}
	}()

	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	cfg := app.config.Server
	logger := app.GetLogger("http")

	srv := fiber.New(fiber.Config{
		AppName:               "accountsd",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          httpapi.ErrorResponse(logger),
	})

	srv.Use(app.metrics.Middleware())
	srv.Get("/metrics", adaptor.HTTPHandler(app.metrics.Handler()))

	httpapi.NewController(
		httpapi.WithRegistrar(app.activation),
		httpapi.WithPasswords(app.passwords),
		httpapi.WithProfiles(app.profiles),
		httpapi.WithAuth(app.auth),
		httpapi.WithReaper(app.reaper),
		httpapi.WithLogger(logger),
		httpapi.WithDebug(cfg.Debug),
	).Register(srv)

	app.srv = srv
	return nil
}
