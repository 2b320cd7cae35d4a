package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/credvault/credvault/pkg/audit"
	"github.com/credvault/credvault/pkg/config"
	"github.com/credvault/credvault/pkg/db"
	"github.com/credvault/credvault/pkg/envelope"
	"github.com/credvault/credvault/pkg/notify"
	"github.com/credvault/credvault/pkg/server"
	"github.com/credvault/credvault/pkg/server/endpoints"
	gormstore "github.com/credvault/credvault/pkg/server/store/gorm"
	"github.com/credvault/credvault/pkg/vault"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if p, err := strconv.Atoi(defaultPort()); err == nil {
		return p
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the credvault application server",
	Long: `Run the credvault application server.

The server requires the environment variables CREDVAULT_SECRET_KEY and
DATABASE_URL. Database migrations are run on startup unless --no-migrate
is given. The configuration file is watched and list limits, throttling
and trusted proxies are applied without a restart.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Reload()
		if err != nil {
			fail("Invalid configuration: %v", err)
		}
		setupLogging(cfg)

		secret := cfg.SecretKey()
		if secret == "" {
			fail("%s environment variable is required", config.SecretKeyEnv)
		}
		if db.URL() == "" {
			fail("DATABASE_URL environment variable is required")
		}

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			slog.Info("running database migrations")
			if err := runMigrations(); err != nil {
				fail("Migration failed: %v", err)
			}
		}

		sealer, err := envelope.NewEnvelope(envelope.DeriveKey(secret))
		if err != nil {
			fail("Unable to initiate envelope: %v", err)
		}

		debug, _ := cmd.Flags().GetBool("debug-sql")
		database, err := db.Connect(db.Config{Debug: debug || cfg.LogLevel == "debug"})
		if err != nil {
			fail("Unable to connect to DB: %v", err)
		}

		defer func() { _ = audit.Close() }()

		stores := vault.Stores{
			Credentials: gormstore.NewCredentialStore(database),
			Services:    gormstore.NewServiceStore(database),
			Tags:        gormstore.NewTagStore(database),
			Users:       gormstore.NewUserStore(database),
			AccessLogs:  gormstore.NewAccessLogStore(database),
		}

		dispatcher := notify.NewDispatcher(stores.AccessLogs, newSink(cfg), notify.Options{
			Workers:    cfg.NotifyWorkers,
			QueueSize:  cfg.NotifyQueueSize,
			MaxRetries: cfg.NotifyMaxRetries,
		})

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		s, err := server.NewServer(server.Deps{
			Config:   cfg,
			Secret:   secret,
			Stores:   stores,
			Health:   gormstore.NewHealthStore(database),
			Sealer:   sealer,
			Notifier: dispatcher,
		}, host, port)
		if err != nil {
			fail("Unable to create server: %v", err)
		}
		endpoints.RegisterAll(s)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			if err := config.Watch(ctx, cfg.ConfigFilePath(), s.ApplyConfig); err != nil {
				slog.Warn("config watch disabled", "error", err)
			}
		}()

		errCh := make(chan error, 1)
		go func() {
			slog.Info("server listening", "address", host+":"+port)
			errCh <- s.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				fail("Server failed: %v", err)
			}
		case <-ctx.Done():
			slog.Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
		if err := dispatcher.Close(shutdownCtx); err != nil {
			slog.Error("notification queue not drained", "error", err)
		}
		stats := dispatcher.Stats()
		slog.Info("notifications", "logged", stats.Logged, "sent", stats.Sent, "failed", stats.Failed)
	},
}

// newSink e-mails owners when SMTP is configured and logs otherwise.
func newSink(cfg *config.Config) notify.Sink {
	if cfg.SMTPHost == "" {
		return notify.NewLogSink(slog.Default())
	}
	return notify.NewSMTPSink(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword(),
		From:     cfg.SMTPFrom,
		Timeout:  cfg.SMTPTimeout(),
	})
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
	serverCmd.Flags().Bool("debug-sql", false, "log every SQL statement")
}
