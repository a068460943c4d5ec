package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rezkam/parish/internal/application/listing"
	"github.com/rezkam/parish/internal/config"
	httpserver "github.com/rezkam/parish/internal/infrastructure/http"
	"github.com/rezkam/parish/internal/infrastructure/http/handler"
	"github.com/rezkam/parish/internal/infrastructure/observability"
	"github.com/rezkam/parish/internal/listquery"
)

func main() {
	if err := run(); err != nil {
		// slog might not be initialized if config fails
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServerConfig(config.DefaultEnvFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Root context for all normal operations, cancelled on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Configuration via OTEL_* env vars (endpoint, headers, resource attributes)
	providers, err := observability.Init(ctx, observability.Config{
		Enabled:     cfg.Observability.OTelEnabled,
		ServiceName: cfg.Observability.ServiceName,
		Level:       cfg.SlogLevel(),
	})
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer func() {
		// Use a timeout to prevent hanging if collector is unreachable
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to shutdown observability providers: %v\n", err)
		}
	}()
	slog.SetDefault(providers.Logger)

	slog.InfoContext(ctx, "starting parish service", "driver", cfg.Database.Driver)

	store, err := openBackend(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open %s backend: %w", cfg.Database.Driver, err)
	}
	slog.InfoContext(ctx, "storage initialized",
		"driver", cfg.Database.Driver,
		"dsn", maskDSN(cfg.Database.Driver, cfg.Database.DSN))

	catalog := listing.DefaultCatalog()
	if cfg.Listing.CatalogPath != "" {
		if catalog, err = listing.LoadCatalog(cfg.Listing.CatalogPath); err != nil {
			_ = store.close(ctx)
			return err
		}
	}
	slog.InfoContext(ctx, "resource catalog loaded", "resources", catalog.Names())

	engine := listquery.NewEngine(store.client,
		listquery.WithTracerProvider(providers.Tracer),
		listquery.WithMeterProvider(providers.Meter),
	)
	svc := listing.NewService(engine, catalog, listing.Config{
		DefaultPageSize: cfg.Listing.DefaultPageSize,
		MaxPageSize:     cfg.Listing.MaxPageSize,
		QueryTimeout:    cfg.Listing.QueryTimeout,
	})

	server := httpserver.NewAPIServer(handler.NewRouter(svc), httpserver.ServerConfig{
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MaxQueryBytes:     cfg.HTTP.MaxQueryBytes,
	})

	errResult := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errResult <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	// Orchestrate graceful shutdown or handle fatal errors
	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down")

		// Fresh context: ctx is already cancelled
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		newCleanup(shutdownCtx, server, store.close)()
		return nil
	case err := <-errResult:
		newCleanup(ctx, nil, store.close)()
		return err
	}
}

// maskDSN masks the password in a connection string for logging.
func maskDSN(driver, dsn string) string {
	if driver == config.DriverMySQL {
		mc, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "[REDACTED]"
		}
		if mc.Passwd != "" {
			mc.Passwd = "xxxxxx"
		}
		return mc.FormatDSN()
	}
	return maskPassword(dsn)
}

// maskPassword masks the password in a URL connection string for logging.
func maskPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		// If parsing fails, fall back to full redaction to be safe
		return "[REDACTED]"
	}
	// Check if there is a user info part
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			username := u.User.Username()
			u.User = url.UserPassword(username, "xxxxxx")
		}
	}
	return u.String()
}
