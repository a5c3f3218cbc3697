package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/sidhant-sriv/homie-api/auth"
	"github.com/sidhant-sriv/homie-api/config"
	"github.com/sidhant-sriv/homie-api/db"
	"github.com/sidhant-sriv/homie-api/events"
	"github.com/sidhant-sriv/homie-api/logger"
	"github.com/sidhant-sriv/homie-api/media"
	"github.com/sidhant-sriv/homie-api/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLog, logCloser, err := logger.New(logger.Config{
		Level: cfg.Log.Level,
		JSON:  cfg.Log.JSON,
		Fluent: logger.FluentConfig{
			Enabled: cfg.Fluent.Enabled,
			Host:    cfg.Fluent.Host,
			Port:    cfg.Fluent.Port,
			Tag:     cfg.Fluent.Tag,
		},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	slog.SetDefault(appLog)

	os.Exit(exitCode(run(cfg, appLog), appLog, logCloser))
}

// exitCode reports the outcome of run and flushes the log sinks. os.Exit skips
// deferred calls, so the closer runs here.
func exitCode(err error, appLog *slog.Logger, logCloser io.Closer) int {
	code := 0
	if err != nil {
		appLog.Error("homie api stopped", "error", err)
		code = 1
	}
	if cerr := logCloser.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "close logger: %v\n", cerr)
	}
	return code
}

func run(cfg *config.Config, appLog *slog.Logger) error {
	appLog.Info("Starting Homie API...", "port", cfg.Server.Port, "mode", cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	DB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.MakeMigration(DB); err != nil {
		return err
	}
	created, err := db.SeedAdmin(ctx, DB, cfg.Admin.Email, cfg.Admin.Password, cfg.BcryptCost)
	if err != nil {
		return err
	}
	if created {
		appLog.Info("admin account created", "email", cfg.Admin.Email)
	}

	// Media store
	mongoClient, err := media.Connect(ctx, cfg.Media.MongoURI)
	if err != nil {
		return err
	}
	defer mongoClient.Disconnect(context.Background())

	store, err := media.NewGridFSStore(mongoClient.Database(cfg.Media.Database), cfg.Media.BaseURL, media.Transform{
		Width:   cfg.Media.Width,
		Height:  cfg.Media.Height,
		Quality: cfg.Media.Quality,
	})
	if err != nil {
		return err
	}

	// Event publisher is optional
	var publisher events.Publisher = events.Nop{}
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		publisher = amqpPublisher
	} else {
		appLog.Warn("AMQP_URL not set, domain events are dropped")
	}
	defer publisher.Close()

	// Set Gin to release mode in production
	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.SetupRouter(&routes.Handler{
		DB:         DB,
		Tokens:     auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		Media:      store,
		Events:     publisher,
		Log:        appLog,
		BcryptCost: cfg.BcryptCost,
	})

	handler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID", "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	})(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("Server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
