package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/calendar-service/internal/application"
	"github.com/example/calendar-service/internal/calendar"
	"github.com/example/calendar-service/internal/config"
	"github.com/example/calendar-service/internal/event"
	httptransport "github.com/example/calendar-service/internal/http"
	"github.com/example/calendar-service/internal/logging"
	"github.com/example/calendar-service/internal/persistence/sqlite"
	"github.com/example/calendar-service/internal/recurrence"
)

func main() {
	logger := logging.NewLogger(os.Stdout, "info")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = logging.NewLogger(os.Stdout, cfg.LogLevel)

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	horizon := calendar.DateOf(now().AddDate(0, 0, cfg.HorizonDays))
	engine := recurrence.NewEngine(&horizon)
	materializer := event.NewMaterializer(engine, idGenerator)

	eventRepo := sqlite.NewEventRepository(storage)
	userRepo := sqlite.NewUserRepository(storage)
	sessionRepo := sqlite.NewSessionRepository(storage)

	eventService := application.NewEventService(eventRepo, materializer, idGenerator, now, logger)
	userService := application.NewUserService(userRepo, idGenerator, now, logger)
	authService := application.NewAuthService(userRepo, sessionRepo, nil, idGenerator, tokenGenerator, now, cfg.SessionTTL, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:   httptransport.NewAuthHandler(authService, logger),
		Users:  httptransport.NewUserHandler(userService, logger),
		Events: httptransport.NewEventHandler(eventService, logger),
		Feed:   httptransport.NewFeedHandler(eventService, now, logger),
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicRoute(r) {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("calendar API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// isPublicRoute reports whether the request may bypass session validation.
// Login and account registration are the only unauthenticated operations.
func isPublicRoute(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	switch r.URL.Path {
	case "/sessions", "/users":
		return true
	}
	return false
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
