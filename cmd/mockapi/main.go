// Command mockapi serves the in-memory reference backend under /api/v1.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/fakeapi"
	"storefront/internal/pkg/logger"

	"github.com/go-chi/chi/v5"
)

func main() {
	l, err := logger.CreateLogger(config.LogLevel)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}

	router := chi.NewRouter()
	router.Mount("/api/v1", fakeapi.New(config.MockAPISecret, l).Router())

	const readHeaderTimeout = 5 * time.Second
	server := &http.Server{Addr: config.MockAPIAddress, Handler: router, ReadHeaderTimeout: readHeaderTimeout}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		const shutdownTimeout = 10 * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			l.Sugar().Errorf("shutdown: %v", err)
		}
	}()

	l.Sugar().Infof("mock API listening on %s", config.MockAPIAddress)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Sugar().Errorf("serve: %v", err)
		os.Exit(1)
	}
}
