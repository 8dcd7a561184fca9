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

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/pkg/logger"
	"storefront/internal/service"
	"storefront/internal/storage"
)

func main() {
	var l *logger.Logger
	var err error
	if l, err = logger.CreateLogger(config.LogLevel); err != nil {
		log.Fatal("Failed to create logger:", err)
	}

	ctx := context.Background()
	db, err := storage.Open(ctx, config.StorageDriver, config.StorageDSN, l)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	shopper := app.NewApp(ctx, db, app.Options{
		BaseURL:  config.APIBaseURL,
		Timeout:  config.APITimeout,
		Language: config.Language,
	}, l)
	shopper.Bootstrap(ctx)
	service := service.NewService(shopper, config.ServerRunAddress, l)

	const readHeaderTimeout = 5 * time.Second
	server := &http.Server{Addr: config.ServerRunAddress, Handler: service.NewRouter(), ReadHeaderTimeout: readHeaderTimeout}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		const shutdownTimeout = 30 * time.Second
		shutdownCtx, cancel := context.WithTimeout(serverCtx, shutdownTimeout)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	l.Sugar().Infof("storefront gateway listening on %s, API at %s", config.ServerRunAddress, config.APIBaseURL)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}

	<-serverCtx.Done()
}
