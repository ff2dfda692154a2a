package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"propchat/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Worker != nil {
		go func() {
			if err := app.Worker.Start(ctx); err != nil {
				app.Log.Error("turn persist worker exited", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:    app.Config.HTTPAddr(),
		Handler: app.Router,
	}

	go func() {
		app.Log.Info("http server starting", "addr", server.Addr, "env", app.Config.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Log.Fatal("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	app.Log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Log.Error("http server shutdown failed", "error", err)
	}
	app.Log.Info("server stopped")
}
