package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ishanbilolikar/pizza42-backend/internal/config"
)

const readHeaderTimeout = 10 * time.Second

type App struct {
	httpServer *http.Server
	cleanup    func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, err
	}

	router, err := setupHTTP(ctx, cfg, infra.Redis)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return &App{
		httpServer: server,
		cleanup:    infra.Close,
	}, nil
}

// Run serves until Shutdown is called.
func (a *App) Run() error {
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if a.cleanup != nil {
		return a.cleanup()
	}
	return nil
}
