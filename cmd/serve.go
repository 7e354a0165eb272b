package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/desertthunder/partyq/internal/server"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the party API until the context is cancelled, then shuts down gracefully.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	auth, err := server.NewAuthenticator(r.config.Auth)
	if err != nil {
		return err
	}

	engine, err := r.partyEngine(ctx)
	if err != nil {
		return err
	}

	router := server.NewBasicRouter()
	router.Use(server.Recoverer(), server.RequestLogger(r.logger))
	router.Handler(server.NewAPIHandler(engine, auth, r.logger))

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}
	srv := server.New(addr, router)

	errs := make(chan error, 1)
	go func() {
		r.logger.Info("serving party API", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
