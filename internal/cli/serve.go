package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sagerenn/dictd/internal/httpx"
	"github.com/sagerenn/dictd/internal/session"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			sessions := session.NewManager(a.svc, cfg.Session.MaxSessions, cfg.Session.TTL, a.log.Logger)
			defer sessions.Close()

			srv := &http.Server{
				Addr: cfg.Server.Listen,
				Handler: httpx.NewRouter(a.svc, sessions, a.log, httpx.Options{
					BasePath:    cfg.Server.BasePath,
					WaitTimeout: cfg.Search.WaitTimeout,
				}),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("server listening", slog.String("addr", cfg.Server.Listen))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Error("shutdown failed", slog.String("error", err.Error()))
			}
			a.log.Info("server stopped")
			return nil
		},
	}
}
