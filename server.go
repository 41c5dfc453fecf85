package cilantro

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/cilantro-web/cilantro/pkg/config"
)

// Run serves the application until ctx is canceled or the process receives
// SIGINT or SIGTERM, then shuts down gracefully within the configured
// timeout. It blocks for the lifetime of the server and returns nil after
// a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	var srvCfg config.ServerConfig
	if a.config != nil {
		srvCfg = a.config.Server
	} else if err := srvCfg.Finalize(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	var handler http.Handler = a
	if srvCfg.H2C {
		handler = h2c.NewHandler(a, &http2.Server{})
	}

	srv := &http.Server{
		Addr:         srvCfg.Addr(),
		Handler:      handler,
		ReadTimeout:  srvCfg.ReadTimeoutDuration(),
		WriteTimeout: srvCfg.WriteTimeoutDuration(),
		IdleTimeout:  srvCfg.IdleTimeoutDuration(),
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	a.addr.Store(ln.Addr().String())

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			a.logger.Info("shutting down server", "signal", sig.String())
		case <-ctx.Done():
			a.logger.Info("shutting down server", "reason", context.Cause(ctx))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeoutDuration())
		defer cancel()

		shutdownError <- srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("starting server", "addr", a.Addr(), "h2c", srvCfg.H2C)

	err = srv.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownError; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}

// Addr returns the bound listen address once Run has started, which is how
// callers discover the port when the configured port is 0.
func (a *App) Addr() string {
	if addr, ok := a.addr.Load().(string); ok {
		return addr
	}
	return ""
}
