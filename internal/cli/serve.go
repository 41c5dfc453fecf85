package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cilantro-web/cilantro"
	"github.com/cilantro-web/cilantro/internal/reload"
	"github.com/cilantro-web/cilantro/pkg/config"
)

type serveOptions struct {
	cfgPath string
	dev     bool
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the application described by a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.cfgPath, "config", "c", "app.toml", "config file path")
	fs.BoolVar(&opts.dev, "dev", false, "enable autoreload regardless of config")
	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(opts.cfgPath)
	if err != nil {
		return err
	}
	if opts.dev {
		cfg.Dev.Autoreload = true
	}

	app, err := cilantro.FromConfig(cfg)
	if err != nil {
		return err
	}

	if !cfg.Dev.Autoreload {
		return app.Run(ctx)
	}
	return runDev(ctx, cfg, app, opts.cfgPath)
}

// runDev serves a swappable handler: on a debounced change to the config
// file or any watched directory, the config is reloaded and a fresh app
// swapped in. A failed reload keeps the running app. Changes to the
// [server] section do not retarget the bound listener.
func runDev(ctx context.Context, cfg *config.Config, app *cilantro.App, cfgPath string) error {
	logger := app.Logger()

	var current atomic.Pointer[cilantro.App]
	current.Store(app)

	watcher, err := reload.New(cfg.Dev.DebounceDuration(), logger, func() {
		next, err := rebuild(cfgPath)
		if err != nil {
			logger.Error("reload failed, keeping previous app", "error", err)
			return
		}
		current.Store(next)
		logger.Info("reloaded", "config", cfgPath, "routes", len(next.Routes()))
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(cfgPath); err != nil {
		return err
	}
	for _, dir := range cfg.Dev.Watch {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current.Load().ServeHTTP(w, r)
		}),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
		IdleTimeout:  cfg.Server.IdleTimeoutDuration(),
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("shutting down server", "signal", sig.String())
		case <-ctx.Done():
			logger.Info("shutting down server", "reason", context.Cause(ctx))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
		defer cancel()

		shutdownError <- srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", "addr", ln.Addr().String(), "autoreload", true)

	err = srv.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownError; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func rebuild(cfgPath string) (*cilantro.App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg.Dev.Autoreload = true
	return cilantro.FromConfig(cfg)
}
