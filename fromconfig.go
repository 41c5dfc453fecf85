package cilantro

import (
	"fmt"
	"os"
	"strings"

	"github.com/cilantro-web/cilantro/pkg/config"
	"github.com/cilantro-web/cilantro/pkg/logging"
	"github.com/cilantro-web/cilantro/pkg/metrics"
	"github.com/cilantro-web/cilantro/pkg/middleware"
)

// FromConfig assembles a ready-to-run App from a finalized configuration:
// logger, middleware stack, metrics endpoint, parsed templates, static
// mounts, and declared views. The returned App accepts further imperative
// registration before Run.
func FromConfig(cfg *config.Config) (*App, error) {
	logger := logging.New(&cfg.Logging)
	app := New(WithConfig(cfg), WithLogger(logger))

	app.Use(WrapMiddleware(middleware.RequestID()))
	app.Use(Logger(logger))

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
		app.Use(Metrics(recorder, cfg.Metrics.Path))
	}
	app.Use(Recover(logger))

	if cfg.CORS.Enabled {
		app.Use(WrapMiddleware(middleware.CORS(&cfg.CORS)))
	}
	if limit := cfg.Server.MaxBodySizeBytes(); limit > 0 {
		app.Use(WrapMiddleware(middleware.BodyLimit(limit)))
	}

	if recorder != nil {
		app.Get(cfg.Metrics.Path, WrapHandler(recorder.Handler()))
	}

	if cfg.Templates.Enabled() {
		if err := app.Templates(os.DirFS(cfg.Templates.Dir), cfg.Templates.Glob); err != nil {
			return nil, fmt.Errorf("templates: %w", err)
		}
	}

	for _, static := range cfg.Static {
		app.Static(static.Prefix, static.Dir)
	}

	for i := range cfg.Views {
		view := &cfg.Views[i]
		if err := app.mountView(view); err != nil {
			return nil, fmt.Errorf("view %s: %w", view.Name, err)
		}
	}

	return app, nil
}

// mountView registers a config-declared view on every path and method it
// lists.
func (a *App) mountView(view *config.ViewConfig) error {
	h := viewHandler(view)
	for _, p := range view.AllPaths() {
		for _, method := range view.Methods {
			if err := a.add(method, p, h, nil, view.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// viewHandler builds the handler for one declared view.
func viewHandler(view *config.ViewConfig) HandlerFunc {
	return func(c *Context) error {
		for key, value := range view.Headers {
			c.SetHeader(key, value)
		}
		switch {
		case view.Redirect != "":
			return c.Redirect(view.Status, view.Redirect)
		case view.JSON != nil:
			return c.JSON(view.Status, view.JSON)
		case view.File != "":
			return c.File(view.File)
		default:
			if view.ContentType != "" {
				return c.Blob(view.Status, withCharset(view.ContentType), []byte(view.Returns))
			}
			return c.Text(view.Status, view.Returns)
		}
	}
}

// withCharset appends a utf-8 charset to a media type that lacks one; view
// bodies are declared as text in the config file.
func withCharset(contentType string) string {
	if strings.Contains(strings.ToLower(contentType), "charset=") {
		return contentType
	}
	return contentType + "; charset=utf-8"
}
