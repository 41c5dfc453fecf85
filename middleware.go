package cilantro

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"time"

	"github.com/cilantro-web/cilantro/pkg/metrics"
)

// WrapHandler adapts an http.Handler into a HandlerFunc. The handler
// writes directly to the tracked response writer, so Status and Written
// stay accurate.
func WrapHandler(h http.Handler) HandlerFunc {
	return func(c *Context) error {
		h.ServeHTTP(c.writer, c.request)
		return nil
	}
}

// WrapHandlerFunc adapts an http.HandlerFunc into a HandlerFunc.
func WrapHandlerFunc(h http.HandlerFunc) HandlerFunc {
	return WrapHandler(h)
}

// WrapMiddleware adapts net/http middleware into a Middleware, so the
// standard ecosystem of func(http.Handler) http.Handler wrappers plugs
// into a chain. Request mutations (headers, context values) made by the
// wrapped middleware are visible downstream. If the middleware
// short-circuits without calling the next handler, the rest of the chain
// is skipped and whatever it wrote still counts toward Status and
// BytesWritten.
func WrapMiddleware(mw func(http.Handler) http.Handler) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(c *Context) error {
			outer := c.writer

			var err error
			h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.writer = &responseWriter{ResponseWriter: w}
				c.request = r
				err = next(c)
			}))
			h.ServeHTTP(outer, c.request)

			c.writer = outer
			return err
		}
	}
}

// Logger emits one structured line per request: method, path, matched
// route, status, response size, and latency. Errors from downstream are
// rendered before logging so the recorded status is the one the client
// saw, then forwarded so outer middleware still observes them.
func Logger(log *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(c *Context) error {
			start := time.Now()
			method := c.Method()
			path := c.Path()

			err := next(c)
			if err != nil {
				c.app.handleError(c, err)
			}

			status := c.Status()
			attrs := []slog.Attr{
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", status),
				slog.Int64("bytes", c.BytesWritten()),
				slog.Duration("elapsed", time.Since(start)),
			}
			if route := c.RoutePattern(); route != "" {
				attrs = append(attrs, slog.String("route", route))
			}
			if id := c.RequestID(); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			log.LogAttrs(c.Context(), level, "request", attrs...)
			return err
		}
	}
}

// Recover converts a downstream panic into a 500 error after logging the
// stack. http.ErrAbortHandler propagates so aborted requests keep their
// net/http semantics.
func Recover(log *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(c *Context) (err error) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("panic recovered",
					"method", c.Method(),
					"path", c.Path(),
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				err = &Error{
					Status:  http.StatusInternalServerError,
					Message: http.StatusText(http.StatusInternalServerError),
					Err:     fmt.Errorf("panic: %v", rec),
				}
			}()
			return next(c)
		}
	}
}

// Metrics records request counts and latencies on rec, labeled by method,
// matched route pattern, and status. Unmatched requests are labeled by
// their raw path. Paths in skip, such as the scrape endpoint itself, are
// not recorded.
func Metrics(rec *metrics.Recorder, skip ...string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(c *Context) error {
			if slices.Contains(skip, c.Path()) {
				return next(c)
			}
			start := time.Now()

			err := next(c)
			if err != nil {
				c.app.handleError(c, err)
			}

			route := c.RoutePattern()
			if route == "" {
				route = c.Path()
			}
			rec.Observe(c.Method(), route, c.Status(), time.Since(start))
			return err
		}
	}
}
