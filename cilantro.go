// Package cilantro is a small web framework built around three pieces: a
// method-aware route table, a pooled per-request Context, and a dispatcher
// that turns handler errors into HTTP responses. Routes use the standard
// pattern dialect ({name} segments, {name...} trailing wildcards), handlers
// return errors instead of writing error responses by hand, and the whole
// application can be declared in a TOML or YAML config file.
package cilantro

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cilantro-web/cilantro/pkg/config"
	"github.com/cilantro-web/cilantro/pkg/router"
)

// HandlerFunc handles one request. A non-nil return routes through the
// application's error handler unless the response has already been
// written.
type HandlerFunc func(*Context) error

// Middleware wraps a HandlerFunc. Route chains compose at registration
// time, so middleware added after a route is registered does not apply to
// it.
type Middleware func(HandlerFunc) HandlerFunc

// ErrorHandler turns a handler error into a response. It is only invoked
// while the response is still unwritten.
type ErrorHandler func(*Context, error)

// RouteInfo describes one registered route.
type RouteInfo struct {
	Method  string
	Pattern string
	Name    string
}

// binding is the route table payload: the precomposed chain plus the
// route's registration metadata.
type binding struct {
	chain HandlerFunc
	name  string
}

// App routes requests to handlers. The zero value is not usable; construct
// with New or FromConfig.
type App struct {
	table         *router.Table[*binding]
	middleware    []Middleware
	errorHandler  ErrorHandler
	notFound      HandlerFunc
	notFoundChain HandlerFunc
	wrongMethod   HandlerFunc

	logger        *slog.Logger
	config        *config.Config
	templates     *template.Template
	redirectSlash bool

	addr atomic.Value
	pool sync.Pool
}

// Option configures an App during construction.
type Option func(*App)

// WithLogger sets the application logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithConfig attaches a finalized configuration. Run reads its server
// section, and the trailing slash redirect honors its setting.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.config = cfg
		a.redirectSlash = cfg.Server.RedirectSlashEnabled()
	}
}

// WithErrorHandler replaces the default error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(a *App) { a.errorHandler = h }
}

// WithNotFound replaces the handler invoked when no route matches. Global
// middleware still wraps it.
func WithNotFound(h HandlerFunc) Option {
	return func(a *App) { a.notFound = h }
}

// New constructs an empty App.
func New(opts ...Option) *App {
	a := &App{
		table:         router.New[*binding](),
		logger:        slog.Default(),
		redirectSlash: true,
	}
	a.notFound = func(c *Context) error { return ErrNotFound }
	for _, opt := range opts {
		opt(a)
	}
	a.pool.New = func() any { return &Context{} }
	a.rebuildFallbacks()
	return a
}

// Use appends global middleware. It applies to routes registered after the
// call and to the not found and method not allowed fallbacks.
func (a *App) Use(mw ...Middleware) {
	a.middleware = append(a.middleware, mw...)
	a.rebuildFallbacks()
}

// rebuildFallbacks recomposes the chains that serve requests matching no
// route.
func (a *App) rebuildFallbacks() {
	a.notFoundChain = compose(a.middleware, finalize(func(c *Context) error {
		return a.notFound(c)
	}))
	a.wrongMethod = compose(a.middleware, finalize(func(c *Context) error {
		return ErrMethodNotAllowed
	}))
}

// add registers a route. The handler chain is composed here: global
// middleware first, then route middleware, innermost the handler.
func (a *App) add(method, pattern string, h HandlerFunc, mw []Middleware, name string) error {
	if h == nil {
		return fmt.Errorf("add route %s: nil handler", pattern)
	}
	chain := append(slices.Clone(a.middleware), mw...)
	b := &binding{chain: compose(chain, finalize(h)), name: name}
	return a.table.Add(method, pattern, b)
}

// handle is the imperative registration path; malformed patterns and
// conflicts are programmer errors, so it panics.
func (a *App) handle(method, pattern string, h HandlerFunc, mw []Middleware) {
	if err := a.add(method, pattern, h, mw, ""); err != nil {
		panic(err)
	}
}

// Handle registers a handler for an explicit method and pattern.
func (a *App) Handle(method, pattern string, h HandlerFunc, mw ...Middleware) {
	a.handle(method, pattern, h, mw)
}

// Get registers a GET handler. It also answers HEAD requests unless a
// dedicated HEAD route exists.
func (a *App) Get(pattern string, h HandlerFunc, mw ...Middleware) {
	a.handle(http.MethodGet, pattern, h, mw)
}

// Head registers a HEAD handler.
func (a *App) Head(pattern string, h HandlerFunc, mw ...Middleware) {
	a.handle(http.MethodHead, pattern, h, mw)
}

// Post registers a POST handler.
func (a *App) Post(pattern string, h HandlerFunc, mw ...Middleware) {
	a.handle(http.MethodPost, pattern, h, mw)
}

// Put registers a PUT handler.
func (a *App) Put(pattern string, h HandlerFunc, mw ...Middleware) {
	a.handle(http.MethodPut, pattern, h, mw)
}

// Patch registers a PATCH handler.
func (a *App) Patch(pattern string, h HandlerFunc, mw ...Middleware) {
	a.handle(http.MethodPatch, pattern, h, mw)
}

// Delete registers a DELETE handler.
func (a *App) Delete(pattern string, h HandlerFunc, mw ...Middleware) {
	a.handle(http.MethodDelete, pattern, h, mw)
}

// Options registers an OPTIONS handler.
func (a *App) Options(pattern string, h HandlerFunc, mw ...Middleware) {
	a.handle(http.MethodOptions, pattern, h, mw)
}

// Any registers a handler matching every method. Explicit method routes on
// the same pattern take precedence.
func (a *App) Any(pattern string, h HandlerFunc, mw ...Middleware) {
	a.handle(router.AnyMethod, pattern, h, mw)
}

// Static serves files from dir under the given URL prefix.
func (a *App) Static(prefix, dir string) {
	if !strings.HasPrefix(prefix, "/") {
		panic(fmt.Sprintf("static prefix %q must start with /", prefix))
	}
	stripped := strings.TrimSuffix(prefix, "/")
	fileServer := http.StripPrefix(stripped, http.FileServer(http.Dir(dir)))
	a.handle(http.MethodGet, joinPattern(stripped, "/{path...}"), WrapHandler(fileServer), nil)
}

// Templates parses templates matching glob from fsys and makes them
// available to Context.Render.
func (a *App) Templates(fsys fs.FS, glob string) error {
	tmpl, err := template.ParseFS(fsys, glob)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	a.templates = tmpl
	return nil
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Config returns the attached configuration, or nil.
func (a *App) Config() *config.Config { return a.config }

// Routes lists the registered routes sorted by pattern then method.
func (a *App) Routes() []RouteInfo {
	routes := a.table.Routes()
	out := make([]RouteInfo, 0, len(routes))
	for _, r := range routes {
		method := r.Method
		if method == router.AnyMethod {
			method = "ANY"
		}
		out = append(out, RouteInfo{Method: method, Pattern: r.Pattern, Name: r.Value.name})
	}
	return out
}

// ServeHTTP dispatches the request through the route table.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := a.pool.Get().(*Context)
	c.reset(w, r, a)
	defer func() {
		c.release()
		a.pool.Put(c)
	}()

	m := a.table.Lookup(r.Method, r.URL.EscapedPath())
	switch m.Result {
	case router.Found, router.FoundAny:
		c.pattern = m.Route.Pattern
		c.name = m.Route.Value.name
		c.params = m.Params
		if err := m.Route.Value.chain(c); err != nil {
			a.handleError(c, err)
		}
	case router.WrongMethod:
		c.writer.Header().Set("Allow", strings.Join(m.Allow, ", "))
		if err := a.wrongMethod(c); err != nil {
			a.handleError(c, err)
		}
	case router.RedirectSlash:
		if a.redirectSlash {
			a.redirectToSlash(c, m.Redirect)
			return
		}
		fallthrough
	default:
		if err := a.notFoundChain(c); err != nil {
			a.handleError(c, err)
		}
	}
}

// redirectToSlash answers with a permanent redirect to the slash-toggled
// path, preserving the query string. Non-idempotent methods get 308 so the
// client replays the request body.
func (a *App) redirectToSlash(c *Context, target string) {
	if q := c.request.URL.RawQuery; q != "" {
		target += "?" + q
	}
	status := http.StatusMovedPermanently
	if c.request.Method != http.MethodGet && c.request.Method != http.MethodHead {
		status = http.StatusPermanentRedirect
	}
	c.writer.Header().Set("Location", target)
	c.writer.WriteHeader(status)
}

// handleError renders err through the configured error handler. Errors
// surfacing after the response has been written cannot be rendered and are
// dropped; the logging middleware still sees them.
func (a *App) handleError(c *Context, err error) {
	if err == nil || c.Written() {
		return
	}
	if a.errorHandler != nil {
		a.errorHandler(c, err)
		return
	}
	a.defaultErrorHandler(c, err)
}

// defaultErrorHandler writes a JSON error body. Framework errors expose
// their message; anything else becomes an opaque 500 and is logged with
// its cause.
func (a *App) defaultErrorHandler(c *Context, err error) {
	status := StatusOf(err)
	msg := http.StatusText(status)
	var fe *Error
	if errors.As(err, &fe) && fe.Message != "" {
		msg = fe.Message
	}
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"error", err,
		)
		msg = http.StatusText(status)
	}
	_ = c.JSON(status, map[string]string{"error": msg})
}

// compose wraps h in mws, first middleware outermost.
func compose(mws []Middleware, h HandlerFunc) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// finalize guarantees a response: a handler that returns nil without
// writing produces an empty 200, so middleware upstream always observes a
// real status.
func finalize(h HandlerFunc) HandlerFunc {
	return func(c *Context) error {
		err := h(c)
		if err == nil && !c.Written() {
			c.writer.WriteHeader(http.StatusOK)
		}
		return err
	}
}

// joinPattern joins a group prefix and a route pattern, keeping the
// pattern's trailing slash significant.
func joinPattern(prefix, pattern string) string {
	if prefix == "" {
		return pattern
	}
	return strings.TrimSuffix(prefix, "/") + pattern
}
