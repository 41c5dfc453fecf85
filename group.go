package cilantro

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/cilantro-web/cilantro/pkg/router"
)

// RouteGroup registers routes under a shared prefix with shared
// middleware. Groups nest; a child inherits its parent's prefix and
// middleware.
type RouteGroup struct {
	app    *App
	prefix string
	mw     []Middleware
}

// Group creates a route group. The prefix must start with "/"; use "" for
// a group that only carries middleware.
func (a *App) Group(prefix string, mw ...Middleware) *RouteGroup {
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		panic(fmt.Sprintf("group prefix %q must start with /", prefix))
	}
	return &RouteGroup{app: a, prefix: strings.TrimSuffix(prefix, "/"), mw: slices.Clone(mw)}
}

// Group creates a nested group under this one.
func (g *RouteGroup) Group(prefix string, mw ...Middleware) *RouteGroup {
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		panic(fmt.Sprintf("group prefix %q must start with /", prefix))
	}
	child := &RouteGroup{
		app:    g.app,
		prefix: g.prefix + strings.TrimSuffix(prefix, "/"),
		mw:     slices.Clone(g.mw),
	}
	child.mw = append(child.mw, mw...)
	return child
}

// Use appends middleware to the group. Like App.Use, it only affects
// routes registered afterward.
func (g *RouteGroup) Use(mw ...Middleware) {
	g.mw = append(g.mw, mw...)
}

func (g *RouteGroup) handle(method, pattern string, h HandlerFunc, mw []Middleware) {
	chain := append(slices.Clone(g.mw), mw...)
	g.app.handle(method, joinPattern(g.prefix, pattern), h, chain)
}

// Handle registers a handler on the group for an explicit method.
func (g *RouteGroup) Handle(method, pattern string, h HandlerFunc, mw ...Middleware) {
	g.handle(method, pattern, h, mw)
}

// Get registers a GET handler on the group.
func (g *RouteGroup) Get(pattern string, h HandlerFunc, mw ...Middleware) {
	g.handle(http.MethodGet, pattern, h, mw)
}

// Head registers a HEAD handler on the group.
func (g *RouteGroup) Head(pattern string, h HandlerFunc, mw ...Middleware) {
	g.handle(http.MethodHead, pattern, h, mw)
}

// Post registers a POST handler on the group.
func (g *RouteGroup) Post(pattern string, h HandlerFunc, mw ...Middleware) {
	g.handle(http.MethodPost, pattern, h, mw)
}

// Put registers a PUT handler on the group.
func (g *RouteGroup) Put(pattern string, h HandlerFunc, mw ...Middleware) {
	g.handle(http.MethodPut, pattern, h, mw)
}

// Patch registers a PATCH handler on the group.
func (g *RouteGroup) Patch(pattern string, h HandlerFunc, mw ...Middleware) {
	g.handle(http.MethodPatch, pattern, h, mw)
}

// Delete registers a DELETE handler on the group.
func (g *RouteGroup) Delete(pattern string, h HandlerFunc, mw ...Middleware) {
	g.handle(http.MethodDelete, pattern, h, mw)
}

// Options registers an OPTIONS handler on the group.
func (g *RouteGroup) Options(pattern string, h HandlerFunc, mw ...Middleware) {
	g.handle(http.MethodOptions, pattern, h, mw)
}

// Any registers a handler on the group matching every method.
func (g *RouteGroup) Any(pattern string, h HandlerFunc, mw ...Middleware) {
	g.handle(router.AnyMethod, pattern, h, mw)
}

// Route declares a single route for Mount. An empty Method matches every
// method.
type Route struct {
	Method     string
	Pattern    string
	Name       string
	Handler    HandlerFunc
	Middleware []Middleware
}

// Group declares a tree of routes for Mount. Prefixes and middleware
// accumulate down the tree.
type Group struct {
	Prefix     string
	Middleware []Middleware
	Routes     []Route
	Children   []Group
}

// Mount registers a declarative route tree. Unlike the imperative
// registration methods it returns pattern and conflict errors instead of
// panicking, so config-driven callers can surface them.
func (a *App) Mount(g Group) error {
	return a.mount(g, "", nil)
}

func (a *App) mount(g Group, prefix string, mw []Middleware) error {
	if g.Prefix != "" && !strings.HasPrefix(g.Prefix, "/") {
		return fmt.Errorf("group prefix %q must start with /", g.Prefix)
	}
	prefix = prefix + strings.TrimSuffix(g.Prefix, "/")
	mw = append(slices.Clone(mw), g.Middleware...)

	for _, r := range g.Routes {
		chain := append(slices.Clone(mw), r.Middleware...)
		if err := a.add(r.Method, joinPattern(prefix, r.Pattern), r.Handler, chain, r.Name); err != nil {
			return err
		}
	}
	for _, child := range g.Children {
		if err := a.mount(child, prefix, mw); err != nil {
			return err
		}
	}
	return nil
}
