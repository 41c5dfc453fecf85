// Package router implements the route table and path matcher.
//
// Patterns follow the net/http ServeMux dialect: static segments
// ("/users/active"), single-segment parameters ("/users/{id}"), and a
// trailing rest-of-path wildcard ("/files/{path...}"). A bare "/"
// matches only the root path. At each position static segments take
// precedence over parameters, and parameters over wildcards; the
// matcher backtracks when a higher-precedence arm dead-ends deeper in
// the tree. A position holds at most one parameter name, so
// "/users/{id}" and "/users/{name}/posts" cannot coexist.
package router

import (
	"fmt"
	"slices"
	"strings"
)

// AnyMethod registers a binding that matches every HTTP method not
// claimed by an explicit binding on the same pattern.
const AnyMethod = ""

// Result classifies the outcome of a Lookup.
type Result int

const (
	// NotFound means no registered pattern matches the path.
	NotFound Result = iota

	// Found means a binding matched the method and path.
	Found

	// FoundAny means the path matched and the binding came from the
	// AnyMethod slot.
	FoundAny

	// WrongMethod means the path matched but no binding accepts the
	// method. Match.Allow carries the permitted methods.
	WrongMethod

	// RedirectSlash means the path does not match but the same path
	// with the trailing slash toggled does. Match.Redirect carries
	// the canonical target.
	RedirectSlash
)

func (r Result) String() string {
	switch r {
	case NotFound:
		return "NotFound"
	case Found:
		return "Found"
	case FoundAny:
		return "FoundAny"
	case WrongMethod:
		return "WrongMethod"
	case RedirectSlash:
		return "RedirectSlash"
	default:
		return "Unknown"
	}
}

// Route is a single registered binding.
type Route[T any] struct {
	Method  string
	Pattern string
	Value   T
}

// Param is one extracted path parameter.
type Param struct {
	Name  string
	Value string
}

// Params holds extracted parameters in pattern order.
type Params []Param

// Get returns the value of the named parameter, or "" when absent.
func (ps Params) Get(name string) string {
	for _, p := range ps {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// Match is the outcome of a Lookup.
type Match[T any] struct {
	Result   Result
	Route    *Route[T]
	Params   Params
	Allow    []string // set for WrongMethod
	Redirect string   // set for RedirectSlash
}

// Table is the route table. The zero value is not usable; call New.
// Add is not safe for concurrent use with Lookup; register every
// route before serving.
type Table[T any] struct {
	root   *node[T]
	routes []*Route[T]
}

// New returns an empty route table.
func New[T any]() *Table[T] {
	return &Table[T]{root: newNode[T]()}
}

// Add registers value under method and pattern. The method is
// canonicalized to upper case; AnyMethod binds the wildcard-method
// slot. Add fails on a malformed pattern, a duplicate method+pattern
// pair, or a parameter name that conflicts with one already holding
// the same position.
func (t *Table[T]) Add(method, pattern string, value T) error {
	method = strings.ToUpper(strings.TrimSpace(method))
	if strings.ContainsAny(method, " \t") {
		return fmt.Errorf("invalid method %q", method)
	}

	segs, err := parsePattern(pattern)
	if err != nil {
		return fmt.Errorf("parse pattern %q: %w", pattern, err)
	}

	route := &Route[T]{Method: method, Pattern: pattern, Value: value}
	if err := t.root.insert(segs, route); err != nil {
		return fmt.Errorf("add route %s %s: %w", methodLabel(method), pattern, err)
	}

	t.routes = append(t.routes, route)
	return nil
}

// MustAdd is Add, panicking on error. Registration happens at
// startup, so a bad pattern is a programming error.
func (t *Table[T]) MustAdd(method, pattern string, value T) {
	if err := t.Add(method, pattern, value); err != nil {
		panic(err)
	}
}

// Lookup resolves method and path against the table. The path is
// canonicalized (duplicate slashes and dot segments removed) before
// matching, and percent-escapes are decoded per segment, so an
// encoded slash never splits a parameter value.
func (t *Table[T]) Lookup(method, path string) Match[T] {
	method = strings.ToUpper(method)
	segs := splitPath(cleanPath(path))

	route, params, res := t.root.match(method, segs, nil)
	if res != NotFound {
		return Match[T]{Result: res, Route: route, Params: params}
	}

	allow := map[string]bool{}
	if t.root.collectAllow(segs, allow) {
		return Match[T]{Result: WrongMethod, Allow: allowList(allow)}
	}

	if target, ok := t.redirectTarget(path); ok {
		return Match[T]{Result: RedirectSlash, Redirect: target}
	}
	return Match[T]{Result: NotFound}
}

// redirectTarget reports whether toggling the trailing slash on path
// yields a registered route, regardless of method.
func (t *Table[T]) redirectTarget(path string) (string, bool) {
	clean := cleanPath(path)

	var alt string
	if strings.HasSuffix(clean, "/") && clean != "/" {
		alt = strings.TrimSuffix(clean, "/")
	} else {
		alt = clean + "/"
	}

	if t.root.collectAllow(splitPath(alt), map[string]bool{}) {
		return alt, true
	}
	return "", false
}

// Routes lists every registered route, sorted by pattern then method.
func (t *Table[T]) Routes() []*Route[T] {
	out := slices.Clone(t.routes)
	slices.SortFunc(out, func(a, b *Route[T]) int {
		if c := strings.Compare(a.Pattern, b.Pattern); c != 0 {
			return c
		}
		return strings.Compare(a.Method, b.Method)
	})
	return out
}

// Len reports the number of registered routes.
func (t *Table[T]) Len() int { return len(t.routes) }

func allowList(set map[string]bool) []string {
	if set["GET"] {
		set["HEAD"] = true
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

func methodLabel(method string) string {
	if method == AnyMethod {
		return "ANY"
	}
	return method
}
