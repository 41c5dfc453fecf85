package router

import (
	"fmt"
	"strings"
)

// methodSet maps a canonical method (or AnyMethod) to its binding.
type methodSet[T any] map[string]*Route[T]

// resolve picks the binding for method: exact match first, then HEAD
// falls back to GET, then the AnyMethod slot.
func (m methodSet[T]) resolve(method string) (*Route[T], Result) {
	if r, ok := m[method]; ok {
		return r, Found
	}
	if method == "HEAD" {
		if r, ok := m["GET"]; ok {
			return r, Found
		}
	}
	if r, ok := m[AnyMethod]; ok {
		return r, FoundAny
	}
	return nil, NotFound
}

func (m methodSet[T]) bind(route *Route[T]) error {
	if _, ok := m[route.Method]; ok {
		return fmt.Errorf("already registered")
	}
	m[route.Method] = route
	return nil
}

// node is one segment position in the route tree.
type node[T any] struct {
	static map[string]*node[T]

	param     *node[T]
	paramName string

	wildName  string
	wildcards methodSet[T] // bindings for a {name...} ending here

	routes methodSet[T] // bindings terminating exactly here
}

func newNode[T any]() *node[T] {
	return &node[T]{
		static:    map[string]*node[T]{},
		wildcards: methodSet[T]{},
		routes:    methodSet[T]{},
	}
}

func (n *node[T]) insert(segs []segment, route *Route[T]) error {
	if len(segs) == 0 {
		return n.routes.bind(route)
	}

	seg := segs[0]
	switch seg.kind {
	case segStatic:
		child := n.static[seg.literal]
		if child == nil {
			child = newNode[T]()
			n.static[seg.literal] = child
		}
		return child.insert(segs[1:], route)

	case segParam:
		if n.param == nil {
			n.param = newNode[T]()
			n.paramName = seg.name
		} else if n.paramName != seg.name {
			return fmt.Errorf("parameter {%s} conflicts with existing {%s}", seg.name, n.paramName)
		}
		return n.param.insert(segs[1:], route)

	case segWildcard:
		if len(n.wildcards) > 0 && n.wildName != seg.name {
			return fmt.Errorf("wildcard {%s...} conflicts with existing {%s...}", seg.name, n.wildName)
		}
		n.wildName = seg.name
		return n.wildcards.bind(route)

	default:
		return fmt.Errorf("unknown segment kind")
	}
}

// match walks the tree for method and the remaining path segments,
// appending extracted parameters to params. Arms are tried in
// precedence order and a dead end backtracks to the next arm.
func (n *node[T]) match(method string, segs []string, params Params) (*Route[T], Params, Result) {
	if len(segs) == 0 {
		route, res := n.routes.resolve(method)
		return route, params, res
	}

	seg := segs[0]

	if child := n.static[seg]; child != nil {
		if route, ps, res := child.match(method, segs[1:], params); res != NotFound {
			return route, ps, res
		}
	}

	if n.param != nil && seg != "" {
		next := append(params, Param{Name: n.paramName, Value: seg})
		if route, ps, res := n.param.match(method, segs[1:], next); res != NotFound {
			return route, ps, res
		}
	}

	if route, res := n.wildcards.resolve(method); res != NotFound {
		value := strings.Join(segs, "/")
		return route, append(params, Param{Name: n.wildName, Value: value}), res
	}

	return nil, nil, NotFound
}

// collectAllow visits every arm that matches the remaining segments
// and unions the explicit methods bound at reached terminals. It
// reports whether any terminal was reached at all.
func (n *node[T]) collectAllow(segs []string, allow map[string]bool) bool {
	reached := false

	if len(segs) == 0 {
		return unionMethods(n.routes, allow)
	}

	seg := segs[0]
	if child := n.static[seg]; child != nil {
		reached = child.collectAllow(segs[1:], allow) || reached
	}
	if n.param != nil && seg != "" {
		reached = n.param.collectAllow(segs[1:], allow) || reached
	}
	reached = unionMethods(n.wildcards, allow) || reached

	return reached
}

func unionMethods[T any](m methodSet[T], allow map[string]bool) bool {
	for method := range m {
		if method != AnyMethod {
			allow[method] = true
		}
	}
	return len(m) > 0
}
