package router

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"
)

type segKind int

const (
	segStatic segKind = iota
	segParam
	segWildcard
)

// segment is one parsed position of a pattern. A trailing slash in
// the pattern produces a terminal static segment with an empty
// literal, which keeps "/users" and "/users/" distinct routes.
type segment struct {
	kind    segKind
	literal string // decoded static text
	name    string // parameter name
}

func parsePattern(pattern string) ([]segment, error) {
	if pattern == "" || pattern[0] != '/' {
		return nil, fmt.Errorf("must begin with \"/\"")
	}

	parts := strings.Split(pattern[1:], "/")
	segs := make([]segment, 0, len(parts))

	for i, part := range parts {
		last := i == len(parts)-1

		switch {
		case part == "":
			if !last {
				return nil, fmt.Errorf("empty segment")
			}
			segs = append(segs, segment{kind: segStatic})

		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			name := part[1 : len(part)-1]
			if base, ok := strings.CutSuffix(name, "..."); ok {
				if !last {
					return nil, fmt.Errorf("wildcard {%s} must end the pattern", name)
				}
				if !validParamName(base) {
					return nil, fmt.Errorf("invalid parameter name %q", base)
				}
				segs = append(segs, segment{kind: segWildcard, name: base})
			} else {
				if !validParamName(name) {
					return nil, fmt.Errorf("invalid parameter name %q", name)
				}
				segs = append(segs, segment{kind: segParam, name: name})
			}

		case strings.ContainsAny(part, "{}"):
			return nil, fmt.Errorf("parameter %q must span a whole segment", part)

		default:
			segs = append(segs, segment{kind: segStatic, literal: unescapeSegment(part)})
		}
	}

	seen := map[string]bool{}
	for _, s := range segs {
		if s.kind == segStatic {
			continue
		}
		if seen[s.name] {
			return nil, fmt.Errorf("duplicate parameter {%s}", s.name)
		}
		seen[s.name] = true
	}

	return segs, nil
}

func validParamName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		default:
			return false
		}
	}
	return true
}

// cleanPath canonicalizes a request path: duplicate slashes and dot
// segments are removed, a missing leading slash is added, and a
// trailing slash survives cleaning so slash-sensitive routes keep
// working.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	trailing := len(p) > 1 && p[len(p)-1] == '/'
	clean := path.Clean(p)
	if trailing && clean != "/" {
		clean += "/"
	}
	return clean
}

// splitPath breaks a cleaned path into segments and decodes
// percent-escapes per segment, so an encoded slash stays inside its
// segment instead of splitting it.
func splitPath(p string) []string {
	segs := strings.Split(p[1:], "/")
	for i, s := range segs {
		if strings.Contains(s, "%") {
			segs[i] = unescapeSegment(s)
		}
	}
	return segs
}

func unescapeSegment(s string) string {
	u, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return u
}
