// Package headers provides a case-insensitive HTTP header model that
// preserves the original wire data. Lookups treat keys case-insensitively
// while Raw retains the pairs exactly as received.
package headers

import (
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strings"
)

// Pair is a single header key/value as it appeared on the wire.
type Pair struct {
	Key   string
	Value string
}

// Header is an immutable case-insensitive view over a set of header pairs.
//
// Values of the same key are deduplicated and kept in first-seen order.
// Keys iterate in order of first appearance. The zero value is an empty,
// usable Header.
type Header struct {
	raw    []Pair
	keys   []string
	values map[string][]string
}

// FromPairs builds a Header from raw wire pairs. The pairs are retained
// untouched for Raw; lookups fold keys to lower case and drop duplicate
// values per key while preserving order.
func FromPairs(pairs []Pair) Header {
	h := Header{
		raw:    pairs,
		values: make(map[string][]string, len(pairs)),
	}
	for _, p := range pairs {
		h.add(strings.ToLower(p.Key), p.Value)
	}
	return h
}

// FromMap builds a Header from a simple key/value map. Raw pairs are
// ordered by key for determinism.
func FromMap(m map[string]string) Header {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]Pair, 0, len(m))
	for _, k := range keys {
		pairs = append(pairs, Pair{Key: k, Value: m[k]})
	}
	return FromPairs(pairs)
}

// FromHTTP builds a Header from a net/http header map. Raw pairs are
// ordered by canonical key for determinism.
func FromHTTP(src http.Header) Header {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []Pair
	for _, k := range keys {
		for _, v := range src[k] {
			pairs = append(pairs, Pair{Key: k, Value: v})
		}
	}
	return FromPairs(pairs)
}

func (h *Header) add(key, value string) {
	existing, ok := h.values[key]
	if !ok {
		h.keys = append(h.keys, key)
		h.values[key] = []string{value}
		return
	}
	if !slices.Contains(existing, value) {
		h.values[key] = append(existing, value)
	}
}

// Raw returns the original header pairs exactly as provided.
func (h Header) Raw() []Pair {
	return h.raw
}

// Get returns the first value for key, or "" when absent.
func (h Header) Get(key string) string {
	vs := h.values[strings.ToLower(key)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns all values for key in original order. The result is a
// copy; absent keys yield an empty slice.
func (h Header) Values(key string) []string {
	vs := h.values[strings.ToLower(key)]
	out := make([]string, len(vs))
	copy(out, vs)
	return out
}

// Has reports whether key is present.
func (h Header) Has(key string) bool {
	_, ok := h.values[strings.ToLower(key)]
	return ok
}

// Len returns the number of distinct keys.
func (h Header) Len() int {
	return len(h.keys)
}

// Keys returns the distinct lowercase keys in order of first appearance.
func (h Header) Keys() []string {
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}

// Equal reports whether both headers hold the same keys with the same
// value sets, ignoring key case and value order. Raw data does not
// participate in equality.
func (h Header) Equal(other Header) bool {
	if len(h.keys) != len(other.keys) {
		return false
	}
	for key, vs := range h.values {
		ovs, ok := other.values[key]
		if !ok || len(vs) != len(ovs) {
			return false
		}
		a := slices.Clone(vs)
		b := slices.Clone(ovs)
		sort.Strings(a)
		sort.Strings(b)
		if !slices.Equal(a, b) {
			return false
		}
	}
	return true
}

// String renders the raw pairs, primarily for debugging and logs.
func (h Header) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range h.raw {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", p.Key, p.Value)
	}
	b.WriteByte(']')
	return b.String()
}

// clone deep-copies the lookup state so mutations cannot leak between views.
func (h Header) clone() Header {
	out := Header{
		raw:    slices.Clone(h.raw),
		keys:   slices.Clone(h.keys),
		values: make(map[string][]string, len(h.values)),
	}
	for k, vs := range h.values {
		out.values[k] = slices.Clone(vs)
	}
	return out
}
