package headers

import "strings"

// MutableHeader is a case-insensitive header collection supporting writes.
// Mutations affect lookups only; the raw pairs captured at construction are
// left untouched.
type MutableHeader struct {
	Header
}

// NewMutable creates an empty MutableHeader.
func NewMutable() *MutableHeader {
	return &MutableHeader{Header: Header{values: make(map[string][]string)}}
}

// MutableFromPairs creates a MutableHeader seeded from raw wire pairs.
func MutableFromPairs(pairs []Pair) *MutableHeader {
	return &MutableHeader{Header: FromPairs(pairs)}
}

// MutableFromMap creates a MutableHeader seeded from a key/value map.
func MutableFromMap(m map[string]string) *MutableHeader {
	return &MutableHeader{Header: FromMap(m)}
}

// Set replaces all values for key with a single value.
func (h *MutableHeader) Set(key, value string) {
	k := strings.ToLower(key)
	if _, ok := h.values[k]; !ok {
		h.keys = append(h.keys, k)
	}
	h.values[k] = []string{value}
}

// Add appends a value for key, creating the key when absent. A value the
// key already holds is not duplicated.
func (h *MutableHeader) Add(key, value string) {
	h.add(strings.ToLower(key), value)
}

// Del removes key and all its values. Unknown keys are a no-op.
func (h *MutableHeader) Del(key string) {
	k := strings.ToLower(key)
	if _, ok := h.values[k]; !ok {
		return
	}
	delete(h.values, k)
	for i, existing := range h.keys {
		if existing == k {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
}

// Pop removes key and returns the values it held.
func (h *MutableHeader) Pop(key string) []string {
	vs := h.Values(key)
	h.Del(key)
	return vs
}

// Snapshot returns an immutable copy of the current state.
func (h *MutableHeader) Snapshot() Header {
	return h.Header.clone()
}
