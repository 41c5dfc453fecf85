// Package decode converts loosely typed data, such as maps produced by
// config files or parsed form bodies, into concrete struct values by
// round-tripping through JSON.
package decode

import (
	"net/url"

	"github.com/sugawarayuuta/sonnet"
)

// FromMap decodes a map into a value of type T. Struct fields follow the
// usual json tag rules.
func FromMap[T any](data map[string]any) (T, error) {
	var result T
	b, err := sonnet.Marshal(data)
	if err != nil {
		return result, err
	}
	err = sonnet.Unmarshal(b, &result)
	return result, err
}

// Map decodes a map into the value pointed to by v.
func Map(data map[string]any, v any) error {
	b, err := sonnet.Marshal(data)
	if err != nil {
		return err
	}
	return sonnet.Unmarshal(b, v)
}

// Values decodes URL-encoded values into the value pointed to by v.
// Single-valued keys decode as scalars; repeated keys decode as slices.
func Values(values url.Values, v any) error {
	data := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			data[key] = vals[0]
		} else {
			data[key] = vals
		}
	}
	return Map(data, v)
}
