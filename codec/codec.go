// Package codec selects how payloads, envelopes and snapshot sections turn
// into bytes.
//
// Every persisted artifact records its codec name in a header, so bytes
// written under an older default stay readable: loading resolves the codec
// ByName instead of assuming the current one.
package codec

import "fmt"

// Codec turns values into bytes and back. Codecs carry no state, so one
// instance can serve any number of goroutines.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default encodes newly written artifacts. Loading never consults it.
var Default Codec = GoJSON{}

// builtin maps stable names to the codecs shipped with the library.
var builtin = map[string]Codec{
	"json":    JSON{},
	"go-json": GoJSON{},
}

// ByName resolves the codec recorded in a header. ok is false for names no
// built-in answers to.
func ByName(name string) (Codec, bool) {
	c, ok := builtin[name]
	return c, ok
}

// MustMarshal encodes v with c, or Default when c is nil, and panics on
// failure. Meant for tests and benchmarks.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	data, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("%s: marshal: %w", c.Name(), err))
	}
	return data
}
