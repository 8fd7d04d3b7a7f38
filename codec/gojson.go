package codec

import gojson "github.com/goccy/go-json"

// GoJSON produces the same documents as JSON through goccy/go-json. Rendered
// payloads are marshaled on every upload cycle, so the faster path is the
// default.
type GoJSON struct{}

func (GoJSON) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

// Name returns "go-json".
func (GoJSON) Name() string { return "go-json" }
