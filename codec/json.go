package codec

import "encoding/json"

// JSON is the standard-library codec. Slowest of the built-ins, but free of
// dependencies, which suits small tools that only ever read payloads back.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns "json".
func (JSON) Name() string { return "json" }
