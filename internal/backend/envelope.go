package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MaxEnvelopeDepth is how many data layers the backend may wrap around a payload.
const MaxEnvelopeDepth = 2

// Envelope is a JSON response with its data wrappers removed.
//
// The rule: while the payload is an object whose "data" member is present
// and not null, replace the payload with that member, at most
// MaxEnvelopeDepth times. {"data":{"data":X}} yields X at depth 2,
// {"data":X} yields X at depth 1, and anything else is returned as is.
type Envelope struct {
	Payload json.RawMessage
	Depth   int
}

// Unwrap applies the envelope rule to raw.
func Unwrap(raw []byte) (Envelope, error) {
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return Envelope{}, fmt.Errorf("response is not valid JSON")
	}
	env := Envelope{Payload: json.RawMessage(raw)}
	for env.Depth < MaxEnvelopeDepth {
		inner, ok := dataMember(env.Payload)
		if !ok {
			break
		}
		env.Payload = inner
		env.Depth++
	}
	return env, nil
}

func dataMember(raw json.RawMessage) (json.RawMessage, bool) {
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	inner, ok := obj["data"]
	if !ok || string(bytes.TrimSpace(inner)) == "null" {
		return nil, false
	}
	return bytes.TrimSpace(inner), true
}
