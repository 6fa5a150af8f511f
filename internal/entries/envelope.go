package entries

import (
	"bytes"
	"encoding/json"
	"fmt"

	"oosc/internal/core"
)

// listKeys are the envelope keys that may wrap a list response, in the
// order they are tried.
var listKeys = []string{"entries", "data"}

// DecodeEntries normalises a list response body into entries. The body may
// be a bare array or an object wrapping the array under "entries" or
// "data". Any other shape yields an empty list. Array elements that are
// null or not objects become nil entries.
func DecodeEntries(body []byte) ([]*core.Entry, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []*core.Entry{}, nil
	}
	if body[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		for _, key := range listKeys {
			if raw, ok := env[key]; ok && isArray(raw) {
				return decodeArray(raw)
			}
		}
		return []*core.Entry{}, nil
	}
	if body[0] == '[' {
		return decodeArray(body)
	}
	return []*core.Entry{}, nil
}

// DecodeEntry normalises a single-entry response, either wrapped under
// "entry" or bare.
func DecodeEntry(body []byte) (core.Entry, error) {
	body = bytes.TrimSpace(body)
	var env struct {
		Entry json.RawMessage `json:"entry"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return core.Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	raw := body
	if isObject(env.Entry) {
		raw = env.Entry
	}
	var e core.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return core.Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	return e, nil
}

func decodeArray(raw json.RawMessage) ([]*core.Entry, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	out := make([]*core.Entry, len(items))
	for i, item := range items {
		if !isObject(item) {
			continue
		}
		var e core.Entry
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}
		out[i] = &e
	}
	return out, nil
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
