package encoding

import (
	jsoniter "github.com/json-iterator/go"
)

// JSON is the codec used for every RGS payload, cache value and websocket frame.
var JSON = jsoniter.ConfigCompatibleWithStandardLibrary

// RawMessage defers decoding of a nested value.
type RawMessage = jsoniter.RawMessage

func Marshal(v any) ([]byte, error) { return JSON.Marshal(v) }

func Unmarshal(data []byte, v any) error { return JSON.Unmarshal(data, v) }

// ToJson renders v for log fields, empty on failure.
func ToJson(v any) string {
	s, _ := JSON.MarshalToString(v)
	return s
}
