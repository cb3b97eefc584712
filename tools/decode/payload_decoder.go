package decode

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// DecodePayload decodes the generic `data` object of an event envelope into a
// typed payload struct T. Field names follow the `json` tag. Decoding is
// weakly typed so "5" -> int and 1.0 -> int64 survive sloppy clients.
func DecodePayload[T any](data map[string]any) (*T, error) {
	if data == nil {
		return nil, fmt.Errorf("payload is nil")
	}
	var out T
	decCfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook:       floatToIntHook(),
	}
	dec, err := mapstructure.NewDecoder(decCfg)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}

// DecodeRaw unmarshals raw JSON into a map and decodes it via DecodePayload.
func DecodeRaw[T any](raw json.RawMessage) (*T, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return DecodePayload[T](m)
}

// floatToIntHook converts float64 (the default JSON number type) into the
// integer kinds the payload structs declare.
func floatToIntHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float64 {
			return data, nil
		}
		switch to {
		case reflect.Int:
			return int(data.(float64)), nil
		case reflect.Int32:
			return int32(data.(float64)), nil
		case reflect.Int64:
			return int64(data.(float64)), nil
		}
		return data, nil
	}
}
