package models

import "encoding/json"

// Optional wraps a value with a presence flag. When used in a patch struct,
// Set is false for keys absent from the JSON payload and true otherwise,
// including for explicit null (which leaves Value at its zero value).
type Optional[T any] struct {
	Set   bool
	Value T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Some returns an Optional with the given value present.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}
