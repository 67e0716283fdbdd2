package types

import (
	"database/sql/driver"
	"encoding/json"
	"reflect"
	"time"
)

// Codec encodes composite values (maps, slices, structs) into a single
// bindable value.
type Codec interface {
	Encode(v any) (any, error)
}

// JSONCodec encodes composite values as JSON text.
type JSONCodec struct{}

// Encode implements Codec.
func (JSONCodec) Encode(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// IsComposite reports whether v needs a Codec before it can be bound.
func IsComposite(v any) bool {
	switch v.(type) {
	case nil, []byte, time.Time, *time.Time, driver.Valuer:
		return false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}
