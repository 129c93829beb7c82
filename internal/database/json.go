package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// JsonColumn wraps a Go value stored in a JSONB column, implementing
// the sql Scanner/Valuer pair so stores can read and write structured
// payloads without hand-rolling the marshalling at every call site.
type JsonColumn[T any] struct {
	val *T
}

func NewJsonColumn[T any](val T) JsonColumn[T] {
	return JsonColumn[T]{val: &val}
}

// Get returns the wrapped value, or nil if the column was NULL.
func (col *JsonColumn[T]) Get() *T { return col.val }

func (col *JsonColumn[T]) Scan(src any) error {
	if src == nil {
		col.val = nil
		return nil
	}

	var raw []byte
	switch src := src.(type) {
	case []byte:
		raw = src
	case string:
		raw = []byte(src)
	default:
		return fmt.Errorf("cannot scan %T into JsonColumn", src)
	}

	val := new(T)
	if err := json.Unmarshal(raw, val); err != nil {
		return fmt.Errorf("failed to unmarshal JSON column: %w", err)
	}

	col.val = val
	return nil
}

func (col JsonColumn[T]) Value() (driver.Value, error) {
	if col.val == nil {
		return nil, nil
	}

	raw, err := json.Marshal(col.val)
	if err != nil {
		return nil, errors.Join(errors.New("failed to marshal JSON column"), err)
	}

	return raw, nil
}
