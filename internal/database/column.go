package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JsonColumn is a container for values which are stored in the database
// as a JSON document (JSONB in postgres, TEXT in sqlite).
type JsonColumn[T any] struct {
	val T
}

func NewJsonColumn[T any](val T) JsonColumn[T] {
	return JsonColumn[T]{val: val}
}

func (j *JsonColumn[T]) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		var zero T
		j.val = zero
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T in to JSON column", src)
	}

	if len(data) == 0 {
		var zero T
		j.val = zero
		return nil
	}

	return json.Unmarshal(data, &j.val)
}

func (j JsonColumn[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(j.val)
	if err != nil {
		return nil, err
	}

	return string(data), nil
}

func (j *JsonColumn[T]) Get() *T {
	return &j.val
}
