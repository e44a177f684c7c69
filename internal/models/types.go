package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringArray is a tag set persisted as a jsonb array.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string(a))
}

func (a *StringArray) Scan(value interface{}) error {
	return scanJSON(value, a)
}

func (StringArray) GormDataType() string {
	return "jsonb"
}

// Has reports whether tag is present.
func (a StringArray) Has(tag string) bool {
	for _, t := range a {
		if t == tag {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every requested tag is present.
func (a StringArray) ContainsAll(tags []string) bool {
	for _, t := range tags {
		if !a.Has(t) {
			return false
		}
	}
	return true
}

// Overlaps reports whether at least one requested tag is present.
func (a StringArray) Overlaps(tags []string) bool {
	for _, t := range tags {
		if a.Has(t) {
			return true
		}
	}
	return false
}

// Vector is an embedding persisted as a jsonb float array.
type Vector []float32

func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return json.Marshal([]float32{})
	}
	return json.Marshal([]float32(v))
}

func (v *Vector) Scan(value interface{}) error {
	return scanJSON(value, v)
}

func (Vector) GormDataType() string {
	return "jsonb"
}

// JSONMap is an opaque structured bag persisted as jsonb.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]interface{}{})
	}
	return json.Marshal(map[string]interface{}(m))
}

func (m *JSONMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

func (JSONMap) GormDataType() string {
	return "jsonb"
}

func scanJSON(value interface{}, target interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, target)
	case string:
		return json.Unmarshal([]byte(v), target)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}
