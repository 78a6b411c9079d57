// Package ns provides a string type mapping the empty string to SQL NULL.
package ns

import (
	"database/sql/driver"
	"fmt"
)

// NullString is stored as NULL when empty and scans NULL back as empty.
type NullString string

func (ns *NullString) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*ns = ""
	case []byte:
		*ns = NullString(v)
	case string:
		*ns = NullString(v)
	default:
		return fmt.Errorf("cannot convert %v of type %T to NullString", value, value)
	}
	return nil
}

func (ns NullString) Value() (driver.Value, error) {
	if ns == "" {
		return nil, nil
	}
	return string(ns), nil
}

func (ns NullString) String() string {
	return string(ns)
}
