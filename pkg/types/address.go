package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is the single accepted shipping address shape.
type Address struct {
	Street  string `json:"street" validate:"required,max=255"`
	City    string `json:"city" validate:"required,max=120"`
	State   string `json:"state" validate:"required,max=120"`
	Country string `json:"country" validate:"required,max=120"`
	ZipCode string `json:"zip_code" validate:"required,max=20"`
	Phone   string `json:"phone" validate:"required,max=32"`
}

// Normalize trims surrounding whitespace from every field.
func (a Address) Normalize() Address {
	return Address{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		Country: strings.TrimSpace(a.Country),
		ZipCode: strings.TrimSpace(a.ZipCode),
		Phone:   strings.TrimSpace(a.Phone),
	}
}

// MissingFields lists the json names of blank fields.
func (a Address) MissingFields() []string {
	n := a.Normalize()
	missing := []string{}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"street", n.Street},
		{"city", n.City},
		{"state", n.State},
		{"country", n.Country},
		{"zip_code", n.ZipCode},
		{"phone", n.Phone},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// IsComplete reports whether every field is present.
func (a Address) IsComplete() bool {
	return len(a.MissingFields()) == 0
}

// Value stores the address as a JSON document.
func (a Address) Value() (driver.Value, error) {
	if !a.IsComplete() {
		return nil, fmt.Errorf("address: missing %s", strings.Join(a.MissingFields(), ", "))
	}
	payload, err := json.Marshal(a.Normalize())
	if err != nil {
		return nil, fmt.Errorf("address: marshal: %w", err)
	}
	return string(payload), nil
}

// Scan decodes the JSON document written by Value.
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("address: unsupported scan type %T", value)
	}
	if err := json.Unmarshal(raw, a); err != nil {
		return fmt.Errorf("address: decode: %w", err)
	}
	return nil
}
