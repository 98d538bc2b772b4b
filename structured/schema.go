// Package structured provides schema-backed structured output: JSON Schema
// generation from Go types, validation with field paths, and a typed
// generate-validate-retry loop on top of an llm.Provider.
package structured

import (
	"encoding/json"
	"fmt"
)

// SchemaType represents JSON Schema types.
type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
)

// JSONSchema represents a JSON Schema definition covering the subset the
// support-reply contract needs.
type JSONSchema struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type SchemaType `json:"type,omitempty"`

	Properties map[string]*JSONSchema `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`

	Items    *JSONSchema `json:"items,omitempty"`
	MinItems *int        `json:"minItems,omitempty"`
	MaxItems *int        `json:"maxItems,omitempty"`

	Enum []any `json:"enum,omitempty"`

	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`

	Default any `json:"default,omitempty"`
}

// NewObjectSchema creates a new object schema.
func NewObjectSchema() *JSONSchema {
	return &JSONSchema{
		Type:       TypeObject,
		Properties: make(map[string]*JSONSchema),
	}
}

// NewStringSchema creates a new string schema.
func NewStringSchema() *JSONSchema { return &JSONSchema{Type: TypeString} }

// NewNumberSchema creates a new number schema.
func NewNumberSchema() *JSONSchema { return &JSONSchema{Type: TypeNumber} }

// NewIntegerSchema creates a new integer schema.
func NewIntegerSchema() *JSONSchema { return &JSONSchema{Type: TypeInteger} }

// NewBooleanSchema creates a new boolean schema.
func NewBooleanSchema() *JSONSchema { return &JSONSchema{Type: TypeBoolean} }

// NewArraySchema creates a new array schema with the given items schema.
func NewArraySchema(items *JSONSchema) *JSONSchema {
	return &JSONSchema{Type: TypeArray, Items: items}
}

// AddProperty adds a property to an object schema.
func (s *JSONSchema) AddProperty(name string, prop *JSONSchema) *JSONSchema {
	if s.Properties == nil {
		s.Properties = make(map[string]*JSONSchema)
	}
	s.Properties[name] = prop
	return s
}

// AddRequired appends required property names.
func (s *JSONSchema) AddRequired(names ...string) *JSONSchema {
	s.Required = append(s.Required, names...)
	return s
}

// WithEnum sets the enum values.
func (s *JSONSchema) WithEnum(values ...any) *JSONSchema {
	s.Enum = values
	return s
}

// WithDescription sets the description.
func (s *JSONSchema) WithDescription(desc string) *JSONSchema {
	s.Description = desc
	return s
}

// IsRequired reports whether a property is required.
func (s *JSONSchema) IsRequired(name string) bool {
	for _, req := range s.Required {
		if req == name {
			return true
		}
	}
	return false
}

// ToJSONIndent serializes the schema to indented JSON.
func (s *JSONSchema) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// FromJSON deserializes a schema from JSON.
func FromJSON(data []byte) (*JSONSchema, error) {
	var schema JSONSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON schema: %w", err)
	}
	return &schema, nil
}
