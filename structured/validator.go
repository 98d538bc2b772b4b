package structured

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError describes a single validation failure with the JSON path where
// it occurred.
type ParseError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors aggregates every failure found in one validation pass so
// the model can fix them all in a single retry.
type ValidationErrors struct {
	Errors []ParseError `json:"errors"`
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Errors))
	for i := range e.Errors {
		msgs[i] = e.Errors[i].Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationErrors) add(path, format string, args ...any) {
	e.Errors = append(e.Errors, ParseError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// SchemaValidator validates decoded JSON against a schema.
type SchemaValidator interface {
	Validate(data []byte, schema *JSONSchema) error
}

// DefaultValidator is the built-in SchemaValidator.
type DefaultValidator struct{}

// NewValidator creates a DefaultValidator.
func NewValidator() *DefaultValidator { return &DefaultValidator{} }

// Validate checks raw JSON against the schema and returns *ValidationErrors
// on failure.
func (v *DefaultValidator) Validate(data []byte, schema *JSONSchema) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &ValidationErrors{Errors: []ParseError{{Message: fmt.Sprintf("invalid JSON: %v", err)}}}
	}
	errs := &ValidationErrors{}
	v.validateValue(value, schema, "", errs)
	if len(errs.Errors) > 0 {
		return errs
	}
	return nil
}

func (v *DefaultValidator) validateValue(value any, schema *JSONSchema, path string, errs *ValidationErrors) {
	if schema == nil {
		return
	}
	if value == nil {
		// Required-ness is enforced at the object level.
		return
	}

	switch schema.Type {
	case TypeString:
		v.validateString(value, schema, path, errs)
	case TypeNumber:
		v.validateNumber(value, schema, path, errs)
	case TypeInteger:
		v.validateInteger(value, schema, path, errs)
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			errs.add(path, "expected boolean, got %T", value)
		}
	case TypeObject:
		v.validateObject(value, schema, path, errs)
	case TypeArray:
		v.validateArray(value, schema, path, errs)
	}

	if len(schema.Enum) > 0 {
		v.validateEnum(value, schema, path, errs)
	}
}

func (v *DefaultValidator) validateString(value any, schema *JSONSchema, path string, errs *ValidationErrors) {
	s, ok := value.(string)
	if !ok {
		errs.add(path, "expected string, got %T", value)
		return
	}
	if schema.MinLength != nil && len(s) < *schema.MinLength {
		errs.add(path, "string length %d is below minimum %d", len(s), *schema.MinLength)
	}
	if schema.MaxLength != nil && len(s) > *schema.MaxLength {
		errs.add(path, "string length %d exceeds maximum %d", len(s), *schema.MaxLength)
	}
	if schema.Pattern != "" {
		re, err := regexp.Compile(schema.Pattern)
		if err != nil {
			errs.add(path, "invalid pattern %q in schema", schema.Pattern)
		} else if !re.MatchString(s) {
			errs.add(path, "value %q does not match pattern %q", s, schema.Pattern)
		}
	}
}

func (v *DefaultValidator) validateNumber(value any, schema *JSONSchema, path string, errs *ValidationErrors) {
	f, ok := toFloat64(value)
	if !ok {
		errs.add(path, "expected number, got %T", value)
		return
	}
	v.validateNumericConstraints(f, schema, path, errs)
}

func (v *DefaultValidator) validateInteger(value any, schema *JSONSchema, path string, errs *ValidationErrors) {
	f, ok := toFloat64(value)
	if !ok {
		errs.add(path, "expected integer, got %T", value)
		return
	}
	if f != float64(int64(f)) {
		errs.add(path, "expected integer, got %v", f)
		return
	}
	v.validateNumericConstraints(f, schema, path, errs)
}

func (v *DefaultValidator) validateNumericConstraints(f float64, schema *JSONSchema, path string, errs *ValidationErrors) {
	if schema.Minimum != nil && f < *schema.Minimum {
		errs.add(path, "value %v is below minimum %v", f, *schema.Minimum)
	}
	if schema.Maximum != nil && f > *schema.Maximum {
		errs.add(path, "value %v exceeds maximum %v", f, *schema.Maximum)
	}
}

func (v *DefaultValidator) validateObject(value any, schema *JSONSchema, path string, errs *ValidationErrors) {
	obj, ok := value.(map[string]any)
	if !ok {
		errs.add(path, "expected object, got %T", value)
		return
	}
	for _, req := range schema.Required {
		if _, present := obj[req]; !present {
			errs.add(joinPath(path, req), "required property is missing")
		}
	}
	for name, prop := range schema.Properties {
		if val, present := obj[name]; present {
			v.validateValue(val, prop, joinPath(path, name), errs)
		}
	}
}

func (v *DefaultValidator) validateArray(value any, schema *JSONSchema, path string, errs *ValidationErrors) {
	arr, ok := value.([]any)
	if !ok {
		errs.add(path, "expected array, got %T", value)
		return
	}
	if schema.MinItems != nil && len(arr) < *schema.MinItems {
		errs.add(path, "array length %d is below minimum %d", len(arr), *schema.MinItems)
	}
	if schema.MaxItems != nil && len(arr) > *schema.MaxItems {
		errs.add(path, "array length %d exceeds maximum %d", len(arr), *schema.MaxItems)
	}
	if schema.Items != nil {
		for i, item := range arr {
			v.validateValue(item, schema.Items, fmt.Sprintf("%s[%d]", path, i), errs)
		}
	}
}

func (v *DefaultValidator) validateEnum(value any, schema *JSONSchema, path string, errs *ValidationErrors) {
	for _, allowed := range schema.Enum {
		if equalValues(value, allowed) {
			return
		}
	}
	errs.add(path, "value %v is not one of the allowed values %v", value, schema.Enum)
}

func toFloat64(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func equalValues(a, b any) bool {
	if a == b {
		return true
	}
	// JSON decodes numbers as float64; enum values may be typed differently.
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}
