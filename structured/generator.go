package structured

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SchemaGenerator builds JSON Schemas from Go types via reflection. Field
// constraints come from `jsonschema` struct tags; names come from `json` tags.
type SchemaGenerator struct {
	visited map[reflect.Type]bool
}

// NewSchemaGenerator creates a new schema generator.
func NewSchemaGenerator() *SchemaGenerator {
	return &SchemaGenerator{visited: make(map[reflect.Type]bool)}
}

// Generate builds a schema for the given value's type.
func (g *SchemaGenerator) Generate(v any) (*JSONSchema, error) {
	return g.GenerateFromType(reflect.TypeOf(v))
}

// GenerateFromType builds a schema for a reflect.Type.
func (g *SchemaGenerator) GenerateFromType(t reflect.Type) (*JSONSchema, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot generate schema for nil type")
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return NewStringSchema(), nil
	case reflect.Bool:
		return NewBooleanSchema(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NewIntegerSchema(), nil
	case reflect.Float32, reflect.Float64:
		return NewNumberSchema(), nil
	case reflect.Slice, reflect.Array:
		items, err := g.GenerateFromType(t.Elem())
		if err != nil {
			return nil, err
		}
		return NewArraySchema(items), nil
	case reflect.Map:
		return NewObjectSchema(), nil
	case reflect.Struct:
		return g.generateStruct(t)
	case reflect.Interface:
		return &JSONSchema{}, nil
	default:
		return nil, fmt.Errorf("unsupported type for schema generation: %s", t.Kind())
	}
}

func (g *SchemaGenerator) generateStruct(t reflect.Type) (*JSONSchema, error) {
	if g.visited[t] {
		// Break recursion on self-referential types.
		return NewObjectSchema(), nil
	}
	g.visited[t] = true
	defer delete(g.visited, t)

	schema := NewObjectSchema()
	schema.Title = t.Name()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := jsonFieldName(field)
		if name == "-" {
			continue
		}

		prop, err := g.GenerateFromType(field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		required := isFieldRequired(field)
		if tag, ok := field.Tag.Lookup("jsonschema"); ok {
			tagRequired, err := applyJSONSchemaTag(prop, tag)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			required = required || tagRequired
		}

		schema.AddProperty(name, prop)
		if required {
			schema.AddRequired(name)
		}
	}
	return schema, nil
}

// jsonFieldName resolves the JSON name of a struct field.
func jsonFieldName(field reflect.StructField) string {
	tag, ok := field.Tag.Lookup("json")
	if !ok {
		return field.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

// isFieldRequired treats non-pointer fields without omitempty as required.
func isFieldRequired(field reflect.StructField) bool {
	if field.Type.Kind() == reflect.Ptr {
		return false
	}
	tag := field.Tag.Get("json")
	return !strings.Contains(tag, "omitempty")
}

// applyJSONSchemaTag applies constraints from a jsonschema tag. Options are
// comma separated, values use key=value. Returns whether the tag marks the
// field required.
func applyJSONSchemaTag(schema *JSONSchema, tag string) (bool, error) {
	required := false
	for _, opt := range splitTagParts(tag) {
		key, value, _ := strings.Cut(opt, "=")
		switch key {
		case "required":
			required = true
		case "description":
			schema.Description = value
		case "enum":
			for _, v := range strings.Split(value, "|") {
				schema.Enum = append(schema.Enum, v)
			}
		case "pattern":
			schema.Pattern = value
		case "default":
			schema.Default = value
		case "minimum":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return required, fmt.Errorf("invalid minimum %q: %w", value, err)
			}
			schema.Minimum = &f
		case "maximum":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return required, fmt.Errorf("invalid maximum %q: %w", value, err)
			}
			schema.Maximum = &f
		case "minLength":
			n, err := strconv.Atoi(value)
			if err != nil {
				return required, fmt.Errorf("invalid minLength %q: %w", value, err)
			}
			schema.MinLength = &n
		case "maxLength":
			n, err := strconv.Atoi(value)
			if err != nil {
				return required, fmt.Errorf("invalid maxLength %q: %w", value, err)
			}
			schema.MaxLength = &n
		case "minItems":
			n, err := strconv.Atoi(value)
			if err != nil {
				return required, fmt.Errorf("invalid minItems %q: %w", value, err)
			}
			schema.MinItems = &n
		case "maxItems":
			n, err := strconv.Atoi(value)
			if err != nil {
				return required, fmt.Errorf("invalid maxItems %q: %w", value, err)
			}
			schema.MaxItems = &n
		}
	}
	return required, nil
}

var schemaTagKeys = map[string]bool{
	"required": true, "description": true, "enum": true, "pattern": true,
	"default": true, "minimum": true, "maximum": true,
	"minLength": true, "maxLength": true, "minItems": true, "maxItems": true,
}

// splitTagParts splits a jsonschema tag on commas. A segment that does not
// start with a known option key is glued back onto the previous option, so
// free text values like descriptions may contain commas.
func splitTagParts(tag string) []string {
	var parts []string
	for _, p := range strings.Split(tag, ",") {
		key, _, _ := strings.Cut(p, "=")
		if len(parts) > 0 && !schemaTagKeys[strings.TrimSpace(key)] {
			parts[len(parts)-1] += "," + p
			continue
		}
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
