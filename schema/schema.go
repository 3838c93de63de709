// Package schema defines runtime schema objects used to constrain generative
// model output. A Schema serves double duty: it renders the format
// instructions interpolated into prompts, and it validates and coerces the
// model's JSON response before it is decoded into a typed record. Any
// missing required field or uncoercible type is a parse error; callers
// substitute their fallback record rather than surfacing broken output.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type enumerates the JSON types a field may carry.
type Type string

const (
	String  Type = "string"
	Integer Type = "integer"
	Number  Type = "number"
	Boolean Type = "boolean"
	Array   Type = "array"
	Object  Type = "object"
)

// Field describes one schema field: its wire name, expected type, and
// whether the model must emit it.
type Field struct {
	Name        string
	Type        Type
	Required    bool
	Description string

	// Elem describes array element types. Nil-element arrays accept any
	// element (free-form lists).
	Elem *Field

	// Fields describes nested object fields. Objects with no Fields are
	// free-form: any JSON object is accepted as-is.
	Fields []Field
}

// Schema is an ordered collection of fields describing one record type.
type Schema struct {
	Name   string
	Fields []Field
}

// FormatInstructions renders the machine-readable output contract appended
// to every prompt: the exact field names and types the model must emit.
func (s *Schema) FormatInstructions() string {
	var b strings.Builder
	b.WriteString("The output should be a single JSON object")
	if s.Name != "" {
		fmt.Fprintf(&b, " describing %s", s.Name)
	}
	b.WriteString(" with the following fields:\n")
	writeFieldLines(&b, s.Fields, 0)
	b.WriteString("\nRespond with the JSON object only. Do not include any text outside the JSON. Optional fields may be null or omitted.")
	return b.String()
}

func writeFieldLines(b *strings.Builder, fields []Field, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range fields {
		req := "optional"
		if f.Required {
			req = "required"
		}
		fmt.Fprintf(b, "%s- %q (%s, %s)", indent, f.Name, typeLabel(f), req)
		if f.Description != "" {
			fmt.Fprintf(b, ": %s", f.Description)
		}
		b.WriteString("\n")
		if f.Type == Array && f.Elem != nil && f.Elem.Type == Object && len(f.Elem.Fields) > 0 {
			fmt.Fprintf(b, "%s  each element is an object with:\n", indent)
			writeFieldLines(b, f.Elem.Fields, depth+2)
		} else if f.Type == Object && len(f.Fields) > 0 {
			writeFieldLines(b, f.Fields, depth+1)
		}
	}
}

func typeLabel(f Field) string {
	if f.Type != Array {
		return string(f.Type)
	}
	if f.Elem == nil {
		return "array"
	}
	return "array of " + string(f.Elem.Type)
}

// Parse locates the JSON payload in a raw model response, validates it
// against the schema, coerces near-miss types, and decodes the result into
// dst. dst must be a pointer to a struct whose json tags match the schema's
// field names.
func (s *Schema) Parse(response string, dst any) error {
	raw, err := ExtractJSON(response)
	if err != nil {
		return err
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return fmt.Errorf("schema %s: invalid JSON: %w", s.Name, err)
	}

	clean, err := coerceFields(s.Name, s.Fields, obj)
	if err != nil {
		return err
	}

	buf, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("schema %s: re-encoding: %w", s.Name, err)
	}
	if err := json.Unmarshal(buf, dst); err != nil {
		return fmt.Errorf("schema %s: decoding into record: %w", s.Name, err)
	}
	return nil
}

// coerceFields validates a decoded object against a field list. Unknown
// fields are dropped; known fields are type-checked and coerced.
func coerceFields(schemaName string, fields []Field, obj map[string]any) (map[string]any, error) {
	clean := make(map[string]any, len(fields))
	for _, f := range fields {
		v, ok := obj[f.Name]
		if !ok || v == nil {
			if f.Required {
				return nil, fmt.Errorf("schema %s: missing required field %q", schemaName, f.Name)
			}
			continue
		}
		cv, err := coerceValue(schemaName, f, v)
		if err != nil {
			return nil, err
		}
		clean[f.Name] = cv
	}
	return clean, nil
}

func coerceValue(schemaName string, f Field, v any) (any, error) {
	switch f.Type {
	case String:
		return coerceString(schemaName, f.Name, v)
	case Integer:
		return coerceInteger(schemaName, f.Name, v)
	case Number:
		return coerceNumber(schemaName, f.Name, v)
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, typeError(schemaName, f.Name, "boolean", v)
		}
		return b, nil
	case Array:
		items, ok := v.([]any)
		if !ok {
			return nil, typeError(schemaName, f.Name, "array", v)
		}
		if f.Elem == nil {
			return items, nil
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			ev, err := coerceValue(schemaName, Field{Name: fmt.Sprintf("%s[%d]", f.Name, i), Type: f.Elem.Type, Elem: f.Elem.Elem, Fields: f.Elem.Fields, Required: true}, item)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	case Object:
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, typeError(schemaName, f.Name, "object", v)
		}
		if len(f.Fields) == 0 {
			return obj, nil // free-form object
		}
		return coerceFields(schemaName, f.Fields, obj)
	default:
		return nil, fmt.Errorf("schema %s: field %q has unknown type %q", schemaName, f.Name, f.Type)
	}
}

func coerceString(schemaName, name string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		// Models frequently emit bare numbers for numeric-looking string
		// fields ("45" as 45). Accept them.
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10), nil
		}
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	}
	return "", typeError(schemaName, name, "string", v)
}

func coerceInteger(schemaName, name string, v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("schema %s: field %q: expected integer, got %v", schemaName, name, t)
		}
		return int64(t), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("schema %s: field %q: expected integer, got %q", schemaName, name, t)
		}
		return n, nil
	}
	return 0, typeError(schemaName, name, "integer", v)
}

func coerceNumber(schemaName, name string, v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("schema %s: field %q: expected number, got %q", schemaName, name, t)
		}
		return n, nil
	}
	return 0, typeError(schemaName, name, "number", v)
}

func typeError(schemaName, name, want string, got any) error {
	return fmt.Errorf("schema %s: field %q: expected %s, got %T", schemaName, name, want, got)
}

// ExtractJSON locates the JSON object in a model response. It handles
// fenced code blocks and prose wrapping the payload; the outermost brace
// pair wins.
func ExtractJSON(response string) (string, error) {
	text := strings.TrimSpace(response)

	// Prefer the contents of a fenced block when present.
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			text = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return text[start : end+1], nil
}
