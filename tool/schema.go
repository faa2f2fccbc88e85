package tool

import (
	"fmt"
	"sort"
)

// Kind tags a parameter variant. Each kind carries its own set of
// constraints (bounds, enums, item/property specs).
type Kind string

// Supported parameter kinds.
const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// ParamSpec describes one parameter as a tagged variant: Kind selects the
// variant, the remaining fields constrain it. Bounds apply to numbers
// (Min/Max), lengths to strings and arrays (MinLen/MaxLen), Enum to strings,
// Items to array elements and Properties to object fields.
type ParamSpec struct {
	Kind        Kind                  `json:"kind"`
	Description string                `json:"description,omitempty"`
	Required    bool                  `json:"required,omitempty"`
	Default     any                   `json:"default,omitempty"`
	Enum        []string              `json:"enum,omitempty"`
	Min         *float64              `json:"min,omitempty"`
	Max         *float64              `json:"max,omitempty"`
	MinLen      *int                  `json:"min_len,omitempty"`
	MaxLen      *int                  `json:"max_len,omitempty"`
	Items       *ParamSpec            `json:"items,omitempty"`
	Properties  map[string]*ParamSpec `json:"properties,omitempty"`
}

// Schema maps parameter names to their specs; the top level is always an
// object.
type Schema map[string]*ParamSpec

// Validate checks args against the schema. It returns the sanitized argument
// map (defaults applied, numbers normalized to float64, unknown keys
// dropped) plus a list of human-readable validation errors. An empty error
// list means the sanitized map is safe to hand to a tool implementation.
// Ordinary invalid input never produces a Go error or panic.
func (s Schema) Validate(args map[string]any) (map[string]any, []string) {
	sanitized := make(map[string]any, len(s))
	var errs []string

	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := s[name]
		value, present := args[name]
		if !present {
			if spec.Default != nil {
				sanitized[name] = spec.Default
				continue
			}
			if spec.Required {
				errs = append(errs, fmt.Sprintf("field %q: required field is missing", name))
			}
			continue
		}

		clean, fieldErrs := spec.sanitize(name, value)
		if len(fieldErrs) > 0 {
			errs = append(errs, fieldErrs...)
			continue
		}
		sanitized[name] = clean
	}

	return sanitized, errs
}

func (spec *ParamSpec) sanitize(path string, value any) (any, []string) {
	switch spec.Kind {
	case KindString:
		return spec.sanitizeString(path, value)
	case KindNumber:
		return spec.sanitizeNumber(path, value)
	case KindBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, []string{fmt.Sprintf("field %q: expected boolean, got %T", path, value)}
		}
		return b, nil
	case KindArray:
		return spec.sanitizeArray(path, value)
	case KindObject:
		return spec.sanitizeObject(path, value)
	default:
		return nil, []string{fmt.Sprintf("field %q: unknown parameter kind %q", path, spec.Kind)}
	}
}

func (spec *ParamSpec) sanitizeString(path string, value any) (any, []string) {
	str, ok := value.(string)
	if !ok {
		return nil, []string{fmt.Sprintf("field %q: expected string, got %T", path, value)}
	}
	if spec.MinLen != nil && len(str) < *spec.MinLen {
		return nil, []string{fmt.Sprintf("field %q: length %d is below minimum %d", path, len(str), *spec.MinLen)}
	}
	if spec.MaxLen != nil && len(str) > *spec.MaxLen {
		return nil, []string{fmt.Sprintf("field %q: length %d exceeds maximum %d", path, len(str), *spec.MaxLen)}
	}
	if len(spec.Enum) > 0 {
		for _, allowed := range spec.Enum {
			if str == allowed {
				return str, nil
			}
		}
		return nil, []string{fmt.Sprintf("field %q: value %q is not one of %v", path, str, spec.Enum)}
	}
	return str, nil
}

func (spec *ParamSpec) sanitizeNumber(path string, value any) (any, []string) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	default:
		return nil, []string{fmt.Sprintf("field %q: expected number, got %T", path, value)}
	}
	if spec.Min != nil && n < *spec.Min {
		return nil, []string{fmt.Sprintf("field %q: value %v is below minimum %v", path, n, *spec.Min)}
	}
	if spec.Max != nil && n > *spec.Max {
		return nil, []string{fmt.Sprintf("field %q: value %v exceeds maximum %v", path, n, *spec.Max)}
	}
	return n, nil
}

func (spec *ParamSpec) sanitizeArray(path string, value any) (any, []string) {
	arr, ok := value.([]any)
	if !ok {
		return nil, []string{fmt.Sprintf("field %q: expected array, got %T", path, value)}
	}
	if spec.MinLen != nil && len(arr) < *spec.MinLen {
		return nil, []string{fmt.Sprintf("field %q: length %d is below minimum %d", path, len(arr), *spec.MinLen)}
	}
	if spec.MaxLen != nil && len(arr) > *spec.MaxLen {
		return nil, []string{fmt.Sprintf("field %q: length %d exceeds maximum %d", path, len(arr), *spec.MaxLen)}
	}
	if spec.Items == nil {
		return arr, nil
	}
	var errs []string
	clean := make([]any, 0, len(arr))
	for i, item := range arr {
		c, itemErrs := spec.Items.sanitize(fmt.Sprintf("%s[%d]", path, i), item)
		if len(itemErrs) > 0 {
			errs = append(errs, itemErrs...)
			continue
		}
		clean = append(clean, c)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return clean, nil
}

func (spec *ParamSpec) sanitizeObject(path string, value any) (any, []string) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, []string{fmt.Sprintf("field %q: expected object, got %T", path, value)}
	}
	if len(spec.Properties) == 0 {
		return obj, nil
	}

	var errs []string
	clean := make(map[string]any, len(spec.Properties))

	names := make([]string, 0, len(spec.Properties))
	for name := range spec.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		propSpec := spec.Properties[name]
		propPath := path + "." + name
		propValue, present := obj[name]
		if !present {
			if propSpec.Default != nil {
				clean[name] = propSpec.Default
				continue
			}
			if propSpec.Required {
				errs = append(errs, fmt.Sprintf("field %q: required field is missing", propPath))
			}
			continue
		}
		c, propErrs := propSpec.sanitize(propPath, propValue)
		if len(propErrs) > 0 {
			errs = append(errs, propErrs...)
			continue
		}
		clean[name] = c
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return clean, nil
}

// JSONSchema converts the schema to the minimal JSON Schema object shape
// expected by model providers for tool descriptors.
func (s Schema) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s))
	var required []string

	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := s[name]
		properties[name] = spec.jsonSchema()
		if spec.Required {
			required = append(required, name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (spec *ParamSpec) jsonSchema() map[string]any {
	out := map[string]any{"type": string(spec.Kind)}
	if spec.Description != "" {
		out["description"] = spec.Description
	}
	if spec.Default != nil {
		out["default"] = spec.Default
	}
	if len(spec.Enum) > 0 {
		out["enum"] = spec.Enum
	}
	if spec.Min != nil {
		out["minimum"] = *spec.Min
	}
	if spec.Max != nil {
		out["maximum"] = *spec.Max
	}
	if spec.Kind == KindArray && spec.Items != nil {
		out["items"] = spec.Items.jsonSchema()
	}
	if spec.Kind == KindObject && len(spec.Properties) > 0 {
		properties := make(map[string]any, len(spec.Properties))
		var required []string

		names := make([]string, 0, len(spec.Properties))
		for name := range spec.Properties {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			properties[name] = spec.Properties[name].jsonSchema()
			if spec.Properties[name].Required {
				required = append(required, name)
			}
		}
		out["properties"] = properties
		if len(required) > 0 {
			out["required"] = required
		}
	}
	return out
}
