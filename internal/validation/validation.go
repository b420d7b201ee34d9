// Package validation implements the pure, schema-driven argument
// validation pipeline (spec §4.3): synonym normalization, shape check,
// required-field check, per-field type check, per-field bounds check,
// and cross-field invariants/defaults. The pipeline never touches the
// database and is deterministic — property P3.
package validation

import (
	"fmt"
	"unicode/utf8"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/catalog"
)

// CrossFieldFunc applies per-tool defaults and invariants after the
// per-field checks pass (spec §4.3 phase 6). It receives the args map
// (already normalized and type-checked) and may mutate it in place,
// returning an error to fail the whole validation.
type CrossFieldFunc func(args map[string]interface{}) error

// Validate runs all six phases against schema and raw, returning the
// resulting canonical argument map or a *aidiserr.AIDISError of kind
// ValidationError.
func Validate(schema catalog.Schema, raw interface{}, crossField CrossFieldFunc) (map[string]interface{}, error) {
	// Phase 2: shape check.
	args, ok := raw.(map[string]interface{})
	if !ok {
		if raw == nil {
			args = map[string]interface{}{}
		} else {
			return nil, aidiserr.Validation("", "shape", "arguments must be an object")
		}
	} else {
		// Defensive copy: the pipeline must not mutate the caller's map.
		copied := make(map[string]interface{}, len(args))
		for k, v := range args {
			copied[k] = v
		}
		args = copied
	}

	// Phase 1: synonym normalization (shallow, top-level only).
	normalize(schema, args)

	// Phase 3: required-field check.
	for _, f := range schema.Fields {
		if f.Required {
			if _, present := args[f.Name]; !present {
				return nil, aidiserr.Validation(f.Name, "missing", fmt.Sprintf("%s is required", f.Name))
			}
		}
	}

	// Phase 4 + 5: per-field type and bounds checks.
	for _, f := range schema.Fields {
		v, present := args[f.Name]
		if !present {
			continue
		}
		if err := checkField(f, v); err != nil {
			return nil, err
		}
	}

	// Phase 6: cross-field invariants and defaults.
	if crossField != nil {
		if err := crossField(args); err != nil {
			return nil, err
		}
	}

	return args, nil
}

// normalize rewrites declared aliases to their canonical field name. If
// both the alias and the canonical field are present, the canonical wins
// and the alias is discarded (spec §4.3 phase 1, property P4).
func normalize(schema catalog.Schema, args map[string]interface{}) {
	for _, f := range schema.Fields {
		if len(f.Aliases) == 0 {
			continue
		}
		_, canonicalPresent := args[f.Name]
		for _, alias := range f.Aliases {
			v, present := args[alias]
			if !present {
				continue
			}
			if !canonicalPresent {
				args[f.Name] = v
				canonicalPresent = true
			}
			delete(args, alias)
		}
	}
}

func checkField(f catalog.Field, v interface{}) error {
	switch f.Type {
	case catalog.TypeString:
		s, ok := v.(string)
		if !ok {
			return typeMismatch(f.Name, "string", v)
		}
		if !utf8.ValidString(s) {
			return aidiserr.Validation(f.Name, "invalid_utf8", fmt.Sprintf("%s contains invalid UTF-8", f.Name))
		}
		if f.MinLength != nil && len(s) < *f.MinLength {
			return bounds(f.Name, fmt.Sprintf("length must be >= %d", *f.MinLength), s)
		}
		if f.MaxLength != nil && len(s) > *f.MaxLength {
			return bounds(f.Name, fmt.Sprintf("length must be <= %d", *f.MaxLength), s)
		}

	case catalog.TypeInteger:
		n, ok := asInt(v)
		if !ok {
			return typeMismatch(f.Name, "integer", v)
		}
		if err := checkNumericBounds(f, float64(n)); err != nil {
			return err
		}

	case catalog.TypeNumber:
		n, ok := asFloat(v)
		if !ok {
			return typeMismatch(f.Name, "number", v)
		}
		if err := checkNumericBounds(f, n); err != nil {
			return err
		}

	case catalog.TypeBoolean:
		if _, ok := v.(bool); !ok {
			return typeMismatch(f.Name, "boolean", v)
		}

	case catalog.TypeEnum:
		s, ok := v.(string)
		if !ok {
			return typeMismatch(f.Name, "enum", v)
		}
		found := false
		for _, allowed := range f.EnumValues {
			if s == allowed {
				found = true
				break
			}
		}
		if !found {
			return aidiserr.Validation(f.Name, "type_mismatch",
				fmt.Sprintf("%s must be one of %v, got %q", f.Name, f.EnumValues, s))
		}

	case catalog.TypeArray:
		arr, ok := v.([]interface{})
		if !ok {
			return typeMismatch(f.Name, "array", v)
		}
		if f.MinItems != nil && len(arr) < *f.MinItems {
			return bounds(f.Name, fmt.Sprintf("must have >= %d items", *f.MinItems), len(arr))
		}
		if f.MaxItems != nil && len(arr) > *f.MaxItems {
			return bounds(f.Name, fmt.Sprintf("must have <= %d items", *f.MaxItems), len(arr))
		}
		for i, elem := range arr {
			elemField := catalog.Field{Name: fmt.Sprintf("%s[%d]", f.Name, i), Type: f.ElementType}
			if f.ElementType != "" {
				if err := checkField(elemField, elem); err != nil {
					return err
				}
			}
		}

	case catalog.TypeObject:
		obj, ok := v.(map[string]interface{})
		if !ok {
			return typeMismatch(f.Name, "object", v)
		}
		for _, nested := range f.Fields {
			nv, present := obj[nested.Name]
			if !present {
				if nested.Required {
					return aidiserr.Validation(nested.Name, "missing", fmt.Sprintf("%s is required", nested.Name))
				}
				continue
			}
			if err := checkField(nested, nv); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkNumericBounds(f catalog.Field, n float64) error {
	if f.Min != nil && n < *f.Min {
		return bounds(f.Name, fmt.Sprintf("must be >= %v", *f.Min), n)
	}
	if f.Max != nil && n > *f.Max {
		return bounds(f.Name, fmt.Sprintf("must be <= %v", *f.Max), n)
	}
	return nil
}

func typeMismatch(field, expected string, got interface{}) error {
	e := aidiserr.Validation(field, "type_mismatch", fmt.Sprintf("%s must be %s, got %T", field, expected, got))
	e.Data = map[string]interface{}{"expected": expected, "got": fmt.Sprintf("%T", got)}
	return e
}

func bounds(field, rule string, value interface{}) error {
	e := aidiserr.Validation(field, "bounds", fmt.Sprintf("%s %s", field, rule))
	e.Data = map[string]interface{}{"value": value, "rule": rule}
	return e
}

// asInt accepts float64 (the universal JSON-decoded numeric type) holding
// an exact integer value, or a native int/int64.
func asInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
