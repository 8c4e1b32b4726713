package legacy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// object is one decoded JSON object plus where it came from, so field
// accessors can build precise ParseErrors.
type object struct {
	catalog string
	index   int
	fields  map[string]any
}

func (o object) fail(field string, err error, format string, args ...any) error {
	if format != "" {
		err = fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
	}
	return &ParseError{Catalog: o.catalog, Field: field, Index: o.index, Err: err}
}

// check runs v's own validation so that a present but unusable value fails
// as a ParseError on this element instead of inside the Writer.
func (o object) check(v interface{ Validate() error }) error {
	if err := v.Validate(); err != nil {
		return o.fail("", ErrInvalidValue, "%v", err)
	}
	return nil
}

func (o object) lookup(field string) (any, bool) {
	v, ok := o.fields[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// str returns a required string field.
func (o object) str(field string) (string, error) {
	v, ok := o.lookup(field)
	if !ok {
		return "", o.fail(field, ErrMissingField, "")
	}
	s, ok := v.(string)
	if !ok {
		return "", o.fail(field, ErrWrongType, "want string, got %s", jsonType(v))
	}
	return s, nil
}

// optStr returns a string field that may be absent or null.
func (o object) optStr(field string) (string, error) {
	if _, ok := o.lookup(field); !ok {
		return "", nil
	}
	return o.str(field)
}

// text returns a field that may be a string or a number, as a string.
// Absent and null yield "".
func (o object) text(field string) (string, error) {
	v, ok := o.lookup(field)
	if !ok {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	default:
		return "", o.fail(field, ErrWrongType, "want string or number, got %s", jsonType(v))
	}
}

// boolean returns a required boolean field.
func (o object) boolean(field string) (bool, error) {
	v, ok := o.lookup(field)
	if !ok {
		return false, o.fail(field, ErrMissingField, "")
	}
	b, ok := v.(bool)
	if !ok {
		return false, o.fail(field, ErrWrongType, "want boolean, got %s", jsonType(v))
	}
	return b, nil
}

// optBool returns a boolean field that defaults to false when absent or null.
func (o object) optBool(field string) (bool, error) {
	if _, ok := o.lookup(field); !ok {
		return false, nil
	}
	return o.boolean(field)
}

// integer returns a required integer field. Numeric strings such as "01"
// are accepted.
func (o object) integer(field string) (int64, error) {
	v, ok := o.lookup(field)
	if !ok {
		return 0, o.fail(field, ErrMissingField, "")
	}
	n, err := flexInt(v)
	if err != nil {
		return 0, o.fail(field, ErrWrongType, "%v", err)
	}
	return n, nil
}

// optInt returns an integer field that defaults to 0 when absent or null.
func (o object) optInt(field string) (int64, error) {
	if _, ok := o.lookup(field); !ok {
		return 0, nil
	}
	return o.integer(field)
}

// obj returns a required nested object.
func (o object) obj(field string) (object, error) {
	v, ok := o.lookup(field)
	if !ok {
		return object{}, o.fail(field, ErrMissingField, "")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return object{}, o.fail(field, ErrWrongType, "want object, got %s", jsonType(v))
	}
	return object{catalog: o.catalog, index: o.index, fields: m}, nil
}

// optObj returns a nested object, or an empty one when absent or null.
func (o object) optObj(field string) (object, error) {
	if _, ok := o.lookup(field); !ok {
		return object{catalog: o.catalog, index: o.index, fields: map[string]any{}}, nil
	}
	return o.obj(field)
}

// list returns a required array of objects.
func (o object) list(field string) ([]object, error) {
	v, ok := o.lookup(field)
	if !ok {
		return nil, o.fail(field, ErrMissingField, "")
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, o.fail(field, ErrWrongType, "want array, got %s", jsonType(v))
	}
	return objects(o.catalog+"."+field, arr)
}

// keys returns the object's keys in sorted order.
func (o object) keys() []string {
	keys := make([]string, 0, len(o.fields))
	for k := range o.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// decode parses a payload, keeping numbers as json.Number so integer fields
// survive without float rounding.
func decode(catalog string, data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ParseError{Catalog: catalog, Index: -1, Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Catalog: catalog, Index: -1, Err: fmt.Errorf("%w: trailing data after JSON value", ErrInvalidValue)}
	}
	return v, nil
}

// decodeList parses a payload whose top level is an array of objects.
func decodeList(catalog string, data []byte) ([]object, error) {
	v, err := decode(catalog, data)
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, &ParseError{Catalog: catalog, Index: -1, Err: fmt.Errorf("%w: want array, got %s", ErrWrongType, jsonType(v))}
	}
	return objects(catalog, arr)
}

// decodeObject parses a payload whose top level is an object.
func decodeObject(catalog string, data []byte) (object, error) {
	v, err := decode(catalog, data)
	if err != nil {
		return object{}, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return object{}, &ParseError{Catalog: catalog, Index: -1, Err: fmt.Errorf("%w: want object, got %s", ErrWrongType, jsonType(v))}
	}
	return object{catalog: catalog, index: -1, fields: m}, nil
}

func objects(catalog string, arr []any) ([]object, error) {
	out := make([]object, len(arr))
	for i, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			return nil, &ParseError{Catalog: catalog, Index: i, Err: fmt.Errorf("%w: want object, got %s", ErrWrongType, jsonType(el))}
		}
		out[i] = object{catalog: catalog, index: i, fields: m}
	}
	return out, nil
}

// flexInt converts a JSON number or numeric string to an integer.
func flexInt(v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err != nil || f != float64(int64(f)) {
			return 0, fmt.Errorf("want integer, got %s", t)
		}
		return int64(f), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("want integer, got %q", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("want integer, got %s", jsonType(v))
	}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
