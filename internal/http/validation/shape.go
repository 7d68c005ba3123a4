package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// None marks a request part that an endpoint does not declare. Undeclared
// parts are neither parsed nor checked.
type None struct{}

// Closed is implemented by shapes that reject keys they do not declare.
// Shapes opt in by embedding Strict.
type Closed interface{ closedShape() }

// Strict is embedded in a shape struct to make it Closed.
//
//	type CategoryBody struct {
//		validation.Strict
//		Name string `json:"name"`
//	}
type Strict struct{}

func (Strict) closedShape() {}

// errMalformedBody reports a body that is not valid JSON.
var errMalformedBody = errors.New("malformed JSON in request body")

// field is one declared member of a shape.
type field struct {
	index    int
	name     string
	optional bool         // pointer field
	base     reflect.Type // element type for pointers
	rules    string       // validator tag
}

// shape is the compiled form of a request-part struct.
type shape struct {
	typ    reflect.Type
	none   bool
	closed bool
	fields []field
	names  map[string]struct{}
}

var (
	shapeCache sync.Map // reflect.Type -> *shape
	noneType   = reflect.TypeOf(None{})
	strictType = reflect.TypeOf(Strict{})
	closedType = reflect.TypeOf((*Closed)(nil)).Elem()
)

// shapeFor compiles (and caches) the shape of T.
func shapeFor[T any]() (*shape, error) {
	return compile(reflect.TypeOf((*T)(nil)).Elem())
}

func compile(t reflect.Type) (*shape, error) {
	if v, ok := shapeCache.Load(t); ok {
		return v.(*shape), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("validation: shape %s must be a struct", t)
	}

	s := &shape{
		typ:    t,
		none:   t == noneType,
		closed: t.Implements(closedType),
		names:  map[string]struct{}{},
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous && sf.Type == strictType {
			continue
		}
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tn, _, _ := strings.Cut(tag, ",")
			if tn == "-" {
				continue
			}
			if tn != "" {
				name = tn
			}
		}
		f := field{index: i, name: name, base: sf.Type, rules: sf.Tag.Get("validate")}
		if sf.Type.Kind() == reflect.Pointer {
			f.optional = true
			f.base = sf.Type.Elem()
		}
		if kindName(f.base) == "" {
			return nil, fmt.Errorf("validation: field %s.%s has unsupported type %s", t, sf.Name, sf.Type)
		}
		s.fields = append(s.fields, f)
		s.names[name] = struct{}{}
	}

	actual, _ := shapeCache.LoadOrStore(t, s)
	return actual.(*shape), nil
}

// fromStrings populates a new shape value from string-valued sources (path
// parameters or query values). keys lists the present keys in report order.
func (s *shape) fromStrings(vals map[string][]string, keys []string) (reflect.Value, []string, error) {
	out := reflect.New(s.typ).Elem()
	var issues []string

	for _, f := range s.fields {
		raw, ok := vals[f.name]
		if !ok || len(raw) == 0 {
			if !f.optional {
				issues = append(issues, requiredMessage(f.name))
			}
			continue
		}
		if len(raw) > 1 {
			issues = append(issues, typeMessage(f.name, f.base))
			continue
		}
		v, ok := parseString(raw[0], f.base)
		if !ok {
			issues = append(issues, typeMessage(f.name, f.base))
			continue
		}
		msgs, err := checkRules(f, v)
		if err != nil {
			return out, nil, err
		}
		if len(msgs) > 0 {
			issues = append(issues, msgs...)
			continue
		}
		s.assign(out, f, v)
	}

	if s.closed {
		if msg := s.unrecognized(keys); msg != "" {
			issues = append(issues, msg)
		}
	}
	return out, issues, nil
}

// fromJSON populates a new shape value from a JSON object. An empty body is
// treated as an empty object.
func (s *shape) fromJSON(body []byte) (reflect.Value, []string, error) {
	out := reflect.New(s.typ).Elem()

	keys, vals, err := objectEntries(body)
	if err != nil {
		if errors.Is(err, errNotObject) {
			return out, []string{notObjectMessage}, nil
		}
		return out, nil, err
	}

	var issues []string
	for _, f := range s.fields {
		raw, ok := vals[f.name]
		if !ok {
			if !f.optional {
				issues = append(issues, requiredMessage(f.name))
			}
			continue
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			// Optional fields accept an explicit null (cleared value).
			if !f.optional {
				issues = append(issues, typeMessage(f.name, f.base))
			}
			continue
		}
		ptr := reflect.New(f.base)
		if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
			issues = append(issues, typeMessage(f.name, f.base))
			continue
		}
		v := ptr.Elem()
		msgs, err := checkRules(f, v)
		if err != nil {
			return out, nil, err
		}
		if len(msgs) > 0 {
			issues = append(issues, msgs...)
			continue
		}
		s.assign(out, f, v)
	}

	if s.closed {
		if msg := s.unrecognized(keys); msg != "" {
			issues = append(issues, msg)
		}
	}
	return out, issues, nil
}

func (s *shape) assign(dst reflect.Value, f field, v reflect.Value) {
	fv := dst.Field(f.index)
	if f.optional {
		p := reflect.New(f.base)
		p.Elem().Set(v)
		fv.Set(p)
		return
	}
	fv.Set(v)
}

// unrecognized returns the closed-shape violation for undeclared keys, or "".
func (s *shape) unrecognized(keys []string) string {
	var extra []string
	for _, k := range keys {
		if _, ok := s.names[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(extra) == 0 {
		return ""
	}
	return unrecognizedMessage(extra)
}

var errNotObject = errors.New("not an object")

// objectEntries decodes a JSON object, returning keys in document order and
// the raw value of each key. Later duplicates win, as with encoding/json.
func objectEntries(body []byte) ([]string, map[string]json.RawMessage, error) {
	vals := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, vals, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, errMalformedBody
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		// Valid JSON of another type still has to be well-formed as a whole.
		var discard any
		if json.Unmarshal(body, &discard) != nil {
			return nil, nil, errMalformedBody
		}
		return nil, nil, errNotObject
	}

	var keys []string
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, nil, errMalformedBody
		}
		k, _ := kt.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, errMalformedBody
		}
		if _, seen := vals[k]; !seen {
			keys = append(keys, k)
		}
		vals[k] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, errMalformedBody
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, errMalformedBody
	}
	return keys, vals, nil
}

// parseString converts a path/query value to the field's base type.
func parseString(s string, t reflect.Type) (reflect.Value, bool) {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return v, false
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return v, false
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return v, false
		}
		v.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return v, false
		}
		v.SetBool(b)
	default:
		return v, false
	}
	return v, true
}

// sortedKeys returns the keys of a url.Values-like map in lexical order.
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
