package validation

import (
	"reflect"
	"testing"
)

func TestCompile_FieldsAndFlags(t *testing.T) {
	s, err := shapeFor[productBody]()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !s.closed || s.none {
		t.Fatalf("expected closed, declared shape: %+v", s)
	}
	var names []string
	for _, f := range s.fields {
		names = append(names, f.name)
	}
	if !equalStrings(names, []string{"name", "price", "categoryId"}) {
		t.Fatalf("unexpected field order %q", names)
	}
	if s.fields[0].optional || !s.fields[1].optional || s.fields[2].optional {
		t.Fatalf("optional flags wrong: %+v", s.fields)
	}

	again, _ := shapeFor[productBody]()
	if again != s {
		t.Fatalf("expected cached shape")
	}

	o, _ := shapeFor[openBody]()
	if o.closed {
		t.Fatalf("openBody must not be closed")
	}
	n, _ := shapeFor[None]()
	if !n.none {
		t.Fatalf("None must be marked undeclared")
	}
}

func TestCompile_SkipsIgnoredAndUnexported(t *testing.T) {
	type shaped struct {
		Strict
		Keep    string `json:"keep"`
		Skip    string `json:"-"`
		private string
		Plain   int
	}
	s, err := compile(reflect.TypeOf(shaped{}))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var names []string
	for _, f := range s.fields {
		names = append(names, f.name)
	}
	if !equalStrings(names, []string{"keep", "Plain"}) {
		t.Fatalf("unexpected fields %q", names)
	}
	_ = shaped{}.private
}

func TestCompile_RejectsNonStruct(t *testing.T) {
	if _, err := compile(reflect.TypeOf(0)); err == nil {
		t.Fatalf("expected error for non-struct shape")
	}
}

func TestObjectEntries_KeepsDocumentOrder(t *testing.T) {
	keys, vals, err := objectEntries([]byte(`{"b":1,"a":{"x":[1,2]},"b":2}`))
	if err != nil {
		t.Fatalf("objectEntries: %v", err)
	}
	if !equalStrings(keys, []string{"b", "a"}) {
		t.Fatalf("unexpected key order %q", keys)
	}
	if string(vals["b"]) != "2" {
		t.Fatalf("later duplicate should win, got %s", vals["b"])
	}
}

func TestParseString(t *testing.T) {
	cases := []struct {
		in   string
		typ  reflect.Type
		ok   bool
		want any
	}{
		{"42", reflect.TypeOf(uint(0)), true, uint(42)},
		{"-1", reflect.TypeOf(uint(0)), false, nil},
		{"-1", reflect.TypeOf(0), true, -1},
		{"1.5", reflect.TypeOf(0.0), true, 1.5},
		{"true", reflect.TypeOf(false), true, true},
		{"x", reflect.TypeOf(0.0), false, nil},
		{"hi", reflect.TypeOf(""), true, "hi"},
	}
	for _, tc := range cases {
		v, ok := parseString(tc.in, tc.typ)
		if ok != tc.ok {
			t.Fatalf("parseString(%q, %s) ok=%v want %v", tc.in, tc.typ, ok, tc.ok)
		}
		if ok && v.Interface() != tc.want {
			t.Fatalf("parseString(%q, %s) = %v want %v", tc.in, tc.typ, v.Interface(), tc.want)
		}
	}
}

func TestUnrecognizedMessage(t *testing.T) {
	if got := unrecognizedMessage([]string{"a", "b"}); got != "Unrecognized key(s) in object: 'a', 'b'" {
		t.Fatalf("unexpected message %q", got)
	}
}
