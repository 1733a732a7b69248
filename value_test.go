package codegen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValue_ScalarAccessors(t *testing.T) {
	if b, ok := BoolValue(true).Bool(); !ok || !b {
		t.Errorf("BoolValue: got (%v, %v)", b, ok)
	}
	if i, ok := IntValue(42).Int(); !ok || i != 42 {
		t.Errorf("IntValue: got (%v, %v)", i, ok)
	}
	if f, ok := FloatValue(3.5).Float(); !ok || f != 3.5 {
		t.Errorf("FloatValue: got (%v, %v)", f, ok)
	}
	if s, ok := StringValue("hi").Str(); !ok || s != "hi" {
		t.Errorf("StringValue: got (%v, %v)", s, ok)
	}
	if !Null().IsNull() {
		t.Error("Null() should be IsNull")
	}
}

func TestValue_IntCoercesToFloat(t *testing.T) {
	f, ok := IntValue(7).Float()
	if !ok || f != 7.0 {
		t.Errorf("expected int 7 to coerce to float 7.0, got (%v, %v)", f, ok)
	}
}

func TestValue_WrongKindAccessorsFail(t *testing.T) {
	v := StringValue("x")
	if _, ok := v.Bool(); ok {
		t.Error("Bool() on a string Value should fail")
	}
	if _, ok := v.Int(); ok {
		t.Error("Int() on a string Value should fail")
	}
	if _, ok := v.Sequence(); ok {
		t.Error("Sequence() on a string Value should fail")
	}
	if _, _, ok := v.Mapping(); ok {
		t.Error("Mapping() on a string Value should fail")
	}
}

func TestValue_Get_Mapping(t *testing.T) {
	m := MappingValue(map[string]Value{
		"name": StringValue("widget"),
	}, []string{"name"})

	got, ok := m.Get(KeySegment("name"))
	if !ok {
		t.Fatal("expected key 'name' to resolve")
	}
	if s, _ := got.Str(); s != "widget" {
		t.Errorf("expected 'widget', got %q", s)
	}

	if _, ok := m.Get(KeySegment("missing")); ok {
		t.Error("expected missing key to report absent")
	}
	if _, ok := m.Get(IndexSegment(0)); ok {
		t.Error("indexing a mapping should report absent, not panic")
	}
}

func TestValue_Get_Sequence(t *testing.T) {
	seq := SequenceValue([]Value{IntValue(10), IntValue(20)})

	got, ok := seq.Get(IndexSegment(1))
	if !ok {
		t.Fatal("expected index 1 to resolve")
	}
	if i, _ := got.Int(); i != 20 {
		t.Errorf("expected 20, got %d", i)
	}

	if _, ok := seq.Get(IndexSegment(-1)); ok {
		t.Error("negative index should report absent")
	}
	if _, ok := seq.Get(IndexSegment(5)); ok {
		t.Error("out-of-range index should report absent")
	}
	if _, ok := seq.Get(KeySegment("name")); ok {
		t.Error("keying a sequence should report absent, not panic")
	}
}

func TestValue_CanonicalString(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), ""},
		{"true", BoolValue(true), "true"},
		{"false", BoolValue(false), "false"},
		{"int", IntValue(-7), "-7"},
		{"float", FloatValue(1.5), "1.5"},
		{"string", StringValue("hello"), "hello"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.v.CanonicalString(); got != c.want {
				t.Errorf("CanonicalString() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestValue_CanonicalString_PanicsOnSequence(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected CanonicalString on a sequence to panic")
		}
	}()
	SequenceValue(nil).CanonicalString()
}

func TestParseJSONValue_Scalars(t *testing.T) {
	v, err := ParseJSONValue([]byte(`{"a": 1, "b": 2.5, "c": "x", "d": true, "e": null}`))
	if err != nil {
		t.Fatalf("ParseJSONValue: %v", err)
	}
	m, keys, ok := v.Mapping()
	if !ok {
		t.Fatal("expected a mapping")
	}
	if len(keys) != 5 {
		t.Fatalf("expected 5 keys in source order, got %v", keys)
	}
	if i, _ := m["a"].Int(); i != 1 {
		t.Errorf("a: expected int 1, got %d", i)
	}
	if f, _ := m["b"].Float(); f != 2.5 {
		t.Errorf("b: expected float 2.5, got %v", f)
	}
	if !m["e"].IsNull() {
		t.Error("e: expected null")
	}
}

func TestParseJSONValue_PreservesKeyOrder(t *testing.T) {
	v, err := ParseJSONValue([]byte(`{"z": 1, "a": 2, "m": 3}`))
	if err != nil {
		t.Fatalf("ParseJSONValue: %v", err)
	}
	_, keys, _ := v.Mapping()
	want := []string{"z", "a", "m"}
	if len(keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, keys)
		}
	}
}

func TestParseJSONValue_Sequence(t *testing.T) {
	v, err := ParseJSONValue([]byte(`[1, "two", 3.0]`))
	if err != nil {
		t.Fatalf("ParseJSONValue: %v", err)
	}
	seq, ok := v.Sequence()
	if !ok || len(seq) != 3 {
		t.Fatalf("expected a 3-element sequence, got %+v (%v)", seq, ok)
	}
	if i, _ := seq[0].Int(); i != 1 {
		t.Errorf("expected seq[0] == 1, got %d", i)
	}
	if s, _ := seq[1].Str(); s != "two" {
		t.Errorf("expected seq[1] == \"two\", got %q", s)
	}
}

func TestParseJSONValue_MalformedReturnsError(t *testing.T) {
	if _, err := ParseJSONValue([]byte(`{not valid json`)); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

func TestParseJSONValue_MatchesHandBuiltTree(t *testing.T) {
	got, err := ParseJSONValue([]byte(`{"name":"Ada","tags":["admin","beta"],"meta":{"age":36,"active":true}}`))
	if err != nil {
		t.Fatalf("ParseJSONValue: %v", err)
	}

	want := MappingValue(map[string]Value{
		"name": StringValue("Ada"),
		"tags": SequenceValue([]Value{StringValue("admin"), StringValue("beta")}),
		"meta": MappingValue(map[string]Value{
			"age":    IntValue(36),
			"active": BoolValue(true),
		}, []string{"age", "active"}),
	}, []string{"name", "tags", "meta"})

	// cmp.Diff uses Value's Equal method (mapping key order ignored, so
	// the hand-built tree's declared key order needn't match the JSON
	// document's) rather than walking unexported fields directly.
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parsed Value tree differs from expected (-want +got):\n%s", diff)
	}
}

func TestValue_EqualIgnoresMappingKeyOrder(t *testing.T) {
	a := MappingValue(map[string]Value{"x": IntValue(1), "y": IntValue(2)}, []string{"x", "y"})
	b := MappingValue(map[string]Value{"y": IntValue(2), "x": IntValue(1)}, []string{"y", "x"})
	if !a.Equal(b) {
		t.Error("expected mappings with the same entries in different key order to be Equal")
	}
}

func TestValue_EqualDetectsSequenceOrderDifference(t *testing.T) {
	a := SequenceValue([]Value{IntValue(1), IntValue(2)})
	b := SequenceValue([]Value{IntValue(2), IntValue(1)})
	if a.Equal(b) {
		t.Error("expected differently-ordered sequences not to be Equal")
	}
}
