package codegen

import "testing"

func newTestSchema() *Schema {
	return NewSchemaFromValue(MappingValue(map[string]Value{
		"Title": StringValue("root title"),
		"Nested": MappingValue(map[string]Value{
			"Title": StringValue("nested title"),
			"Items": SequenceValue([]Value{
				StringValue("a"),
				StringValue("b"),
			}),
		}, []string{"Title", "Items"}),
	}, []string{"Title", "Nested"}))
}

func TestScopeStack_StartsAtRoot(t *testing.T) {
	s := NewScopeStack(newTestSchema())
	if s.Depth() != 1 {
		t.Fatalf("expected depth 1, got %d", s.Depth())
	}
	if s.TopPath().String() != "" {
		t.Errorf("expected root path to be empty, got %q", s.TopPath())
	}
}

func TestScopeStack_RelativePushDescends(t *testing.T) {
	s := NewScopeStack(newTestSchema())
	s.PushToken(&Token{Operator: OpRelative, Path: []string{"Nested"}})
	if s.TopPath().String() != "Nested" {
		t.Errorf("expected scope 'Nested', got %q", s.TopPath())
	}
	v, ok := s.Value()
	if !ok {
		t.Fatal("expected nested mapping to resolve")
	}
	if v.Kind() != KindMapping {
		t.Errorf("expected a mapping, got %s", v.Kind())
	}
}

func TestScopeStack_AbsoluteResetsToRoot(t *testing.T) {
	s := NewScopeStack(newTestSchema())
	s.PushToken(&Token{Operator: OpRelative, Path: []string{"Nested"}})
	s.PushToken(&Token{Operator: OpAbsolute, Path: []string{"Title"}})
	if s.TopPath().String() != "Title" {
		t.Errorf("expected absolute push to address root-level 'Title', got %q", s.TopPath())
	}
}

func TestScopeStack_ParentPopsOneSegment(t *testing.T) {
	s := NewScopeStack(newTestSchema())
	s.PushToken(&Token{Operator: OpRelative, Path: []string{"Nested", "Items"}})
	s.PushToken(&Token{Operator: OpParent, Path: []string{"Title"}})
	if s.TopPath().String() != "Nested.Title" {
		t.Errorf("expected 'Nested.Title', got %q", s.TopPath())
	}
}

func TestScopeStack_CaretCaretPathSegmentPopsInline(t *testing.T) {
	// The "^^" literal inside a path pops the accumulated base instead of
	// being treated as a mapping key, regardless of which operator
	// started the push (resolves the "seg == \"^^\" > 0" ambiguity).
	s := NewScopeStack(newTestSchema())
	s.PushToken(&Token{Operator: OpRelative, Path: []string{"Nested", "Items", "^^", "Title"}})
	if s.TopPath().String() != "Nested.Title" {
		t.Errorf("expected 'Nested.Title', got %q", s.TopPath())
	}
}

func TestScopeStack_PushIndexAndPop(t *testing.T) {
	s := NewScopeStack(newTestSchema())
	s.PushToken(&Token{Operator: OpRelative, Path: []string{"Nested", "Items"}})
	s.PushIndex(1)
	if s.TopPath().String() != "Nested.Items.1" {
		t.Errorf("expected 'Nested.Items.1', got %q", s.TopPath())
	}
	v, ok := s.Value()
	if !ok {
		t.Fatal("expected index 1 to resolve")
	}
	if str, _ := v.Str(); str != "b" {
		t.Errorf("expected 'b', got %q", str)
	}
	s.Pop()
	if s.TopPath().String() != "Nested.Items" {
		t.Errorf("expected pop to restore 'Nested.Items', got %q", s.TopPath())
	}
}

func TestScopeStack_PopBelowRootPanics(t *testing.T) {
	s := NewScopeStack(newTestSchema())
	defer func() {
		if recover() == nil {
			t.Error("expected popping the root scope to panic")
		}
	}()
	s.Pop()
}

func TestScopeStack_IncludeAndFunctionLeaveScopeUnchanged(t *testing.T) {
	s := NewScopeStack(newTestSchema())
	s.PushToken(&Token{Operator: OpRelative, Path: []string{"Nested"}})
	before := s.TopPath().String()
	s.PushToken(&Token{Operator: OpFunction, Path: []string{"str", "upper"}})
	if s.TopPath().String() != before {
		t.Errorf("expected %%%% push to leave the addressed scope at %q, got %q", before, s.TopPath())
	}
}
