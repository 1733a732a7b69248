package codegen

import "testing"

func schemaFromJSON(t *testing.T, doc string) *Schema {
	t.Helper()
	v, err := ParseJSONValue([]byte(doc))
	if err != nil {
		t.Fatalf("parse schema JSON: %v", err)
	}
	return NewSchemaFromValue(v)
}

func compileString(t *testing.T, schema *Schema, loader TemplateLoader, tmpl string) string {
	t.Helper()
	out, err := NewCompiler(schema, loader, nil, nil).Compile(tmpl)
	if err != nil {
		t.Fatalf("compile %q: %v", tmpl, err)
	}
	return out
}

func TestCompile_NoDirectivesIsIdentity(t *testing.T) {
	schema := schemaFromJSON(t, `{}`)
	const tmpl = "plain text with no directives at all\nand a second line\n"
	got := compileString(t, schema, nil, tmpl)
	if got != tmpl {
		t.Errorf("expected identity, got %q", got)
	}
}

func TestCompile_RelativeAndAbsoluteLookupAtRoot(t *testing.T) {
	schema := schemaFromJSON(t, `{"a":{"b":"x"}}`)
	if got := compileString(t, schema, nil, "$$.a.b"); got != "x" {
		t.Errorf("$$.a.b: expected %q, got %q", "x", got)
	}
	if got := compileString(t, schema, nil, "!!.a.b"); got != "x" {
		t.Errorf("!!.a.b: expected %q, got %q", "x", got)
	}
}

func TestCompile_HelloAdaScenario(t *testing.T) {
	schema := schemaFromJSON(t, `{"name":"Ada"}`)
	got := compileString(t, schema, nil, "hello $$.name")
	if got != "hello Ada" {
		t.Errorf("expected %q, got %q", "hello Ada", got)
	}
}

func TestCompile_SequenceExpansionConcatenatesInOrder(t *testing.T) {
	schema := schemaFromJSON(t, `{"xs":[1,2,3]}`)
	got := compileString(t, schema, nil, "$$.xs {{$$ }}")
	if got != "123" {
		t.Errorf("expected %q, got %q", "123", got)
	}
}

func TestCompile_SequenceExpansionListScenario(t *testing.T) {
	schema := schemaFromJSON(t, `{"xs":["a","b","c"]}`)
	got := compileString(t, schema, nil, "$$.xs {{- $$\n}}")
	want := "- a\n- b\n- c\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCompile_SliceSelection(t *testing.T) {
	schema := schemaFromJSON(t, `{"xs":["a","b","c","d"]}`)
	got := compileString(t, schema, nil, "$$.xs [[1:3]]{{$$,}}")
	if got != "b,c," {
		t.Errorf("expected %q, got %q", "b,c,", got)
	}
}

func TestCompile_SliceSelectionLength(t *testing.T) {
	// Selection [[i:j]] on a list of length n expands exactly
	// max(0, min(j,n) - max(0,i)) times.
	schema := schemaFromJSON(t, `{"xs":[0,1,2,3,4,5,6,7,8,9]}`)
	cases := []struct {
		sel  string
		want int
	}{
		{"2:5", 3},
		{":4", 4},
		{"7:", 3},
		{"20:30", 0},
		{"5:2", 0},
	}
	for _, c := range cases {
		tmpl := "$$.xs [[" + c.sel + "]]{{$$}}"
		got := compileString(t, schema, nil, tmpl)
		if len(got) != c.want {
			t.Errorf("selection %q: expected %d expansions, got %d (%q)", c.sel, c.want, len(got), got)
		}
	}
}

func TestCompile_ConditionalSelectionOnBool(t *testing.T) {
	schema := schemaFromJSON(t, `{"on": true}`)
	got := compileString(t, schema, nil, "$$.on [[true]]{{yes}}$$.on [[false]]{{no}}")
	if got != "yes" {
		t.Errorf("expected %q, got %q", "yes", got)
	}
}

func TestCompile_ConditionalSelectionOnInt(t *testing.T) {
	schema := schemaFromJSON(t, `{"x": 3}`)
	if got := compileString(t, schema, nil, "$$.x [[3]]{{A}}"); got != "A" {
		t.Errorf("x=3 against [[3]]: expected %q, got %q", "A", got)
	}

	schema = schemaFromJSON(t, `{"x": 4}`)
	if got := compileString(t, schema, nil, "$$.x [[3]]{{A}}"); got != "" {
		t.Errorf("x=4 against [[3]]: expected empty, got %q", got)
	}
}

func TestCompile_NestedScopeEntersMapping(t *testing.T) {
	schema := schemaFromJSON(t, `{"a":{"b":"X"}}`)
	got := compileString(t, schema, nil, "$$.a {{inside: $$.b}}")
	if got != "inside: X" {
		t.Errorf("expected %q, got %q", "inside: X", got)
	}
}

func TestCompile_MissingKeyIsEmptyWithWarning(t *testing.T) {
	schema := schemaFromJSON(t, `{}`)
	got := compileString(t, schema, nil, "before[$$.missing]after")
	if got != "before[]after" {
		t.Errorf("expected missing key to vanish, got %q", got)
	}
}

func TestCompile_Include(t *testing.T) {
	loader := &stubLoader{files: map[string]string{
		"a/b/c": "included body\n",
	}}
	schema := schemaFromJSON(t, `{}`)
	got := compileString(t, schema, loader, "@@a.b.c")
	if got != "included body\n" {
		t.Errorf("expected included contents, got %q", got)
	}
}

func TestCompile_IncludeChopDropsFinalRune(t *testing.T) {
	loader := &stubLoader{files: map[string]string{
		"a/b/c": "included body\n",
	}}
	schema := schemaFromJSON(t, `{}`)
	got := compileString(t, schema, loader, "@@!a.b.c")
	if got != "included body" {
		t.Errorf("expected final rune dropped, got %q", got)
	}
}

func TestCompile_IncludeMissingIsEmptyWithWarning(t *testing.T) {
	schema := schemaFromJSON(t, `{}`)
	got := compileString(t, schema, &stubLoader{}, "before[@@missing.path]after")
	if got != "before[]after" {
		t.Errorf("expected missing include to vanish, got %q", got)
	}
}

func TestCompile_FunctionCall(t *testing.T) {
	schema := schemaFromJSON(t, `{}`)
	c := NewCompiler(schema, nil, nil, nil)
	out, err := c.Compile("%%str.upper{{hello}}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "HELLO" {
		t.Errorf("expected %q, got %q", "HELLO", out)
	}
}

func TestCompile_UnknownFunctionIsHardError(t *testing.T) {
	schema := schemaFromJSON(t, `{}`)
	c := NewCompiler(schema, nil, nil, nil)
	_, err := c.Compile("%%nope.nope")
	if err == nil {
		t.Fatal("expected an error for an unknown function name")
	}
}

func TestCompile_IndentReflow(t *testing.T) {
	// The expansion body is written indented two columns deeper than the
	// directive itself (a common template-authoring style for
	// readability); reflow must strip that authoring indent back down
	// to the directive's own column.
	schema := schemaFromJSON(t, `{"xs":["a","b"]}`)
	tmpl := "$$.xs {{\n  - $$\n}}"
	got := compileString(t, schema, nil, tmpl)
	want := "- a\n- b\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCompile_ScopeStackDepthRestoredAfterCompile(t *testing.T) {
	schema := schemaFromJSON(t, `{"a":{"b":[1,2,3]}}`)
	c := NewCompiler(schema, nil, nil, nil)
	before := c.scope.Depth()
	if _, err := c.Compile("$$.a.b {{$$}}"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.scope.Depth() != before {
		t.Errorf("expected scope depth to be restored to %d, got %d", before, c.scope.Depth())
	}
}

func TestMatchesSelect_FloatExactComparison(t *testing.T) {
	if !matchesSelect(FloatValue(1.5), "1.5") {
		t.Error("expected exact float match to succeed")
	}
	if matchesSelect(FloatValue(1.5), "1.50000001") {
		t.Error("expected a differing float not to match")
	}
}

func TestResolveIndices(t *testing.T) {
	cases := []struct {
		sel  *string
		n    int
		want []int
	}{
		{nil, 3, []int{0, 1, 2}},
		{strPtr("1"), 3, []int{1}},
		{strPtr("5"), 3, nil},
		{strPtr("-1"), 3, nil},
		{strPtr("1:3"), 4, []int{1, 2}},
		{strPtr(":2"), 4, []int{0, 1}},
		{strPtr("2:"), 4, []int{2, 3}},
	}
	for _, c := range cases {
		got := resolveIndices(c.sel, c.n)
		if !intsEqual(got, c.want) {
			t.Errorf("resolveIndices(%v, %d) = %v, want %v", derefOrNil(c.sel), c.n, got, c.want)
		}
	}
}

func strPtr(s string) *string { return &s }

func derefOrNil(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// stubLoader is a minimal in-memory TemplateLoader for compiler tests,
// keyed by the dot-joined path (e.g. "a/b/c" for []string{"a","b","c"}).
type stubLoader struct {
	files map[string]string
}

func (s *stubLoader) Load(path []string) (*TemplateFile, error) {
	key := ""
	for i, seg := range path {
		if i > 0 {
			key += "/"
		}
		key += seg
	}
	contents, ok := s.files[key]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return &TemplateFile{Path: key, RawSource: contents}, nil
}
