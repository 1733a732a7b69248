package codegen

import (
	"strconv"
	"strings"
)

// Compiler is the recursive template expander. It owns a ScopeStack
// bound to one Schema and consumes a template string, emitting an
// output string. It is single-threaded and not re-entrant across
// goroutines: construct a fresh Compiler per (schema, template) pair.
type Compiler struct {
	Schema *Schema
	Funcs  *FunctionRegistry
	Loader TemplateLoader
	Ctx    *CompileContext

	scope *ScopeStack
	err   error
}

// NewCompiler builds a Compiler bound to schema, resolving @@ includes
// through loader and %% functions through funcs. ctx may be nil if no
// project.current.* values are relevant.
func NewCompiler(schema *Schema, loader TemplateLoader, funcs *FunctionRegistry, ctx *CompileContext) *Compiler {
	if funcs == nil {
		funcs = NewFunctionRegistry()
	}
	return &Compiler{
		Schema: schema,
		Funcs:  funcs,
		Loader: loader,
		Ctx:    ctx,
		scope:  NewScopeStack(schema),
	}
}

// Compile expands template against the Compiler's schema, starting at
// the root scope. It always returns the best-effort output string; err
// is non-nil only for hard-error cases (an unknown function name), at
// which point the returned string is the output accumulated up to the
// point of failure followed by the rest of the template text, left
// unexpanded.
func (c *Compiler) Compile(template string) (string, error) {
	out := c.compile(template)
	return out, c.err
}

// compile is the internal recursive expander shared by the top-level
// Compile call and every nested expansion/include. It finds the next
// Token, emits the text before it, evaluates it, reflows the result,
// splices it in, and continues scanning past the splice — the
// non-mutating form of the re-substitution algorithm, chosen to avoid
// the quadratic string-rewriting cost of splicing into buf in place.
func (c *Compiler) compile(buf string) string {
	var out strings.Builder
	pos := 0
	for c.err == nil {
		tok := FindToken(buf, pos)
		if tok == nil {
			break
		}
		out.WriteString(buf[pos:tok.Start])
		resolved := c.evaluate(tok)
		resolved = reflowIndent(resolved, tok, out.String())
		out.WriteString(resolved)
		pos = tok.End
	}
	out.WriteString(buf[pos:])
	return out.String()
}

func (c *Compiler) evaluate(tok *Token) string {
	if c.err != nil {
		return ""
	}
	switch tok.Operator {
	case OpRelative, OpAbsolute, OpParent:
		return c.evaluateValue(tok)
	case OpInclude, OpIncludeChop:
		return c.evaluateInclude(tok)
	case OpFunction:
		return c.evaluateFunction(tok)
	default:
		return ""
	}
}

func (c *Compiler) evaluateValue(tok *Token) string {
	c.scope.PushToken(tok)
	defer c.scope.Pop()

	v, ok := c.scope.Value()
	if !ok {
		warnf("missing schema value at scope %q", c.scope.TopPath())
		return ""
	}

	if !tok.HasExpansion() {
		switch v.Kind() {
		case KindSequence, KindMapping:
			warnf("shape violation: %q resolves to a %s but the directive has no expansion body", c.scope.TopPath(), v.Kind())
			return ""
		default:
			return v.CanonicalString()
		}
	}

	if seq, isSeq := v.Sequence(); isSeq {
		indices := resolveIndices(tok.Select, len(seq))
		var sb strings.Builder
		for _, i := range indices {
			c.scope.PushIndex(i)
			sb.WriteString(c.compile(*tok.Expansion))
			c.scope.Pop()
		}
		return sb.String()
	}

	if !tok.HasSelect() {
		return c.compile(*tok.Expansion)
	}
	if matchesSelect(v, *tok.Select) {
		return c.compile(*tok.Expansion)
	}
	return ""
}

func (c *Compiler) evaluateInclude(tok *Token) string {
	c.scope.PushToken(tok)
	defer c.scope.Pop()

	contents, err := loadIncludedTemplate(c.Loader, tok.Path)
	if err != nil {
		warnf("template include not found: %s", strings.Join(tok.Path, "."))
		return ""
	}
	if tok.Operator == OpIncludeChop {
		contents = dropLastRune(contents)
	}
	return c.compile(contents)
}

func (c *Compiler) evaluateFunction(tok *Token) string {
	c.scope.PushToken(tok)
	defer c.scope.Pop()

	fn, err := c.Funcs.Resolve(tok.Path)
	if err != nil {
		c.err = err
		return ""
	}

	var body string
	if tok.HasExpansion() {
		body = c.compile(*tok.Expansion)
	}

	result, err := fn(c.Ctx, body, tok.HasExpansion())
	if err != nil {
		c.err = err
		return ""
	}
	return result
}

// matchesSelect implements the conditional-guard coercion rules:
// booleans compare against bool(select), integers against int(select),
// floats against float(select), strings against select verbatim. Any
// coercion failure means "do not compile". Float equality here is exact
// comparison, which is fragile for computed floats but matches what
// guard conditions in practice compare against.
func matchesSelect(v Value, sel string) bool {
	switch v.Kind() {
	case KindBool:
		b, err := strconv.ParseBool(sel)
		if err != nil {
			return false
		}
		got, _ := v.Bool()
		return got == b
	case KindInt:
		i, err := strconv.ParseInt(sel, 10, 64)
		if err != nil {
			return false
		}
		got, _ := v.Int()
		return got == i
	case KindFloat:
		f, err := strconv.ParseFloat(sel, 64)
		if err != nil {
			return false
		}
		got, _ := v.Float()
		return got == f
	case KindString:
		got, _ := v.Str()
		return got == sel
	default:
		return false
	}
}

// resolveIndices parses the [[ ]] sequence-selection syntax ("i",
// "a:b", ":b", "a:") into the ordered list of indices to expand over n
// elements. Negative indices are not supported; out-of-range bounds
// clamp to an empty selection rather than erroring.
func resolveIndices(sel *string, n int) []int {
	if sel == nil {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	s := *sel
	if strings.Contains(s, ":") {
		parts := strings.SplitN(s, ":", 2)
		lo, hi := 0, n
		if parts[0] != "" {
			v, err := strconv.Atoi(parts[0])
			if err != nil {
				return nil
			}
			lo = v
		}
		if parts[1] != "" {
			v, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil
			}
			hi = v
		}
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		if lo >= hi {
			return nil
		}
		indices := make([]int, 0, hi-lo)
		for i := lo; i < hi; i++ {
			indices = append(indices, i)
		}
		return indices
	}

	i, err := strconv.Atoi(s)
	if err != nil || i < 0 || i >= n {
		return nil
	}
	return []int{i}
}

// reflowIndent shifts the compiled output of a directive by
// delta = tok.Indent - (column of the splice point in the output so far).
// A positive delta removes up to delta leading spaces from every line; a
// negative delta inserts -delta spaces after every newline, leaving the
// first line as is. Tokens with no expansion body, and empty results, are
// left untouched.
func reflowIndent(resolved string, tok *Token, alreadyEmitted string) string {
	if tok.Expansion == nil || resolved == "" {
		return resolved
	}

	currentColumn := columnOf(alreadyEmitted)
	delta := tok.Indent - currentColumn
	if delta == 0 {
		return resolved
	}

	lines := strings.Split(resolved, "\n")
	if delta > 0 {
		lines[0] = trimLeadingSpaces(lines[0], delta)
		for i := 1; i < len(lines); i++ {
			lines[i] = trimLeadingSpaces(lines[i], delta)
		}
		return strings.Join(lines, "\n")
	}

	pad := strings.Repeat(" ", -delta)
	for i := 1; i < len(lines); i++ {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

func columnOf(s string) int {
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return len(s) - idx - 1
	}
	return len(s)
}

func trimLeadingSpaces(s string, n int) string {
	i := 0
	for i < n && i < len(s) && s[i] == ' ' {
		i++
	}
	return s[i:]
}

func dropLastRune(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return string(r[:len(r)-1])
}

func warnf(format string, args ...any) {
	logWarn(format, args...)
}
