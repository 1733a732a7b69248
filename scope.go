package codegen

// ScopeStack is a stack of Paths into a Schema, representing nested
// "points of view" as the Compiler descends into expansions. The stack
// always has depth >= 1; the initial (bottom) Scope is the empty Path,
// referring to the schema root.
type ScopeStack struct {
	schema *Schema
	scopes []Path
}

// NewScopeStack creates a stack bound to schema, seeded with the root
// scope (the empty Path).
func NewScopeStack(schema *Schema) *ScopeStack {
	return &ScopeStack{schema: schema, scopes: []Path{{}}}
}

// Depth returns the number of scopes currently on the stack.
func (s *ScopeStack) Depth() int { return len(s.scopes) }

// PushToken computes the base scope selected by tok.Operator (relative,
// absolute, or parent-relative), appends each segment of tok.Path, and
// pushes the resulting Path. The include/function operators leave the
// scope unchanged (their path names a file or a function, not a schema
// location) but still push a copy of the top, to keep push/pop symmetric.
//
// A literal path segment equal to "^^" pops the last segment of the
// accumulated base instead of appending — this is the "inline expression
// `seg == "^^" > 0`" construct flagged as suspicious in the reference
// implementation; here it is implemented as the plain equality check its
// author evidently intended.
func (s *ScopeStack) PushToken(tok *Token) {
	top := s.top()
	var base Path
	switch tok.Operator {
	case OpRelative:
		base = top.Clone()
	case OpAbsolute:
		base = Path{}
	case OpParent:
		base = top.DropLast()
	default: // OpInclude, OpIncludeChop, OpFunction: scope unchanged
		s.scopes = append(s.scopes, top.Clone())
		return
	}

	for _, seg := range tok.Path {
		if seg == "^^" {
			base = base.DropLast()
			continue
		}
		base = base.WithSegment(KeySegment(seg))
	}

	s.scopes = append(s.scopes, base)
}

// PushIndex duplicates the top scope and appends an integer Segment; used
// when expanding a sequence element-by-element.
func (s *ScopeStack) PushIndex(i int) {
	s.scopes = append(s.scopes, s.top().WithSegment(IndexSegment(i)))
}

// Pop discards the top scope. It is a logic error for the stack to
// become empty; callers must pair every Push with exactly one Pop.
func (s *ScopeStack) Pop() {
	if len(s.scopes) <= 1 {
		panic("codegen: ScopeStack popped below root scope")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Value returns the schema Value addressed by the top scope's Path, and
// whether the lookup succeeded (false means "absent").
func (s *ScopeStack) Value() (Value, bool) {
	return s.schema.Value(s.top())
}

// TopPath exposes the current Path, chiefly for warning messages that
// want to name the scope a failed lookup occurred at.
func (s *ScopeStack) TopPath() Path { return s.top() }

func (s *ScopeStack) top() Path { return s.scopes[len(s.scopes)-1] }
