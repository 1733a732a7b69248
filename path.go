package codegen

import "strconv"

// Segment is either a string key (indexing a mapping) or a non-negative
// integer index (indexing a sequence).
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// KeySegment builds a mapping-key Segment.
func KeySegment(key string) Segment { return Segment{Key: key} }

// IndexSegment builds a sequence-index Segment.
func IndexSegment(i int) Segment { return Segment{Index: i, IsIndex: true} }

func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Path is an ordered sequence of Segments addressing a location within a
// Value tree, relative to the schema root.
type Path []Segment

// Clone returns an independent copy, so callers can append to it without
// aliasing another Path's backing array.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// WithSegment returns a new Path with seg appended, leaving p untouched.
func (p Path) WithSegment(seg Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// DropLast returns a new Path with its final Segment removed. Calling
// DropLast on an already-empty Path returns the empty Path (popping at
// the root fails silently to empty, per the parent-operator semantics).
func (p Path) DropLast() Path {
	if len(p) == 0 {
		return Path{}
	}
	return p[:len(p)-1].Clone()
}

func (p Path) String() string {
	s := ""
	for i, seg := range p {
		if i > 0 {
			s += "."
		}
		s += seg.String()
	}
	return s
}

// Resolve walks root following each Segment of p in turn, returning the
// addressed Value and whether every step succeeded.
func Resolve(root Value, p Path) (Value, bool) {
	cur := root
	for _, seg := range p {
		child, ok := cur.Get(seg)
		if !ok {
			return Value{}, false
		}
		cur = child
	}
	return cur, true
}
