package codegen

import (
	"regexp"
	"strings"
)

// Operator identifies which of the five directive operators a Token uses.
type Operator string

const (
	OpRelative     Operator = "$$"
	OpAbsolute     Operator = "!!"
	OpParent       Operator = "^^"
	OpInclude      Operator = "@@"
	OpIncludeChop  Operator = "@@!"
	OpFunction     Operator = "%%"
)

// directiveRegex recognises one directive and decomposes it into its
// operator and three optional fields (path, select, expansion). Operators are tried longest-first in the alternation
// (@@! before @@) so the engine prefers the three-character operator when
// both could start a match at the same position. Path segments are
// dot-prefixed identifiers, or the literal "^^" (a parent-pop marker
// inside a path, see ScopeStack.PushToken). Select is bracketed in [[ ]];
// expansion is bracketed in {{ }} and matches across newlines.
var directiveRegex = regexp.MustCompile(
	`(?s)(@@!|\$\$|!!|\^\^|@@|%%)` + // operator
		`((?:\.(?:[A-Za-z0-9_]+|\^\^))*)` + // path
		`(?:\s*\[\[(.*?)\]\])?` + // select
		`(?:[ \t]*\{\{(?:[ \t]*\n)?(.*?)[ \t]*\}\}(?:[ \t]*\n)?)?`, // expansion
)

// Token is a parsed directive: an operator, an optional path, an optional
// select predicate, and an optional expansion body, plus enough
// positional information for the evaluator to splice a result back into
// the buffer and reflow its indentation.
type Token struct {
	Operator  Operator
	Path      []string // raw dot-separated segment names, "^^" included literally
	Select    *string  // nil if no [[ ]] was present
	Expansion *string  // nil if no {{ }} was present
	Start     int      // byte offset of the full match in the searched buffer
	End       int       // byte offset just past the full match
	Indent    int       // column of the expansion body's first non-blank rune
}

// HasExpansion reports whether the token carried a {{ }} body.
func (t *Token) HasExpansion() bool { return t.Expansion != nil }

// HasSelect reports whether the token carried a [[ ]] predicate.
func (t *Token) HasSelect() bool { return t.Select != nil }

// FindToken scans buf for the next directive starting at or after
// searchFrom, returning nil if none remain. The leftmost match wins.
func FindToken(buf string, searchFrom int) *Token {
	if searchFrom > len(buf) {
		return nil
	}
	loc := directiveRegex.FindStringSubmatchIndex(buf[searchFrom:])
	if loc == nil {
		return nil
	}
	// Rebase indices onto the full buffer.
	for i := range loc {
		if loc[i] >= 0 {
			loc[i] += searchFrom
		}
	}
	tok := &Token{
		Operator: Operator(buf[loc[2]:loc[3]]),
		Start:    loc[0],
		End:      loc[1],
	}
	if loc[4] >= 0 && loc[5] > loc[4] {
		raw := buf[loc[4]:loc[5]]
		tok.Path = strings.Split(strings.TrimPrefix(raw, "."), ".")
	}
	if loc[6] >= 0 {
		sel := buf[loc[6]:loc[7]]
		tok.Select = &sel
	}
	if loc[8] >= 0 {
		exp := buf[loc[8]:loc[9]]
		tok.Expansion = &exp
		tok.Indent = columnOfFirstNonBlank(buf, loc[8], loc[9])
	}
	return tok
}

// columnOfFirstNonBlank returns the column (0-based, counting bytes since
// the preceding newline) of the first byte within buf[bodyStart:bodyEnd]
// that is not a space, tab or newline. If the body is entirely blank, the
// column of bodyStart itself is used.
func columnOfFirstNonBlank(buf string, bodyStart, bodyEnd int) int {
	idx := bodyStart
	for idx < bodyEnd && (buf[idx] == ' ' || buf[idx] == '\t' || buf[idx] == '\n') {
		idx++
	}
	if idx >= bodyEnd {
		idx = bodyStart
	}
	nl := strings.LastIndexByte(buf[:idx], '\n')
	return idx - nl - 1
}
