package codegen

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Schema owns a parsed Value tree loaded from a JSON file, plus the
// source path and last-load mtime so a watcher can detect edits and
// reload. Once loaded, the Value tree is immutable during compilation.
type Schema struct {
	Path string

	root  Value
	mtime time.Time

	// Includes resolves template-file paths for the transparent
	// "@@foo.bar" string-replacement rule in Value (§4.3). It is
	// optional: a Schema used without a loader simply returns such
	// strings verbatim.
	Includes TemplateLoader
}

// LoadSchema reads and parses a JSON schema file from disk.
func LoadSchema(path string) (*Schema, error) {
	s := &Schema{Path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSchemaFromValue builds a Schema directly from an in-memory Value
// tree, bypassing the file system. Used by tests and by callers that
// construct schemas programmatically.
func NewSchemaFromValue(root Value) *Schema {
	return &Schema{root: root}
}

// Reload re-reads the schema file if its mtime has changed since the
// last load, or if it has never been loaded. A malformed document is a
// hard error: the caller must abort the compile job that depends on it.
func (s *Schema) Reload() error {
	if s.Path == "" {
		return nil
	}
	info, err := os.Stat(s.Path)
	if err != nil {
		return fmt.Errorf("codegen: stat schema %s: %w", s.Path, err)
	}
	if !s.mtime.IsZero() && !info.ModTime().After(s.mtime) {
		return nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return fmt.Errorf("codegen: read schema %s: %w", s.Path, err)
	}
	root, err := ParseJSONValue(data)
	if err != nil {
		return fmt.Errorf("codegen: parse schema %s: %w", s.Path, err)
	}
	s.root = root
	s.mtime = info.ModTime()
	return nil
}

// Root returns the top-level Value.
func (s *Schema) Root() Value { return s.root }

// Value walks the schema's Value tree along p and applies the
// transparent "@@"-string substitution: a resolved string whose entire
// contents parse as a single @@-operator directive (and nothing else) is
// replaced by the contents of the referenced template file. Resolution
// failures of any kind (missing key, out-of-bounds index, missing
// include) report false/absent rather than erroring; the evaluator is
// responsible for turning that into a soft warning.
func (s *Schema) Value(p Path) (Value, bool) {
	v, ok := Resolve(s.root, p)
	if !ok {
		return Value{}, false
	}
	if str, isStr := v.Str(); isStr {
		if replaced, matched := s.resolveStringInclude(str); matched {
			return StringValue(replaced), true
		}
	}
	return v, true
}

// resolveStringInclude checks whether str is, in its entirety, a single
// "@@"-operator directive (no surrounding text, no other operator), and
// if so returns the contents of the included template file.
func (s *Schema) resolveStringInclude(str string) (string, bool) {
	if s.Includes == nil {
		return "", false
	}
	tok := FindToken(str, 0)
	if tok == nil || tok.Operator != OpInclude || tok.Start != 0 || tok.End != len(str) {
		return "", false
	}
	contents, err := loadIncludedTemplate(s.Includes, tok.Path)
	if err != nil {
		slog.Warn("schema string include not found", "path", tok.Path, "error", err)
		return "", false
	}
	return contents, true
}
