package codegen

import (
	"fmt"
	"os"
	"path/filepath"
)

// OutputSpec is one entry of a ProjectFile's "output" array: schema,
// template, and out are each glob-or-path strings.
type OutputSpec struct {
	Schema   string `json:"schema"`
	Template string `json:"template"`
	Out      string `json:"out"`
}

// ProjectFile is the parsed form of a project's JSON manifest: the set of
// (schema, template, out) tuples a full build expands.
type ProjectFile struct {
	Outputs []OutputSpec `json:"output"`

	// path is the project manifest's own source path; it is what
	// %%project.current.project reports once Build sets up each pair's
	// CompileContext. dir is its directory, and is what schema/template/out
	// globs are resolved relative to.
	path string
	dir  string
}

// LoadProjectFile reads and parses a project manifest from path.
func LoadProjectFile(path string) (*ProjectFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("codegen: read project file %s: %w", path, err)
	}
	v, err := ParseJSONValue(data)
	if err != nil {
		return nil, fmt.Errorf("codegen: parse project file %s: %w", path, err)
	}

	pf := &ProjectFile{path: path, dir: filepath.Dir(path)}
	outputs, _ := v.Get(KeySegment("output"))
	seq, _ := outputs.Sequence()
	for _, entry := range seq {
		schema, _ := fieldStr(entry, "schema")
		template, _ := fieldStr(entry, "template")
		out, _ := fieldStr(entry, "out")
		pf.Outputs = append(pf.Outputs, OutputSpec{Schema: schema, Template: template, Out: out})
	}
	return pf, nil
}

func fieldStr(v Value, key string) (string, bool) {
	field, ok := v.Get(KeySegment(key))
	if !ok {
		return "", false
	}
	return field.Str()
}

// ResolvedOutput is one concrete (schema file, template file, destination
// path) triple produced by expanding an OutputSpec's glob patterns.
type ResolvedOutput struct {
	SchemaPath   string
	TemplatePath string
	OutSpec      string
}

// resolve expands spec's schema/template glob patterns into concrete file
// pairs. When one side matches exactly one file, it is paired against
// every match on the other side (cross product); otherwise matches are
// paired positionally by sorted order — out is itself expanded per
// matched schema, so each one drives its own output name.
func (pf *ProjectFile) resolve(spec OutputSpec) ([]ResolvedOutput, error) {
	schemas, err := globRelative(pf.dir, spec.Schema)
	if err != nil {
		return nil, fmt.Errorf("codegen: expand schema glob %q: %w", spec.Schema, err)
	}
	templates, err := globRelative(pf.dir, spec.Template)
	if err != nil {
		return nil, fmt.Errorf("codegen: expand template glob %q: %w", spec.Template, err)
	}
	if len(schemas) == 0 {
		return nil, fmt.Errorf("codegen: schema pattern %q matched no files", spec.Schema)
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("codegen: template pattern %q matched no files", spec.Template)
	}

	var pairs []ResolvedOutput
	switch {
	case len(templates) == 1:
		for _, s := range schemas {
			pairs = append(pairs, ResolvedOutput{SchemaPath: s, TemplatePath: templates[0], OutSpec: spec.Out})
		}
	case len(schemas) == 1:
		for _, t := range templates {
			pairs = append(pairs, ResolvedOutput{SchemaPath: schemas[0], TemplatePath: t, OutSpec: spec.Out})
		}
	default:
		n := len(schemas)
		if len(templates) < n {
			n = len(templates)
		}
		for i := 0; i < n; i++ {
			pairs = append(pairs, ResolvedOutput{SchemaPath: schemas[i], TemplatePath: templates[i], OutSpec: spec.Out})
		}
	}
	return pairs, nil
}

func globRelative(dir, pattern string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(dir, pattern)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// BuildResult reports the outcome of writing one resolved output.
type BuildResult struct {
	ResolvedOutput
	DestPath string
	Err      error
}

// Build runs every (schema, template) pair the project manifest expands
// to, strictly sequentially: one fresh Compiler per pair,
// the "out" pattern itself expanded through the engine against the
// matched schema so per-schema output filenames work. A per-output I/O
// or compile error is recorded in that pair's BuildResult and does not
// abort the remaining outputs — an I/O error writing one output is a
// soft failure at the project-driver level.
func (pf *ProjectFile) Build(loader TemplateLoader, funcs *FunctionRegistry) []BuildResult {
	var results []BuildResult
	for _, spec := range pf.Outputs {
		pairs, err := pf.resolve(spec)
		if err != nil {
			results = append(results, BuildResult{Err: err})
			continue
		}
		for _, pair := range pairs {
			results = append(results, pf.buildOne(pair, loader, funcs))
		}
	}
	return results
}

func (pf *ProjectFile) buildOne(pair ResolvedOutput, loader TemplateLoader, funcs *FunctionRegistry) BuildResult {
	result := BuildResult{ResolvedOutput: pair}

	schema, err := LoadSchema(pair.SchemaPath)
	if err != nil {
		result.Err = err
		return result
	}
	schema.Includes = loader

	templateBytes, err := os.ReadFile(pair.TemplatePath)
	if err != nil {
		result.Err = fmt.Errorf("codegen: read template %s: %w", pair.TemplatePath, err)
		return result
	}

	ctx := &CompileContext{Project: pf.path, Schema: pair.SchemaPath, Template: pair.TemplatePath}

	destPath, err := NewCompiler(schema, loader, funcs, ctx).Compile(pair.OutSpec)
	if err != nil {
		result.Err = fmt.Errorf("codegen: expand out pattern %q: %w", pair.OutSpec, err)
		return result
	}
	if !filepath.IsAbs(destPath) {
		destPath = filepath.Join(pf.dir, destPath)
	}
	result.DestPath = destPath

	output, err := NewCompiler(schema, loader, funcs, ctx).Compile(string(templateBytes))
	if err != nil {
		result.Err = err
		return result
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		result.Err = fmt.Errorf("codegen: create output directory for %s: %w", destPath, err)
		return result
	}
	if err := os.WriteFile(destPath, []byte(output), 0644); err != nil {
		result.Err = fmt.Errorf("codegen: write output %s: %w", destPath, err)
		return result
	}
	return result
}
