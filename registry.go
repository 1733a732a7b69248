package codegen

import (
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CompileContext carries the per-compilation values the `project.current.*`
// function family reads. It is threaded through the Compiler rather than
// stored in a package-level global, so concurrent compiles never share
// mutable state: each is written once before a compile starts and only
// read during it.
type CompileContext struct {
	Project  string
	Schema   string
	Template string
}

// Func is a built-in callable in the function namespace. hasBody
// reports whether the directive carried a {{ }} expansion; body is that
// expansion's *compiled* text (empty/ignored when hasBody is false).
type Func func(ctx *CompileContext, body string, hasBody bool) (string, error)

// Namespace is a node in the fixed, nested function tree (e.g. "git" has
// children "name", "email", "remote"). A node with a non-nil fn is
// callable; its children, if any, extend the path further (not used by
// any built-in today, but the shape allows it).
type Namespace struct {
	children map[string]*Namespace
	fn       Func
}

// FunctionRegistry is the static namespace of built-in functions %%
// directives resolve against.
type FunctionRegistry struct {
	root *Namespace
}

// NewFunctionRegistry builds the registry with the standard built-ins:
// date formatting, git config lookup, string transforms, and
// project-meta accessors.
func NewFunctionRegistry() *FunctionRegistry {
	r := &FunctionRegistry{root: &Namespace{children: map[string]*Namespace{}}}

	r.Register([]string{"date", "now"}, funcDateNow)
	r.Register([]string{"git", "name"}, funcGitConfig("user.name"))
	r.Register([]string{"git", "email"}, funcGitConfig("user.email"))
	r.Register([]string{"git", "remote"}, funcGitConfig("remote.origin.url"))
	r.Register([]string{"str", "upper"}, funcStrUpper)
	r.Register([]string{"str", "lower"}, funcStrLower)
	r.Register([]string{"str", "camel"}, funcStrCamel)
	r.Register([]string{"str", "snake"}, funcStrSnake)
	r.Register([]string{"project", "current", "project"}, funcProjectCurrent(func(c *CompileContext) string { return c.Project }))
	r.Register([]string{"project", "current", "schema"}, funcProjectCurrent(func(c *CompileContext) string { return c.Schema }))
	r.Register([]string{"project", "current", "template"}, funcProjectCurrent(func(c *CompileContext) string { return c.Template }))

	return r
}

// Register installs fn at path, creating intermediate Namespace nodes as
// needed.
func (r *FunctionRegistry) Register(path []string, fn Func) {
	node := r.root
	for _, seg := range path {
		child, ok := node.children[seg]
		if !ok {
			child = &Namespace{children: map[string]*Namespace{}}
			node.children[seg] = child
		}
		node = child
	}
	node.fn = fn
}

// Resolve walks path through the namespace tree. A missing name is
// reported as a hard error: the error identifies the
// failing path and, when the node where the walk stopped has any
// children, suggests the names available at that depth.
func (r *FunctionRegistry) Resolve(path []string) (Func, error) {
	node := r.root
	for i, seg := range path {
		child, ok := node.children[seg]
		if !ok {
			suggestions := siblingNames(node)
			if len(suggestions) == 0 {
				return nil, fmt.Errorf("codegen: unknown function %q", strings.Join(path, "."))
			}
			return nil, fmt.Errorf("codegen: unknown function %q at %q; did you mean one of: %s",
				strings.Join(path, "."), strings.Join(path[:i], "."), strings.Join(suggestions, ", "))
		}
		node = child
	}
	if node.fn == nil {
		return nil, fmt.Errorf("codegen: %q names a namespace, not a function", strings.Join(path, "."))
	}
	return node.fn, nil
}

func siblingNames(node *Namespace) []string {
	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func funcDateNow(_ *CompileContext, body string, hasBody bool) (string, error) {
	layout := time.RFC3339
	if hasBody && strings.TrimSpace(body) != "" {
		layout = body
	}
	return time.Now().Format(layout), nil
}

func funcGitConfig(prop string) Func {
	return func(_ *CompileContext, _ string, _ bool) (string, error) {
		cmd := exec.Command("git", "config", "--get", prop)
		out, err := cmd.Output()
		if err != nil {
			slog.Warn("git config lookup failed", "property", prop, "error", err)
			return "", nil
		}
		return strings.TrimSpace(string(out)), nil
	}
}

func funcStrUpper(_ *CompileContext, body string, _ bool) (string, error) {
	return strings.ToUpper(body), nil
}

func funcStrLower(_ *CompileContext, body string, _ bool) (string, error) {
	return strings.ToLower(body), nil
}

var titleCaser = cases.Title(language.Und)

func funcStrCamel(_ *CompileContext, body string, _ bool) (string, error) {
	titled := titleCaser.String(body)
	return strings.ReplaceAll(titled, " ", ""), nil
}

func funcStrSnake(_ *CompileContext, body string, _ bool) (string, error) {
	return strings.Map(func(r rune) rune {
		if r == ' ' {
			return '_'
		}
		return r
	}, body), nil
}

func funcProjectCurrent(get func(*CompileContext) string) Func {
	return func(ctx *CompileContext, _ string, _ bool) (string, error) {
		if ctx == nil {
			return "", nil
		}
		return get(ctx), nil
	}
}
