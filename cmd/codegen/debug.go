package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sprocketlabs/codegen"
)

var debugCmd = &cobra.Command{
	Use:   "debug <template-file>",
	Short: "Analyze template dependencies and debug issues",
	Long: `Analyze a template file and its @@/@@! include dependencies.

Features:
  - Detect dependency cycles
  - List %% function calls referenced
  - Output GraphViz DOT format for visualization
  - Trace @@ path resolution

Config file options (debug section):
  debug:
    path: "templates,../shared"
    verbose: false
    cycles: true

Examples:
  codegen debug -p templates,../shared page.template
  codegen debug -v --cycles page.template
  codegen debug --dot page.template > deps.dot
  codegen debug --trace page.template`,
	Args: cobra.ExactArgs(1),
	Run:  runDebug,
}

func init() {
	debugCmd.Flags().StringP("path", "p", ".", "Comma-separated search paths for templates")
	debugCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	debugCmd.Flags().Bool("cycles", true, "Detect dependency cycles")
	debugCmd.Flags().Bool("dot", false, "Output GraphViz DOT format")
	debugCmd.Flags().Bool("trace", false, "Trace path resolution for includes")
	debugCmd.Flags().Bool("funcs", false, "Show %% function calls referenced")
	debugCmd.Flags().Bool("mem", false, "Report memory usage of the analysis pass")

	viper.BindPFlag("debug.path", debugCmd.Flags().Lookup("path"))
	viper.BindPFlag("debug.verbose", debugCmd.Flags().Lookup("verbose"))
	viper.BindPFlag("debug.cycles", debugCmd.Flags().Lookup("cycles"))
	viper.BindPFlag("debug.dot", debugCmd.Flags().Lookup("dot"))
	viper.BindPFlag("debug.trace", debugCmd.Flags().Lookup("trace"))
	viper.BindPFlag("debug.funcs", debugCmd.Flags().Lookup("funcs"))
	viper.BindPFlag("debug.mem", debugCmd.Flags().Lookup("mem"))

	viper.SetDefault("debug.path", ".")
	viper.SetDefault("debug.cycles", true)
}

// templateInfo holds the @@/@@! includes and %% function calls found by
// scanning one template's raw text for directives, without evaluating
// them — this is a static analysis pass over the same token grammar the
// Compiler uses.
type templateInfo struct {
	path      string
	includes  []string // dot-joined @@/@@! paths
	funcCalls []string // dot-joined %% paths
}

type dependencyGraph struct {
	loader    codegen.TemplateLoader
	templates map[string]*templateInfo
	trace     bool
}

func runDebug(cmd *cobra.Command, args []string) {
	templateFile := args[0]
	paths := strings.Split(viper.GetString("debug.path"), ",")
	verbose := viper.GetBool("debug.verbose")
	outputDot := viper.GetBool("debug.dot")
	trace := viper.GetBool("debug.trace")
	showFuncs := viper.GetBool("debug.funcs")
	detectCycles := viper.GetBool("debug.cycles")
	showMem := viper.GetBool("debug.mem")

	loader := codegen.NewCachingLoader(codegen.NewFileSystemLoader(paths...))
	graph := &dependencyGraph{loader: loader, templates: make(map[string]*templateInfo), trace: trace}

	contents, err := os.ReadFile(templateFile)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	var mem *codegen.MemStats
	if showMem {
		mem = codegen.NewMemStats()
		mem.SnapshotWithGC("before-analyze")
	}

	rootKey := filepath.Base(templateFile)
	graph.analyze(rootKey, string(contents))

	if mem != nil {
		mem.SnapshotWithGC("after-analyze")
		fmt.Println("=== Memory Usage ===")
		mem.Report(os.Stdout)
		fmt.Println()
	}

	if outputDot {
		graph.outputDOT()
		return
	}

	fmt.Printf("Analyzing: %s\n", templateFile)
	fmt.Printf("Search paths: %v\n\n", paths)

	fmt.Println("=== Dependency Tree ===")
	graph.printTree(rootKey, "", make(map[string]bool), verbose)

	if showFuncs {
		fmt.Println("\n=== Function Calls ===")
		for path, info := range graph.templates {
			if len(info.funcCalls) > 0 {
				fmt.Printf("%s:\n", path)
				for _, fn := range info.funcCalls {
					fmt.Printf("  - %%%%%s\n", fn)
				}
			}
		}
	}

	if detectCycles {
		fmt.Println("\n=== Cycle Detection ===")
		cycles := graph.detectCycles(rootKey)
		if len(cycles) == 0 {
			fmt.Println("No cycles detected in the @@ include graph.")
		} else {
			fmt.Printf("Found %d cycle(s):\n", len(cycles))
			for i, cycle := range cycles {
				fmt.Printf("  Cycle %d: %s\n", i+1, strings.Join(cycle, " -> "))
			}
		}
	}

	fmt.Println("\n=== Summary ===")
	fmt.Printf("Total templates analyzed: %d\n", len(graph.templates))
}

func (g *dependencyGraph) analyze(key, contents string) *templateInfo {
	if info, ok := g.templates[key]; ok {
		return info
	}
	info := &templateInfo{path: key}
	g.templates[key] = info

	pos := 0
	for {
		tok := codegen.FindToken(contents, pos)
		if tok == nil {
			break
		}
		pos = tok.End
		switch tok.Operator {
		case codegen.OpInclude, codegen.OpIncludeChop:
			depName := strings.Join(tok.Path, ".")
			info.includes = append(info.includes, depName)
			if g.trace {
				fmt.Printf("  -> resolving @@%s from %s\n", depName, key)
			}
			tf, err := g.loader.Load(tok.Path)
			if err != nil {
				if g.trace {
					fmt.Printf("     not found: %v\n", err)
				}
				continue
			}
			if g.trace {
				fmt.Printf("     resolved to %s\n", tf.Path)
			}
			g.analyze(depName, tf.RawSource)
		case codegen.OpFunction:
			info.funcCalls = append(info.funcCalls, strings.Join(tok.Path, "."))
		}
	}
	return info
}

func (g *dependencyGraph) printTree(key, indent string, visited map[string]bool, verbose bool) {
	info, ok := g.templates[key]
	if !ok {
		fmt.Printf("%s%s (not analyzed)\n", indent, key)
		return
	}
	if visited[key] {
		fmt.Printf("%s%s (already shown)\n", indent, key)
		return
	}
	visited[key] = true
	fmt.Printf("%s%s\n", indent, key)

	for _, dep := range info.includes {
		fmt.Printf("%s  +- @@%s\n", indent, dep)
		if _, ok := g.templates[dep]; ok {
			g.printTree(dep, indent+"  |  ", visited, verbose)
		}
	}
}

func (g *dependencyGraph) detectCycles(start string) [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	inStack := make(map[string]bool)
	var path []string

	var dfs func(current string)
	dfs = func(current string) {
		if inStack[current] {
			for i, p := range path {
				if p == current {
					cycle := append([]string{}, path[i:]...)
					cycle = append(cycle, current)
					cycles = append(cycles, cycle)
					return
				}
			}
			return
		}
		if visited[current] {
			return
		}
		visited[current] = true
		inStack[current] = true
		path = append(path, current)
		defer func() {
			path = path[:len(path)-1]
			inStack[current] = false
		}()

		info, ok := g.templates[current]
		if !ok {
			return
		}
		for _, dep := range info.includes {
			dfs(dep)
		}
	}

	dfs(start)
	return cycles
}

func (g *dependencyGraph) outputDOT() {
	fmt.Println("digraph TemplateDependencies {")
	fmt.Println("  rankdir=LR;")
	fmt.Println("  node [shape=box];")
	for path := range g.templates {
		fmt.Printf("  %q;\n", path)
	}
	for path, info := range g.templates {
		for _, dep := range info.includes {
			fmt.Printf("  %q -> %q [label=\"@@\"];\n", path, dep)
		}
	}
	fmt.Println("}")
}
