package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sprocketlabs/codegen"
)

var (
	compileProjectFiles []string
	compilePaths        string
	compileWatch        bool
	compilePrint        bool
	compileOut          string
)

var compileCmd = &cobra.Command{
	Use:   "compile [schema.json] [template.template]",
	Short: "Compile a schema against a template, or run a project manifest",
	Long: `Compile expands one (schema, template) pair, or every pair listed in
one or more project manifests given via -p/--project.

Examples:
  codegen compile schema.json page.template -o page.html
  codegen compile schema.json page.template --print
  codegen compile -p project.json
  codegen compile -p project.json -w`,
	Args: cobra.MaximumNArgs(2),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringArrayVarP(&compileProjectFiles, "project", "p", nil, "Project manifest(s) to build (can be repeated)")
	compileCmd.Flags().StringVar(&compilePaths, "include-path", ".", "Comma-separated search paths for @@ includes")
	compileCmd.Flags().BoolVarP(&compileWatch, "watch", "w", false, "Recompile on schema/template changes")
	compileCmd.Flags().BoolVar(&compilePrint, "print", false, "Print compiled output to stdout instead of a file")
	compileCmd.Flags().StringVarP(&compileOut, "out", "o", "", "Destination path for a single (schema, template) compile")

	viper.BindPFlag("compile.include_path", compileCmd.Flags().Lookup("include-path"))
}

func runCompile(cmd *cobra.Command, args []string) error {
	loader := buildLoader(strings.Split(compilePaths, ","))
	funcs := codegen.NewFunctionRegistry()

	if len(compileProjectFiles) > 0 {
		return runProjectBuild(compileProjectFiles, loader, funcs, compileWatch)
	}

	if len(args) != 2 {
		return fmt.Errorf("codegen compile: need schema and template arguments, or -p project.json")
	}
	if err := runSingleCompile(args[0], args[1], loader, funcs); err != nil || !compileWatch {
		return err
	}
	return watchAndRebuild(args, func() {
		if err := runSingleCompile(args[0], args[1], loader, funcs); err != nil {
			fmt.Fprintln(os.Stderr, "ERROR:", err)
		}
	})
}

func runSingleCompile(schemaPath, templatePath string, loader codegen.TemplateLoader, funcs *codegen.FunctionRegistry) error {
	schema, err := codegen.LoadSchema(schemaPath)
	if err != nil {
		return err
	}
	schema.Includes = loader

	templateBytes, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("codegen: read template %s: %w", templatePath, err)
	}

	// An ad hoc single-pair compile has no project manifest, so
	// project.current.project is intentionally left empty here; it is
	// only ever meaningful when a ProjectFile.Build sets it.
	ctx := &codegen.CompileContext{Schema: schemaPath, Template: templatePath}
	output, err := codegen.NewCompiler(schema, loader, funcs, ctx).Compile(string(templateBytes))
	if err != nil {
		return err
	}

	if compilePrint || compileOut == "" {
		fmt.Print(output)
		return nil
	}
	return os.WriteFile(compileOut, []byte(output), 0644)
}

func runProjectBuild(projectPaths []string, loader codegen.TemplateLoader, funcs *codegen.FunctionRegistry, watch bool) error {
	build := func() {
		for _, path := range projectPaths {
			pf, err := codegen.LoadProjectFile(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, "ERROR:", err)
				continue
			}
			for _, result := range pf.Build(loader, funcs) {
				if result.Err != nil {
					fmt.Fprintf(os.Stderr, "FAIL %s -> %s: %v\n", result.SchemaPath, result.TemplatePath, result.Err)
					continue
				}
				fmt.Printf("OK %s + %s -> %s\n", result.SchemaPath, result.TemplatePath, result.DestPath)
			}
		}
	}

	build()
	if !watch {
		return nil
	}
	return watchAndRebuild(projectPaths, build)
}

func watchAndRebuild(paths []string, build func()) error {
	w, err := codegen.NewWatcher()
	if err != nil {
		return fmt.Errorf("codegen: start watcher: %w", err)
	}
	defer w.Close()

	if err := w.AddPaths(paths); err != nil {
		return fmt.Errorf("codegen: watch input files: %w", err)
	}
	fmt.Fprintln(os.Stderr, "watching for changes, press Ctrl+C to stop")
	stop := make(chan struct{})
	w.Run(stop, build)
	return nil
}

func buildLoader(searchPaths []string) codegen.TemplateLoader {
	list := &codegen.LoaderList{}
	list.AddLoader(codegen.NewFileSystemLoader(searchPaths...))
	if vendorLoader, err := codegen.NewSourceLoaderFromDir("."); err == nil {
		list.AddLoader(vendorLoader)
	}
	return codegen.NewCachingLoader(list)
}

var watchCmd = &cobra.Command{
	Use:   "watch [schema.json] [template.template]",
	Short: "Alias for 'compile -w'",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		compileWatch = true
		return runCompile(cmd, args)
	},
}

func init() {
	watchCmd.Flags().StringArrayVarP(&compileProjectFiles, "project", "p", nil, "Project manifest(s) to build (can be repeated)")
	watchCmd.Flags().StringVar(&compilePaths, "include-path", ".", "Comma-separated search paths for @@ includes")
	watchCmd.Flags().StringVarP(&compileOut, "out", "o", "", "Destination path for a single (schema, template) compile")
}
