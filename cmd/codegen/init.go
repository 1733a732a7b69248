package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new codegen.yaml configuration",
	Long: `Initialize a new codegen.yaml configuration file in the current
directory, with example sources and sensible defaults for vendor_dir
and search_paths.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing codegen.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := "codegen.yaml"

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("codegen.yaml already exists; use --force to overwrite")
	}

	if err := os.MkdirAll("templates", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not create templates directory: %v\n", err)
	}

	content := `# codegen vendor configuration

# External template sources. Add sources here and run 'codegen get'
# to fetch them.
sources:
  # uikit:
  #   url: github.com/example/uikit
  #   path: templates    # subdirectory within the repo (optional)
  #   ref: v1.0.0        # tag, branch, or commit

# Where vendored templates are stored
vendor_dir: ./codegen_modules

# Template search paths, in priority order
search_paths:
  - ./templates
  - ./codegen_modules
`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write codegen.yaml: %w", err)
	}

	absPath, _ := filepath.Abs(configPath)
	fmt.Printf("Created %s\n", absPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Add sources to codegen.yaml")
	fmt.Println("  2. Run 'codegen get' to fetch them")
	fmt.Println("  3. Reference vendored templates with @@sourcename.path directives")

	return nil
}
