package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sprocketlabs/codegen"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured template sources",
	Long:  `List all external template sources defined in codegen.yaml and their status.`,
	RunE:  runSources,
}

func runSources(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath, err := codegen.FindVendorConfig(cwd)
	if err != nil {
		return fmt.Errorf("no codegen.yaml found: %w", err)
	}

	config, err := codegen.LoadVendorConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	config.VendorDir = config.ResolveVendorDir()

	if len(config.Sources) == 0 {
		fmt.Println("No sources configured in codegen.yaml")
		return nil
	}

	lockPath := filepath.Join(filepath.Dir(configPath), "codegen.lock")
	lock, _ := codegen.LoadLockFile(lockPath)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tURL\tREF\tSTATUS")
	for name, source := range config.Sources {
		status := "not fetched"
		dest := filepath.Join(config.VendorDir, source.URL)
		if _, err := os.Stat(dest); err == nil {
			if lock != nil {
				if locked, ok := lock.Sources[name]; ok {
					status = fmt.Sprintf("vendored (%s)", shortCommit(locked.ResolvedCommit))
				} else {
					status = "vendored (not locked)"
				}
			} else {
				status = "vendored (no lock file)"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, source.URL, source.Ref, status)
	}
	return w.Flush()
}
