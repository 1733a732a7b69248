package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sprocketlabs/codegen"
)

var (
	getUpdate  bool
	getVerify  bool
	getDryRun  bool
	getVerbose bool
)

var getCmd = &cobra.Command{
	Use:   "get [source...]",
	Short: "Fetch external template sources",
	Long: `Fetch external template sources defined in codegen.yaml.

Examples:
  codegen get                  # fetch all configured sources
  codegen get uikit            # fetch a specific source
  codegen get --verify         # check each source is locked and fetched
  codegen get --dry-run        # show what would be fetched`,
	RunE: runGet,
}

func init() {
	getCmd.Flags().BoolVarP(&getUpdate, "update", "u", false, "Update to latest versions matching refs")
	getCmd.Flags().BoolVar(&getVerify, "verify", false, "Check each source has a lock entry and a fetched directory (commits are not compared)")
	getCmd.Flags().BoolVar(&getDryRun, "dry-run", false, "Show what would be fetched without doing it")
	getCmd.Flags().BoolVarP(&getVerbose, "verbose", "v", false, "Verbose output")
}

func runGet(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath, err := codegen.FindVendorConfig(cwd)
	if err != nil {
		return fmt.Errorf("no codegen.yaml found: %w", err)
	}
	if getVerbose {
		fmt.Fprintf(os.Stderr, "Using config: %s\n", configPath)
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

	names := args
	for i, name := range names {
		if len(name) > 0 && name[0] == '@' {
			names[i] = name[1:]
		}
		if _, ok := config.Sources[names[i]]; !ok {
			return fmt.Errorf("source '%s' not found in codegen.yaml", names[i])
		}
	}
	if len(names) == 0 {
		for name := range config.Sources {
			names = append(names, name)
		}
	}

	if getDryRun {
		fmt.Println("Would fetch:")
		for _, name := range names {
			source := config.Sources[name]
			dest := filepath.Join(config.VendorDir, source.URL)
			fmt.Printf("  %s: %s@%s -> %s\n", name, source.URL, source.Ref, dest)
		}
		return nil
	}

	if getVerify {
		return runVerify(config, configPath, names)
	}

	fmt.Printf("Fetching %d source(s)...\n", len(names))
	results := make(map[string]*codegen.FetchResult)
	for _, name := range names {
		source := config.Sources[name]
		fmt.Printf("  %s: %s@%s... ", name, source.URL, source.Ref)
		result, err := codegen.FetchSource(config, name)
		if err != nil {
			fmt.Println("FAILED")
			return fmt.Errorf("failed to fetch '%s': %w", name, err)
		}
		results[name] = result
		fmt.Printf("OK (%s)\n", shortCommit(result.ResolvedCommit))
	}

	lockPath := filepath.Join(filepath.Dir(configPath), "codegen.lock")
	lock := &codegen.VendorLock{Version: 1, Sources: make(map[string]codegen.LockedSource)}
	if existing, err := codegen.LoadLockFile(lockPath); err == nil {
		lock = existing
	}
	for name, result := range results {
		lock.Sources[name] = codegen.LockedSource{
			URL:            result.URL,
			Ref:            result.Ref,
			ResolvedCommit: result.ResolvedCommit,
			FetchedAt:      result.FetchedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if err := codegen.WriteLockFile(lockPath, lock); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	fmt.Printf("\nWrote %s\n", lockPath)
	return nil
}

func runVerify(config *codegen.VendorConfig, configPath string, names []string) error {
	lockPath := filepath.Join(filepath.Dir(configPath), "codegen.lock")
	lock, err := codegen.LoadLockFile(lockPath)
	if err != nil {
		return fmt.Errorf("no lock file found: %w", err)
	}

	allGood := true
	for _, name := range names {
		source := config.Sources[name]
		dest := filepath.Join(config.VendorDir, source.URL)

		locked, ok := lock.Sources[name]
		if !ok {
			fmt.Printf("MISSING %s: not in lock file\n", name)
			allGood = false
			continue
		}
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			fmt.Printf("MISSING %s: not fetched\n", name)
			allGood = false
			continue
		}
		fmt.Printf("OK %s: fetched, locked at %s\n", name, shortCommit(locked.ResolvedCommit))
	}
	if !allGood {
		return fmt.Errorf("verification failed")
	}
	return nil
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
