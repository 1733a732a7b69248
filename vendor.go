package codegen

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes one external template source: where to clone it
// from, which ref to pin, and the subdirectory within the clone that holds
// the .template files actually wanted.
type SourceConfig struct {
	URL  string `yaml:"url"`
	Path string `yaml:"path"`
	Ref  string `yaml:"ref"`
}

// VendorConfig is the parsed form of a project's codegen.yaml: the set of
// named external sources available to "@@sourcename.rest.of.path"
// directives, plus where vendored clones and local templates are found on
// disk.
type VendorConfig struct {
	Sources     map[string]SourceConfig `yaml:"sources"`
	VendorDir   string                  `yaml:"vendor_dir"`
	SearchPaths []string                `yaml:"search_paths"`
	RequireLock bool                    `yaml:"require_lock"`

	configDir string
}

// LoadVendorConfig loads a VendorConfig from a codegen.yaml file.
func LoadVendorConfig(path string) (*VendorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("codegen: read vendor config %s: %w", path, err)
	}

	var config VendorConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("codegen: parse vendor config %s: %w", path, err)
	}

	config.configDir = filepath.Dir(path)
	if config.VendorDir == "" {
		config.VendorDir = "./codegen_modules"
	}
	if len(config.SearchPaths) == 0 {
		config.SearchPaths = []string{"./templates", config.VendorDir}
	}
	return &config, nil
}

// FindVendorConfig searches for codegen.yaml (or .codegen.yaml) starting at
// startDir and walking up through parent directories until found.
func FindVendorConfig(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range []string{"codegen.yaml", ".codegen.yaml"} {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("codegen: no codegen.yaml found in %s or any parent directory", startDir)
		}
		dir = parent
	}
}

// ResolveVendorDir returns the vendor directory as an absolute path,
// relative to the config file's own directory.
func (c *VendorConfig) ResolveVendorDir() string {
	if filepath.IsAbs(c.VendorDir) {
		return c.VendorDir
	}
	return filepath.Join(c.configDir, c.VendorDir)
}

// ResolveSearchPaths returns SearchPaths as absolute paths, relative to the
// config file's own directory.
func (c *VendorConfig) ResolveSearchPaths() []string {
	resolved := make([]string, len(c.SearchPaths))
	for i, p := range c.SearchPaths {
		if filepath.IsAbs(p) {
			resolved[i] = p
		} else {
			resolved[i] = filepath.Join(c.configDir, p)
		}
	}
	return resolved
}

// SourceLoader is a TemplateLoader that treats the first path segment of a
// directive (e.g. the "uikit" in "@@uikit.button") as the name of a source
// declared in VendorConfig.Sources, resolving the remaining segments inside
// that source's vendored checkout. A first segment that names no source
// falls through to the plain FileSystemLoader over SearchPaths, so local
// and vendored templates share the same @@ directive syntax.
type SourceLoader struct {
	config   *VendorConfig
	fsLoader *FileSystemLoader
}

// NewSourceLoader builds a SourceLoader over an already-resolved
// VendorConfig (paths absolute, as returned by ResolveVendorDir /
// ResolveSearchPaths).
func NewSourceLoader(config *VendorConfig) *SourceLoader {
	return &SourceLoader{
		config:   config,
		fsLoader: NewFileSystemLoader(config.SearchPaths...),
	}
}

// NewSourceLoaderFromConfig loads codegen.yaml at configPath, resolves its
// paths relative to the config file's directory, and builds a SourceLoader
// over it.
func NewSourceLoaderFromConfig(configPath string) (*SourceLoader, error) {
	config, err := LoadVendorConfig(configPath)
	if err != nil {
		return nil, err
	}
	config.VendorDir = config.ResolveVendorDir()
	config.SearchPaths = config.ResolveSearchPaths()
	return NewSourceLoader(config), nil
}

// NewSourceLoaderFromDir finds codegen.yaml by walking up from dir and
// builds a SourceLoader from it.
func NewSourceLoaderFromDir(dir string) (*SourceLoader, error) {
	configPath, err := FindVendorConfig(dir)
	if err != nil {
		return nil, err
	}
	return NewSourceLoaderFromConfig(configPath)
}

func (s *SourceLoader) Load(path []string) (*TemplateFile, error) {
	if len(path) >= 2 {
		if source, ok := s.config.Sources[path[0]]; ok {
			vendored := filepath.Join(s.config.VendorDir, source.URL, source.Path)
			rel := filepath.Join(path[1:]...) + ".template"
			full := filepath.Join(vendored, rel)
			info, err := os.Stat(full)
			if err == nil && !info.IsDir() {
				contents, err := os.ReadFile(full)
				if err != nil {
					return nil, fmt.Errorf("codegen: read vendored template %s: %w", full, err)
				}
				return &TemplateFile{Path: full, RawSource: string(contents)}, nil
			}
		}
	}
	return s.fsLoader.Load(path)
}

// VendorLock is the parsed form of a project's codegen.lock: the resolved
// commit each declared source was pinned to the last time "codegen get" ran.
type VendorLock struct {
	Version int                     `yaml:"version"`
	Sources map[string]LockedSource `yaml:"sources"`
}

// LockedSource is one entry of VendorLock.
type LockedSource struct {
	URL            string `yaml:"url"`
	Ref            string `yaml:"ref"`
	ResolvedCommit string `yaml:"resolved_commit"`
	FetchedAt      string `yaml:"fetched_at"`
}

// FetchResult reports the outcome of fetching a single source.
type FetchResult struct {
	SourceName     string
	URL            string
	Ref            string
	ResolvedCommit string
	DestDir        string
	FetchedAt      time.Time
}

// FetchSource clones (or updates and re-checks-out) the named source from
// config into config.VendorDir, via the system git binary.
func FetchSource(config *VendorConfig, sourceName string) (*FetchResult, error) {
	source, ok := config.Sources[sourceName]
	if !ok {
		return nil, fmt.Errorf("codegen: source %q not found in vendor config", sourceName)
	}

	destDir := filepath.Join(config.VendorDir, source.URL)
	commit, err := gitCloneOrUpdate(source.URL, source.Ref, destDir)
	if err != nil {
		return nil, fmt.Errorf("codegen: fetch source %q: %w", sourceName, err)
	}

	return &FetchResult{
		SourceName:     sourceName,
		URL:            source.URL,
		Ref:            source.Ref,
		ResolvedCommit: commit,
		DestDir:        destDir,
		FetchedAt:      time.Now(),
	}, nil
}

// FetchAllSources fetches every source declared in config, stopping at the
// first failure.
func FetchAllSources(config *VendorConfig) (map[string]*FetchResult, error) {
	results := make(map[string]*FetchResult)
	for name := range config.Sources {
		result, err := FetchSource(config, name)
		if err != nil {
			return results, err
		}
		results[name] = result
	}
	return results, nil
}

// WriteLockFile marshals lock as YAML and writes it to path, with a
// header warning readers not to hand-edit it.
func WriteLockFile(path string, lock *VendorLock) error {
	data, err := yaml.Marshal(lock)
	if err != nil {
		return fmt.Errorf("codegen: marshal lock file: %w", err)
	}
	header := "# AUTO-GENERATED - do not edit manually\n# Run 'codegen get' to regenerate\n\n"
	if err := os.WriteFile(path, []byte(header+string(data)), 0644); err != nil {
		return fmt.Errorf("codegen: write lock file %s: %w", path, err)
	}
	return nil
}

// LoadLockFile reads and parses a codegen.lock file.
func LoadLockFile(path string) (*VendorLock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("codegen: read lock file %s: %w", path, err)
	}
	var lock VendorLock
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("codegen: parse lock file %s: %w", path, err)
	}
	return &lock, nil
}

func gitCloneOrUpdate(url, ref, destDir string) (string, error) {
	gitURL := url
	if strings.HasPrefix(url, "github.com/") {
		gitURL = "https://" + url + ".git"
	}

	if _, err := os.Stat(destDir); err == nil {
		return gitFetchAndCheckout(destDir, ref)
	}

	if err := os.MkdirAll(filepath.Dir(destDir), 0755); err != nil {
		return "", fmt.Errorf("create vendor directory: %w", err)
	}

	cmd := exec.Command("git", "clone", "--quiet", gitURL, destDir)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("git clone failed: %s: %w", string(output), err)
	}
	return gitCheckout(destDir, ref)
}

func gitFetchAndCheckout(dir, ref string) (string, error) {
	cmd := exec.Command("git", "-C", dir, "fetch", "--all", "--quiet")
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("git fetch failed: %s: %w", string(output), err)
	}
	return gitCheckout(dir, ref)
}

func gitCheckout(dir, ref string) (string, error) {
	cmd := exec.Command("git", "-C", dir, "checkout", "--quiet", ref)
	if output, err := cmd.CombinedOutput(); err != nil {
		cmd = exec.Command("git", "-C", dir, "checkout", "--quiet", "origin/"+ref)
		if output2, err2 := cmd.CombinedOutput(); err2 != nil {
			return "", fmt.Errorf("git checkout failed: %s / %s: %w", string(output), string(output2), err)
		}
	}

	cmd = exec.Command("git", "-C", dir, "rev-parse", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("resolve commit hash: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
