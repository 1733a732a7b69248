package codegen

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrTemplateNotFound is returned by a TemplateLoader when no backing
// file exists for a requested path. The compiler treats this as a soft
// failure: the @@ include resolves to the empty string and a warning is
// logged rather than treated as fatal.
var ErrTemplateNotFound = errors.New("codegen: template not found")

// TemplateFile is the loader's unit of caching and dependency tracking:
// the raw bytes of one template file, its resolved path, and the set of
// other TemplateFiles it has been observed to include via @@/@@!.
type TemplateFile struct {
	Path      string
	RawSource string

	mu       sync.Mutex
	includes []*TemplateFile
}

// AddDependency records that t includes another, returning false if the
// dependency was already recorded (so a caller walking the include graph
// can detect repeats without special-casing cycles itself).
func (t *TemplateFile) AddDependency(another *TemplateFile) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.includes {
		if existing.Path == another.Path {
			return false
		}
	}
	t.includes = append(t.includes, another)
	return true
}

// Dependencies returns the TemplateFiles this one has been recorded as
// including.
func (t *TemplateFile) Dependencies() []*TemplateFile {
	return t.includes
}

// TemplateLoader resolves a dot-path (e.g. []string{"a", "b", "c"} for
// "@@a.b.c") to the contents of a `.template` file.
type TemplateLoader interface {
	Load(path []string) (*TemplateFile, error)
}

// FileSystemLoader resolves a path by joining its segments with "/",
// appending the ".template" extension, and searching each of Folders in
// order.
type FileSystemLoader struct {
	Folders []string
}

// NewFileSystemLoader builds a loader searching the given folders, in
// priority order.
func NewFileSystemLoader(folders ...string) *FileSystemLoader {
	return &FileSystemLoader{Folders: folders}
}

func (f *FileSystemLoader) Load(path []string) (*TemplateFile, error) {
	rel := filepath.Join(path...) + ".template"
	folders := f.Folders
	if len(folders) == 0 {
		folders = []string{"."}
	}
	for _, folder := range folders {
		full := filepath.Join(folder, rel)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		contents, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("codegen: read template %s: %w", full, err)
		}
		return &TemplateFile{Path: full, RawSource: string(contents)}, nil
	}
	return nil, ErrTemplateNotFound
}

// EmbedFSLoader resolves templates compiled into the binary via
// //go:embed, searching each embedded FS in order.
type EmbedFSLoader struct {
	Embeds []embed.FS
}

// NewEmbedFSLoader builds a loader over one or more embedded file
// systems.
func NewEmbedFSLoader(fss ...embed.FS) *EmbedFSLoader {
	return &EmbedFSLoader{Embeds: fss}
}

func (e *EmbedFSLoader) Load(path []string) (*TemplateFile, error) {
	rel := strings.Join(path, "/") + ".template"
	for _, fsys := range e.Embeds {
		contents, err := fsys.ReadFile(rel)
		if err == nil {
			return &TemplateFile{Path: rel, RawSource: string(contents)}, nil
		}
	}
	return nil, ErrTemplateNotFound
}

// LoaderList tries each of its loaders in order, returning the first
// successful resolution.
type LoaderList struct {
	loaders []TemplateLoader
}

// AddLoader appends loader to the search chain and returns the receiver,
// so callers can chain construction fluently.
func (l *LoaderList) AddLoader(loader TemplateLoader) *LoaderList {
	l.loaders = append(l.loaders, loader)
	return l
}

func (l *LoaderList) Load(path []string) (*TemplateFile, error) {
	for _, loader := range l.loaders {
		tf, err := loader.Load(path)
		if err == nil {
			return tf, nil
		}
		if !errors.Is(err, ErrTemplateNotFound) {
			return nil, err
		}
	}
	return nil, ErrTemplateNotFound
}

// CachingLoader wraps another TemplateLoader and memoizes results by
// resolved dot-path, so a template included from multiple places within
// one compile run is read from disk once. This is the "per-path
// memoisation" piece of the loader chain.
type CachingLoader struct {
	Inner TemplateLoader

	mu    sync.Mutex
	cache map[string]*TemplateFile
}

// NewCachingLoader wraps inner with a fresh memoisation cache.
func NewCachingLoader(inner TemplateLoader) *CachingLoader {
	return &CachingLoader{Inner: inner, cache: make(map[string]*TemplateFile)}
}

func (c *CachingLoader) Load(path []string) (*TemplateFile, error) {
	key := strings.Join(path, ".")
	c.mu.Lock()
	if tf, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return tf, nil
	}
	c.mu.Unlock()

	tf, err := c.Inner.Load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = tf
	c.mu.Unlock()
	return tf, nil
}

// loadIncludedTemplate is the shared helper behind both the @@/@@!
// evaluator branch and Schema's transparent string-include resolution.
func loadIncludedTemplate(loader TemplateLoader, path []string) (string, error) {
	if loader == nil {
		return "", ErrTemplateNotFound
	}
	tf, err := loader.Load(path)
	if err != nil {
		return "", err
	}
	return tf.RawSource, nil
}
