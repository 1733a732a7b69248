package utils

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/sprocketlabs/codegen"
)

// PreviewServer serves the compiled outputs of one or more project
// manifests over HTTP. It carries no notion of the directive grammar
// itself — it only drives ProjectFile.Build and then serves whatever
// ends up on disk, keeping template rendering and HTTP plumbing
// separate.
type PreviewServer struct {
	ProjectPaths []string
	Loader       codegen.TemplateLoader
	Funcs        *codegen.FunctionRegistry
	StaticDirs   []string

	// Rebuild, when true, reruns every project's Build before serving
	// each request, so editing a schema or template and refreshing the
	// browser is enough to see the change without a separate watcher.
	Rebuild bool

	mux      *http.ServeMux
	buildMu  sync.Mutex
	projects []*codegen.ProjectFile
}

// Init loads the configured project manifests, runs an initial build, and
// wires up the request mux. It must be called (directly, or via Serve)
// before the server can handle requests.
func (s *PreviewServer) Init() error {
	if s.Funcs == nil {
		s.Funcs = codegen.NewFunctionRegistry()
	}

	s.projects = nil
	for _, path := range s.ProjectPaths {
		pf, err := codegen.LoadProjectFile(path)
		if err != nil {
			return fmt.Errorf("preview server: load project %s: %w", path, err)
		}
		s.projects = append(s.projects, pf)
	}

	s.rebuildAll()
	s.createMux()
	return nil
}

// TriggerRebuild reruns every loaded project's Build in place, without
// touching the mux — safe to call from a background watcher goroutine
// while the server is handling requests.
func (s *PreviewServer) TriggerRebuild() {
	s.rebuildAll()
}

// rebuildAll runs every loaded project's Build, logging but not failing
// on a per-output error — the same soft-failure posture the compile
// CLI command takes, since a stale preview is more useful than none.
func (s *PreviewServer) rebuildAll() {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	for i, pf := range s.projects {
		for _, result := range pf.Build(s.Loader, s.Funcs) {
			if result.Err != nil {
				log.Printf("preview server: project %s: %v", s.ProjectPaths[i], result.Err)
			}
		}
	}
}

func (s *PreviewServer) createMux() {
	s.mux = http.NewServeMux()

	if len(s.StaticDirs) == 0 {
		s.StaticDirs = []string{"static:./static"}
	}
	log.Println("Registering static folders: ", s.StaticDirs)
	for _, statics := range s.StaticDirs {
		parts := strings.Split(statics, ":")
		if len(parts) != 2 {
			continue
		}
		prefix := strings.TrimPrefix(parts[0], "/")
		localfolder := parts[1]
		prefix = "/" + prefix + "/"
		s.mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(localfolder))))
	}

	// Everything else is served from the working directory. Build writes
	// each project's "out" paths relative to its manifest's directory, so
	// they are reachable here only when that directory lies under the
	// working directory.
	fileServer := http.FileServer(http.Dir("."))
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if s.Rebuild {
			s.rebuildAll()
		}
		log.Println("Path: ", r.URL.Path)
		fileServer.ServeHTTP(w, r)
	})
}

// Serve starts an HTTP server on addr, blocking until it exits or ctx is
// cancelled.
func (s *PreviewServer) Serve(ctx context.Context, addr string) error {
	if s.mux == nil {
		if err := s.Init(); err != nil {
			return err
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:        addr,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
		Handler:     s.mux,
	}
	log.Println("Starting preview server on: ", addr)
	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
