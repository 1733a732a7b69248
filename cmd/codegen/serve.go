package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sprocketlabs/codegen"
	"github.com/sprocketlabs/codegen/utils"
)

var (
	serveAddr         string
	serveProjectFiles []string
	serveWatch        bool
	serveStaticDirs   string
	servePaths        string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve compiled project outputs over HTTP",
	Long: `Serve runs the projects given via -p/--project and serves the
resulting output files over HTTP. With -w/--watch it rebuilds in the
background whenever a file in a project manifest's directory changes;
without -w it rebuilds before serving every request.

Examples:
  codegen serve -p project.json
  codegen serve -p project.json -w --addr :8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Address to listen on")
	serveCmd.Flags().StringArrayVarP(&serveProjectFiles, "project", "p", nil, "Project manifest(s) to serve (can be repeated)")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Rebuild in the background on file changes")
	serveCmd.Flags().StringVar(&serveStaticDirs, "static", "", "Comma-separated prefix:folder static mounts")
	serveCmd.Flags().StringVar(&servePaths, "include-path", ".", "Comma-separated search paths for @@ includes")

	viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	if len(serveProjectFiles) == 0 {
		return fmt.Errorf("codegen serve: at least one -p/--project is required")
	}

	loader := buildLoader(strings.Split(servePaths, ","))

	server := &utils.PreviewServer{
		ProjectPaths: serveProjectFiles,
		Loader:       loader,
		Funcs:        codegen.NewFunctionRegistry(),
	}
	if serveStaticDirs != "" {
		server.StaticDirs = strings.Split(serveStaticDirs, ",")
	}

	if serveWatch {
		w, err := codegen.NewWatcher()
		if err != nil {
			return fmt.Errorf("codegen: start watcher: %w", err)
		}
		defer w.Close()
		if err := w.AddPaths(serveProjectFiles); err != nil {
			return fmt.Errorf("codegen: watch project files: %w", err)
		}
		if err := server.Init(); err != nil {
			return err
		}
		stop := make(chan struct{})
		defer close(stop)
		go w.Run(stop, server.TriggerRebuild)
	} else {
		server.Rebuild = true
	}

	return server.Serve(cmd.Context(), serveAddr)
}
