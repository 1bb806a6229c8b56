package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"biblegen/internal/adapter/jsonapi"
	"biblegen/internal/adapter/memstore"
	"biblegen/internal/adapter/server"
	"biblegen/internal/logging"
	"biblegen/internal/usecase"
)

var (
	serveAddr string
	serveOut  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Preview the generated site over HTTP",
	Long: `Serve the output directory, plus GET /api/crossrefs/{ref} answered from
crossrefs.json and GET /healthz.

Examples:
  biblegen serve
  biblegen serve --addr 127.0.0.1:9000 --out ./public`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVarP(&serveOut, "out", "o", "", "output directory to serve (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}
	if serveOut != "" {
		abs, err := filepath.Abs(serveOut)
		if err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
		cfg.Output.Dir = abs
	}

	// Lookups are answered from crossrefs.json; the build store stays closed.
	xref, err := jsonapi.ReadCrossRefs(cfg.Output.Dir)
	if err != nil {
		return fmt.Errorf("no cross references in %s. Run 'biblegen build' first: %w", cfg.Output.Dir, err)
	}
	snapshot := memstore.NewMemoryStore()
	if err := snapshot.PutCrossRefs(xref); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Options{
		Addr:           cfg.Serve.Addr,
		Dir:            cfg.Output.Dir,
		AllowedOrigins: cfg.Serve.AllowedOrigins,
		Logger:         logging.GetLogger(),
	}, usecase.NewLookupUseCase(snapshot))

	fmt.Printf("Serving %s on %s\n", cfg.Output.Dir, cfg.Serve.Addr)
	return srv.ListenAndServe(ctx)
}
