package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/profvis/internal/metrics"
	"github.com/profvis/internal/parser"
	"github.com/profvis/internal/parser/all"
	"github.com/profvis/internal/storage"
	"github.com/profvis/internal/webui"
)

var (
	// Serve command flags
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the render HTTP API",
	Long: `Start an HTTP server exposing:

  POST /api/render       render the request body
  GET  /api/render?key=  render a profile from the configured storage
  /api/flamegraph        nested flame graph (collapsed=true, min_percent=N)
  /api/codetable         per-line source timings (view=text|html, hide_zero=true)
  /api/summary           top labels and hot lines
  GET  /api/formats      accepted input formats
  GET  /api/health       liveness
  GET  /metrics          Prometheus metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	serverCfg := cfg.Server
	if serveAddr != "" {
		serverCfg.Addr = serveAddr
	}
	parsers := all.NewRegistryWithLimits(parser.Limits{MaxBytes: serverCfg.MaxDecodedBytes})
	svc := webui.NewRenderService(newPipeline(collector), parsers, st, webui.WithCacheSize(serverCfg.CacheSize))
	server := webui.NewServer(serverCfg, svc,
		webui.WithGatherer(reg),
		webui.WithLogger(logger),
		webui.WithTopN(cfg.Pipeline.TopN),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
