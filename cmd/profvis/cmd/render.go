package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/profvis/internal/flamegraph"
	"github.com/profvis/internal/formatter"
	"github.com/profvis/internal/profile"
	"github.com/profvis/internal/statistics"
	"github.com/profvis/internal/storage"
	"github.com/profvis/pkg/compression"
	"github.com/profvis/pkg/model"
	"github.com/profvis/pkg/parallel"
	"github.com/profvis/pkg/writer"
)

var (
	// Render command flags
	renderFormat      string
	renderOutputDir   string
	renderCompression string
	renderTable       string
	renderCollapsed   bool
	renderHideZero    bool
	renderTopN        int
	renderWorkers     int
	renderFromStorage bool
	renderUpload      bool
)

var renderCmd = &cobra.Command{
	Use:   "render [flags] <input>...",
	Short: "Render profiles into flame graph, line and label data",
	Long: `Render one or more profiles. Each input gets its own directory under the
output directory containing:

  result.json      blocks, per-line timings and per-label totals
  flamegraph.json  nested flame graph document
  summary.json     top labels, hot lines and stage timings
  codetable.txt    per-line source timings (with --table text|html)

JSON outputs are compressed with --compression. Inputs are rendered
concurrently.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "", "Input format: message, collapsed or pprof (default: detect from file name)")
	renderCmd.Flags().StringVarP(&renderOutputDir, "output-dir", "o", "", "Output directory (default: pipeline.output_dir)")
	renderCmd.Flags().StringVar(&renderCompression, "compression", "", "Compression for JSON outputs: none, gzip or zstd (default: pipeline.compression)")
	renderCmd.Flags().StringVar(&renderTable, "table", "", "Also write the code table: text or html")
	renderCmd.Flags().BoolVar(&renderCollapsed, "collapsed", false, "Hide frames between stack trace markers in the flame graph")
	renderCmd.Flags().BoolVar(&renderHideZero, "hide-zero", false, "Omit lines without time from the code table")
	renderCmd.Flags().IntVarP(&renderTopN, "top", "n", -1, "Entries in summary rankings (default: pipeline.top_n)")
	renderCmd.Flags().IntVarP(&renderWorkers, "workers", "w", 0, "Concurrent renders (default: pipeline.workers)")
	renderCmd.Flags().BoolVar(&renderFromStorage, "from-storage", false, "Treat inputs as keys in the configured storage")
	renderCmd.Flags().BoolVar(&renderUpload, "upload", false, "Upload each output directory to the configured storage")
}

// renderJob is one input and the directory its outputs go to.
type renderJob struct {
	Input string
	Dir   string
}

type renderSettings struct {
	codec    compression.Codec
	table    formatter.CodeTableFormatter
	topN     int
	hideZero bool
	storage  storage.Storage
	upload   bool
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	settings, err := newRenderSettings(cmd)
	if err != nil {
		return err
	}
	outDir := renderOutputDir
	if outDir == "" {
		outDir = cfg.Pipeline.OutputDir
	}
	workers := renderWorkers
	if workers <= 0 {
		workers = cfg.Pipeline.Workers
	}

	jobs := planJobs(args, outDir)
	pipeline := newPipeline()
	summaries := formatter.NewSummaryFormatter()

	results := parallel.Map(ctx, workers, jobs, func(ctx context.Context, job renderJob) (*statistics.Summary, error) {
		return renderOne(ctx, pipeline, job, settings, cmd)
	})

	for _, r := range results {
		if r.Err != nil {
			logger.Error("Failed to render %s: %v", r.Input.Input, r.Err)
			continue
		}
		summaries.Format(r.Value, logger)
		logger.Info("Outputs written to %s (%s)", r.Input.Dir, r.Duration)
	}
	if err := parallel.Errors(results); err != nil {
		return fmt.Errorf("%d of %d inputs failed", countFailed(results), len(results))
	}
	return nil
}

func newRenderSettings(cmd *cobra.Command) (*renderSettings, error) {
	name := renderCompression
	if name == "" {
		name = cfg.Pipeline.Compression
	}
	codec, err := compression.ByName(name)
	if err != nil {
		return nil, err
	}

	s := &renderSettings{
		codec:    codec,
		topN:     cfg.Pipeline.TopN,
		hideZero: renderHideZero || cfg.Pipeline.HideZeroLines,
		upload:   renderUpload,
	}
	if cmd.Flags().Changed("top") {
		s.topN = renderTopN
	}
	if renderTable != "" {
		s.table = formatter.NewRegistry().Get(renderTable)
	}
	if renderFromStorage || renderUpload {
		if s.storage, err = storage.NewStorage(&cfg.Storage); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// planJobs assigns each input a distinct output directory.
func planJobs(inputs []string, outDir string) []renderJob {
	used := make(map[string]bool)
	jobs := make([]renderJob, 0, len(inputs))
	for _, in := range inputs {
		base := baseName(in)
		name := base
		for n := 2; used[name]; n++ {
			name = base + "-" + strconv.Itoa(n)
		}
		used[name] = true
		jobs = append(jobs, renderJob{Input: in, Dir: filepath.Join(outDir, name)})
	}
	return jobs
}

func renderOne(ctx context.Context, pipeline *profile.Pipeline, job renderJob, s *renderSettings, cmd *cobra.Command) (*statistics.Summary, error) {
	var src storage.Storage
	if renderFromStorage {
		src = s.storage
	}
	msg, err := loadMessage(ctx, src, renderFormat, job.Input, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}

	out, err := pipeline.Render(ctx, msg)
	if err != nil {
		return nil, err
	}
	logger.Debug("Rendered %s: %d samples, %d blocks", job.Input, out.Stats.Samples, out.Stats.Blocks)

	if _, err := writer.NewCompressedJSONWriter[*model.Result](s.codec).WriteToFile(out.Result, job.Dir, "result.json"); err != nil {
		return nil, err
	}

	gen := flamegraph.NewGenerator(&flamegraph.GeneratorOptions{Collapsed: renderCollapsed || msg.Collapse})
	fg, err := gen.Generate(ctx, out.Tree, out.Result.Interval)
	if err != nil {
		return nil, err
	}
	written, err := flamegraph.NewJSONWriter(s.codec).WriteToFile(fg, job.Dir, "flamegraph.json")
	if err != nil {
		return nil, err
	}
	logger.Debug("Flame graph %s: %d bytes JSON, %d bytes written", written.Path, written.JSONSize, written.CompressedSize)

	summary := statistics.Summarize(out, s.topN)
	summary.Source = job.Input
	if _, err := writer.NewPrettyJSONWriter[*statistics.Summary]().WriteToFile(summary, job.Dir, "summary.json"); err != nil {
		return nil, err
	}

	if s.table != nil {
		if err := writeCodeTable(s, out.Result, job.Dir); err != nil {
			return nil, err
		}
	}

	if s.upload {
		keys, err := storage.UploadDir(ctx, s.storage, job.Dir, "renders/"+filepath.Base(job.Dir))
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			logger.Debug("Uploaded %s", s.storage.URL(k))
		}
	}
	return summary, nil
}

func writeCodeTable(s *renderSettings, result *model.Result, dir string) error {
	ext := ".txt"
	if s.table.Name() == "html" {
		ext = ".html"
	}
	f, err := os.Create(filepath.Join(dir, "codetable"+ext))
	if err != nil {
		return fmt.Errorf("failed to create code table: %w", err)
	}
	defer f.Close()
	return s.table.Format(f, result.Files, formatter.Options{
		HideZeroLines: s.hideZero,
		Highlight:     result.Highlight,
	})
}

func countFailed[T any, R any](results []parallel.Result[T, R]) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
