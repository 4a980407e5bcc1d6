package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/profvis/pkg/compression"
	"github.com/profvis/pkg/model"
	"github.com/profvis/pkg/writer"
)

var (
	// Import command flags
	importFormat      string
	importOutput      string
	importCompression string
	importPretty      bool
)

var importCmd = &cobra.Command{
	Use:   "import [flags] <input>",
	Short: "Convert folded stacks or a pprof profile into a render message",
	Long: `Convert an input profile into the JSON render message the render
command and the HTTP API accept. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "Input format: collapsed or pprof (default: detect from file name)")
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "-", "Output file, - for stdout")
	importCmd.Flags().StringVar(&importCompression, "compression", "none", "Output compression: none, gzip or zstd")
	importCmd.Flags().BoolVar(&importPretty, "pretty", false, "Indent the JSON output")
}

func runImport(cmd *cobra.Command, args []string) error {
	codec, err := compression.ByName(importCompression)
	if err != nil {
		return err
	}
	msg, err := loadMessage(cmd.Context(), nil, importFormat, args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	jw := writer.NewCompressedJSONWriter[*model.Message](codec)
	if importPretty {
		jw.Indent = "  "
	}

	var out io.Writer = cmd.OutOrStdout()
	if importOutput != "-" {
		f, err := os.Create(importOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	result, err := jw.Write(msg, out)
	if err != nil {
		return err
	}
	logger.Info("Imported %s: %d rows, %d bytes", args[0], len(msg.Prof[model.ColumnTime]), result.CompressedSize)
	return nil
}
