// Package writer encodes render outputs as (optionally compressed) JSON.
package writer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/profvis/pkg/compression"
)

// JSONWriter writes values of type T as JSON through a compression codec.
type JSONWriter[T any] struct {
	// Indent specifies the indentation for pretty printing.
	// Empty string means compact output.
	Indent string
	Codec  compression.Codec
}

// NewJSONWriter creates an uncompressed, compact JSON writer.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Codec: compression.None{}}
}

// NewPrettyJSONWriter creates an uncompressed JSON writer with indentation.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  ", Codec: compression.None{}}
}

// NewCompressedJSONWriter creates a compact JSON writer using codec.
func NewCompressedJSONWriter[T any](codec compression.Codec) *JSONWriter[T] {
	if codec == nil {
		codec = compression.None{}
	}
	return &JSONWriter[T]{Codec: codec}
}

// WriteResult contains statistics about a written output.
type WriteResult struct {
	Path           string
	JSONSize       int64
	CompressedSize int64
	CompressionPct float64
}

// Write encodes data to writer.
func (w *JSONWriter[T]) Write(data T, writer io.Writer) (*WriteResult, error) {
	out := &countingWriter{w: writer}
	cw, err := w.codec().NewWriter(out)
	if err != nil {
		return nil, err
	}

	raw := &countingWriter{w: cw}
	encoder := json.NewEncoder(raw)
	if w.Indent != "" {
		encoder.SetIndent("", w.Indent)
	}
	if err := encoder.Encode(data); err != nil {
		cw.Close()
		return nil, fmt.Errorf("failed to encode data: %w", err)
	}
	if err := cw.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush %s stream: %w", w.codec().Name(), err)
	}

	result := &WriteResult{JSONSize: raw.n, CompressedSize: out.n}
	if raw.n > 0 {
		result.CompressionPct = float64(out.n) / float64(raw.n) * 100
	}
	return result, nil
}

// WriteToFile writes data to dir/name plus the codec's extension and
// returns the final path in the result.
func (w *JSONWriter[T]) WriteToFile(data T, dir, name string) (*WriteResult, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, name+w.codec().Extension())
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	result, err := w.Write(data, file)
	if err != nil {
		return nil, err
	}
	result.Path = path
	return result, file.Close()
}

func (w *JSONWriter[T]) codec() compression.Codec {
	if w.Codec == nil {
		return compression.None{}
	}
	return w.Codec
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
