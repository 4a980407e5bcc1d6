// Package compression provides streaming gzip and zstd codecs for render
// outputs and compressed profile inputs.
package compression

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Type represents the compression algorithm used.
type Type uint8

const (
	TypeNone Type = iota
	TypeGzip
	TypeZstd
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Codec wraps streams with one compression algorithm.
type Codec interface {
	// NewWriter returns a writer that compresses into w. Close flushes it
	// without closing w.
	NewWriter(w io.Writer) (io.WriteCloser, error)
	// NewReader returns a reader that decompresses r.
	NewReader(r io.Reader) (io.ReadCloser, error)
	Type() Type
	Name() string
	// Extension is the file suffix including the dot, or "".
	Extension() string
}

// ByName returns the codec for "none", "gzip" or "zstd".
func ByName(name string) (Codec, error) {
	switch name {
	case "", "none":
		return None{}, nil
	case "gzip", "gz":
		return Gzip{Level: gzip.DefaultCompression}, nil
	case "zstd", "zst":
		return Zstd{Level: zstd.SpeedDefault}, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}

// Detect identifies the compression of a stream from its magic bytes.
func Detect(header []byte) Type {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return TypeGzip
	case bytes.HasPrefix(header, zstdMagic):
		return TypeZstd
	default:
		return TypeNone
	}
}

// NewAutoReader sniffs r and transparently decompresses gzip or zstd data.
func NewAutoReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	switch Detect(header) {
	case TypeGzip:
		return Gzip{}.NewReader(br)
	case TypeZstd:
		return Zstd{}.NewReader(br)
	default:
		return io.NopCloser(br), nil
	}
}

// None passes data through unchanged.
type None struct{}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (None) NewWriter(w io.Writer) (io.WriteCloser, error) { return nopWriteCloser{w}, nil }
func (None) NewReader(r io.Reader) (io.ReadCloser, error)  { return io.NopCloser(r), nil }
func (None) Type() Type                                     { return TypeNone }
func (None) Name() string                                   { return "none" }
func (None) Extension() string                              { return "" }

// Gzip compresses with klauspost's gzip implementation.
type Gzip struct {
	Level int
}

// NewWriter creates a gzip writer at the codec's level.
func (g Gzip) NewWriter(w io.Writer) (io.WriteCloser, error) {
	level := g.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	gw, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	return gw, nil
}

// NewReader creates a gzip reader.
func (Gzip) NewReader(r io.Reader) (io.ReadCloser, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return gr, nil
}

func (Gzip) Type() Type        { return TypeGzip }
func (Gzip) Name() string      { return "gzip" }
func (Gzip) Extension() string { return ".gz" }

// Zstd compresses with klauspost's zstd implementation.
type Zstd struct {
	Level zstd.EncoderLevel
}

// NewWriter creates a zstd encoder.
func (z Zstd) NewWriter(w io.Writer) (io.WriteCloser, error) {
	level := z.Level
	if level == 0 {
		level = zstd.SpeedDefault
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return enc, nil
}

// NewReader creates a zstd decoder.
func (Zstd) NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return dec.IOReadCloser(), nil
}

func (Zstd) Type() Type        { return TypeZstd }
func (Zstd) Name() string      { return "zstd" }
func (Zstd) Extension() string { return ".zst" }
