package parser

import "io"

// Default import limits.
const (
	DefaultMaxBytes int64 = 256 << 20
	DefaultMaxTicks       = 1_000_000
	DefaultMaxRows        = 5_000_000
)

// Limits bounds how much an importer reads and expands. Zero fields take
// the defaults.
type Limits struct {
	// MaxBytes caps the decompressed input size.
	MaxBytes int64
	// MaxTicks caps the number of ticks a profile expands to.
	MaxTicks int
	// MaxRows caps ticks times stack depth, the size of the columns.
	MaxRows int
}

// WithDefaults fills zero or negative fields with the defaults.
func (l Limits) WithDefaults() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	if l.MaxTicks <= 0 {
		l.MaxTicks = DefaultMaxTicks
	}
	if l.MaxRows <= 0 {
		l.MaxRows = DefaultMaxRows
	}
	return l
}

// LimitReader returns a reader that fails with ErrInputTooLarge once more
// than max bytes have been read from r. max <= 0 means DefaultMaxBytes.
func LimitReader(r io.Reader, max int64) io.Reader {
	if max <= 0 {
		max = DefaultMaxBytes
	}
	return &limitedReader{r: r, remaining: max}
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrInputTooLarge
	}
	// Read one byte past the budget so an input of exactly max bytes passes.
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	if int64(n) > l.remaining {
		n = int(l.remaining)
		l.remaining = -1
		return n, ErrInputTooLarge
	}
	l.remaining -= int64(n)
	return n, err
}
