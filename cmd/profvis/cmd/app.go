package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/profvis/internal/parser/all"
	"github.com/profvis/internal/profile"
	"github.com/profvis/internal/storage"
	"github.com/profvis/pkg/model"
)

// newPipeline builds a pipeline from the loaded configuration.
func newPipeline(observers ...profile.Observer) *profile.Pipeline {
	opts := []profile.Option{profile.WithLogger(logger)}
	for _, o := range observers {
		opts = append(opts, profile.WithObserver(o))
	}
	return profile.NewPipeline(profile.Options{
		DefaultInterval: cfg.Pipeline.DefaultInterval,
		Markers:         cfg.Pipeline.Markers,
	}, opts...)
}

// loadMessage reads and parses one input. "-" is stdin; with st set, name
// is a storage key.
func loadMessage(ctx context.Context, st storage.Storage, format, name string, stdin io.Reader) (*model.Message, error) {
	var r io.ReadCloser
	switch {
	case st != nil:
		rc, err := st.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		r = rc
	case name == "-":
		r = io.NopCloser(stdin)
	default:
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		r = f
	}
	defer r.Close()
	return all.Parse(ctx, all.NewRegistry(), format, name, r)
}

// baseName strips directories and every extension: "a/cpu.pb.gz" -> "cpu".
func baseName(name string) string {
	base := filepath.Base(filepath.FromSlash(name))
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "-" || base == "" || base == "." {
		return "stdin"
	}
	return base
}
