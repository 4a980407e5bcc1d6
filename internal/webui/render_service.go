package webui

import (
	"context"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/profvis/internal/flamegraph"
	"github.com/profvis/internal/parser"
	"github.com/profvis/internal/parser/all"
	"github.com/profvis/internal/profile"
	"github.com/profvis/internal/storage"
	apperrors "github.com/profvis/pkg/errors"
)

// Input names a profile to render: either a storage key or a request body.
type Input struct {
	Key    string
	Format string
	Body   io.Reader
}

// DefaultCacheSize is the number of rendered stored profiles kept in memory.
const DefaultCacheSize = 64

// RenderService parses inputs and runs them through the pipeline. Outputs
// of stored profiles are cached by format and key, least recently used
// first out.
type RenderService struct {
	pipeline  *profile.Pipeline
	parsers   *parser.Registry
	storage   storage.Storage
	cacheSize int
	cache     *lru.Cache[string, *profile.Output] // "format:key"
}

// RenderOption customizes a RenderService.
type RenderOption func(*RenderService)

// WithCacheSize bounds the output cache to n entries. n <= 0 keeps
// DefaultCacheSize.
func WithCacheSize(n int) RenderOption {
	return func(s *RenderService) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// NewRenderService creates a RenderService. st may be nil, in which case
// only request bodies can be rendered.
func NewRenderService(pipeline *profile.Pipeline, parsers *parser.Registry, st storage.Storage, opts ...RenderOption) *RenderService {
	if parsers == nil {
		parsers = all.NewRegistry()
	}
	s := &RenderService{
		pipeline:  pipeline,
		parsers:   parsers,
		storage:   st,
		cacheSize: DefaultCacheSize,
	}
	for _, o := range opts {
		o(s)
	}
	// lru.New only fails on a non-positive size.
	s.cache, _ = lru.New[string, *profile.Output](s.cacheSize)
	return s
}

// Render parses in and renders it.
func (s *RenderService) Render(ctx context.Context, in Input) (*profile.Output, error) {
	if in.Key == "" {
		if in.Body == nil {
			return nil, apperrors.ErrEmptyInput
		}
		return s.render(ctx, in.Format, "", in.Body)
	}

	cacheKey := in.Format + ":" + in.Key
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached, nil
	}
	if s.storage == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "no profile storage configured")
	}

	rc, err := s.storage.Get(ctx, in.Key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	out, err := s.render(ctx, in.Format, in.Key, rc)
	if err != nil {
		return nil, err
	}
	s.cache.Add(cacheKey, out)
	return out, nil
}

// FlameGraph renders in as a flame graph.
func (s *RenderService) FlameGraph(ctx context.Context, in Input, opts *flamegraph.GeneratorOptions) (*flamegraph.FlameGraph, error) {
	out, err := s.Render(ctx, in)
	if err != nil {
		return nil, err
	}
	return flamegraph.NewGenerator(opts).Generate(ctx, out.Tree, out.Result.Interval)
}

// Formats lists the accepted input formats.
func (s *RenderService) Formats() []string {
	return s.parsers.Formats()
}

func (s *RenderService) render(ctx context.Context, format, filename string, r io.Reader) (*profile.Output, error) {
	msg, err := all.Parse(ctx, s.parsers, format, filename, r)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Render(ctx, msg)
}
