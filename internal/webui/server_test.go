package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profvis/internal/flamegraph"
	"github.com/profvis/internal/metrics"
	"github.com/profvis/internal/parser"
	"github.com/profvis/internal/parser/all"
	"github.com/profvis/internal/profile"
	"github.com/profvis/internal/statistics"
	"github.com/profvis/internal/storage"
	"github.com/profvis/internal/testutil"
	"github.com/profvis/pkg/compression"
	"github.com/profvis/pkg/config"
	apperrors "github.com/profvis/pkg/errors"
	"github.com/profvis/pkg/model"
)

func messageJSON(t *testing.T) []byte {
	t.Helper()
	msg := testutil.NewProfile().
		Repeat(3, testutil.FL("main", "m.R", 1), testutil.FL("work", "m.R", 2)).
		File("m.R", "main <- function() {\n  work()\n}").
		Message(10)
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}

type fixture struct {
	server   *Server
	svc      *RenderService
	store    *storage.LocalStorage
	registry *prometheus.Registry
}

func newFixture(t *testing.T, cfg config.ServerConfig) *fixture {
	t.Helper()
	return newFixtureWithParsers(t, cfg, nil)
}

func newFixtureWithParsers(t *testing.T, cfg config.ServerConfig, parsers *parser.Registry) *fixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	pipeline := profile.NewPipeline(profile.DefaultOptions(), profile.WithObserver(metrics.NewCollector(reg)))
	svc := NewRenderService(pipeline, parsers, store)
	return &fixture{
		server:   NewServer(cfg, svc, WithGatherer(reg)),
		svc:      svc,
		store:    store,
		registry: reg,
	}
}

func (f *fixture) do(t *testing.T, method, target string, body []byte, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	rec := f.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Formats(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	rec := f.do(t, http.MethodGet, "/api/formats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var formats []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &formats))
	assert.Contains(t, formats, "message")
	assert.Contains(t, formats, "pprof")
}

func TestServer_RenderBody(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	rec := f.do(t, http.MethodPost, "/api/render", messageJSON(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result model.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 30.0, result.TotalTime)
	assert.Equal(t, 30.0, result.LabelTimes["work"])
	require.Len(t, result.Files, 1)
	assert.Equal(t, 30.0, result.Files[0].Lines[1].SumTime)
}

func TestServer_RenderGzip(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	rec := f.do(t, http.MethodPost, "/api/render", messageJSON(t), "Accept-Encoding", "gzip, deflate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	rc, err := compression.Gzip{}.NewReader(rec.Body)
	require.NoError(t, err)
	defer rc.Close()
	var result model.Result
	require.NoError(t, json.NewDecoder(rc).Decode(&result))
	assert.Equal(t, 30.0, result.TotalTime)
}

func TestServer_RenderStoredKey(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	ctx := context.Background()
	require.NoError(t, f.store.Put(ctx, "profiles/a.json", bytes.NewReader(messageJSON(t))))

	rec := f.do(t, http.MethodGet, "/api/render?key=profiles/a.json", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Served from cache once rendered.
	require.NoError(t, f.store.Delete(ctx, "profiles/a.json"))
	rec = f.do(t, http.MethodGet, "/api/render?key=profiles/a.json", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/render?key=profiles/b.json", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperrors.CodeNotFound, decodeError(t, rec).Code)
}

func TestServer_RenderErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   []byte
		status int
		code   string
	}{
		{"MissingKey", http.MethodGet, "/api/render", nil, http.StatusBadRequest, apperrors.CodeMalformedInput},
		{"BadJSON", http.MethodPost, "/api/render", []byte("{not json"), http.StatusBadRequest, apperrors.CodeParseError},
		{"EmptyBody", http.MethodPost, "/api/render", []byte(""), http.StatusBadRequest, apperrors.CodeEmptyInput},
		{"UnknownFormat", http.MethodPost, "/api/render?format=perf", []byte("x"), http.StatusNotFound, apperrors.CodeNotFound},
		{"RaggedColumns", http.MethodPost, "/api/render", []byte(`{"prof":{"time":[1,2],"depth":[1],"label":["a"]}}`),
			http.StatusBadRequest, apperrors.CodeMalformedInput},
		{"BadMinPercent", http.MethodPost, "/api/flamegraph?min_percent=x", []byte("{}"), http.StatusBadRequest, apperrors.CodeMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, config.ServerConfig{})
			rec := f.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	rec := f.do(t, http.MethodPut, "/api/render", []byte("{}"))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
}

func TestServer_BodyTooLarge(t *testing.T) {
	f := newFixture(t, config.ServerConfig{MaxBodyBytes: 16})
	rec := f.do(t, http.MethodPost, "/api/render", messageJSON(t))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServer_DecodedBodyTooLarge(t *testing.T) {
	var body bytes.Buffer
	zw, err := compression.Zstd{}.NewWriter(&body)
	require.NoError(t, err)
	_, err = zw.Write([]byte(`{"prof":{}` + strings.Repeat(" ", 1<<20) + `}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	cfg := config.ServerConfig{MaxBodyBytes: 64 << 10}
	require.Less(t, int64(body.Len()), cfg.MaxBodyBytes)

	f := newFixtureWithParsers(t, cfg, all.NewRegistryWithLimits(parser.Limits{MaxBytes: 128 << 10}))
	rec := f.do(t, http.MethodPost, "/api/render", body.Bytes())
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, apperrors.CodeInputTooLarge, decodeError(t, rec).Code)
}

func TestServer_CollapsedCountTooLarge(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	rec := f.do(t, http.MethodPost, "/api/render?format=collapsed", []byte("a 1\nb 9223372036854775807\n"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, apperrors.CodeInputTooLarge, decodeError(t, rec).Code)
}

func TestServer_FlameGraphFromCollapsed(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	rec := f.do(t, http.MethodPost, "/api/flamegraph?format=collapsed", []byte("main;work 3\nmain 1\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var fg flamegraph.FlameGraph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fg))
	assert.Equal(t, 40.0, fg.TotalTime)
	require.Len(t, fg.Root.Children, 1)
	main := fg.Root.Children[0]
	assert.Equal(t, "main", main.Name)
	assert.Equal(t, 40.0, main.Value)
	require.Len(t, main.Children, 1)
	assert.Equal(t, 30.0, main.Children[0].Value)
}

func TestServer_CodeTable(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	rec := f.do(t, http.MethodPost, "/api/codetable?view=html&hide_zero=true", messageJSON(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `data-filename="m.R"`)
	assert.Contains(t, body, "main &lt;- function() {")
	assert.NotContains(t, body, `<td class="line">3</td>`)

	rec = f.do(t, http.MethodPost, "/api/codetable", messageJSON(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "== m.R =="))
}

func TestServer_Summary(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	require.NoError(t, f.store.Put(context.Background(), "s.json", bytes.NewReader(messageJSON(t))))

	rec := f.do(t, http.MethodGet, "/api/summary?key=s.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary statistics.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "s.json", summary.Source)
	assert.Equal(t, 30.0, summary.TotalTime)
	require.NotEmpty(t, summary.TopLabels)
	assert.Equal(t, "main", summary.TopLabels[0].Label)
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	f.do(t, http.MethodPost, "/api/render", messageJSON(t))
	f.do(t, http.MethodPost, "/api/render", []byte("{bad"))

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `profvis_render_runs_total{code="OK"} 1`)
	assert.Contains(t, body, "profvis_render_stage_duration_seconds_bucket")
}

func TestServer_NoStorage(t *testing.T) {
	svc := NewRenderService(profile.NewPipeline(profile.DefaultOptions()), nil, nil)
	s := NewServer(config.ServerConfig{}, svc)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/render?key=a.json", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_StartAfterShutdown(t *testing.T) {
	s := NewServer(config.ServerConfig{Addr: "127.0.0.1:0"}, nil)
	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, s.Start())
}
