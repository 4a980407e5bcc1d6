package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/profvis/pkg/errors"
	"github.com/profvis/pkg/model"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 10.0, cfg.Pipeline.DefaultInterval)
	assert.Equal(t, 20, cfg.Pipeline.TopN)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, "none", cfg.Pipeline.Compression)
	assert.Empty(t, cfg.Pipeline.Markers)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(256<<20), cfg.Server.MaxDecodedBytes)
	assert.Equal(t, 64, cfg.Server.CacheSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
pipeline:
  default_interval: 5
  hide_zero_lines: true
  top_n: 3
  compression: zstd
  markers:
    - off: "<hide>"
      on: "</hide>"
storage:
  type: cos
  bucket: profiles-1250000000
  region: ap-guangzhou
server:
  addr: "127.0.0.1:9000"
  write_timeout: 2m
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.Pipeline.DefaultInterval)
	assert.True(t, cfg.Pipeline.HideZeroLines)
	assert.Equal(t, 3, cfg.Pipeline.TopN)
	assert.Equal(t, "zstd", cfg.Pipeline.Compression)
	assert.Equal(t, []model.MarkerPair{{Off: "<hide>", On: "</hide>"}}, cfg.Pipeline.Markers)
	assert.Equal(t, "cos", cfg.Storage.Type)
	assert.Equal(t, "profiles-1250000000", cfg.Storage.Bucket)
	assert.Equal(t, "https", cfg.Storage.Scheme)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 10.0, cfg.Pipeline.DefaultInterval)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PROFVIS_PIPELINE_TOP_N", "7")
	t.Setenv("PROFVIS_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pipeline.TopN)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFromReader_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "zero interval", content: "pipeline:\n  default_interval: 0\n"},
		{name: "no workers", content: "pipeline:\n  workers: 0\n"},
		{name: "unknown compression", content: "pipeline:\n  compression: brotli\n"},
		{name: "half marker", content: "pipeline:\n  markers:\n    - off: x\n"},
		{name: "unknown storage", content: "storage:\n  type: s3\n"},
		{name: "broken yaml", content: "pipeline: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromReader("yaml", []byte(tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrConfigError)
		})
	}
}

func TestTracingConfig(t *testing.T) {
	cfg, err := LoadFromReader("yaml", []byte(`
telemetry:
  enabled: true
  endpoint: "http://collector:4318"
  protocol: http/protobuf
  sample_ratio: 0.5
`))
	require.NoError(t, err)

	tc := cfg.TracingConfig("1.2.3")
	assert.True(t, tc.Enabled)
	assert.Equal(t, "http://collector:4318", tc.Endpoint)
	assert.Equal(t, "http/protobuf", tc.Protocol)
	assert.Equal(t, 0.5, tc.SampleRatio)
	assert.Equal(t, "1.2.3", tc.ServiceVersion)
	assert.Equal(t, "profvis", tc.ServiceName)
}
