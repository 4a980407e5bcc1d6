package webui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profvis/internal/mock"
	"github.com/profvis/internal/parser"
	"github.com/profvis/internal/profile"
	"github.com/profvis/internal/testutil"
	"github.com/profvis/pkg/config"
	apperrors "github.com/profvis/pkg/errors"
)

func TestRenderService_CachesStoredProfiles(t *testing.T) {
	st := &mock.MockStorage{}
	st.ExpectGet("p.json", messageJSON(t), nil).Once()

	svc := NewRenderService(profile.NewPipeline(profile.DefaultOptions()), nil, st)
	ctx := context.Background()

	first, err := svc.Render(ctx, Input{Key: "p.json"})
	require.NoError(t, err)
	second, err := svc.Render(ctx, Input{Key: "p.json"})
	require.NoError(t, err)

	assert.Same(t, first, second)
	st.AssertNumberOfCalls(t, "Get", 1)
	st.AssertExpectations(t)
}

func TestRenderService_CacheEvictsLeastRecentlyUsed(t *testing.T) {
	st := &mock.MockStorage{}
	st.ExpectGet("a", messageJSON(t), nil).Once()
	st.ExpectGet("b", messageJSON(t), nil).Once()
	st.ExpectGet("a", messageJSON(t), nil).Once()

	svc := NewRenderService(profile.NewPipeline(profile.DefaultOptions()), nil, st, WithCacheSize(1))
	ctx := context.Background()
	for _, key := range []string{"a", "b", "b", "a"} {
		_, err := svc.Render(ctx, Input{Key: key})
		require.NoError(t, err, key)
	}

	assert.Equal(t, 1, svc.cache.Len())
	st.AssertNumberOfCalls(t, "Get", 3)
	st.AssertExpectations(t)
}

func TestRenderService_DefaultCacheSize(t *testing.T) {
	svc := NewRenderService(profile.NewPipeline(profile.DefaultOptions()), nil, nil, WithCacheSize(0))
	assert.Equal(t, DefaultCacheSize, svc.cacheSize)
}

func TestRenderService_CacheIsPerFormat(t *testing.T) {
	st := &mock.MockStorage{}
	st.ExpectGet("p", messageJSON(t), nil).Once()
	st.ExpectGet("p", messageJSON(t), nil).Once()

	svc := NewRenderService(profile.NewPipeline(profile.DefaultOptions()), nil, st)
	_, err := svc.Render(context.Background(), Input{Key: "p"})
	require.NoError(t, err)
	_, err = svc.Render(context.Background(), Input{Key: "p", Format: "message"})
	require.NoError(t, err)
	st.AssertExpectations(t)
}

func TestRenderService_StorageFailure(t *testing.T) {
	st := &mock.MockStorage{}
	st.ExpectGet("p.json", nil, apperrors.Wrap(apperrors.CodeStorageError, "bucket unavailable", errors.New("timeout")))

	svc := NewRenderService(profile.NewPipeline(profile.DefaultOptions()), nil, st)
	s := NewServer(config.ServerConfig{}, svc)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/render?key=p.json", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeStorageError)
}

func TestRenderService_CustomParser(t *testing.T) {
	p := &mock.MockParser{}
	p.ExpectSupportedFormats([]string{"custom"})
	p.ExpectParse(testutil.NewProfile().Repeat(2, testutil.F("main")).Message(5), nil).Once()

	registry := parser.NewRegistry()
	registry.Register(p)
	svc := NewRenderService(profile.NewPipeline(profile.DefaultOptions()), registry, nil)

	out, err := svc.Render(context.Background(), Input{Format: "custom", Body: strings.NewReader("anything")})
	require.NoError(t, err)
	assert.Equal(t, 10.0, out.Result.TotalTime)
	assert.Equal(t, []string{"custom"}, svc.Formats())
	p.AssertExpectations(t)
}

func TestRenderService_EmptyInput(t *testing.T) {
	svc := NewRenderService(profile.NewPipeline(profile.DefaultOptions()), nil, nil)
	_, err := svc.Render(context.Background(), Input{})
	assert.ErrorIs(t, err, apperrors.ErrEmptyInput)
}
