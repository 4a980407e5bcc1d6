package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profvis/internal/mock"
	"github.com/profvis/internal/storage"
	"github.com/profvis/internal/testutil"
	apperrors "github.com/profvis/pkg/errors"
)

func TestUploadDir_PutsEveryFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "result.json", "{}")
	testutil.WriteFile(t, dir, "nested/codetable.txt", "== m.R ==")

	st := &mock.MockStorage{}
	st.ExpectPut("renders/app/result.json", nil).Once()
	st.ExpectPut("renders/app/nested/codetable.txt", nil).Once()

	keys, err := storage.UploadDir(context.Background(), st, dir, "renders/app")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"renders/app/result.json", "renders/app/nested/codetable.txt"}, keys)
	st.AssertExpectations(t)
}

func TestUploadDir_StopsOnPutError(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.json", "{}")
	testutil.WriteFile(t, dir, "b.json", "{}")

	st := &mock.MockStorage{}
	st.ExpectAnyPut(errors.New("quota exceeded")).Once()

	keys, err := storage.UploadDir(context.Background(), st, dir, "out")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Empty(t, keys)
	st.AssertNumberOfCalls(t, "Put", 1)
}
