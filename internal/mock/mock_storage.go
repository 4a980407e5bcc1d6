// Package mock provides testify mocks of the storage and parser interfaces.
package mock

import (
	"bytes"
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/profvis/internal/storage"
)

var _ storage.Storage = (*MockStorage)(nil)

// MockStorage is a mock implementation of storage.Storage.
type MockStorage struct {
	mock.Mock
}

// Put mocks the Put method.
func (m *MockStorage) Put(ctx context.Context, key string, reader io.Reader) error {
	args := m.Called(ctx, key, reader)
	return args.Error(0)
}

// Get mocks the Get method.
func (m *MockStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Exists mocks the Exists method.
func (m *MockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// URL mocks the URL method.
func (m *MockStorage) URL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

// ExpectGet sets up an expectation for Get returning content.
func (m *MockStorage) ExpectGet(key string, content []byte, err error) *mock.Call {
	if err != nil {
		return m.On("Get", mock.Anything, key).Return(nil, err)
	}
	return m.On("Get", mock.Anything, key).Return(io.NopCloser(bytes.NewReader(content)), nil)
}

// ExpectPut sets up an expectation for Put.
func (m *MockStorage) ExpectPut(key string, err error) *mock.Call {
	return m.On("Put", mock.Anything, key, mock.Anything).Return(err)
}

// ExpectAnyPut sets up an expectation for any Put call.
func (m *MockStorage) ExpectAnyPut(err error) *mock.Call {
	return m.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(err)
}
