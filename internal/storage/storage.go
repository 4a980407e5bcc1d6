// Package storage provides the object stores profiles are read from and
// rendered outputs are written to.
package storage

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/profvis/pkg/config"
	apperrors "github.com/profvis/pkg/errors"
)

// Storage defines the interface for object storage operations.
type Storage interface {
	// Put stores data from reader under key.
	Put(ctx context.Context, key string, reader io.Reader) error

	// Get opens the object at key. A missing object yields a NOT_FOUND error.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete deletes the object at key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns a location for key, for display.
	URL(key string) string
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeCOS   StorageType = "cos"
)

// NewStorage creates a Storage from configuration. A non-empty Prefix is
// prepended to every key.
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	var (
		st  Storage
		err error
	)
	switch StorageType(cfg.Type) {
	case StorageTypeCOS:
		st, err = NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		st, err = NewLocalStorage(cfg.LocalPath)
	}
	if err != nil {
		return nil, err
	}
	return WithPrefix(st, cfg.Prefix), nil
}

// ValidateConfig validates the storage configuration.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return apperrors.New(apperrors.CodeConfigError, "storage config is nil")
	}

	storageType := StorageType(cfg.Type)
	if storageType == "" {
		storageType = StorageTypeLocal
	}

	switch storageType {
	case StorageTypeCOS:
		if cfg.Bucket == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS bucket is required")
		}
		if cfg.Region == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS credentials are required")
		}
	case StorageTypeLocal:
		if cfg.LocalPath == "" {
			return apperrors.New(apperrors.CodeConfigError, "local storage path is required")
		}
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported storage type: %s", cfg.Type)
	}
	return nil
}

type prefixed struct {
	Storage
	prefix string
}

// WithPrefix scopes st to keys under prefix.
func WithPrefix(st Storage, prefix string) Storage {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return st
	}
	return &prefixed{Storage: st, prefix: prefix}
}

func (p *prefixed) key(key string) string {
	return path.Join(p.prefix, key)
}

func (p *prefixed) Put(ctx context.Context, key string, reader io.Reader) error {
	return p.Storage.Put(ctx, p.key(key), reader)
}

func (p *prefixed) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return p.Storage.Get(ctx, p.key(key))
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.Storage.Delete(ctx, p.key(key))
}

func (p *prefixed) Exists(ctx context.Context, key string) (bool, error) {
	return p.Storage.Exists(ctx, p.key(key))
}

func (p *prefixed) URL(key string) string {
	return p.Storage.URL(p.key(key))
}

// UploadDir stores every regular file below dir under keyPrefix, keeping
// relative paths. It returns the keys written.
func UploadDir(ctx context.Context, st Storage, dir, keyPrefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := path.Join(keyPrefix, filepath.ToSlash(rel))

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := st.Put(ctx, key, f); err != nil {
			return err
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return keys, apperrors.Wrap(apperrors.CodeStorageError, "upload "+dir, err)
	}
	return keys, nil
}
