// Package archive writes report snapshots to local disk or S3.
//
// Snapshots are write-only exports for people and other tools; nothing in
// the simulator reads them back.
package archive

import (
	"context"
	"fmt"
	"sync"

	"github.com/newthinker/lunar/internal/config"
	"github.com/newthinker/lunar/internal/core"
)

// Storage defines the interface for snapshot backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte, contentType string) error

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)
}

// New builds the backend selected by cfg.
func New(cfg config.ArchiveConfig) (Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, unknownType(cfg.Type)
	}
}

func unknownType(t string) error {
	return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type %q", t))
}

// NewLazy checks the archive type now but builds the backend on first
// Write or List, so commands that never export touch no disk or bucket.
func NewLazy(cfg config.ArchiveConfig) (Storage, error) {
	switch cfg.Type {
	case "", "localfs", "s3":
		return &lazyStorage{cfg: cfg}, nil
	default:
		return nil, unknownType(cfg.Type)
	}
}

type lazyStorage struct {
	cfg     config.ArchiveConfig
	once    sync.Once
	backend Storage
	err     error
}

func (l *lazyStorage) open() (Storage, error) {
	l.once.Do(func() {
		l.backend, l.err = New(l.cfg)
	})
	return l.backend, l.err
}

func (l *lazyStorage) Write(ctx context.Context, path string, data []byte, contentType string) error {
	backend, err := l.open()
	if err != nil {
		return err
	}
	return backend.Write(ctx, path, data, contentType)
}

func (l *lazyStorage) List(ctx context.Context, prefix string) ([]string, error) {
	backend, err := l.open()
	if err != nil {
		return nil, err
	}
	return backend.List(ctx, prefix)
}
