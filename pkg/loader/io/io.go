package io

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/loader"

	"golang.org/x/sync/singleflight"
)

// IOFileLoader reads seed files from a local directory with caching.
type IOFileLoader struct {
	dir string

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewIOFileLoader creates a filesystem loader rooted at dir.
func NewIOFileLoader(dir string) *IOFileLoader {
	return &IOFileLoader{
		dir:   dir,
		cache: make(map[string][]byte),
	}
}

// GetFile reads name relative to the loader directory. Results are cached.
func (l *IOFileLoader) GetFile(ctx context.Context, name string) ([]byte, error) {
	l.cacheMu.RLock()
	if cached, ok := l.cache[name]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(name, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[name]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := os.ReadFile(filepath.Join(l.dir, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", loader.ErrFileNotFound, name)
			}
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[name] = content
		l.cacheMu.Unlock()

		return content, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// Invalidate drops all cached files so the next read hits the disk again.
func (l *IOFileLoader) Invalidate() {
	l.cacheMu.Lock()
	l.cache = make(map[string][]byte)
	l.cacheMu.Unlock()
}
