// Package memory is an in-process blob store for tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderMemory, func(storage.Config, *logger.Logger) (storage.Storage, error) {
		return New(), nil
	})
}

type object struct {
	data    []byte
	modTime time.Time
}

// Storage keeps objects in a map guarded by a mutex.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]object
}

var _ storage.Storage = (*Storage)(nil)

func New() *Storage {
	return &Storage{objects: map[string]object{}}
}

// Put stores data directly; handy in tests.
func (s *Storage) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = object{data: bytes.Clone(data), modTime: time.Now()}
}

func (s *Storage) Upload(_ context.Context, path string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("memory: read upload: %w", err)
	}
	s.Put(path, data)
	return nil
}

func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[path]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memory: %s: %w", path, storage.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *Storage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[path]
	return ok, nil
}

func (s *Storage) URL(_ context.Context, path string) (string, error) {
	return "memory://" + path, nil
}

func (s *Storage) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.FileInfo
	for p, obj := range s.objects {
		if strings.HasPrefix(p, prefix) {
			out = append(out, storage.FileInfo{Path: p, Size: int64(len(obj.data)), LastModified: obj.modTime})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
