// Package jsonfile persists a record collection as one indented JSON array
// document on a storage.BlobStore.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/storage"
)

// ErrEmptyPath is returned by New when no document path is configured.
var ErrEmptyPath = errors.New("jsonfile: document path is required")

// Store loads and saves a []T document.
type Store[T any] struct {
	blobs  storage.BlobStore
	path   string
	logger *zap.Logger
}

// New returns a Store for the document at path.
func New[T any](blobs storage.BlobStore, path string, logger *zap.Logger) (*Store[T], error) {
	if blobs == nil {
		return nil, fmt.Errorf("jsonfile: blob store is required")
	}
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store[T]{blobs: blobs, path: path, logger: logger.With(zap.String("document", path))}, nil
}

// Path returns the document path.
func (s *Store[T]) Path() string {
	return s.path
}

// LoadList returns the stored records. A missing or unreadable document
// yields an empty list, and entries that do not decode into T are skipped.
// It never fails.
func (s *Store[T]) LoadList(ctx context.Context) []T {
	data, err := s.blobs.GetObject(ctx, s.path)
	if errors.Is(err, storage.ErrNotFound) {
		return []T{}
	}
	if err != nil {
		s.logger.Warn("could not read document, starting empty", zap.Error(err))
		return []T{}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("document is not a JSON array, starting empty", zap.Error(err))
		return []T{}
	}
	out := make([]T, 0, len(raw))
	for i, entry := range raw {
		var item T
		if err := json.Unmarshal(entry, &item); err != nil {
			s.logger.Warn("skipping malformed entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, item)
	}
	return out
}

// SaveList replaces the document with items, UTF-8 with two-space indent.
func (s *Store[T]) SaveList(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	uri, err := s.blobs.PutObject(ctx, s.path, "application/json; charset=utf-8", &buf)
	if err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	s.logger.Info("document saved", zap.String("uri", uri), zap.Int("records", len(items)))
	return nil
}
