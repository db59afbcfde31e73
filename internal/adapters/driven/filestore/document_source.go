// Package filestore supplies documents and the chunk corpus from the
// local filesystem. It is the boundary behind which file formats live;
// the core only ever sees text, clauses and content hashes.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
)

// Compile-time interface check
var _ driven.DocumentSource = (*Source)(nil)

// Source reads documents from a directory, one file per document ID.
// A document is either <id>.json with title and pre-segmented clauses,
// or <id>.txt with raw text only.
type Source struct {
	dir string
}

// NewSource creates a document source rooted at dir.
func NewSource(dir string) (*Source, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: documents directory is required", domain.ErrInvalidInput)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("documents directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}
	return &Source{dir: dir}, nil
}

// documentFile is the on-disk JSON shape. ContentHash is never read from
// disk, it is always derived from the text.
type documentFile struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Text    string          `json:"text"`
	Clauses []domain.Clause `json:"clauses,omitempty"`
}

// Fetch returns the document with the given ID. The ID must be a bare
// name without path separators.
func (s *Source) Fetch(ctx context.Context, id string) (*domain.Document, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: document ID is required", domain.ErrInvalidInput)
	}
	if strings.ContainsAny(id, "/\\") || id != filepath.Base(id) {
		return nil, fmt.Errorf("%w: invalid document ID %q", domain.ErrInvalidInput, id)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if doc, err := s.fetchJSON(id); err == nil {
		return doc, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return s.fetchText(id)
}

func (s *Source) fetchJSON(id string) (*domain.Document, error) {
	path := filepath.Join(s.dir, id+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file documentFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	if file.Text == "" {
		return nil, fmt.Errorf("%w: document %s has no text", domain.ErrInvalidInput, id)
	}

	title := file.Title
	if title == "" {
		title = id
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	return &domain.Document{
		ID:          id,
		Title:       title,
		Text:        file.Text,
		ContentHash: domain.ContentHash(file.Text),
		Clauses:     file.Clauses,
		CreatedAt:   info.ModTime(),
	}, nil
}

func (s *Source) fetchText(id string) (*domain.Document, error) {
	path := filepath.Join(s.dir, id+".txt")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	text := string(raw)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: document %s has no text", domain.ErrInvalidInput, id)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	return &domain.Document{
		ID:          id,
		Title:       id,
		Text:        text,
		ContentHash: domain.ContentHash(text),
		CreatedAt:   info.ModTime(),
	}, nil
}
