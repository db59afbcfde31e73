package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestNewSource_Validation(t *testing.T) {
	if _, err := NewSource(""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty dir, got %v", err)
	}
	if _, err := NewSource(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}

	dir := t.TempDir()
	writeTestFile(t, dir, "plain", "x")
	if _, err := NewSource(filepath.Join(dir, "plain")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for file path, got %v", err)
	}
}

func TestSource_FetchJSON(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "nda-001.json", `{
		"title": "Mutual NDA",
		"text": "1. Confidentiality. Each party shall protect disclosed information.",
		"clauses": [{"id": 1, "title": "Confidentiality", "text": "Each party shall protect disclosed information."}]
	}`)

	src, err := NewSource(dir)
	if err != nil {
		t.Fatal(err)
	}

	doc, err := src.Fetch(context.Background(), "nda-001")
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != "nda-001" {
		t.Errorf("expected ID nda-001, got %s", doc.ID)
	}
	if doc.Title != "Mutual NDA" {
		t.Errorf("expected title from file, got %s", doc.Title)
	}
	if len(doc.Clauses) != 1 || doc.Clauses[0].ID != 1 {
		t.Errorf("expected one clause with ID 1, got %+v", doc.Clauses)
	}
	if doc.ContentHash != domain.ContentHash(doc.Text) {
		t.Error("content hash does not match text")
	}
}

func TestSource_FetchTextFallback(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "msa-007.txt", "Master services agreement between the parties.")

	src, err := NewSource(dir)
	if err != nil {
		t.Fatal(err)
	}

	doc, err := src.Fetch(context.Background(), "msa-007")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "msa-007" {
		t.Errorf("expected ID as title for text documents, got %s", doc.Title)
	}
	if doc.ContentHash == "" {
		t.Error("expected content hash to be populated")
	}
	if len(doc.Clauses) != 0 {
		t.Errorf("expected no clauses for text documents, got %d", len(doc.Clauses))
	}
}

func TestSource_FetchMissing(t *testing.T) {
	src, err := NewSource(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := src.Fetch(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSource_FetchRejectsPathTraversal(t *testing.T) {
	src, err := NewSource(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"", "../etc/passwd", "a/b", `a\b`} {
		if _, err := src.Fetch(context.Background(), id); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for %q, got %v", id, err)
		}
	}
}

func TestSource_FetchEmptyText(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "empty.txt", "   \n")
	writeTestFile(t, dir, "blank.json", `{"title": "Blank"}`)

	src, err := NewSource(dir)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := src.Fetch(context.Background(), "empty"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty text, got %v", err)
	}
	if _, err := src.Fetch(context.Background(), "blank"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for JSON without text, got %v", err)
	}
}
