package filestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// LoadCorpus reads the chunk corpus from path. The file is either a JSON
// array of chunks or JSON lines with one chunk per object. Chunks without
// an ID or text are rejected; a missing token count is estimated from the
// text.
func LoadCorpus(path string) ([]domain.Chunk, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: corpus path is required", domain.ErrInvalidInput)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	trimmed := bytes.TrimLeftFunc(raw, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	var chunks []domain.Chunk
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &chunks); err != nil {
			return nil, fmt.Errorf("decode corpus: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		for {
			var chunk domain.Chunk
			if err := dec.Decode(&chunk); err == io.EOF {
				break
			} else if err != nil {
				return nil, fmt.Errorf("decode corpus line: %w", err)
			}
			chunks = append(chunks, chunk)
		}
	}

	seen := make(map[string]struct{}, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if c.ID == "" {
			return nil, fmt.Errorf("%w: corpus chunk %d has no ID", domain.ErrInvalidInput, i)
		}
		if strings.TrimSpace(c.Text) == "" {
			return nil, fmt.Errorf("%w: corpus chunk %s has no text", domain.ErrInvalidInput, c.ID)
		}
		if _, ok := seen[c.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate corpus chunk ID %s", domain.ErrInvalidInput, c.ID)
		}
		seen[c.ID] = struct{}{}
		if c.TokenCount <= 0 {
			c.TokenCount = len(strings.Fields(c.Text))
		}
	}

	return chunks, nil
}
