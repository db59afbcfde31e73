package driven

import (
	"context"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// DocumentSource supplies raw document text with a stable content hash.
// File-format parsing happens behind this boundary; the core never sees
// anything but text and pre-segmented clauses.
type DocumentSource interface {
	// Fetch returns the document by ID, with ContentHash populated
	Fetch(ctx context.Context, id string) (*domain.Document, error)
}
