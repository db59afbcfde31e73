// Package index provides an in-memory BM25 keyword index over a fixed
// chunk corpus. Build once with Index, then Search is read-only and
// safe for concurrent use.
package index

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

const (
	// DefaultK1 controls term frequency saturation
	DefaultK1 = 1.5
	// DefaultB controls document length normalization
	DefaultB = 0.75
)

// KeywordIndex is a BM25 index over document chunks. It is built in one
// shot and never mutated afterwards, so Search takes no locks.
type KeywordIndex struct {
	k1 float64
	b  float64

	chunkIDs  []string
	docTokens []map[string]int
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
	built     bool
}

// NewKeywordIndex creates an empty index with the given BM25 parameters.
// Non-positive values fall back to the defaults.
func NewKeywordIndex(k1, b float64) *KeywordIndex {
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b <= 0 {
		b = DefaultB
	}
	return &KeywordIndex{k1: k1, b: b}
}

// Index builds the BM25 index from the given chunks, replacing any
// previous corpus. An empty corpus is valid and yields empty searches.
func (idx *KeywordIndex) Index(chunks []domain.Chunk) {
	n := len(chunks)
	idx.chunkIDs = make([]string, n)
	idx.docTokens = make([]map[string]int, n)
	idx.docLens = make([]int, n)
	idx.idf = make(map[string]float64)

	df := make(map[string]int)
	totalLen := 0

	for i, chunk := range chunks {
		tokens := tokenize(chunk.Text)
		freq := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freq[tok]++
		}
		idx.chunkIDs[i] = chunk.ID
		idx.docTokens[i] = freq
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)

		for tok := range freq {
			df[tok]++
		}
	}

	if n > 0 {
		idx.avgDocLen = float64(totalLen) / float64(n)
	}
	for tok, f := range df {
		idx.idf[tok] = math.Log(1 + (float64(n)-float64(f)+0.5)/(float64(f)+0.5))
	}
	idx.built = true
}

// Built reports whether Index has been called
func (idx *KeywordIndex) Built() bool {
	return idx.built
}

// Size returns the number of indexed chunks
func (idx *KeywordIndex) Size() int {
	return len(idx.chunkIDs)
}

// Search scores all chunks against the query and returns up to topK
// entries with positive scores, score descending, ties broken by chunk
// ID. Ranks are assigned 1..n after sorting. Searching before Index
// returns domain.ErrIndexNotBuilt.
func (idx *KeywordIndex) Search(query string, topK int) ([]domain.RankedEntry, error) {
	if !idx.built {
		return nil, domain.ErrIndexNotBuilt
	}
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 || len(idx.chunkIDs) == 0 {
		return []domain.RankedEntry{}, nil
	}

	type scored struct {
		chunkID string
		score   float64
	}
	var hits []scored

	for i, freq := range idx.docTokens {
		score := 0.0
		lenNorm := 1 - idx.b + idx.b*float64(idx.docLens[i])/idx.avgDocLen
		for _, tok := range queryTokens {
			tf := float64(freq[tok])
			if tf == 0 {
				continue
			}
			score += idx.idf[tok] * tf * (idx.k1 + 1) / (tf + idx.k1*lenNorm)
		}
		if score > 0 {
			hits = append(hits, scored{chunkID: idx.chunkIDs[i], score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].chunkID < hits[j].chunkID
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}

	results := make([]domain.RankedEntry, len(hits))
	for i, h := range hits {
		results[i] = domain.RankedEntry{
			ChunkID: h.chunkID,
			Rank:    i + 1,
			Score:   h.score,
		}
	}
	return results, nil
}

// tokenize lowercases and splits on any non-letter, non-digit rune.
// Legal citations like "gdpr art. 17" become ["gdpr", "art", "17"].
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
