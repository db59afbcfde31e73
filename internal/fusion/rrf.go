// Package fusion merges independent retrieval rankings with
// reciprocal rank fusion.
package fusion

import (
	"sort"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
)

// DefaultK is the rank-smoothing constant. Larger values flatten the
// contribution difference between top and bottom ranks.
const DefaultK = 60

// Fuser combines ranked lists from multiple retrieval paths into a
// single ordering. A zero-value Fuser is not usable; construct with New.
type Fuser struct {
	k int
}

// New creates a Fuser with the given smoothing constant.
// Non-positive k falls back to DefaultK.
func New(k int) *Fuser {
	if k <= 0 {
		k = DefaultK
	}
	return &Fuser{k: k}
}

// K returns the smoothing constant in use
func (f *Fuser) K() int {
	return f.k
}

// Fuse merges the given ranked lists and returns at most topK entries.
// Each chunk scores 1/(k+rank) per list it appears in; chunks appearing
// in several lists accumulate. A chunk listed twice within one list
// counts only its best rank. Ordering is fused score descending, then
// best rank ascending, then chunk ID ascending, so equal inputs always
// produce equal output.
func (f *Fuser) Fuse(lists [][]domain.RankedEntry, topK int) []domain.FusedEntry {
	type accum struct {
		score    float64
		bestRank int
	}
	scores := make(map[string]*accum)

	for _, list := range lists {
		seen := make(map[string]bool, len(list))
		for _, entry := range list {
			if entry.Rank < 1 || seen[entry.ChunkID] {
				continue
			}
			seen[entry.ChunkID] = true

			a, ok := scores[entry.ChunkID]
			if !ok {
				a = &accum{bestRank: entry.Rank}
				scores[entry.ChunkID] = a
			} else if entry.Rank < a.bestRank {
				a.bestRank = entry.Rank
			}
			a.score += 1.0 / float64(f.k+entry.Rank)
		}
	}

	fused := make([]domain.FusedEntry, 0, len(scores))
	for id, a := range scores {
		fused = append(fused, domain.FusedEntry{
			ChunkID:    id,
			FusedScore: a.score,
			BestRank:   a.bestRank,
		})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		if fused[i].BestRank != fused[j].BestRank {
			return fused[i].BestRank < fused[j].BestRank
		}
		return fused[i].ChunkID < fused[j].ChunkID
	})

	if topK > 0 && len(fused) > topK {
		fused = fused[:topK]
	}
	return fused
}
