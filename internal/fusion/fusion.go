// Package fusion merges lexical and vector candidate lists into one ranked
// list under a relevance threshold.
package fusion

import (
	"sort"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/store"
)

// Weights are the tunable fusion surface.
type Weights struct {
	Lexical float64
	Vector  float64
}

// Fuse combines the two candidate lists:
//
//	fused = w_lex * norm(lexical) + w_vec * norm(vector)
//
// Scores are min-max normalized per list before weighting, since raw BM25
// magnitudes and cosine similarities are not comparable. A candidate present
// in only one list contributes 0 for the missing side; absence from a list is
// informative, not neutral. Candidates are deduplicated by chunk ID, keeping
// the true component score from each side.
//
// Candidates below threshold are discarded (the bound is inclusive: a fused
// score exactly equal to threshold is retained). Survivors are sorted by
// descending fused score, ties broken by chunk ID ascending, and truncated to
// maxResults. An empty result means "no relevant results"; callers must not
// fall back to the unfiltered lists.
func Fuse(lexical, vector []store.Hit, w Weights, threshold float64, maxResults int) []*models.SearchCandidate {
	normLex := minMaxNormalize(lexical)
	normVec := minMaxNormalize(vector)

	byID := make(map[string]*models.SearchCandidate)
	for _, h := range lexical {
		byID[h.ChunkID] = &models.SearchCandidate{
			ChunkID:      h.ChunkID,
			LexicalScore: h.Score,
			HasLexical:   true,
		}
	}
	for _, h := range vector {
		if cand, ok := byID[h.ChunkID]; ok {
			cand.VectorScore = h.Score
			cand.HasVector = true
		} else {
			byID[h.ChunkID] = &models.SearchCandidate{
				ChunkID:     h.ChunkID,
				VectorScore: h.Score,
				HasVector:   true,
			}
		}
	}

	kept := make([]*models.SearchCandidate, 0, len(byID))
	for id, cand := range byID {
		cand.FusedScore = w.Lexical*normLex[id] + w.Vector*normVec[id]
		if cand.FusedScore >= threshold {
			kept = append(kept, cand)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].FusedScore != kept[j].FusedScore {
			return kept[i].FusedScore > kept[j].FusedScore
		}
		return kept[i].ChunkID < kept[j].ChunkID
	})
	if maxResults > 0 && len(kept) > maxResults {
		kept = kept[:maxResults]
	}
	return kept
}

// minMaxNormalize maps each list's scores onto [0,1] over the returned
// candidates. When all scores in a list are equal, every candidate gets 1.0:
// within that list they are all equally best. IDs absent from the list are
// absent from the map (lookup yields 0).
func minMaxNormalize(hits []store.Hit) map[string]float64 {
	out := make(map[string]float64, len(hits))
	if len(hits) == 0 {
		return out
	}
	min, max := hits[0].Score, hits[0].Score
	for _, h := range hits {
		if h.Score < min {
			min = h.Score
		}
		if h.Score > max {
			max = h.Score
		}
	}
	for _, h := range hits {
		if max == min {
			out[h.ChunkID] = 1.0
		} else {
			out[h.ChunkID] = (h.Score - min) / (max - min)
		}
	}
	return out
}
