package search

import (
	"sort"

	"github.com/seekspace/seekd/internal/index"
)

// fusionConfig parameterizes reciprocal rank fusion.
type fusionConfig struct {
	// k is the RRF smoothing constant; larger values flatten the
	// contribution difference between adjacent ranks.
	k int

	keywordWeight  float64
	semanticWeight float64
}

// fusedHit is one document after fusion, before hydration.
type fusedHit struct {
	docID        string
	score        float64
	keywordRank  int
	semanticRank int
}

// passthrough converts one arm's hits without re-scoring, preserving the
// arm's native score and order.
func passthrough(hits []index.Hit, keywordArm bool) []fusedHit {
	out := make([]fusedHit, len(hits))
	for i, hit := range hits {
		f := fusedHit{docID: hit.DocID, score: hit.Score}
		if keywordArm {
			f.keywordRank = i + 1
		} else {
			f.semanticRank = i + 1
		}
		out[i] = f
	}
	return out
}

// fuse combines the two arms with weighted RRF:
//
//	score(d) = w_k/(k + rank_k(d)) + w_s/(k + rank_s(d))
//
// Ranks are 1-based; an arm that did not return the document contributes
// nothing. Scores are normalized so a document ranked first in both arms
// scores 1.0. The ordering is fully deterministic: score descending, then
// keyword rank ascending (unranked last), then doc_id ascending.
func fuse(keyword, semantic []index.Hit, cfg fusionConfig) []fusedHit {
	fused := make(map[string]*fusedHit)

	for i, hit := range keyword {
		rank := i + 1
		fused[hit.DocID] = &fusedHit{
			docID:       hit.DocID,
			score:       cfg.keywordWeight / float64(cfg.k+rank),
			keywordRank: rank,
		}
	}
	for i, hit := range semantic {
		rank := i + 1
		if f, ok := fused[hit.DocID]; ok {
			f.score += cfg.semanticWeight / float64(cfg.k+rank)
			f.semanticRank = rank
		} else {
			fused[hit.DocID] = &fusedHit{
				docID:        hit.DocID,
				score:        cfg.semanticWeight / float64(cfg.k+rank),
				semanticRank: rank,
			}
		}
	}

	// Best possible score: rank 1 in both arms.
	maxScore := (cfg.keywordWeight + cfg.semanticWeight) / float64(cfg.k+1)

	results := make([]fusedHit, 0, len(fused))
	for _, f := range fused {
		if maxScore > 0 {
			f.score /= maxScore
		}
		results = append(results, *f)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		ri, rj := results[i].keywordRank, results[j].keywordRank
		if ri != rj {
			if ri == 0 {
				return false
			}
			if rj == 0 {
				return true
			}
			return ri < rj
		}
		return results[i].docID < results[j].docID
	})

	return results
}
