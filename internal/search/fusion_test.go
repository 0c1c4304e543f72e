package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekspace/seekd/internal/index"
)

func defaultFusion() fusionConfig {
	return fusionConfig{k: 60, keywordWeight: 0.4, semanticWeight: 0.6}
}

func TestFuseBothArmsAgree(t *testing.T) {
	keyword := []index.Hit{{DocID: "a", Score: 5}, {DocID: "b", Score: 3}}
	semantic := []index.Hit{{DocID: "a", Score: 0.9}, {DocID: "b", Score: 0.8}}

	fused := fuse(keyword, semantic, defaultFusion())
	require.Len(t, fused, 2)

	// Rank 1 in both arms normalizes to exactly 1.0.
	assert.Equal(t, "a", fused[0].docID)
	assert.InDelta(t, 1.0, fused[0].score, 1e-9)
	assert.Equal(t, 1, fused[0].keywordRank)
	assert.Equal(t, 1, fused[0].semanticRank)
	assert.Greater(t, fused[0].score, fused[1].score)
}

func TestFuseSingleArmDocument(t *testing.T) {
	keyword := []index.Hit{{DocID: "a"}}
	semantic := []index.Hit{{DocID: "b"}}

	fused := fuse(keyword, semantic, defaultFusion())
	require.Len(t, fused, 2)

	// The semantic-only doc wins: same rank, higher weight.
	assert.Equal(t, "b", fused[0].docID)
	assert.Equal(t, 0, fused[0].keywordRank)
	assert.Equal(t, 1, fused[0].semanticRank)
	assert.Equal(t, "a", fused[1].docID)
}

func TestFuseCrossArmPromotion(t *testing.T) {
	// "b" is second in both arms; "a" and "c" each lead one arm. With equal
	// weights, presence in both arms beats a single first place.
	keyword := []index.Hit{{DocID: "a"}, {DocID: "b"}}
	semantic := []index.Hit{{DocID: "c"}, {DocID: "b"}}

	cfg := fusionConfig{k: 60, keywordWeight: 0.5, semanticWeight: 0.5}
	fused := fuse(keyword, semantic, cfg)
	require.Len(t, fused, 3)
	assert.Equal(t, "b", fused[0].docID)
}

func TestFuseTieBreakKeywordRankThenDocID(t *testing.T) {
	// Equal weights and mirrored ranks produce identical scores.
	keyword := []index.Hit{{DocID: "x"}, {DocID: "y"}}
	semantic := []index.Hit{{DocID: "y"}, {DocID: "x"}}

	cfg := fusionConfig{k: 60, keywordWeight: 0.5, semanticWeight: 0.5}
	fused := fuse(keyword, semantic, cfg)
	require.Len(t, fused, 2)

	// Tie broken by keyword rank ascending: "x" holds keyword rank 1.
	assert.Equal(t, "x", fused[0].docID)
	assert.Equal(t, "y", fused[1].docID)
}

func TestFuseTieBreakDocID(t *testing.T) {
	keyword := []index.Hit{{DocID: "b"}}
	semantic := []index.Hit{{DocID: "a"}}

	cfg := fusionConfig{k: 60, keywordWeight: 0.5, semanticWeight: 0.5}
	fused := fuse(keyword, semantic, cfg)
	require.Len(t, fused, 2)

	// Same score; "b" holds keyword rank 1 and sorts first.
	assert.InDelta(t, fused[0].score, fused[1].score, 1e-12)
	assert.Equal(t, "b", fused[0].docID)
}

func TestFuseDeterministic(t *testing.T) {
	keyword := []index.Hit{{DocID: "a"}, {DocID: "b"}, {DocID: "c"}}
	semantic := []index.Hit{{DocID: "c"}, {DocID: "d"}, {DocID: "a"}}

	first := fuse(keyword, semantic, defaultFusion())
	for i := 0; i < 10; i++ {
		again := fuse(keyword, semantic, defaultFusion())
		assert.Equal(t, first, again)
	}
}

func TestFuseEmptyArms(t *testing.T) {
	fused := fuse(nil, nil, defaultFusion())
	assert.Empty(t, fused)
}
