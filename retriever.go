// The hybrid retriever issues a query against one or both vector indices and
// fuses the similarity signals into a single ranked candidate list.
//
// HOW RETRIEVAL WORKS:
//  1. The query is embedded and L2-normalized exactly once; the same query
//     vector is reused for both index lookups.
//  2. Both indices are searched for k' = min(2*topK, stored) candidates.
//     Over-fetching by 2x lets a document that scores moderately in both
//     signals overtake one that scores high in only one.
//  3. Candidates are merged by document id over the union of both result
//     sets; a signal that did not surface a document contributes 0.
//  4. Scores are fused with fixed convex weights (0.7 text, 0.3 metadata)
//     and candidates are ranked.
//
// DETERMINISM:
// Repeated calls with the same index state and parameters produce identical
// ordered output. The sort key is (combined desc, textScore desc, id asc) and
// candidate merge iterates ids in ascending order, so no map iteration order
// leaks into results.
package pathfinder

import (
	"context"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// Candidate is a document surfaced by at least one of the two vector
// searches, carrying its per-signal and fused scores.
type Candidate struct {
	// ID of the document.
	ID uint32 `json:"id"`

	// Score is the fused relevance score.
	// Float64 keeps fusion arithmetic and sorting numerically stable.
	Score float64 `json:"score"`

	// TextScore is the body-text cosine similarity, 0 if the text search
	// did not surface this document.
	TextScore float64 `json:"text_score"`

	// MetadataScore is the metadata cosine similarity, 0 if metadata search
	// was skipped or did not surface this document.
	MetadataScore float64 `json:"metadata_score"`

	// Rank is the 1-based position in the final ordering.
	Rank int `json:"rank"`

	// Record is the hydrated document.
	Record DocumentRecord `json:"-"`
}

// HybridRetriever fuses text and metadata similarity into a ranked list.
//
// The retriever holds no mutable state of its own; all state lives in the
// store and the two indices, which the Engine guards with its reader/writer
// discipline.
type HybridRetriever struct {
	store         *DocumentStore
	textIndex     *FlatIndex
	metadataIndex *FlatIndex
	embedder      Embedder
	fusion        *Fusion
}

// NewHybridRetriever wires a retriever over the given store and indices.
func NewHybridRetriever(store *DocumentStore, textIndex, metadataIndex *FlatIndex, embedder Embedder, fusion *Fusion) *HybridRetriever {
	if fusion == nil {
		fusion = DefaultFusion()
	}
	return &HybridRetriever{
		store:         store,
		textIndex:     textIndex,
		metadataIndex: metadataIndex,
		embedder:      embedder,
		fusion:        fusion,
	}
}

// Retrieve returns the topK best candidates for the query.
//
// Callers are responsible for rejecting empty queries and topK < 1 at the
// validation boundary; Retrieve assumes well-formed input. An empty index
// yields an empty list, not an error.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, topK int, useHybrid bool) ([]Candidate, error) {
	stored := r.textIndex.Count()
	if stored == 0 {
		return []Candidate{}, nil
	}

	// Embed once; the normalized vector serves both lookups.
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	NormalizeInPlace(queryVec)

	fetchK := 2 * topK
	if fetchK > stored {
		fetchK = stored
	}

	textHits, err := r.textIndex.Search(queryVec, fetchK)
	if err != nil {
		return nil, fmt.Errorf("text search failed: %w", err)
	}

	textScores := make(map[uint32]float64, len(textHits))
	candidateIDs := roaring.New()
	for _, hit := range textHits {
		textScores[hit.ID] = float64(hit.Score)
		candidateIDs.Add(hit.ID)
	}

	metadataScores := make(map[uint32]float64)
	if useHybrid {
		metaHits, err := r.metadataIndex.Search(queryVec, fetchK)
		if err != nil {
			return nil, fmt.Errorf("metadata search failed: %w", err)
		}
		for _, hit := range metaHits {
			metadataScores[hit.ID] = float64(hit.Score)
			candidateIDs.Add(hit.ID)
		}
	}

	var combined map[uint32]float64
	if useHybrid {
		combined = r.fusion.Combine(textScores, metadataScores)
	} else {
		combined = r.fusion.TextOnly(textScores)
	}

	// Materialize in ascending id order; the sort below is then fully
	// determined by its comparison key.
	candidates := make([]Candidate, 0, candidateIDs.GetCardinality())
	it := candidateIDs.Iterator()
	for it.HasNext() {
		id := it.Next()
		candidates = append(candidates, Candidate{
			ID:            id,
			Score:         combined[id],
			TextScore:     textScores[id],
			MetadataScore: metadataScores[id],
		})
	}

	sortCandidates(candidates)

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	// Hydrate records and assign 1-based ranks.
	for i := range candidates {
		rec, err := r.store.GetByID(candidates[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to hydrate candidate %d: %w", candidates[i].ID, err)
		}
		candidates[i].Record = rec
		candidates[i].Rank = i + 1
	}

	return candidates, nil
}

// sortCandidates orders by combined score desc, then text score desc, then
// id asc. The key is total, so a stable sort is unnecessary.
func sortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TextScore != b.TextScore {
			return a.TextScore > b.TextScore
		}
		return a.ID < b.ID
	})
}
