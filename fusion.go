package pathfinder

import "fmt"

// Hybrid retrieval weights. The combination is a fixed convex weighting of
// the two similarity signals; there is no learned or adaptive reweighting.
const (
	// TextWeight is the share of the combined score from body-text similarity.
	TextWeight = 0.7

	// MetadataWeight is the share from bibliographic metadata similarity.
	MetadataWeight = 0.3
)

// Fusion combines per-document scores from the text and metadata searches
// into a single combined score map.
//
// A document present in only one result set contributes 0 for the missing
// signal, so the combined score is always textWeight*text + metaWeight*meta
// over the union of both candidate sets.
type Fusion struct {
	textWeight     float64
	metadataWeight float64
}

// NewFusion creates a fusion with explicit weights.
// Weights must be non-negative and sum to 1.
func NewFusion(textWeight, metadataWeight float64) (*Fusion, error) {
	if textWeight < 0 || metadataWeight < 0 {
		return nil, fmt.Errorf("fusion weights must be non-negative, got %v/%v", textWeight, metadataWeight)
	}
	const eps = 1e-9
	if sum := textWeight + metadataWeight; sum < 1-eps || sum > 1+eps {
		return nil, fmt.Errorf("fusion weights must sum to 1, got %v", textWeight+metadataWeight)
	}

	return &Fusion{textWeight: textWeight, metadataWeight: metadataWeight}, nil
}

// DefaultFusion returns the standard 0.7/0.3 text/metadata fusion.
func DefaultFusion() *Fusion {
	return &Fusion{textWeight: TextWeight, metadataWeight: MetadataWeight}
}

// Combine merges the two score maps over the union of their keys.
//
// Returns a map of docID -> textWeight*textScore + metadataWeight*metadataScore,
// with a missing signal treated as 0.
func (f *Fusion) Combine(textScores, metadataScores map[uint32]float64) map[uint32]float64 {
	combined := make(map[uint32]float64, len(textScores)+len(metadataScores))

	for id, score := range textScores {
		combined[id] = score * f.textWeight
	}

	for id, score := range metadataScores {
		combined[id] += score * f.metadataWeight
	}

	return combined
}

// TextOnly returns the text scores unweighted, for non-hybrid retrieval.
func (f *Fusion) TextOnly(textScores map[uint32]float64) map[uint32]float64 {
	combined := make(map[uint32]float64, len(textScores))
	for id, score := range textScores {
		combined[id] = score
	}
	return combined
}
