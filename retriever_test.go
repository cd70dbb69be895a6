package pathfinder

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"testing"
)

// stubEmbedder returns canned vectors for known inputs and falls back to a
// deterministic bag-of-words hash for everything else. It stands in for the
// real embedding service so tests are hermetic and reproducible.
type stubEmbedder struct {
	dim  int
	vecs map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if vec, ok := s.vecs[text]; ok {
		return append([]float32(nil), vec...), nil
	}

	vec := make([]float32, s.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(s.dim)]++
	}

	var nonzero bool
	for _, v := range vec {
		if v != 0 {
			nonzero = true
			break
		}
	}
	if !nonzero {
		vec[0] = 1
	}
	return vec, nil
}

func (s *stubEmbedder) Dimension() int { return s.dim }

// failingEmbedder always errors, for failure-path tests.
type failingEmbedder struct{ dim int }

func (f *failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding service unavailable")
}

func (f *failingEmbedder) Dimension() int { return f.dim }

// newTestRetriever builds a store and both indices from pre-embedded records.
func newTestRetriever(t *testing.T, docs []DocumentRecord, embedder Embedder) *HybridRetriever {
	t.Helper()

	dim := embedder.Dimension()
	store := NewDocumentStore()
	textIndex, _ := NewFlatIndex(dim)
	metadataIndex, _ := NewFlatIndex(dim)

	ids := make([]uint32, len(docs))
	textVecs := make([][]float32, len(docs))
	metaVecs := make([][]float32, len(docs))
	for i, doc := range docs {
		ids[i] = store.Ingest(doc)
		textVecs[i] = doc.TextEmbedding
		metaVecs[i] = doc.MetadataEmbedding
	}

	if len(docs) > 0 {
		if err := textIndex.Build(ids, textVecs); err != nil {
			t.Fatalf("text index Build() error: %v", err)
		}
		if err := metadataIndex.Build(ids, metaVecs); err != nil {
			t.Fatalf("metadata index Build() error: %v", err)
		}
	}

	return NewHybridRetriever(store, textIndex, metadataIndex, embedder, DefaultFusion())
}

// TestRetrieveHybridRanking tests fused ranking over orthogonal signals
func TestRetrieveHybridRanking(t *testing.T) {
	embedder := &stubEmbedder{
		dim:  4,
		vecs: map[string][]float32{"probe": {1, 0, 0, 0}},
	}

	docs := []DocumentRecord{
		// Perfect text match, no metadata signal.
		{TextEmbedding: []float32{1, 0, 0, 0}, MetadataEmbedding: []float32{0, 1, 0, 0}},
		// No text signal, perfect metadata match.
		{TextEmbedding: []float32{0, 0, 1, 0}, MetadataEmbedding: []float32{1, 0, 0, 0}},
		// No signal at all.
		{TextEmbedding: []float32{0, 0, 0, 1}, MetadataEmbedding: []float32{0, 0, 0, 1}},
	}

	r := newTestRetriever(t, docs, embedder)

	candidates, err := r.Retrieve(context.Background(), "probe", 3, true)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("Retrieve() returned %d candidates, want 3", len(candidates))
	}

	// doc 0: 0.7*1.0 + 0.3*0.0 = 0.7
	if candidates[0].ID != 0 || math.Abs(candidates[0].Score-0.7) > 1e-6 {
		t.Errorf("rank 1 = doc %d score %v, want doc 0 score 0.7", candidates[0].ID, candidates[0].Score)
	}

	// doc 1: 0.7*0.0 + 0.3*1.0 = 0.3
	if candidates[1].ID != 1 || math.Abs(candidates[1].Score-0.3) > 1e-6 {
		t.Errorf("rank 2 = doc %d score %v, want doc 1 score 0.3", candidates[1].ID, candidates[1].Score)
	}

	if candidates[1].TextScore != 0 {
		t.Errorf("doc 1 text score = %v, want 0", candidates[1].TextScore)
	}
	if math.Abs(candidates[1].MetadataScore-1.0) > 1e-6 {
		t.Errorf("doc 1 metadata score = %v, want 1.0", candidates[1].MetadataScore)
	}

	for i, cand := range candidates {
		if cand.Rank != i+1 {
			t.Errorf("candidates[%d].Rank = %d, want %d", i, cand.Rank, i+1)
		}
	}
}

// TestRetrieveTextOnly tests that non-hybrid retrieval ignores metadata
func TestRetrieveTextOnly(t *testing.T) {
	embedder := &stubEmbedder{
		dim:  4,
		vecs: map[string][]float32{"probe": {1, 0, 0, 0}},
	}

	docs := []DocumentRecord{
		{TextEmbedding: []float32{0, 1, 0, 0}, MetadataEmbedding: []float32{1, 0, 0, 0}},
		{TextEmbedding: []float32{1, 0, 0, 0}, MetadataEmbedding: []float32{0, 0, 1, 0}},
	}

	r := newTestRetriever(t, docs, embedder)

	candidates, err := r.Retrieve(context.Background(), "probe", 2, false)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}

	// Without metadata fusion, the text match wins despite doc 0's perfect
	// metadata similarity.
	if candidates[0].ID != 1 {
		t.Errorf("rank 1 = doc %d, want doc 1", candidates[0].ID)
	}
	for _, cand := range candidates {
		if cand.MetadataScore != 0 {
			t.Errorf("doc %d metadata score = %v, want 0 in text-only mode", cand.ID, cand.MetadataScore)
		}
	}
	if math.Abs(candidates[0].Score-1.0) > 1e-6 {
		t.Errorf("text-only combined score = %v, want unweighted 1.0", candidates[0].Score)
	}
}

// TestRetrieveDeterminism tests identical output across repeated calls
func TestRetrieveDeterminism(t *testing.T) {
	embedder := &stubEmbedder{dim: 8}

	docs := make([]DocumentRecord, 6)
	for i := range docs {
		text, _ := embedder.Embed(context.Background(), strings.Repeat("term ", i+1))
		meta, _ := embedder.Embed(context.Background(), strings.Repeat("key ", i+1))
		docs[i] = DocumentRecord{TextEmbedding: Normalize(text), MetadataEmbedding: Normalize(meta)}
	}

	r := newTestRetriever(t, docs, embedder)

	first, err := r.Retrieve(context.Background(), "term key", 5, true)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}

	for run := 0; run < 3; run++ {
		again, err := r.Retrieve(context.Background(), "term key", 5, true)
		if err != nil {
			t.Fatalf("Retrieve() run %d error: %v", run, err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d returned %d candidates, want %d", run, len(again), len(first))
		}
		for i := range first {
			if again[i].ID != first[i].ID || again[i].Score != first[i].Score {
				t.Errorf("run %d candidates[%d] = (%d, %v), want (%d, %v)",
					run, i, again[i].ID, again[i].Score, first[i].ID, first[i].Score)
			}
		}
	}
}

// TestRetrieveTopKTruncation tests truncation to the requested size
func TestRetrieveTopKTruncation(t *testing.T) {
	embedder := &stubEmbedder{
		dim:  4,
		vecs: map[string][]float32{"probe": {1, 0, 0, 0}},
	}

	docs := []DocumentRecord{
		{TextEmbedding: []float32{1, 0, 0, 0}, MetadataEmbedding: []float32{1, 0, 0, 0}},
		{TextEmbedding: []float32{0, 1, 0, 0}, MetadataEmbedding: []float32{0, 1, 0, 0}},
		{TextEmbedding: []float32{0, 0, 1, 0}, MetadataEmbedding: []float32{0, 0, 1, 0}},
	}

	r := newTestRetriever(t, docs, embedder)

	candidates, err := r.Retrieve(context.Background(), "probe", 1, true)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Retrieve(topK=1) returned %d candidates, want 1", len(candidates))
	}
	if candidates[0].Rank != 1 {
		t.Errorf("Rank = %d, want 1", candidates[0].Rank)
	}
}

// TestRetrieveEmptyIndex tests that an empty index yields no candidates
func TestRetrieveEmptyIndex(t *testing.T) {
	r := newTestRetriever(t, nil, &stubEmbedder{dim: 4})

	candidates, err := r.Retrieve(context.Background(), "anything", 5, true)
	if err != nil {
		t.Fatalf("Retrieve() on empty index error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Retrieve() on empty index returned %d candidates, want 0", len(candidates))
	}
}

// TestRetrieveEmbedFailure tests embedding error propagation
func TestRetrieveEmbedFailure(t *testing.T) {
	docs := []DocumentRecord{
		{TextEmbedding: []float32{1, 0, 0, 0}, MetadataEmbedding: []float32{1, 0, 0, 0}},
	}

	r := newTestRetriever(t, docs, &failingEmbedder{dim: 4})

	if _, err := r.Retrieve(context.Background(), "probe", 1, true); err == nil {
		t.Error("Retrieve() with failing embedder returned nil error")
	}
}

// TestRetrieveHydratedRecords tests that candidates carry their documents
func TestRetrieveHydratedRecords(t *testing.T) {
	embedder := &stubEmbedder{
		dim:  4,
		vecs: map[string][]float32{"probe": {1, 0, 0, 0}},
	}

	docs := []DocumentRecord{
		{
			CleanedText:       "transformers for document ranking",
			Meta:              Metadata{Title: "Ranking with Transformers"},
			TextEmbedding:     []float32{1, 0, 0, 0},
			MetadataEmbedding: []float32{1, 0, 0, 0},
		},
	}

	r := newTestRetriever(t, docs, embedder)

	candidates, err := r.Retrieve(context.Background(), "probe", 1, true)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if got := candidates[0].Record.Meta.Title; got != "Ranking with Transformers" {
		t.Errorf("hydrated title = %q, want %q", got, "Ranking with Transformers")
	}
}
