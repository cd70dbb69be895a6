package pathfinder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	engine, err := NewEngine(&stubEmbedder{dim: 16}, EngineConfig{
		MinTextLength: 10,
		Logger:        quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	return engine
}

func corpusFiles() []ParsedFile {
	return []ParsedFile{
		{Path: "a.txt", Text: "convolutional networks for image segmentation and visual recognition tasks"},
		{Path: "b.txt", Text: "recurrent networks and transformers for language modeling and translation"},
		{Path: "c.txt", Text: "reinforcement learning agents for robotic control and manipulation"},
		{Path: "d.txt", Text: "graph neural networks for molecule property prediction and chemistry"},
	}
}

// TestEngineIndexAndSearch tests the index-then-search happy path
func TestEngineIndexAndSearch(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	report, err := engine.IndexParsed(ctx, corpusFiles())
	if err != nil {
		t.Fatalf("IndexParsed() error: %v", err)
	}
	if report.NumDocuments != 4 {
		t.Errorf("NumDocuments = %d, want 4", report.NumDocuments)
	}

	resp, err := engine.Search(ctx, SearchRequest{
		Query:     "image segmentation networks",
		TopK:      3,
		UseHybrid: true,
	})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	if resp.NumResults != len(resp.Results) {
		t.Errorf("NumResults = %d, but %d results", resp.NumResults, len(resp.Results))
	}
	if resp.NumResults == 0 {
		t.Fatal("Search() returned no results")
	}
	if resp.NumResults > 3 {
		t.Errorf("NumResults = %d, want <= topK 3", resp.NumResults)
	}

	for i, result := range resp.Results {
		if result.Rank != i+1 {
			t.Errorf("Results[%d].Rank = %d, want %d", i, result.Rank, i+1)
		}
		if result.Text == "" {
			t.Errorf("Results[%d] has empty text", i)
		}
		if i > 0 && result.Score > resp.Results[i-1].Score {
			t.Errorf("Results not score-descending at %d", i)
		}
	}
}

// TestEngineSearchValidation tests the boundary error conditions
func TestEngineSearchValidation(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Search(ctx, SearchRequest{Query: "anything", TopK: 5}); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("Search() before indexing error = %v, want ErrEmptyIndex", err)
	}

	if _, err := engine.IndexParsed(ctx, corpusFiles()); err != nil {
		t.Fatalf("IndexParsed() error: %v", err)
	}

	if _, err := engine.Search(ctx, SearchRequest{Query: "   ", TopK: 5}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Search() with blank query error = %v, want ErrInvalidQuery", err)
	}

	if _, err := engine.Search(ctx, SearchRequest{Query: "ok", TopK: 0}); !errors.Is(err, ErrInvalidTopK) {
		t.Errorf("Search() with topK=0 error = %v, want ErrInvalidTopK", err)
	}
}

// TestEngineResetClearsEverything tests reset semantics
func TestEngineResetClearsEverything(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.IndexParsed(ctx, corpusFiles()); err != nil {
		t.Fatalf("IndexParsed() error: %v", err)
	}

	if err := engine.Reset(); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}

	stats := engine.Stats()
	if stats.Indexed {
		t.Error("Stats().Indexed = true after Reset")
	}
	if stats.NumDocuments != 0 {
		t.Errorf("Stats().NumDocuments = %d after Reset, want 0", stats.NumDocuments)
	}

	if _, err := engine.Search(ctx, SearchRequest{Query: "networks", TopK: 3}); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("Search() after Reset error = %v, want ErrEmptyIndex", err)
	}
}

// TestEngineStats tests the stats shape
func TestEngineStats(t *testing.T) {
	engine := newTestEngine(t)

	stats := engine.Stats()
	if stats.Indexed || stats.NumDocuments != 0 {
		t.Errorf("fresh engine Stats() = %+v, want empty", stats)
	}
	if stats.EmbeddingDim != 16 {
		t.Errorf("Stats().EmbeddingDim = %d, want 16", stats.EmbeddingDim)
	}

	if _, err := engine.IndexParsed(context.Background(), corpusFiles()); err != nil {
		t.Fatal(err)
	}

	stats = engine.Stats()
	if !stats.Indexed || stats.NumDocuments != 4 {
		t.Errorf("Stats() after indexing = %+v, want 4 documents indexed", stats)
	}
}

// TestEngineClustersThreshold tests that clusters appear only with enough results
func TestEngineClustersThreshold(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.IndexParsed(ctx, corpusFiles()); err != nil {
		t.Fatalf("IndexParsed() error: %v", err)
	}

	// 2 results: below the minimum group count, clusters omitted.
	resp, err := engine.Search(ctx, SearchRequest{
		Query:         "networks learning",
		TopK:          2,
		UseClustering: true,
		UseHybrid:     true,
	})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if resp.Clusters != nil {
		t.Errorf("Clusters = %v with 2 results, want omitted", resp.Clusters)
	}
	if resp.ClusteringStats != nil {
		t.Error("ClusteringStats present with 2 results, want omitted")
	}

	// 4 results: clustering runs.
	resp, err = engine.Search(ctx, SearchRequest{
		Query:         "networks learning",
		TopK:          4,
		UseClustering: true,
		UseHybrid:     true,
	})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if resp.NumResults < 3 {
		t.Fatalf("NumResults = %d, need >= 3 for this test", resp.NumResults)
	}
	if resp.Clusters == nil {
		t.Fatal("Clusters omitted with enough results")
	}
	if resp.ClusteringStats == nil || resp.ClusteringStats.NumClusters < 3 {
		t.Errorf("ClusteringStats = %+v, want NumClusters >= 3", resp.ClusteringStats)
	}

	// Clustering off: never present regardless of result count.
	resp, err = engine.Search(ctx, SearchRequest{
		Query:     "networks learning",
		TopK:      4,
		UseHybrid: true,
	})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if resp.Clusters != nil {
		t.Error("Clusters present with UseClustering=false")
	}
}

// TestEngineSearchBreakdown tests the average-score breakdown
func TestEngineSearchBreakdown(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.IndexParsed(ctx, corpusFiles()); err != nil {
		t.Fatalf("IndexParsed() error: %v", err)
	}

	resp, err := engine.Search(ctx, SearchRequest{
		Query:     "networks",
		TopK:      4,
		UseHybrid: true,
	})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if resp.SearchBreakdown == nil {
		t.Fatal("SearchBreakdown omitted for hybrid search with results")
	}

	var wantCombined float64
	for _, result := range resp.Results {
		wantCombined += result.Score
	}
	wantCombined /= float64(len(resp.Results))

	if diff := resp.SearchBreakdown.CombinedScore - wantCombined; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CombinedScore = %v, want mean %v", resp.SearchBreakdown.CombinedScore, wantCombined)
	}

	// Non-hybrid search carries no breakdown.
	resp, err = engine.Search(ctx, SearchRequest{Query: "networks", TopK: 4})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if resp.SearchBreakdown != nil {
		t.Error("SearchBreakdown present for non-hybrid search")
	}
}

// TestEngineMetadataSignal tests that a metadata-only match surfaces under hybrid fusion
func TestEngineMetadataSignal(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	files := corpusFiles()
	files = append(files, ParsedFile{
		Path: "e.txt",
		Text: "Obscure Topic Overview\n\nAuthors here\n\nKeywords: zymurgy\n\nA body section about fermentation processes and their industrial uses.",
	})

	if _, err := engine.IndexParsed(ctx, files); err != nil {
		t.Fatalf("IndexParsed() error: %v", err)
	}

	resp, err := engine.Search(ctx, SearchRequest{
		Query:     "zymurgy",
		TopK:      3,
		UseHybrid: true,
	})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if resp.NumResults == 0 {
		t.Fatal("Search() returned no results")
	}

	top := resp.Results[0]
	if len(top.Metadata.Keywords) == 0 || top.Metadata.Keywords[0] != "zymurgy" {
		t.Errorf("rank 1 keywords = %v, want the zymurgy paper first", top.Metadata.Keywords)
	}
	if top.MetadataScore <= 0 {
		t.Errorf("rank 1 MetadataScore = %v, want > 0", top.MetadataScore)
	}
}

// TestEngineRebuildDeterminism tests that re-indexing the same corpus is idempotent
func TestEngineRebuildDeterminism(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	req := SearchRequest{Query: "networks learning", TopK: 4, UseHybrid: true}

	if _, err := engine.IndexParsed(ctx, corpusFiles()); err != nil {
		t.Fatalf("first IndexParsed() error: %v", err)
	}
	first, err := engine.Search(ctx, req)
	if err != nil {
		t.Fatalf("first Search() error: %v", err)
	}

	if _, err := engine.IndexParsed(ctx, corpusFiles()); err != nil {
		t.Fatalf("second IndexParsed() error: %v", err)
	}
	again, err := engine.Search(ctx, req)
	if err != nil {
		t.Fatalf("second Search() error: %v", err)
	}

	if again.NumResults != first.NumResults {
		t.Fatalf("rebuild changed result count: %d vs %d", again.NumResults, first.NumResults)
	}
	for i := range first.Results {
		a, b := first.Results[i], again.Results[i]
		if a.ID != b.ID || a.Score != b.Score || a.Rank != b.Rank {
			t.Errorf("rebuild changed result %d: (%d, %v) vs (%d, %v)", i, a.ID, a.Score, b.ID, b.Score)
		}
	}
}

// TestEngineSkipsShortDocuments tests the minimum text length filter
func TestEngineSkipsShortDocuments(t *testing.T) {
	engine := newTestEngine(t)

	files := append(corpusFiles(), ParsedFile{Path: "tiny.txt", Text: "too short"})

	report, err := engine.IndexParsed(context.Background(), files)
	if err != nil {
		t.Fatalf("IndexParsed() error: %v", err)
	}
	if report.NumDocuments != 4 {
		t.Errorf("NumDocuments = %d, want 4", report.NumDocuments)
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}
}

// TestEngineIndexNothingUsable tests the all-skipped failure
func TestEngineIndexNothingUsable(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.IndexParsed(context.Background(), []ParsedFile{
		{Path: "tiny.txt", Text: "nope"},
	})
	if err == nil {
		t.Error("IndexParsed() with no usable documents returned nil error")
	}
}

// mismatchEmbedder reports one dimension but can be switched to emit
// another, forcing the index build step itself to fail.
type mismatchEmbedder struct {
	reportDim int
	embedDim  int
}

func (m *mismatchEmbedder) Embed(context.Context, string) ([]float32, error) {
	vec := make([]float32, m.embedDim)
	vec[0] = 1
	return vec, nil
}

func (m *mismatchEmbedder) Dimension() int { return m.reportDim }

// TestEngineBuildFailureClearsIndexed tests that a failed rebuild never
// leaves the engine claiming a usable index
func TestEngineBuildFailureClearsIndexed(t *testing.T) {
	embedder := &mismatchEmbedder{reportDim: 8, embedDim: 8}
	engine, err := NewEngine(embedder, EngineConfig{
		MinTextLength: 10,
		Logger:        quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	ctx := context.Background()

	if _, err := engine.IndexParsed(ctx, corpusFiles()); err != nil {
		t.Fatalf("IndexParsed() error: %v", err)
	}
	if !engine.Stats().Indexed {
		t.Fatal("Stats().Indexed = false after successful indexing")
	}

	embedder.embedDim = 4
	if _, err := engine.IndexParsed(ctx, corpusFiles()); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("IndexParsed() with mismatched vectors error = %v, want ErrDimensionMismatch", err)
	}

	if engine.Stats().Indexed {
		t.Error("Stats().Indexed = true after a failed rebuild")
	}
	if _, err := engine.Search(ctx, SearchRequest{Query: "networks", TopK: 3}); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("Search() after failed rebuild error = %v, want ErrEmptyIndex", err)
	}
}

// TestEngineEmbedFailurePropagates tests indexing failure on embedder errors
func TestEngineEmbedFailurePropagates(t *testing.T) {
	engine, err := NewEngine(&failingEmbedder{dim: 8}, EngineConfig{
		MinTextLength: 10,
		Logger:        quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}

	if _, err := engine.IndexParsed(context.Background(), corpusFiles()); err == nil {
		t.Error("IndexParsed() with failing embedder returned nil error")
	}

	if engine.Stats().Indexed {
		t.Error("engine reports indexed after a failed build")
	}
}
