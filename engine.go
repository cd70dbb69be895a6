// The engine owns the document store and both vector indices and exposes the
// four operations of the system boundary: index, search, stats, reset.
//
// CONCURRENCY MODEL:
// One read-write mutex guards the shared mutable state (store + indices). A
// rebuild (index or reset) holds the write lock from the first store mutation
// through the final index swap, so no search ever observes a partially
// rebuilt index. Searches share the read lock and run concurrently with each
// other. Per-document embedding touches no shared mutable state, so it runs
// before the lock is taken, parallelized across a bounded worker pool; all
// documents are joined before the build step. Clustering is pure computation
// over an already-fetched result set and holds no lock.
package pathfinder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var (
	// ErrEmptyIndex is returned when search or stats-dependent operations
	// run before any successful indexing.
	ErrEmptyIndex = errors.New("index not built")

	// ErrInvalidQuery is returned for empty or whitespace-only queries.
	ErrInvalidQuery = errors.New("query is required")

	// ErrInvalidTopK is returned when topK < 1 reaches the boundary.
	ErrInvalidTopK = errors.New("topK must be at least 1")
)

// EngineConfig tunes the engine. Zero values fall back to defaults.
type EngineConfig struct {
	// MinClusters and MaxClusters bound automatic group-count selection.
	MinClusters int
	MaxClusters int

	// IndexWorkers bounds the embedding worker pool during a rebuild.
	IndexWorkers int

	// MinTextLength is the minimum extracted text length for a document to
	// be indexed; shorter documents are skipped.
	MinTextLength int

	// Logger receives structured indexing/search logs. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// DefaultEngineConfig returns the reference configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinClusters:   DefaultMinClusters,
		MaxClusters:   DefaultMaxClusters,
		IndexWorkers:  4,
		MinTextLength: 100,
	}
}

// Engine wires the document store, both vector indices, the hybrid
// retriever and the cluster engine behind the boundary operations.
//
// Create with NewEngine; the zero value is not usable.
type Engine struct {
	// mu implements the exclusive-writer / shared-reader discipline over
	// store and indices.
	mu sync.RWMutex

	store         *DocumentStore
	textIndex     *FlatIndex
	metadataIndex *FlatIndex
	retriever     *HybridRetriever
	clusterer     *ClusterEngine
	embedder      Embedder
	logger        *slog.Logger

	indexWorkers  int
	minTextLength int
	indexed       bool
}

// NewEngine creates an engine around the given embedder.
func NewEngine(embedder Embedder, cfg EngineConfig) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	dim := embedder.Dimension()
	if dim <= 0 {
		return nil, fmt.Errorf("embedder reports invalid dimension %d", dim)
	}

	def := DefaultEngineConfig()
	if cfg.MinClusters == 0 {
		cfg.MinClusters = def.MinClusters
	}
	if cfg.MaxClusters == 0 {
		cfg.MaxClusters = def.MaxClusters
	}
	if cfg.IndexWorkers <= 0 {
		cfg.IndexWorkers = def.IndexWorkers
	}
	if cfg.MinTextLength == 0 {
		cfg.MinTextLength = def.MinTextLength
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	textIndex, err := NewFlatIndex(dim)
	if err != nil {
		return nil, err
	}
	metadataIndex, err := NewFlatIndex(dim)
	if err != nil {
		return nil, err
	}

	store := NewDocumentStore()

	return &Engine{
		store:         store,
		textIndex:     textIndex,
		metadataIndex: metadataIndex,
		retriever:     NewHybridRetriever(store, textIndex, metadataIndex, embedder, DefaultFusion()),
		clusterer:     NewClusterEngine(cfg.MinClusters, cfg.MaxClusters),
		embedder:      embedder,
		logger:        cfg.Logger,
		indexWorkers:  cfg.IndexWorkers,
		minTextLength: cfg.MinTextLength,
	}, nil
}

// IndexReport summarizes an indexing run.
type IndexReport struct {
	// NumDocuments successfully indexed.
	NumDocuments int `json:"num_documents"`

	// Skipped counts files excluded by parse failures or insufficient text.
	Skipped int `json:"skipped,omitempty"`
}

// IndexFiles parses, embeds, and indexes the given files, replacing all
// prior content wholesale.
//
// Per-file parse failures are logged and skipped; the batch continues.
// Returns an error only when no document at all could be indexed or an
// embedding/build step failed.
func (e *Engine) IndexFiles(ctx context.Context, parser Parser, paths []string) (*IndexReport, error) {
	parsed := make([]ParsedFile, 0, len(paths))
	skipped := 0

	for _, path := range paths {
		pf, err := parser.Parse(ctx, path)
		if err != nil {
			e.logger.Warn("skipping file", "path", path, "error", err)
			skipped++
			continue
		}
		parsed = append(parsed, pf)
	}

	report, err := e.IndexParsed(ctx, parsed)
	if err != nil {
		return nil, err
	}
	report.Skipped += skipped
	return report, nil
}

// indexedDocument pairs a prepared record with its embedding inputs.
type indexedDocument struct {
	record        DocumentRecord
	textInput     string
	metadataInput string
}

// IndexParsed embeds and indexes already-parsed files, replacing all prior
// content wholesale.
func (e *Engine) IndexParsed(ctx context.Context, files []ParsedFile) (*IndexReport, error) {
	docs := make([]indexedDocument, 0, len(files))
	skipped := 0

	for _, pf := range files {
		if len(pf.Text) < e.minTextLength {
			e.logger.Warn("skipping file", "path", pf.Path, "reason", "insufficient text")
			skipped++
			continue
		}

		meta := ExtractMetadata(pf.Text)
		if meta.Title == "" {
			meta.Title = pf.Title
		}

		cleaned := PrepareForEmbedding(pf.Text)

		docs = append(docs, indexedDocument{
			record: DocumentRecord{
				CleanedText: cleaned,
				Meta:        meta,
			},
			textInput:     cleaned,
			metadataInput: CombineTextMetadata(cleaned, meta),
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents could be processed")
	}

	// Embed everything up front, outside the lock: embedding is free of
	// cross-document state and dominates rebuild time.
	if err := e.embedAll(ctx, docs); err != nil {
		return nil, err
	}

	// Rebuild inside the exclusive section: clear, ingest in input order,
	// then swap in both fully assembled indices.
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Clear()

	ids := make([]uint32, len(docs))
	textVecs := make([][]float32, len(docs))
	metaVecs := make([][]float32, len(docs))
	for i := range docs {
		ids[i] = e.store.Ingest(docs[i].record)
		textVecs[i] = docs[i].record.TextEmbedding
		metaVecs[i] = docs[i].record.MetadataEmbedding
	}

	if err := e.textIndex.Build(ids, textVecs); err != nil {
		e.indexed = false
		return nil, fmt.Errorf("failed to build text index: %w", err)
	}
	if err := e.metadataIndex.Build(ids, metaVecs); err != nil {
		e.indexed = false
		return nil, fmt.Errorf("failed to build metadata index: %w", err)
	}

	e.indexed = true
	e.logger.Info("index rebuilt", "documents", len(docs), "skipped", skipped)

	return &IndexReport{NumDocuments: len(docs), Skipped: skipped}, nil
}

// embedAll fills in both embeddings for every document using a bounded
// worker pool. All workers are joined before returning.
func (e *Engine) embedAll(ctx context.Context, docs []indexedDocument) error {
	workers := e.indexWorkers
	if workers > len(docs) {
		workers = len(docs)
	}

	jobs := make(chan int)
	errs := make([]error, len(docs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = e.embedOne(ctx, &docs[i])
			}
		}()
	}

	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("failed to embed document %d: %w", i, err)
		}
	}
	return nil
}

func (e *Engine) embedOne(ctx context.Context, doc *indexedDocument) error {
	textVec, err := e.embedder.Embed(ctx, doc.textInput)
	if err != nil {
		return err
	}
	metaVec, err := e.embedder.Embed(ctx, doc.metadataInput)
	if err != nil {
		return err
	}

	doc.record.TextEmbedding = Normalize(textVec)
	doc.record.MetadataEmbedding = Normalize(metaVec)
	return nil
}

// SearchRequest is the boundary shape accepted by Search.
type SearchRequest struct {
	Query         string `json:"query"`
	TopK          int    `json:"top_k"`
	UseClustering bool   `json:"use_clustering"`
	UseHybrid     bool   `json:"use_hybrid"`
}

// SearchResultItem is one ranked document in a search response.
type SearchResultItem struct {
	ID            uint32   `json:"id"`
	Score         float64  `json:"score"`
	TextScore     float64  `json:"text_score"`
	MetadataScore float64  `json:"metadata_score"`
	Rank          int      `json:"rank"`
	Text          string   `json:"text"`
	Metadata      Metadata `json:"metadata"`
}

// SearchBreakdown carries the average per-signal scores of a hybrid result
// set, for multi-signal score displays.
type SearchBreakdown struct {
	TextScore     float64 `json:"text_score"`
	MetadataScore float64 `json:"metadata_score"`
	CombinedScore float64 `json:"combined_score"`
}

// ClusteringStats summarizes the clustering attached to a response.
type ClusteringStats struct {
	NumClusters     int     `json:"num_clusters"`
	SilhouetteScore float64 `json:"silhouette_score"`
}

// SearchResponse is the boundary shape returned by Search.
type SearchResponse struct {
	Query           string             `json:"query"`
	NumResults      int                `json:"num_results"`
	Results         []SearchResultItem `json:"results"`
	UseHybrid       bool               `json:"use_hybrid"`
	Clusters        []ClusterRecord    `json:"clusters,omitempty"`
	ClusteringStats *ClusteringStats   `json:"clustering_stats,omitempty"`
	SearchBreakdown *SearchBreakdown   `json:"search_breakdown,omitempty"`
}

// Search retrieves ranked documents for the query and optionally clusters
// the result set.
//
// Validation happens here, at the boundary: empty (after trimming) queries
// return ErrInvalidQuery, topK < 1 returns ErrInvalidTopK, and searching
// before any indexing returns ErrEmptyIndex. Too few results for clustering
// is not an error; the response simply omits Clusters.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrInvalidQuery
	}
	if req.TopK < 1 {
		return nil, ErrInvalidTopK
	}

	e.mu.RLock()
	if !e.indexed {
		e.mu.RUnlock()
		return nil, ErrEmptyIndex
	}

	candidates, err := e.retriever.Retrieve(ctx, req.Query, req.TopK, req.UseHybrid)
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	resp := &SearchResponse{
		Query:      req.Query,
		NumResults: len(candidates),
		Results:    make([]SearchResultItem, len(candidates)),
		UseHybrid:  req.UseHybrid,
	}

	for i, cand := range candidates {
		resp.Results[i] = SearchResultItem{
			ID:            cand.ID,
			Score:         cand.Score,
			TextScore:     cand.TextScore,
			MetadataScore: cand.MetadataScore,
			Rank:          cand.Rank,
			Text:          cand.Record.CleanedText,
			Metadata:      cand.Record.Meta,
		}
	}

	if req.UseHybrid && len(candidates) > 0 {
		resp.SearchBreakdown = breakdown(candidates)
	}

	if req.UseClustering {
		clustering, err := e.clusterer.Cluster(candidates)
		switch {
		case errors.Is(err, ErrTooFewCandidates):
			// Advisory only: clusters are omitted.
		case err != nil:
			return nil, err
		default:
			resp.Clusters = clustering.Clusters
			resp.ClusteringStats = &ClusteringStats{
				NumClusters:     clustering.NumClusters,
				SilhouetteScore: clustering.SilhouetteScore,
			}
		}
	}

	return resp, nil
}

// breakdown averages the per-signal scores across the result set.
func breakdown(candidates []Candidate) *SearchBreakdown {
	var text, meta, combined float64
	for _, cand := range candidates {
		text += cand.TextScore
		meta += cand.MetadataScore
		combined += cand.Score
	}
	n := float64(len(candidates))
	return &SearchBreakdown{
		TextScore:     text / n,
		MetadataScore: meta / n,
		CombinedScore: combined / n,
	}
}

// StatsResponse is the boundary shape returned by Stats.
type StatsResponse struct {
	Indexed      bool `json:"indexed"`
	NumDocuments int  `json:"num_documents"`
	EmbeddingDim int  `json:"embedding_dim"`
}

// Stats reports the current index state.
func (e *Engine) Stats() StatsResponse {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return StatsResponse{
		Indexed:      e.indexed,
		NumDocuments: e.store.Size(),
		EmbeddingDim: e.textIndex.Dimensions(),
	}
}

// Reset clears the document store and both vector indices.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Clear()
	if err := e.textIndex.Build(nil, nil); err != nil {
		return err
	}
	if err := e.metadataIndex.Build(nil, nil); err != nil {
		return err
	}
	e.indexed = false

	e.logger.Info("index reset")
	return nil
}
