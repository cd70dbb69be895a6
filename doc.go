/*
Package pathfinder implements the retrieval and topic-clustering core of a
literature navigation system.

Pathfinder indexes academic documents as pairs of unit-norm embeddings (one for
the cleaned body text, one for the bibliographic metadata), retrieves documents
for a natural-language query by fusing both similarity signals, and optionally
organizes a result set into labeled topic groups with automatic group-count
selection.

# Quick Start

Build an engine, index documents, and search:

	emb := myEmbedder() // any Embedder implementation
	engine, err := pathfinder.NewEngine(emb, pathfinder.DefaultEngineConfig())
	if err != nil {
	    log.Fatal(err)
	}

	report, err := engine.IndexFiles(ctx, parser, paths)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("indexed %d documents\n", report.NumDocuments)

	resp, err := engine.Search(ctx, pathfinder.SearchRequest{
	    Query:         "graph neural networks for molecules",
	    TopK:          10,
	    UseHybrid:     true,
	    UseClustering: true,
	})

# Retrieval

Search always queries the text index. With UseHybrid set, the metadata index
is queried as well and the two similarity scores are fused with fixed convex
weights (0.7 text, 0.3 metadata). Scores are inner products of unit vectors,
so they equal cosine similarity. Results are fully deterministic: ties are
broken by text score and then by ascending document id.

# Clustering

When a search returns at least MinClusters results and clustering was
requested, the result set is partitioned with seeded k-means++ and the group
count is selected by silhouette score. Each group carries the most frequent
metadata keywords of its members, a templated summary sentence, and up to
three representative document ids. Clustering is stateless and request-scoped.

# Concurrency

The engine applies an exclusive-writer discipline: an index rebuild holds the
write lock for its full duration and swaps fully assembled indices in, so
searches never observe a partially built index. Searches run concurrently
under the read lock. Per-document embedding during a rebuild is parallelized
across a bounded worker pool and joined before the build step.
*/
package pathfinder
