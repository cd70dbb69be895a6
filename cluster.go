// The cluster engine partitions a retrieval result set into topic groups and
// selects the group count automatically.
//
// HOW GROUP-COUNT SELECTION WORKS:
// For each candidate k in [minK, min(maxK, n-1)] the engine runs seeded
// k-means++ over the result set's text embeddings and scores the labeling
// with the silhouette coefficient. The k with the best silhouette wins, with
// ties going to the smallest k. Degenerate labelings (any group of size 0 or
// 1 makes the silhouette undefined for that point set) score the minimum
// possible value. If no k produces a valid score, k is forced to minK.
//
// DETERMINISM:
// k-means++ initialization draws from a fixed-seed source, the iteration cap
// and convergence tolerance are constants, and all tie-breaks are explicit.
// Identical input therefore always yields identical groups.
//
// The engine is stateless per call: each search reclusters its own result
// subset and nothing persists across requests.
package pathfinder

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
)

// ErrTooFewCandidates is returned when a result set is too small to cluster.
// Callers surface it as an advisory, never as a hard failure.
var ErrTooFewCandidates = errors.New("too few candidates to cluster")

const (
	// DefaultMinClusters is the smallest group count considered.
	DefaultMinClusters = 3

	// DefaultMaxClusters is the largest group count considered.
	DefaultMaxClusters = 10

	// clusterSeed pins k-means++ initialization so silhouette-based model
	// selection and final labelings are reproducible.
	clusterSeed = 42

	// kmeansMaxIter caps the refinement loop.
	kmeansMaxIter = 50

	// kmeansTolerance stops refinement once the largest centroid movement
	// (squared L2) falls below it.
	kmeansTolerance = 1e-4

	// degenerateScore stands in for the silhouette of a labeling with an
	// empty or singleton group. -1 is the silhouette minimum, so such a k
	// can never win model selection.
	degenerateScore = -1.0
)

// ClusterRecord is one labeled topic group. Records are request-scoped and
// never persisted.
type ClusterRecord struct {
	// ClusterID numbers the group within the response, starting at 0.
	ClusterID int `json:"cluster_id"`

	// MemberIDs lists member documents ranked by combined score descending.
	MemberIDs []uint32 `json:"member_ids"`

	// Keywords holds up to 5 most frequent metadata keywords of the members.
	Keywords []string `json:"keywords"`

	// Summary is a templated sentence describing the group.
	Summary string `json:"summary"`

	// RepresentativeIDs holds the first 3 member ids.
	RepresentativeIDs []uint32 `json:"representative_ids"`
}

// Clustering is the result of partitioning one result set.
type Clustering struct {
	// Clusters ordered by ClusterID.
	Clusters []ClusterRecord `json:"clusters"`

	// NumClusters is the selected group count.
	NumClusters int `json:"num_clusters"`

	// SilhouetteScore of the selected labeling; degenerateScore when the
	// selection was forced.
	SilhouetteScore float64 `json:"silhouette_score"`
}

// ClusterEngine groups retrieval candidates by topic.
type ClusterEngine struct {
	minK int
	maxK int
}

// NewClusterEngine creates a cluster engine with the given group-count
// bounds. Out-of-range bounds fall back to the defaults.
func NewClusterEngine(minK, maxK int) *ClusterEngine {
	if minK < 2 {
		minK = DefaultMinClusters
	}
	if maxK < minK {
		maxK = DefaultMaxClusters
	}
	return &ClusterEngine{minK: minK, maxK: maxK}
}

// MinClusters returns the smallest group count the engine will produce.
func (e *ClusterEngine) MinClusters() int {
	return e.minK
}

// Cluster partitions the candidates into topic groups.
//
// Returns ErrTooFewCandidates when len(candidates) < minK. Malformed but
// non-empty input never panics: numerical failures degrade to forcing
// k = minK rather than propagating an error.
func (e *ClusterEngine) Cluster(candidates []Candidate) (*Clustering, error) {
	n := len(candidates)
	if n < e.minK {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTooFewCandidates, n, e.minK)
	}

	// Feature matrix: text embeddings in result order.
	features := make([][]float32, n)
	for i, cand := range candidates {
		features[i] = cand.Record.TextEmbedding
	}

	// Model selection: best silhouette wins, smallest k breaks ties.
	bestK := 0
	bestScore := math.Inf(-1)
	var bestLabels []int

	upper := e.maxK
	if n-1 < upper {
		upper = n - 1
	}
	for k := e.minK; k <= upper; k++ {
		labels := kMeans(features, k)
		score := silhouetteScore(features, labels, k)
		if score > bestScore {
			bestScore = score
			bestK = k
			bestLabels = labels
		}
	}

	// No k yielded a usable labeling (tiny n, or every labeling degenerate):
	// force minK.
	if bestK == 0 || bestScore == degenerateScore {
		bestK = e.minK
		bestLabels = kMeans(features, bestK)
		bestScore = degenerateScore
	}

	return &Clustering{
		Clusters:        e.buildRecords(candidates, bestLabels, bestK),
		NumClusters:     bestK,
		SilhouetteScore: bestScore,
	}, nil
}

// buildRecords assembles ClusterRecords from a labeling. Empty groups are
// dropped; within each group members keep combined-score-descending order.
func (e *ClusterEngine) buildRecords(candidates []Candidate, labels []int, k int) []ClusterRecord {
	groups := make([][]Candidate, k)
	for i, label := range labels {
		groups[label] = append(groups[label], candidates[i])
	}

	records := make([]ClusterRecord, 0, k)
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}

		// Candidates arrive ranked by combined score; re-sort in case the
		// caller passed an unordered subset.
		sort.Slice(group, func(i, j int) bool {
			a, b := group[i], group[j]
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			return a.ID < b.ID
		})

		memberIDs := make([]uint32, len(group))
		docs := make([]DocumentRecord, len(group))
		for i, cand := range group {
			memberIDs[i] = cand.ID
			docs[i] = cand.Record
		}

		keywords := TopKeywords(docs, 5)

		repCount := 3
		if len(memberIDs) < repCount {
			repCount = len(memberIDs)
		}

		clusterID := len(records)
		records = append(records, ClusterRecord{
			ClusterID:         clusterID,
			MemberIDs:         memberIDs,
			Keywords:          keywords,
			Summary:           clusterSummary(clusterID+1, len(group), keywords),
			RepresentativeIDs: memberIDs[:repCount],
		})
	}

	return records
}

// clusterSummary renders the templated group description.
func clusterSummary(n, count int, keywords []string) string {
	topics := keywords
	if len(topics) > 3 {
		topics = topics[:3]
	}
	return fmt.Sprintf("Cluster %d contains %d documents. Common topics: %s.",
		n, count, strings.Join(topics, ", "))
}

// kMeans clusters the vectors into k groups and returns the per-vector
// labels.
//
// Initialization is k-means++ drawn from a fixed-seed source. Refinement
// alternates assignment (nearest centroid by squared L2, which for unit
// vectors orders identically to cosine distance) and centroid update, and
// stops after kmeansMaxIter iterations or once the largest centroid movement
// drops below kmeansTolerance. An empty cluster keeps its old centroid
// position.
func kMeans(vectors [][]float32, k int) []int {
	n := len(vectors)
	if n == 0 || k <= 0 {
		return nil
	}
	if k > n {
		k = n
	}

	dim := len(vectors[0])
	rng := rand.New(rand.NewSource(clusterSeed))
	centroids := seedCentroids(vectors, k, rng)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < kmeansMaxIter; iter++ {
		// Assignment step.
		for i, vec := range vectors {
			nearest := 0
			nearestDist := float32(math.Inf(1))
			for c, centroid := range centroids {
				d := sqDist(vec, centroid)
				if d < nearestDist {
					nearestDist = d
					nearest = c
				}
			}
			labels[i] = nearest
		}

		// Update step: single accumulation pass.
		sums := make([][]float32, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float32, dim)
		}
		for i, label := range labels {
			for d := range vectors[i] {
				sums[label][d] += vectors[i][d]
			}
			counts[label]++
		}

		var maxMove float32
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			updated := make([]float32, dim)
			for d := range updated {
				updated[d] = sums[c][d] / float32(counts[c])
			}
			if move := sqDist(centroids[c], updated); move > maxMove {
				maxMove = move
			}
			centroids[c] = updated
		}

		if maxMove < kmeansTolerance {
			break
		}
	}

	return labels
}

// seedCentroids implements k-means++ initialization: the first centroid is
// drawn uniformly, each subsequent one with probability proportional to its
// squared distance from the nearest centroid chosen so far.
func seedCentroids(vectors [][]float32, k int, rng *rand.Rand) [][]float32 {
	n := len(vectors)
	centroids := make([][]float32, 0, k)

	first := rng.Intn(n)
	centroids = append(centroids, append([]float32(nil), vectors[first]...))

	dists := make([]float64, n)
	for len(centroids) < k {
		var total float64
		for i, vec := range vectors {
			nearest := math.Inf(1)
			for _, centroid := range centroids {
				if d := float64(sqDist(vec, centroid)); d < nearest {
					nearest = d
				}
			}
			dists[i] = nearest
			total += nearest
		}

		// All remaining points coincide with chosen centroids; fall back to
		// a uniform draw so initialization always completes.
		if total == 0 {
			idx := rng.Intn(n)
			centroids = append(centroids, append([]float32(nil), vectors[idx]...))
			continue
		}

		target := rng.Float64() * total
		idx := n - 1
		var cum float64
		for i, d := range dists {
			cum += d
			if cum >= target {
				idx = i
				break
			}
		}
		centroids = append(centroids, append([]float32(nil), vectors[idx]...))
	}

	return centroids
}

// silhouetteScore computes the mean silhouette coefficient of a labeling.
//
// For each point: a = mean distance to points sharing its group, b = the
// smallest mean distance to any other group, s = (b-a)/max(a,b). Returns
// degenerateScore when any group is empty or a singleton, which leaves the
// coefficient undefined for that point set.
func silhouetteScore(vectors [][]float32, labels []int, k int) float64 {
	n := len(vectors)
	counts := make([]int, k)
	for _, label := range labels {
		counts[label]++
	}
	for _, count := range counts {
		if count <= 1 {
			return degenerateScore
		}
	}

	var total float64
	for i := range vectors {
		// Mean distance from point i to every group.
		sums := make([]float64, k)
		for j := range vectors {
			if i == j {
				continue
			}
			sums[labels[j]] += math.Sqrt(float64(sqDist(vectors[i], vectors[j])))
		}

		own := labels[i]
		a := sums[own] / float64(counts[own]-1)

		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own {
				continue
			}
			if mean := sums[c] / float64(counts[c]); mean < b {
				b = mean
			}
		}

		if max := math.Max(a, b); max > 0 {
			total += (b - a) / max
		}
	}

	return total / float64(n)
}

// sqDist computes squared Euclidean distance.
func sqDist(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
