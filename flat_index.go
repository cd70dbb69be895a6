// The flat index stores vectors "as-is" and answers queries by exhaustive
// scan, which guarantees exact results.
//
// HOW SEARCH WORKS:
// For a query vector Q, the index:
//  1. Computes the inner product of Q with EVERY stored vector
//  2. Sorts by score (descending), breaking ties by ascending id
//  3. Returns the k best hits
//
// Because every stored vector and every query is unit-norm, the inner product
// equals cosine similarity. Scores are comparable across queries and live in
// [-1, 1].
//
// TIME COMPLEXITY:
//   - Build: O(n) - vectors are copied in, no training phase
//   - Search: O(m*n + n*log n) where n = stored vectors, m = dimension
//
// WHEN TO USE:
// Exhaustive search is the right trade-off here: corpora are small (hundreds
// to low thousands of papers), and retrieval quality must be exact because
// fused scores feed the ranking directly.
package pathfinder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/x448/float16"
)

// ErrDimensionMismatch is returned when a vector's dimension does not match the index.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Hit is a single search result: a stored vector id and its similarity score.
type Hit struct {
	// ID of the stored vector.
	ID uint32

	// Score is the inner product with the query (= cosine similarity for
	// unit-norm vectors). Higher is more similar.
	Score float32
}

// VectorPrecision selects how a snapshot encodes vector components.
type VectorPrecision string

const (
	// Float32Precision stores full 4-byte components.
	Float32Precision VectorPrecision = "float32"

	// Float16Precision stores IEEE 754 half-precision components, halving
	// snapshot size at ~3 decimal digits of precision.
	Float16Precision VectorPrecision = "float16"
)

// FlatIndex is an exact nearest-neighbor index over unit-norm vectors using
// inner product similarity.
//
// The index holds an ordered sequence of (id, vector) pairs. Build replaces
// the entire sequence atomically; there is no incremental mutation. Searching
// an index that was never built yields an empty result, not an error.
//
// Thread-safety: safe for concurrent use through a read-write mutex. Multiple
// readers can search simultaneously; Build is exclusive.
type FlatIndex struct {
	// dim is the dimensionality of vectors stored in this index.
	dim int

	// ids[i] identifies vectors[i]. Build preserves input order, which by
	// construction is document-store insertion order.
	ids     []uint32
	vectors [][]float32

	mu sync.RWMutex
}

// NewFlatIndex creates an empty flat index for vectors of the given dimension.
//
// Returns an error if dim <= 0.
func NewFlatIndex(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}

	return &FlatIndex{dim: dim}, nil
}

// Build replaces all index content with the given (id, vector) sequence.
//
// The swap is all-or-nothing: the new content is fully validated and copied
// before it becomes visible, so concurrent searches never observe a partial
// build. Build normalizes every vector so the unit-norm invariant holds for
// all stored content.
//
// Passing empty slices clears the index.
//
// Time complexity: O(n*m) where n = vectors, m = dimension
func (idx *FlatIndex) Build(ids []uint32, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}

	newIDs := make([]uint32, len(ids))
	newVectors := make([][]float32, len(vectors))
	for i, vec := range vectors {
		if len(vec) != idx.dim {
			return fmt.Errorf("vector %d: expected dim %d, got %d: %w", ids[i], idx.dim, len(vec), ErrDimensionMismatch)
		}
		newIDs[i] = ids[i]
		newVectors[i] = Normalize(vec)
	}

	idx.mu.Lock()
	idx.ids = newIDs
	idx.vectors = newVectors
	idx.mu.Unlock()

	return nil
}

// Search returns the k stored vectors most similar to the query, ordered by
// score descending with ties broken by ascending id for determinism.
//
// k is clamped to the stored count. An empty (or never built) index returns
// an empty slice, never an error.
//
// Time complexity: O(m*n + n*log n)
func (idx *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return []Hit{}, nil
	}

	if len(query) != idx.dim {
		return nil, fmt.Errorf("query: expected dim %d, got %d: %w", idx.dim, len(query), ErrDimensionMismatch)
	}

	if k <= 0 || k > len(idx.vectors) {
		k = len(idx.vectors)
	}

	hits := make([]Hit, len(idx.vectors))
	for i, vec := range idx.vectors {
		hits[i] = Hit{ID: idx.ids[i], Score: Dot(query, vec)}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	return hits[:k], nil
}

// Count returns the number of stored vectors.
func (idx *FlatIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.vectors)
}

// Dimensions returns the dimensionality of vectors stored in this index.
func (idx *FlatIndex) Dimensions() int {
	return idx.dim
}

// Vector returns the stored vector for the given id.
func (idx *FlatIndex) Vector(id uint32) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for i, storedID := range idx.ids {
		if storedID == id {
			return idx.vectors[i], true
		}
	}
	return nil, false
}

// flatIndexMagic identifies serialized flat index data.
var flatIndexMagic = [4]byte{'P', 'F', 'V', 'I'}

const flatIndexVersion = uint32(1)

// WriteTo serializes the index.
//
// Format:
//  1. Magic number "PFVI" (4 bytes)
//  2. Version (4 bytes)
//  3. Dimensionality (4 bytes)
//  4. Precision tag length + tag string
//  5. Vector count (4 bytes)
//  6. Per vector: id (4 bytes) then dim components (4 or 2 bytes each,
//     depending on precision)
//
// Thread-safety: acquires read lock for the duration of the write.
func (idx *FlatIndex) WriteTo(w io.Writer) (int64, error) {
	return idx.writeTo(w, Float32Precision)
}

// WriteToHalf serializes the index with float16 vector components.
// The snapshot is half the size; scores recomputed after a round-trip differ
// by at most ~1e-3, which is well inside ranking noise for fused scores.
func (idx *FlatIndex) WriteToHalf(w io.Writer) (int64, error) {
	return idx.writeTo(w, Float16Precision)
}

func (idx *FlatIndex) writeTo(w io.Writer, precision VectorPrecision) (int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var n int64

	write := func(data any) error {
		err := binary.Write(w, binary.LittleEndian, data)
		if err == nil {
			n += int64(binary.Size(data))
		}
		return err
	}

	if _, err := w.Write(flatIndexMagic[:]); err != nil {
		return n, fmt.Errorf("failed to write magic number: %w", err)
	}
	n += 4

	if err := write(flatIndexVersion); err != nil {
		return n, fmt.Errorf("failed to write version: %w", err)
	}

	if err := write(uint32(idx.dim)); err != nil {
		return n, fmt.Errorf("failed to write dimensionality: %w", err)
	}

	tag := []byte(precision)
	if err := write(uint32(len(tag))); err != nil {
		return n, fmt.Errorf("failed to write precision tag length: %w", err)
	}
	if _, err := w.Write(tag); err != nil {
		return n, fmt.Errorf("failed to write precision tag: %w", err)
	}
	n += int64(len(tag))

	if err := write(uint32(len(idx.vectors))); err != nil {
		return n, fmt.Errorf("failed to write vector count: %w", err)
	}

	for i, vec := range idx.vectors {
		if err := write(idx.ids[i]); err != nil {
			return n, fmt.Errorf("failed to write vector %d id: %w", i, err)
		}

		switch precision {
		case Float16Precision:
			half := make([]uint16, len(vec))
			for j, v := range vec {
				half[j] = float16.Fromfloat32(v).Bits()
			}
			if err := write(half); err != nil {
				return n, fmt.Errorf("failed to write vector %d data: %w", i, err)
			}
		default:
			if err := write(vec); err != nil {
				return n, fmt.Errorf("failed to write vector %d data: %w", i, err)
			}
		}
	}

	return n, nil
}

// ReadFrom deserializes index content produced by WriteTo or WriteToHalf,
// replacing any existing content.
//
// Thread-safety: acquires write lock for the duration of the read.
func (idx *FlatIndex) ReadFrom(r io.Reader) (int64, error) {
	var n int64

	read := func(data any) error {
		err := binary.Read(r, binary.LittleEndian, data)
		if err == nil {
			n += int64(binary.Size(data))
		}
		return err
	}

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return n, fmt.Errorf("failed to read magic number: %w", err)
	}
	n += 4
	if string(magic) != string(flatIndexMagic[:]) {
		return n, fmt.Errorf("invalid magic number %q", magic)
	}

	var version uint32
	if err := read(&version); err != nil {
		return n, fmt.Errorf("failed to read version: %w", err)
	}
	if version != flatIndexVersion {
		return n, fmt.Errorf("unsupported version %d", version)
	}

	var dim uint32
	if err := read(&dim); err != nil {
		return n, fmt.Errorf("failed to read dimensionality: %w", err)
	}
	if int(dim) != idx.dim {
		return n, fmt.Errorf("index has dim %d, snapshot has dim %d: %w", idx.dim, dim, ErrDimensionMismatch)
	}

	var tagLen uint32
	if err := read(&tagLen); err != nil {
		return n, fmt.Errorf("failed to read precision tag length: %w", err)
	}
	tag := make([]byte, tagLen)
	if _, err := io.ReadFull(r, tag); err != nil {
		return n, fmt.Errorf("failed to read precision tag: %w", err)
	}
	n += int64(tagLen)

	precision := VectorPrecision(tag)
	switch precision {
	case Float32Precision, Float16Precision:
	default:
		return n, fmt.Errorf("unknown precision tag %q", tag)
	}

	var count uint32
	if err := read(&count); err != nil {
		return n, fmt.Errorf("failed to read vector count: %w", err)
	}

	ids := make([]uint32, count)
	vectors := make([][]float32, count)
	for i := uint32(0); i < count; i++ {
		if err := read(&ids[i]); err != nil {
			return n, fmt.Errorf("failed to read vector %d id: %w", i, err)
		}

		vec := make([]float32, dim)
		switch precision {
		case Float16Precision:
			half := make([]uint16, dim)
			if err := read(half); err != nil {
				return n, fmt.Errorf("failed to read vector %d data: %w", i, err)
			}
			for j, bits := range half {
				vec[j] = float16.Frombits(bits).Float32()
			}
			// Half-precision round-trips drift slightly off unit norm.
			NormalizeInPlace(vec)
		default:
			if err := read(vec); err != nil {
				return n, fmt.Errorf("failed to read vector %d data: %w", i, err)
			}
		}
		vectors[i] = vec
	}

	idx.mu.Lock()
	idx.ids = ids
	idx.vectors = vectors
	idx.mu.Unlock()

	return n, nil
}
