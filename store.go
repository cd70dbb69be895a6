package pathfinder

import (
	"errors"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// ErrDocumentNotFound is returned when a requested document id is not in the store.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore owns the canonical set of indexed records.
//
// Ids are assigned sequentially starting at 0, are never reused, and the
// insertion order is the id order. The only supported mutations are Ingest
// and Clear; there is no update-in-place. After any mutation both vector
// indices must be rebuilt before the store is considered searchable again.
//
// Thread-safety: safe for concurrent use through a read-write mutex. In
// practice the Engine serializes writes under its own exclusive lock.
type DocumentStore struct {
	mu sync.RWMutex

	// records in insertion order; records[i].ID == ids in liveIDs
	records []DocumentRecord

	// liveIDs tracks the ids currently in the store. A roaring bitmap gives
	// O(log n) membership tests and cheap set operations for callers that
	// intersect candidate sets against the store.
	liveIDs *roaring.Bitmap

	// nextID is the id the next Ingest call will assign
	nextID uint32
}

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		records: make([]DocumentRecord, 0),
		liveIDs: roaring.New(),
	}
}

// Ingest adds a record to the store and returns the assigned id.
// The record's ID field is overwritten with the assigned value.
//
// Ids are sequential from 0 and monotonic within a store generation; only
// Clear starts a new generation.
func (s *DocumentStore) Ingest(record DocumentRecord) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	record.ID = id
	s.records = append(s.records, record)
	s.liveIDs.Add(id)

	return id
}

// GetByID returns the record with the given id.
func (s *DocumentStore) GetByID(id uint32) (DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.liveIDs.Contains(id) {
		return DocumentRecord{}, fmt.Errorf("document %d: %w", id, ErrDocumentNotFound)
	}

	// Ids are assigned sequentially with no deletion, so the id is the
	// record's position.
	return s.records[id], nil
}

// List returns all records in insertion (id) order.
// The returned slice is a copy; record contents are shared.
func (s *DocumentStore) List() []DocumentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DocumentRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Size returns the number of records in the store.
func (s *DocumentStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// IDs returns a copy of the live id set.
func (s *DocumentStore) IDs() *roaring.Bitmap {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.liveIDs.Clone()
}

// Clear removes all records. Id assignment restarts at 0 so that a full
// re-index reproduces identical ids for an identical document sequence.
func (s *DocumentStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = s.records[:0]
	s.liveIDs.Clear()
	s.nextID = 0
}
