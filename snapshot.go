package pathfinder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot file names inside a snapshot directory.
const (
	textIndexFile     = "text_vectors.idx"
	metadataIndexFile = "metadata_vectors.idx"
	documentsFile     = "documents.json"
)

// SaveSnapshot persists the engine state to the given directory: both vector
// indices in the binary index format and the document records as JSON.
//
// With Float16Precision the index files are written half-size; document
// records are unaffected. The directory is created if missing.
func (e *Engine) SaveSnapshot(dir string, precision VectorPrecision) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.indexed {
		return ErrEmptyIndex
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if err := writeIndexFile(filepath.Join(dir, textIndexFile), e.textIndex, precision); err != nil {
		return fmt.Errorf("failed to save text index: %w", err)
	}
	if err := writeIndexFile(filepath.Join(dir, metadataIndexFile), e.metadataIndex, precision); err != nil {
		return fmt.Errorf("failed to save metadata index: %w", err)
	}

	records := e.store.List()
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, documentsFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to save documents: %w", err)
	}

	e.logger.Info("snapshot saved", "dir", dir, "documents", len(records), "precision", string(precision))
	return nil
}

// LoadSnapshot restores engine state from a directory written by
// SaveSnapshot, replacing all current content.
//
// Document embeddings are not stored in the JSON file; they are reattached
// from the loaded indices, so a load followed by a search behaves exactly
// like the engine that saved the snapshot (up to half-precision rounding
// when the snapshot was written with Float16Precision).
func (e *Engine) LoadSnapshot(dir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := readIndexFile(filepath.Join(dir, textIndexFile), e.textIndex); err != nil {
		return fmt.Errorf("failed to load text index: %w", err)
	}
	if err := readIndexFile(filepath.Join(dir, metadataIndexFile), e.metadataIndex); err != nil {
		return fmt.Errorf("failed to load metadata index: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, documentsFile))
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	var records []DocumentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to decode documents: %w", err)
	}

	// Records were saved in id order, so re-ingesting into a fresh
	// generation reproduces identical ids.
	e.store.Clear()
	for i := range records {
		if vec, ok := e.textIndex.Vector(records[i].ID); ok {
			records[i].TextEmbedding = vec
		}
		if vec, ok := e.metadataIndex.Vector(records[i].ID); ok {
			records[i].MetadataEmbedding = vec
		}
		e.store.Ingest(records[i])
	}

	e.indexed = len(records) > 0
	e.logger.Info("snapshot loaded", "dir", dir, "documents", len(records))
	return nil
}

func writeIndexFile(path string, idx *FlatIndex, precision VectorPrecision) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if precision == Float16Precision {
		_, err = idx.WriteToHalf(f)
	} else {
		_, err = idx.WriteTo(f)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

func readIndexFile(path string, idx *FlatIndex) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = idx.ReadFrom(f)
	return err
}
