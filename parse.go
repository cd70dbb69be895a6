package pathfinder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ParsedFile is the structured record a Parser produces for one source file.
type ParsedFile struct {
	// Path of the source file.
	Path string

	// Text is the full extracted text.
	Text string

	// Title hint from file-level metadata (e.g. PDF properties); may be
	// empty, in which case extraction falls back to the text header.
	Title string
}

// ParseError reports a per-file extraction failure. Indexing logs it,
// excludes the file, and continues with the rest of the batch.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser extracts text from a source file. PDF (or other format) parsing is
// an external collaborator; the core only depends on this contract.
type Parser interface {
	// Parse extracts the file's text. Failures are returned as *ParseError.
	Parse(ctx context.Context, path string) (ParsedFile, error)
}

// PlainTextParser reads UTF-8 text files (.txt, .md). It is the default
// collaborator for corpora that were converted to text ahead of time.
type PlainTextParser struct{}

// Parse reads the file and uses the file name stem as the title hint.
func (PlainTextParser) Parse(_ context.Context, path string) (ParsedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ParsedFile{}, &ParseError{Path: path, Err: err}
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return ParsedFile{}, &ParseError{Path: path, Err: fmt.Errorf("file is empty")}
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return ParsedFile{
		Path:  path,
		Text:  text,
		Title: stem,
	}, nil
}
