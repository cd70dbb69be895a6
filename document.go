package pathfinder

// Metadata holds the bibliographic fields extracted for a document.
//
// Every field is optional. Fields are modeled explicitly rather than as a
// free-form map so that absent values have documented defaults: empty string
// for scalars, zero for numbers, nil for lists. List ordering is preserved
// from extraction order.
type Metadata struct {
	// Title of the paper.
	Title string `json:"title,omitempty"`

	// Authors in the order they appear in the paper header.
	Authors []string `json:"authors,omitempty"`

	// Abstract text, truncated during extraction.
	Abstract string `json:"abstract,omitempty"`

	// Keywords from the paper's keywords section, in document order.
	Keywords []string `json:"keywords,omitempty"`

	// DOI identifier, if one was found.
	DOI string `json:"doi,omitempty"`

	// Year of publication (1900-2099); zero when unknown.
	Year int `json:"year,omitempty"`

	// Venue is the journal, conference, or workshop name.
	Venue string `json:"venue,omitempty"`

	// Emails of corresponding authors.
	Emails []string `json:"emails,omitempty"`

	// ReferenceCount is the number of citation entries detected.
	ReferenceCount int `json:"references_count,omitempty"`
}

// DocumentRecord is a fully indexed document: its cleaned text, extracted
// metadata, and both embedding vectors.
//
// Ids are assigned sequentially by the DocumentStore starting at 0 and are
// immutable once created. Both embeddings are unit-norm vectors of identical
// dimension; the dimension is fixed for the lifetime of an index.
type DocumentRecord struct {
	// ID is the store-assigned sequential identifier.
	ID uint32 `json:"id"`

	// CleanedText is the preprocessed body text used for the text embedding.
	// At most MaxTextLength characters.
	CleanedText string `json:"text"`

	// Meta holds the extracted bibliographic fields.
	Meta Metadata `json:"metadata"`

	// TextEmbedding is the unit-norm embedding of CleanedText.
	TextEmbedding []float32 `json:"-"`

	// MetadataEmbedding is the unit-norm embedding of the combined
	// metadata string (title, abstract, keywords).
	MetadataEmbedding []float32 `json:"-"`
}
