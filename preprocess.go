package pathfinder

import (
	"regexp"
	"strings"
)

// MaxTextLength bounds the cleaned text stored per document and fed to the
// text embedder.
const MaxTextLength = 512

var (
	urlPattern      = regexp.MustCompile(`https?://\S+`)
	emailRefPattern = regexp.MustCompile(`\S+@\S+`)
	nonTextPattern  = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?-]`)
	spacePattern    = regexp.MustCompile(`\s+`)
)

// CleanText normalizes raw extracted text: URLs and email addresses are
// removed, special characters collapse to spaces (basic punctuation kept),
// and whitespace is normalized.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = urlPattern.ReplaceAllString(text, "")
	text = emailRefPattern.ReplaceAllString(text, "")
	text = nonTextPattern.ReplaceAllString(text, " ")
	text = spacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// PrepareForEmbedding cleans text and truncates it to MaxTextLength at a
// word boundary.
func PrepareForEmbedding(text string) string {
	text = CleanText(text)

	if len(text) > MaxTextLength {
		text = text[:MaxTextLength]
		if idx := strings.LastIndex(text, " "); idx > 0 {
			text = text[:idx]
		}
	}

	return text
}

// CombineTextMetadata builds the input string for the metadata embedding:
// labeled title, abstract, and keyword sections followed by the main text.
// Absent fields are skipped.
func CombineTextMetadata(text string, meta Metadata) string {
	var parts []string

	if meta.Title != "" {
		parts = append(parts, "Title: "+meta.Title)
	}
	if meta.Abstract != "" {
		parts = append(parts, "Abstract: "+meta.Abstract)
	}
	if len(meta.Keywords) > 0 {
		kws := meta.Keywords
		if len(kws) > 5 {
			kws = kws[:5]
		}
		parts = append(parts, "Keywords: "+strings.Join(kws, ", "))
	}

	parts = append(parts, text)

	return strings.Join(parts, " ")
}
