package pathfinder

import (
	"testing"
)

// TestTopKeywordsFromMetadata tests frequency ranking over metadata keywords
func TestTopKeywordsFromMetadata(t *testing.T) {
	docs := []DocumentRecord{
		{Meta: Metadata{Keywords: []string{"deep learning", "vision"}}},
		{Meta: Metadata{Keywords: []string{"deep learning", "nlp"}}},
		{Meta: Metadata{Keywords: []string{"deep learning"}}},
	}

	got := TopKeywords(docs, 2)
	if len(got) != 2 {
		t.Fatalf("TopKeywords() returned %d keywords, want 2", len(got))
	}
	if got[0] != "deep learning" {
		t.Errorf("top keyword = %q, want %q", got[0], "deep learning")
	}
}

// TestTopKeywordsCaseInsensitive tests case-folded counting
func TestTopKeywordsCaseInsensitive(t *testing.T) {
	docs := []DocumentRecord{
		{Meta: Metadata{Keywords: []string{"Vision"}}},
		{Meta: Metadata{Keywords: []string{"vision"}}},
		{Meta: Metadata{Keywords: []string{"VISION", "nlp"}}},
	}

	got := TopKeywords(docs, 1)
	if len(got) != 1 || got[0] != "Vision" {
		t.Errorf("TopKeywords() = %v, want [Vision] (first-seen form, counted together)", got)
	}
}

// TestTopKeywordsTieBreak tests alphabetical tie-breaking
func TestTopKeywordsTieBreak(t *testing.T) {
	docs := []DocumentRecord{
		{Meta: Metadata{Keywords: []string{"zebra", "apple"}}},
	}

	got := TopKeywords(docs, 2)
	if len(got) != 2 || got[0] != "apple" || got[1] != "zebra" {
		t.Errorf("TopKeywords() = %v, want [apple zebra]", got)
	}
}

// TestTopKeywordsTextFallback tests mining body text when no metadata exists
func TestTopKeywordsTextFallback(t *testing.T) {
	docs := []DocumentRecord{
		{CleanedText: "transformer attention transformer encoder"},
		{CleanedText: "the transformer and the attention"},
	}

	got := TopKeywords(docs, 2)
	if len(got) == 0 {
		t.Fatal("TopKeywords() fallback returned nothing")
	}
	if got[0] != "transformer" {
		t.Errorf("top mined keyword = %q, want %q", got[0], "transformer")
	}
	for _, kw := range got {
		if kw == "the" || kw == "and" {
			t.Errorf("stopword %q leaked into keywords %v", kw, got)
		}
	}
}

// TestTopKeywordsEmpty tests behavior with no usable input
func TestTopKeywordsEmpty(t *testing.T) {
	got := TopKeywords(nil, 5)
	if len(got) != 0 {
		t.Errorf("TopKeywords(nil) = %v, want empty", got)
	}
}
