// Bibliographic metadata extraction from paper text.
//
// Extraction is pattern-based and heuristic: the header section (first ~50
// lines) is scanned for title, authors and venue; the full text for DOI,
// keywords, emails and reference entries. None of it is load-bearing for
// retrieval correctness; a document with no extractable metadata still
// indexes fine with empty fields.
package pathfinder

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	emailPattern    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	doiPattern      = regexp.MustCompile(`(?i)(?:doi:\s*)?(10\.\d{4,}/\S+)`)
	yearPattern     = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	authorPattern   = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z]`)
	citationPattern = regexp.MustCompile(`\[\d+\]|\(\w+,\s*\d{4}\)`)
	keywordSplit    = regexp.MustCompile(`[,;\n]`)
)

// headerLineLimit bounds how much of the document counts as the header.
const headerLineLimit = 50

// venueMarkers identify publication venue lines.
var venueMarkers = []string{"proceedings", "journal", "conference", "workshop", "symposium"}

// keywordMarkers identify the start of a keywords section.
var keywordMarkers = []string{"keywords:", "key words:", "index terms:"}

// ExtractMetadata pulls bibliographic fields out of raw paper text.
// Every field is best-effort; fields that cannot be located stay zero.
func ExtractMetadata(text string) Metadata {
	lines := strings.Split(text, "\n")
	if len(lines) > headerLineLimit {
		lines = lines[:headerLineLimit]
	}

	return Metadata{
		Title:          extractTitle(lines),
		Authors:        extractAuthors(lines),
		Abstract:       extractAbstract(text),
		Keywords:       extractKeywords(text),
		DOI:            extractDOI(text),
		Year:           extractYear(text),
		Venue:          extractVenue(lines),
		Emails:         extractEmails(text),
		ReferenceCount: countReferences(text),
	}
}

// extractTitle takes the first header line that looks like a title.
func extractTitle(lines []string) string {
	limit := 10
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		line = strings.TrimSpace(line)
		if len(line) <= 10 || len(line) >= 200 {
			continue
		}
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "abstract") ||
			strings.HasPrefix(lower, "introduction") ||
			strings.HasPrefix(lower, "keywords") {
			continue
		}
		return line
	}
	return ""
}

// extractAuthors scans header lines for comma-separated name lists.
func extractAuthors(lines []string) []string {
	limit := 20
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, ",") || len(line) <= 10 || len(line) >= 200 {
			continue
		}
		if !authorPattern.MatchString(line) {
			continue
		}

		var authors []string
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			if len(part) > 3 {
				authors = append(authors, part)
			}
		}
		if len(authors) > 10 {
			authors = authors[:10]
		}
		if len(authors) > 0 {
			return authors
		}
	}
	return nil
}

// extractAbstract returns the text following an "abstract" or "summary"
// marker, truncated to 500 characters. Falls back to the first 300
// characters when no marker exists.
func extractAbstract(text string) string {
	lower := strings.ToLower(text)

	start := -1
	for _, marker := range []string{"abstract", "summary"} {
		if idx := strings.Index(lower, marker); idx >= 0 {
			start = idx + len(marker)
			break
		}
	}

	if start >= 0 {
		end := start + 800
		if end > len(text) {
			end = len(text)
		}
		abstract := strings.TrimSpace(text[start:end])
		abstract = strings.TrimLeft(abstract, ":— -")
		if len(abstract) > 500 {
			abstract = abstract[:500]
		}
		return abstract
	}

	end := 300
	if end > len(text) {
		end = len(text)
	}
	return strings.TrimSpace(text[:end])
}

// extractKeywords parses a comma- or semicolon-separated keywords section.
func extractKeywords(text string) []string {
	lower := strings.ToLower(text)

	for _, marker := range keywordMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}

		end := idx + len(marker) + 200
		if end > len(text) {
			end = len(text)
		}
		section := text[idx+len(marker) : end]

		// Keyword sections end at the first blank line or the next section.
		if cut := strings.Index(section, "\n\n"); cut >= 0 {
			section = section[:cut]
		}

		var keywords []string
		for _, kw := range keywordSplit.Split(section, -1) {
			kw = strings.TrimSpace(kw)
			if len(kw) > 2 {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) > 10 {
			keywords = keywords[:10]
		}
		return keywords
	}

	return nil
}

// extractDOI returns the first DOI-shaped identifier.
func extractDOI(text string) string {
	match := doiPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.TrimRight(match[1], ".,;")
}

// extractYear returns the most recent plausible year in the first 2000
// characters, where headers usually carry the publication year.
func extractYear(text string) int {
	scope := text
	if len(scope) > 2000 {
		scope = scope[:2000]
	}

	best := 0
	for _, match := range yearPattern.FindAllString(scope, -1) {
		year, err := strconv.Atoi(match)
		if err != nil {
			continue
		}
		if year >= 1900 && year <= 2099 && year > best {
			best = year
		}
	}
	return best
}

// extractVenue returns the first header line mentioning a venue keyword.
func extractVenue(lines []string) string {
	limit := 30
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		lower := strings.ToLower(line)
		for _, marker := range venueMarkers {
			if strings.Contains(lower, marker) {
				venue := strings.TrimSpace(line)
				if len(venue) > 100 {
					venue = venue[:100]
				}
				return venue
			}
		}
	}
	return ""
}

// extractEmails returns up to 5 distinct addresses from the first 5000
// characters, sorted for determinism.
func extractEmails(text string) []string {
	scope := text
	if len(scope) > 5000 {
		scope = scope[:5000]
	}

	seen := make(map[string]struct{})
	for _, email := range emailPattern.FindAllString(scope, -1) {
		seen[email] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}

	emails := make([]string, 0, len(seen))
	for email := range seen {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	if len(emails) > 5 {
		emails = emails[:5]
	}
	return emails
}

// countReferences counts citation-shaped entries after the last
// references-section marker.
func countReferences(text string) int {
	lower := strings.ToLower(text)

	for _, marker := range []string{"references", "bibliography", "works cited"} {
		idx := strings.LastIndex(lower, marker)
		if idx < 0 {
			continue
		}
		return len(citationPattern.FindAllString(text[idx:], -1))
	}
	return 0
}
