package quotes

import (
	"fmt"
	"regexp"
	"strconv"
)

// pageMarker matches the page annotation the extraction pass appends to a
// quote's provenance, e.g. "Chapter 3 [page 12]".
var pageMarker = regexp.MustCompile(`\[page (\d+)\]`)

// FormatProvenance composes a provenance label from a section title and an
// estimated page number.
func FormatProvenance(section string, page int) string {
	return fmt.Sprintf("%s [page %d]", section, page)
}

// PageFromProvenance extracts the estimated page number embedded in a
// provenance label. The second return is false when no marker is present or
// it cannot be parsed; callers must treat that as "position unknown" rather
// than as a constraint violation.
func PageFromProvenance(provenance string) (int, bool) {
	match := pageMarker.FindStringSubmatch(provenance)
	if match == nil {
		return 0, false
	}
	page, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return page, true
}

// PageEstimate returns the quote's estimated page derived from provenance.
func (q *Quote) PageEstimate() (int, bool) {
	return PageFromProvenance(q.Provenance)
}
