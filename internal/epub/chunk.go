package epub

// Chunk is a bounded slice of a section's text, annotated with its source
// section title and an estimated page number.
type Chunk struct {
	Source string
	Text   string
	Page   int
}

// Split cuts sections into chunks of at most maxChars runes, with
// overlapChars runes repeated between consecutive chunks of the same section
// so quotes spanning a boundary survive. Page numbers are estimated from the
// cumulative character offset across the whole document.
func Split(sections []Section, maxChars, overlapChars, charsPerPage int) []Chunk {
	if maxChars <= 0 {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars - 1
	}
	step := maxChars - overlapChars

	var chunks []Chunk
	offset := 0
	for _, section := range sections {
		runes := []rune(section.Text)
		for start := 0; start < len(runes); start += step {
			end := start + maxChars
			if end > len(runes) {
				end = len(runes)
			}
			chunks = append(chunks, Chunk{
				Source: section.Title,
				Text:   string(runes[start:end]),
				Page:   pageAt(offset+start, charsPerPage),
			})
			if end == len(runes) {
				break
			}
		}
		offset += len(runes)
	}
	return chunks
}

func pageAt(offset, charsPerPage int) int {
	if charsPerPage <= 0 {
		return 1
	}
	return offset/charsPerPage + 1
}
