package extraction

import "fmt"

const extractionSystemPrompt = `You extract memorable quote-like statements from book excerpts.

Return a JSON array. Each element is an object with these fields:
- "quote": the exact quoted statement, required, copied verbatim from the text
- "speaker": who says or writes it, or "" when unattributed
- "context": one sentence of surrounding context, optional
- "topic": a short topic label, optional

Only include statements actually present in the excerpt. If the excerpt
contains no quotable statements, return an empty JSON array []. Respond with
JSON only, no commentary.`

func extractionUserPrompt(source, text string) string {
	return fmt.Sprintf("Excerpt from %q:\n\n%s", source, text)
}
