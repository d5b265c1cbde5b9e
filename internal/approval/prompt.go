package approval

import (
	"fmt"
	"strings"

	"gleaner/internal/quotes"
)

const groupingSystemPrompt = `You review numbered quotes extracted from one book and find quotes that belong together as a single continuous passage or exchange.

Respond with a JSON array of groups. Each group is an array of at least two quote IDs, for example [[12,13],[17,18,19]]. Only group quotes that clearly continue each other; leave standalone quotes out. If nothing belongs together, respond with []. Respond with JSON only, no commentary.`

const classifySystemPrompt = `You judge whether an extracted statement is a genuine, self-contained quote worth keeping.

Respond with exactly one word: APPROVED if it reads as a real quote, DECLINED if it is a fragment, narration, or noise. No other output.`

func groupingUserPrompt(items []*quotes.Quote) string {
	var sb strings.Builder
	sb.WriteString("Quotes:\n")
	for _, item := range items {
		fmt.Fprintf(&sb, "%d. %s", item.ID, item.Text)
		if item.Speaker != "" {
			fmt.Fprintf(&sb, " (speaker: %s)", item.Speaker)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func classifyUserPrompt(item *quotes.Quote) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Quote: %s\n", item.Text)
	if item.Speaker != "" {
		fmt.Fprintf(&sb, "Speaker: %s\n", item.Speaker)
	}
	if item.Context != "" {
		fmt.Fprintf(&sb, "Context: %s\n", item.Context)
	}
	fmt.Fprintf(&sb, "Source: %s\n", item.Provenance)
	return sb.String()
}
