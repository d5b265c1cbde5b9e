package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gleaner/internal/logging"
	"gleaner/internal/quotes"
	"gleaner/internal/services/llm"
)

// Oracle is the model-backed judgment the engine consumes. Failure is
// distinct from an empty result: ProposeGroups returning no candidates means
// the model saw nothing to group.
type Oracle interface {
	ProposeGroups(ctx context.Context, items []*quotes.Quote) ([][]int64, error)
	Classify(ctx context.Context, item *quotes.Quote) (string, error)
}

// Completer is the slice of the llm client the oracle consumes.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type llmOracle struct {
	client Completer
	logger *slog.Logger
}

// NewOracle wraps an llm client as the engine's oracle.
func NewOracle(client Completer, logger *slog.Logger) Oracle {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &llmOracle{client: client, logger: logging.WithComponent(logger, "oracle")}
}

// ProposeGroups asks the model to partition the window's quotes into
// candidate groups. Individual malformed candidates are dropped rather than
// failing the whole response.
func (o *llmOracle) ProposeGroups(ctx context.Context, items []*quotes.Quote) ([][]int64, error) {
	content, err := o.client.CompleteJSON(ctx, groupingSystemPrompt, groupingUserPrompt(items))
	if err != nil {
		return nil, err
	}

	var elements []json.RawMessage
	if err := llm.DecodeJSON(content, &elements); err != nil {
		return nil, fmt.Errorf("decode group proposals: %w", err)
	}

	candidates := make([][]int64, 0, len(elements))
	for idx, element := range elements {
		var ids []int64
		if err := json.Unmarshal(element, &ids); err != nil {
			o.logger.Warn("dropping malformed group candidate", "index", idx, logging.Error(err))
			continue
		}
		candidates = append(candidates, ids)
	}
	return candidates, nil
}

// Classify asks the model for a single decision token for one quote. The
// returned string is the model's raw trimmed answer; the engine decides
// whether it is a recognized token.
func (o *llmOracle) Classify(ctx context.Context, item *quotes.Quote) (string, error) {
	return o.client.Complete(ctx, classifySystemPrompt, classifyUserPrompt(item))
}
