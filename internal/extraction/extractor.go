package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"gleaner/internal/epub"
	"gleaner/internal/logging"
	"gleaner/internal/quotes"
	"gleaner/internal/services/llm"
)

// Completer is the slice of the llm client the extractor consumes.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config carries the chunking and batching knobs for the extraction pass.
type Config struct {
	MaxChunkChars     int
	ChunkOverlapChars int
	CharsPerPage      int
	DBBatchSize       int
}

// Extractor mines quotes from an EPUB into the store.
type Extractor struct {
	store  *quotes.Store
	client Completer
	cfg    Config
	logger *slog.Logger
}

// New constructs an extractor. A nil logger is replaced with a no-op one.
func New(store *quotes.Store, client Completer, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{
		store:  store,
		client: client,
		cfg:    cfg,
		logger: logging.WithComponent(logger, "extraction"),
	}
}

// Run extracts quotes from the EPUB at epubPath. When restart is false and a
// previous run over the same path was interrupted, processing resumes at the
// chunk after the last recorded one. A completed run clears its resume point.
func (e *Extractor) Run(ctx context.Context, epubPath string, restart bool) error {
	sections, err := epub.Extract(epubPath)
	if err != nil {
		return err
	}
	chunks := epub.Split(sections, e.cfg.MaxChunkChars, e.cfg.ChunkOverlapChars, e.cfg.CharsPerPage)
	if len(chunks) == 0 {
		return fmt.Errorf("extract %s: no text to process", epubPath)
	}

	start := 0
	if restart {
		if err := e.store.ClearProgress(ctx, epubPath); err != nil {
			return err
		}
	} else {
		lastChunk, found, err := e.store.LoadProgress(ctx, epubPath)
		if err != nil {
			return err
		}
		if found {
			start = lastChunk + 1
			e.logger.Info("resuming extraction", "source", epubPath, "next_chunk", start, "total_chunks", len(chunks))
		}
	}
	if start >= len(chunks) {
		e.logger.Info("extraction already complete", "source", epubPath)
		return e.store.ClearProgress(ctx, epubPath)
	}

	e.logger.Info("starting extraction",
		"source", epubPath,
		"sections", len(sections),
		"chunks", len(chunks)-start)

	var (
		batch        []quotes.NewQuote
		totalFound   int
		totalStored  int64
		failedChunks int
	)

	// flush persists the accumulated batch, then records the resume point.
	// Ordering matters: progress must never get ahead of stored quotes.
	flush := func(upTo int) error {
		if len(batch) > 0 {
			inserted, err := e.store.InsertQuotes(ctx, batch)
			if err != nil {
				return err
			}
			totalStored += inserted
			batch = batch[:0]
		}
		return e.store.SaveProgress(ctx, epubPath, upTo)
	}

	for i := start; i < len(chunks); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		extracted, err := e.extractChunk(ctx, chunks[i])
		if err != nil {
			failedChunks++
			e.logger.Warn("chunk extraction failed, continuing",
				"chunk", i, "source", chunks[i].Source, logging.Error(err))
			continue
		}
		totalFound += len(extracted)
		batch = append(batch, extracted...)
		if len(batch) >= e.batchSize() {
			if err := flush(i); err != nil {
				return err
			}
		}
	}
	if err := flush(len(chunks) - 1); err != nil {
		return err
	}

	if err := e.store.ClearProgress(ctx, epubPath); err != nil {
		return err
	}

	e.logger.Info("extraction complete",
		"source", epubPath,
		"quotes_found", totalFound,
		"quotes_stored", totalStored,
		"failed_chunks", failedChunks)
	return nil
}

func (e *Extractor) batchSize() int {
	if e.cfg.DBBatchSize <= 0 {
		return 10
	}
	return e.cfg.DBBatchSize
}

// extractedQuote mirrors the JSON objects the model returns per chunk.
type extractedQuote struct {
	Quote   string `json:"quote"`
	Speaker string `json:"speaker"`
	Context string `json:"context"`
	Topic   string `json:"topic"`
}

func (e *Extractor) extractChunk(ctx context.Context, chunk epub.Chunk) ([]quotes.NewQuote, error) {
	content, err := e.client.CompleteJSON(ctx, extractionSystemPrompt, extractionUserPrompt(chunk.Source, chunk.Text))
	if err != nil {
		return nil, err
	}

	var elements []json.RawMessage
	if err := llm.DecodeJSON(content, &elements); err != nil {
		return nil, fmt.Errorf("decode quote list: %w", err)
	}

	provenance := quotes.FormatProvenance(chunk.Source, chunk.Page)
	results := make([]quotes.NewQuote, 0, len(elements))
	for idx, element := range elements {
		var parsed extractedQuote
		if err := json.Unmarshal(element, &parsed); err != nil {
			e.logger.Warn("dropping malformed quote candidate",
				"source", chunk.Source, "index", idx, logging.Error(err))
			continue
		}
		text := strings.TrimSpace(parsed.Quote)
		if text == "" {
			e.logger.Warn("dropping quote candidate with empty text",
				"source", chunk.Source, "index", idx)
			continue
		}
		results = append(results, quotes.NewQuote{
			Provenance: provenance,
			Text:       text,
			Speaker:    strings.TrimSpace(parsed.Speaker),
			Context:    strings.TrimSpace(parsed.Context),
			Topic:      strings.TrimSpace(parsed.Topic),
		})
	}
	return results, nil
}
