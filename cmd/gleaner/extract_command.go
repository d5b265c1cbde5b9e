package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gleaner/internal/extraction"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var restart bool

	cmd := &cobra.Command{
		Use:   "extract <book.epub>",
		Short: "Extract quote candidates from an EPUB into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			epubPath := args[0]
			if _, err := os.Stat(epubPath); err != nil {
				return fmt.Errorf("epub path: %w", err)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			client, err := ctx.newLLMClient()
			if err != nil {
				return err
			}

			return ctx.withLock(func() error {
				store, err := ctx.openStore()
				if err != nil {
					return err
				}
				defer store.Close()

				extractor := extraction.New(store, client, extraction.Config{
					MaxChunkChars:     cfg.Extraction.MaxChunkChars,
					ChunkOverlapChars: cfg.Extraction.ChunkOverlapChars,
					CharsPerPage:      cfg.Extraction.CharsPerPage,
					DBBatchSize:       cfg.Extraction.DBBatchSize,
				}, logger)
				return extractor.Run(cmd.Context(), epubPath, restart)
			})
		},
	}

	cmd.Flags().BoolVar(&restart, "restart", false, "Discard saved progress and process the book from the beginning")
	return cmd
}
