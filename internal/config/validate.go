package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateApproval(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if c.Extraction.ChunkOverlapChars >= c.Extraction.MaxChunkChars {
		return fmt.Errorf("extraction.chunk_overlap_chars (%d) must be smaller than extraction.max_chunk_chars (%d)",
			c.Extraction.ChunkOverlapChars, c.Extraction.MaxChunkChars)
	}
	return nil
}

func (c *Config) validateApproval() error {
	if c.Approval.WindowSize < 2 {
		return fmt.Errorf("approval.window_size must be at least 2, got %d", c.Approval.WindowSize)
	}
	// Overlap >= window size is tolerated and forced down by the engine so a
	// misconfigured value still makes forward progress.
	return nil
}

// RequireAPIKey reports an actionable error when no LLM API key is configured.
func (c *Config) RequireAPIKey() error {
	if c.LLM.APIKey != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/gleaner/config.toml"
	}
	return fmt.Errorf("llm.api_key is required. Set GLEANER_API_KEY env var or edit %s (create with 'gleaner config init')", defaultPath)
}
