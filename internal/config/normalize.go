package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeExtraction()
	c.normalizeApproval()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("GLEANER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.RetryCount <= 0 {
		c.LLM.RetryCount = defaultLLMRetryCount
	}
	if c.LLM.RetryDelaySeconds <= 0 {
		c.LLM.RetryDelaySeconds = defaultLLMRetryDelaySecs
	}
}

func (c *Config) normalizeExtraction() {
	if c.Extraction.MaxChunkChars <= 0 {
		c.Extraction.MaxChunkChars = defaultMaxChunkChars
	}
	if c.Extraction.ChunkOverlapChars < 0 {
		c.Extraction.ChunkOverlapChars = 0
	}
	if c.Extraction.CharsPerPage <= 0 {
		c.Extraction.CharsPerPage = defaultCharsPerPage
	}
	if c.Extraction.DBBatchSize <= 0 {
		c.Extraction.DBBatchSize = defaultDBBatchSize
	}
}

func (c *Config) normalizeApproval() {
	if c.Approval.WindowSize <= 0 {
		c.Approval.WindowSize = defaultWindowSize
	}
	if c.Approval.Overlap < 0 {
		c.Approval.Overlap = 0
	}
	if c.Approval.DistanceThreshold <= 0 {
		c.Approval.DistanceThreshold = defaultDistanceThreshold
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "auto":
		// Resolved against the terminal at logger construction time.
		c.Logging.Format = "auto"
	case "console", "json":
	default:
		c.Logging.Format = "auto"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
