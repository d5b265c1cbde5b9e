package config

const (
	defaultDataDir           = "~/.local/share/gleaner"
	defaultLogDir            = "~/.local/share/gleaner/logs"
	defaultLogFormat         = "auto"
	defaultLogLevel          = "info"
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds = 180
	defaultLLMRetryCount     = 3
	defaultLLMRetryDelaySecs = 5
	defaultMaxChunkChars     = 15000
	defaultChunkOverlapChars = 200
	defaultCharsPerPage      = 2000
	defaultDBBatchSize       = 10
	defaultWindowSize        = 20
	defaultWindowOverlap     = 10
	defaultDistanceThreshold = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		LLM: LLM{
			BaseURL:           defaultLLMBaseURL,
			Model:             defaultLLMModel,
			TimeoutSeconds:    defaultLLMTimeoutSeconds,
			RetryCount:        defaultLLMRetryCount,
			RetryDelaySeconds: defaultLLMRetryDelaySecs,
		},
		Extraction: Extraction{
			MaxChunkChars:     defaultMaxChunkChars,
			ChunkOverlapChars: defaultChunkOverlapChars,
			CharsPerPage:      defaultCharsPerPage,
			DBBatchSize:       defaultDBBatchSize,
		},
		Approval: Approval{
			WindowSize:        defaultWindowSize,
			Overlap:           defaultWindowOverlap,
			DistanceThreshold: defaultDistanceThreshold,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
