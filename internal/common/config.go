package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Classify   ClassifyConfig
	Render     RenderConfig
	Vision     VisionConfig
	Quality    QualityConfig
	Checkpoint CheckpointConfig
	Tools      ToolsConfig
}

// ClassifyConfig controls text-vs-image document classification
type ClassifyConfig struct {
	SamplePages int
	MinTextLen  int
	ForceVision bool
}

// RenderConfig controls page rendering and rotation correction
type RenderConfig struct {
	DPI                int
	MaxImageBytes      int
	RotationConfidence float64
}

// VisionConfig holds vision model configuration
type VisionConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int64
	Retries     int
	Backoff     time.Duration
	Timeout     time.Duration
}

// QualityConfig holds thresholds for the text-extraction quality gate.
// The defaults are tuned heuristics, a starting contract rather than
// hard semantics.
type QualityConfig struct {
	MaxMinorIssues  int
	RaggedRowRatio  float64
	EmptyCellRatio  float64
	DuplicateRatio  float64
	MinNumericCells int
}

// CheckpointConfig holds resumable-state configuration
type CheckpointConfig struct {
	Dir       string
	SaveEvery int
}

// ToolsConfig holds paths to external binaries
type ToolsConfig struct {
	Pdftotext string
	Pdftoppm  string
	Tesseract string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Classify: ClassifyConfig{
			SamplePages: getEnvAsInt("CLASSIFY_SAMPLE_PAGES", 3),
			MinTextLen:  getEnvAsInt("CLASSIFY_MIN_TEXT_LEN", 50),
		},
		Render: RenderConfig{
			DPI:                getEnvAsInt("RENDER_DPI", 288),
			MaxImageBytes:      getEnvAsInt("IMAGE_MAX_BYTES", 5<<20),
			RotationConfidence: getEnvAsFloat("ROTATION_CONFIDENCE", 1.0),
		},
		Vision: VisionConfig{
			Model:       getEnv("VISION_MODEL", "claude-sonnet-4-5-20250929"),
			APIKey:      getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:     getEnv("ANTHROPIC_BASE_URL", ""),
			Temperature: getEnvAsFloat("VISION_TEMPERATURE", 0.0),
			MaxTokens:   int64(getEnvAsInt("VISION_MAX_TOKENS", 4096)),
			Retries:     getEnvAsInt("VISION_RETRIES", 3),
			Backoff:     getEnvAsDuration("VISION_BACKOFF", 2*time.Second),
			Timeout:     getEnvAsDuration("VISION_TIMEOUT", 2*time.Minute),
		},
		Quality: QualityConfig{
			MaxMinorIssues:  getEnvAsInt("QUALITY_MAX_MINOR_ISSUES", 0),
			RaggedRowRatio:  getEnvAsFloat("QUALITY_RAGGED_ROW_RATIO", 0.3),
			EmptyCellRatio:  getEnvAsFloat("QUALITY_EMPTY_CELL_RATIO", 0.5),
			DuplicateRatio:  getEnvAsFloat("QUALITY_DUPLICATE_RATIO", 0.2),
			MinNumericCells: getEnvAsInt("QUALITY_MIN_NUMERIC_CELLS", 1),
		},
		Checkpoint: CheckpointConfig{
			Dir:       getEnv("CHECKPOINT_DIR", "./tmp"),
			SaveEvery: getEnvAsInt("CHECKPOINT_EVERY", 10),
		},
		Tools: ToolsConfig{
			Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:  getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract: getEnv("TESSERACT_BIN", "tesseract"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Classify.SamplePages < 1 {
		return NewAppError("CONFIG_ERROR", "CLASSIFY_SAMPLE_PAGES must be >= 1", ErrInvalidInput)
	}
	if c.Render.DPI < 72 {
		return NewAppError("CONFIG_ERROR", "RENDER_DPI must be >= 72", ErrInvalidInput)
	}
	if c.Checkpoint.SaveEvery < 1 {
		return NewAppError("CONFIG_ERROR", "CHECKPOINT_EVERY must be >= 1", ErrInvalidInput)
	}
	if c.Vision.Retries < 0 {
		return NewAppError("CONFIG_ERROR", "VISION_RETRIES must be >= 0", ErrInvalidInput)
	}
	return nil
}
