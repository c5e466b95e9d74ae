package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvConfidenceThreshold = "CONSOLIDA_CONFIDENCE_THRESHOLD"
	EnvOCRThreshold        = "CONSOLIDA_OCR_THRESHOLD"
	EnvConflictPolicy      = "CONSOLIDA_CONFLICT_POLICY"
	EnvBatchConcurrency    = "CONSOLIDA_BATCH_CONCURRENCY"
)

// ConsolidationConfig holds thresholds and policy knobs for the
// consolidation engine.
//
// ConfidenceThreshold gates automatic application of extracted amendment
// events. OCRThreshold gates the unverified flag on segmented device text.
// ConflictPolicy selects the tie-break when two events with the same
// effective date target one device: "last_wins" (default) or "first_wins".
type ConsolidationConfig struct {
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	OCRThreshold        float64 `toml:"ocr_threshold"`
	ConflictPolicy      string  `toml:"conflict_policy"`
	BatchConcurrency    int     `toml:"batch_concurrency"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ConsolidationConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ConsolidationConfig) Merge(overlay *ConsolidationConfig) {
	if overlay.ConfidenceThreshold != 0 {
		c.ConfidenceThreshold = overlay.ConfidenceThreshold
	}
	if overlay.OCRThreshold != 0 {
		c.OCRThreshold = overlay.OCRThreshold
	}
	if overlay.ConflictPolicy != "" {
		c.ConflictPolicy = overlay.ConflictPolicy
	}
	if overlay.BatchConcurrency != 0 {
		c.BatchConcurrency = overlay.BatchConcurrency
	}
}

func (c *ConsolidationConfig) loadDefaults() {
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = 0.85
	}
	if c.OCRThreshold == 0 {
		c.OCRThreshold = 0.80
	}
	if c.ConflictPolicy == "" {
		c.ConflictPolicy = "last_wins"
	}
	if c.BatchConcurrency == 0 {
		c.BatchConcurrency = 4
	}
}

func (c *ConsolidationConfig) loadEnv() {
	if v := os.Getenv(EnvConfidenceThreshold); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ConfidenceThreshold = f
		}
	}
	if v := os.Getenv(EnvOCRThreshold); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.OCRThreshold = f
		}
	}
	if v := os.Getenv(EnvConflictPolicy); v != "" {
		c.ConflictPolicy = v
	}
	if v := os.Getenv(EnvBatchConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BatchConcurrency = n
		}
	}
}

func (c *ConsolidationConfig) validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1]: %v", c.ConfidenceThreshold)
	}
	if c.OCRThreshold < 0 || c.OCRThreshold > 1 {
		return fmt.Errorf("ocr_threshold must be in [0,1]: %v", c.OCRThreshold)
	}
	if c.ConflictPolicy != "last_wins" && c.ConflictPolicy != "first_wins" {
		return fmt.Errorf("invalid conflict_policy: %s", c.ConflictPolicy)
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("batch_concurrency must be positive: %d", c.BatchConcurrency)
	}
	return nil
}
