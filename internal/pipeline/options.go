package pipeline

import (
	"time"

	"github.com/medlingo/transqa/internal/config"
)

// Level selects how aggressively the pipeline validates.
type Level string

const (
	LevelBasic    Level = "basic"
	LevelStandard Level = "standard"
	LevelStrict   Level = "strict"
	LevelCritical Level = "critical"
)

// Options is the explicit pipeline configuration. Zero values are
// replaced by standard-level defaults in New.
type Options struct {
	Level Level

	// Per-validator enable flags.
	EnableMedicalTerms bool
	EnableNumeric      bool
	EnableFormat       bool
	EnableContextual   bool
	EnableSafety       bool

	// Verdict thresholds.
	MinConfidenceThreshold float64
	MaxErrors              int
	MaxWarnings            int

	// Medical toggles.
	RequireTermPreservation bool
	CheckDrugInteractions   bool
	VerifyDosageAccuracy    bool
	CheckAllergyInfo        bool

	// Performance toggles.
	EnableCache bool
	CacheSize   int
	Parallelism int
	Timeout     time.Duration
}

// DefaultOptions returns the options for a validation level. Unknown
// levels fall back to standard.
func DefaultOptions(level Level) Options {
	o := Options{
		Level:                   LevelStandard,
		EnableMedicalTerms:      true,
		EnableNumeric:           true,
		EnableFormat:            true,
		EnableContextual:        true,
		EnableSafety:            true,
		MinConfidenceThreshold:  0.7,
		MaxErrors:               0,
		MaxWarnings:             3,
		RequireTermPreservation: true,
		VerifyDosageAccuracy:    true,
		CheckAllergyInfo:        true,
		EnableCache:             true,
		CacheSize:               1024,
		Parallelism:             4,
		Timeout:                 30 * time.Second,
	}

	switch level {
	case LevelBasic:
		o.Level = LevelBasic
		o.EnableMedicalTerms = false
		o.EnableContextual = false
		o.EnableSafety = false
		o.RequireTermPreservation = false
		o.MaxWarnings = 5
	case LevelStrict:
		o.Level = LevelStrict
		o.MinConfidenceThreshold = 0.8
		o.MaxWarnings = 1
		o.CheckDrugInteractions = true
	case LevelCritical:
		o.Level = LevelCritical
		o.MinConfidenceThreshold = 0.85
		o.MaxWarnings = 0
		o.CheckDrugInteractions = true
	}
	return o
}

// FromConfig builds Options from the loaded configuration. The level
// supplies defaults; explicit config values override them.
func FromConfig(cfg config.ValidationConfig) Options {
	o := DefaultOptions(Level(cfg.Level))
	o.EnableMedicalTerms = cfg.EnableMedicalTerms
	o.EnableNumeric = cfg.EnableNumeric
	o.EnableFormat = cfg.EnableFormat
	o.EnableContextual = cfg.EnableContextual
	o.EnableSafety = cfg.EnableSafety
	if cfg.MinConfidenceThreshold > 0 {
		o.MinConfidenceThreshold = cfg.MinConfidenceThreshold
	}
	o.MaxErrors = cfg.MaxErrors
	if cfg.MaxWarnings > 0 {
		o.MaxWarnings = cfg.MaxWarnings
	}
	o.RequireTermPreservation = cfg.RequireTermPreservation
	o.CheckDrugInteractions = cfg.CheckDrugInteractions
	o.VerifyDosageAccuracy = cfg.VerifyDosageAccuracy
	o.CheckAllergyInfo = cfg.CheckAllergyInfo
	o.EnableCache = cfg.EnableCache
	if cfg.CacheSize > 0 {
		o.CacheSize = cfg.CacheSize
	}
	if cfg.Parallelism > 0 {
		o.Parallelism = cfg.Parallelism
	}
	if cfg.TimeoutSecs > 0 {
		o.Timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	return o
}
