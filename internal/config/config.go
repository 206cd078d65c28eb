// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
)

// Config holds the full application configuration.
type Config struct {
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Translator    TranslatorConfig    `yaml:"translator" mapstructure:"translator"`
	Validation    ValidationConfig    `yaml:"validation" mapstructure:"validation"`
	Confidence    ConfidenceConfig    `yaml:"confidence" mapstructure:"confidence"`
	BackTranslate BackTranslateConfig `yaml:"backtranslate" mapstructure:"backtranslate"`
	Review        ReviewConfig        `yaml:"review" mapstructure:"review"`
	Alerting      AlertingConfig      `yaml:"alerting" mapstructure:"alerting"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Batch         BatchConfig         `yaml:"batch" mapstructure:"batch"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// TranslatorConfig configures the translation backend client.
type TranslatorConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Key            string  `yaml:"key" mapstructure:"key"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// ValidationConfig configures the validation pipeline.
type ValidationConfig struct {
	Level                   string  `yaml:"level" mapstructure:"level"`
	MinConfidenceThreshold  float64 `yaml:"min_confidence_threshold" mapstructure:"min_confidence_threshold"`
	MaxErrors               int     `yaml:"max_errors" mapstructure:"max_errors"`
	MaxWarnings             int     `yaml:"max_warnings" mapstructure:"max_warnings"`
	EnableMedicalTerms      bool    `yaml:"enable_medical_terms" mapstructure:"enable_medical_terms"`
	EnableNumeric           bool    `yaml:"enable_numeric" mapstructure:"enable_numeric"`
	EnableFormat            bool    `yaml:"enable_format" mapstructure:"enable_format"`
	EnableContextual        bool    `yaml:"enable_contextual" mapstructure:"enable_contextual"`
	EnableSafety            bool    `yaml:"enable_safety" mapstructure:"enable_safety"`
	RequireTermPreservation bool    `yaml:"require_term_preservation" mapstructure:"require_term_preservation"`
	CheckDrugInteractions   bool    `yaml:"check_drug_interactions" mapstructure:"check_drug_interactions"`
	VerifyDosageAccuracy    bool    `yaml:"verify_dosage_accuracy" mapstructure:"verify_dosage_accuracy"`
	CheckAllergyInfo        bool    `yaml:"check_allergy_info" mapstructure:"check_allergy_info"`
	EnableCache             bool    `yaml:"enable_cache" mapstructure:"enable_cache"`
	CacheSize               int     `yaml:"cache_size" mapstructure:"cache_size"`
	Parallelism             int     `yaml:"parallelism" mapstructure:"parallelism"`
	TimeoutSecs             int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ConfidenceConfig configures the confidence scorer.
type ConfidenceConfig struct {
	DecayFactor            float64 `yaml:"decay_factor" mapstructure:"decay_factor"`
	MinHistoryForLearning  int     `yaml:"min_history_for_learning" mapstructure:"min_history_for_learning"`
	HumanReviewThreshold   float64 `yaml:"human_review_threshold" mapstructure:"human_review_threshold"`
	LearningEnabled        bool    `yaml:"learning_enabled" mapstructure:"learning_enabled"`
	CacheSize              int     `yaml:"cache_size" mapstructure:"cache_size"`
	HistoryWindow          int     `yaml:"history_window" mapstructure:"history_window"`
	UncertaintyMarkerLimit int     `yaml:"uncertainty_marker_limit" mapstructure:"uncertainty_marker_limit"`
}

// BackTranslateConfig configures the back-translation checker.
type BackTranslateConfig struct {
	Method             string  `yaml:"method" mapstructure:"method"`
	PivotLang          string  `yaml:"pivot_lang" mapstructure:"pivot_lang"`
	EnsembleSize       int     `yaml:"ensemble_size" mapstructure:"ensemble_size"`
	Voting             string  `yaml:"voting" mapstructure:"voting"`
	MaxIterations      int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	AttemptTimeoutSecs int     `yaml:"attempt_timeout_secs" mapstructure:"attempt_timeout_secs"`
	MaxRetries         int     `yaml:"max_retries" mapstructure:"max_retries"`
	LengthTolerance    float64 `yaml:"length_tolerance" mapstructure:"length_tolerance"`
	MinConfidence      float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
}

// ReviewConfig configures the human-in-the-loop router.
type ReviewConfig struct {
	QueueCapacity             int     `yaml:"queue_capacity" mapstructure:"queue_capacity"`
	ReviewTimeoutHours        int     `yaml:"review_timeout_hours" mapstructure:"review_timeout_hours"`
	AutoAssign                bool    `yaml:"auto_assign" mapstructure:"auto_assign"`
	AutoReviewThreshold       float64 `yaml:"auto_review_threshold" mapstructure:"auto_review_threshold"`
	MinReviewsForLearning     int     `yaml:"min_reviews_for_learning" mapstructure:"min_reviews_for_learning"`
	SweepIntervalSecs         int     `yaml:"sweep_interval_secs" mapstructure:"sweep_interval_secs"`
	SourceSimilarityGate      float64 `yaml:"source_similarity_gate" mapstructure:"source_similarity_gate"`
	TranslationSimilarityGate float64 `yaml:"translation_similarity_gate" mapstructure:"translation_similarity_gate"`
}

// ReviewTimeout returns the configured review deadline duration.
func (c ReviewConfig) ReviewTimeout() time.Duration {
	return time.Duration(c.ReviewTimeoutHours) * time.Hour
}

// AlertingConfig configures the threshold alert manager.
type AlertingConfig struct {
	ThresholdFile           string `yaml:"threshold_file" mapstructure:"threshold_file"`
	CheckIntervalSecs       int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	WindowMinutes           int    `yaml:"window_minutes" mapstructure:"window_minutes"`
	HistoryLimit            int    `yaml:"history_limit" mapstructure:"history_limit"`
	WebhookURL              string `yaml:"webhook_url" mapstructure:"webhook_url"`
	AutoResolveGraceMinutes int    `yaml:"auto_resolve_grace_minutes" mapstructure:"auto_resolve_grace_minutes"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// BatchConfig configures batch validation.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRANSQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "file:transqa.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent", 8)
	v.SetDefault("translator.timeout_secs", 30)
	v.SetDefault("translator.requests_per_sec", 5)
	v.SetDefault("validation.level", "standard")
	v.SetDefault("validation.min_confidence_threshold", 0.7)
	v.SetDefault("validation.max_errors", 0)
	v.SetDefault("validation.max_warnings", 3)
	v.SetDefault("validation.enable_medical_terms", true)
	v.SetDefault("validation.enable_numeric", true)
	v.SetDefault("validation.enable_format", true)
	v.SetDefault("validation.enable_contextual", true)
	v.SetDefault("validation.enable_safety", true)
	v.SetDefault("validation.require_term_preservation", true)
	v.SetDefault("validation.verify_dosage_accuracy", true)
	v.SetDefault("validation.check_allergy_info", true)
	v.SetDefault("validation.enable_cache", true)
	v.SetDefault("validation.cache_size", 1024)
	v.SetDefault("validation.parallelism", 4)
	v.SetDefault("validation.timeout_secs", 30)
	v.SetDefault("confidence.decay_factor", 0.95)
	v.SetDefault("confidence.min_history_for_learning", 5)
	v.SetDefault("confidence.human_review_threshold", 0.75)
	v.SetDefault("confidence.learning_enabled", true)
	v.SetDefault("confidence.cache_size", 1024)
	v.SetDefault("confidence.history_window", 20)
	v.SetDefault("confidence.uncertainty_marker_limit", 3)
	v.SetDefault("backtranslate.method", "direct")
	v.SetDefault("backtranslate.ensemble_size", 3)
	v.SetDefault("backtranslate.voting", "weighted")
	v.SetDefault("backtranslate.max_iterations", 3)
	v.SetDefault("backtranslate.attempt_timeout_secs", 20)
	v.SetDefault("backtranslate.max_retries", 2)
	v.SetDefault("backtranslate.length_tolerance", 0.3)
	v.SetDefault("backtranslate.min_confidence", 0.7)
	v.SetDefault("review.queue_capacity", 1000)
	v.SetDefault("review.review_timeout_hours", 24)
	v.SetDefault("review.auto_assign", true)
	v.SetDefault("review.auto_review_threshold", 0.75)
	v.SetDefault("review.min_reviews_for_learning", 3)
	v.SetDefault("review.sweep_interval_secs", 60)
	v.SetDefault("review.source_similarity_gate", 0.9)
	v.SetDefault("review.translation_similarity_gate", 0.8)
	v.SetDefault("alerting.check_interval_secs", 60)
	v.SetDefault("alerting.window_minutes", 15)
	v.SetDefault("alerting.history_limit", 1000)
	v.SetDefault("alerting.auto_resolve_grace_minutes", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// NormalizeLang canonicalizes a language code ("EN", "es-MX") to its
// base form ("en", "es").
func NormalizeLang(code string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return "", eris.Wrapf(err, "config: parse language %q", code)
	}
	base, _ := tag.Base()
	return base.String(), nil
}
