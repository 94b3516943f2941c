package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	AI       AIConfig       `yaml:"ai" mapstructure:"ai"`
	Tasks    TasksConfig    `yaml:"tasks" mapstructure:"tasks"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// AIConfig holds completion-service settings.
type AIConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Model          string  `yaml:"model" mapstructure:"model"`
	MaxTokens      int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	ModelMaxTokens int     `yaml:"model_max_tokens" mapstructure:"model_max_tokens"`
	Temperature    float64 `yaml:"temperature" mapstructure:"temperature"`
	// Mock forces the deterministic offline responses even when a key is set.
	Mock bool `yaml:"mock" mapstructure:"mock"`
}

// TasksConfig locates the per-stage task definition files.
type TasksConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// PipelineConfig holds the tunable thresholds of the analysis pipeline.
// The risk-policy numbers are configuration, not fixed law.
type PipelineConfig struct {
	QualityScoreThreshold float64 `yaml:"quality_score_threshold" mapstructure:"quality_score_threshold"`
	MinRiskScore          float64 `yaml:"min_risk_score" mapstructure:"min_risk_score"`
	ChunkConcurrency      int     `yaml:"chunk_concurrency" mapstructure:"chunk_concurrency"`
	BatchPacingMillis     int     `yaml:"batch_pacing_millis" mapstructure:"batch_pacing_millis"`
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
	v.SetEnvPrefix("SEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o")
	v.SetDefault("ai.max_tokens", 4000)
	v.SetDefault("ai.model_max_tokens", 8192)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("tasks.dir", "agent_tasks")
	v.SetDefault("pipeline.quality_score_threshold", 70.0)
	v.SetDefault("pipeline.min_risk_score", 50.0)
	v.SetDefault("pipeline.chunk_concurrency", 2)
	v.SetDefault("pipeline.batch_pacing_millis", 1000)

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
