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
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Slack   SlackConfig   `yaml:"slack" mapstructure:"slack"`
	HubSpot HubSpotConfig `yaml:"hubspot" mapstructure:"hubspot"`
	Oracle  OracleConfig  `yaml:"oracle" mapstructure:"oracle"`
	Dedup   DedupConfig   `yaml:"dedup" mapstructure:"dedup"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SlackConfig holds Slack API credentials and inbound-event filtering.
type SlackConfig struct {
	Token string `yaml:"token" mapstructure:"token"`

	// NotifyUser receives a DM summary for each qualified lead.
	NotifyUser string `yaml:"notify_user" mapstructure:"notify_user"`

	// AllowedChannels, when non-empty, restricts processing to events
	// originating from the listed channel IDs.
	AllowedChannels []string `yaml:"allowed_channels" mapstructure:"allowed_channels"`

	// LeadPhrases, when non-empty, requires the message text to contain one
	// of these phrases before a lead is extracted.
	LeadPhrases []string `yaml:"lead_phrases" mapstructure:"lead_phrases"`
}

// HubSpotConfig holds HubSpot CRM API settings.
type HubSpotConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OracleConfig configures the qualification oracle.
type OracleConfig struct {
	// Strategy selects the oracle engine: "marker" (GLM chat completions
	// with end-marker output) or "structured" (Anthropic with strict JSON).
	Strategy string `yaml:"strategy" mapstructure:"strategy"`

	// DoubleVerify issues every qualification twice and requires the two
	// verdicts to agree; disagreement forces a negative outcome.
	DoubleVerify bool `yaml:"double_verify" mapstructure:"double_verify"`

	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`

	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	GLM       GLMConfig       `yaml:"glm" mapstructure:"glm"`
}

// AnthropicConfig holds Anthropic API settings for the structured strategy.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// GLMConfig holds GLM (OpenAI-compatible) API settings for the marker strategy.
type GLMConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// DedupConfig configures duplicate suppression.
type DedupConfig struct {
	WindowSecs int `yaml:"window_secs" mapstructure:"window_secs"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("QUALIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("hubspot.base_url", "https://api.hubapi.com")
	v.SetDefault("oracle.strategy", "marker")
	v.SetDefault("oracle.double_verify", true)
	v.SetDefault("oracle.timeout_secs", 180)
	v.SetDefault("oracle.max_attempts", 3)
	v.SetDefault("oracle.anthropic.base_url", "https://api.anthropic.com")
	v.SetDefault("oracle.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("oracle.glm.base_url", "https://api.z.ai/api/coding/paas/v4")
	v.SetDefault("oracle.glm.model", "glm-4.7")
	v.SetDefault("dedup.window_secs", 300)

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
