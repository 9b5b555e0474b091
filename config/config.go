// Package config loads the mock service's configuration: spf13/pflag
// command-line flags bound into a spf13/viper instance, environment
// variables under a MOCKRECON_ prefix, and an optional config-file
// path flag, unmarshaled with mapstructure tags.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Matcher and rater choices.
const (
	MatcherExact       = "exact"
	MatcherAverageHash = "average_hash"

	RaterRandom            = "random"
	RaterPerceptualQuality = "perceptual_quality"
)

// Config holds every tunable the launcher exposes.
type Config struct {
	VWSAddr   string `mapstructure:"vws-addr"`
	VWQAddr   string `mapstructure:"vwq-addr"`
	AdminAddr string `mapstructure:"admin-addr"`

	// DeletionProcessingSeconds and DeletionRecognitionSeconds are the
	// query engine's two deletion-time windows. Both flow through to
	// the query handler; neither is hard-coded anywhere downstream.
	DeletionProcessingSeconds  float64 `mapstructure:"deletion-processing-seconds"`
	DeletionRecognitionSeconds float64 `mapstructure:"deletion-recognition-seconds"`

	Matcher string `mapstructure:"matcher"`
	Rater   string `mapstructure:"rater"`

	LogLevel string `mapstructure:"log-level"`
}

// New parses flags/env/file into a validated Config.
func New(args []string) (*Config, error) {
	v := viper.New()
	fs := pflag.NewFlagSet("mockrecon", pflag.ContinueOnError)

	fs.String("vws-addr", ":8080", "management (VWS) service bind address")
	fs.String("vwq-addr", ":8081", "query (VWQ) service bind address")
	fs.String("admin-addr", ":8082", "administrative store-seam bind address")
	fs.Float64("deletion-processing-seconds", 3.0, "delete-processing window duration, in seconds")
	fs.Float64("deletion-recognition-seconds", 0.2, "recognition window duration, in seconds")
	fs.String("matcher", MatcherAverageHash, "query image matcher: exact or average_hash")
	fs.String("rater", RaterRandom, "target tracking rater: random or perceptual_quality")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("config-file", "", "path to a JSON/YAML config file; can also be set with MOCKRECON_CONFIG_FILE")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("MOCKRECON")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile := v.GetString("config-file"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate enforces a positive delete-processing window, a non-negative
// recognition window and a known matcher/rater choice.
func (c *Config) Validate() error {
	if c.DeletionProcessingSeconds <= 0 {
		return fmt.Errorf("deletion-processing-seconds must be positive, got %v", c.DeletionProcessingSeconds)
	}
	if c.DeletionRecognitionSeconds < 0 {
		return fmt.Errorf("deletion-recognition-seconds must not be negative, got %v", c.DeletionRecognitionSeconds)
	}
	switch c.Matcher {
	case MatcherExact, MatcherAverageHash:
	default:
		return fmt.Errorf("unknown matcher %q, must be %q or %q", c.Matcher, MatcherExact, MatcherAverageHash)
	}
	switch c.Rater {
	case RaterRandom, RaterPerceptualQuality:
	default:
		return fmt.Errorf("unknown rater %q, must be %q or %q", c.Rater, RaterRandom, RaterPerceptualQuality)
	}
	return nil
}
