package giphy

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix of environment variables read by the LoadConfig, for example GIPHY_API_KEY.
const EnvPrefix = "GIPHY"

// Config of the API client.
type Config struct {
	APIKey            string `mapstructure:"api_key" validate:"required"`
	BaseURL           string `mapstructure:"base_url" validate:"required,url"`
	Rating            string `mapstructure:"rating" validate:"omitempty,oneof=g pg pg-13 r"`
	Lang              string `mapstructure:"lang" validate:"omitempty,min=2,max=5"`
	RandomConcurrency int64  `mapstructure:"random_concurrency" validate:"min=1,max=50"`
	// ArchiveURL is a gocloud bucket URL used by the archive package, for example "s3://my-bucket?region=us-east-1".
	ArchiveURL string `mapstructure:"archive_url" validate:"omitempty,url"`
}

// DefaultConfig returns the Config with default values, the APIKey is empty.
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		Rating:            RatingG,
		RandomConcurrency: DefaultRandomConcurrency,
	}
}

// Validate checks all fields of the Config.
func (c Config) Validate() error {
	return validate("config", c)
}

// LoadConfig loads the Config, sources in increasing precedence:
//  1. DefaultConfig,
//  2. the .env files, a later file wins,
//  3. environment variables with the EnvPrefix.
//
// Keys in the .env files may be with or without the EnvPrefix, for example GIPHY_API_KEY or API_KEY.
func LoadConfig(envFiles ...string) (Config, error) {
	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("api_key", defaults.APIKey)
	v.SetDefault("base_url", defaults.BaseURL)
	v.SetDefault("rating", defaults.Rating)
	v.SetDefault("lang", defaults.Lang)
	v.SetDefault("random_concurrency", defaults.RandomConcurrency)
	v.SetDefault("archive_url", defaults.ArchiveURL)

	// Env files
	for _, file := range envFiles {
		values, err := godotenv.Read(file)
		if err != nil {
			return Config{}, fmt.Errorf(`cannot read env file "%s": %w`, file, err)
		}
		fileConfig := make(map[string]any, len(values))
		for key, value := range values {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix+"_"))
			fileConfig[key] = value
		}
		if err := v.MergeConfigMap(fileConfig); err != nil {
			return Config{}, fmt.Errorf(`cannot merge env file "%s": %w`, file, err)
		}
	}

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("cannot unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
