package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete pipeline configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR"`
	OutputsDir    string `yaml:"outputs_dir" envconfig:"OUTPUTS_DIR"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	InputWorkbook string `yaml:"input_workbook" envconfig:"INPUT_WORKBOOK"`
}

// AnalysisConfig contains statistical analysis parameters.
type AnalysisConfig struct {
	ConfidenceLevel  float64 `yaml:"confidence_level" envconfig:"CONFIDENCE_LEVEL"`
	OutlierThreshold float64 `yaml:"outlier_threshold" envconfig:"OUTLIER_THRESHOLD"`
}

// Load builds the configuration by layering environment variables over an
// optional config.yaml over the built-in defaults.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("NMES", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}
	cfg = mergeConfigs(*Default(), cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Logging.Level == "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if envConfig.Logging.Format == "" {
		envConfig.Logging.Format = fileConfig.Logging.Format
	}
	if envConfig.Logging.Output == "" {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}
	if envConfig.Logging.FilePath == "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if envConfig.Paths.DataDir == "" {
		envConfig.Paths.DataDir = fileConfig.Paths.DataDir
	}
	if envConfig.Paths.OutputsDir == "" {
		envConfig.Paths.OutputsDir = fileConfig.Paths.OutputsDir
	}
	if envConfig.Paths.LogsDir == "" {
		envConfig.Paths.LogsDir = fileConfig.Paths.LogsDir
	}
	if envConfig.Paths.InputWorkbook == "" {
		envConfig.Paths.InputWorkbook = fileConfig.Paths.InputWorkbook
	}
	if envConfig.Analysis.ConfidenceLevel == 0 {
		envConfig.Analysis.ConfidenceLevel = fileConfig.Analysis.ConfidenceLevel
	}
	if envConfig.Analysis.OutlierThreshold == 0 {
		envConfig.Analysis.OutlierThreshold = fileConfig.Analysis.OutlierThreshold
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Analysis.ConfidenceLevel <= 0 || c.Analysis.ConfidenceLevel >= 1 {
		return fmt.Errorf("confidence level must be in (0, 1): %f", c.Analysis.ConfidenceLevel)
	}

	if c.Analysis.OutlierThreshold <= 0 {
		return fmt.Errorf("outlier threshold must be positive: %f", c.Analysis.OutlierThreshold)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	if c.Logging.Output != "console" && c.Logging.Output != "file" && c.Logging.Output != "both" {
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/analysis.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/analysis.log",
		},
		Paths: PathsConfig{
			DataDir:       "data",
			OutputsDir:    "outputs",
			LogsDir:       "logs",
			InputWorkbook: "NMES.xlsx",
		},
		Analysis: AnalysisConfig{
			ConfidenceLevel:  0.95,
			OutlierThreshold: 2.5,
		},
	}
}
