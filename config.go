package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AppConfig represents the YAML configuration structure
type AppConfig struct {
	Version string        `yaml:"version"`
	General GeneralConfig `yaml:"general"`
	Output  OutputConfig  `yaml:"output"`
	Filters FilterConfig  `yaml:"filters"`
	Diff    DiffConfig    `yaml:"diff"`
}

// GeneralConfig holds crawl execution settings
type GeneralConfig struct {
	CallTimeout     int    `yaml:"call_timeout"`     // Per-API-call timeout in seconds
	MaxWorkers      int    `yaml:"max_workers"`      // Concurrent (compartment, collector) invocations
	ThrottleRetries int    `yaml:"throttle_retries"` // Retries with backoff for throttled calls
	LogLevel        string `yaml:"log_level"`        // Log level: silent, normal, verbose, debug
	OutputFormat    string `yaml:"output_format"`    // Output format: json, csv, tsv
	Progress        bool   `yaml:"progress"`         // Progress bar display
	AccessLevel     string `yaml:"access_level"`     // Compartment listing access level: accessible, any
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	File string `yaml:"file"` // Output file path (empty = stdout)
}

// Default configuration values
func getDefaultConfig() *AppConfig {
	return &AppConfig{
		Version: "1.0",
		General: GeneralConfig{
			CallTimeout:     60,
			MaxWorkers:      5,
			ThrottleRetries: 3,
			LogLevel:        "normal",
			OutputFormat:    "json",
			Progress:        true,
			AccessLevel:     "accessible",
		},
		Output: OutputConfig{
			File: "", // stdout by default
		},
		Filters: FilterConfig{
			IncludeCompartments: []string{},
			ExcludeCompartments: []string{},
			IncludeCategories:   []string{},
			ExcludeCategories:   []string{},
			NamePattern:         "",
			ExcludeNamePattern:  "",
		},
		Diff: DiffConfig{
			Format:   "json",
			Detailed: false,
		},
	}
}

// Configuration file search paths in priority order
func getConfigPaths() []string {
	paths := []string{}

	// 1. Environment variable
	if configFile := os.Getenv("OCI_INVENTORY_CONFIG_FILE"); configFile != "" {
		paths = append(paths, configFile)
	}

	// 2. Current directory
	paths = append(paths, "./oci-inventory.yaml")

	// 3. Home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".oci-inventory.yaml"))
	}

	// 4. System directory
	paths = append(paths, "/etc/oci-inventory.yaml")

	return paths
}

// LoadConfig loads configuration from YAML file with fallback to defaults
func LoadConfig() (*AppConfig, error) {
	config := getDefaultConfig()

	for _, path := range getConfigPaths() {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
			}
			break // Use first found configuration file
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *AppConfig) error {
	validLogLevels := []string{"silent", "normal", "verbose", "debug"}
	if !contains(validLogLevels, config.General.LogLevel) {
		return fmt.Errorf("invalid log_level '%s', must be one of: %v", config.General.LogLevel, validLogLevels)
	}

	validFormats := []string{"json", "csv", "tsv"}
	if !contains(validFormats, config.General.OutputFormat) {
		return fmt.Errorf("invalid output_format '%s', must be one of: %v", config.General.OutputFormat, validFormats)
	}

	validAccessLevels := []string{"accessible", "any"}
	if !contains(validAccessLevels, config.General.AccessLevel) {
		return fmt.Errorf("invalid access_level '%s', must be one of: %v", config.General.AccessLevel, validAccessLevels)
	}

	if config.General.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout must be positive, got: %d", config.General.CallTimeout)
	}

	if config.General.MaxWorkers <= 0 {
		return fmt.Errorf("max_workers must be positive, got: %d", config.General.MaxWorkers)
	}

	if config.General.ThrottleRetries < 0 {
		return fmt.Errorf("throttle_retries must not be negative, got: %d", config.General.ThrottleRetries)
	}

	return nil
}

// contains checks if a string slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// SaveConfig saves the current configuration to a YAML file
func SaveConfig(config *AppConfig, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

// GenerateDefaultConfigFile creates a default configuration file
func GenerateDefaultConfigFile(filename string) error {
	return SaveConfig(getDefaultConfig(), filename)
}
