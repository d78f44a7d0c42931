package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Detector DetectorConfig `json:"detector"`
	Vision   VisionConfig   `json:"vision"`
	Pipeline PipelineConfig `json:"pipeline"`
	Services ServicesConfig `json:"services"`
	Database DatabaseConfig `json:"database"`
}

// DetectorConfig holds configuration for the object detector service
type DetectorConfig struct {
	URL        string  `json:"url"`
	Confidence float64 `json:"confidence"`
}

// VisionConfig holds configuration for the vision-model backend
type VisionConfig struct {
	Backend     string `json:"backend"` // ollama or llamacpp
	URL         string `json:"url"`
	Model       string `json:"model"`
	SendFormat  string `json:"send_format"`
	SendMaxDim  int    `json:"send_max_dim"`
	SendQuality int    `json:"send_quality"`
	// SkipResaleFilter keeps every detected label and defers resellability
	// to the recognition stage.
	SkipResaleFilter bool `json:"skip_resale_filter"`
}

// PipelineConfig holds the batch processing policy
type PipelineConfig struct {
	CropDir         string   `json:"crop_dir"`
	CropBorderRatio float64  `json:"crop_border_ratio"`
	MaxItems        int      `json:"max_items"`
	Platforms       []string `json:"platforms"`
	Condition       string   `json:"condition"`
	ReportPath      string   `json:"report_path"`
	Debug           bool     `json:"debug"`
}

// ServicesConfig holds the addresses of the downstream APIs
type ServicesConfig struct {
	ScraperURL string `json:"scraper_url"`
	ListingURL string `json:"listing_url"`
}

// DatabaseConfig holds the optional Postgres connection. An empty URL
// disables persistence.
type DatabaseConfig struct {
	URL string `json:"url"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			URL:        "http://localhost:8000/detect",
			Confidence: 0.25,
		},
		Vision: VisionConfig{
			Backend:     "ollama",
			URL:         "http://localhost:11434",
			Model:       "llava:13b",
			SendFormat:  "jpg",
			SendMaxDim:  1536,
			SendQuality: 85,
		},
		Pipeline: PipelineConfig{
			CropDir:         "cropped_resellables",
			CropBorderRatio: 0.3,
			MaxItems:        6,
			Platforms:       []string{"facebook", "ebay"},
			Condition:       "used",
			ReportPath:      "analysis_report_resellables.txt",
		},
		Services: ServicesConfig{
			ScraperURL: "http://localhost:5000",
			ListingURL: "http://localhost:5000",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays environment variables onto the configuration. The
// variables mirror the original deployment's .env keys.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DETECTOR_URL"); v != "" {
		c.Detector.URL = v
	}
	if v := os.Getenv("VISION_URL"); v != "" {
		c.Vision.URL = v
	}
	if v := os.Getenv("VISION_MODEL"); v != "" {
		c.Vision.Model = v
	}
	if v := os.Getenv("SCRAPER_URL"); v != "" {
		c.Services.ScraperURL = v
	}
	if v := os.Getenv("LISTING_URL"); v != "" {
		c.Services.ListingURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Detector.URL == "" {
		return fmt.Errorf("detector.url cannot be empty")
	}

	if c.Detector.Confidence < 0 || c.Detector.Confidence > 1 {
		return fmt.Errorf("detector.confidence must be between 0 and 1")
	}

	if c.Vision.Backend != "ollama" && c.Vision.Backend != "llamacpp" {
		return fmt.Errorf("vision.backend must be ollama or llamacpp")
	}

	if c.Pipeline.CropBorderRatio < 0 || c.Pipeline.CropBorderRatio > 1 {
		return fmt.Errorf("pipeline.crop_border_ratio must be between 0 and 1")
	}

	if c.Pipeline.MaxItems < 1 {
		return fmt.Errorf("pipeline.max_items must be positive")
	}

	if len(c.Pipeline.Platforms) == 0 {
		return fmt.Errorf("pipeline.platforms cannot be empty")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "declutter", "config.json")
}
