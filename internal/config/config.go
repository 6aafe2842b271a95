// Package config provides configuration loading and structs for Nagomi.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Collection CollectionConfig `yaml:"collection"`
	Encoder    EncoderConfig    `yaml:"encoder"`
	Generation GenerationConfig `yaml:"generation"`
	Engine     EngineConfig     `yaml:"engine"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatasetConfig holds the image dataset and block output locations.
type DatasetConfig struct {
	ImageRoot  string `yaml:"image_root"`
	BlocksDir  string `yaml:"blocks_dir"`
	BlockSize  int    `yaml:"block_size"`
	Watch      bool   `yaml:"watch"`
	Extensions []string `yaml:"extensions"`
}

// CollectionConfig holds the vector collection and keyword index locations.
type CollectionConfig struct {
	Path           string `yaml:"path"`
	Name           string `yaml:"name"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// EncoderConfig holds CLIP ONNX encoder settings.
type EncoderConfig struct {
	TextModelPath   string `yaml:"text_model_path"`
	VisualModelPath string `yaml:"visual_model_path"`
	Dimensions      int    `yaml:"dimensions"`
	MaxTokens       int    `yaml:"max_tokens"`
	CacheSize       int    `yaml:"cache_size"`
}

// GenerationConfig holds text-generation (LLM) settings. The API key is read
// from the environment variable named by APIKeyEnv, never from the file.
type GenerationConfig struct {
	Model      string `yaml:"model"`
	APIKeyEnv  string `yaml:"api_key_env"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// EngineConfig holds retrieval settings.
type EngineConfig struct {
	TopK              int `yaml:"top_k"`
	RecipeMaxKeywords int `yaml:"recipe_max_keywords"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	cfg.Dataset.ImageRoot = ExpandPath(cfg.Dataset.ImageRoot)
	cfg.Dataset.BlocksDir = ExpandPath(cfg.Dataset.BlocksDir)
	cfg.Collection.Path = ExpandPath(cfg.Collection.Path)
	cfg.Collection.BleveIndexPath = ExpandPath(cfg.Collection.BleveIndexPath)
	cfg.Encoder.TextModelPath = ExpandPath(cfg.Encoder.TextModelPath)
	cfg.Encoder.VisualModelPath = ExpandPath(cfg.Encoder.VisualModelPath)
	return &cfg, nil
}

// ExpandPath expands a leading ~ and environment variables in path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return os.ExpandEnv(path)
}
