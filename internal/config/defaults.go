package config

// DefaultImageExtensions is the set of indexable image file extensions.
var DefaultImageExtensions = []string{".jpg", ".jpeg", ".png"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Dataset.ImageRoot == "" {
		cfg.Dataset.ImageRoot = "./art_dataset"
	}
	if cfg.Dataset.BlocksDir == "" {
		cfg.Dataset.BlocksDir = "./clip_blocks_output"
	}
	if cfg.Dataset.BlockSize == 0 {
		cfg.Dataset.BlockSize = 1000
	}
	if cfg.Dataset.Extensions == nil {
		cfg.Dataset.Extensions = DefaultImageExtensions
	}
	if cfg.Collection.Path == "" {
		cfg.Collection.Path = "./data/collection"
	}
	if cfg.Collection.Name == "" {
		cfg.Collection.Name = "art_collection"
	}
	if cfg.Collection.BleveIndexPath == "" {
		cfg.Collection.BleveIndexPath = "./data/indices/bleve"
	}
	if cfg.Encoder.TextModelPath == "" {
		cfg.Encoder.TextModelPath = "./data/models/clip_text.onnx"
	}
	if cfg.Encoder.VisualModelPath == "" {
		cfg.Encoder.VisualModelPath = "./data/models/clip_visual.onnx"
	}
	if cfg.Encoder.Dimensions == 0 {
		cfg.Encoder.Dimensions = 512
	}
	if cfg.Encoder.MaxTokens == 0 {
		cfg.Encoder.MaxTokens = 77
	}
	if cfg.Encoder.CacheSize == 0 {
		cfg.Encoder.CacheSize = 1000
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "google/gemini-flash-1.5"
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "OPENROUTER_API_KEY"
	}
	if cfg.Generation.TimeoutSec == 0 {
		cfg.Generation.TimeoutSec = 30
	}
	if cfg.Engine.TopK == 0 {
		cfg.Engine.TopK = 5
	}
	if cfg.Engine.RecipeMaxKeywords == 0 {
		cfg.Engine.RecipeMaxKeywords = 7
	}
}
