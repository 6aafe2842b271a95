package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
dataset:
  image_root: /tmp/art
  block_size: 64
engine:
  top_k: 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.Dataset.ImageRoot != "/tmp/art" {
		t.Errorf("ImageRoot = %q", cfg.Dataset.ImageRoot)
	}
	if cfg.Dataset.BlockSize != 64 {
		t.Errorf("BlockSize = %d", cfg.Dataset.BlockSize)
	}
	if cfg.Engine.TopK != 3 {
		t.Errorf("TopK = %d", cfg.Engine.TopK)
	}
	// Defaults for everything unset.
	if cfg.Encoder.Dimensions != 512 {
		t.Errorf("Dimensions default = %d, want 512", cfg.Encoder.Dimensions)
	}
	if cfg.Engine.RecipeMaxKeywords != 7 {
		t.Errorf("RecipeMaxKeywords default = %d, want 7", cfg.Engine.RecipeMaxKeywords)
	}
	if cfg.Collection.Name != "art_collection" {
		t.Errorf("Collection.Name default = %q", cfg.Collection.Name)
	}
	if cfg.Generation.APIKeyEnv != "OPENROUTER_API_KEY" {
		t.Errorf("APIKeyEnv default = %q", cfg.Generation.APIKeyEnv)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("dataset: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("NAGOMI_TEST_DIR", "/var/data")
	if got := ExpandPath("$NAGOMI_TEST_DIR/blocks"); got != "/var/data/blocks" {
		t.Errorf("ExpandPath = %q", got)
	}
	if got := ExpandPath(""); got != "" {
		t.Errorf("ExpandPath empty = %q", got)
	}
}
