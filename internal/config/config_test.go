package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if cfg.Overlay.Color != "red" || cfg.Overlay.Stroke != 1 {
		t.Errorf("Unexpected overlay defaults %+v", cfg.Overlay)
	}
}

func TestLoadFromFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotate.toml")
	data := `
[overlay]
color = "#00ff00"
labels = true

[output]
format = "webp"
lossless = true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Overlay.Color != "#00ff00" || !cfg.Overlay.Labels {
		t.Errorf("Unexpected overlay %+v", cfg.Overlay)
	}
	if cfg.Overlay.Stroke != 1 {
		t.Errorf("Expected default stroke kept, got %d", cfg.Overlay.Stroke)
	}
	if cfg.Output.Format != "webp" || !cfg.Output.Lossless || cfg.Output.Quality != 90 {
		t.Errorf("Unexpected output %+v", cfg.Output)
	}

	opts := cfg.OutputOptions()
	if opts.Extension != "webp" || opts.Suffix != "_annotated" {
		t.Errorf("Unexpected output options %+v", opts)
	}
	if style := cfg.Style(); style.Color != "#00ff00" || !style.Labels {
		t.Errorf("Unexpected style %+v", style)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFromFile(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("Expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[overlay\ncolor="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("Expected parse error")
	}

	unknown := filepath.Join(dir, "unknown.toml")
	if err := os.WriteFile(unknown, []byte("[overlay]\ncolour = \"red\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFromFile(unknown)
	if err == nil || !strings.Contains(err.Error(), "overlay.colour") {
		t.Errorf("Expected unknown key error, got %v", err)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "annotate.toml")
	cfg := Default()
	cfg.Overlay.Stroke = 3
	cfg.Viewer.Interactive = true
	cfg.Viewer.Command = "feh"

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Overlay.Stroke != 3 || !loaded.Viewer.Interactive || loaded.Viewer.Command != "feh" {
		t.Errorf("Round trip lost values: %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Overlay.Color = "chartreuse-ish" },
		func(c *Config) { c.Overlay.LabelColor = "#zzz" },
		func(c *Config) { c.Overlay.Stroke = 0 },
		func(c *Config) { c.Output.Format = "gif" },
		func(c *Config) { c.Output.Quality = 101 },
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
