package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/menta2k/devtools/internal/utils"
	"github.com/menta2k/devtools/pkg/processing"
	"github.com/menta2k/devtools/pkg/types"
)

// Config holds the annotate tool configuration
type Config struct {
	Overlay OverlayConfig `toml:"overlay"`
	Output  OutputConfig  `toml:"output"`
	Viewer  ViewerConfig  `toml:"viewer"`
}

// OverlayConfig holds the outline style
type OverlayConfig struct {
	Color      string `toml:"color"`
	Stroke     int    `toml:"stroke"`
	Labels     bool   `toml:"labels"`
	LabelColor string `toml:"label_color"`
}

// OutputConfig holds configuration for artifact generation
type OutputConfig struct {
	Format   string `toml:"format"`
	Dir      string `toml:"dir"`
	Suffix   string `toml:"suffix"`
	Quality  int    `toml:"quality"`
	Lossless bool   `toml:"lossless"`
}

// ViewerConfig selects interactive display
type ViewerConfig struct {
	Interactive bool   `toml:"interactive"`
	Command     string `toml:"command"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Overlay: OverlayConfig{
			Color:  processing.DefaultColor,
			Stroke: 1,
		},
		Output: OutputConfig{
			Format:  "png",
			Dir:     "./output",
			Suffix:  "_annotated",
			Quality: 90,
		},
	}
}

// LoadFromFile loads configuration from a TOML file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(filename, cfg)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", filename, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config parse failed (%s): unknown keys %s", filename, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// SaveToFile saves configuration to a TOML file
func (c *Config) SaveToFile(filename string) error {
	if err := utils.EnsureDir(filepath.Dir(filename)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := processing.ParseColor(c.Overlay.Color); err != nil {
		return fmt.Errorf("overlay.color: %w", err)
	}
	if c.Overlay.LabelColor != "" {
		if _, err := processing.ParseColor(c.Overlay.LabelColor); err != nil {
			return fmt.Errorf("overlay.label_color: %w", err)
		}
	}
	if c.Overlay.Stroke < 1 || c.Overlay.Stroke > 50 {
		return fmt.Errorf("overlay.stroke must be between 1 and 50")
	}
	if !utils.IsOutputFormat(c.Output.Format) {
		return fmt.Errorf("output.format must be one of png, jpg, webp")
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}
	return nil
}

// Style returns the overlay section as a drawing style
func (c *Config) Style() types.Style {
	return types.Style{
		Color:      c.Overlay.Color,
		Stroke:     c.Overlay.Stroke,
		Labels:     c.Overlay.Labels,
		LabelColor: c.Overlay.LabelColor,
	}
}

// OutputOptions returns the output section as artifact options
func (c *Config) OutputOptions() types.OutputOptions {
	return types.OutputOptions{
		Dir:       c.Output.Dir,
		Suffix:    c.Output.Suffix,
		Extension: strings.ToLower(c.Output.Format),
		Quality:   c.Output.Quality,
		Lossless:  c.Output.Lossless,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./annotate.toml"
	}
	return filepath.Join(home, ".config", "devtools", "annotate.toml")
}
