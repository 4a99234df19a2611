// Package config loads the optional TOML configuration file shared by
// the cmd/ host binaries. The library core itself takes no configuration
// of its own; every setting here is host/CLI concern.
package config

import "github.com/BurntSushi/toml"

// Config is the host binaries' shared settings file. Every field has a
// usable zero value so an absent --config flag is not an error.
type Config struct {
	AssetDir string       `toml:"asset_dir"`
	Debug    DebugConfig  `toml:"debug"`
	Export   ExportConfig `toml:"export"`
}

// DebugConfig controls the optional debugserver HTTP endpoint.
type DebugConfig struct {
	Listen string `toml:"listen"`
}

// ExportConfig controls flashbackdump's PNG export behaviour.
type ExportConfig struct {
	Scale     int    `toml:"scale"`
	OutputDir string `toml:"output_dir"`
}

// Load reads a TOML config from path. An empty path returns the default
// Config (export scale 1, output dir ".") rather than an error, since
// every host command is expected to run with sensible defaults and no
// file at all.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{Export: ExportConfig{Scale: 1, OutputDir: "."}}, nil
	}
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Export.Scale == 0 {
		cfg.Export.Scale = 1
	}
	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = "."
	}
	return &cfg, nil
}
