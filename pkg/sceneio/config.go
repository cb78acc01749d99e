package sceneio

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the render-manager tunables spec.md §6 names as config-file
// material: worker count, dump cadence, the sample target, and the
// default output mode a scene's own outputMode can still override.
// Built-in defaults are the zero value struct fields ConfigDefaults fills
// in; a loaded config layers over those, and CLI flags layer over both.
type Config struct {
	Threads       int    `yaml:"threads"`
	DumpFrequency uint32 `yaml:"dump_frequency"`
	SPPTarget     uint32 `yaml:"spp_target"`
	OutputMode    string `yaml:"output_mode"`
	CatalogPath   string `yaml:"catalog_path"`
}

// ConfigDefaults returns the built-in tunables used when neither a config
// file nor a flag supplies a value. Threads of 0 tells the render manager
// to default to runtime.NumCPU().
func ConfigDefaults() Config {
	return Config{
		Threads:       0,
		DumpFrequency: 64,
		SPPTarget:     0,
		OutputMode:    string(OutputPNG),
		CatalogPath:   ".voxtrace-catalog.sqlite",
	}
}

// LoadConfig reads a YAML tunables file, starting from the built-in
// defaults so a config that only sets one field leaves the rest intact.
func LoadConfig(path string) (Config, error) {
	cfg := ConfigDefaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("sceneio: parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Override layers non-zero fields of flags onto cfg, implementing
// spec.md §6's "flags always override the config file" precedence. A
// zero value in flags (the flag package's un-set default) means "not
// specified" and leaves cfg's value alone.
func (cfg Config) Override(flags Config) Config {
	out := cfg
	if flags.Threads != 0 {
		out.Threads = flags.Threads
	}
	if flags.DumpFrequency != 0 {
		out.DumpFrequency = flags.DumpFrequency
	}
	if flags.SPPTarget != 0 {
		out.SPPTarget = flags.SPPTarget
	}
	if flags.OutputMode != "" {
		out.OutputMode = flags.OutputMode
	}
	if flags.CatalogPath != "" {
		out.CatalogPath = flags.CatalogPath
	}
	return out
}
