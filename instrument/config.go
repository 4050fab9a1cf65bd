package instrument

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gnolang/gotoinstr/internal/cover"
	"github.com/gnolang/gotoinstr/internal/restrict"
	tt "github.com/gnolang/gotoinstr/internal/types"
)

// DefaultConfigPath is the configuration file looked up when none is given.
const DefaultConfigPath = ".gotoinstr.yaml"

// Config represents the overall configuration: restriction sources, rule
// severities and the block partitioning strategy.
type Config struct {
	restrict.Options `yaml:",inline"`

	Name   string                   `yaml:"name"`
	Rules  map[string]tt.ConfigRule `yaml:"rules"`
	Blocks BlocksConfig             `yaml:"blocks"`
}

type BlocksConfig struct {
	Variant string `yaml:"variant"`
}

func DefaultConfig() Config {
	return Config{
		Name:   "gotoinstr",
		Rules:  map[string]tt.ConfigRule{},
		Blocks: BlocksConfig{Variant: cover.VariantBasic},
		Options: restrict.Options{
			Inline: []string{},
			ByName: []string{},
			Files:  []string{},
		},
	}
}

// LoadConfig reads the configuration file at path. Missing keys keep their
// default values.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&config); err != nil {
		return config, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}
	if err := cover.CheckVariant(config.Blocks.Variant); err != nil {
		return config, fmt.Errorf("configuration file %s: %w", path, err)
	}
	return config, nil
}

// WriteConfig stores config as YAML at path.
func WriteConfig(path string, config Config) error {
	d, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, d, 0o644)
}

// RestrictOptions returns the restriction sources of the configuration
// followed by extra, typically the ones given on the command line.
func (c Config) RestrictOptions(extra restrict.Options) restrict.Options {
	return restrict.Options{
		Inline: append(append([]string(nil), c.Inline...), extra.Inline...),
		ByName: append(append([]string(nil), c.ByName...), extra.ByName...),
		Files:  append(append([]string(nil), c.Files...), extra.Files...),
	}
}
