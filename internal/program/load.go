package program

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a model from a YAML or JSON file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", path, err)
	}
	return m, nil
}

// Decode parses a model. JSON input is accepted since it is valid YAML.
func Decode(data []byte) (*Model, error) {
	m := NewModel()
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, err
	}
	if m.Symbols == nil {
		m.Symbols = SymbolTable{}
	}
	if m.Functions == nil {
		m.Functions = map[string]*Program{}
	}
	for name, sym := range m.Symbols {
		if sym == nil {
			return nil, fmt.Errorf("symbol %q has no definition", name)
		}
		sym.Name = name
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Save writes the model as JSON when path ends in .json and as YAML otherwise.
func Save(path string, m *Model) error {
	var (
		data []byte
		err  error
	)
	if filepath.Ext(path) == ".json" {
		data, err = json.MarshalIndent(m, "", "  ")
	} else {
		data, err = yaml.Marshal(m)
	}
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	return nil
}
