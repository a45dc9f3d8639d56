package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuntimeDefinition describes an externally-configured agent runtime: the
// binary to invoke and the flags used to pass the prompt and model,
// supplementing the three adapters built into internal/supervisor with
// ones an operator can declare without a code change.
type RuntimeDefinition struct {
	Name         string   `yaml:"name"`
	Binary       string   `yaml:"binary"`
	PromptFlag   string   `yaml:"prompt_flag"`
	ModelFlag    string   `yaml:"model_flag"`
	ExtraArgs    []string `yaml:"extra_args"`
	DefaultModel string   `yaml:"default_model"`
}

// LoadRuntimeDefinitions reads a YAML file listing extra runtime adapter
// definitions. A missing path returns an empty slice rather than an
// error, since DefinitionsFile is optional.
func LoadRuntimeDefinitions(path string) ([]RuntimeDefinition, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runtime definitions %s: %w", path, err)
	}

	var doc struct {
		Runtimes []RuntimeDefinition `yaml:"runtimes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse runtime definitions %s: %w", path, err)
	}
	return doc.Runtimes, nil
}
