package vault

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Policy carries per-identifier tokenization defaults, applied when a
// creation request leaves type or method empty.
type Policy struct {
	Identifier string `yaml:"identifier" json:"identifier"`
	Type       string `yaml:"type" json:"type"`
	Method     string `yaml:"method" json:"method"`
}

type PolicyConfig struct {
	Policies []Policy `yaml:"policies" json:"policies"`
}

// LoadPolicies reads an identifier policy file. An empty path means no
// per-identifier overrides; the global defaults (STRING, FORMAT_PRESERVING)
// still apply.
func LoadPolicies(path string) (PolicyConfig, error) {
	if path == "" {
		return PolicyConfig{}, nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return PolicyConfig{}, err
	}

	var cfg PolicyConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return PolicyConfig{}, err
	}

	for _, p := range cfg.Policies {
		if p.Identifier == "" {
			return PolicyConfig{}, fmt.Errorf("policy with empty identifier in %s", path)
		}
	}
	return cfg, nil
}

// Apply fills the empty type/method fields of a creation request from the
// matching identifier policy, then from the global defaults.
func (c PolicyConfig) Apply(tc *TokenCreate) {
	for _, p := range c.Policies {
		if p.Identifier == tc.Identifier {
			if tc.Type == "" {
				tc.Type = p.Type
			}
			if tc.Method == "" {
				tc.Method = p.Method
			}
			break
		}
	}
	if tc.Type == "" {
		tc.Type = TypeString
	}
	if tc.Method == "" {
		tc.Method = MethodFormatPreserving
	}
}
