package normalizer

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/rules.yaml
var rulesYAML []byte

// RulesConfig chứa rules được load từ YAML embed
type RulesConfig struct {
	StreetAbbreviations map[string]string `yaml:"street_abbreviations"`
	LegalForms          []string          `yaml:"legal_forms"`
}

// LoadRulesConfig load rules từ embedded YAML
func LoadRulesConfig() (*RulesConfig, error) {
	config := &RulesConfig{}
	if err := yaml.Unmarshal(rulesYAML, config); err != nil {
		return nil, fmt.Errorf("parse normalizer rules: %w", err)
	}
	return config, nil
}

// longestFirst sorts by byte length descending, ties alphabetically so the
// replacement order is stable.
func longestFirst(items []string) {
	sort.SliceStable(items, func(i, j int) bool {
		if len(items[i]) != len(items[j]) {
			return len(items[i]) > len(items[j])
		}
		return items[i] < items[j]
	})
}

var defaultRules = mustLoadRules()

func mustLoadRules() *RulesConfig {
	cfg, err := LoadRulesConfig()
	if err != nil {
		panic(err)
	}
	return cfg
}
