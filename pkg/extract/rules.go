package extract

import (
	"errors"
	"io/ioutil"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Rule associates a schema field with the text pattern that locates its
// value in OCR output. Capture group 1 is the raw value.
type Rule struct {
	Field   string `yaml:"field" json:"field"`
	Pattern string `yaml:"pattern" json:"pattern"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

type RulesConfig struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

func LoadRules(path string) (RulesConfig, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := ioutil.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}
	var cfg RulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return RulesConfig{}, err
	}
	if len(cfg.Rules) == 0 {
		return RulesConfig{}, errors.New("extraction rules config empty")
	}
	return cfg, nil
}

// DefaultRules covers the medical report labels the intake form knows about.
func DefaultRules() RulesConfig {
	return RulesConfig{Rules: []Rule{
		{Field: "age", Pattern: `Age[:\s]*([0-9]+)`, Enabled: true},
		{Field: "bp", Pattern: `Blood Pressure[:\s]*([0-9]+)`, Enabled: true},
		{Field: "bgr", Pattern: `Blood Glucose(?: Random)?[:\s]*([0-9]+)`, Enabled: true},
		{Field: "bu", Pattern: `Blood Urea[:\s]*([0-9]+)`, Enabled: true},
		{Field: "sg", Pattern: `Specific Gravity[:\s]*([0-9.]+)`, Enabled: true},
		{Field: "su", Pattern: `Sugar[:\s]*([0-9]+)`, Enabled: true},
		{Field: "rbc", Pattern: `Red Blood Cells[:\s]*(normal|abnormal)`, Enabled: true},
		{Field: "pc", Pattern: `Pus Cell[:\s]*(normal|abnormal)`, Enabled: true},
		{Field: "pcc", Pattern: `Pus Cell Clumps[:\s]*(present|notpresent)`, Enabled: true},
		{Field: "ba", Pattern: `Bacteria[:\s]*(present|notpresent)`, Enabled: true},
	}}
}
