package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VariantDef is the static definition of one variant.
type VariantDef struct {
	ID         string   `yaml:"id"`
	Sizes      []string `yaml:"sizes"`       // size classes the variant may appear on
	UnlockWave int      `yaml:"unlock_wave"` // first wave the variant may appear
	Health     float64  `yaml:"health"`      // max-health multiplier
	Speed      float64  `yaml:"speed"`       // speed multiplier
	Explodes   bool     `yaml:"explodes"`    // area damage on destruction
	Fragments  int      `yaml:"fragments"`   // extra fragments on destruction
}

// WeightEntry is one row of a size class's weighted distribution.
// Rows are kept as a list so the cumulative search order is stable.
type WeightEntry struct {
	Variant string `yaml:"variant"`
	Weight  int    `yaml:"weight"`
}

// SizeRule is the base chance and distribution for a size class.
type SizeRule struct {
	BaseChance float64       `yaml:"base_chance"`
	Weights    []WeightEntry `yaml:"weights"`
}

// WaveBonus adds to every base chance from StartWave onwards.
type WaveBonus struct {
	StartWave int     `yaml:"start_wave"`
	PerWave   float64 `yaml:"per_wave"`
	Max       float64 `yaml:"max"`
}

// DenseRule drives the single dense-fragment roll on largest-size destruction.
type DenseRule struct {
	StartWave  int     `yaml:"start_wave"`
	BaseChance float64 `yaml:"base_chance"`
	PerWave    float64 `yaml:"per_wave"`
	MaxChance  float64 `yaml:"max_chance"`
}

// VariantTable holds every variant definition and rule loaded from YAML.
type VariantTable struct {
	Common    string              `yaml:"common"`
	Dense     string              `yaml:"dense"`
	WaveBonus WaveBonus           `yaml:"wave_bonus"`
	DenseRule DenseRule           `yaml:"dense_fragment"`
	Sizes     map[string]SizeRule `yaml:"sizes"`
	Variants  []VariantDef        `yaml:"variants"`

	byID map[string]*VariantDef
}

// Get returns a variant definition, or nil if none is defined.
func (t *VariantTable) Get(id string) *VariantDef {
	if t == nil {
		return nil
	}
	return t.byID[id]
}

// Count returns the number of variant definitions.
func (t *VariantTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.Variants)
}

// Rule returns the rule for a size class name.
func (t *VariantTable) Rule(size string) (SizeRule, bool) {
	if t == nil {
		return SizeRule{}, false
	}
	r, ok := t.Sizes[size]
	return r, ok
}

// LoadVariantTable loads variant data from a YAML file.
func LoadVariantTable(path string) (*VariantTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variants: %w", err)
	}
	return ParseVariantTable(raw)
}

// ParseVariantTable decodes and indexes variant data.
func ParseVariantTable(raw []byte) (*VariantTable, error) {
	var t VariantTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse variants: %w", err)
	}
	if t.Common == "" {
		t.Common = "common"
	}
	t.byID = make(map[string]*VariantDef, len(t.Variants))
	for i := range t.Variants {
		v := &t.Variants[i]
		if v.ID == "" {
			return nil, fmt.Errorf("parse variants: entry %d has no id", i)
		}
		if _, dup := t.byID[v.ID]; dup {
			return nil, fmt.Errorf("parse variants: duplicate id %q", v.ID)
		}
		if v.Health == 0 {
			v.Health = 1
		}
		if v.Speed == 0 {
			v.Speed = 1
		}
		t.byID[v.ID] = v
	}
	for size, rule := range t.Sizes {
		for _, w := range rule.Weights {
			if _, ok := t.byID[w.Variant]; !ok {
				return nil, fmt.Errorf("parse variants: size %s weights unknown variant %q", size, w.Variant)
			}
			if w.Weight < 0 {
				return nil, fmt.Errorf("parse variants: size %s variant %q has negative weight", size, w.Variant)
			}
		}
	}
	return &t, nil
}
