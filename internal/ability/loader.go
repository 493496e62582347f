package ability

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FileDefinition is the designer-authored shape of one catalog entry.
// Durations are written in seconds; LoadFile converts them when building the
// runtime registry.
type FileDefinition struct {
	ID             string   `json:"id" jsonschema:"required"`
	Name           string   `json:"name" jsonschema:"required"`
	Kind           Kind     `json:"kind" jsonschema:"required"`
	Affinity       Affinity `json:"affinity"`
	ManaCost       float64  `json:"manaCost"`
	Cooldown       float64  `json:"cooldown"`
	CastTime       float64  `json:"castTime"`
	BasePower      float64  `json:"basePower"`
	Radius         float64  `json:"radius"`
	MaxTargets     int      `json:"maxTargets"`
	CritChance     float64  `json:"critChance"`
	CritMultiplier float64  `json:"critMultiplier"`
	BuffKind       string   `json:"buffKind,omitempty"`
	BuffValue      float64  `json:"buffValue,omitempty"`
	BuffDuration   float64  `json:"buffDuration,omitempty"`
	Color          string   `json:"color,omitempty"`
	SoundClip      string   `json:"soundClip,omitempty"`
}

// Definition converts the file entry into the runtime template.
func (f FileDefinition) Definition() *Definition {
	return &Definition{
		ID:             f.ID,
		Name:           f.Name,
		Kind:           f.Kind,
		Affinity:       f.Affinity,
		ManaCost:       f.ManaCost,
		Cooldown:       secondsToDuration(f.Cooldown),
		CastTime:       secondsToDuration(f.CastTime),
		BasePower:      f.BasePower,
		Radius:         f.Radius,
		MaxTargets:     f.MaxTargets,
		CritChance:     f.CritChance,
		CritMultiplier: f.CritMultiplier,
		BuffKind:       f.BuffKind,
		BuffValue:      f.BuffValue,
		BuffDuration:   secondsToDuration(f.BuffDuration),
		Color:          f.Color,
		SoundClip:      f.SoundClip,
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// LoadFile reads a designer-authored catalog and validates it.
func LoadFile(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates raw catalog JSON.
func ParseCatalog(data []byte) (Registry, error) {
	var entries []FileDefinition
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	registry := make(Registry, 0, len(entries))
	for _, entry := range entries {
		registry = append(registry, entry.Definition())
	}
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}
