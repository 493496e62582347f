package ability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBuiltInRegistryValidates(t *testing.T) {
	registry := BuiltInRegistry()
	if err := registry.Validate(); err != nil {
		t.Fatalf("built-in registry failed validation: %v", err)
	}
	index := registry.ByID()
	for _, id := range []string{AbilityIDFireball, AbilityIDSmite, AbilityIDShockwave, AbilityIDMend} {
		if _, ok := index[id]; !ok {
			t.Fatalf("expected built-in ability %s", id)
		}
	}
}

func TestRegistryValidateRejectsBrokenDefinitions(t *testing.T) {
	base := func() *Definition {
		return &Definition{
			ID: "probe", Name: "Probe", Kind: KindInstant, Affinity: AffinityEnemy,
			ManaCost: 10, Cooldown: time.Second, BasePower: 5, Radius: 32, MaxTargets: 1,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Definition)
		detail string
	}{
		{name: "empty id", mutate: func(d *Definition) { d.ID = "  " }, detail: "id"},
		{name: "unknown kind", mutate: func(d *Definition) { d.Kind = "ritual" }, detail: "kind"},
		{name: "unknown affinity", mutate: func(d *Definition) { d.Affinity = "pets" }, detail: "affinity"},
		{name: "negative cost", mutate: func(d *Definition) { d.ManaCost = -1 }, detail: "mana cost"},
		{name: "negative cooldown", mutate: func(d *Definition) { d.Cooldown = -time.Second }, detail: "cooldown"},
		{name: "zero radius", mutate: func(d *Definition) { d.Radius = 0 }, detail: "radius"},
		{name: "zero targets", mutate: func(d *Definition) { d.MaxTargets = 0 }, detail: "targets"},
		{name: "crit chance above one", mutate: func(d *Definition) { d.CritChance = 1.5 }, detail: "crit chance"},
		{name: "crit multiplier below one", mutate: func(d *Definition) { d.CritChance = 0.5; d.CritMultiplier = 0.5 }, detail: "multiplier"},
		{name: "buff without kind", mutate: func(d *Definition) { d.Kind = KindBuff }, detail: "buff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := base()
			tt.mutate(def)
			err := Registry{def}.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Fatalf("expected error mentioning %q, got %v", tt.detail, err)
			}
		})
	}
}

func TestRegistryValidateRejectsDuplicateIDs(t *testing.T) {
	registry := BuiltInRegistry()
	registry = append(registry, registry[0])
	err := registry.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestParseCatalogConvertsSecondsToDurations(t *testing.T) {
	data := []byte(`[
		{"id":"bolt","name":"Bolt","kind":"projectile","affinity":"enemy",
		 "manaCost":8,"cooldown":0.7,"castTime":0.25,"basePower":11,
		 "radius":64,"maxTargets":1},
		{"id":"hymn","name":"Hymn","kind":"buff","affinity":"ally",
		 "manaCost":40,"cooldown":15,"radius":200,"maxTargets":4,
		 "buffKind":"attack-power","buffValue":0.2,"buffDuration":8}
	]`)

	registry, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	if len(registry) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(registry))
	}
	bolt := registry[0]
	if bolt.Cooldown != 700*time.Millisecond {
		t.Fatalf("expected 700ms cooldown, got %s", bolt.Cooldown)
	}
	if bolt.CastTime != 250*time.Millisecond {
		t.Fatalf("expected 250ms cast time, got %s", bolt.CastTime)
	}
	hymn := registry[1]
	if hymn.BuffDuration != 8*time.Second {
		t.Fatalf("expected 8s buff duration, got %s", hymn.BuffDuration)
	}
}

func TestParseCatalogRejectsInvalidEntries(t *testing.T) {
	if _, err := ParseCatalog([]byte(`[{"id":"","name":"x","kind":"instant"}]`)); err == nil {
		t.Fatalf("expected validation error for empty id")
	}
	if _, err := ParseCatalog([]byte(`{not json`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abilities.json")
	data := []byte(`[{"id":"bolt","name":"Bolt","kind":"instant","affinity":"enemy",
		"manaCost":8,"cooldown":0.7,"basePower":11,"radius":64,"maxTargets":1}]`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	registry, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(registry) != 1 || registry[0].ID != "bolt" {
		t.Fatalf("unexpected registry %+v", registry)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
