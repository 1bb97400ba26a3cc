package cli

import (
	"fmt"
	"sort"
	"strings"
)

// preset bundles the column and language settings for a common language pair.
type preset struct {
	SourceLang   string
	TargetLang   string
	SourceColumn int
	TargetColumn int
}

var presets = map[string]preset{
	"zh-en": {SourceLang: "Chinese", TargetLang: "English", SourceColumn: 0, TargetColumn: 1},
	"en-zh": {SourceLang: "English", TargetLang: "Chinese", SourceColumn: 1, TargetColumn: 0},
	"zh-es": {SourceLang: "Chinese", TargetLang: "Spanish", SourceColumn: 0, TargetColumn: 1},
	"es-en": {SourceLang: "Spanish", TargetLang: "English", SourceColumn: 0, TargetColumn: 1},
	"zh-ja": {SourceLang: "Chinese", TargetLang: "Japanese", SourceColumn: 0, TargetColumn: 1},
	"ja-en": {SourceLang: "Japanese", TargetLang: "English", SourceColumn: 0, TargetColumn: 1},
}

func lookupPreset(name string) (preset, error) {
	p, ok := presets[name]
	if !ok {
		return preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(presetNames(), ", "))
	}
	return p, nil
}

func presetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
