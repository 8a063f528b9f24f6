// Package tables loads the operator-editable lookup tables: the safety
// block-list and deny terms, collection aliases and name honorifics.
// Entries in the file extend the compiled-in defaults unless
// replace_defaults is set.
package tables

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/listenupapp/artfetch/internal/safety"
	"github.com/listenupapp/artfetch/internal/tags"
)

// Tables is the on-disk table file.
type Tables struct {
	// ReplaceDefaults discards the compiled-in entries instead of extending them.
	ReplaceDefaults bool `yaml:"replace_defaults"`

	Blocklist         []string          `yaml:"blocklist"`
	DenyTerms         []string          `yaml:"deny_terms"`
	CollectionAliases map[string]string `yaml:"collection_aliases"`
	Honorifics        []string          `yaml:"honorifics"`
	TitlePrefixes     []string          `yaml:"title_prefixes"`
}

// Load reads and parses a table file.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables file: %w", err)
	}
	return Parse(data)
}

// Parse decodes table YAML.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tables file: %w", err)
	}
	t.normalize()
	return &t, nil
}

func (t *Tables) normalize() {
	t.Blocklist = cleanList(t.Blocklist)
	t.DenyTerms = cleanList(t.DenyTerms)
	t.Honorifics = cleanList(t.Honorifics)
	t.TitlePrefixes = cleanList(t.TitlePrefixes)

	if len(t.CollectionAliases) > 0 {
		aliases := make(map[string]string, len(t.CollectionAliases))
		for k, v := range t.CollectionAliases {
			k = strings.ToLower(strings.TrimSpace(k))
			v = strings.ToLower(strings.TrimSpace(v))
			if k != "" && v != "" {
				aliases[k] = v
			}
		}
		t.CollectionAliases = aliases
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Policy builds the safety policy described by the tables.
func (t *Tables) Policy() *safety.Policy {
	if t.ReplaceDefaults {
		return safety.NewPolicy(t.Blocklist, t.DenyTerms)
	}
	return safety.NewPolicy(
		append(slices.Clone(safety.DefaultBlocklist), t.Blocklist...),
		append(slices.Clone(safety.DefaultDenyTerms), t.DenyTerms...),
	)
}

// Vocabulary builds the tag vocabulary described by the tables.
func (t *Tables) Vocabulary() tags.Vocabulary {
	extra := tags.Vocabulary{
		Aliases:       t.CollectionAliases,
		Honorifics:    t.Honorifics,
		TitlePrefixes: t.TitlePrefixes,
	}
	if t.ReplaceDefaults {
		return tags.Vocabulary{}.Merge(extra)
	}
	return tags.DefaultVocabulary().Merge(extra)
}
