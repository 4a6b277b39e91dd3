package config

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/itdeo/go-procgen/internal/model"
)

// MultilangFields is the closed set of keys that accept multilingual values.
var MultilangFields = []string{"synonym", "title", "tooltip", "input_hint"}

// localized expands one multilingual value. Accepted shapes:
//
//	field: "value"
//	field: "russian|ukrainian|english"   (\| escapes a literal pipe)
//	field: [ru-value, uk-value, en-value]
//	field: {ru: ..., uk: ...}
//
// Missing languages are filled from the first declared language. A nil node
// yields fallback across all languages.
func (l *Loader) localized(n *yaml.Node, fallback string) (model.LocalizedString, error) {
	var out model.LocalizedString
	n = resolveAlias(n)

	switch {
	case n == nil:
		if fallback != "" {
			out.Set(l.languages[0], fallback)
		}
	case n.Kind == yaml.ScalarNode:
		parts, err := splitPipes(n.Value)
		if err != nil {
			return out, err
		}
		if len(parts) > len(l.languages) {
			return out, malformedf("multilingual value %q has %d segments for %d languages", n.Value, len(parts), len(l.languages))
		}
		for i, part := range parts {
			out.Set(l.languages[i], part)
		}
	case n.Kind == yaml.SequenceNode:
		items := seqItems(n)
		if len(items) > len(l.languages) {
			return out, malformedf("multilingual list has %d values for %d languages", len(items), len(l.languages))
		}
		for i, item := range items {
			out.Set(l.languages[i], scalarString(item))
		}
	case n.Kind == yaml.MappingNode:
		for _, e := range mapEntries(n) {
			if !l.knownLanguage(e.key) {
				return out, malformedf("multilingual map has unknown language %q", e.key)
			}
			out.Set(e.key, scalarString(e.node))
		}
	default:
		return out, malformedf("multilingual value must be a scalar, list or map")
	}

	fillMissing(&out, l.languages)
	return out, nil
}

func (l *Loader) knownLanguage(code string) bool {
	for _, lang := range l.languages {
		if lang == code {
			return true
		}
	}
	return false
}

func fillMissing(ls *model.LocalizedString, languages []string) {
	if len(languages) == 0 {
		return
	}
	base := ls.Get(languages[0])
	if base == "" {
		// Promote the first non-empty value so fills have a source.
		for _, lang := range languages[1:] {
			if v := ls.Get(lang); v != "" {
				base = v
				ls.Set(languages[0], v)
				break
			}
		}
	}
	for _, lang := range languages[1:] {
		if ls.Get(lang) == "" {
			ls.Set(lang, base)
		}
	}
}

// splitPipes splits a pipe-delimited multilingual scalar. Backslash escapes
// a pipe or itself; any other escape is a syntax error.
func splitPipes(s string) ([]string, error) {
	if !strings.ContainsRune(s, '|') && !strings.ContainsRune(s, '\\') {
		return []string{s}, nil
	}
	var parts []string
	var cur strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			if i+1 >= len(runes) {
				return nil, malformedf("dangling escape at end of %q", s)
			}
			next := runes[i+1]
			if next != '|' && next != '\\' {
				return nil, malformedf("invalid escape %q in %q", string([]rune{'\\', next}), s)
			}
			cur.WriteRune(next)
			i++
		case '|':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(runes[i])
		}
	}
	parts = append(parts, cur.String())
	return parts, nil
}
