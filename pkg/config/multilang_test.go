package config

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/itdeo/go-procgen/internal/model"
)

func yamlValue(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return unwrapDoc(&doc)
}

func TestLocalized(t *testing.T) {
	loader := New()

	cases := []struct {
		name string
		src  string
		want model.LocalizedString
	}{
		{
			name: "scalar fills all languages",
			src:  `"Сохранить"`,
			want: model.LocalizedString{RU: "Сохранить", UK: "Сохранить", EN: "Сохранить"},
		},
		{
			name: "pipe delimited",
			src:  `"Сохранить|Зберегти|Save"`,
			want: model.LocalizedString{RU: "Сохранить", UK: "Зберегти", EN: "Save"},
		},
		{
			name: "escaped pipe is literal",
			src:  `'А\|Б'`,
			want: model.LocalizedString{RU: "А|Б", UK: "А|Б", EN: "А|Б"},
		},
		{
			name: "partial pipe fills from first",
			src:  `"Сохранить|Зберегти"`,
			want: model.LocalizedString{RU: "Сохранить", UK: "Зберегти", EN: "Сохранить"},
		},
		{
			name: "list form",
			src:  "[Да, Так, Yes]",
			want: model.LocalizedString{RU: "Да", UK: "Так", EN: "Yes"},
		},
		{
			name: "map form fills missing",
			src:  "{ru: Печать, en: Print}",
			want: model.LocalizedString{RU: "Печать", UK: "Печать", EN: "Print"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := loader.localized(yamlValue(t, tc.src), "")
			if err != nil {
				t.Fatalf("localized: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("localized mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLocalizedErrors(t *testing.T) {
	loader := New()

	cases := []struct {
		name string
		src  string
	}{
		{name: "bad escape", src: `'А\nБ'`},
		{name: "dangling escape", src: `"значение\\"`},
		{name: "too many segments", src: `"a|b|c|d"`},
		{name: "unknown language key", src: "{de: Wert}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loader.localized(yamlValue(t, tc.src), "")
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("error %v is not ErrMalformed", err)
			}
		})
	}
}

func TestSplitPipes(t *testing.T) {
	got, err := splitPipes(`один\|два|три`)
	if err != nil {
		t.Fatalf("splitPipes: %v", err)
	}
	want := []string{"один|два", "три"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("splitPipes mismatch (-want +got):\n%s", diff)
	}
}
