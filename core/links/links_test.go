package links

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const catalogue = `
title: Office links
links:
  - title: Portal
    url: https://portal.example.org
child:
  wiki:
    title: Wiki
    links:
      - title: Onboarding
        url: https://wiki.example.org/onboarding
    child:
      deep:
        title: Deep
        links: []
  forms:
    title: Forms
    links:
      - title: Vacation
        url: https://forms.example.org/vacation
`

func TestParseKeepsChildOrder(t *testing.T) {
	m, err := Parse([]byte(catalogue))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Heading() != "Office links" || len(m.Links) != 1 {
		t.Fatalf("root = %+v", m)
	}
	if len(m.Children) != 2 || m.Children[0].ID != "wiki" || m.Children[1].ID != "forms" {
		t.Fatalf("children order = %+v", m.Children)
	}
	deep, err := m.Walk([]string{"wiki", "deep"})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if deep.Heading() != "Deep" {
		t.Fatalf("deep heading = %q", deep.Heading())
	}
	if _, err := m.Walk([]string{"forms", "deep"}); err == nil {
		t.Fatal("expected error for missing submenu")
	}
}

func TestParseJSONDocument(t *testing.T) {
	doc := `{"links": [{"title": "A", "url": "https://a.example.org"}], "child": {"z": {"links": []}, "a": {"title": "A menu", "links": []}}}`
	m, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Heading() != DefaultTitle {
		t.Fatalf("heading = %q", m.Heading())
	}
	if m.Children[0].ID != "z" || m.Children[1].ID != "a" {
		t.Fatalf("json child order lost: %+v", m.Children)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"relative url":  "links:\n  - title: x\n    url: /relative\n",
		"missing title": "links:\n  - url: https://example.org\n",
		"child list":    "links: []\nchild:\n  - a\n",
		"nested bad":    "links: []\nchild:\n  a:\n    links:\n      - title: y\n        url: nope\n",
		"long id":       "links: []\nchild:\n  Корпоративная документация отдела:\n    links: []\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatalf("expected error for %q", doc)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.yaml")
	if err := os.WriteFile(path, []byte(catalogue), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := m.Child("forms"); !ok {
		t.Fatal("forms submenu missing")
	}
	if _, err := Load(path + ".missing"); err == nil || !strings.Contains(err.Error(), "read") {
		t.Fatalf("missing file error = %v", err)
	}
}
