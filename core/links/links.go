// Package links loads the catalogue of useful links shown by the bot.
//
// The catalogue is a tree: every menu has an optional title, a list of URL
// links, and child menus in document order. Files may be YAML or JSON; both
// are parsed with the YAML decoder so child order is preserved.
package links

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTitle is shown for menus without a title.
const DefaultTitle = "Useful links"

// MaxIDBytes bounds child ids so an id with a short routing prefix still
// fits into the 64 bytes of Telegram callback data.
const MaxIDBytes = 56

// Link is one URL button.
type Link struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// Child is a named submenu.
type Child struct {
	ID   string
	Menu *Menu
}

// Menu is one level of the catalogue.
type Menu struct {
	Title    string
	Links    []Link
	Children []Child
}

type rawMenu struct {
	Title string    `yaml:"title"`
	Links []Link    `yaml:"links"`
	Child yaml.Node `yaml:"child"`
}

// UnmarshalYAML keeps the order of the child mapping.
func (m *Menu) UnmarshalYAML(n *yaml.Node) error {
	var raw rawMenu
	if err := n.Decode(&raw); err != nil {
		return err
	}
	m.Title = raw.Title
	m.Links = raw.Links
	m.Children = nil

	child := raw.Child
	if child.Kind == 0 || child.Tag == "!!null" {
		return nil
	}
	if child.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: child must be a mapping", child.Line)
	}
	for i := 0; i+1 < len(child.Content); i += 2 {
		id := child.Content[i].Value
		sub := &Menu{}
		if err := child.Content[i+1].Decode(sub); err != nil {
			return fmt.Errorf("child %q: %w", id, err)
		}
		m.Children = append(m.Children, Child{ID: id, Menu: sub})
	}
	return nil
}

// Heading returns the title or DefaultTitle.
func (m *Menu) Heading() string {
	if strings.TrimSpace(m.Title) == "" {
		return DefaultTitle
	}
	return m.Title
}

// Child returns the submenu with id.
func (m *Menu) Child(id string) (*Menu, bool) {
	for _, c := range m.Children {
		if c.ID == id {
			return c.Menu, true
		}
	}
	return nil, false
}

// Walk descends through the ids in path, starting at m.
func (m *Menu) Walk(path []string) (*Menu, error) {
	cur := m
	for i, id := range path {
		next, ok := cur.Child(id)
		if !ok {
			return nil, fmt.Errorf("links: no menu %q at %s", id, strings.Join(path[:i], "/"))
		}
		cur = next
	}
	return cur, nil
}

// Validate checks that every link has a title and an absolute URL and that
// child ids are unique, non-empty and at most MaxIDBytes long.
func (m *Menu) Validate() error {
	return m.validate("/")
}

func (m *Menu) validate(at string) error {
	var errs []error
	for i, l := range m.Links {
		if strings.TrimSpace(l.Title) == "" {
			errs = append(errs, fmt.Errorf("%s: link %d has no title", at, i))
		}
		u, err := url.Parse(l.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s: link %q has invalid url %q", at, l.Title, l.URL))
		}
	}
	seen := make(map[string]bool, len(m.Children))
	for _, c := range m.Children {
		if c.ID == "" || seen[c.ID] {
			errs = append(errs, fmt.Errorf("%s: empty or duplicate child id %q", at, c.ID))
			continue
		}
		seen[c.ID] = true
		if len(c.ID) > MaxIDBytes {
			errs = append(errs, fmt.Errorf("%s: child id %q is %d bytes, limit %d", at, c.ID, len(c.ID), MaxIDBytes))
		}
		if err := c.Menu.validate(at + c.ID + "/"); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Parse decodes and validates a catalogue document.
func Parse(raw []byte) (*Menu, error) {
	m := &Menu{}
	if err := yaml.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("links: decode: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("links: %w", err)
	}
	return m, nil
}

// Load reads the catalogue at path.
func Load(path string) (*Menu, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("links: read %s: %w", path, err)
	}
	return Parse(raw)
}
