// Package msgcat renders user-facing texts from yaml message files.
package msgcat

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

const builtinFile = "messages.en.yaml"

//go:embed messages.en.yaml
var builtin embed.FS

// Catalog maps dotted keys such as "stacks.move.format" to compiled templates.
// It is immutable once New returns.
type Catalog struct {
	msgs map[string]*template.Template
}

// New compiles the embedded English messages, then the *.yaml and *.yml files
// of overrideDir in name order. Two override files may not set the same key.
func New(overrideDir string) (*Catalog, error) {
	raw, err := builtin.ReadFile(builtinFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded messages: %w", err)
	}
	msgs, err := compile(builtinFile, raw)
	if err != nil {
		return nil, err
	}
	c := &Catalog{msgs: msgs}
	if dir := strings.TrimSpace(overrideDir); dir != "" {
		if err := c.override(dir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) override(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read messages dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	slices.Sort(names)

	owner := make(map[string]string)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		msgs, err := compile(name, raw)
		if err != nil {
			return err
		}
		for key, tpl := range msgs {
			if prev, ok := owner[key]; ok {
				return fmt.Errorf("duplicate override key %q in %s and %s", key, prev, name)
			}
			owner[key] = name
			c.msgs[key] = tpl
		}
	}
	return nil
}

// compile parses one message file. Errors carry the file name and line.
func compile(file string, raw []byte) (map[string]*template.Template, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	out := make(map[string]*template.Template)
	for _, root := range doc.Content {
		if err := collect(file, root, "", out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func collect(file string, n *yaml.Node, key string, out map[string]*template.Template) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			child := n.Content[i].Value
			if key != "" {
				child = key + "." + child
			}
			if err := collect(file, n.Content[i+1], child, out); err != nil {
				return err
			}
		}
		return nil
	case yaml.ScalarNode:
		switch {
		case n.Tag == "!!null" || strings.TrimSpace(n.Value) == "":
			return nil
		case key == "":
			return fmt.Errorf("%s:%d: message without a key", file, n.Line)
		case n.Tag != "!!str":
			return fmt.Errorf("%s:%d: %s must be a string, got %s", file, n.Line, key, n.Tag)
		}
		tpl, err := template.New(key).Option("missingkey=error").Parse(n.Value)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", file, n.Line, err)
		}
		out[key] = tpl
		return nil
	default:
		return fmt.Errorf("%s:%d: %s must be a string or a mapping", file, n.Line, key)
	}
}

// Has reports whether key is defined.
func (c *Catalog) Has(key string) bool {
	_, ok := c.msgs[strings.TrimSpace(key)]
	return ok
}

// Render executes the message under key with data.
func (c *Catalog) Render(key string, data any) (string, error) {
	tpl, ok := c.msgs[strings.TrimSpace(key)]
	if !ok {
		return "", fmt.Errorf("message %q not found", key)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Text is Render with fallback on any error. A nil catalog always falls back.
func (c *Catalog) Text(key string, data any, fallback string) string {
	if c == nil {
		return fallback
	}
	s, err := c.Render(key, data)
	if err != nil {
		return fallback
	}
	return s
}
