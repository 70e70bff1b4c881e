package agent

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iammorganparry/forgepilot/internal/model"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// DefaultTemplate is used when no template's keywords match
const DefaultTemplate = "python_cli"

// TemplateFile is one generated file
type TemplateFile struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

// Template describes a scaffold the agent can generate
type Template struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Language    string         `yaml:"language"`
	Entry       string         `yaml:"entry"`
	Keywords    []string       `yaml:"keywords"`
	Files       []TemplateFile `yaml:"files"`
}

// Manifest returns the template files in declaration order
func (t Template) Manifest() model.Manifest {
	var m model.Manifest
	for _, f := range t.Files {
		m.Set(f.Path, f.Content)
	}
	return m
}

// Matches reports whether the lowercased instruction mentions a keyword
func (t Template) Matches(instruction string) bool {
	lc := strings.ToLower(instruction)
	for _, k := range t.Keywords {
		if strings.Contains(lc, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// Catalog is the set of known templates
type Catalog struct {
	templates map[string]Template
	order     []string
}

// LoadCatalog parses the embedded template definitions
func LoadCatalog() (*Catalog, error) {
	return loadCatalog(templateFS, "templates")
}

func loadCatalog(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	c := &Catalog{templates: make(map[string]Template)}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}

		var tmpl Template
		if err := yaml.Unmarshal(data, &tmpl); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", entry.Name(), err)
		}
		if tmpl.Name == "" {
			tmpl.Name = strings.TrimSuffix(entry.Name(), ".yaml")
		}
		if len(tmpl.Files) == 0 {
			return nil, fmt.Errorf("template %s has no files", tmpl.Name)
		}
		if tmpl.Entry == "" {
			tmpl.Entry = tmpl.Files[0].Path
		}

		c.templates[tmpl.Name] = tmpl
		c.order = append(c.order, tmpl.Name)
	}

	if _, ok := c.templates[DefaultTemplate]; !ok {
		return nil, fmt.Errorf("default template %s not found", DefaultTemplate)
	}
	sort.Strings(c.order)
	return c, nil
}

// Get returns a template by name
func (c *Catalog) Get(name string) (Template, bool) {
	t, ok := c.templates[name]
	return t, ok
}

// Names lists the template names alphabetically
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Choose picks the first template whose keywords appear in instruction,
// falling back to DefaultTemplate
func (c *Catalog) Choose(instruction string) Template {
	for _, name := range c.order {
		if t := c.templates[name]; t.Matches(instruction) {
			return t
		}
	}
	return c.templates[DefaultTemplate]
}
