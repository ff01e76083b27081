// Package prompt renders the six-part case question and the classifier prompts.
package prompt

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/daryltucker/medvision-runner/internal/assets"
	"github.com/daryltucker/medvision-runner/internal/model"
)

// Template is a parsed prompt template.
type Template struct {
	name string
	tmpl *template.Template
}

// Name returns the template source (embedded name or file path).
func (t *Template) Name() string { return t.name }

func parse(name, text string) (*Template, error) {
	tmpl, err := template.New(filepath.Base(name)).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %s: %w", name, err)
	}
	return &Template{name: name, tmpl: tmpl}, nil
}

func embedded(name string) (*Template, error) {
	data, err := fs.ReadFile(assets.Prompts, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompt %s: %w", name, err)
	}
	return parse(name, string(data))
}

// LoadCase returns the case template at path, or the embedded default when path is empty.
func LoadCase(path string) (*Template, error) {
	if path == "" {
		return embedded(assets.CaseTemplate)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}
	return parse(path, string(data))
}

// Render fills the template with a case's demographics and symptom.
func (t *Template) Render(c model.Case) (string, error) {
	return t.execute(c)
}

func (t *Template) execute(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", t.name, err)
	}
	return buf.String(), nil
}

// Classifier holds the system and user prompts of the model-assisted classifier.
type Classifier struct {
	System string
	user   *Template
}

// LoadClassifier returns the embedded classifier prompts.
func LoadClassifier() (*Classifier, error) {
	system, err := fs.ReadFile(assets.Prompts, assets.ClassifierSystem)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompt %s: %w", assets.ClassifierSystem, err)
	}
	user, err := embedded(assets.ClassifierTemplate)
	if err != nil {
		return nil, err
	}
	return &Classifier{System: strings.TrimSpace(string(system)), user: user}, nil
}

// User renders the user prompt around content.
func (c *Classifier) User(content string) (string, error) {
	return c.user.execute(struct{ Content string }{content})
}

// Export writes every embedded prompt into dir and returns the written paths.
func Export(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	entries, err := fs.ReadDir(assets.Prompts, "prompts")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompts: %w", err)
	}

	var written []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := fs.ReadFile(assets.Prompts, "prompts/"+entry.Name())
		if err != nil {
			return written, err
		}
		target := filepath.Join(dir, entry.Name())
		if err := os.WriteFile(target, content, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", target, err)
		}
		written = append(written, target)
	}
	return written, nil
}
