// Package prompts loads and renders the consultation prompt templates. All
// templates compile once at startup; Render is safe for concurrent use.
package prompts

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	errs "music-brief-scheduler/pkg/errors"
)

// Template names used by the engine.
const (
	ConsultationSystem = "consultation_system"
	ResearchConclusion = "research_conclusion"
)

type Manager struct {
	mu   sync.RWMutex
	tpls map[string]*template.Template
}

// requiredTemplates must exist for the engine to run a consultation at all;
// NewManager refuses to start without them.
var requiredTemplates = []string{ConsultationSystem, ResearchConclusion}

// NewManager parses all embedded templates and verifies the set the engine
// depends on is present.
func NewManager() (*Manager, error) {
	m := &Manager{tpls: make(map[string]*template.Template)}

	err := fs.WalkDir(FS(), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".txt.tmpl") {
			return nil
		}
		b, rerr := fs.ReadFile(FS(), p)
		if rerr != nil {
			return fmt.Errorf("read template %s: %w", p, rerr)
		}
		name := strings.TrimSuffix(filepath.Base(p), ".txt.tmpl")
		tpl, perr := template.New(name).Parse(string(b))
		if perr != nil {
			return fmt.Errorf("parse template %s: %w", p, perr)
		}
		m.tpls[name] = tpl
		return nil
	})
	if err != nil {
		return nil, errs.NewBiz("prompts.NewManager", "failed to load prompts", err)
	}
	for _, name := range requiredTemplates {
		if _, ok := m.tpls[name]; !ok {
			return nil, errs.NewBiz("prompts.NewManager",
				fmt.Sprintf("required prompt template missing: %s", PathFor(name)), nil)
		}
	}
	return m, nil
}

// Render executes a named template and returns the result.
func (m *Manager) Render(name string, data any) (string, error) {
	m.mu.RLock()
	tpl, ok := m.tpls[name]
	m.mu.RUnlock()
	if !ok {
		return "", errs.NewValidation("prompts.Render", fmt.Sprintf("prompt template not found: %s", name), nil)
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return "", errs.NewBiz("prompts.Render", fmt.Sprintf("execute template %s", name), err)
	}
	return sb.String(), nil
}
