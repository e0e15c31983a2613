package prompts

import (
	"strings"
	"testing"
)

func TestNewManager_RequiredTemplatesPresent(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range requiredTemplates {
		if _, ok := m.tpls[name]; !ok {
			t.Fatalf("required template %s missing after load", name)
		}
	}
}

func TestRender_ConsultationSystem(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatal(err)
	}
	out, err := m.Render(ConsultationSystem, map[string]interface{}{
		"SYBProduct": true,
		"Product":    "syb",
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatal("system prompt rendered empty")
	}
}

func TestRender_ResearchConclusion(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatal(err)
	}
	out, err := m.Render(ResearchConclusion, map[string]string{
		"VenueName": "Cafe Luna",
		"Summary":   "rooftop bar, sunset crowd",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Cafe Luna") {
		t.Fatalf("venue name not rendered: %q", out)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Render("nonexistent", nil); err == nil {
		t.Fatal("unknown template must error")
	}
}
