package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderEmbeddedTemplates(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Render("move.played", map[string]any{"Player": "alice", "SAN": "e4"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "alice") || !strings.Contains(out, "e4") {
		t.Fatalf("unexpected render: %q", out)
	}
}

func TestRenderMissingKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("expected error for missing template")
	}
}

func TestRenderMissingField(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("move.played", map[string]any{"Player": "alice"}); err == nil {
		t.Fatalf("expected error for missing data field")
	}
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	override := "move:\n  played: \"{{.Player}} -> {{.SAN}}\"\n"
	if err := os.WriteFile(filepath.Join(dir, "override.yaml"), []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Render("move.played", map[string]any{"Player": "alice", "SAN": "e4"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "alice -> e4" {
		t.Fatalf("override not applied: %q", out)
	}
	// Non-overridden keys keep their defaults.
	if _, err := c.Render("game.none", nil); err != nil {
		t.Fatalf("default key lost: %v", err)
	}
}
