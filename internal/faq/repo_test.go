package faq

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.yaml")
	data := `entries:
  - question: how to reset password
    answer: "https://example.com/reset"
  - question: where is my order
    answer: "https://example.com/orders"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Question != "how to reset password" {
		t.Fatalf("unexpected first question: %q", entries[0].Question)
	}
}

func TestLoadFromFileRejectsIncompleteEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.yaml")
	data := "entries:\n  - question: missing answer\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected error for entry without answer")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultsComplete(t *testing.T) {
	for _, e := range Defaults() {
		if e.Question == "" || e.Answer == "" {
			t.Fatalf("default entry incomplete: %+v", e)
		}
	}
}
