package faq

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
)

// LoadFromDB reads the knowledge base from the faq table, ordered by
// position so that tie-breaking stays stable across restarts.
func LoadFromDB(ctx context.Context, db *sqlx.DB) ([]Entry, error) {
	var entries []Entry
	query := `SELECT question, answer FROM faq ORDER BY position, id`
	if err := db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("faq: select entries: %w", err)
	}
	return entries, nil
}

// LoadFromFile reads the knowledge base from a YAML file with a
// top-level `entries` list.
func LoadFromFile(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("faq: read %s: %w", path, err)
	}
	var doc struct {
		Entries []Entry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("faq: parse %s: %w", path, err)
	}
	if len(doc.Entries) == 0 {
		return nil, fmt.Errorf("faq: %s contains no entries", path)
	}
	for i, e := range doc.Entries {
		if e.Question == "" || e.Answer == "" {
			return nil, fmt.Errorf("faq: %s entry %d missing question or answer", path, i)
		}
	}
	return doc.Entries, nil
}
