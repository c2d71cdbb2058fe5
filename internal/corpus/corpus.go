// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus persists the capacity-news article corpus as a single
// JSON document and maintains its SQLite retrieval index.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/capacity-news/pkg/types"
)

// legacyFields carries field spellings older corpus files used before the
// schema settled.
type legacyFields struct {
	PublishedDate string `json:"published_date"`
	Date          string `json:"date"`
	Source        string `json:"source"`
}

// Load reads the corpus from path. The document may be a flat JSON list
// or wrapped as {"articles": [...]}. A missing file is an empty corpus,
// not an error. Legacy field spellings are normalized on the way in.
func Load(path string) ([]types.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var wrapper struct {
			Articles []json.RawMessage `json:"articles"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("parsing corpus %s: %w", path, err)
		}
		raw = wrapper.Articles
	}

	articles := make([]types.Article, 0, len(raw))
	for i, msg := range raw {
		var article types.Article
		if err := json.Unmarshal(msg, &article); err != nil {
			return nil, fmt.Errorf("parsing corpus record %d: %w", i, err)
		}
		var legacy legacyFields
		json.Unmarshal(msg, &legacy)
		articles = append(articles, normalize(article, legacy))
	}
	return articles, nil
}

// normalize fills defaults and folds legacy spellings into the current
// field set.
func normalize(a types.Article, legacy legacyFields) types.Article {
	if a.PublishedAt == "" {
		if legacy.PublishedDate != "" {
			a.PublishedAt = legacy.PublishedDate
		} else {
			a.PublishedAt = legacy.Date
		}
	}
	if a.Outlet == "" {
		a.Outlet = legacy.Source
	}
	if a.Outlet == "" {
		a.Outlet = "Unknown"
	}
	if a.Title == "" {
		a.Title = "Untitled"
	}
	if a.Status == "" {
		a.Status = types.StatusNotPertinent
	}
	return a
}

// Save writes the corpus atomically: marshal to a temp file in the target
// directory, then rename over path. A failed write never clobbers the
// previous corpus.
func Save(path string, articles []types.Article) error {
	if articles == nil {
		articles = []types.Article{}
	}
	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling corpus: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating corpus directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".corpus-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing corpus: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
