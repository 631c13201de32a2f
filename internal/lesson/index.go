package lesson

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/muesli/gitcha"
	"github.com/sahilm/fuzzy"
)

// IndexFile is the name of a generated lesson index.
const IndexFile = "index.json"

// IndexEntry describes one lesson file found on disk.
type IndexEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

var lessonPatterns = []string{"*.json", "*.xml"}

var xmlTitle = regexp.MustCompile(`(?i)<title>(.*?)</title>`)

// BuildIndex scans dir recursively for lesson documents, honouring
// .gitignore rules, and returns one entry per file sorted by id.
func BuildIndex(dir string) ([]IndexEntry, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	ch, err := gitcha.FindFilesExcept(dir, lessonPatterns, nil)
	if err != nil {
		return nil, err
	}

	var entries []IndexEntry
	for res := range ch {
		if filepath.Base(res.Path) == IndexFile {
			continue
		}
		content, err := os.ReadFile(res.Path)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(dir, res.Path)
		if err != nil {
			rel = res.Path
		}
		entries = append(entries, IndexEntry{
			ID:   strings.TrimSuffix(filepath.Base(res.Path), filepath.Ext(res.Path)),
			Name: titleOf(res.Path, content),
			Path: rel,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// WriteIndex writes entries as index.json inside dir.
func WriteIndex(dir string, entries []IndexEntry) (string, error) {
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, IndexFile)
	return path, os.WriteFile(path, data, 0o644) //nolint:gosec
}

// Filter returns the entries whose name fuzzily matches query, best match
// first. An empty query returns entries unchanged.
func Filter(entries []IndexEntry, query string) []IndexEntry {
	if query == "" {
		return entries
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name + " " + e.ID
	}
	matches := fuzzy.Find(query, names)
	out := make([]IndexEntry, 0, len(matches))
	for _, m := range matches {
		out = append(out, entries[m.Index])
	}
	return out
}

func titleOf(path string, content []byte) string {
	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var doc struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(content, &doc); err == nil && doc.Title != "" {
			return doc.Title
		}
	case ".xml":
		if m := xmlTitle.FindSubmatch(content); m != nil {
			return string(m[1])
		}
	}
	return fallback
}
