// Package draft handles loading the markdown/MDX drafts that annotations
// anchor to.
package draft

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	goslug "github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
)

// Draft is one blog post in progress, identified by its slug.
type Draft struct {
	Slug        string
	Title       string
	FilePath    string
	Frontmatter map[string]interface{}
	Body        string // markdown body, frontmatter stripped
}

// DraftsDir returns the drafts directory for a site.
func DraftsDir(sitePath string) string {
	return filepath.Join(sitePath, "drafts")
}

// Slugify derives a draft slug from a filename or title.
func Slugify(s string) string {
	s = strings.TrimSuffix(strings.TrimSuffix(s, ".mdx"), ".md")
	slugged := goslug.Make(s)
	if slugged == "" {
		slugged = strings.ToLower(strings.ReplaceAll(s, " ", "-"))
	}
	return slugged
}

// Load reads and parses a single draft file.
func Load(path string) (*Draft, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}
	return Parse(string(content), path)
}

// Parse splits frontmatter from body and derives slug/title. The slug comes
// from the frontmatter `slug` field when present, otherwise the filename.
func Parse(content, path string) (*Draft, error) {
	d := &Draft{
		FilePath:    path,
		Frontmatter: map[string]interface{}{},
		Body:        content,
	}

	if raw, body, ok := splitFrontmatter(content); ok {
		var fm map[string]interface{}
		if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter in %s: %w", path, err)
		}
		if fm != nil {
			d.Frontmatter = fm
		}
		d.Body = body
	}

	if s, ok := d.Frontmatter["slug"].(string); ok && s != "" {
		d.Slug = Slugify(s)
	} else {
		d.Slug = Slugify(filepath.Base(path))
	}
	if t, ok := d.Frontmatter["title"].(string); ok {
		d.Title = t
	}
	return d, nil
}

// splitFrontmatter returns the raw frontmatter and remaining body. It only
// detects frontmatter when the first line is '---'; an unclosed block is
// treated as body.
func splitFrontmatter(content string) (raw, body string, ok bool) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", content, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), true
		}
	}
	return "", content, false
}

// List discovers all drafts under the site's drafts directory, sorted by
// slug.
func List(sitePath string) ([]*Draft, error) {
	dir := DraftsDir(sitePath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read drafts directory: %w", err)
	}

	var drafts []*Draft
	for _, entry := range entries {
		if entry.IsDir() || !isDraftFile(entry.Name()) {
			continue
		}
		d, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}

	sort.Slice(drafts, func(i, j int) bool { return drafts[i].Slug < drafts[j].Slug })
	return drafts, nil
}

// Find locates a draft by slug.
func Find(sitePath, slug string) (*Draft, error) {
	drafts, err := List(sitePath)
	if err != nil {
		return nil, err
	}
	for _, d := range drafts {
		if d.Slug == slug {
			return d, nil
		}
	}
	return nil, fmt.Errorf("draft %q not found under %s", slug, DraftsDir(sitePath))
}

func isDraftFile(name string) bool {
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".mdx")
}
