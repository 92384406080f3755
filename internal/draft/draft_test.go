package draft

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	t.Run("frontmatter slug wins over filename", func(t *testing.T) {
		content := "---\ntitle: My Post\nslug: Custom Slug\n---\n\nBody text."
		d, err := Parse(content, "/site/drafts/some-file.mdx")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if d.Slug != "custom-slug" {
			t.Errorf("expected slug custom-slug, got %s", d.Slug)
		}
		if d.Title != "My Post" {
			t.Errorf("expected title, got %q", d.Title)
		}
		if strings.Contains(d.Body, "---") {
			t.Errorf("frontmatter leaked into body: %q", d.Body)
		}
	})

	t.Run("filename slug fallback", func(t *testing.T) {
		d, err := Parse("No frontmatter here.", "/site/drafts/Hello World.md")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if d.Slug != "hello-world" {
			t.Errorf("expected hello-world, got %s", d.Slug)
		}
		if d.Body != "No frontmatter here." {
			t.Errorf("body altered: %q", d.Body)
		}
	})

	t.Run("unclosed frontmatter treated as body", func(t *testing.T) {
		content := "---\ntitle: broken\n\nstill the body"
		d, err := Parse(content, "/site/drafts/x.md")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if d.Body != content {
			t.Errorf("unclosed frontmatter should be kept as body")
		}
	})

	t.Run("bad yaml is an error", func(t *testing.T) {
		content := "---\ntitle: [unclosed\n---\nbody"
		if _, err := Parse(content, "/site/drafts/x.md"); err == nil {
			t.Fatal("expected yaml error")
		}
	})
}

func TestListAndFind(t *testing.T) {
	site := t.TempDir()
	dir := DraftsDir(site)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		"b-post.mdx": "---\ntitle: B\n---\ntext",
		"a-post.md":  "text",
		"notes.txt":  "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	drafts, err := List(site)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
	if drafts[0].Slug != "a-post" || drafts[1].Slug != "b-post" {
		t.Errorf("expected sorted slugs, got %s, %s", drafts[0].Slug, drafts[1].Slug)
	}

	d, err := Find(site, "b-post")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if d.Title != "B" {
		t.Errorf("wrong draft found: %+v", d)
	}

	if _, err := Find(site, "missing"); err == nil {
		t.Error("expected error for missing draft")
	}

	t.Run("missing drafts dir is empty not error", func(t *testing.T) {
		drafts, err := List(t.TempDir())
		if err != nil || drafts != nil {
			t.Errorf("expected nil, nil; got %v, %v", drafts, err)
		}
	})
}

func TestPlainText(t *testing.T) {
	t.Run("inline markup dropped", func(t *testing.T) {
		got := PlainText("Alice **quickly** found *Bob* behind the curtain.")
		want := "Alice quickly found Bob behind the curtain."
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("blocks become lines", func(t *testing.T) {
		got := PlainText("# Title\n\nFirst paragraph.\n\nSecond paragraph.")
		want := "Title\nFirst paragraph.\nSecond paragraph."
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("links keep their text", func(t *testing.T) {
		got := PlainText("See [the docs](https://example.com) for more.")
		if got != "See the docs for more." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("code blocks preserved", func(t *testing.T) {
		got := PlainText("Before.\n\n```\nfunc main() {}\n```\n\nAfter.")
		if !strings.Contains(got, "func main() {}") {
			t.Errorf("code block lost: %q", got)
		}
	})
}
