package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/klaboworld/marginalia/internal/annotation"
)

func testInput(slug string) annotation.Input {
	return annotation.Input{
		DraftSlug: slug,
		Type:      annotation.TypeTextHighlight,
		Content:   "tighten this sentence",
		Selectors: annotation.SelectorList{
			annotation.TextQuoteSelector{Exact: "this sentence"},
		},
	}
}

func mustCreate(t *testing.T, s *Store, in annotation.Input) *annotation.Annotation {
	t.Helper()
	a, err := s.Create(in)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return a
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSiteDatabase(t *testing.T) {
	sitePath := t.TempDir()
	s, err := Open(sitePath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, err := filepath.Glob(filepath.Join(sitePath, ".marginalia", "annotations.db")); err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	n, err := s.CountAll()
	if err != nil || n != 0 {
		t.Errorf("expected empty store, got n=%d err=%v", n, err)
	}
}

func TestCreate(t *testing.T) {
	t.Run("root gets sequential pins", func(t *testing.T) {
		s := openTestStore(t)

		first := mustCreate(t, s, testInput("post-a"))
		second := mustCreate(t, s, testInput("post-a"))
		other := mustCreate(t, s, testInput("post-b"))

		if first.PinNumber == nil || *first.PinNumber != 1 {
			t.Errorf("expected pin 1, got %v", first.PinNumber)
		}
		if second.PinNumber == nil || *second.PinNumber != 2 {
			t.Errorf("expected pin 2, got %v", second.PinNumber)
		}
		if other.PinNumber == nil || *other.PinNumber != 1 {
			t.Errorf("pins should be per draft, got %v", other.PinNumber)
		}
		if first.Status != annotation.StatusOpen {
			t.Errorf("expected OPEN, got %s", first.Status)
		}
	})

	t.Run("pins never reused after delete", func(t *testing.T) {
		s := openTestStore(t)

		mustCreate(t, s, testInput("post"))
		second := mustCreate(t, s, testInput("post"))

		if _, err := s.Delete(second.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		third := mustCreate(t, s, testInput("post"))
		if third.PinNumber == nil || *third.PinNumber != 3 {
			t.Errorf("expected pin 3 after deleting pin 2, got %v", third.PinNumber)
		}
	})

	t.Run("reply inherits depth and has no pin", func(t *testing.T) {
		s := openTestStore(t)

		root := mustCreate(t, s, testInput("post"))

		in := testInput("post")
		in.ParentID = &root.ID
		reply := mustCreate(t, s, in)

		if reply.PinNumber != nil {
			t.Errorf("reply should have no pin, got %v", *reply.PinNumber)
		}
		if reply.Depth != root.Depth+1 {
			t.Errorf("expected depth %d, got %d", root.Depth+1, reply.Depth)
		}

		in2 := testInput("post")
		in2.ParentID = &reply.ID
		nested := mustCreate(t, s, in2)
		if nested.Depth != 2 {
			t.Errorf("expected depth 2, got %d", nested.Depth)
		}
	})

	t.Run("reply to missing parent fails with not found", func(t *testing.T) {
		s := openTestStore(t)

		missing := "does-not-exist"
		in := testInput("post")
		in.ParentID = &missing
		_, err := s.Create(in)
		if !errors.Is(err, ErrAnnotationNotFound) {
			t.Errorf("expected ErrAnnotationNotFound, got %v", err)
		}
	})

	t.Run("validation runs before persistence", func(t *testing.T) {
		s := openTestStore(t)

		in := testInput("post")
		in.Content = ""
		if _, err := s.Create(in); err == nil {
			t.Fatal("expected validation error")
		}
		n, _ := s.Count("post")
		if n != 0 {
			t.Errorf("invalid input must not persist, count=%d", n)
		}
	})
}

func TestResolve(t *testing.T) {
	t.Run("cascades one hop with shared timestamp", func(t *testing.T) {
		s := openTestStore(t)

		root := mustCreate(t, s, testInput("post"))
		for i := 0; i < 3; i++ {
			in := testInput("post")
			in.ParentID = &root.ID
			mustCreate(t, s, in)
		}
		// Reply-of-reply must not be cascaded.
		replies, _ := s.List(Filter{ParentID: &root.ID})
		deep := testInput("post")
		deep.ParentID = &replies[0].ID
		nested := mustCreate(t, s, deep)

		res, err := s.Resolve(root.ID)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if res.RepliesAffected != 3 {
			t.Errorf("expected 3 replies resolved, got %d", res.RepliesAffected)
		}
		if res.Annotation.Status != annotation.StatusResolved || res.Annotation.ResolvedAt == nil {
			t.Errorf("root not resolved: %+v", res.Annotation)
		}

		for _, r := range replies {
			got, err := s.Get(r.ID, false)
			if err != nil {
				t.Fatalf("Get reply failed: %v", err)
			}
			if got.Status != annotation.StatusResolved {
				t.Errorf("reply %s not resolved", r.ID)
			}
			if got.ResolvedAt == nil || !got.ResolvedAt.Equal(*res.Annotation.ResolvedAt) {
				t.Errorf("reply %s resolvedAt differs from root", r.ID)
			}
		}

		got, _ := s.Get(nested.ID, false)
		if got.Status != annotation.StatusOpen {
			t.Errorf("reply-of-reply must stay OPEN, got %s", got.Status)
		}
	})

	t.Run("missing id fails", func(t *testing.T) {
		s := openTestStore(t)
		if _, err := s.Resolve("nope"); !errors.Is(err, ErrAnnotationNotFound) {
			t.Errorf("expected ErrAnnotationNotFound, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	t.Run("removes direct replies first", func(t *testing.T) {
		s := openTestStore(t)

		root := mustCreate(t, s, testInput("post"))
		for i := 0; i < 2; i++ {
			in := testInput("post")
			in.ParentID = &root.ID
			mustCreate(t, s, in)
		}

		res, err := s.Delete(root.ID)
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if res.RepliesAffected != 2 {
			t.Errorf("expected 2 replies deleted, got %d", res.RepliesAffected)
		}
		if res.Annotation == nil || res.Annotation.ID != root.ID {
			t.Fatalf("expected a snapshot of the deleted annotation, got %+v", res.Annotation)
		}
		if res.Annotation.PinNumber == nil || *res.Annotation.PinNumber != *root.PinNumber {
			t.Errorf("snapshot should keep the pin number, got %+v", res.Annotation.PinNumber)
		}
		if _, err := s.Get(root.ID, false); !errors.Is(err, ErrAnnotationNotFound) {
			t.Errorf("root should be gone, got %v", err)
		}
		n, _ := s.Count("post")
		if n != 0 {
			t.Errorf("expected empty draft, count=%d", n)
		}
	})

	t.Run("missing id fails", func(t *testing.T) {
		s := openTestStore(t)
		if _, err := s.Delete("nope"); !errors.Is(err, ErrAnnotationNotFound) {
			t.Errorf("expected ErrAnnotationNotFound, got %v", err)
		}
	})
}

func TestListAndGet(t *testing.T) {
	s := openTestStore(t)

	root := mustCreate(t, s, testInput("post"))
	in := testInput("post")
	in.ParentID = &root.ID
	reply := mustCreate(t, s, in)
	mustCreate(t, s, testInput("other"))

	t.Run("filter by draft", func(t *testing.T) {
		got, err := s.List(Filter{DraftSlug: "post"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 annotations, got %d", len(got))
		}
	})

	t.Run("roots only", func(t *testing.T) {
		got, err := s.List(Filter{DraftSlug: "post", RootsOnly: true})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != root.ID {
			t.Errorf("expected only root, got %d results", len(got))
		}
	})

	t.Run("filter by status", func(t *testing.T) {
		if _, err := s.Resolve(root.ID); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		open := annotation.StatusOpen
		got, err := s.List(Filter{Status: &open})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(got) != 1 || got[0].DraftSlug != "other" {
			t.Errorf("expected one open annotation on 'other', got %d", len(got))
		}
	})

	t.Run("get with replies", func(t *testing.T) {
		got, err := s.Get(root.ID, true)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got.Replies) != 1 || got.Replies[0].ID != reply.ID {
			t.Errorf("expected attached reply, got %+v", got.Replies)
		}
	})

	t.Run("selectors survive storage", func(t *testing.T) {
		got, err := s.Get(root.ID, false)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		q, ok := got.Selectors.FirstQuote()
		if !ok || q.Exact != "this sentence" {
			t.Errorf("selector corrupted: %+v", got.Selectors)
		}
	})
}

func TestArchiveOrphaned(t *testing.T) {
	s := openTestStore(t)

	a := mustCreate(t, s, testInput("post"))
	b := mustCreate(t, s, testInput("post"))
	other := mustCreate(t, s, testInput("other"))

	n, err := s.ArchiveOrphaned("post", []string{a.ID, other.ID})
	if err != nil {
		t.Fatalf("ArchiveOrphaned failed: %v", err)
	}
	// other belongs to a different draft and must not be touched.
	if n != 1 {
		t.Errorf("expected 1 archived, got %d", n)
	}

	got, _ := s.Get(a.ID, false)
	if got.Status != annotation.StatusArchived {
		t.Errorf("expected ARCHIVED, got %s", got.Status)
	}
	got, _ = s.Get(b.ID, false)
	if got.Status != annotation.StatusOpen {
		t.Errorf("untargeted annotation must stay OPEN, got %s", got.Status)
	}

	if n, _ := s.ArchiveOrphaned("post", nil); n != 0 {
		t.Errorf("empty id list should be a no-op, got %d", n)
	}
}

func TestMaxPinNumber(t *testing.T) {
	s := openTestStore(t)

	if n, err := s.MaxPinNumber("post"); err != nil || n != 0 {
		t.Errorf("expected 0 for empty draft, got n=%d err=%v", n, err)
	}
	mustCreate(t, s, testInput("post"))
	mustCreate(t, s, testInput("post"))
	if n, _ := s.MaxPinNumber("post"); n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
}

func TestUpdate(t *testing.T) {
	s := openTestStore(t)
	a := mustCreate(t, s, testInput("post"))

	content := "reworded"
	color := "#10B981"
	got, err := s.Update(a.ID, annotation.Update{Content: &content, Color: &color})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Content != "reworded" || got.Color != "#10B981" {
		t.Errorf("update not applied: %+v", got)
	}
	if !got.UpdatedAt.After(a.UpdatedAt) && !got.UpdatedAt.Equal(a.UpdatedAt) {
		t.Errorf("updatedAt went backwards")
	}

	bad := "not-a-color"
	if _, err := s.Update(a.ID, annotation.Update{Color: &bad}); err == nil {
		t.Error("expected validation error for bad color")
	}
	if _, err := s.Update("missing", annotation.Update{Content: &content}); !errors.Is(err, ErrAnnotationNotFound) {
		t.Errorf("expected ErrAnnotationNotFound, got %v", err)
	}
}
