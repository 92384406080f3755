package watcher

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createRoot(t *testing.T, s *store.Store, draftSlug, content string) *annotation.Annotation {
	t.Helper()
	a, err := s.Create(annotation.Input{
		DraftSlug: draftSlug,
		Type:      annotation.TypeTextHighlight,
		Content:   content,
		Selectors: annotation.SelectorList{annotation.TextQuoteSelector{Exact: content}},
	})
	require.NoError(t, err)
	return a
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Store: openTestStore(t)}.withDefaults()
	assert.Equal(t, DefaultSocketPath, cfg.SocketPath)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
}

func TestPollClassification(t *testing.T) {
	s := openTestStore(t)
	pre := createRoot(t, s, "my-draft", "already here")

	w, err := New(Config{Store: s, Log: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, w.prime())

	// Poll 1: a brand-new id is created.
	created := createRoot(t, s, "my-draft", "fresh")
	changes, err := w.poll()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeCreated, changes[0].Kind)
	assert.Equal(t, created.ID, changes[0].ID)
	require.NotNil(t, changes[0].Annotation)
	assert.Equal(t, "fresh", changes[0].Annotation.Content)

	// Poll 2: a status change is updated.
	_, err = s.Resolve(pre.ID)
	require.NoError(t, err)
	changes, err = w.poll()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeUpdated, changes[0].Kind)
	assert.Equal(t, pre.ID, changes[0].ID)

	// Poll 3: a vanished id is deleted, carrying no record.
	_, err = s.Delete(created.ID)
	require.NoError(t, err)
	changes, err = w.poll()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeDeleted, changes[0].Kind)
	assert.Equal(t, created.ID, changes[0].ID)
	assert.Nil(t, changes[0].Annotation)

	// Poll 4: nothing moved, nothing reported.
	changes, err = w.poll()
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestContentUpdateDetected(t *testing.T) {
	s := openTestStore(t)
	a := createRoot(t, s, "my-draft", "first pass")

	w, err := New(Config{Store: s, Log: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, w.prime())

	// updatedAt has millisecond resolution; make sure the edit lands in a
	// later tick than the create.
	time.Sleep(5 * time.Millisecond)
	content := "second pass"
	_, err = s.Update(a.ID, annotation.Update{Content: &content})
	require.NoError(t, err)

	changes, err := w.poll()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeUpdated, changes[0].Kind)
}

func TestSocketFanout(t *testing.T) {
	s := openTestStore(t)
	createRoot(t, s, "my-draft", "existing")

	socketPath := filepath.Join(t.TempDir(), "w.sock")
	w, err := New(Config{
		Store:        s,
		SocketPath:   socketPath,
		PollInterval: 20 * time.Millisecond,
		Log:          zerolog.Nop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	conn := dialRetry(t, socketPath)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	scanner := bufio.NewScanner(conn)

	// Greeting: current count, no backlog for the existing annotation.
	require.True(t, scanner.Scan(), "expected greeting: %v", scanner.Err())
	var greeting connectedMessage
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &greeting))
	assert.Equal(t, "connected", greeting.Type)
	assert.Equal(t, 1, greeting.Count)

	// Mutate; the next poll should broadcast exactly the new annotation.
	created := createRoot(t, s, "my-draft", "broadcast me")
	require.True(t, scanner.Scan(), "expected change broadcast: %v", scanner.Err())
	var batch changesMessage
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &batch))
	assert.Equal(t, "annotations", batch.Type)
	require.Len(t, batch.Changes, 1)
	assert.Equal(t, ChangeCreated, batch.Changes[0].Kind)
	assert.Equal(t, created.ID, batch.Changes[0].ID)

	cancel()
	require.NoError(t, <-done)

	_, err = os.Stat(socketPath)
	assert.True(t, os.IsNotExist(err), "socket should be removed on shutdown")
}

func dialRetry(t *testing.T, path string) net.Conn {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("unix", path)
		if err == nil {
			return conn
		}
		if time.Now().After(deadline) {
			t.Fatalf("socket never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReanchorArchivesOrphans(t *testing.T) {
	s := openTestStore(t)

	draftsDir := t.TempDir()
	path := filepath.Join(draftsDir, "my-draft.md")
	require.NoError(t, os.WriteFile(path, []byte("Alice found Bob behind the curtain."), 0644))

	anchored, err := s.Create(annotation.Input{
		DraftSlug: "my-draft",
		Type:      annotation.TypeTextHighlight,
		Content:   "still locatable",
		Selectors: annotation.SelectorList{annotation.TextQuoteSelector{Exact: "Bob"}},
	})
	require.NoError(t, err)
	orphan, err := s.Create(annotation.Input{
		DraftSlug: "my-draft",
		Type:      annotation.TypeTextHighlight,
		Content:   "points at deleted text",
		Selectors: annotation.SelectorList{annotation.TextQuoteSelector{Exact: "Zebra"}},
	})
	require.NoError(t, err)
	region, err := s.Create(annotation.Input{
		DraftSlug: "my-draft",
		Type:      annotation.TypeRectangle,
		Content:   "layout note",
		Selectors: annotation.SelectorList{annotation.RectangleSelector{
			X: 1, Y: 1, Width: 30, Height: 30, PageWidth: 640, PageHeight: 480,
		}},
	})
	require.NoError(t, err)

	d := &draftWatch{store: s, log: zerolog.Nop()}
	require.NoError(t, d.reanchor(path))

	got, err := s.Get(orphan.ID, false)
	require.NoError(t, err)
	assert.Equal(t, annotation.StatusArchived, got.Status, "unlocatable quote should be archived")

	got, err = s.Get(anchored.ID, false)
	require.NoError(t, err)
	assert.Equal(t, annotation.StatusOpen, got.Status, "locatable quote stays open")

	got, err = s.Get(region.ID, false)
	require.NoError(t, err)
	assert.Equal(t, annotation.StatusOpen, got.Status, "region annotations are never orphaned")
}
