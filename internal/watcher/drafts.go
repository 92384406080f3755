package watcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/klaboworld/marginalia/internal/anchor"
	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/draft"
	"github.com/klaboworld/marginalia/internal/store"
)

// debounceDelay coalesces editor write bursts before re-anchoring.
const debounceDelay = 300 * time.Millisecond

// reanchorCols is the layout width annotations are validated against.
const reanchorCols = 80

// watchDrafts starts an fsnotify watch on the drafts directory. Edited
// drafts are re-anchored after a debounce window; root annotations whose
// text selectors no longer locate are archived. The poll loop then picks
// the status changes up and broadcasts them like any other update.
func (w *Watcher) watchDrafts(ctx context.Context) (stop func(), err error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(w.cfg.DraftsDir); err != nil {
		fw.Close()
		return nil, err
	}

	d := &draftWatch{
		store:   w.cfg.Store,
		log:     w.log,
		pending: make(map[string]time.Time),
	}

	watchCtx, cancel := context.WithCancel(ctx)
	go d.eventLoop(watchCtx, fw)
	go d.processDebounced(watchCtx)

	return func() {
		cancel()
		fw.Close()
	}, nil
}

type draftWatch struct {
	store *store.Store
	log   zerolog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

func (d *draftWatch) eventLoop(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !isDraftPath(event.Name) {
				continue
			}
			d.mu.Lock()
			d.pending[event.Name] = time.Now()
			d.mu.Unlock()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			d.log.Debug().Err(err).Msg("draft watch error")
		}
	}
}

// processDebounced re-anchors drafts whose last event is older than the
// debounce window.
func (d *draftWatch) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			now := time.Now()
			var ready []string
			for path, at := range d.pending {
				if now.Sub(at) >= debounceDelay {
					ready = append(ready, path)
					delete(d.pending, path)
				}
			}
			d.mu.Unlock()

			for _, path := range ready {
				if err := d.reanchor(path); err != nil {
					d.log.Error().Err(err).Str("path", path).Msg("re-anchor failed")
				}
			}
		}
	}
}

// reanchor loads the draft, anchors every open root annotation against its
// current text, and archives the ones that no longer locate.
func (d *draftWatch) reanchor(path string) error {
	doc, err := draft.Load(path)
	if err != nil {
		return err
	}

	open := annotation.StatusOpen
	roots, err := d.store.List(store.Filter{
		DraftSlug: doc.Slug,
		Status:    &open,
		RootsOnly: true,
	})
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		return nil
	}

	layout := anchor.NewLayout(draft.PlainText(doc.Body), reanchorCols)
	var orphaned []string
	for _, a := range roots {
		if !anchorsToText(a) {
			continue
		}
		if _, ok := layout.AnchorAnnotation(a); !ok {
			orphaned = append(orphaned, a.ID)
		}
	}
	if len(orphaned) == 0 {
		return nil
	}

	n, err := d.store.ArchiveOrphaned(doc.Slug, orphaned)
	if err != nil {
		return err
	}
	d.log.Info().Str("draft", doc.Slug).Int("archived", n).Msg("archived orphaned annotations")
	return nil
}

// anchorsToText reports whether the annotation's placement depends on the
// draft text. Region annotations scale to any layout, so edits cannot
// orphan them.
func anchorsToText(a *annotation.Annotation) bool {
	for _, sel := range a.Selectors {
		switch sel.(type) {
		case annotation.TextQuoteSelector, annotation.TextPositionSelector:
			return true
		}
	}
	return false
}

func isDraftPath(path string) bool {
	return strings.HasSuffix(path, ".md") || strings.HasSuffix(path, ".mdx")
}
