// Package watcher is the change-notification daemon: a polling loop that
// diffs the annotation table against an in-memory snapshot and fans the
// changes out to local subscribers over a Unix socket. It also watches the
// drafts directory and archives annotations whose anchors no longer locate
// after an edit.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/store"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultSocketPath   = "/tmp/marginalia.sock"
	DefaultPollInterval = 500 * time.Millisecond
)

// Config is the watcher's complete configuration. The daemon reads no
// environment variables itself; the caller resolves those into this
// struct.
type Config struct {
	Store        *store.Store
	SocketPath   string
	PollInterval time.Duration

	// DraftsDir enables the orphan-archival file watch when non-empty.
	DraftsDir string

	Log zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.SocketPath == "" {
		c.SocketPath = DefaultSocketPath
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// Change kinds: one annotation's movement between two polls.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// Change is one classified difference between polls. Deleted changes carry
// only the id.
type Change struct {
	Kind       string                 `json:"kind"`
	ID         string                 `json:"id"`
	Annotation *annotation.Annotation `json:"annotation,omitempty"`
}

// snapEntry is what the diff compares per annotation.
type snapEntry struct {
	updatedAt time.Time
	status    annotation.Status
}

// Watcher polls the store and broadcasts changes. Create with New, drive
// with Run.
type Watcher struct {
	cfg Config
	log zerolog.Logger

	hub *hub

	snapshot  map[string]snapEntry
	lastCheck time.Time
}

// New validates the config and returns an unstarted watcher.
func New(cfg Config) (*Watcher, error) {
	cfg = cfg.withDefaults()
	if cfg.Store == nil {
		return nil, fmt.Errorf("watcher: config requires a store")
	}
	w := &Watcher{
		cfg:      cfg,
		log:      cfg.Log.With().Str("component", "watcher").Logger(),
		snapshot: make(map[string]snapEntry),
	}
	w.hub = newHub(cfg.SocketPath, w.log, w.greeting)
	return w, nil
}

// Run starts the socket listener, the optional draft watch, and the poll
// loop, blocking until ctx is cancelled. The first scan primes the
// snapshot without broadcasting; connected clients never receive a
// backlog.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.prime(); err != nil {
		return fmt.Errorf("priming snapshot: %w", err)
	}

	if err := w.hub.listen(); err != nil {
		return err
	}
	defer w.hub.close()

	if w.cfg.DraftsDir != "" {
		stop, err := w.watchDrafts(ctx)
		if err != nil {
			return fmt.Errorf("watching drafts: %w", err)
		}
		defer stop()
	}

	w.log.Info().
		Str("socket", w.cfg.SocketPath).
		Dur("interval", w.cfg.PollInterval).
		Msg("watcher started")

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("watcher stopping")
			return nil
		case <-ticker.C:
			changes, err := w.poll()
			if err != nil {
				w.log.Error().Err(err).Msg("poll failed")
				continue
			}
			if len(changes) > 0 {
				w.broadcast(changes)
			}
		}
	}
}

// prime loads the current table into the snapshot so polls only report
// movement from here on.
func (w *Watcher) prime() error {
	all, err := w.cfg.Store.ListAll()
	if err != nil {
		return err
	}
	for _, a := range all {
		w.snapshot[a.ID] = snapEntry{updatedAt: a.UpdatedAt, status: a.Status}
	}
	w.lastCheck = time.Now()
	return nil
}

// poll scans the full table, classifies every annotation against the
// snapshot, and replaces the snapshot.
func (w *Watcher) poll() ([]Change, error) {
	all, err := w.cfg.Store.ListAll()
	if err != nil {
		return nil, err
	}

	next := make(map[string]snapEntry, len(all))
	var changes []Change

	for _, a := range all {
		next[a.ID] = snapEntry{updatedAt: a.UpdatedAt, status: a.Status}
		prev, known := w.snapshot[a.ID]
		switch {
		case !known:
			changes = append(changes, Change{Kind: ChangeCreated, ID: a.ID, Annotation: a})
		case !prev.updatedAt.Equal(a.UpdatedAt) || prev.status != a.Status:
			changes = append(changes, Change{Kind: ChangeUpdated, ID: a.ID, Annotation: a})
		}
	}
	for id := range w.snapshot {
		if _, ok := next[id]; !ok {
			changes = append(changes, Change{Kind: ChangeDeleted, ID: id})
		}
	}

	w.snapshot = next
	w.lastCheck = time.Now()
	return changes, nil
}

func (w *Watcher) broadcast(changes []Change) {
	w.log.Debug().Int("changes", len(changes)).Msg("broadcasting")
	w.hub.broadcast(changesMessage{
		Type:      "annotations",
		Changes:   changes,
		Timestamp: time.Now(),
	})
}

// greeting is sent to every new client: current count and last check time,
// no backlog.
func (w *Watcher) greeting() connectedMessage {
	count, err := w.cfg.Store.CountAll()
	if err != nil {
		w.log.Error().Err(err).Msg("counting annotations")
	}
	return connectedMessage{
		Type:      "connected",
		Count:     count,
		LastCheck: w.lastCheck,
	}
}
