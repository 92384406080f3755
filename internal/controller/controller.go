// Package controller holds the client-side review state for one draft:
// the current mode, the loaded annotations, the selection, and the pending
// (uncommitted) annotation. It dispatches all mutations through a Client
// and reconciles by full reload, never by patching.
package controller

import (
	"github.com/rs/zerolog"

	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/store"
)

// Mode is the controller's interaction mode.
type Mode string

const (
	ModeView    Mode = "view"
	ModeComment Mode = "comment"
	ModeDraw    Mode = "draw"
)

// Client is the mutation surface the controller dispatches through. The
// store satisfies it directly for local use; httpapi.Client satisfies it
// against a running server.
type Client interface {
	Create(in annotation.Input) (*annotation.Annotation, error)
	List(f store.Filter) ([]*annotation.Annotation, error)
	Update(id string, u annotation.Update) (*annotation.Annotation, error)
	Resolve(id string) (*store.CascadeResult, error)
	Delete(id string) (*store.CascadeResult, error)
}

var _ Client = (*store.Store)(nil)

// Pending is an uncommitted annotation awaiting a content decision.
type Pending struct {
	Type      annotation.Type
	Selectors annotation.SelectorList
}

// Controller is the per-draft, per-session review state. It is not safe
// for concurrent use; callers drive it from a single event loop.
type Controller struct {
	client    Client
	log       zerolog.Logger
	draftSlug string

	mode         Mode
	roots        []*annotation.Annotation
	selectedID   string
	replyToID    string
	pending      *Pending
	showResolved bool
}

// New returns a controller for one draft. Call Refresh to load.
func New(client Client, draftSlug string, log zerolog.Logger) *Controller {
	return &Controller{
		client:    client,
		log:       log.With().Str("draft", draftSlug).Logger(),
		draftSlug: draftSlug,
		mode:      ModeView,
	}
}

// Refresh reloads the draft's full annotation set, replacing the cached
// state. Replies are attached to their roots; the selection is kept when
// the selected annotation still exists.
func (c *Controller) Refresh() error {
	all, err := c.client.List(store.Filter{DraftSlug: c.draftSlug})
	if err != nil {
		return err
	}

	byID := make(map[string]*annotation.Annotation, len(all))
	var roots []*annotation.Annotation
	for _, a := range all {
		a.Replies = nil
		byID[a.ID] = a
		if a.IsRoot() {
			roots = append(roots, a)
		}
	}
	for _, a := range all {
		if a.ParentID == nil {
			continue
		}
		if parent, ok := byID[*a.ParentID]; ok {
			parent.Replies = append(parent.Replies, a)
		}
	}

	c.roots = roots
	if c.selectedID != "" {
		if _, ok := byID[c.selectedID]; !ok {
			c.selectedID = ""
		}
	}
	if c.replyToID != "" {
		if _, ok := byID[c.replyToID]; !ok {
			c.replyToID = ""
		}
	}
	return nil
}

// Mode returns the current interaction mode.
func (c *Controller) Mode() Mode { return c.mode }

// Pending returns the uncommitted annotation, if any.
func (c *Controller) Pending() *Pending { return c.pending }

// ShowResolved reports whether resolved annotations are visible.
func (c *Controller) ShowResolved() bool { return c.showResolved }

// SetShowResolved toggles the resolved filter. Hiding the selected
// annotation clears the selection.
func (c *Controller) SetShowResolved(show bool) {
	c.showResolved = show
	if sel := c.Selected(); sel != nil && !c.visible(sel) {
		c.selectedID = ""
	}
}

// ToggleComment switches view↔comment. Entering from draw switches
// directly. Any pending annotation is discarded.
func (c *Controller) ToggleComment() {
	c.switchMode(ModeComment)
}

// ToggleDraw switches view↔draw, discarding any pending annotation.
func (c *Controller) ToggleDraw() {
	c.switchMode(ModeDraw)
}

func (c *Controller) switchMode(m Mode) {
	c.pending = nil
	if c.mode == m {
		c.mode = ModeView
		return
	}
	c.mode = m
}

// Escape returns to view mode, discarding the pending annotation, the
// selection, and any reply focus.
func (c *Controller) Escape() {
	c.mode = ModeView
	c.pending = nil
	c.selectedID = ""
	c.replyToID = ""
}

// BeginHighlight records a completed text selection as the pending
// annotation. Only meaningful in comment mode; other modes ignore it.
func (c *Controller) BeginHighlight(selectors annotation.SelectorList) {
	if c.mode != ModeComment || len(selectors) == 0 {
		return
	}
	c.pending = &Pending{Type: annotation.TypeTextHighlight, Selectors: selectors}
}

// BeginRectangle records a completed drag as the pending annotation.
// Only meaningful in draw mode.
func (c *Controller) BeginRectangle(sel annotation.RectangleSelector) {
	if c.mode != ModeDraw {
		return
	}
	c.pending = &Pending{
		Type:      annotation.TypeRectangle,
		Selectors: annotation.SelectorList{sel},
	}
}

// SubmitPending commits the pending annotation with the given content.
// On success the pending draft is cleared, the mode returns to view, and
// the annotation set is reloaded. On failure the pending draft stays so
// the user does not lose the in-progress comment.
func (c *Controller) SubmitPending(content string) {
	if c.pending == nil {
		return
	}
	created, err := c.client.Create(annotation.Input{
		DraftSlug: c.draftSlug,
		Type:      c.pending.Type,
		Content:   content,
		Selectors: c.pending.Selectors,
	})
	if err != nil {
		c.log.Error().Err(err).Msg("create failed")
		return
	}
	c.pending = nil
	c.mode = ModeView
	c.selectedID = created.ID
	c.reload()
}

// CancelPending discards the pending annotation without leaving the mode.
func (c *Controller) CancelPending() {
	c.pending = nil
}

// Visible returns the root annotations the current filter shows, in
// creation order.
func (c *Controller) Visible() []*annotation.Annotation {
	var out []*annotation.Annotation
	for _, a := range c.roots {
		if c.visible(a) {
			out = append(out, a)
		}
	}
	return out
}

func (c *Controller) visible(a *annotation.Annotation) bool {
	switch a.Status {
	case annotation.StatusArchived:
		return false
	case annotation.StatusResolved:
		return c.showResolved
	default:
		return true
	}
}

// Selected returns the selected annotation, or nil.
func (c *Controller) Selected() *annotation.Annotation {
	if c.selectedID == "" {
		return nil
	}
	for _, a := range c.roots {
		if a.ID == c.selectedID {
			return a
		}
	}
	return nil
}

// Select sets the selection directly, e.g. from a pin click.
func (c *Controller) Select(id string) {
	c.selectedID = id
}

// SelectNext moves the selection to the next visible annotation, wrapping
// at the end. With nothing selected it jumps to the first. Empty visible
// set is a no-op.
func (c *Controller) SelectNext() {
	c.step(1)
}

// SelectPrevious moves to the previous visible annotation, wrapping at the
// start. With nothing selected it jumps to the last.
func (c *Controller) SelectPrevious() {
	c.step(-1)
}

func (c *Controller) step(dir int) {
	vis := c.Visible()
	if len(vis) == 0 {
		return
	}
	idx := -1
	for i, a := range vis {
		if a.ID == c.selectedID {
			idx = i
			break
		}
	}
	if idx < 0 {
		if dir > 0 {
			c.selectedID = vis[0].ID
		} else {
			c.selectedID = vis[len(vis)-1].ID
		}
		return
	}
	c.selectedID = vis[(idx+dir+len(vis))%len(vis)].ID
}

// ResolveSelected resolves the selected annotation and its direct
// replies. No-op without a selection; failures are logged and leave the
// cached state untouched.
func (c *Controller) ResolveSelected() {
	sel := c.Selected()
	if sel == nil {
		return
	}
	res, err := c.client.Resolve(sel.ID)
	if err != nil {
		c.log.Error().Err(err).Str("id", sel.ID).Msg("resolve failed")
		return
	}
	c.log.Debug().Str("id", sel.ID).Int("replies", res.RepliesAffected).Msg("resolved")
	c.reload()
}

// DeleteSelected deletes the selected annotation and its direct replies.
func (c *Controller) DeleteSelected() {
	sel := c.Selected()
	if sel == nil {
		return
	}
	if _, err := c.client.Delete(sel.ID); err != nil {
		c.log.Error().Err(err).Str("id", sel.ID).Msg("delete failed")
		return
	}
	c.selectedID = ""
	c.reload()
}

// UpdateSelected applies a content/status/color patch to the selection.
func (c *Controller) UpdateSelected(u annotation.Update) {
	sel := c.Selected()
	if sel == nil {
		return
	}
	if _, err := c.client.Update(sel.ID, u); err != nil {
		c.log.Error().Err(err).Str("id", sel.ID).Msg("update failed")
		return
	}
	c.reload()
}

// SubmitReply creates a reply under the reply-focused annotation and
// clears the focus on success. Replies inherit the parent's type and
// selectors; they are never independently anchored.
func (c *Controller) SubmitReply(content string) {
	if c.replyToID == "" {
		return
	}
	parent := c.Selected()
	if parent == nil || parent.ID != c.replyToID {
		parent = c.find(c.replyToID)
	}
	if parent == nil {
		return
	}
	parentID := c.replyToID
	_, err := c.client.Create(annotation.Input{
		DraftSlug: c.draftSlug,
		Type:      parent.Type,
		Content:   content,
		Selectors: parent.Selectors,
		ParentID:  &parentID,
	})
	if err != nil {
		c.log.Error().Err(err).Str("parent", parentID).Msg("reply failed")
		return
	}
	c.replyToID = ""
	c.reload()
}

// ReplyFocus returns the id of the annotation whose reply box has focus,
// or "".
func (c *Controller) ReplyFocus() string { return c.replyToID }

func (c *Controller) find(id string) *annotation.Annotation {
	for _, a := range c.roots {
		if a.ID == id {
			return a
		}
		for _, r := range a.Replies {
			if r.ID == id {
				return r
			}
		}
	}
	return nil
}

// reload refetches after a successful mutation. A reload failure only
// logs: the mutation already happened, the cache is just stale.
func (c *Controller) reload() {
	if err := c.Refresh(); err != nil {
		c.log.Error().Err(err).Msg("refetch failed")
	}
}

// HandleKey implements the keyboard contract. Keys are ignored while a
// text input has focus, except Escape.
func (c *Controller) HandleKey(key string, inputFocused bool) {
	if inputFocused && key != "esc" {
		return
	}
	switch key {
	case "c":
		c.ToggleComment()
	case "d":
		c.ToggleDraw()
	case "esc":
		c.Escape()
	case "j":
		c.SelectNext()
	case "k":
		c.SelectPrevious()
	case " ":
		c.ResolveSelected()
	case "r":
		if sel := c.Selected(); sel != nil {
			c.replyToID = sel.ID
		}
	}
}
