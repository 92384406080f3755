package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/controller"
	"github.com/klaboworld/marginalia/internal/store"
)

func newTestAPI(t *testing.T) (*Client, *store.Store) {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := httptest.NewServer(NewServer(st, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)

	return NewClient(srv.URL), st
}

func quoteInput(draft, content string) annotation.Input {
	return annotation.Input{
		DraftSlug: draft,
		Type:      annotation.TypeTextHighlight,
		Content:   content,
		Selectors: annotation.SelectorList{annotation.TextQuoteSelector{Exact: content}},
	}
}

func TestCreateAndGet(t *testing.T) {
	client, _ := newTestAPI(t)

	created, err := client.Create(quoteInput("post-one", "needs work"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, annotation.StatusOpen, created.Status)
	require.NotNil(t, created.PinNumber)
	assert.Equal(t, 1, *created.PinNumber)
	assert.Equal(t, annotation.DefaultColor, created.Color)

	got, err := client.Get(created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	require.Len(t, got.Selectors, 1)
	q, ok := got.Selectors[0].(annotation.TextQuoteSelector)
	require.True(t, ok, "selector should round-trip as a quote selector")
	assert.Equal(t, "needs work", q.Exact)
}

func TestListFilters(t *testing.T) {
	client, _ := newTestAPI(t)

	root, err := client.Create(quoteInput("post-one", "root"))
	require.NoError(t, err)

	replyIn := quoteInput("post-one", "reply")
	replyIn.ParentID = &root.ID
	_, err = client.Create(replyIn)
	require.NoError(t, err)

	_, err = client.Create(quoteInput("post-two", "other draft"))
	require.NoError(t, err)

	all, err := client.List(store.Filter{DraftSlug: "post-one"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	roots, err := client.List(store.Filter{DraftSlug: "post-one", RootsOnly: true})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, root.ID, roots[0].ID)

	replies, err := client.List(store.Filter{ParentID: &root.ID})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, 1, replies[0].Depth)

	empty, err := client.List(store.Filter{DraftSlug: "nonexistent"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdateResolveDelete(t *testing.T) {
	client, _ := newTestAPI(t)

	root, err := client.Create(quoteInput("post-one", "root"))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		in := quoteInput("post-one", "reply")
		in.ParentID = &root.ID
		_, err = client.Create(in)
		require.NoError(t, err)
	}

	content := "rewritten"
	updated, err := client.Update(root.ID, annotation.Update{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "rewritten", updated.Content)

	res, err := client.Resolve(root.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RepliesAffected)
	assert.Equal(t, annotation.StatusResolved, res.Annotation.Status)
	assert.NotNil(t, res.Annotation.ResolvedAt)

	del, err := client.Delete(root.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, del.RepliesAffected)

	_, err = client.Get(root.ID, false)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestErrorCodes(t *testing.T) {
	client, _ := newTestAPI(t)

	t.Run("not found", func(t *testing.T) {
		_, err := client.Resolve("no-such-id")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeNotFound, apiErr.Code)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := client.Create(annotation.Input{DraftSlug: "post-one"})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeValidation, apiErr.Code)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})

	t.Run("missing parent", func(t *testing.T) {
		in := quoteInput("post-one", "orphan reply")
		missing := "missing-parent"
		in.ParentID = &missing
		_, err := client.Create(in)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeNotFound, apiErr.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(client.baseURL+"/api/annotations", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestControllerOverHTTP(t *testing.T) {
	client, _ := newTestAPI(t)

	_, err := client.Create(quoteInput("post-one", "first"))
	require.NoError(t, err)

	ctrl := controller.New(client, "post-one", zerolog.Nop())
	require.NoError(t, ctrl.Refresh())

	ctrl.SelectNext()
	require.NotNil(t, ctrl.Selected())
	assert.Equal(t, "first", ctrl.Selected().Content)

	ctrl.ResolveSelected()
	assert.Empty(t, ctrl.Visible(), "resolve over HTTP should refetch and hide")
}
