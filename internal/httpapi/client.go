package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/controller"
	"github.com/klaboworld/marginalia/internal/store"
)

// APIError is a structured error returned by the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client talks to a marginalia API server. It satisfies controller.Client,
// so the review surfaces work identically against a local store or a
// running server.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ controller.Client = (*Client)(nil)

// NewClient returns a client for the given base URL, e.g.
// "http://localhost:7777".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Create posts a new annotation.
func (c *Client) Create(in annotation.Input) (*annotation.Annotation, error) {
	var out annotation.Annotation
	if err := c.do(http.MethodPost, "/api/annotations", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List fetches annotations matching the filter.
func (c *Client) List(f store.Filter) ([]*annotation.Annotation, error) {
	q := url.Values{}
	if f.DraftSlug != "" {
		q.Set("draftSlug", f.DraftSlug)
	}
	if f.Status != nil {
		q.Set("status", string(*f.Status))
	}
	if f.ParentID != nil {
		q.Set("parentId", *f.ParentID)
	} else if f.RootsOnly {
		q.Set("rootsOnly", "true")
	}
	path := "/api/annotations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []*annotation.Annotation
	if err := c.do(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a single annotation, optionally with replies.
func (c *Client) Get(id string, includeReplies bool) (*annotation.Annotation, error) {
	path := "/api/annotations/" + url.PathEscape(id)
	if includeReplies {
		path += "?includeReplies=true"
	}
	var out annotation.Annotation
	if err := c.do(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update patches an annotation.
func (c *Client) Update(id string, u annotation.Update) (*annotation.Annotation, error) {
	var out annotation.Annotation
	if err := c.do(http.MethodPatch, "/api/annotations/"+url.PathEscape(id), u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Resolve resolves an annotation and its direct replies.
func (c *Client) Resolve(id string) (*store.CascadeResult, error) {
	var out store.CascadeResult
	if err := c.do(http.MethodPost, "/api/annotations/"+url.PathEscape(id)+"/resolve", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an annotation and its direct replies.
func (c *Client) Delete(id string) (*store.CascadeResult, error) {
	var out store.CascadeResult
	if err := c.do(http.MethodDelete, "/api/annotations/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Error.Code == "" {
			return &APIError{StatusCode: resp.StatusCode, Code: CodeInternal, Message: resp.Status}
		}
		return &APIError{StatusCode: resp.StatusCode, Code: eb.Error.Code, Message: eb.Error.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
