// Package remote is the HTTP client for the authoritative thread store.
//
// The store holds one row per thread with the core fields plus project
// and a free-form metadata bag (dormant_since travels there — it is not
// a first-class column). All calls are bounded by a short timeout; a
// network failure or 5xx surfaces as ErrUnavailable so the reconciler
// can fall back to session records and the local cache.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tendril/internal/thread"
)

// ErrUnavailable marks the remote store as unreachable. Callers match it
// with errors.Is to trigger source fallback.
var ErrUnavailable = errors.New("remote: store unavailable")

// DefaultTimeout bounds a single remote call.
const DefaultTimeout = 3 * time.Second

// Store is a client for the remote thread store API.
type Store struct {
	baseURL string
	token   string
	client  *http.Client
}

// New creates a remote store client. The token is sent as a bearer
// credential when non-empty.
func New(baseURL, token string, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// row is the wire shape of one thread in the remote store.
type row struct {
	ID                string         `json:"id"`
	Text              string         `json:"text"`
	Status            string         `json:"status"`
	ThreadClass       string         `json:"thread_class,omitempty"`
	Project           string         `json:"project,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	LastTouchedAt     time.Time      `json:"last_touched_at"`
	TouchCount        int            `json:"touch_count"`
	ResolvedAt        *time.Time     `json:"resolved_at,omitempty"`
	ResolutionNote    string         `json:"resolution_note,omitempty"`
	ResolvedBySession string         `json:"resolved_by_session,omitempty"`
	SourceSession     string         `json:"source_session,omitempty"`
	LinearIssue       string         `json:"linear_issue,omitempty"`
	Embedding         []float64      `json:"embedding,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

func toRow(t thread.Thread) row {
	r := row{
		ID:                t.ID,
		Text:              t.Text,
		Status:            string(t.Status),
		ThreadClass:       t.Class,
		Project:           t.Project,
		CreatedAt:         t.CreatedAt,
		LastTouchedAt:     t.LastTouchedAt,
		TouchCount:        t.TouchCount,
		ResolvedAt:        t.ResolvedAt,
		ResolutionNote:    t.ResolutionNote,
		ResolvedBySession: t.ResolvedBySession,
		SourceSession:     t.SourceSession,
		LinearIssue:       t.LinearIssue,
		Embedding:         t.Embedding,
	}
	if t.DormantSince != nil {
		r.Metadata = map[string]any{"dormant_since": t.DormantSince.Format(time.RFC3339)}
	}
	return r
}

func fromRow(r row) thread.Thread {
	t := thread.Thread{
		ID:                r.ID,
		Text:              r.Text,
		Status:            thread.Status(r.Status),
		Class:             r.ThreadClass,
		Project:           r.Project,
		CreatedAt:         r.CreatedAt,
		LastTouchedAt:     r.LastTouchedAt,
		TouchCount:        r.TouchCount,
		ResolvedAt:        r.ResolvedAt,
		ResolutionNote:    r.ResolutionNote,
		ResolvedBySession: r.ResolvedBySession,
		SourceSession:     r.SourceSession,
		LinearIssue:       r.LinearIssue,
		Embedding:         r.Embedding,
	}
	if ds, ok := r.Metadata["dormant_since"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, ds); err == nil {
			t.DormantSince = &parsed
		}
	}
	return t
}

// List queries threads with the status filter applied server-side.
// An empty status returns all rows for the project.
func (s *Store) List(ctx context.Context, project, status string) ([]thread.Thread, error) {
	q := url.Values{}
	if project != "" {
		q.Set("project", project)
	}
	if status != "" {
		q.Set("status", status)
	}
	endpoint := s.baseURL + "/v1/threads"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var rows []row
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &rows); err != nil {
		return nil, err
	}
	threads := make([]thread.Thread, 0, len(rows))
	for _, r := range rows {
		threads = append(threads, fromRow(r))
	}
	return threads, nil
}

// Create inserts a new thread row.
func (s *Store) Create(ctx context.Context, t thread.Thread) error {
	return s.do(ctx, http.MethodPost, s.baseURL+"/v1/threads", toRow(t), nil)
}

// Update overwrites an existing thread row.
func (s *Store) Update(ctx context.Context, t thread.Thread) error {
	return s.do(ctx, http.MethodPatch, s.baseURL+"/v1/threads/"+url.PathEscape(t.ID), toRow(t), nil)
}

func (s *Store) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: marshal body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote: status %d: %s", resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("remote: decode response: %w", err)
		}
	}
	return nil
}
