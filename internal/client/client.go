// Package client implements the service contracts against a running
// diffadvisor API server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/service"
	"github.com/pbaille/diffadvisor/internal/tree"
)

// StatusError is a non-2xx reply from the server
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func isNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client talks to the API over HTTP
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL. hc may be nil.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		// debrief runs wait on the model
		hc = &http.Client{Timeout: 3 * time.Minute}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Services exposes the client through every contract
func (c *Client) Services() service.Services {
	return service.Services{
		Projects:   c,
		Debriefs:   c,
		Checkpoint: c,
		Knowledge:  c,
		Settings:   c,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return statusError(resp.StatusCode, e.Error)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError restores the sentinel errors the server maps to status codes
func statusError(code int, msg string) error {
	se := &StatusError{Code: code, Message: msg}
	switch {
	case code == http.StatusBadRequest && msg == service.ErrTitleRequired.Error():
		return service.ErrTitleRequired
	case code == http.StatusNotImplemented:
		return fmt.Errorf("%w: %s", service.ErrUnsupported, msg)
	}
	return se
}

func esc(s string) string { return url.PathEscape(s) }

// Projects

func (c *Client) Projects(ctx context.Context) ([]domain.Project, error) {
	var out []domain.Project
	err := c.do(ctx, http.MethodGet, "/projects", nil, &out)
	return out, err
}

func (c *Client) ActiveProject(ctx context.Context) (*domain.Project, error) {
	var p domain.Project
	if err := c.do(ctx, http.MethodGet, "/projects/active", nil, &p); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (c *Client) SetActiveProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/projects/active", map[string]string{"id": id}, nil)
}

func (c *Client) AddProject(ctx context.Context, path string) (*domain.Project, error) {
	var p domain.Project
	if err := c.do(ctx, http.MethodPost, "/projects", map[string]string{"path": path}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) RemoveProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/projects/"+esc(id), nil, nil)
}

// Debriefs

func (c *Client) commits(ctx context.Context, projectID string, status domain.CommitStatus) ([]domain.Commit, error) {
	var out []domain.Commit
	path := "/projects/" + esc(projectID) + "/commits?status=" + string(status)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) PendingCommits(ctx context.Context, projectID string) ([]domain.Commit, error) {
	return c.commits(ctx, projectID, domain.StatusPending)
}

func (c *Client) ReviewedCommits(ctx context.Context, projectID string) ([]domain.Commit, error) {
	return c.commits(ctx, projectID, domain.StatusReviewed)
}

func (c *Client) DebriefByCommit(ctx context.Context, hash string) (*domain.DebriefResult, error) {
	var d domain.DebriefResult
	if err := c.do(ctx, http.MethodGet, "/commits/"+esc(hash)+"/debrief", nil, &d); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (c *Client) RunDebrief(ctx context.Context, hash string) (*domain.DebriefResult, error) {
	var d domain.DebriefResult
	if err := c.do(ctx, http.MethodPost, "/commits/"+esc(hash)+"/debrief/run", nil, &d); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("run debrief %s: %w", hash, service.ErrUnknownCommit)
		}
		return nil, err
	}
	return &d, nil
}

func (c *Client) MarkReviewed(ctx context.Context, debriefID string) error {
	return c.do(ctx, http.MethodPost, "/debriefs/"+esc(debriefID)+"/reviewed", nil, nil)
}

func (c *Client) DiffContent(ctx context.Context, hash string) (string, error) {
	var out struct {
		Diff string `json:"diff"`
	}
	err := c.do(ctx, http.MethodGet, "/commits/"+esc(hash)+"/diff", nil, &out)
	return out.Diff, err
}

func (c *Client) GapCount(ctx context.Context, projectID string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/projects/"+esc(projectID)+"/gaps", nil, &out)
	return out.Count, err
}

// Checkpoints

func (c *Client) SubmitCheckpoint(ctx context.Context, debriefID, questionID, answer string) (*domain.Evaluation, error) {
	var ev domain.Evaluation
	body := map[string]string{"question_id": questionID, "answer": answer}
	if err := c.do(ctx, http.MethodPost, "/debriefs/"+esc(debriefID)+"/checkpoints", body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *Client) Responses(ctx context.Context, debriefID string) ([]domain.CheckpointResponse, error) {
	var out []domain.CheckpointResponse
	err := c.do(ctx, http.MethodGet, "/debriefs/"+esc(debriefID)+"/responses", nil, &out)
	return out, err
}

// Notes

func (c *Client) Notes(ctx context.Context) ([]domain.KnowledgeNote, error) {
	var out []domain.KnowledgeNote
	err := c.do(ctx, http.MethodGet, "/notes", nil, &out)
	return out, err
}

func (c *Client) Note(ctx context.Context, id string) (*domain.KnowledgeNote, error) {
	var n domain.KnowledgeNote
	if err := c.do(ctx, http.MethodGet, "/notes/"+esc(id), nil, &n); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (c *Client) SaveNote(ctx context.Context, draft domain.NoteDraft) (*domain.KnowledgeNote, error) {
	var n domain.KnowledgeNote
	if err := c.do(ctx, http.MethodPost, "/notes", draft, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notes/"+esc(id), nil, nil)
}

func (c *Client) SearchNotes(ctx context.Context, query string) ([]domain.KnowledgeNote, error) {
	var out []domain.KnowledgeNote
	err := c.do(ctx, http.MethodGet, "/search?q="+url.QueryEscape(query), nil, &out)
	return out, err
}

// Tree fetches the category tree of the notes matching query
func (c *Client) Tree(ctx context.Context, query string) ([]*tree.Node, error) {
	var out []*tree.Node
	err := c.do(ctx, http.MethodGet, "/tree?q="+url.QueryEscape(query), nil, &out)
	return out, err
}

func (c *Client) RelatedNotes(ctx context.Context, id string, k int) ([]domain.KnowledgeNote, error) {
	var out []domain.KnowledgeNote
	path := "/notes/" + esc(id) + "/related?k=" + strconv.Itoa(k)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) ImportURL(ctx context.Context, rawURL, categoryPath string) (*domain.KnowledgeNote, error) {
	var n domain.KnowledgeNote
	body := map[string]string{"url": rawURL, "category_path": categoryPath}
	if err := c.do(ctx, http.MethodPost, "/notes/import", body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Settings

func (c *Client) Settings(ctx context.Context) (*domain.AppSettings, error) {
	var s domain.AppSettings
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (*domain.AppSettings, error) {
	var s domain.AppSettings
	if err := c.do(ctx, http.MethodPatch, "/settings", patch, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Skills(ctx context.Context) ([]domain.Skill, error) {
	var out []domain.Skill
	err := c.do(ctx, http.MethodGet, "/skills", nil, &out)
	return out, err
}

func (c *Client) ToggleSkill(ctx context.Context, id string, enabled bool) error {
	return c.do(ctx, http.MethodPut, "/skills/"+esc(id), map[string]bool{"enabled": enabled}, nil)
}

func (c *Client) TestConnection(ctx context.Context) (*domain.ConnectionResult, error) {
	var res domain.ConnectionResult
	if err := c.do(ctx, http.MethodPost, "/connection", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Health checks that the server is reachable
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
