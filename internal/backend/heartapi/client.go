// Package heartapi implements the service.Service interface over the
// dashboard's REST API.
package heartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"heartwork/internal/config"
	"heartwork/internal/service"
)

const (
	// APITimeout is the timeout for API calls.
	APITimeout = 10 * time.Second

	// UploadTimeout is the timeout for image uploads.
	UploadTimeout = time.Minute
)

// Client implements service.Service against the REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ service.Service = (*Client)(nil)

// New creates a client authenticated with the stored login token.
// A missing or expired token is reported as service.ErrUnauthorized.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	tok, err := LoadToken(cfg.TokenPath())
	if err != nil {
		return nil, err
	}
	if !tok.Valid() {
		return nil, fmt.Errorf("token expired (run: heartwork login): %w", service.ErrUnauthorized)
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))
	return &Client{
		baseURL: strings.TrimSuffix(cfg.ServerURL, "/"),
		http:    httpClient,
	}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/test", nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Verify returns the user the token belongs to.
func (c *Client) Verify(ctx context.Context) (service.User, error) {
	var out struct {
		User service.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify", nil, &out); err != nil {
		return service.User{}, err
	}
	return out.User, nil
}

// ListTasks returns every task of a category.
func (c *Client) ListTasks(ctx context.Context, category string) ([]service.Task, error) {
	var tasks []service.Task
	path := "/api/todos?" + url.Values{"animal": {category}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, t service.NewTask) (service.Task, error) {
	var task service.Task
	if err := c.do(ctx, http.MethodPost, "/api/todos", t, &task); err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// UpdateTask sets a task's completed flag and returns the server's copy.
func (c *Client) UpdateTask(ctx context.Context, id string, completed bool) (service.Task, error) {
	body := map[string]bool{"completed": completed}
	var task service.Task
	if err := c.do(ctx, http.MethodPut, "/api/todos/"+url.PathEscape(id), body, &task); err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/todos/"+url.PathEscape(id), nil, nil)
}

// ResetDefaults asks the server to recreate the default tasks of a category.
func (c *Client) ResetDefaults(ctx context.Context, category string) error {
	body := map[string]string{"animal": category}
	return c.do(ctx, http.MethodPost, "/api/todos/reset-defaults", body, nil)
}

// ListNotes returns every sticky note.
func (c *Client) ListNotes(ctx context.Context) ([]service.Note, error) {
	var notes []service.Note
	if err := c.do(ctx, http.MethodGet, "/api/notes", nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// CreateNote adds a sticky note.
func (c *Client) CreateNote(ctx context.Context, text string) (service.Note, error) {
	var note service.Note
	if err := c.do(ctx, http.MethodPost, "/api/notes", map[string]string{"text": text}, &note); err != nil {
		return service.Note{}, err
	}
	return note, nil
}

// UpdateNote replaces a note's text.
func (c *Client) UpdateNote(ctx context.Context, id, text string) (service.Note, error) {
	var note service.Note
	if err := c.do(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id), map[string]string{"text": text}, &note); err != nil {
		return service.Note{}, err
	}
	return note, nil
}

// DeleteNote deletes a note.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, nil)
}

// ListImages returns the gallery, newest first as the server orders it.
func (c *Client) ListImages(ctx context.Context) ([]service.Image, error) {
	var images []service.Image
	if err := c.do(ctx, http.MethodGet, "/api/gallery/images", nil, &images); err != nil {
		return nil, err
	}
	return images, nil
}

// DeleteImage deletes a gallery image.
func (c *Client) DeleteImage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/gallery/images/"+url.PathEscape(id), nil, nil)
}

// do sends a JSON request and decodes the JSON response into out, if non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapError(err)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// wrapError maps transport and HTTP status errors onto the service error kinds.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiMessage(apiErr)
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s (run: heartwork login): %w", msg, service.ErrUnauthorized)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", msg, service.ErrNotFound)
		case http.StatusBadRequest:
			return fmt.Errorf("%s: %w", msg, service.ErrValidation)
		default:
			return fmt.Errorf("server error %d: %s: %w", apiErr.Code, msg, service.ErrNetwork)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", service.ErrNetwork)
	}
	return fmt.Errorf("%w: %v", service.ErrNetwork, err)
}

// apiMessage extracts the server's message from an error response body.
func apiMessage(e *googleapi.Error) string {
	if e.Message != "" {
		return e.Message
	}
	var body struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if json.Unmarshal([]byte(e.Body), &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if s, ok := body.Error.(string); ok && s != "" {
			return s
		}
	}
	if text := http.StatusText(e.Code); text != "" {
		return strings.ToLower(text)
	}
	return fmt.Sprintf("status %d", e.Code)
}
