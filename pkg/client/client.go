// Package client is a typed client for the task tracker HTTP API. It keeps the
// session token in a SessionStore and drops it as soon as the server answers
// 401.
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

	"github.com/BuzzLyutic/task-tracker-api/pkg/respond"
)

var (
	ErrSessionExpired = errors.New("session expired, please log in again")
	ErrNotLoggedIn    = errors.New("not logged in")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	return nil
}

type Client struct {
	baseURL  string
	http     *http.Client
	sessions SessionStore
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API served at baseURL, e.g.
// "http://localhost:8080/api/v1".
func New(baseURL string, sessions SessionStore, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type authResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (User, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &resp, nil); err != nil {
		return User{}, err
	}
	return resp.User, c.sessions.Save(Session{Token: resp.Token, User: resp.User})
}

func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp, nil); err != nil {
		return User{}, err
	}
	return resp.User, c.sessions.Save(Session{Token: resp.Token, User: resp.User})
}

// Logout forgets the local session. Tokens are not revoked server-side.
func (c *Client) Logout() error {
	return c.sessions.Clear()
}

// Me asks the server who the stored token belongs to.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp, nil); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

type ListOptions struct {
	Status   string
	Priority string
	Page     int
	Limit    int
}

func (o ListOptions) query() string {
	q := url.Values{}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.Priority != "" {
		q.Set("priority", o.Priority)
	}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) ListTasks(ctx context.Context, opts ListOptions) (TaskPage, error) {
	var page TaskPage
	err := c.do(ctx, http.MethodGet, "/tasks"+opts.query(), nil, &page, nil)
	return page, err
}

type taskResponse struct {
	Message string `json:"message"`
	Task    Task   `json:"task"`
}

func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var resp taskResponse
	err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &resp, nil)
	return resp.Task, err
}

// CreateTask creates a task. A non-empty idempotencyKey makes retries of the
// same call return the task created first.
func (c *Client) CreateTask(ctx context.Context, in CreateTaskRequest, idempotencyKey string) (Task, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	var resp taskResponse
	err := c.do(ctx, http.MethodPost, "/tasks", in, &resp, headers)
	return resp.Task, err
}

// UpdateTask sends a partial update. A nil value for dueDate or assignedTo
// clears that field.
func (c *Client) UpdateTask(ctx context.Context, id string, fields map[string]any) (Task, error) {
	var resp taskResponse
	err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), fields, &resp, nil)
	return resp.Task, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListAllTasks(ctx context.Context) ([]Task, error) {
	var resp struct {
		Tasks []Task `json:"tasks"`
	}
	err := c.do(ctx, http.MethodGet, "/tasks/admin/all-tasks", nil, &resp, nil)
	return resp.Tasks, err
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := c.do(ctx, http.MethodGet, "/tasks/admin/stats", nil, &stats, nil)
	return stats, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	session, ok, err := c.sessions.Load()
	if err != nil {
		return err
	}
	if ok {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var envelope respond.ErrorBody
		if json.NewDecoder(resp.Body).Decode(&envelope) == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
		}
		if resp.StatusCode == http.StatusUnauthorized {
			if err := c.sessions.Clear(); err != nil {
				return errors.Join(apiErr, err)
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Session returns the stored session, or ErrNotLoggedIn.
func (c *Client) Session() (Session, error) {
	s, ok, err := c.sessions.Load()
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrNotLoggedIn
	}
	return s, nil
}
