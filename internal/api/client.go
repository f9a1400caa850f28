// Package api is the typed HTTP client for the task backend. Every request carries the
// session's bearer token; any 401 clears the session and fires the unauthorized handler.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tgienger/todochat/internal/models"
	"github.com/tgienger/todochat/internal/session"
)

// RequestIDHeader correlates a request with its log line
const RequestIDHeader = "X-Request-ID"

// Client talks to the backend on behalf of one session
type Client struct {
	baseURL        string
	http           *http.Client
	session        *session.Session
	log            *zap.Logger
	onUnauthorized func()
}

type Option func(*Client)

// WithHTTPClient replaces the transport; the default is http.DefaultClient
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithUnauthorizedHandler sets the callback run after a 401 has cleared the session.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func New(baseURL string, sess *session.Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		session: sess,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == nil {
		c.session = session.Detached()
	}
	return c
}

// SetUnauthorizedHandler replaces the 401 callback after construction
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.onUnauthorized = fn
}

// Session returns the session the client authorizes with
func (c *Client) Session() *session.Session {
	return c.session
}

func (c *Client) Signup(ctx context.Context, email, password, name string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	req := models.SignupRequest{Email: email, Password: password, Name: name}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTasks(ctx context.Context, userID int64) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, tasksPath(userID), nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, userID int64, in models.TaskInput) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPost, tasksPath(userID), in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) GetTask(ctx context.Context, userID, taskID int64) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, taskPath(userID, taskID), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask sends only the fields set in upd
func (c *Client) UpdateTask(ctx context.Context, userID, taskID int64, upd models.TaskUpdate) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPut, taskPath(userID, taskID), upd, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, userID, taskID int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(userID, taskID), nil, nil)
}

// ToggleTaskComplete flips the task's completed flag server-side
func (c *Client) ToggleTaskComplete(ctx context.Context, userID, taskID int64) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPatch, taskPath(userID, taskID)+"/complete", nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) SendChatMessage(ctx context.Context, userID int64, req models.ChatRequest) (*models.ChatResponse, error) {
	var out models.ChatResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/%d/chat", userID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func tasksPath(userID int64) string {
	return fmt.Sprintf("/api/%d/tasks", userID)
}

func taskPath(userID, taskID int64) string {
	return fmt.Sprintf("/api/%d/tasks/%d", userID, taskID)
}

// do performs one request. in is JSON-encoded when non-nil; out is decoded when non-nil
// and the response has a body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &HTTPError{Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &HTTPError{Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	if token, ok := c.session.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.log.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", reqID),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug("request failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return &HTTPError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &HTTPError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	log.Debug("request done", zap.Int("status", resp.StatusCode), zap.Duration("duration", time.Since(start)))

	if resp.StatusCode == http.StatusUnauthorized {
		log.Warn("unauthorized, clearing session")
		c.session.Clear()
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Status: resp.StatusCode, Message: parseDetail(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &HTTPError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
