package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/domain"
)

const defaultTimeout = 10 * time.Second

// HTTPBackend talks to the REST API with a bearer token.
type HTTPBackend struct {
	baseURL string
	token   string
	client  *fasthttp.Client
	timeout time.Duration
}

type HTTPOption func(*HTTPBackend)

// WithHTTPClient replaces the underlying fasthttp client.
func WithHTTPClient(c *fasthttp.Client) HTTPOption {
	return func(b *HTTPBackend) {
		if c != nil {
			b.client = c
		}
	}
}

func WithTimeout(d time.Duration) HTTPOption {
	return func(b *HTTPBackend) {
		if d > 0 {
			b.timeout = d
		}
	}
}

func NewHTTPBackend(baseURL, token string, opts ...HTTPOption) *HTTPBackend {
	b := &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &fasthttp.Client{Name: "taskctl"},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Token returns the access token currently in use.
func (b *HTTPBackend) Token() string {
	return b.token
}

// Register creates an account without logging in.
func (b *HTTPBackend) Register(ctx context.Context, email, password string) (*domain.User, error) {
	var user domain.User
	err := b.call(ctx, http.MethodPost, "/api/v1/auth/register", transport.CredentialsRequest{Email: email, Password: password}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for tokens and uses the access token for later calls.
func (b *HTTPBackend) Login(ctx context.Context, email, password string) (*transport.TokenResponse, error) {
	var tokens transport.TokenResponse
	err := b.call(ctx, http.MethodPost, "/api/v1/auth/login", transport.CredentialsRequest{Email: email, Password: password}, &tokens)
	if err != nil {
		return nil, err
	}
	b.token = tokens.AccessToken
	return &tokens, nil
}

func (b *HTTPBackend) List(ctx context.Context) ([]domain.Task, error) {
	tasks := []domain.Task{}
	if err := b.call(ctx, http.MethodGet, "/api/v1/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (b *HTTPBackend) Create(ctx context.Context, title string) (*domain.Task, error) {
	var task domain.Task
	if err := b.call(ctx, http.MethodPost, "/api/v1/tasks", transport.CreateTaskRequest{Title: title}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (b *HTTPBackend) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	var task domain.Task
	if err := b.call(ctx, http.MethodPatch, "/api/v1/tasks/"+id, patch, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (b *HTTPBackend) Delete(ctx context.Context, id string) (string, error) {
	var resp transport.DeleteResponse
	if err := b.call(ctx, http.MethodDelete, "/api/v1/tasks/"+id, nil, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (b *HTTPBackend) call(ctx context.Context, method, path string, body, out interface{}) error {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(b.baseURL + path)
	req.Header.Set("Accept", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline := time.Now().Add(b.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	var env transport.RawEnvelope
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return fmt.Errorf("%s %s: decode response (status %d): %w", method, path, resp.StatusCode(), err)
		}
	}

	if env.Status == "error" || resp.StatusCode() >= http.StatusBadRequest {
		return decodeError(resp.StatusCode(), env)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

// decodeError rebuilds the domain error so errors.Is matches the server's sentinels.
func decodeError(status int, env transport.RawEnvelope) error {
	var message string
	if len(env.Error) > 0 {
		_ = json.Unmarshal(env.Error, &message)
	}

	code := domain.ErrorCode(env.Code)
	switch code {
	case domain.ErrCodeNotFound, domain.ErrCodeInvalid, domain.ErrCodeUnauthorized, domain.ErrCodeConflict:
	default:
		switch status {
		case http.StatusNotFound:
			code = domain.ErrCodeNotFound
		case http.StatusUnauthorized:
			code = domain.ErrCodeUnauthorized
		case http.StatusBadRequest:
			code = domain.ErrCodeInvalid
		default:
			code = domain.ErrCodeInternal
		}
	}
	if message == "" {
		message = strings.ToLower(http.StatusText(status))
	}
	return domain.NewError(code, message)
}
