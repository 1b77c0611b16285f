// Package rest implements the gateway capabilities against a
// Supabase-compatible HTTP API: GoTrue auth, PostgREST tables and procedures,
// and the storage object API.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"wallhub/internal/gateway"
	"wallhub/internal/models"
	"wallhub/internal/notifications"
	"wallhub/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
)

const (
	authPath    = "/auth/v1"
	restPath    = "/rest/v1"
	storagePath = "/storage/v1"

	singleObjectMIME = "application/vnd.pgrst.object+json"
	defaultTimeout   = 15 * time.Second
)

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Bucket  string
	Timeout time.Duration
}

// Client holds the connection settings and the in-memory session shared by
// every capability adapter. The session is never persisted.
type Client struct {
	baseURL string
	apiKey  string
	bucket  string
	timeout time.Duration

	hub *notifications.AuthHub
	now func() time.Time

	mu          sync.RWMutex
	session     *models.Session
	expiryTimer *time.Timer
}

// NewClient creates a client for the API rooted at opts.BaseURL.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		bucket:  opts.Bucket,
		timeout: timeout,
		hub:     notifications.NewAuthHub(),
		now:     time.Now,
	}
}

// NewBackend returns every capability backed by one shared client.
func NewBackend(opts Options) (gateway.Backend, *Client) {
	c := NewClient(opts)
	return gateway.Backend{
		Auth:     &Auth{c: c},
		Images:   &Images{c: c},
		Profiles: &Profiles{c: c},
		Likes:    &Likes{c: c},
		Objects:  &Storage{c: c},
		RPC:      &RPC{c: c},
	}, c
}

// Close stops the token expiry timer.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expiryTimer != nil {
		c.expiryTimer.Stop()
		c.expiryTimer = nil
	}
}

// bearer is the access token of the current session, or the anon key.
func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session != nil && c.session.AccessToken != "" {
		return c.session.AccessToken
	}
	return c.apiKey
}

type request struct {
	capability string
	operation  string
	method     string
	path       string
	query      url.Values
	headers    map[string]string
	json       any
	raw        []byte
	rawType    string
}

func newAgent(method, target string) *fiber.Agent {
	switch method {
	case fiber.MethodPost:
		return fiber.Post(target)
	case fiber.MethodPatch:
		return fiber.Patch(target)
	case fiber.MethodDelete:
		return fiber.Delete(target)
	default:
		return fiber.Get(target)
	}
}

// do performs one round-trip and decodes a 2xx JSON body into out when out
// is non-nil. Non-2xx responses become *gateway.Error.
func (c *Client) do(ctx context.Context, r request, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	defer observability.TrackGateway(r.capability, r.operation)()
	span, ctx := observability.NewSpan(ctx, "gateway."+r.capability+"."+r.operation,
		attribute.String("http.method", r.method),
		attribute.String("http.path", r.path),
	)
	defer span.End()

	agent := newAgent(r.method, c.baseURL+r.path)
	agent.Set("apikey", c.apiKey)
	agent.Set(fiber.HeaderAuthorization, "Bearer "+c.bearer())
	for k, v := range r.headers {
		agent.Set(k, v)
	}
	if len(r.query) > 0 {
		agent.QueryString(r.query.Encode())
	}
	switch {
	case r.json != nil:
		agent.JSON(r.json)
	case r.raw != nil:
		agent.ContentType(r.rawType)
		agent.Body(r.raw)
	}
	agent.Timeout(c.timeoutFor(ctx))

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		err := fmt.Errorf("%s %s: %w", r.method, r.path, errors.Join(errs...))
		c.fail(ctx, span, r, err)
		return err
	}
	if status < 200 || status > 299 {
		err := decodeError(status, body)
		c.fail(ctx, span, r, err)
		return err
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		err = fmt.Errorf("decode %s response: %w", r.operation, err)
		c.fail(ctx, span, r, err)
		return err
	}
	return nil
}

func (c *Client) fail(ctx context.Context, span *observability.Span, r request, err error) {
	span.SetError(err)
	observability.RecordBackendError(r.capability, r.operation)
	observability.Logger.DebugContext(ctx, "backend call failed",
		slog.String("capability", r.capability),
		slog.String("operation", r.operation),
		slog.String("error", err.Error()),
	)
}

// timeoutFor bounds a request by the client timeout and the ctx deadline.
func (c *Client) timeoutFor(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return timeout
}

// errorBody covers the error shapes of the three services.
type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Details          string `json:"details"`
	Hint             string `json:"hint"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func decodeError(status int, body []byte) *gateway.Error {
	out := &gateway.Error{Status: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		out.Message = strings.TrimSpace(string(body))
		if out.Message == "" {
			out.Message = fmt.Sprintf("unexpected status %d", status)
		}
		return out
	}

	if code, ok := eb.Code.(string); ok {
		out.Code = code
	} else {
		out.Code = eb.ErrorCode
	}
	out.Details = eb.Details
	out.Hint = eb.Hint
	for _, m := range []string{eb.Message, eb.Msg, eb.ErrorDescription, eb.Error} {
		if m != "" {
			out.Message = m
			break
		}
	}
	if out.Message == "" {
		out.Message = fmt.Sprintf("unexpected status %d", status)
	}
	return out
}

// quote renders v as a double-quoted PostgREST filter value.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}
