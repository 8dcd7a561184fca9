// Package transport is the single HTTP client the storefront uses to reach the
// REST API. It attaches the durable bearer credential to every request, decodes
// the response envelope, and turns network, HTTP and business failures into a
// uniform *Error after notifying the shopper. Authentication failures are
// handled here for every call site: the credential is cleared and the shopper
// is sent to the login view.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/pkg/i18n"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

const maxBodySize = 4 << 20

// Credentials is the durable credential slot. Every request reads it afresh.
type Credentials interface {
	Token(ctx context.Context) string
	ClearToken(ctx context.Context)
}

// Navigator performs programmatic navigation.
type Navigator interface {
	Push(path string)
}

// Config configures a Client. LoginPath is where the shopper is sent after an
// authentication failure; when empty the client does not navigate.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	LoginPath string
	Messages  *i18n.Messages
}

// Client performs API calls. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	creds     Credentials
	notifier  notify.Notifier
	nav       Navigator
	loginPath string
	msgs      *i18n.Messages
	log       *logger.Logger

	mu    sync.RWMutex
	hooks []func(ctx context.Context)
}

// New creates a Client. The underlying http.Client carries cfg.Timeout and a cookie jar.
func New(cfg Config, creds Credentials, notifier notify.Notifier, nav Navigator, l *logger.Logger) *Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		l.Warn("cookie jar disabled", zap.Error(err))
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      &http.Client{Timeout: cfg.Timeout, Jar: jar},
		creds:     creds,
		notifier:  notifier,
		nav:       nav,
		loginPath: cfg.LoginPath,
		msgs:      cfg.Messages,
		log:       l.Named("transport"),
	}
}

// OnAuthFailure registers fn to run after the durable credential has been
// cleared because of an authentication failure.
func (c *Client) OnAuthFailure(fn func(ctx context.Context)) {
	c.mu.Lock()
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*models.Envelope, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*models.Envelope, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*models.Envelope, error) {
	return c.Do(ctx, http.MethodPut, path, nil, body)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*models.Envelope, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends one request and returns the decoded envelope of a successful call.
// On failure the shopper has already been notified and the returned error is a *Error.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*models.Envelope, error) {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", req.Header.Get("X-Request-ID")),
			zap.Error(err))
		c.notifier.Error(c.msgs.Get(i18n.NetworkError))
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.log.Debug("call",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(started)))
	if err != nil {
		c.notifier.Error(c.msgs.Get(i18n.NetworkError))
		return nil, &Error{Kind: KindNetwork, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.httpFailure(ctx, resp.StatusCode, raw)
	}
	return c.envelope(ctx, resp.StatusCode, raw)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("transport: build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := strings.TrimSpace(c.creds.Token(ctx)); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) envelope(ctx context.Context, status int, raw []byte) (*models.Envelope, error) {
	env := &models.Envelope{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, env); err != nil {
			c.notifier.Error(c.msgs.Get(i18n.OperationFailed))
			return nil, &Error{Kind: KindDecode, Status: status, Err: err}
		}
	}
	if env.Succeeded() {
		return env, nil
	}

	e := &Error{Kind: KindBusiness, Status: status, Code: *env.Code, Message: env.Message}
	if env.Message != "" {
		c.notifier.Error(env.Message)
	} else {
		c.notifier.Error(c.msgs.Get(i18n.OperationFailed))
	}
	if LoginRequired(e.Code, e.Message) {
		e.auth = true
		c.authFailure(ctx)
	}
	return nil, e
}

func (c *Client) httpFailure(ctx context.Context, status int, raw []byte) error {
	e := &Error{Kind: KindHTTP, Status: status, Message: serverMessage(raw)}
	switch {
	case statusAuthFailure(status):
		e.auth = true
		c.authFailure(ctx)
		c.notifier.Error(c.msgs.Get(i18n.LoginExpired))
	case status == http.StatusForbidden:
		c.notifier.Error(c.msgs.Get(i18n.Forbidden))
	case status >= http.StatusInternalServerError:
		c.notifier.Error(c.msgs.Get(i18n.ServerError))
	case e.Message != "":
		c.notifier.Error(e.Message)
	default:
		c.notifier.Error(c.msgs.Get(i18n.RequestFailed))
	}
	return e
}

// authFailure clears the durable credential, runs the registered hooks and
// navigates to the login view.
func (c *Client) authFailure(ctx context.Context) {
	c.log.Info("authentication failure, clearing credential")
	c.creds.ClearToken(ctx)

	c.mu.RLock()
	hooks := make([]func(context.Context), len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn(ctx)
	}
	if c.nav != nil && c.loginPath != "" {
		c.nav.Push(c.loginPath)
	}
}

// serverMessage extracts a message from an error body, which may be an
// envelope or a plain {"errors": "..."} object.
func serverMessage(raw []byte) string {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	for _, name := range []string{"error", "errors"} {
		var s string
		if err := env.Decode(&s, name); err == nil && s != "" {
			return s
		}
	}
	return ""
}
