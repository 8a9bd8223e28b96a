// Package authapi talks to the Inventario REST API on behalf of the forms.
package authapi

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

	"go.uber.org/zap"

	"inventario/internal/api/dto"
	"inventario/internal/metrics"
	"inventario/internal/session"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	mePath       = "/auth/me"
	adminUsers   = "/admin/users"
	productsPath = "/products"
	productPath  = "/products/{id}"
)

var (
	// ErrUnauthorized matches any *APIError carrying status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoSession is returned by authenticated calls given a session without a token.
	ErrNoSession = errors.New("no active session")
)

// APIError is a completed request that came back with a non-2xx status.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Message returns the server's detail, or fallback when it sent none.
func (e *APIError) Message(fallback string) string {
	if e.Detail != "" {
		return e.Detail
	}
	return fallback
}

type Option func(*Client)

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	// requests are bounded by the caller's context only
	c := &Client{baseURL: base, httpClient: &http.Client{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("authapi: empty base URL")
	}

	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return nil, fmt.Errorf("authapi: parse base URL %q: %w", raw, err)
	case u.Scheme == "" || u.Host == "":
		return nil, fmt.Errorf("authapi: base URL %q needs a scheme and a host", raw)
	}
	return u, nil
}

func (c *Client) Login(ctx context.Context, request dto.LoginRequest) (LoginResponse, error) {
	var response LoginResponse
	if _, err := c.do(ctx, call{method: http.MethodPost, path: loginPath, body: request, out: &response}); err != nil {
		return LoginResponse{}, err
	}
	return response, nil
}

// Register creates an account without a session. The API decides its role.
func (c *Client) Register(ctx context.Context, request dto.RegisterRequest) (session.User, error) {
	var created session.User
	if _, err := c.do(ctx, call{method: http.MethodPost, path: registerPath, body: request, out: &created}); err != nil {
		return session.User{}, err
	}
	return created, nil
}

// CreateUser returns a nil user when the API answers 204 No Content.
func (c *Client) CreateUser(ctx context.Context, sess session.Session, request dto.CreateUserRequest) (*session.User, error) {
	if !sess.Valid() {
		return nil, ErrNoSession
	}

	var created session.User
	status, err := c.do(ctx, call{method: http.MethodPost, path: adminUsers, token: sess.Token, body: request, out: &created})
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &created, nil
}

func (c *Client) Me(ctx context.Context, sess session.Session) (session.User, error) {
	if !sess.Valid() {
		return session.User{}, ErrNoSession
	}

	var response meResponse
	if _, err := c.do(ctx, call{method: http.MethodGet, path: mePath, token: sess.Token, out: &response}); err != nil {
		return session.User{}, err
	}

	user := session.User{
		Name:  response.User.Name,
		Email: response.User.Email,
		Role:  response.User.Role,
	}
	if id, err := strconv.ParseInt(response.User.Sub, 10, 64); err == nil {
		user.ID = id
	}
	return user, nil
}

func (c *Client) ListProducts(ctx context.Context, sess session.Session) ([]Product, error) {
	if !sess.Valid() {
		return nil, ErrNoSession
	}

	var products []Product
	if _, err := c.do(ctx, call{method: http.MethodGet, path: productsPath, token: sess.Token, out: &products}); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, sess session.Session, id int64) (Product, error) {
	if !sess.Valid() {
		return Product{}, ErrNoSession
	}

	var product Product
	if _, err := c.do(ctx, productCall(http.MethodGet, id, sess.Token, nil, &product)); err != nil {
		return Product{}, err
	}
	return product, nil
}

// CreateProduct needs an admin session; a taken SKU comes back as 409.
func (c *Client) CreateProduct(ctx context.Context, sess session.Session, request dto.ProductRequest) (Product, error) {
	if !sess.Valid() {
		return Product{}, ErrNoSession
	}

	var product Product
	if _, err := c.do(ctx, call{method: http.MethodPost, path: productsPath, token: sess.Token, body: request, out: &product}); err != nil {
		return Product{}, err
	}
	return product, nil
}

// UpdateProduct replaces every editable field of product id.
func (c *Client) UpdateProduct(ctx context.Context, sess session.Session, id int64, request dto.ProductRequest) (Product, error) {
	if !sess.Valid() {
		return Product{}, ErrNoSession
	}

	var product Product
	if _, err := c.do(ctx, productCall(http.MethodPut, id, sess.Token, request, &product)); err != nil {
		return Product{}, err
	}
	return product, nil
}

// DeleteProduct succeeds on 204 No Content.
func (c *Client) DeleteProduct(ctx context.Context, sess session.Session, id int64) error {
	if !sess.Valid() {
		return ErrNoSession
	}

	_, err := c.do(ctx, productCall(http.MethodDelete, id, sess.Token, nil, nil))
	return err
}

// call describes one request. endpoint is the metrics label and defaults to
// path; routes with an id in them pass the route template instead.
type call struct {
	method   string
	path     string
	endpoint string
	token    string
	body     any
	out      any
}

func productCall(method string, id int64, token string, body, out any) call {
	return call{
		method:   method,
		path:     productsPath + "/" + strconv.FormatInt(id, 10),
		endpoint: productPath,
		token:    token,
		body:     body,
		out:      out,
	}
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	var payload bytes.Buffer
	if cl.body != nil {
		if err := json.NewEncoder(&payload).Encode(cl.body); err != nil {
			return nil, fmt.Errorf("encode %s body: %w", cl.path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL.JoinPath(cl.path).String(), &payload)
	if err != nil {
		return nil, fmt.Errorf("new %s %s request: %w", cl.method, cl.path, err)
	}

	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	return req, nil
}

// do sends cl and decodes a 2xx body into cl.out. It returns the status
// whenever a response arrived.
func (c *Client) do(ctx context.Context, cl call) (int, error) {
	if cl.endpoint == "" {
		cl.endpoint = cl.path
	}

	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(cl.endpoint, 0, time.Since(start))
		c.logger.Warn("API call failed", zap.String("method", cl.method), zap.String("path", cl.path), zap.Error(err))
		return 0, fmt.Errorf("call API: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.ObserveRequest(cl.endpoint, resp.StatusCode, time.Since(start))
	c.logger.Debug("API call",
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp.StatusCode, raw)
		c.logger.Warn("API rejected request",
			zap.String("path", cl.path),
			zap.Int("status", apiErr.StatusCode),
			zap.String("detail", apiErr.Detail),
		)
		return resp.StatusCode, apiErr
	}

	if cl.out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, cl.out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response body: %w", err)
	}
	return resp.StatusCode, nil
}

func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var structured dto.ErrorResponse
	if err := json.Unmarshal(body, &structured); err != nil {
		return apiErr
	}

	switch detail := structured.Detail.(type) {
	case string:
		apiErr.Detail = strings.TrimSpace(detail)
	case []any:
		// validation failures arrive as [{"loc": [...], "msg": "..."}]
		for _, item := range detail {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if msg, ok := entry["msg"].(string); ok && msg != "" {
				apiErr.Detail = msg
				break
			}
		}
	}

	return apiErr
}
