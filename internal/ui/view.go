// Package ui drives the login, admin and dashboard pages: it validates input,
// calls the API and tells a View what to show.
package ui

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"inventario/internal/authapi"
	"inventario/internal/metrics"
)

type Page string

const (
	PageLogin     Page = "login.html"
	PageDashboard Page = "dashboard.html"
	PageAdmin     Page = "admin.html"
)

type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

// View is everything a page can do to its screen.
type View interface {
	// ClearMessages removes every field error and the message area text.
	ClearMessages()
	SetFieldError(field, text string)
	SetMessage(kind MessageKind, text string)
	// SetBusy disables (busy) or enables the submit control and sets its label.
	SetBusy(busy bool, label string)
	ResetForm(defaults map[string]string)
	Alert(text string)
	Navigate(page Page)
}

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateRedirecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateRedirecting:
		return "redirecting"
	}
	return "unknown"
}

const (
	MsgNetworkError   = "Could not reach the server. Try again."
	MsgSessionExpired = "Your session has expired. Please sign in again."
	MsgAccessDenied   = "Access denied: administrators only."
)

// fieldOrder keeps field errors in form order.
var fieldOrder = []string{"name", "email", "password"}

type options struct {
	redirectDelay time.Duration
	sleep         func(context.Context, time.Duration) error
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

type Option func(*options)

// WithRedirectDelay sets the pause between a successful login and the dashboard redirect.
func WithRedirectDelay(d time.Duration) Option {
	return func(o *options) {
		o.redirectDelay = d
	}
}

// WithSleep replaces the timer used before redirects.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(o *options) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func newOptions(opts []Option) options {
	o := options{
		redirectDelay: 800 * time.Millisecond,
		sleep:         sleepContext,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// failureMessage turns a failed API call into the text for the message area.
func failureMessage(err error, fallback string) string {
	var apiErr *authapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message(fallback)
	}
	return MsgNetworkError
}

func showFieldErrors(view View, errs map[string]string) {
	for _, field := range fieldOrder {
		if text, ok := errs[field]; ok {
			view.SetFieldError(field, text)
		}
	}
}

// formState is the idle/submitting/redirecting machine shared by the forms.
type formState struct {
	mu    sync.Mutex
	state State
}

func (f *formState) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *formState) set(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// tryBegin moves idle to submitting. It fails while a request is in flight,
// which is what a disabled submit button does.
func (f *formState) tryBegin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return false
	}
	f.state = StateSubmitting
	return true
}
