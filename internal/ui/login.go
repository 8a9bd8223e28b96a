package ui

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"inventario/internal/api/dto"
	"inventario/internal/authapi"
	"inventario/internal/session"
	"inventario/internal/validation"
)

const (
	LoginLabel     = "Sign in"
	LoginBusyLabel = "Signing in..."

	MsgLoginFailed     = "Login failed. Check your email and password."
	MsgBadLoginReply   = "Unexpected response from the server."
	MsgSessionNotSaved = "Signed in, but the session could not be saved."
)

type Authenticator interface {
	Login(ctx context.Context, request dto.LoginRequest) (authapi.LoginResponse, error)
}

type LoginInput struct {
	Email    string
	Password string
	Remember bool
}

type LoginForm struct {
	formState

	api      Authenticator
	store    *session.Store
	view     View
	password PasswordField
	opts     options
}

func NewLoginForm(api Authenticator, store *session.Store, view View, opts ...Option) *LoginForm {
	return &LoginForm{
		api:   api,
		store: store,
		view:  view,
		opts:  newOptions(opts),
	}
}

func (f *LoginForm) Password() *PasswordField {
	return &f.password
}

// Submit runs one login attempt and returns the state the form ends in. On
// success it waits the redirect delay and then navigates to the dashboard.
func (f *LoginForm) Submit(ctx context.Context, in LoginInput) State {
	if !f.tryBegin() {
		f.opts.logger.Debug("login already in flight, ignoring submit")
		return StateSubmitting
	}

	f.view.ClearMessages()

	req := dto.LoginRequest{
		Email:    validation.Trim(in.Email),
		Password: in.Password,
	}
	if errs := validation.ValidateLogin(req); len(errs) > 0 {
		showFieldErrors(f.view, errs)
		f.opts.metrics.ObserveSubmission("login", "validation_failed")
		f.set(StateIdle)
		return StateIdle
	}

	if !f.send(ctx, req, in.Remember) {
		return StateIdle
	}

	f.set(StateRedirecting)
	if err := f.opts.sleep(ctx, f.opts.redirectDelay); err != nil {
		f.opts.logger.Warn("redirect to dashboard cancelled", zap.Error(err))
		return StateRedirecting
	}
	f.view.Navigate(PageDashboard)
	return StateRedirecting
}

func (f *LoginForm) send(ctx context.Context, req dto.LoginRequest, remember bool) (ok bool) {
	f.view.SetBusy(true, LoginBusyLabel)
	defer func() {
		f.view.SetBusy(false, LoginLabel)
		if !ok {
			f.set(StateIdle)
		}
	}()

	resp, err := f.api.Login(ctx, req)
	if err != nil {
		f.opts.logger.Info("login failed", zap.String("email", req.Email), zap.Error(err))
		f.view.SetMessage(MessageError, failureMessage(err, MsgLoginFailed))
		f.opts.metrics.ObserveSubmission("login", "failed")
		return false
	}
	if resp.Token == "" {
		f.view.SetMessage(MessageError, MsgBadLoginReply)
		f.opts.metrics.ObserveSubmission("login", "failed")
		return false
	}

	sess := session.Session{
		Token:    resp.Token,
		User:     resp.User,
		Remember: remember,
	}
	if err := f.store.Save(sess); err != nil {
		f.opts.logger.Error("save session", zap.Error(err))
		f.view.SetMessage(MessageError, MsgSessionNotSaved)
		f.opts.metrics.ObserveSubmission("login", "failed")
		return false
	}

	f.view.SetMessage(MessageSuccess, fmt.Sprintf("Welcome, %s! Redirecting...", displayName(resp.User)))
	f.opts.metrics.ObserveSubmission("login", "success")
	return true
}

func displayName(u session.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
