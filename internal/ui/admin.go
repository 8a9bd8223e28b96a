package ui

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"inventario/internal/api/dto"
	"inventario/internal/authapi"
	"inventario/internal/session"
	"inventario/internal/validation"
)

const (
	CreateUserLabel     = "Create user"
	CreateUserBusyLabel = "Creating..."
)

type UserCreator interface {
	CreateUser(ctx context.Context, sess session.Session, request dto.CreateUserRequest) (*session.User, error)
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// AdminPage is the create-user page. Guard must pass before anything else runs.
type AdminPage struct {
	formState

	api      UserCreator
	store    *session.Store
	view     View
	password PasswordField
	opts     options

	sess *session.Session
}

func NewAdminPage(api UserCreator, store *session.Store, view View, opts ...Option) *AdminPage {
	return &AdminPage{
		api:   api,
		store: store,
		view:  view,
		opts:  newOptions(opts),
	}
}

func (p *AdminPage) Password() *PasswordField {
	return &p.password
}

// Guard loads the session and decides whether the page may run. When it
// returns false the page has already navigated away and the caller must stop.
func (p *AdminPage) Guard() (session.Session, bool) {
	sess, err := p.store.Load()
	if err != nil {
		p.opts.logger.Warn("read session", zap.Error(err))
	}

	if !sess.Valid() {
		p.logout()
		return session.Session{}, false
	}

	if !sess.IsAdmin() {
		p.opts.logger.Info("non-admin on admin page", zap.String("email", sess.User.Email), zap.String("role", sess.User.Role))
		p.view.Alert(MsgAccessDenied)
		p.view.Navigate(PageDashboard)
		return session.Session{}, false
	}

	p.sess = sess
	return *sess, true
}

// Logout clears the stored session and goes back to the login page.
func (p *AdminPage) Logout() {
	p.logout()
}

func (p *AdminPage) logout() {
	p.sess = nil
	if err := p.store.Clear(); err != nil {
		p.opts.logger.Error("clear session", zap.Error(err))
	}
	p.view.Navigate(PageLogin)
}

// SubmitCreateUser runs one create-user attempt and returns the state the
// form ends in.
func (p *AdminPage) SubmitCreateUser(ctx context.Context, in CreateUserInput) State {
	if p.sess == nil {
		// Guard did not pass; nothing on this page may run.
		return StateIdle
	}
	if !p.tryBegin() {
		p.opts.logger.Debug("create-user already in flight, ignoring submit")
		return StateSubmitting
	}

	p.view.ClearMessages()

	req := dto.CreateUserRequest{
		Name:     validation.Trim(in.Name),
		Email:    validation.Trim(in.Email),
		Password: in.Password,
		Role:     in.Role,
	}
	if errs := validation.ValidateCreateUser(req); len(errs) > 0 {
		showFieldErrors(p.view, errs)
		p.opts.metrics.ObserveSubmission("create_user", "validation_failed")
		p.set(StateIdle)
		return StateIdle
	}

	final := p.send(ctx, req)
	p.set(final)
	return final
}

func (p *AdminPage) send(ctx context.Context, req dto.CreateUserRequest) State {
	p.view.SetBusy(true, CreateUserBusyLabel)
	defer p.view.SetBusy(false, CreateUserLabel)

	created, err := p.api.CreateUser(ctx, *p.sess, req)
	switch {
	case errors.Is(err, authapi.ErrUnauthorized), errors.Is(err, authapi.ErrNoSession):
		p.opts.metrics.ObserveSubmission("create_user", "unauthorized")
		p.view.SetMessage(MessageError, MsgSessionExpired)
		p.logout()
		return StateRedirecting
	case err != nil:
		p.opts.logger.Info("create user failed", zap.String("email", req.Email), zap.Error(err))
		p.opts.metrics.ObserveSubmission("create_user", "failed")
		p.view.SetMessage(MessageError, createFailureMessage(err))
		return StateIdle
	}

	email, role := req.Email, req.Role
	if created != nil {
		if created.Email != "" {
			email = created.Email
		}
		if created.Role != "" {
			role = created.Role
		}
	}

	p.opts.metrics.ObserveSubmission("create_user", "success")
	p.view.SetMessage(MessageSuccess, fmt.Sprintf("User %s created with role %s.", email, role))
	p.view.ResetForm(map[string]string{
		"name":     "",
		"email":    "",
		"password": "",
		"role":     dto.RoleUser,
	})
	return StateIdle
}

func createFailureMessage(err error) string {
	var apiErr *authapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message(fmt.Sprintf("Request failed with status %d", apiErr.StatusCode))
	}
	return failureMessage(err, "")
}
