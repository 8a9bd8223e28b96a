package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"go.uber.org/zap"

	"inventario/internal/authapi"
	"inventario/internal/session"
)

type InventoryReader interface {
	Me(ctx context.Context, sess session.Session) (session.User, error)
	ListProducts(ctx context.Context, sess session.Session) ([]authapi.Product, error)
}

// Dashboard is the landing page after login: who is signed in and what is in stock.
type Dashboard struct {
	api   InventoryReader
	store *session.Store
	view  View
	out   io.Writer
	opts  options
}

func NewDashboard(api InventoryReader, store *session.Store, view View, out io.Writer, opts ...Option) *Dashboard {
	return &Dashboard{
		api:   api,
		store: store,
		view:  view,
		out:   out,
		opts:  newOptions(opts),
	}
}

// Show prints the signed-in user and the product list. It returns false when
// the page navigated away or could not load.
func (d *Dashboard) Show(ctx context.Context) bool {
	sess, ok := d.session()
	if !ok {
		return false
	}

	products, err := d.api.ListProducts(ctx, sess)
	if err != nil {
		return d.fail(err)
	}

	fmt.Fprintf(d.out, "Signed in as %s <%s> (%s)\n", sess.User.Name, sess.User.Email, sess.User.Role)
	if sess.IsAdmin() {
		fmt.Fprintf(d.out, "Manage users: %s\n", PageAdmin)
	}
	fmt.Fprintln(d.out)
	if len(products) == 0 {
		fmt.Fprintln(d.out, "No products yet.")
		return true
	}

	tw := tabwriter.NewWriter(d.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSKU\tNAME\tQTY\tLOCATION")
	for _, p := range products {
		location := "-"
		if p.Location != nil && *p.Location != "" {
			location = *p.Location
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.SKU, p.Name, p.Quantity, location)
	}
	if err := tw.Flush(); err != nil {
		d.opts.logger.Warn("write product table", zap.Error(err))
	}
	return true
}

// Whoami asks the API who the stored token belongs to.
func (d *Dashboard) Whoami(ctx context.Context) bool {
	sess, ok := d.session()
	if !ok {
		return false
	}

	user, err := d.api.Me(ctx, sess)
	if err != nil {
		return d.fail(err)
	}

	fmt.Fprintf(d.out, "%s <%s> role=%s remember=%t\n", user.Name, user.Email, user.Role, sess.Remember)
	return true
}

func (d *Dashboard) session() (session.Session, bool) {
	sess, err := d.store.Load()
	if err != nil {
		d.opts.logger.Warn("read session", zap.Error(err))
	}
	if !sess.Valid() {
		d.logout()
		return session.Session{}, false
	}
	return *sess, true
}

func (d *Dashboard) fail(err error) bool {
	if errors.Is(err, authapi.ErrUnauthorized) {
		d.view.SetMessage(MessageError, MsgSessionExpired)
		d.logout()
		return false
	}
	d.view.SetMessage(MessageError, failureMessage(err, "Could not load the dashboard."))
	return false
}

func (d *Dashboard) logout() {
	if err := d.store.Clear(); err != nil {
		d.opts.logger.Error("clear session", zap.Error(err))
	}
	d.view.Navigate(PageLogin)
}
