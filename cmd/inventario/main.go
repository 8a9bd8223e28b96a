// cmd/inventario/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"inventario/internal/authapi"
	"inventario/internal/config"
	"inventario/internal/logger"
	"inventario/internal/metrics"
	"inventario/internal/session"
	"inventario/internal/ui"
)

const usage = `usage: inventario <command> [flags]

commands:
  login        sign in and store the session
  logout       forget the stored session
  whoami       show who the stored session belongs to
  dashboard    show the signed-in user and the product list
  create-user  create an account (administrators only)
`

type app struct {
	cfg      *config.Config
	log      *zap.Logger
	metrics  *metrics.Metrics
	client   *authapi.Client
	store    *session.Store
	view     *ui.TerminalView
	prompter *ui.Prompter
	opts     []ui.Option
	stdout   io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.LogLevel, zap.String("app", "inventario")); err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer logger.Log.Sync() //nolint:errcheck

	a, err := newApp(cfg, logger.Log, stdin, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	defer a.flushMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest, stderr)
	case "logout":
		return a.logout()
	case "whoami":
		return exitCode(a.dashboard().Whoami(ctx))
	case "dashboard":
		return exitCode(a.dashboard().Show(ctx))
	case "create-user":
		return a.createUser(ctx, rest, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}

func newApp(cfg *config.Config, log *zap.Logger, stdin io.Reader, stdout io.Writer) (*app, error) {
	m := metrics.New()

	client, err := authapi.NewClient(cfg.APIURL, authapi.WithLogger(log), authapi.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		metrics:  m,
		client:   client,
		store:    session.NewStore(session.NewFileStorage(cfg.SessionFile), log),
		view:     ui.NewTerminalView(stdout),
		prompter: ui.NewPrompter(stdin, stdout),
		opts: []ui.Option{
			ui.WithLogger(log),
			ui.WithMetrics(m),
			ui.WithRedirectDelay(cfg.RedirectDelay),
		},
		stdout: stdout,
	}, nil
}

func (a *app) dashboard() *ui.Dashboard {
	return ui.NewDashboard(a.client, a.store, a.view, a.stdout, a.opts...)
}

func (a *app) login(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "account email")
	remember := fs.Bool("remember", false, "remember me")
	showPassword := fs.Bool("show-password", false, "echo the password while typing")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	form := ui.NewLoginForm(a.client, a.store, a.view, a.opts...)
	if *showPassword {
		form.Password().Toggle()
	}

	in := ui.LoginInput{Email: *email, Remember: *remember}
	var err error
	if in.Email == "" {
		if in.Email, err = a.prompter.ReadLine("Email"); err != nil {
			return a.inputError(err)
		}
	}
	if in.Password, err = a.prompter.ReadPassword("Password", form.Password()); err != nil {
		return a.inputError(err)
	}

	if form.Submit(ctx, in) != ui.StateRedirecting {
		return 1
	}
	if a.view.Location() == ui.PageDashboard {
		return exitCode(a.dashboard().Show(ctx))
	}
	return 0
}

func (a *app) logout() int {
	ui.NewAdminPage(a.client, a.store, a.view, a.opts...).Logout()
	return 0
}

func (a *app) createUser(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "account email")
	role := fs.String("role", "user", "role: user or admin")
	showPassword := fs.Bool("show-password", false, "echo the password while typing")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	page := ui.NewAdminPage(a.client, a.store, a.view, a.opts...)
	if _, ok := page.Guard(); !ok {
		return 1
	}
	if *showPassword {
		page.Password().Toggle()
	}

	in := ui.CreateUserInput{Name: *name, Email: *email, Role: *role}
	var err error
	if in.Name == "" {
		if in.Name, err = a.prompter.ReadLine("Name"); err != nil {
			return a.inputError(err)
		}
	}
	if in.Email == "" {
		if in.Email, err = a.prompter.ReadLine("Email"); err != nil {
			return a.inputError(err)
		}
	}
	if in.Password, err = a.prompter.ReadPassword("Password", page.Password()); err != nil {
		return a.inputError(err)
	}

	page.SubmitCreateUser(ctx, in)
	return exitCode(!a.view.Failed() && a.view.Location() == "")
}

func (a *app) inputError(err error) int {
	a.log.Error("read input", zap.Error(err))
	return 1
}

func (a *app) flushMetrics() {
	if a.cfg.MetricsFile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.log.Warn("write metrics textfile", zap.String("path", a.cfg.MetricsFile), zap.Error(err))
	}
}

func exitCode(ok bool) int {
	if ok {
		return 0
	}
	return 1
}
