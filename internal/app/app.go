// Package app wires configuration, storage, sessions and the todo store
// into the interactive client and runs it until the user exits or the
// process is signalled. When Google credentials are configured it also
// serves the OAuth callback and Prometheus metrics on the loopback address.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/IsnuMdr/todo-app/internal/cascade"
	"github.com/IsnuMdr/todo-app/internal/cli"
	"github.com/IsnuMdr/todo-app/internal/common"
	"github.com/IsnuMdr/todo-app/internal/config"
	"github.com/IsnuMdr/todo-app/internal/logging"
	"github.com/IsnuMdr/todo-app/internal/metrics"
	"github.com/IsnuMdr/todo-app/internal/oauth"
	"github.com/IsnuMdr/todo-app/internal/repositories/todos"
	"github.com/IsnuMdr/todo-app/internal/services"
	"github.com/IsnuMdr/todo-app/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    *storage.Store
	server   *oauth.Server
	handler  http.Handler
	sessions *services.SessionManager
	todos    *services.TodoStore
	cli      *cli.App
}

// NewApp opens storage and builds the services. The returned App owns the
// store and, if Google login is enabled, the callback listener.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out io.Writer) (*App, error) {
	logger := logging.New(os.Stderr, c.LogLevel)

	store, err := storage.Open(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	app := &App{config: c, logger: logger, store: store}

	var provider oauth.Provider
	if c.GoogleEnabled() {
		srv, err := oauth.Listen(c.CallbackAddr)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("callback listener: %w", err)
		}
		google := oauth.NewGoogleProvider(oauth.GoogleConfig{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			RedirectURL:  srv.CallbackURL(),
		}, store, logger)
		google.Open = func(loginURL string) error {
			_, err := fmt.Fprintf(out, "Open this URL to sign in with Google:\n%s\n", loginURL)
			return err
		}
		app.server = srv
		app.handler = oauth.NewRouter(google, metrics.Handler(reg), logger)
		provider = google
	}

	secret := []byte(c.SessionSecret)
	app.sessions = services.NewSessionManager(store, provider, secret, logger, collector)

	policy := cascade.KeepParent
	if c.ReopenParentOnSubtaskUncheck {
		policy = cascade.ReopenParent
	}
	repo := todos.NewDurableRepository(store, app.sessions)
	app.todos = services.NewTodoStore(repo, app.sessions, policy, logger, collector)
	app.cli = cli.NewApp(app.sessions, app.todos, in, out)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		if _, ok := <-sigs; ok {
			cancelFunc()
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(sigs)
	}
}

// restore adopts a provider session that outlived the last run and fills
// the cache for whoever is signed in.
func (app *App) restore(ctx context.Context) {
	if _, err := app.sessions.SyncExternalSession(ctx); err != nil {
		app.logger.Warn(ctx, "external session sync failed", "err", err)
	}
	if err := app.todos.Load(ctx); err != nil && !errors.Is(err, common.ErrorUnauthorized) {
		app.logger.Error(ctx, "loading todos failed", "err", err)
	}
}

// Run serves the REPL until it returns or ctx is cancelled, then shuts
// everything down within the configured timeout.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	stopSignals := app.initSignalHandler(cancelFunc)
	defer stopSignals()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageDriver)

	if app.server != nil {
		go func() {
			if err := app.server.Serve(app.handler); err != nil {
				app.logger.Error(ctx, "callback server stopped", "err", err)
				cancelFunc()
			}
		}()
		app.logger.Info(ctx, "oauth callback listening", "url", app.server.CallbackURL())
	}

	app.restore(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.cli.Run(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	return app.shutdown()
}

func (app *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()

	app.todos.Close()
	app.sessions.Close()

	var errs []error
	if app.server != nil {
		if err := app.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("callback server shutdown: %w", err))
		}
	}
	if err := app.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage close: %w", err))
	}
	app.logger.Info(ctx, "Stopped")
	return errors.Join(errs...)
}
