package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pitchside/internal/authprovider"
	"github.com/pitchside/internal/cache"
	"github.com/pitchside/internal/config"
	"github.com/pitchside/internal/domain"
	"github.com/pitchside/internal/logger"
	"github.com/pitchside/internal/news"
	"github.com/pitchside/internal/session"
)

var errNotSignedIn = errors.New("not signed in; run `pitchside login` first")

// userError replaces err with the message the user should see
func userError(err error) error {
	return errors.New(domain.PublicMessage(err))
}

// app is the client's composition root: one store, one news client and the
// durable cache behind both
type app struct {
	cfg     *config.ClientConfig
	logger  *slog.Logger
	backend cache.Backend
	prefs   *cache.Preferences
	auth    *authprovider.Client
	store   *session.Store

	newsCache *cache.Cache
	news      *news.Client
}

func openApp() (*app, error) {
	cfg, err := config.LoadClient(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appLogger := logger.InitCLILogger(flagVerbose)

	backend, err := cache.OpenSQLite(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	appLogger.Debug("cache opened", "path", backend.Path())

	return newApp(cfg, backend, appLogger), nil
}

func newApp(cfg *config.ClientConfig, backend cache.Backend, appLogger *slog.Logger) *app {
	prefs := cache.NewPreferences(backend)
	authClient := authprovider.NewClient(cfg.AuthURL, cfg.AnonKey,
		authprovider.WithStorage(prefs),
		authprovider.WithLogger(appLogger),
	)
	store := session.NewStore(authClient, prefs,
		session.WithCallbackURL(cfg.CallbackURL),
		session.WithLogger(appLogger),
	)

	newsCache := cache.New(backend, news.CacheTTL)

	return &app{
		cfg:       cfg,
		logger:    appLogger,
		backend:   backend,
		prefs:     prefs,
		auth:      authClient,
		store:     store,
		newsCache: newsCache,
		news:      news.NewClient(cfg.ServerURL, newsCache, appLogger),
	}
}

// restoreSession loads the persisted session. A stored access token the
// provider rejects gets one refresh attempt before giving up.
func (a *app) restoreSession(ctx context.Context) error {
	err := a.store.CheckAuth(ctx)
	if err == nil || errors.Is(err, domain.ErrNoSession) {
		return err
	}
	a.logger.Debug("stored session rejected, refreshing", "error", err)
	if rerr := a.store.RefreshSession(ctx); rerr != nil {
		return err
	}
	return a.store.CheckAuth(ctx)
}

// requireSession is restoreSession for commands that need a signed-in user
func (a *app) requireSession(ctx context.Context) error {
	if err := a.restoreSession(ctx); err != nil {
		return userError(err)
	}
	if a.store.Snapshot().Session == nil {
		return errNotSignedIn
	}
	return nil
}

func (a *app) Close() {
	a.store.Close()
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("failed to close cache", "error", err)
	}
}
