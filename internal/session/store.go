package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pitchside/internal/domain"
)

const (
	// DefaultTickInterval is how often the expiration watcher compares the
	// stored expiration instant with the clock
	DefaultTickInterval = time.Second

	// DefaultRefreshThreshold is how close to expiry a session must be before
	// RefreshSessionIfNeeded renews it
	DefaultRefreshThreshold = 5 * time.Minute

	// NoEmailMessage is reported by ResendVerificationEmail when the user has
	// no email address
	NoEmailMessage = "No email address found for the user"
)

// SupportedOAuthProviders lists the OAuth providers offered for sign-in
var SupportedOAuthProviders = []string{"google", "github", "facebook", "twitter"}

// State is a point-in-time view of the store
type State struct {
	Session               *Session
	User                  *User
	Loading               bool
	Error                 string
	RememberMe            bool
	IsEmailVerified       bool
	EmailVerificationSent bool
	LastVerificationCheck int64 // epoch ms, 0 when never checked
	OAuthProviders        []string
	OAuthLoading          bool
	SessionExpiresAt      int64 // epoch ms, 0 when unknown
	IsSessionExpired      bool
}

// VerificationResult is returned by CheckEmailVerification
type VerificationResult struct {
	IsVerified  bool
	LastChecked int64
}

// ResendResult is returned by ResendVerificationEmail
type ResendResult struct {
	Success bool
	Error   string
}

// Store holds the client's authentication state. It is created by the
// application root and released with Close.
type Store struct {
	provider         Provider
	prefs            KeyValue
	logger           *slog.Logger
	now              func() time.Time
	tickInterval     time.Duration
	refreshThreshold time.Duration
	callbackURL      string

	mu           sync.Mutex
	state        State
	listeners    map[int]func(State)
	nextListener int

	watchMu   sync.Mutex
	watchStop chan struct{}
	watchDone chan struct{}
	closed    bool

	refreshGroup singleflight.Group
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithTickInterval sets the expiration watcher period
func WithTickInterval(d time.Duration) StoreOption {
	return func(s *Store) {
		s.tickInterval = d
	}
}

// WithRefreshThreshold sets how early RefreshSessionIfNeeded renews
func WithRefreshThreshold(d time.Duration) StoreOption {
	return func(s *Store) {
		s.refreshThreshold = d
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// WithCallbackURL sets the URL confirmation and OAuth flows return to
func WithCallbackURL(u string) StoreOption {
	return func(s *Store) {
		s.callbackURL = u
	}
}

// NewStore creates a store backed by provider. prefs may be nil, in which
// case the remember-me flag and email are not persisted.
func NewStore(provider Provider, prefs KeyValue, opts ...StoreOption) *Store {
	s := &Store{
		provider:         provider,
		prefs:            prefs,
		logger:           slog.Default(),
		now:              time.Now,
		tickInterval:     DefaultTickInterval,
		refreshThreshold: DefaultRefreshThreshold,
		listeners:        make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close stops the expiration watcher. The store must not be used afterwards.
func (s *Store) Close() {
	s.watchMu.Lock()
	s.closed = true
	done := s.stopWatcherLocked()
	s.watchMu.Unlock()

	if done != nil {
		<-done
	}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Subscribe registers fn to be called with the new state after every
// mutation. The returned func removes the listener.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) copyLocked() State {
	st := s.state
	st.OAuthProviders = slices.Clone(s.state.OAuthProviders)
	return st
}

// update applies fn under the lock and notifies listeners outside it
func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.copyLocked()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// begin marks a remote call in flight
func (s *Store) begin(clearError bool) {
	s.update(func(st *State) {
		st.Loading = true
		if clearError {
			st.Error = ""
		}
	})
}

// fail records err as the user-facing error and ends the remote call
func (s *Store) fail(err error) {
	msg := errorMessage(err)
	s.update(func(st *State) {
		st.Error = msg
		st.Loading = false
	})
}

func errorMessage(err error) string {
	return domain.PublicMessage(err)
}

// assignSession replaces the session and resets expiration tracking
func assignSession(st *State, sess *Session) {
	st.Session = sess
	st.SessionExpiresAt = sess.ExpiresAtMillis()
	st.IsSessionExpired = false
	if sess != nil && sess.User != nil {
		st.User = sess.User
	}
}

// Login signs in with email and password
func (s *Store) Login(ctx context.Context, email, password string, rememberMe bool) error {
	s.begin(true)

	sess, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.fail(err)
		return err
	}

	s.update(func(st *State) {
		assignSession(st, sess)
		st.RememberMe = rememberMe
		st.Loading = false
	})

	if s.prefs != nil {
		var perr error
		if rememberMe {
			perr = s.prefs.Set(ctx, KeyRememberMe, "true")
		} else {
			perr = s.prefs.Remove(ctx, KeyRememberMe)
		}
		if perr != nil {
			s.logger.Warn("failed to persist remember-me flag", "error", perr)
		}
	}

	s.CheckSessionExpiration()
	return nil
}

// SignUp registers a new account. The confirmation email links back to the
// configured callback URL.
func (s *Store) SignUp(ctx context.Context, email, password string, metadata map[string]any) error {
	s.begin(true)

	user, sess, err := s.provider.SignUp(ctx, SignUpRequest{
		Email:           email,
		Password:        password,
		Data:            metadata,
		EmailRedirectTo: s.callbackURL,
	})
	if err != nil {
		s.fail(err)
		return err
	}

	s.update(func(st *State) {
		st.User = user
		if sess != nil {
			assignSession(st, sess)
		}
		st.Loading = false
	})
	if sess != nil {
		s.CheckSessionExpiration()
	}
	return nil
}

// Logout signs out and clears the session, user and verification state
func (s *Store) Logout(ctx context.Context) error {
	s.begin(false)

	if err := s.provider.SignOut(ctx); err != nil {
		s.fail(err)
		return err
	}

	s.stopWatcher()
	s.update(func(st *State) {
		st.Session = nil
		st.User = nil
		st.SessionExpiresAt = 0
		st.IsSessionExpired = false
		st.IsEmailVerified = false
		st.EmailVerificationSent = false
		st.LastVerificationCheck = 0
		st.Loading = false
	})
	return nil
}

// CheckAuth restores an existing session from the provider, if any
func (s *Store) CheckAuth(ctx context.Context) error {
	s.begin(false)

	if s.prefs != nil {
		if v, ok, err := s.prefs.Get(ctx, KeyRememberMe); err == nil {
			s.update(func(st *State) { st.RememberMe = ok && v == "true" })
		}
	}

	sess, err := s.provider.GetSession(ctx)
	if err != nil {
		s.fail(err)
		return err
	}
	if sess == nil {
		s.update(func(st *State) { st.Loading = false })
		return nil
	}

	user, err := s.provider.GetUser(ctx)
	if err != nil {
		s.fail(err)
		return err
	}

	s.update(func(st *State) {
		assignSession(st, sess)
		st.User = user
		st.Loading = false
	})
	s.CheckSessionExpiration()
	return nil
}

// SetSession assigns sess and restarts expiration tracking. A nil session
// clears it and stops the watcher.
func (s *Store) SetSession(sess *Session) {
	s.update(func(st *State) {
		assignSession(st, sess)
	})
	if sess == nil {
		s.stopWatcher()
		return
	}
	s.CheckSessionExpiration()
}

// ExchangeCode completes an OAuth or email-link sign-in
func (s *Store) ExchangeCode(ctx context.Context, code string) error {
	s.begin(true)

	sess, err := s.provider.ExchangeCodeForSession(ctx, code)
	if err != nil {
		s.fail(err)
		return err
	}

	s.update(func(st *State) { st.Loading = false })
	s.SetSession(sess)
	return nil
}

// CheckSessionExpiration starts a watcher that sets IsSessionExpired once
// the known expiration instant has passed. It replaces any running watcher
// and does nothing when no expiration is known.
func (s *Store) CheckSessionExpiration() {
	s.mu.Lock()
	expiresAt := s.state.SessionExpiresAt
	s.mu.Unlock()
	if expiresAt == 0 {
		return
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.closed {
		return
	}
	s.stopWatcherLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	s.watchStop = stop
	s.watchDone = done
	go s.watch(expiresAt, stop, done)
}

func (s *Store) watch(expiresAt int64, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if s.now().UnixMilli() < expiresAt {
				continue
			}
			s.update(func(st *State) {
				// A newer session may have been assigned since this watcher started.
				if st.SessionExpiresAt == expiresAt {
					st.IsSessionExpired = true
				}
			})
			s.logger.Info("session expired", "expires_at", expiresAt)
			return
		}
	}
}

func (s *Store) stopWatcher() {
	s.watchMu.Lock()
	s.stopWatcherLocked()
	s.watchMu.Unlock()
}

// stopWatcherLocked signals the running watcher and returns its done channel
func (s *Store) stopWatcherLocked() <-chan struct{} {
	if s.watchStop == nil {
		return nil
	}
	select {
	case <-s.watchDone:
	default:
		close(s.watchStop)
	}
	done := s.watchDone
	s.watchStop = nil
	s.watchDone = nil
	return done
}

// RefreshSessionIfNeeded renews the session when it expires within the
// refresh threshold. Failures are logged and recorded in Error only.
func (s *Store) RefreshSessionIfNeeded(ctx context.Context) {
	s.mu.Lock()
	expiresAt := s.state.SessionExpiresAt
	s.mu.Unlock()
	if expiresAt == 0 {
		return
	}

	if time.UnixMilli(expiresAt).Sub(s.now()) >= s.refreshThreshold {
		return
	}
	if err := s.RefreshSession(ctx); err != nil {
		s.logger.Error("failed to refresh session", "error", err)
	}
}

// RefreshSession trades the refresh token for a new session. Concurrent
// callers share one remote call and its outcome. The shared call is detached
// from any single caller's cancellation; each caller stops waiting when its
// own ctx is done.
func (s *Store) RefreshSession(ctx context.Context) error {
	callCtx := context.WithoutCancel(ctx)
	ch := s.refreshGroup.DoChan("refresh", func() (any, error) {
		s.begin(false)

		sess, err := s.provider.RefreshSession(callCtx)
		if err != nil {
			s.fail(err)
			return nil, err
		}

		s.update(func(st *State) {
			assignSession(st, sess)
			st.Loading = false
		})
		s.CheckSessionExpiration()
		return sess, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("joined in-flight session refresh")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CheckEmailVerification asks the provider whether the user's email has
// been confirmed and records the answer
func (s *Store) CheckEmailVerification(ctx context.Context) (VerificationResult, error) {
	s.begin(false)

	user, err := s.provider.GetUser(ctx)
	if err != nil {
		s.fail(err)
		return VerificationResult{}, err
	}

	res := VerificationResult{
		IsVerified:  user.IsVerified(),
		LastChecked: s.now().UnixMilli(),
	}
	s.update(func(st *State) {
		st.IsEmailVerified = res.IsVerified
		st.User = user
		st.LastVerificationCheck = res.LastChecked
		st.Loading = false
	})
	return res, nil
}

// VerifyEmail is CheckEmailVerification that only commits a positive answer
func (s *Store) VerifyEmail(ctx context.Context) (bool, error) {
	s.begin(false)

	user, err := s.provider.GetUser(ctx)
	if err != nil {
		s.fail(err)
		return false, err
	}

	verified := user.IsVerified()
	now := s.now().UnixMilli()
	s.update(func(st *State) {
		if verified {
			st.IsEmailVerified = true
			st.User = user
			st.LastVerificationCheck = now
		}
		st.Loading = false
	})
	return verified, nil
}

// ResendVerificationEmail sends the sign-up confirmation email again
func (s *Store) ResendVerificationEmail(ctx context.Context) ResendResult {
	var email string
	s.update(func(st *State) {
		st.Loading = true
		st.EmailVerificationSent = false
		if st.User != nil {
			email = st.User.Email
		}
	})

	if email == "" {
		s.fail(errors.New(NoEmailMessage))
		return ResendResult{Success: false, Error: NoEmailMessage}
	}

	if err := s.provider.Resend(ctx, "signup", email, s.callbackURL); err != nil {
		s.fail(err)
		return ResendResult{Success: false, Error: errorMessage(err)}
	}

	s.update(func(st *State) {
		st.EmailVerificationSent = true
		st.Loading = false
	})
	return ResendResult{Success: true}
}

// ResetPassword sends a password recovery email
func (s *Store) ResetPassword(ctx context.Context, email string) error {
	s.begin(false)

	if err := s.provider.ResetPasswordForEmail(ctx, email, ""); err != nil {
		s.fail(err)
		return err
	}
	s.update(func(st *State) { st.Loading = false })
	return nil
}

// UpdateProfile applies profile changes and stores the updated user
func (s *Store) UpdateProfile(ctx context.Context, update UserUpdate) error {
	s.begin(false)

	user, err := s.provider.UpdateUser(ctx, update)
	if err != nil {
		s.fail(err)
		return err
	}
	s.update(func(st *State) {
		st.User = user
		st.Loading = false
	})
	return nil
}

// GetOAuthProviders loads the OAuth providers offered for sign-in
func (s *Store) GetOAuthProviders(ctx context.Context) []string {
	s.update(func(st *State) { st.OAuthLoading = true })
	providers := slices.Clone(SupportedOAuthProviders)
	s.update(func(st *State) {
		st.OAuthProviders = providers
		st.OAuthLoading = false
	})
	return providers
}

// OAuthSignInURL returns the provider URL that begins an OAuth sign-in.
// An empty redirectTo uses the configured callback URL.
func (s *Store) OAuthSignInURL(ctx context.Context, provider, redirectTo string) (string, error) {
	if redirectTo == "" {
		redirectTo = s.callbackURL
	}
	s.update(func(st *State) {
		st.OAuthLoading = true
		st.Error = ""
	})

	u, err := s.provider.AuthorizeURL(ctx, provider, redirectTo)
	if err != nil {
		msg := errorMessage(err)
		s.update(func(st *State) {
			st.Error = msg
			st.OAuthLoading = false
		})
		return "", err
	}
	s.update(func(st *State) { st.OAuthLoading = false })
	return u, nil
}

// RememberedEmail returns the email saved by SetRememberedEmail
func (s *Store) RememberedEmail(ctx context.Context) string {
	if s.prefs == nil {
		return ""
	}
	v, ok, err := s.prefs.Get(ctx, KeyRememberedEmail)
	if err != nil || !ok {
		return ""
	}
	return v
}

// SetRememberedEmail saves email for prefilling the login form, or forgets
// it when remember is false
func (s *Store) SetRememberedEmail(ctx context.Context, email string, remember bool) error {
	if s.prefs == nil {
		return nil
	}
	if remember && email != "" {
		return s.prefs.Set(ctx, KeyRememberedEmail, email)
	}
	return s.prefs.Remove(ctx, KeyRememberedEmail)
}
