// Package auth tracks whether the operator is signed in and drives login, registration and
// logout against the backend.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"homestock/internal/client"
	"homestock/internal/domain"
	"homestock/internal/identity"
	"homestock/internal/session"
)

// State of the coordinator.
type State string

const (
	StateChecking       State = "checking"
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
)

var ErrMissingCredentials = errors.New("username and password are required")

// Backend is the slice of the REST client the coordinator needs.
type Backend interface {
	SignIn(ctx context.Context, creds client.Credentials) (client.SignInResult, error)
	SignUp(ctx context.Context, reg client.Registration) error
}

type IdentityResolver interface {
	Resolve(ctx context.Context, a identity.Attempt) (identity.Resolution, error)
}

// DefaultRefreshTimeout bounds the profile refresh of a restored session.
const DefaultRefreshTimeout = 3 * time.Second

type Config struct {
	CheckInterval time.Duration
	// RefreshTimeout caps the profile refresh run while restoring a session.
	RefreshTimeout time.Duration
	Logger         *logrus.Logger
}

// Coordinator owns the in-memory auth state. The session itself lives in the session.Store.
type Coordinator struct {
	cfg      Config
	store    *session.Store
	backend  Backend
	resolver IdentityResolver

	mu      sync.RWMutex
	state   State
	user    domain.User
	lastErr string
}

func NewCoordinator(cfg Config, store *session.Store, backend Backend, resolver IdentityResolver) *Coordinator {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Coordinator{
		cfg:      cfg,
		store:    store,
		backend:  backend,
		resolver: resolver,
		state:    StateChecking,
	}
}

// Start validates the stored session: a valid one is adopted, anything else leaves the
// coordinator anonymous.
func (c *Coordinator) Start(ctx context.Context) {
	c.setState(StateChecking, domain.User{})
	c.Check(ctx)
}

// Check re-validates the stored session and adopts or drops it.
func (c *Coordinator) Check(ctx context.Context) {
	if c.State() == StateAuthenticating {
		return
	}
	if !c.store.IsValid(ctx) {
		if c.State() == StateAuthenticated {
			c.cfg.Logger.Info("session no longer valid, signing out")
		}
		c.setAnonymous()
		return
	}
	sess, ok := c.store.Load(ctx)
	if !ok {
		c.setAnonymous()
		return
	}

	if c.State() == StateAuthenticated && c.User() == sess.User {
		return
	}
	c.setState(StateAuthenticated, sess.User)
	c.cfg.Logger.WithField("user", sess.User.Username).Info("session restored")
	c.refreshProfile(ctx, sess)
}

// refreshProfile replaces a derived identity with a real one when the token or a profile
// endpoint can supply it within RefreshTimeout. Failures keep the stored profile.
func (c *Coordinator) refreshProfile(ctx context.Context, sess session.Session) {
	if c.resolver == nil || sess.User.ID != identity.DeriveUserID(sess.User.Username) {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RefreshTimeout)
	defer cancel()
	res, err := c.resolver.Resolve(ctx, identity.Attempt{Token: sess.Token, Username: sess.User.Username})
	if err != nil && ctx.Err() != nil {
		c.cfg.Logger.Warnf("profile refresh gave up after %s", c.cfg.RefreshTimeout)
	}
	if err != nil || res.Kind == identity.KindDeriveFromUsername || res.User == sess.User {
		return
	}
	if err := c.store.UpdateUser(ctx, res.User); err != nil {
		c.cfg.Logger.Warnf("update stored profile: %v", err)
		return
	}
	c.mu.Lock()
	if c.state == StateAuthenticated {
		c.user = res.User
	}
	c.mu.Unlock()
}

// Login signs in, resolves the identity behind the token and persists the session.
func (c *Coordinator) Login(ctx context.Context, creds client.Credentials) (domain.User, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		return domain.User{}, ErrMissingCredentials
	}
	c.setState(StateAuthenticating, domain.User{})
	return c.login(ctx, creds)
}

func (c *Coordinator) login(ctx context.Context, creds client.Credentials) (domain.User, error) {
	logger := c.cfg.Logger.WithField("user", creds.Username)

	res, err := c.backend.SignIn(ctx, creds)
	if err != nil {
		logger.Warnf("sign-in failed: %v", err)
		c.clearStore(ctx)
		c.fail(err)
		return domain.User{}, err
	}

	resolution, err := c.resolver.Resolve(ctx, identity.Attempt{Token: res.Token, Username: creds.Username})
	if err != nil {
		c.clearStore(ctx)
		c.fail(err)
		return domain.User{}, err
	}

	sess, err := c.store.Save(ctx, res.Token, resolution.User, res.TTL())
	if err != nil {
		c.clearStore(ctx)
		c.fail(err)
		return domain.User{}, err
	}

	c.setState(StateAuthenticated, sess.User)
	logger.WithField("strategy", resolution.Kind).Infof("signed in, session valid until %s", sess.ExpiresAt.Format(time.RFC3339))
	return sess.User, nil
}

// Register creates the account and then signs in with the same credentials.
func (c *Coordinator) Register(ctx context.Context, reg client.Registration) (domain.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Username == "" || reg.Password == "" {
		return domain.User{}, ErrMissingCredentials
	}
	c.setState(StateAuthenticating, domain.User{})

	if err := c.backend.SignUp(ctx, reg); err != nil {
		c.cfg.Logger.WithField("user", reg.Username).Warnf("sign-up failed: %v", err)
		c.fail(err)
		return domain.User{}, err
	}
	c.cfg.Logger.WithField("user", reg.Username).Info("account registered")
	return c.login(ctx, client.Credentials{Username: reg.Username, Password: reg.Password})
}

// Logout clears the session without any network call.
func (c *Coordinator) Logout(ctx context.Context) {
	c.clearStore(ctx)
	c.setAnonymous()
	c.cfg.Logger.Info("signed out")
}

// HandleUnauthorized is registered on the REST client; the store is already cleared.
func (c *Coordinator) HandleUnauthorized(ctx context.Context) {
	if c.State() == StateAuthenticated {
		c.cfg.Logger.Warn("backend rejected the session, signing out")
	}
	c.setAnonymous()
}

// Run re-validates the session every CheckInterval until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			switch c.State() {
			case StateAuthenticated, StateAnonymous:
				c.Check(ctx)
			}
		}
	}
}

func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Coordinator) IsAuthenticated() bool {
	return c.State() == StateAuthenticated
}

// IsLoading reports whether the state is still being determined.
func (c *Coordinator) IsLoading() bool {
	switch c.State() {
	case StateChecking, StateAuthenticating:
		return true
	}
	return false
}

// User returns the signed-in user, or the zero User when anonymous.
func (c *Coordinator) User() domain.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// LastError is the message of the last failed login or registration.
func (c *Coordinator) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Coordinator) setState(state State, user domain.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.user = user
	if state == StateAuthenticated {
		c.lastErr = ""
	}
}

func (c *Coordinator) setAnonymous() {
	c.setState(StateAnonymous, domain.User{})
}

func (c *Coordinator) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateAnonymous
	c.user = domain.User{}
	c.lastErr = err.Error()
}

func (c *Coordinator) clearStore(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.cfg.Logger.Warnf("clear session: %v", err)
	}
}
