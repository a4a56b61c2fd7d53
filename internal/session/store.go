package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"homestock/internal/domain"
	"homestock/internal/repository"
)

// Storage keys shared with every client of the same database.
const (
	KeyToken      = "authToken"
	KeyUser       = "user"
	KeyExpiration = "tokenExpiration"
)

// DefaultTTL applies when the server does not report a token lifetime.
const DefaultTTL = time.Hour

var (
	// ErrIncompleteSession is returned when saving a token without a user or vice versa.
	ErrIncompleteSession = errors.New("session requires both token and user")
)

// Session is the client-held record of the authenticated user and their bearer token.
type Session struct {
	Token     string
	User      domain.User
	ExpiresAt time.Time // zero when no expiry was stored
}

// Store persists the current session. All mutation goes through Save, UpdateUser and Clear
// so token and user are always written or removed together.
type Store struct {
	storage    repository.KeyValueRepository
	defaultTTL time.Duration
	now        func() time.Time
	logger     *logrus.Logger
}

type Option func(*Store)

// WithDefaultTTL overrides the lifetime used when Save receives ttl <= 0.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func NewStore(storage repository.KeyValueRepository, opts ...Option) *Store {
	s := &Store{
		storage:    storage,
		defaultTTL: DefaultTTL,
		now:        time.Now,
		logger:     logrus.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists token, user and expiresAt = now + ttl.
func (s *Store) Save(ctx context.Context, token string, user domain.User, ttl time.Duration) (Session, error) {
	if token == "" || user.IsZero() {
		return Session{}, ErrIncompleteSession
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return Session{}, fmt.Errorf("encode user: %w", err)
	}
	expiresAt := s.now().Add(ttl)

	if err := s.storage.Set(ctx, KeyToken, token); err != nil {
		return Session{}, err
	}
	if err := s.storage.Set(ctx, KeyUser, string(raw)); err != nil {
		s.clearQuietly(ctx)
		return Session{}, err
	}
	if err := s.storage.Set(ctx, KeyExpiration, strconv.FormatInt(expiresAt.UnixMilli(), 10)); err != nil {
		s.clearQuietly(ctx)
		return Session{}, err
	}

	return Session{Token: token, User: user, ExpiresAt: expiresAt}, nil
}

// UpdateUser replaces the stored profile of an existing session.
func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	if _, ok := s.Load(ctx); !ok {
		return ErrIncompleteSession
	}
	if user.IsZero() {
		return ErrIncompleteSession
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.storage.Set(ctx, KeyUser, string(raw))
}

// Load returns the stored session. Missing fields yield ok == false; a token without a user
// (or the reverse) and corrupted fields additionally clear the store.
func (s *Store) Load(ctx context.Context) (Session, bool) {
	token, tokenState := s.read(ctx, KeyToken)
	rawUser, userState := s.read(ctx, KeyUser)
	switch {
	case tokenState == readUnavailable || userState == readUnavailable:
		return Session{}, false
	case tokenState == readCorrupt:
		s.discard(ctx, "token")
		return Session{}, false
	case userState == readCorrupt:
		s.discard(ctx, "user")
		return Session{}, false
	}

	hasToken := tokenState == readOK && token != ""
	hasUser := userState == readOK
	if !hasToken && !hasUser {
		return Session{}, false
	}
	if !hasToken || !hasUser {
		s.discard(ctx, "partial")
		return Session{}, false
	}

	var user domain.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil || user.IsZero() {
		s.discard(ctx, "user")
		return Session{}, false
	}

	sess := Session{Token: token, User: user}
	rawExp, expState := s.read(ctx, KeyExpiration)
	switch expState {
	case readUnavailable:
		return Session{}, false
	case readCorrupt:
		s.discard(ctx, "expiration")
		return Session{}, false
	case readOK:
		ms, err := strconv.ParseInt(rawExp, 10, 64)
		if err != nil {
			s.discard(ctx, "expiration")
			return Session{}, false
		}
		sess.ExpiresAt = time.UnixMilli(ms)
	}
	return sess, true
}

// IsValid reports whether a complete session is stored and not yet expired. An expired
// session is cleared as a side effect.
func (s *Store) IsValid(ctx context.Context) bool {
	sess, ok := s.Load(ctx)
	if !ok {
		return false
	}
	if !sess.ExpiresAt.IsZero() && !s.now().Before(sess.ExpiresAt) {
		s.logger.Warn("session token expired, clearing")
		s.clearQuietly(ctx)
		return false
	}
	return true
}

// Token returns the bearer token of a complete stored session.
func (s *Store) Token(ctx context.Context) (string, bool) {
	sess, ok := s.Load(ctx)
	return sess.Token, ok
}

// Clear removes token, user and expiry unconditionally.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, KeyToken, KeyUser, KeyExpiration); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

type readState int

const (
	readOK readState = iota
	readMissing
	readCorrupt
	readUnavailable
)

// read distinguishes a missing key from an unreadable value. Storage failures leave the store
// untouched.
func (s *Store) read(ctx context.Context, key string) (string, readState) {
	value, err := s.storage.Get(ctx, key)
	switch {
	case err == nil:
		return value, readOK
	case errors.Is(err, repository.ErrNotFound):
		return "", readMissing
	case errors.Is(err, ErrCorrupted):
		return "", readCorrupt
	default:
		s.logger.WithField("key", key).Warnf("read session storage: %v", err)
		return "", readUnavailable
	}
}

func (s *Store) discard(ctx context.Context, field string) {
	s.logger.WithField("field", field).Warn("stored session is corrupted, clearing")
	s.clearQuietly(ctx)
}

func (s *Store) clearQuietly(ctx context.Context) {
	if err := s.Clear(ctx); err != nil {
		s.logger.Warnf("%v", err)
	}
}
