// Package identity resolves the profile behind a freshly issued bearer token.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"homestock/internal/domain"
)

// ErrUnresolved is returned when no strategy produced an identity.
var ErrUnresolved = errors.New("identity unresolved")

// Kind tags the strategy that produced an identity.
type Kind string

const (
	KindDecodeToken        Kind = "decode_token"
	KindQueryEndpoint      Kind = "query_endpoint"
	KindDeriveFromUsername Kind = "derive_from_username"
)

// Attempt carries what is known right after sign-in.
type Attempt struct {
	Token    string
	Username string
}

// Strategy is one step of the resolution chain.
type Strategy interface {
	Kind() Kind
	Resolve(ctx context.Context, a Attempt) (domain.User, error)
}

// Resolution is the identity found and the strategy that found it.
type Resolution struct {
	User domain.User
	Kind Kind
}

// Resolver tries its strategies in order; the first success wins.
type Resolver struct {
	strategies []Strategy
	logger     *logrus.Logger
}

func NewResolver(logger *logrus.Logger, strategies ...Strategy) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{strategies: strategies, logger: logger}
}

// NewDefaultResolver builds the DecodeToken, QueryEndpoint, DeriveFromUsername chain.
func NewDefaultResolver(profiles ProfileFetcher, endpoints []string, logger *logrus.Logger) *Resolver {
	return NewResolver(logger,
		DecodeToken{},
		QueryEndpoint{Profiles: profiles, Endpoints: endpoints, Logger: logger},
		DeriveFromUsername{},
	)
}

func (r *Resolver) Resolve(ctx context.Context, a Attempt) (Resolution, error) {
	for _, s := range r.strategies {
		user, err := s.Resolve(ctx, a)
		if err == nil {
			r.logger.WithField("strategy", s.Kind()).Debugf("identity resolved for %s", user.Username)
			return Resolution{User: user, Kind: s.Kind()}, nil
		}
		if ctx.Err() != nil {
			return Resolution{}, ctx.Err()
		}
		r.logger.WithField("strategy", s.Kind()).Debugf("identity strategy failed: %v", err)
	}
	return Resolution{}, ErrUnresolved
}

// DecodeToken reads identity claims from a three-part signed token without verifying it.
type DecodeToken struct{}

func (DecodeToken) Kind() Kind { return KindDecodeToken }

func (DecodeToken) Resolve(_ context.Context, a Attempt) (domain.User, error) {
	if strings.Count(a.Token, ".") != 2 {
		return domain.User{}, fmt.Errorf("token is not a three-part structure")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(a.Token, claims); err != nil {
		return domain.User{}, fmt.Errorf("decode token: %w", err)
	}

	id := claimString(claims, "sub", "userId", "id", "user_id")
	if id == "" {
		return domain.User{}, fmt.Errorf("token carries no user identifier")
	}
	username := claimString(claims, "username", "name", "user_name")
	if username == "" {
		username = a.Username
	}
	return domain.User{
		ID:       id,
		Username: username,
		Email:    claimString(claims, "email", "user_email"),
	}, nil
}

func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		switch v := claims[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// ProfileFetcher loads the caller's profile from one endpoint using the given token.
type ProfileFetcher interface {
	Profile(ctx context.Context, endpoint, token string) (domain.User, error)
}

// QueryEndpoint asks each profile endpoint in order until one answers with an identity.
type QueryEndpoint struct {
	Profiles  ProfileFetcher
	Endpoints []string
	Logger    *logrus.Logger
}

func (QueryEndpoint) Kind() Kind { return KindQueryEndpoint }

func (q QueryEndpoint) Resolve(ctx context.Context, a Attempt) (domain.User, error) {
	if q.Profiles == nil || a.Token == "" {
		return domain.User{}, ErrUnresolved
	}
	for _, endpoint := range q.Endpoints {
		user, err := q.Profiles.Profile(ctx, endpoint, a.Token)
		if err == nil && user.ID != "" {
			if user.Username == "" {
				user.Username = a.Username
			}
			return user, nil
		}
		if err == nil {
			err = errors.New("profile without id")
		}
		if ctx.Err() != nil {
			return domain.User{}, ctx.Err()
		}
		if q.Logger != nil {
			q.Logger.WithField("endpoint", endpoint).Debugf("profile endpoint failed: %v", err)
		}
	}
	return domain.User{}, fmt.Errorf("no profile endpoint answered: %w", ErrUnresolved)
}

// DeriveFromUsername builds a synthetic identity from the username alone.
type DeriveFromUsername struct{}

func (DeriveFromUsername) Kind() Kind { return KindDeriveFromUsername }

func (DeriveFromUsername) Resolve(_ context.Context, a Attempt) (domain.User, error) {
	return domain.User{
		ID:       DeriveUserID(a.Username),
		Username: a.Username,
	}, nil
}
