// Package userinfo memoizes public profile lookups for group members and creators.
package userinfo

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"homestock/internal/cache"
	"homestock/internal/domain"
)

// DefaultTTL is how long a looked-up profile is trusted.
const DefaultTTL = 5 * time.Minute

const maxParallelLookups = 4

// Lookup fetches a profile from the backend.
type Lookup interface {
	UserInfo(ctx context.Context, userID string) (domain.UserInfo, error)
}

type Cache struct {
	lookup  Lookup
	entries *cache.TTL[string, domain.UserInfo]
	logger  *logrus.Logger
}

func NewCache(lookup Lookup, ttl time.Duration, logger *logrus.Logger, opts ...cache.Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Cache{
		lookup:  lookup,
		entries: cache.NewTTL[string, domain.UserInfo](ttl, opts...),
		logger:  logger,
	}
}

// Get serves a fresh cached profile or asks the backend. A failed lookup is neither cached
// nor retried; it yields a placeholder derived from the identifier.
func (c *Cache) Get(ctx context.Context, userID string) domain.UserInfo {
	if info, ok := c.entries.Get(userID); ok {
		return info
	}
	info, err := c.lookup.UserInfo(ctx, userID)
	if err != nil {
		c.logger.WithField("user_id", userID).Debugf("user info lookup failed: %v", err)
		return Placeholder(userID)
	}
	c.entries.Set(userID, info)
	return info
}

// GetMany resolves several identifiers with a bounded number of concurrent lookups. Repeated
// and empty identifiers are looked up at most once.
func (c *Cache) GetMany(ctx context.Context, userIDs []string) map[string]domain.UserInfo {
	unique := make([]string, 0, len(userIDs))
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	results := make([]domain.UserInfo, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLookups)
	for i, id := range unique {
		g.Go(func() error {
			results[i] = c.Get(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]domain.UserInfo, len(unique))
	for i, id := range unique {
		out[id] = results[i]
	}
	return out
}

// Placeholder is what a failed lookup shows: the username embedded in a derived
// identifier, or the first eight characters of any other identifier.
func Placeholder(userID string) domain.UserInfo {
	if userID == domain.UnknownUserID {
		return domain.UserInfo{Username: "unknown"}
	}
	if name, ok := domain.DerivedUsername(userID); ok {
		return domain.UserInfo{Username: name}
	}
	short := userID
	if utf8.RuneCountInString(short) > 8 {
		short = string([]rune(short)[:8])
	}
	return domain.UserInfo{Username: short + "..."}
}
