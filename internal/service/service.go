// Package service holds the dashboard's resource managers. Each keeps a local copy of one
// backend resource family, refreshes it after every write and remembers the last error.
package service

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"homestock/internal/domain"
)

// ValidationError is a form problem caught before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func required(field, value string) error {
	if value == "" {
		return invalid(field, "is required")
	}
	return nil
}

func isISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// CurrentUser reports who is signed in.
type CurrentUser interface {
	User() domain.User
}

// Status is the loading flag and last error message of a manager.
type Status struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// tracker records the loading flag and the last error of one manager.
type tracker struct {
	mu      sync.RWMutex
	loading int
	lastErr string
}

func (t *tracker) begin() {
	t.mu.Lock()
	t.loading++
	t.mu.Unlock()
}

// end records err (nil clears the previous one) and hands it back to the caller.
func (t *tracker) end(err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loading--
	if err != nil {
		t.lastErr = err.Error()
	} else {
		t.lastErr = ""
	}
	return err
}

// fail records err without touching the loading flag.
func (t *tracker) fail(err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastErr = err.Error()
	return err
}

func (t *tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Status{Loading: t.loading > 0, Error: t.lastErr}
}

// collection is the local copy of a server-owned list.
type collection[T any] struct {
	mu    sync.RWMutex
	items []T
}

func (c *collection[T]) set(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = slices.Clone(items)
}

func (c *collection[T]) snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := slices.Clone(c.items)
	if out == nil {
		out = []T{}
	}
	return out
}

func (c *collection[T]) add(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

// remove drops every item matching match and reports whether any did.
func (c *collection[T]) remove(match func(T) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.items)
	c.items = slices.DeleteFunc(c.items, match)
	return len(c.items) != n
}

// replace swaps the first item matching match for item.
func (c *collection[T]) replace(item T, match func(T) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.IndexFunc(c.items, match); i >= 0 {
		c.items[i] = item
		return true
	}
	return false
}
