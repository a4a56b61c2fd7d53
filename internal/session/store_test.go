package session

import (
	"context"
	"errors"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"homestock/internal/domain"
	"homestock/internal/repository/memory"
)

type countingStorage struct {
	*memory.KeyValueRepository
	deletes int
}

func (c *countingStorage) Delete(ctx context.Context, keys ...string) error {
	c.deletes++
	return c.KeyValueRepository.Delete(ctx, keys...)
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestStore() (*Store, *countingStorage, *fakeClock) {
	storage := &countingStorage{KeyValueRepository: memory.NewKeyValueRepository()}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(storage, WithClock(clock.Now), WithLogger(quietLogger())), storage, clock
}

var daniel = domain.User{ID: "42", Username: "daniel", Email: "daniel@example.com"}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store, storage, clock := newTestStore()

	saved, err := store.Save(ctx, "abc.def.ghi", daniel, 30*time.Minute)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if want := clock.now.Add(30 * time.Minute); !saved.ExpiresAt.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", saved.ExpiresAt, want)
	}

	raw, _ := storage.Get(ctx, KeyExpiration)
	if raw != strconv.FormatInt(clock.now.Add(30*time.Minute).UnixMilli(), 10) {
		t.Fatalf("stored expiration = %q", raw)
	}

	got, ok := store.Load(ctx)
	if !ok {
		t.Fatal("expected stored session")
	}
	if got.Token != "abc.def.ghi" || got.User != daniel {
		t.Fatalf("loaded %+v", got)
	}
}

func TestSaveDefaultsTTLToOneHour(t *testing.T) {
	store, _, clock := newTestStore()
	saved, err := store.Save(context.Background(), "tok", daniel, 0)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if want := clock.now.Add(time.Hour); !saved.ExpiresAt.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", saved.ExpiresAt, want)
	}
}

func TestSaveRejectsPartialSession(t *testing.T) {
	store, _, _ := newTestStore()
	if _, err := store.Save(context.Background(), "", daniel, time.Hour); err != ErrIncompleteSession {
		t.Fatalf("empty token: got %v", err)
	}
	if _, err := store.Save(context.Background(), "tok", domain.User{}, time.Hour); err != ErrIncompleteSession {
		t.Fatalf("empty user: got %v", err)
	}
}

func TestTokenWithoutUserIsCleared(t *testing.T) {
	ctx := context.Background()
	store, storage, _ := newTestStore()
	_ = storage.Set(ctx, KeyToken, "tok")

	if _, ok := store.Load(ctx); ok {
		t.Fatal("token without user must not load")
	}
	if _, err := storage.Get(ctx, KeyToken); err == nil {
		t.Fatal("orphaned token survived Load")
	}
	if tok, ok := store.Token(ctx); ok {
		t.Fatalf("Token() = %q after partial session was dropped", tok)
	}
	if store.IsValid(ctx) {
		t.Fatal("partial session reported valid")
	}
}

func TestTokenRequiresCompleteSession(t *testing.T) {
	ctx := context.Background()
	store, storage, _ := newTestStore()
	_ = storage.Set(ctx, KeyToken, "tok")

	if tok, ok := store.Token(ctx); ok {
		t.Fatalf("Token() = %q without a user", tok)
	}
	if storage.deletes != 1 {
		t.Fatalf("expected the partial session to be cleared once, got %d", storage.deletes)
	}
}

func TestUserWithoutTokenIsCleared(t *testing.T) {
	ctx := context.Background()
	store, storage, _ := newTestStore()
	_ = storage.Set(ctx, KeyUser, `{"id":"42","username":"daniel"}`)
	_ = storage.Set(ctx, KeyExpiration, "1")

	if _, ok := store.Load(ctx); ok {
		t.Fatal("user without token must not load")
	}
	for _, k := range []string{KeyUser, KeyExpiration} {
		if _, err := storage.Get(ctx, k); err == nil {
			t.Fatalf("%s survived Load", k)
		}
	}
}

type failingStorage struct {
	*memory.KeyValueRepository
	fail bool
}

func (f *failingStorage) Get(ctx context.Context, key string) (string, error) {
	if f.fail {
		return "", errors.New("disk unavailable")
	}
	return f.KeyValueRepository.Get(ctx, key)
}

func TestUnavailableStorageLeavesSessionAlone(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{KeyValueRepository: memory.NewKeyValueRepository()}
	store := NewStore(storage, WithLogger(quietLogger()))
	if _, err := store.Save(ctx, "tok", daniel, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	storage.fail = true
	if store.IsValid(ctx) {
		t.Fatal("unreadable session reported valid")
	}
	storage.fail = false
	if _, ok := store.Load(ctx); !ok {
		t.Fatal("session was cleared on a read failure")
	}
}

func TestLoadCorruptedUserClearsStore(t *testing.T) {
	ctx := context.Background()
	store, storage, _ := newTestStore()
	_ = storage.Set(ctx, KeyToken, "tok")
	_ = storage.Set(ctx, KeyUser, "{not json")

	if _, ok := store.Load(ctx); ok {
		t.Fatal("corrupted user must not load")
	}
	if _, ok := store.Token(ctx); ok {
		t.Fatal("corrupted session should have been cleared")
	}
}

func TestIsValidExpiresAndClearsOnce(t *testing.T) {
	ctx := context.Background()
	store, storage, clock := newTestStore()
	if _, err := store.Save(ctx, "tok", daniel, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	if !store.IsValid(ctx) {
		t.Fatal("fresh session should be valid")
	}
	if storage.deletes != 0 {
		t.Fatalf("valid check cleared the store")
	}

	clock.Advance(time.Minute)
	if store.IsValid(ctx) {
		t.Fatal("session at expiresAt must be invalid")
	}
	if storage.deletes != 1 {
		t.Fatalf("expected one clear, got %d", storage.deletes)
	}

	if store.IsValid(ctx) {
		t.Fatal("cleared session must stay invalid")
	}
	if storage.deletes != 1 {
		t.Fatalf("second check cleared again: %d", storage.deletes)
	}
	if _, ok := store.Load(ctx); ok {
		t.Fatal("expired session still loadable")
	}
}

func TestIsValidWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	store, storage, _ := newTestStore()
	_ = storage.Set(ctx, KeyToken, "tok")
	_ = storage.Set(ctx, KeyUser, `{"id":"42","username":"daniel"}`)
	if !store.IsValid(ctx) {
		t.Fatal("token without stored expiry should be valid")
	}
}

func TestClearRemovesAllKeys(t *testing.T) {
	ctx := context.Background()
	store, storage, _ := newTestStore()
	_, _ = store.Save(ctx, "tok", daniel, time.Hour)

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	for _, k := range []string{KeyToken, KeyUser, KeyExpiration} {
		if _, err := storage.Get(ctx, k); err == nil {
			t.Fatalf("%s survived clear", k)
		}
	}
}

func TestUpdateUserKeepsExpiry(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore()
	saved, _ := store.Save(ctx, "tok", daniel, time.Hour)

	updated := domain.User{ID: "42", Username: "daniel", Email: "new@example.com"}
	if err := store.UpdateUser(ctx, updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok := store.Load(ctx)
	if !ok || got.User != updated || !got.ExpiresAt.Equal(saved.ExpiresAt.Truncate(time.Millisecond)) {
		t.Fatalf("loaded %+v", got)
	}
}
