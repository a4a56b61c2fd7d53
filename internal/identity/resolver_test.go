package identity

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"homestock/internal/domain"
)

const (
	tokenWithClaims = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJ1LTciLCJ1c2VybmFtZSI6ImRhbmllbCIsImVtYWlsIjoiZGFuaWVsQGV4YW1wbGUuY29tIn0.c2ln"
	tokenWithoutID  = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1c2VybmFtZSI6ImRhbmllbCJ9.c2ln"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeProfiles struct {
	answers map[string]domain.User
	calls   []string
}

func (f *fakeProfiles) Profile(_ context.Context, endpoint, token string) (domain.User, error) {
	f.calls = append(f.calls, endpoint)
	if u, ok := f.answers[endpoint]; ok {
		return u, nil
	}
	return domain.User{}, errors.New("404")
}

func TestDeriveUserID(t *testing.T) {
	cases := map[string]string{
		"daniel":           "user-daniel-1339089505",
		"ana":              "user-ana-96724",
		"d":                "user-d-100",
		"josé":             "user-josé-3268315",
		"householdmanager": "user-householdmanager-1122854162",
		"":                 "user-unknown",
	}
	for in, want := range cases {
		if got := DeriveUserID(in); got != want {
			t.Errorf("DeriveUserID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveUserIDStableAndDistinct(t *testing.T) {
	names := []string{"daniel", "Daniel", "danie", "ana", "naa", "grandmother_rosa"}
	seen := make(map[string]string)
	for _, n := range names {
		id := DeriveUserID(n)
		if again := DeriveUserID(n); again != id {
			t.Fatalf("unstable id for %q: %q vs %q", n, id, again)
		}
		if other, dup := seen[id]; dup {
			t.Fatalf("%q and %q share id %q", n, other, id)
		}
		seen[id] = n
	}
}

func TestDecodeTokenReadsClaims(t *testing.T) {
	user, err := DecodeToken{}.Resolve(context.Background(), Attempt{Token: tokenWithClaims, Username: "x"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := domain.User{ID: "u-7", Username: "daniel", Email: "daniel@example.com"}
	if user != want {
		t.Fatalf("got %+v, want %+v", user, want)
	}
}

func TestDecodeTokenRejects(t *testing.T) {
	for _, tok := range []string{"opaque-token", "abc.def.ghi", tokenWithoutID} {
		if _, err := (DecodeToken{}).Resolve(context.Background(), Attempt{Token: tok}); err == nil {
			t.Errorf("token %q should not resolve", tok)
		}
	}
}

func TestResolverOrder(t *testing.T) {
	profiles := &fakeProfiles{answers: map[string]domain.User{
		"user/current": {ID: "99", Username: "daniel", Email: "d@x.com"},
		"auth/me":      {ID: "100", Username: "other"},
	}}
	r := NewDefaultResolver(profiles, []string{"user/me", "user/profile", "user/current", "auth/me"}, quietLogger())

	res, err := r.Resolve(context.Background(), Attempt{Token: "abc.def.ghi", Username: "daniel"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Kind != KindQueryEndpoint || res.User.ID != "99" {
		t.Fatalf("got %+v", res)
	}
	if len(profiles.calls) != 3 {
		t.Fatalf("expected to stop at first success, calls = %v", profiles.calls)
	}
}

func TestResolverPrefersToken(t *testing.T) {
	profiles := &fakeProfiles{}
	r := NewDefaultResolver(profiles, []string{"user/me"}, quietLogger())

	res, err := r.Resolve(context.Background(), Attempt{Token: tokenWithClaims, Username: "daniel"})
	if err != nil || res.Kind != KindDecodeToken {
		t.Fatalf("got %+v, %v", res, err)
	}
	if len(profiles.calls) != 0 {
		t.Fatalf("endpoints queried although token decoded: %v", profiles.calls)
	}
}

func TestResolverFallsBackToDerived(t *testing.T) {
	profiles := &fakeProfiles{answers: map[string]domain.User{"user/me": {Username: "no-id"}}}
	r := NewDefaultResolver(profiles, []string{"user/me", "user/profile"}, quietLogger())

	res, err := r.Resolve(context.Background(), Attempt{Token: "abc.def.ghi", Username: "daniel"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := domain.User{ID: DeriveUserID("daniel"), Username: "daniel"}
	if res.Kind != KindDeriveFromUsername || res.User != want {
		t.Fatalf("got %+v", res)
	}
}

func TestResolverWithoutStrategies(t *testing.T) {
	if _, err := NewResolver(quietLogger()).Resolve(context.Background(), Attempt{}); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
}
