package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

type fakeTokens struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (f *fakeTokens) Token(context.Context) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.token != ""
}

func (f *fakeTokens) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.cleared++
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens TokenStore) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/api/v1", Tokens: tokens, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestRequestsCarryStoredToken(t *testing.T) {
	tokens := &fakeTokens{token: "tok-1"}
	var gotAuth, gotPath, gotRequestID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`[{"id":"c1","nombre":"lácteos"}]`))
	}, tokens)

	cats, err := c.Categories(context.Background())
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotPath != "/api/v1/categorias" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotRequestID == "" {
		t.Fatal("missing request id")
	}
	if len(cats) != 1 || cats[0].Name != "lácteos" {
		t.Fatalf("categories = %+v", cats)
	}
}

func TestUnauthorizedClearsSessionAndNotifies(t *testing.T) {
	tokens := &fakeTokens{token: "stale"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, tokens)

	notified := 0
	c.OnUnauthorized(func(context.Context) { notified++ })

	_, err := c.MyGroupMembers(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if tokens.cleared != 1 || notified != 1 {
		t.Fatalf("cleared=%d notified=%d", tokens.cleared, notified)
	}
}

func TestUnauthorizedWithTokenOverrideKeepsSession(t *testing.T) {
	tokens := &fakeTokens{token: "stored"}
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
	}, tokens)
	notified := 0
	c.OnUnauthorized(func(context.Context) { notified++ })

	if _, err := c.Profile(context.Background(), "user/me", "fresh"); err == nil {
		t.Fatal("expected error")
	}
	if gotAuth != "Bearer fresh" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if tokens.cleared != 0 || notified != 0 {
		t.Fatalf("profile check must not clear the session: cleared=%d notified=%d", tokens.cleared, notified)
	}
}

func TestSignInIsAnonymous(t *testing.T) {
	tokens := &fakeTokens{token: "old"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("signin carried a token")
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Bad credentials"}`))
	}, tokens)

	_, err := c.SignIn(context.Background(), Credentials{Username: "daniel", Password: "x"})
	if err == nil || err.Error() != "Bad credentials" {
		t.Fatalf("err = %v", err)
	}
	if tokens.cleared != 0 {
		t.Fatal("failed sign-in cleared the session")
	}
}

func TestErrorMessageExtraction(t *testing.T) {
	cases := []struct {
		name, contentType, body, want string
	}{
		{"json message", "application/json", `{"message":"Grupo no encontrado"}`, "Grupo no encontrado"},
		{"plain text", "text/plain", "Error: Usuario no encontrado", "Error: Usuario no encontrado"},
		{"json without message", "application/json", `{"status":500}`, "could not load the categories"},
		{"html page", "text/html", "<html><body>boom</body></html>", "could not load the categories"},
		{"empty", "text/plain", "", "could not load the categories"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tc.body))
			}, nil)
			_, err := c.Categories(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Message != tc.want || apiErr.StatusCode != http.StatusInternalServerError {
				t.Fatalf("got %+v", apiErr)
			}
		})
	}
}

func TestCategoryStatusFallbacks(t *testing.T) {
	status := http.StatusBadRequest
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(status)
	}, nil)

	_, err := c.CreateCategory(context.Background(), CreateCategoryRequest{Name: "Frutas"})
	if err == nil || err.Error() != "a category with that name already exists" {
		t.Fatalf("create: %v", err)
	}

	status = http.StatusNotFound
	err = c.DeleteCategory(context.Background(), "  Frutas Secas ")
	if err == nil || err.Error() != "no category with that name" {
		t.Fatalf("delete: %v", err)
	}
	if gotPath != "/api/v1/categorias/frutas%20secas" {
		t.Fatalf("delete path = %q", gotPath)
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = c.Products(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if err.Error() != "could not reach server" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestMyGroupIDNoGroup(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusBadRequest} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte("Error: Usuario no pertenece a ningún grupo"))
		}, &fakeTokens{token: "t"})
		if _, err := c.MyGroupID(context.Background()); !errors.Is(err, ErrNoGroup) {
			t.Fatalf("status %d: expected ErrNoGroup, got %v", status, err)
		}
	}
}

func TestMyGroupIDPlainText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("grp-1"))
	}, &fakeTokens{token: "t"})
	id, err := c.MyGroupID(context.Background())
	if err != nil || id != "grp-1" {
		t.Fatalf("id = %q, %v", id, err)
	}
}

func TestIsGroupCreatorFailureReadsFalse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, &fakeTokens{token: "t"})
	ok, err := c.IsGroupCreator(context.Background())
	if ok || err != nil {
		t.Fatalf("got %v, %v", ok, err)
	}
}

func TestPlacesNotFoundIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, &fakeTokens{token: "t"})

	places, err := c.PlacesByGroup(context.Background(), "g1")
	if err != nil || places == nil || len(places) != 0 {
		t.Fatalf("places = %v, %v", places, err)
	}
	products, err := c.PlaceProducts(context.Background(), "p1")
	if err != nil || products == nil || len(products) != 0 {
		t.Fatalf("products = %v, %v", products, err)
	}
}

func TestSignUpSendsMultipartForm(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		got = map[string]string{
			"username": r.FormValue("username"),
			"email":    r.FormValue("email"),
			"password": r.FormValue("password"),
		}
		w.Write([]byte(`{"id":"1","username":"ana"}`))
	}, nil)

	if err := c.SignUp(context.Background(), Registration{Username: "ana", Email: "ana@x.com", Password: "p"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if got["username"] != "ana" || got["email"] != "ana@x.com" || got["password"] != "p" {
		t.Fatalf("form = %v", got)
	}
}

func TestCreateProductConvertsExpiration(t *testing.T) {
	var body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Write([]byte(`{"id":"pr1","nombre":"leche","cantidad":2}`))
	}, &fakeTokens{token: "t"})

	p, err := c.CreateProduct(context.Background(), "l1", CreateProductRequest{Name: "leche", Quantity: 2, MinQuantity: 1, Expiration: "2026-03-09"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(body, `"expiracion":"09-03-2026"`) || !strings.Contains(body, `"cantidad":"2"`) {
		t.Fatalf("body = %s", body)
	}
	if p.ID != "pr1" || p.Quantity != 2 {
		t.Fatalf("product = %+v", p)
	}
}

func TestDecrementProductReturnsServerText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v1/productos/pr1" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte("Cantidad reducida"))
	}, &fakeTokens{token: "t"})
	msg, err := c.DecrementProduct(context.Background(), "pr1")
	if err != nil || msg != "Cantidad reducida" {
		t.Fatalf("msg = %q, %v", msg, err)
	}
}

func TestProfileAcceptsNumericID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":17,"username":"daniel","email":"d@x.com"}`))
	}, nil)
	u, err := c.Profile(context.Background(), "user/me", "tok")
	if err != nil || u.ID != "17" || u.Username != "daniel" {
		t.Fatalf("user = %+v, %v", u, err)
	}
}

func TestAbsoluteEndpoint(t *testing.T) {
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sub":"u-1","username":"daniel"}`))
	}))
	defer other.Close()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("base url used for absolute endpoint")
	}, nil)
	u, err := c.Profile(context.Background(), other.URL+"/auth/me", "tok")
	if err != nil || u.ID != "u-1" {
		t.Fatalf("user = %+v, %v", u, err)
	}
}
