package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultLanding = "/dashboard"

// SessionState is what the guards need to know about the signed-in operator.
type SessionState interface {
	IsAuthenticated() bool
	IsLoading() bool
}

// RequireAuth lets authenticated requests through, answers with the loading page while the
// session is being checked and sends everyone else to the login page.
func RequireAuth(state SessionState) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch {
		case state.IsAuthenticated():
			c.Next()
		case state.IsLoading():
			renderLoading(c)
		default:
			target := "/login?from=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, target)
			c.Abort()
		}
	}
}

// PublicOnly keeps signed-in operators away from the login and register pages.
func PublicOnly(state SessionState) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch {
		case state.IsAuthenticated():
			c.Redirect(http.StatusFound, safeRedirect(c.Query("from")))
			c.Abort()
		case state.IsLoading():
			renderLoading(c)
		default:
			c.Next()
		}
	}
}

func renderLoading(c *gin.Context) {
	c.Header("Retry-After", "1")
	c.HTML(http.StatusServiceUnavailable, "loading.html", page{Title: "Cargando"})
	c.Abort()
}

// safeRedirect accepts only local paths and never points back at the auth pages.
func safeRedirect(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return defaultLanding
	}
	u, err := url.Parse(from)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return defaultLanding
	}
	switch u.Path {
	case "/login", "/register":
		return defaultLanding
	}
	return from
}
