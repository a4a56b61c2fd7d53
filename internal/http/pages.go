package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"homestock/internal/client"
	"homestock/internal/domain"
)

// page is the data every template renders from.
type page struct {
	Title    string
	User     domain.User
	Error    string
	From     string
	Username string
	Email    string

	Group         *domain.Group
	Role          domain.Role
	Places        []placeView
	Notifications []domain.Notification
}

type loginForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type registerForm struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func wantsJSON(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEJSON || strings.Contains(c.GetHeader("Accept"), gin.MIMEJSON)
}

func (h *Handler) landing(c *gin.Context) {
	c.HTML(http.StatusOK, "landing.html", page{Title: "Inicio", User: h.Auth.User()})
}

func (h *Handler) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", page{Title: "Iniciar sesión", From: c.Query("from")})
}

func (h *Handler) loginSubmit(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.authFailed(c, "login.html", page{Title: "Iniciar sesión"}, err)
		return
	}

	user, err := h.Auth.Login(c.Request.Context(), client.Credentials{Username: form.Username, Password: form.Password})
	if err != nil {
		h.authFailed(c, "login.html", page{Title: "Iniciar sesión", From: c.Query("from"), Username: form.Username}, err)
		return
	}
	h.authenticated(c, user, safeRedirect(c.Query("from")))
}

func (h *Handler) registerPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", page{Title: "Crear cuenta", From: c.Query("from")})
}

func (h *Handler) registerSubmit(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		h.authFailed(c, "register.html", page{Title: "Crear cuenta"}, err)
		return
	}

	user, err := h.Auth.Register(c.Request.Context(), client.Registration{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		h.authFailed(c, "register.html", page{Title: "Crear cuenta", From: c.Query("from"), Username: form.Username, Email: form.Email}, err)
		return
	}
	h.authenticated(c, user, safeRedirect(c.Query("from")))
}

func (h *Handler) authenticated(c *gin.Context, user domain.User, next string) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"user": user, "redirect": next})
		return
	}
	c.Redirect(http.StatusSeeOther, next)
}

// authFailed re-renders the form; the login page is the target, so no redirect here.
func (h *Handler) authFailed(c *gin.Context, name string, p page, err error) {
	status := statusFor(err)
	if wantsJSON(c) {
		c.JSON(status, gin.H{"error": errorMessage(err)})
		return
	}
	p.Error = errorMessage(err)
	c.HTML(status, name, p)
}

func (h *Handler) logout(c *gin.Context) {
	h.Auth.Logout(c.Request.Context())
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"redirect": "/login"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

// dashboard renders the overview from fresh data; a rejected session sends the operator back
// to the login page.
func (h *Handler) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	p := page{Title: "Dashboard", User: h.Auth.User()}

	var errs []error
	group, err := h.Groups.Load(ctx)
	errs = append(errs, err)
	if group != nil {
		p.Group = group
		p.Role = h.Groups.Role()

		places, err := h.Places.Load(ctx)
		errs = append(errs, err)
		p.Places = h.placeViews(ctx, places)

		notes, err := h.Notifications.Load(ctx)
		errs = append(errs, err)
		p.Notifications = notes
	}

	if err := errors.Join(errs...); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			c.Redirect(http.StatusFound, "/login?from=%2Fdashboard")
			return
		}
		h.Logger.Warnf("dashboard load: %v", err)
		p.Error = errorMessage(firstError(errs))
	}
	c.HTML(http.StatusOK, "dashboard.html", p)
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
