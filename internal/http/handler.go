package http

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"homestock/internal/auth"
	"homestock/internal/client"
	"homestock/internal/domain"
	"homestock/internal/service"
	"homestock/internal/userinfo"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Authenticator is the auth coordinator as seen by the dashboard.
type Authenticator interface {
	SessionState
	Login(ctx context.Context, creds client.Credentials) (domain.User, error)
	Register(ctx context.Context, reg client.Registration) (domain.User, error)
	Logout(ctx context.Context)
	State() auth.State
	User() domain.User
	LastError() string
}

// Deps are the services behind the dashboard routes.
type Deps struct {
	Auth          Authenticator
	Groups        *service.GroupManager
	Places        *service.PlaceManager
	Products      *service.ProductManager
	Lists         *service.ListManager
	Categories    *service.CategoryManager
	Notifications *service.NotificationManager
	Exports       *service.ExportService
	UserInfo      *userinfo.Cache
	AllowedOrigin string
	Logger        *logrus.Logger
}

// Handler wires HTTP routes to the auth coordinator and the resource managers.
type Handler struct {
	Deps
}

func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.AllowedOrigin == "" {
		deps.AllowedOrigin = "*"
	}
	return &Handler{Deps: deps}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(pages)
	router.Use(corsMiddleware(h.AllowedOrigin))

	router.GET("/", h.landing)
	router.GET("/health", h.health)
	router.POST("/logout", h.logout)

	public := router.Group("/", PublicOnly(h.Auth))
	{
		public.GET("/login", h.loginPage)
		public.POST("/login", h.loginSubmit)
		public.GET("/register", h.registerPage)
		public.POST("/register", h.registerSubmit)
	}

	router.GET("/dashboard", RequireAuth(h.Auth), h.dashboard)

	api := router.Group("/api", RequireAuth(h.Auth))
	{
		api.GET("/me", h.me)
		api.GET("/status", h.status)

		api.GET("/group", h.getGroup)
		api.POST("/group", h.createGroup)
		api.DELETE("/group", h.deleteGroup)
		api.POST("/group/members", h.addMember)
		api.DELETE("/group/members/:username", h.removeMember)

		api.GET("/places", h.listPlaces)
		api.POST("/places", h.createPlace)
		api.GET("/places/:id", h.getPlace)
		api.DELETE("/places/:id", h.deletePlace)
		api.GET("/places/:id/products", h.listPlaceProducts)
		api.POST("/places/:id/products", h.createProduct)
		api.POST("/places/:id/products/:productId/decrement", h.decrementProduct)
		api.DELETE("/places/:id/products/:productId", h.removeProduct)
		api.PUT("/places/:id/products/:productId/category", h.assignCategory)

		api.GET("/products", h.listProducts)
		api.GET("/products/search", h.searchProduct)

		api.GET("/lists", h.listLists)
		api.POST("/lists", h.createList)
		api.GET("/lists/:id", h.getList)
		api.DELETE("/lists/:id", h.deleteList)
		api.POST("/lists/:id/items", h.addListItem)
		api.DELETE("/lists/:id/items/:name", h.removeListItem)
		api.PATCH("/lists/:id/items/:name", h.markListItem)

		api.GET("/categories", h.listCategories)
		api.POST("/categories", h.createCategory)
		api.DELETE("/categories/:name", h.deleteCategory)

		api.GET("/users/:id", h.getUserInfo)

		api.GET("/notifications", h.listNotifications)
		api.PUT("/notifications/read-all", h.markAllNotificationsRead)
		api.PUT("/notifications/:id/read", h.markNotificationRead)

		api.GET("/exports", h.listExports)
		api.POST("/exports", h.createExport)
		api.GET("/exports/url", h.exportURL)
		api.DELETE("/exports", h.purgeExports)
	}
}

func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Location, Retry-After")
		if allowedOrigin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "session": h.Auth.State()})
}
