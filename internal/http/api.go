package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"homestock/internal/domain"
	"homestock/internal/service"
)

const defaultURLExpiry = 15 * time.Minute

type createGroupRequest struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

type memberRequest struct {
	Username string `json:"username"`
}

type createListRequest struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

type markItemRequest struct {
	Purchased bool `json:"comprado"`
}

type assignCategoryRequest struct {
	Category string `json:"categoria"`
}

type createCategoryRequest struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

// placeView is a place with its creator's public profile and whether the signed-in user
// may delete it.
type placeView struct {
	domain.Place
	Creator domain.UserInfo `json:"creador"`
	Owned   bool            `json:"esPropietario"`
}

func (h *Handler) placeViews(ctx context.Context, places []domain.Place) []placeView {
	ids := make([]string, 0, len(places))
	for _, p := range places {
		ids = append(ids, p.CreatedBy)
	}
	creators := h.UserInfo.GetMany(ctx, ids)
	user := h.Auth.User()

	views := make([]placeView, 0, len(places))
	for _, p := range places {
		views = append(views, placeView{Place: p, Creator: creators[p.CreatedBy], Owned: p.OwnedBy(user)})
	}
	return views
}

// bind decodes the JSON body and answers 400 itself when it cannot.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": h.Auth.User(), "state": h.Auth.State()})
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"group":         h.Groups.Status(),
		"places":        h.Places.Status(),
		"products":      h.Products.Status(),
		"lists":         h.Lists.Status(),
		"categories":    h.Categories.Status(),
		"notifications": h.Notifications.Status(),
	})
}

func (h *Handler) getGroup(c *gin.Context) {
	group, err := h.Groups.Load(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group, "role": h.Groups.Role()})
}

func (h *Handler) createGroup(c *gin.Context) {
	var req createGroupRequest
	if !bind(c, &req) {
		return
	}
	group, err := h.Groups.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"group": group, "role": h.Groups.Role()})
}

func (h *Handler) deleteGroup(c *gin.Context) {
	if err := h.Groups.Delete(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) addMember(c *gin.Context) {
	var req memberRequest
	if !bind(c, &req) {
		return
	}
	group, err := h.Groups.AddMember(c.Request.Context(), req.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group})
}

func (h *Handler) removeMember(c *gin.Context) {
	group, err := h.Groups.RemoveMember(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group})
}

func (h *Handler) listPlaces(c *gin.Context) {
	ctx := c.Request.Context()
	places, err := h.Places.Load(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.placeViews(ctx, places))
}

func (h *Handler) createPlace(c *gin.Context) {
	var in service.PlaceInput
	if !bind(c, &in) {
		return
	}
	place, err := h.Places.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, place)
}

func (h *Handler) getPlace(c *gin.Context) {
	place, err := h.Places.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, place)
}

func (h *Handler) deletePlace(c *gin.Context) {
	if err := h.Places.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listPlaceProducts(c *gin.Context) {
	placeID := c.Param("id")
	products, err := h.Products.Load(c.Request.Context(), placeID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "lowStock": h.Products.LowStock(placeID)})
}

func (h *Handler) createProduct(c *gin.Context) {
	var in service.ProductInput
	if !bind(c, &in) {
		return
	}
	product, err := h.Products.Create(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) decrementProduct(c *gin.Context) {
	msg, err := h.Products.Decrement(c.Request.Context(), c.Param("id"), c.Param("productId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *Handler) removeProduct(c *gin.Context) {
	msg, err := h.Products.Remove(c.Request.Context(), c.Param("id"), c.Param("productId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *Handler) assignCategory(c *gin.Context) {
	var req assignCategoryRequest
	if !bind(c, &req) {
		return
	}
	product, err := h.Products.AssignCategory(c.Request.Context(), c.Param("id"), c.Param("productId"), req.Category)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.Products.All(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) searchProduct(c *gin.Context) {
	product, err := h.Products.ByName(c.Request.Context(), c.Query("nombre"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) listLists(c *gin.Context) {
	lists, err := h.Lists.Load(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

func (h *Handler) createList(c *gin.Context) {
	var req createListRequest
	if !bind(c, &req) {
		return
	}
	list, err := h.Lists.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (h *Handler) getList(c *gin.Context) {
	list, err := h.Lists.Select(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) deleteList(c *gin.Context) {
	if err := h.Lists.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) addListItem(c *gin.Context) {
	var item domain.ListItem
	if !bind(c, &item) {
		return
	}
	list, err := h.Lists.AddItem(c.Request.Context(), c.Param("id"), item)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) removeListItem(c *gin.Context) {
	list, err := h.Lists.RemoveItem(c.Request.Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) markListItem(c *gin.Context) {
	var req markItemRequest
	if !bind(c, &req) {
		return
	}
	list, err := h.Lists.MarkItem(c.Request.Context(), c.Param("id"), c.Param("name"), req.Purchased)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.Categories.Load(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) createCategory(c *gin.Context) {
	var req createCategoryRequest
	if !bind(c, &req) {
		return
	}
	category, err := h.Categories.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	if err := h.Categories.Delete(c.Request.Context(), c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getUserInfo never fails: unknown users get a placeholder profile.
func (h *Handler) getUserInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.UserInfo.Get(c.Request.Context(), c.Param("id")))
}

func (h *Handler) listNotifications(c *gin.Context) {
	notes, err := h.Notifications.Load(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	if err := h.Notifications.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Notifications.Unread())
}

func (h *Handler) markAllNotificationsRead(c *gin.Context) {
	if err := h.Notifications.MarkAllRead(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Notifications.Unread())
}

func (h *Handler) listExports(c *gin.Context) {
	objects, err := h.Exports.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, objects)
}

func (h *Handler) createExport(c *gin.Context) {
	result, err := h.Exports.Export(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) exportURL(c *gin.Context) {
	expires := defaultURLExpiry
	if raw := c.Query("expires"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expires must be a positive number of seconds"})
			return
		}
		expires = time.Duration(secs) * time.Second
	}
	url, err := h.Exports.URL(c.Request.Context(), c.Query("key"), expires)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expiresIn": int(expires.Seconds())})
}

func (h *Handler) purgeExports(c *gin.Context) {
	deleted, err := h.Exports.Purge(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
