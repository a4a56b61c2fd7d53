package client

import (
	"context"
	"net/http"
	"strings"

	"homestock/internal/domain"
)

const categoriesPath = "categorias"

type CreateCategoryRequest struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion,omitempty"`
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     categoriesPath,
		fallback: "could not load the categories",
	}, &cats)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	return cats, nil
}

func (c *Client) CreateCategory(ctx context.Context, req CreateCategoryRequest) (domain.Category, error) {
	var cat domain.Category
	err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           categoriesPath,
		body:           req,
		fallback:       "could not create the category",
		statusFallback: map[int]string{http.StatusBadRequest: "a category with that name already exists"},
	}, &cat)
	return cat, err
}

// NormalizeCategoryName is the form category names take in delete paths.
func NormalizeCategoryName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (c *Client) DeleteCategory(ctx context.Context, name string) error {
	return c.do(ctx, request{
		method:         http.MethodDelete,
		path:           categoriesPath + "/" + escape(NormalizeCategoryName(name)),
		fallback:       "could not delete the category",
		statusFallback: map[int]string{http.StatusNotFound: "no category with that name"},
	}, nil)
}
