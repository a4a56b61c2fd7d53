package client

import (
	"context"
	"net/http"

	"homestock/internal/domain"
)

const listsPath = "listas-compra"

type CreateListRequest struct {
	Name        string  `json:"nombre"`
	Description *string `json:"descripcion,omitempty"`
}

func (c *Client) CreateList(ctx context.Context, req CreateListRequest) (domain.ShoppingList, error) {
	var l domain.ShoppingList
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     listsPath,
		body:     req,
		fallback: "could not create the shopping list",
	}, &l)
	return l, err
}

func (c *Client) ListsByGroup(ctx context.Context, groupID string) ([]domain.ShoppingList, error) {
	var lists []domain.ShoppingList
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     listsPath + "/grupo/" + escape(groupID),
		fallback: "could not load the shopping lists",
	}, &lists)
	if err != nil {
		return nil, err
	}
	if lists == nil {
		lists = []domain.ShoppingList{}
	}
	return lists, nil
}

func (c *Client) List(ctx context.Context, listID string) (domain.ShoppingList, error) {
	var l domain.ShoppingList
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     listsPath + "/" + escape(listID),
		fallback: "could not load the shopping list",
	}, &l)
	return l, err
}

func (c *Client) DeleteList(ctx context.Context, listID string) error {
	return c.do(ctx, request{
		method:   http.MethodDelete,
		path:     listsPath + "/" + escape(listID),
		fallback: "could not delete the shopping list",
	}, nil)
}

// AddListItem appends item and returns the updated list.
func (c *Client) AddListItem(ctx context.Context, listID string, item domain.ListItem) (domain.ShoppingList, error) {
	var l domain.ShoppingList
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     listsPath + "/" + escape(listID) + "/productos",
		body:     item,
		fallback: "could not add the item",
	}, &l)
	return l, err
}

func (c *Client) RemoveListItem(ctx context.Context, listID, name string) (domain.ShoppingList, error) {
	var l domain.ShoppingList
	err := c.do(ctx, request{
		method:   http.MethodDelete,
		path:     listsPath + "/" + escape(listID) + "/productos/" + escape(name),
		fallback: "could not remove the item",
	}, &l)
	return l, err
}

func (c *Client) MarkListItem(ctx context.Context, listID, name string, purchased bool) (domain.ShoppingList, error) {
	var l domain.ShoppingList
	err := c.do(ctx, request{
		method:   http.MethodPatch,
		path:     listsPath + "/" + escape(listID) + "/productos/" + escape(name) + "/comprado",
		body:     map[string]bool{"comprado": purchased},
		fallback: "could not update the item",
	}, &l)
	return l, err
}
