package client

import (
	"context"
	"net/http"

	"homestock/internal/domain"
)

const placesPath = "lugares"

type CreatePlaceRequest struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
	GroupID     string `json:"grupoFamiliarId"`
	UserID      string `json:"userId"`
}

func (c *Client) CreatePlace(ctx context.Context, req CreatePlaceRequest) (domain.Place, error) {
	var p domain.Place
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     placesPath,
		body:     req,
		fallback: "could not create the place",
	}, &p)
	return p, err
}

// PlacesByGroup lists the places of a group; a 404 reads as none.
func (c *Client) PlacesByGroup(ctx context.Context, groupID string) ([]domain.Place, error) {
	var places []domain.Place
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     placesPath + "/grupo/" + escape(groupID),
		fallback: "could not load the places",
	}, &places)
	return orEmpty(places, err)
}

func (c *Client) Place(ctx context.Context, placeID string) (domain.Place, error) {
	var p domain.Place
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     placesPath + "/" + escape(placeID),
		fallback: "could not load the place",
	}, &p)
	return p, err
}

func (c *Client) DeletePlace(ctx context.Context, placeID string) error {
	return c.do(ctx, request{
		method:   http.MethodDelete,
		path:     placesPath + "/" + escape(placeID),
		fallback: "could not delete the place",
	}, nil)
}

// PlaceProducts lists the products stored in a place; a 404 reads as none.
func (c *Client) PlaceProducts(ctx context.Context, placeID string) ([]domain.Product, error) {
	var products []domain.Product
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     placesPath + "/" + escape(placeID) + "/productos",
		fallback: "could not load the products of the place",
	}, &products)
	return orEmpty(products, err)
}
