package client

import (
	"context"
	"net/http"
	"strconv"

	"homestock/internal/domain"
)

const productsPath = "productos"

// CreateProductRequest carries an ISO expiration date; it is converted on the wire.
type CreateProductRequest struct {
	Name        string
	Description string
	Quantity    int
	MinQuantity int
	Expiration  string
}

type createProductBody struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion,omitempty"`
	Quantity    string `json:"cantidad"`
	MinQuantity string `json:"cantidadMinima"`
	Expiration  string `json:"expiracion,omitempty"`
}

func (c *Client) CreateProduct(ctx context.Context, placeID string, req CreateProductRequest) (domain.Product, error) {
	expiration, err := FormatBackendDate(req.Expiration)
	if err != nil {
		return domain.Product{}, err
	}
	var p domain.Product
	err = c.do(ctx, request{
		method: http.MethodPost,
		path:   productsPath + "/lugares/" + escape(placeID),
		body: createProductBody{
			Name:        req.Name,
			Description: req.Description,
			Quantity:    strconv.Itoa(req.Quantity),
			MinQuantity: strconv.Itoa(req.MinQuantity),
			Expiration:  expiration,
		},
		fallback: "could not create the product",
	}, &p)
	return p, err
}

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     productsPath,
		fallback: "could not load the products",
	}, &products)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (c *Client) ProductByName(ctx context.Context, name string) (domain.Product, error) {
	var p domain.Product
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     productsPath + "/" + escape(name),
		fallback: "could not load the product",
	}, &p)
	return p, err
}

// DecrementProduct removes one unit and returns the server's confirmation text.
func (c *Client) DecrementProduct(ctx context.Context, productID string) (string, error) {
	var msg string
	err := c.do(ctx, request{
		method:   http.MethodDelete,
		path:     productsPath + "/" + escape(productID),
		fallback: "could not reduce the product quantity",
	}, &msg)
	if err == nil && msg == "" {
		msg = "product updated"
	}
	return msg, err
}

func (c *Client) DeleteProduct(ctx context.Context, productID string) (string, error) {
	var msg string
	err := c.do(ctx, request{
		method:   http.MethodDelete,
		path:     productsPath + "/" + escape(productID) + "/completo",
		fallback: "could not delete the product",
	}, &msg)
	if err == nil && msg == "" {
		msg = "product deleted"
	}
	return msg, err
}

func (c *Client) AssignCategory(ctx context.Context, productID, category string) (domain.Product, error) {
	var p domain.Product
	err := c.do(ctx, request{
		method:   http.MethodPut,
		path:     productsPath + "/" + escape(productID) + "/categoria",
		body:     map[string]string{"categoria": category},
		fallback: "could not assign the category",
	}, &p)
	return p, err
}
