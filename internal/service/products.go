package service

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"homestock/internal/client"
	"homestock/internal/domain"
)

type ProductBackend interface {
	PlaceProducts(ctx context.Context, placeID string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, placeID string, req client.CreateProductRequest) (domain.Product, error)
	Products(ctx context.Context) ([]domain.Product, error)
	ProductByName(ctx context.Context, name string) (domain.Product, error)
	DecrementProduct(ctx context.Context, productID string) (string, error)
	DeleteProduct(ctx context.Context, productID string) (string, error)
	AssignCategory(ctx context.Context, productID, category string) (domain.Product, error)
}

type ProductInput struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
	Quantity    int    `json:"cantidad"`
	MinQuantity int    `json:"cantidadMinima"`
	Expiration  string `json:"expiracion"` // YYYY-MM-DD, optional
}

func (in ProductInput) validate() error {
	if err := required("nombre", in.Name); err != nil {
		return err
	}
	if in.Quantity < 0 {
		return invalid("cantidad", "must not be negative")
	}
	if in.MinQuantity < 0 {
		return invalid("cantidadMinima", "must not be negative")
	}
	if in.Expiration != "" && !isISODate(in.Expiration) {
		return invalid("expiracion", "must be a date in YYYY-MM-DD form")
	}
	return nil
}

// ProductManager holds the product lists of the places the dashboard has opened.
type ProductManager struct {
	tracker
	backend ProductBackend
	logger  *logrus.Logger

	mu      sync.RWMutex
	byPlace map[string]*collection[domain.Product]
}

func NewProductManager(backend ProductBackend, logger *logrus.Logger) *ProductManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &ProductManager{backend: backend, logger: logger, byPlace: make(map[string]*collection[domain.Product])}
}

func (m *ProductManager) place(placeID string) *collection[domain.Product] {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byPlace[placeID]
	if !ok {
		c = &collection[domain.Product]{}
		m.byPlace[placeID] = c
	}
	return c
}

// Load fetches the products of one place.
func (m *ProductManager) Load(ctx context.Context, placeID string) ([]domain.Product, error) {
	m.begin()
	products, err := m.load(ctx, placeID)
	return products, m.end(err)
}

func (m *ProductManager) load(ctx context.Context, placeID string) ([]domain.Product, error) {
	products, err := m.backend.PlaceProducts(ctx, placeID)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Expiration = client.ParseBackendDate(products[i].Expiration)
	}
	c := m.place(placeID)
	c.set(products)
	return c.snapshot(), nil
}

func (m *ProductManager) Create(ctx context.Context, placeID string, in ProductInput) (domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Expiration = strings.TrimSpace(in.Expiration)
	if err := in.validate(); err != nil {
		return domain.Product{}, m.fail(err)
	}

	m.begin()
	product, err := m.backend.CreateProduct(ctx, placeID, client.CreateProductRequest{
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Quantity:    in.Quantity,
		MinQuantity: in.MinQuantity,
		Expiration:  in.Expiration,
	})
	if err != nil {
		return domain.Product{}, m.end(err)
	}
	m.logger.WithField("place_id", placeID).Infof("product %s created", product.Name)
	if _, err := m.load(ctx, placeID); err != nil {
		return product, m.end(err)
	}
	return product, m.end(nil)
}

// Decrement removes one unit and returns the backend's confirmation.
func (m *ProductManager) Decrement(ctx context.Context, placeID, productID string) (string, error) {
	m.begin()
	msg, err := m.backend.DecrementProduct(ctx, productID)
	if err != nil {
		return "", m.end(err)
	}
	if _, err := m.load(ctx, placeID); err != nil {
		return msg, m.end(err)
	}
	return msg, m.end(nil)
}

// Remove deletes the product completely, dropping it locally before the request.
func (m *ProductManager) Remove(ctx context.Context, placeID, productID string) (string, error) {
	m.begin()
	m.place(placeID).remove(func(p domain.Product) bool { return p.ID == productID })

	msg, err := m.backend.DeleteProduct(ctx, productID)
	if _, reloadErr := m.load(ctx, placeID); reloadErr != nil && err == nil {
		err = reloadErr
	}
	return msg, m.end(err)
}

func (m *ProductManager) AssignCategory(ctx context.Context, placeID, productID, category string) (domain.Product, error) {
	category = strings.TrimSpace(category)
	if err := required("categoria", category); err != nil {
		return domain.Product{}, m.fail(err)
	}
	m.begin()
	product, err := m.backend.AssignCategory(ctx, productID, category)
	if err != nil {
		return domain.Product{}, m.end(err)
	}
	if _, err := m.load(ctx, placeID); err != nil {
		return product, m.end(err)
	}
	return product, m.end(nil)
}

// All lists every product visible to the caller.
func (m *ProductManager) All(ctx context.Context) ([]domain.Product, error) {
	m.begin()
	products, err := m.backend.Products(ctx)
	return products, m.end(err)
}

func (m *ProductManager) ByName(ctx context.Context, name string) (domain.Product, error) {
	name = strings.TrimSpace(name)
	if err := required("nombre", name); err != nil {
		return domain.Product{}, m.fail(err)
	}
	m.begin()
	product, err := m.backend.ProductByName(ctx, name)
	return product, m.end(err)
}

// Products returns the local copy for placeID.
func (m *ProductManager) Products(placeID string) []domain.Product {
	return m.place(placeID).snapshot()
}

// LowStock returns the locally known products of placeID at or below their minimum.
func (m *ProductManager) LowStock(placeID string) []domain.Product {
	out := []domain.Product{}
	for _, p := range m.Products(placeID) {
		if p.LowStock() {
			out = append(out, p)
		}
	}
	return out
}
