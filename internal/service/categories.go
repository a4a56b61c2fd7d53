package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"homestock/internal/client"
	"homestock/internal/domain"
)

type CategoryBackend interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, req client.CreateCategoryRequest) (domain.Category, error)
	DeleteCategory(ctx context.Context, name string) error
}

type CategoryManager struct {
	tracker
	backend    CategoryBackend
	logger     *logrus.Logger
	categories collection[domain.Category]
}

func NewCategoryManager(backend CategoryBackend, logger *logrus.Logger) *CategoryManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &CategoryManager{backend: backend, logger: logger}
}

func (m *CategoryManager) Load(ctx context.Context) ([]domain.Category, error) {
	m.begin()
	cats, err := m.backend.Categories(ctx)
	if err != nil {
		return nil, m.end(err)
	}
	m.categories.set(cats)
	return m.categories.snapshot(), m.end(nil)
}

// Create appends the new category to the local copy without a re-fetch.
func (m *CategoryManager) Create(ctx context.Context, name, description string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if err := required("nombre", name); err != nil {
		return domain.Category{}, m.fail(err)
	}
	m.begin()
	cat, err := m.backend.CreateCategory(ctx, client.CreateCategoryRequest{Name: name, Description: strings.TrimSpace(description)})
	if err != nil {
		return domain.Category{}, m.end(err)
	}
	m.categories.add(cat)
	return cat, m.end(nil)
}

// Delete removes a category by name, matching the local copy case-insensitively.
func (m *CategoryManager) Delete(ctx context.Context, name string) error {
	if err := required("nombre", strings.TrimSpace(name)); err != nil {
		return m.fail(err)
	}
	m.begin()
	if err := m.backend.DeleteCategory(ctx, name); err != nil {
		return m.end(err)
	}
	normalized := client.NormalizeCategoryName(name)
	m.categories.remove(func(c domain.Category) bool {
		return client.NormalizeCategoryName(c.Name) == normalized
	})
	m.logger.WithField("category", normalized).Info("category deleted")
	return m.end(nil)
}

func (m *CategoryManager) Categories() []domain.Category {
	return m.categories.snapshot()
}
