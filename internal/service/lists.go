package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"homestock/internal/client"
	"homestock/internal/domain"
)

type ListBackend interface {
	MyGroupID(ctx context.Context) (string, error)
	ListsByGroup(ctx context.Context, groupID string) ([]domain.ShoppingList, error)
	List(ctx context.Context, listID string) (domain.ShoppingList, error)
	CreateList(ctx context.Context, req client.CreateListRequest) (domain.ShoppingList, error)
	DeleteList(ctx context.Context, listID string) error
	AddListItem(ctx context.Context, listID string, item domain.ListItem) (domain.ShoppingList, error)
	RemoveListItem(ctx context.Context, listID, name string) (domain.ShoppingList, error)
	MarkListItem(ctx context.Context, listID, name string, purchased bool) (domain.ShoppingList, error)
}

// ListManager holds the group's shopping lists and the one opened in the dashboard.
type ListManager struct {
	tracker
	backend ListBackend
	logger  *logrus.Logger
	lists   collection[domain.ShoppingList]

	mu       sync.RWMutex
	selected *domain.ShoppingList
}

func NewListManager(backend ListBackend, logger *logrus.Logger) *ListManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &ListManager{backend: backend, logger: logger}
}

func (m *ListManager) Load(ctx context.Context) ([]domain.ShoppingList, error) {
	m.begin()
	lists, err := m.load(ctx)
	return lists, m.end(err)
}

func (m *ListManager) load(ctx context.Context) ([]domain.ShoppingList, error) {
	groupID, err := m.backend.MyGroupID(ctx)
	if errors.Is(err, client.ErrNoGroup) {
		m.lists.set(nil)
		return []domain.ShoppingList{}, nil
	}
	if err != nil {
		return nil, err
	}
	lists, err := m.backend.ListsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	m.lists.set(lists)
	return m.lists.snapshot(), nil
}

// Select opens a list by id; an empty id closes the current one.
func (m *ListManager) Select(ctx context.Context, listID string) (*domain.ShoppingList, error) {
	if listID == "" {
		m.setSelected(nil)
		return nil, nil
	}
	m.begin()
	list, err := m.backend.List(ctx, listID)
	if err != nil {
		return nil, m.end(err)
	}
	m.setSelected(&list)
	return &list, m.end(nil)
}

func (m *ListManager) Create(ctx context.Context, name, description string) (domain.ShoppingList, error) {
	name = strings.TrimSpace(name)
	if err := required("nombre", name); err != nil {
		return domain.ShoppingList{}, m.fail(err)
	}
	req := client.CreateListRequest{Name: name}
	if d := strings.TrimSpace(description); d != "" {
		req.Description = &d
	}

	m.begin()
	list, err := m.backend.CreateList(ctx, req)
	if err != nil {
		return domain.ShoppingList{}, m.end(err)
	}
	m.logger.WithField("list_id", list.ID).Info("shopping list created")
	if _, err := m.load(ctx); err != nil {
		return list, m.end(err)
	}
	return list, m.end(nil)
}

// Delete drops the list locally, closes it if open, and re-fetches after the request.
func (m *ListManager) Delete(ctx context.Context, listID string) error {
	m.begin()
	m.lists.remove(func(l domain.ShoppingList) bool { return l.ID == listID })
	m.mu.Lock()
	if m.selected != nil && m.selected.ID == listID {
		m.selected = nil
	}
	m.mu.Unlock()

	err := m.backend.DeleteList(ctx, listID)
	if _, reloadErr := m.load(ctx); reloadErr != nil && err == nil {
		err = reloadErr
	}
	return m.end(err)
}

func (m *ListManager) AddItem(ctx context.Context, listID string, item domain.ListItem) (domain.ShoppingList, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := required("nombre", item.Name); err != nil {
		return domain.ShoppingList{}, m.fail(err)
	}
	m.begin()
	list, err := m.backend.AddListItem(ctx, listID, item)
	return m.apply(list, err)
}

func (m *ListManager) RemoveItem(ctx context.Context, listID, name string) (domain.ShoppingList, error) {
	m.begin()
	list, err := m.backend.RemoveListItem(ctx, listID, name)
	return m.apply(list, err)
}

func (m *ListManager) MarkItem(ctx context.Context, listID, name string, purchased bool) (domain.ShoppingList, error) {
	m.begin()
	list, err := m.backend.MarkListItem(ctx, listID, name, purchased)
	return m.apply(list, err)
}

// apply replaces the local copy with the list the server returned.
func (m *ListManager) apply(list domain.ShoppingList, err error) (domain.ShoppingList, error) {
	if err != nil {
		return domain.ShoppingList{}, m.end(err)
	}
	m.lists.replace(list, func(l domain.ShoppingList) bool { return l.ID == list.ID })
	m.mu.Lock()
	if m.selected != nil && m.selected.ID == list.ID {
		updated := list
		m.selected = &updated
	}
	m.mu.Unlock()
	return list, m.end(nil)
}

func (m *ListManager) Lists() []domain.ShoppingList {
	return m.lists.snapshot()
}

// Selected returns the open list, nil when none is open.
func (m *ListManager) Selected() *domain.ShoppingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.selected == nil {
		return nil
	}
	out := *m.selected
	return &out
}

func (m *ListManager) setSelected(l *domain.ShoppingList) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = l
}
