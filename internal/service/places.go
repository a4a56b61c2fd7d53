package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"homestock/internal/client"
	"homestock/internal/domain"
)

// ErrNotOwner is returned when someone other than its creator tries to delete a place.
var ErrNotOwner = errors.New("only the creator of a place can delete it")

type PlaceBackend interface {
	MyGroupID(ctx context.Context) (string, error)
	PlacesByGroup(ctx context.Context, groupID string) ([]domain.Place, error)
	CreatePlace(ctx context.Context, req client.CreatePlaceRequest) (domain.Place, error)
	Place(ctx context.Context, placeID string) (domain.Place, error)
	DeletePlace(ctx context.Context, placeID string) error
}

type PlaceInput struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

// PlaceManager holds the places of the caller's group.
type PlaceManager struct {
	tracker
	backend PlaceBackend
	users   CurrentUser
	logger  *logrus.Logger
	places  collection[domain.Place]
}

func NewPlaceManager(backend PlaceBackend, users CurrentUser, logger *logrus.Logger) *PlaceManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PlaceManager{backend: backend, users: users, logger: logger}
}

// Load fetches the places of the caller's group; no group means no places.
func (m *PlaceManager) Load(ctx context.Context) ([]domain.Place, error) {
	m.begin()
	places, err := m.load(ctx)
	return places, m.end(err)
}

func (m *PlaceManager) load(ctx context.Context) ([]domain.Place, error) {
	groupID, err := m.backend.MyGroupID(ctx)
	if errors.Is(err, client.ErrNoGroup) {
		m.places.set(nil)
		return []domain.Place{}, nil
	}
	if err != nil {
		return nil, err
	}
	places, err := m.backend.PlacesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	m.places.set(places)
	return m.places.snapshot(), nil
}

// Create adds a place to the caller's group, recorded as created by the signed-in user.
func (m *PlaceManager) Create(ctx context.Context, in PlaceInput) (domain.Place, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := required("nombre", in.Name); err != nil {
		return domain.Place{}, m.fail(err)
	}

	m.begin()
	groupID, err := m.backend.MyGroupID(ctx)
	if err != nil {
		return domain.Place{}, m.end(err)
	}
	userID := m.currentUser().ID
	place, err := m.backend.CreatePlace(ctx, client.CreatePlaceRequest{
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		GroupID:     groupID,
		UserID:      userID,
	})
	if err != nil {
		return domain.Place{}, m.end(err)
	}
	m.logger.WithField("place_id", place.ID).Info("place created")
	if _, err := m.load(ctx); err != nil {
		return place, m.end(err)
	}
	return place, m.end(nil)
}

func (m *PlaceManager) Get(ctx context.Context, placeID string) (domain.Place, error) {
	m.begin()
	place, err := m.backend.Place(ctx, placeID)
	return place, m.end(err)
}

// Delete removes the place locally first, then asks the backend and re-fetches. Only the
// creator of a place may delete it.
func (m *PlaceManager) Delete(ctx context.Context, placeID string) error {
	m.begin()
	place, err := m.find(ctx, placeID)
	if err != nil {
		return m.end(err)
	}
	if !place.OwnedBy(m.currentUser()) {
		return m.end(ErrNotOwner)
	}
	m.places.remove(func(p domain.Place) bool { return p.ID == placeID })

	err = m.backend.DeletePlace(ctx, placeID)
	if _, reloadErr := m.load(ctx); reloadErr != nil && err == nil {
		err = reloadErr
	}
	return m.end(err)
}

// find prefers the local copy and falls back to the backend.
func (m *PlaceManager) find(ctx context.Context, placeID string) (domain.Place, error) {
	for _, p := range m.places.snapshot() {
		if p.ID == placeID {
			return p, nil
		}
	}
	return m.backend.Place(ctx, placeID)
}

func (m *PlaceManager) currentUser() domain.User {
	if m.users == nil {
		return domain.User{}
	}
	return m.users.User()
}

// Places returns the local copy.
func (m *PlaceManager) Places() []domain.Place {
	return m.places.snapshot()
}
