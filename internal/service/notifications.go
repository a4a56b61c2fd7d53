package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"homestock/internal/domain"
)

type NotificationBackend interface {
	UnreadNotifications(ctx context.Context) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// NotificationManager holds the unread low-stock and expiry notifications.
type NotificationManager struct {
	tracker
	backend NotificationBackend
	logger  *logrus.Logger
	unread  collection[domain.Notification]
}

func NewNotificationManager(backend NotificationBackend, logger *logrus.Logger) *NotificationManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &NotificationManager{backend: backend, logger: logger}
}

func (m *NotificationManager) Load(ctx context.Context) ([]domain.Notification, error) {
	m.begin()
	items, err := m.load(ctx)
	return items, m.end(err)
}

func (m *NotificationManager) load(ctx context.Context) ([]domain.Notification, error) {
	items, err := m.backend.UnreadNotifications(ctx)
	if err != nil {
		return nil, err
	}
	m.unread.set(items)
	return m.unread.snapshot(), nil
}

// MarkRead hides the notification at once and restores the list if the backend refuses.
func (m *NotificationManager) MarkRead(ctx context.Context, id string) error {
	m.begin()
	m.unread.remove(func(n domain.Notification) bool { return n.ID == id })
	if err := m.backend.MarkNotificationRead(ctx, id); err != nil {
		if _, reloadErr := m.load(ctx); reloadErr != nil {
			m.logger.Warnf("reload notifications: %v", reloadErr)
		}
		return m.end(err)
	}
	return m.end(nil)
}

func (m *NotificationManager) MarkAllRead(ctx context.Context) error {
	m.begin()
	if err := m.backend.MarkAllNotificationsRead(ctx); err != nil {
		return m.end(err)
	}
	m.unread.set(nil)
	return m.end(nil)
}

func (m *NotificationManager) Unread() []domain.Notification {
	return m.unread.snapshot()
}
