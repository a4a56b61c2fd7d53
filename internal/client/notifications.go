package client

import (
	"context"
	"net/http"

	"homestock/internal/domain"
)

const notificationsPath = "notificaciones"

// UnreadNotifications lists the caller's unread notifications.
func (c *Client) UnreadNotifications(ctx context.Context) ([]domain.Notification, error) {
	var items []domain.Notification
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     notificationsPath,
		fallback: "could not load the notifications",
	}, &items)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return items, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, request{
		method:   http.MethodPut,
		path:     notificationsPath + "/" + escape(id) + "/leer",
		fallback: "could not mark the notification as read",
	}, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, request{
		method:   http.MethodPut,
		path:     notificationsPath + "/leer-todas",
		fallback: "could not mark the notifications as read",
	}, nil)
}
