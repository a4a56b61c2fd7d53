package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"homestock/internal/domain"
)

const groupsPath = "grupos-familiares"

type CreateGroupRequest struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

// GroupRecord is the raw group document returned by mutations.
type GroupRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"nombre"`
	Description string          `json:"descripcion"`
	CreatedAt   string          `json:"fechaCreacion"`
	CreatorID   string          `json:"creadorId"`
	Members     []domain.Member `json:"miembros"`
}

func (c *Client) CreateGroup(ctx context.Context, req CreateGroupRequest) (GroupRecord, error) {
	var g GroupRecord
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     groupsPath,
		body:     req,
		fallback: "could not create the family group",
	}, &g)
	return g, err
}

// MyGroupID returns the caller's group id, or ErrNoGroup when there is none.
func (c *Client) MyGroupID(ctx context.Context) (string, error) {
	var id string
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     groupsPath + "/mi-grupo",
		fallback: "could not load the family group",
	}, &id)
	if err != nil {
		switch StatusCode(err) {
		case http.StatusNotFound, http.StatusBadRequest:
			return "", ErrNoGroup
		}
		return "", err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrNoGroup
	}
	return id, nil
}

func (c *Client) MyGroupInfo(ctx context.Context) (domain.GroupInfo, error) {
	var info domain.GroupInfo
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     groupsPath + "/mi-grupo/nombre",
		fallback: "could not load the group information",
	}, &info)
	return info, err
}

func (c *Client) MyGroupProductCount(ctx context.Context) (int, error) {
	var res struct {
		Count int `json:"cantidadProductos"`
	}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     groupsPath + "/mi-grupo/cantidad-productos",
		fallback: "could not load the product count",
	}, &res)
	return res.Count, err
}

func (c *Client) MyGroupMemberCount(ctx context.Context) (int, error) {
	var res struct {
		Count int `json:"cantidadMiembros"`
	}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     groupsPath + "/mi-grupo/cantidad-miembros",
		fallback: "could not load the member count",
	}, &res)
	return res.Count, err
}

func (c *Client) MyGroupMembers(ctx context.Context) ([]domain.Member, error) {
	var res struct {
		Members []domain.Member `json:"miembros"`
	}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     groupsPath + "/mi-grupo/miembros",
		fallback: "could not load the group members",
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.Members == nil {
		res.Members = []domain.Member{}
	}
	return res.Members, nil
}

// IsGroupCreator asks the backend whether the caller created their group. Any failure
// other than a cancelled context reads as false.
func (c *Client) IsGroupCreator(ctx context.Context) (bool, error) {
	var res struct {
		IsCreator bool `json:"esCreador"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   groupsPath + "/mi-grupo/es-creador",
	}, &res)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		return false, nil
	}
	return res.IsCreator, nil
}

func (c *Client) AddMember(ctx context.Context, groupID, username string) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     groupsPath + "/" + escape(groupID) + "/miembros",
		body:     map[string]string{"username": username},
		fallback: "could not add the member",
	}, nil)
}

func (c *Client) RemoveMember(ctx context.Context, groupID, username string) error {
	return c.do(ctx, request{
		method:   http.MethodDelete,
		path:     groupsPath + "/" + escape(groupID) + "/miembros/" + escape(username),
		fallback: "could not remove the member",
	}, nil)
}

func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.do(ctx, request{
		method:   http.MethodDelete,
		path:     groupsPath + "/" + escape(groupID),
		fallback: "could not delete the family group",
	}, nil)
}
