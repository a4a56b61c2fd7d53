package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"homestock/internal/client"
	"homestock/internal/domain"
)

type GroupBackend interface {
	MyGroupID(ctx context.Context) (string, error)
	MyGroupInfo(ctx context.Context) (domain.GroupInfo, error)
	MyGroupProductCount(ctx context.Context) (int, error)
	MyGroupMemberCount(ctx context.Context) (int, error)
	MyGroupMembers(ctx context.Context) ([]domain.Member, error)
	IsGroupCreator(ctx context.Context) (bool, error)
	CreateGroup(ctx context.Context, req client.CreateGroupRequest) (client.GroupRecord, error)
	AddMember(ctx context.Context, groupID, username string) error
	RemoveMember(ctx context.Context, groupID, username string) error
	DeleteGroup(ctx context.Context, groupID string) error
}

// GroupManager holds the caller's family group. A nil group with no error means the user has
// not joined or created one yet.
type GroupManager struct {
	tracker
	backend GroupBackend
	users   CurrentUser
	logger  *logrus.Logger

	mu    sync.RWMutex
	group *domain.Group
}

func NewGroupManager(backend GroupBackend, users CurrentUser, logger *logrus.Logger) *GroupManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &GroupManager{backend: backend, users: users, logger: logger}
}

// Load composes the full group from the six group endpoints, fetched concurrently.
func (m *GroupManager) Load(ctx context.Context) (*domain.Group, error) {
	m.begin()
	group, err := m.load(ctx)
	if err != nil {
		return nil, m.end(err)
	}
	m.end(nil)
	return group, nil
}

func (m *GroupManager) load(ctx context.Context) (*domain.Group, error) {
	var (
		id                string
		idErr             error
		info              domain.GroupInfo
		products, members int
		list              []domain.Member
		isCreator         bool
	)

	g, gctx := errgroup.WithContext(ctx)
	// the id call decides between "no group" and failure, so it must not be cancelled by
	// the others failing first
	g.Go(func() error {
		id, idErr = m.backend.MyGroupID(ctx)
		return nil
	})
	g.Go(func() (err error) {
		info, err = m.backend.MyGroupInfo(gctx)
		return err
	})
	g.Go(func() (err error) {
		products, err = m.backend.MyGroupProductCount(gctx)
		return err
	})
	g.Go(func() (err error) {
		members, err = m.backend.MyGroupMemberCount(gctx)
		return err
	})
	g.Go(func() (err error) {
		list, err = m.backend.MyGroupMembers(gctx)
		return err
	})
	g.Go(func() (err error) {
		isCreator, err = m.backend.IsGroupCreator(gctx)
		return err
	})
	err := g.Wait()

	if errors.Is(idErr, client.ErrNoGroup) {
		m.setGroup(nil)
		return nil, nil
	}
	if idErr != nil {
		return nil, idErr
	}
	if err != nil {
		return nil, err
	}

	group := composeGroup(id, info, list, products, members, isCreator, m.currentUsername())
	m.setGroup(&group)
	m.logger.WithField("group_id", id).Debugf("group loaded with %d members", len(group.Members))
	return cloneGroup(&group), nil
}

func composeGroup(id string, info domain.GroupInfo, list []domain.Member, products, members int, isCreator bool, current string) domain.Group {
	creator := pickCreator(list, isCreator, current)
	group := domain.Group{
		ID:                   id,
		Name:                 info.Name,
		Description:          info.Description,
		Creator:              creator,
		CreatedAt:            info.CreatedAt,
		MemberCount:          members,
		ProductCount:         products,
		CurrentUserIsCreator: isCreator,
		Members:              make([]domain.Member, 0, len(list)),
	}
	for _, raw := range list {
		member := domain.Member{
			ID:        raw.ID,
			Username:  raw.Username,
			Email:     raw.Email,
			JoinedAt:  info.CreatedAt,
			IsCreator: raw.Username == creator.Username,
		}
		if member.ID == "" {
			member.ID = raw.Username
		}
		group.Members = append(group.Members, member)
	}
	return group
}

// pickCreator identifies the creator: the current user when the backend says so, otherwise
// the first member who is not the current user.
func pickCreator(list []domain.Member, isCreator bool, current string) domain.Member {
	if isCreator && current != "" {
		creator := domain.Member{ID: current, Username: current, IsCreator: true}
		for _, m := range list {
			if m.Username == current {
				creator.Email = m.Email
				if m.ID != "" {
					creator.ID = m.ID
				}
			}
		}
		return creator
	}

	var found *domain.Member
	for i := range list {
		if list[i].Username != "" && list[i].Username != current {
			found = &list[i]
			break
		}
	}
	if found == nil && len(list) > 0 {
		found = &list[0]
	}
	if found == nil {
		return domain.Member{ID: "unknown", Username: "unknown", IsCreator: true}
	}
	creator := *found
	creator.IsCreator = true
	if creator.ID == "" {
		creator.ID = creator.Username
	}
	return creator
}

// Create creates a group owned by the caller and reloads it.
func (m *GroupManager) Create(ctx context.Context, name, description string) (*domain.Group, error) {
	name = strings.TrimSpace(name)
	if err := required("name", name); err != nil {
		return nil, m.fail(err)
	}
	m.begin()
	if _, err := m.backend.CreateGroup(ctx, client.CreateGroupRequest{Name: name, Description: strings.TrimSpace(description)}); err != nil {
		return nil, m.end(err)
	}
	group, err := m.load(ctx)
	if err != nil {
		return nil, m.end(err)
	}
	m.end(nil)
	return group, nil
}

func (m *GroupManager) AddMember(ctx context.Context, username string) (*domain.Group, error) {
	username = strings.TrimSpace(username)
	if err := required("username", username); err != nil {
		return nil, m.fail(err)
	}
	id, ok := m.GroupID()
	if !ok {
		return nil, m.fail(client.ErrNoGroup)
	}
	m.begin()
	if err := m.backend.AddMember(ctx, id, username); err != nil {
		return nil, m.end(err)
	}
	group, err := m.load(ctx)
	if err != nil {
		return nil, m.end(err)
	}
	m.end(nil)
	return group, nil
}

// RemoveMember drops the member locally before the request and reloads either way.
func (m *GroupManager) RemoveMember(ctx context.Context, username string) (*domain.Group, error) {
	id, ok := m.GroupID()
	if !ok {
		return nil, m.fail(client.ErrNoGroup)
	}
	m.begin()
	m.mu.Lock()
	if m.group != nil {
		kept := m.group.Members[:0:0]
		for _, member := range m.group.Members {
			if member.Username != username {
				kept = append(kept, member)
			}
		}
		m.group.Members = kept
	}
	m.mu.Unlock()

	if err := m.backend.RemoveMember(ctx, id, username); err != nil {
		if _, reloadErr := m.load(ctx); reloadErr != nil {
			m.logger.Warnf("reload group after failed removal: %v", reloadErr)
		}
		return nil, m.end(err)
	}
	group, err := m.load(ctx)
	if err != nil {
		return nil, m.end(err)
	}
	m.end(nil)
	return group, nil
}

func (m *GroupManager) Delete(ctx context.Context) error {
	id, ok := m.GroupID()
	if !ok {
		return m.fail(client.ErrNoGroup)
	}
	m.begin()
	if err := m.backend.DeleteGroup(ctx, id); err != nil {
		return m.end(err)
	}
	m.setGroup(nil)
	return m.end(nil)
}

// Group returns a copy of the loaded group, nil when there is none.
func (m *GroupManager) Group() *domain.Group {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneGroup(m.group)
}

func (m *GroupManager) GroupID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.group == nil {
		return "", false
	}
	return m.group.ID, true
}

// Role of the signed-in user in the loaded group.
func (m *GroupManager) Role() domain.Role {
	g := m.Group()
	if g == nil || m.users == nil {
		return domain.RoleNonMember
	}
	user := m.users.User()
	if g.CurrentUserIsCreator {
		return domain.RoleCreator
	}
	if role := g.RoleOf(user.ID); role != domain.RoleNonMember {
		return role
	}
	if g.HasMember(user.Username) {
		return domain.RoleMember
	}
	return domain.RoleNonMember
}

func (m *GroupManager) setGroup(g *domain.Group) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.group = g
}

func (m *GroupManager) currentUsername() string {
	if m.users == nil {
		return ""
	}
	return m.users.User().Username
}

func cloneGroup(g *domain.Group) *domain.Group {
	if g == nil {
		return nil
	}
	out := *g
	out.Members = append([]domain.Member(nil), g.Members...)
	return &out
}
