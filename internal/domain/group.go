package domain

// Role describes how a user relates to a family group.
type Role string

const (
	RoleCreator   Role = "creador"
	RoleMember    Role = "miembro"
	RoleNonMember Role = "no_miembro"
)

// Group is a family group as presented to the dashboard.
type Group struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"nombre"`
	Description          string   `json:"descripcion"`
	Creator              Member   `json:"creador"`
	Members              []Member `json:"miembros"`
	CreatedAt            string   `json:"fechaCreacion"`
	MemberCount          int      `json:"cantidadMiembros"`
	ProductCount         int      `json:"cantidadProductos"`
	CurrentUserIsCreator bool     `json:"usuarioActualEsCreador"`
}

// Member is a user belonging to a family group.
type Member struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	JoinedAt  string `json:"fechaUnion,omitempty"`
	IsCreator bool   `json:"esCreador"`
}

// GroupInfo is the name/description block of the caller's group.
type GroupInfo struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
	CreatedAt   string `json:"fechaCreacion"`
}

// HasMember reports whether username belongs to the group.
func (g Group) HasMember(username string) bool {
	for _, m := range g.Members {
		if m.Username == username {
			return true
		}
	}
	return false
}

// RoleOf returns the role of the member identified by userID.
func (g Group) RoleOf(userID string) Role {
	if g.Creator.ID == userID {
		return RoleCreator
	}
	for _, m := range g.Members {
		if m.ID == userID {
			return RoleMember
		}
	}
	return RoleNonMember
}
