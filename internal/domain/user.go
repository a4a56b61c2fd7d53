package domain

import "regexp"

// User is the identity held by the current session.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// IsZero reports whether no identity fields are set.
func (u User) IsZero() bool {
	return u.ID == "" && u.Username == "" && u.Email == ""
}

// UserInfo is the public profile shown next to group members and creators.
type UserInfo struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UnknownUserID is the derived id of an empty username.
const UnknownUserID = "user-unknown"

var derivedID = regexp.MustCompile(`^user-(.+)-\d+$`)

// DerivedUsername extracts the username embedded in a synthetic "user-<name>-<n>" id.
func DerivedUsername(id string) (string, bool) {
	m := derivedID.FindStringSubmatch(id)
	if m == nil {
		return "", false
	}
	return m[1], true
}
