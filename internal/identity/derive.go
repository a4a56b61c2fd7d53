package identity

import (
	"strconv"
	"unicode/utf16"

	"homestock/internal/domain"
)

// DeriveUserID maps a username to a stable synthetic identifier of the form
// "user-<username>-<n>". n is the absolute value of a 32-bit wrapping hash computed as
// h = 31*h + c over the UTF-16 code units of the username, starting from h = 0. The
// empty username maps to "user-unknown".
//
// Other components key local associations (such as group ownership) on this value, so it
// must stay a pure function of the username across releases.
func DeriveUserID(username string) string {
	if username == "" {
		return domain.UnknownUserID
	}
	var h int32
	for _, unit := range utf16.Encode([]rune(username)) {
		h = h*31 + int32(unit)
	}
	n := int64(h)
	if n < 0 {
		n = -n
	}
	return "user-" + username + "-" + strconv.FormatInt(n, 10)
}
