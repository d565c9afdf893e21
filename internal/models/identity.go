// internal/models/identity.go
package models

import "strconv"

// IdentityKind discriminates the two ways a player can be identified.
type IdentityKind int

const (
	IdentityUser IdentityKind = iota + 1
	IdentityGuest
)

// Identity is the tagged identity of a player: either an authenticated user
// (numeric id) or an ephemeral guest (opaque string id). Exactly one of the
// two is meaningful, selected by Kind.
type Identity struct {
	Kind    IdentityKind
	UserID  int64
	GuestID string
}

func UserIdentity(userID int64) Identity {
	return Identity{Kind: IdentityUser, UserID: userID}
}

func GuestIdentity(guestID string) Identity {
	return Identity{Kind: IdentityGuest, GuestID: guestID}
}

func (i Identity) IsZero() bool {
	return i.Kind == 0
}

// String renders the identity the way it appears in wire payloads:
// the numeric user id for users, the guest id for guests.
func (i Identity) String() string {
	switch i.Kind {
	case IdentityUser:
		return strconv.FormatInt(i.UserID, 10)
	case IdentityGuest:
		return i.GuestID
	default:
		return ""
	}
}
