// internal/models/room.go
package models

import "time"

// RoomCapacity is the fixed seat count for every room. The game is designed
// around exactly three players and the lifecycle rules assume it.
const RoomCapacity = 3

// Room represents a row in the rooms table.
type Room struct {
	ID                  int64      `json:"id"`
	RoomCode            string     `json:"room_code"`
	Title               string     `json:"title"`
	Description         *string    `json:"description,omitempty"`
	Topic               string     `json:"topic"`
	IsPublic            bool       `json:"is_public"`
	AllowRandomMatching bool       `json:"allow_random_matching"`
	MaxPlayers          int        `json:"max_players"`
	CurrentPlayers      int        `json:"current_players"`
	IsActive            bool       `json:"is_active"`
	IsStarted           bool       `json:"is_started"`
	StartTime           *time.Time `json:"start_time,omitempty"`
	AIType              *int       `json:"ai_type,omitempty"`
	AIName              *string    `json:"ai_name,omitempty"`
	CreatedBy           *int64     `json:"created_by,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// RoomParticipant represents a seat in a room. UserID and GuestID are
// mutually exclusive; see Identity.
type RoomParticipant struct {
	ID       int64     `json:"id"`
	RoomID   int64     `json:"room_id"`
	UserID   *int64    `json:"user_id,omitempty"`
	GuestID  *string   `json:"guest_id,omitempty"`
	Nickname string    `json:"nickname"`
	IsReady  bool      `json:"is_ready"`
	IsHost   bool      `json:"is_host"`
	RoleID   *int      `json:"role_id,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// Identity returns the participant's identity as a tagged value.
func (p *RoomParticipant) Identity() Identity {
	if p.UserID != nil {
		return UserIdentity(*p.UserID)
	}
	if p.GuestID != nil {
		return GuestIdentity(*p.GuestID)
	}
	return Identity{}
}

// Is reports whether the participant is the given identity.
func (p *RoomParticipant) Is(id Identity) bool {
	switch id.Kind {
	case IdentityUser:
		return p.UserID != nil && *p.UserID == id.UserID
	case IdentityGuest:
		return p.GuestID != nil && *p.GuestID == id.GuestID
	default:
		return false
	}
}
