// internal/models/choice.go
package models

import "time"

// RoundChoice is one participant's private decision for a numbered round.
// Choice is 1..4; Confidence, once submitted, is 1..5.
type RoundChoice struct {
	ID            int64     `json:"id"`
	RoomID        int64     `json:"room_id"`
	RoundNumber   int       `json:"round_number"`
	ParticipantID int64     `json:"participant_id"`
	Choice        int       `json:"choice"`
	Confidence    *int      `json:"confidence,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ConsensusChoice is the group's agreed decision for a numbered round.
// Only the host may submit it, and only once every participant has a
// RoundChoice for the round.
type ConsensusChoice struct {
	ID          int64     `json:"id"`
	RoomID      int64     `json:"room_id"`
	RoundNumber int       `json:"round_number"`
	Choice      int       `json:"choice"`
	Confidence  *int      `json:"confidence,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoleNames is the fixed three-role set assigned once per room, keyed by
// role id.
var RoleNames = map[int]string{
	1: "caregiver",
	2: "family",
	3: "ai_developer",
}

// RoleAssignment pairs a player with an assigned role.
type RoleAssignment struct {
	PlayerID string `json:"player_id"`
	RoleID   int    `json:"role_id"`
	RoleName string `json:"role_name"`
}
