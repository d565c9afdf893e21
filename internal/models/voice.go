// internal/models/voice.go
package models

import "time"

// VoiceSession is a realtime voice room bound to a game room. SessionID is
// the public identifier clients connect with.
type VoiceSession struct {
	ID        int64      `json:"id"`
	RoomID    int64      `json:"room_id"`
	SessionID string     `json:"session_id"`
	IsActive  bool       `json:"is_active"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// VoiceParticipant tracks one player's state inside a voice session.
type VoiceParticipant struct {
	ID             int64   `json:"id"`
	VoiceSessionID int64   `json:"voice_session_id"`
	UserID         *int64  `json:"user_id,omitempty"`
	GuestID        *string `json:"guest_id,omitempty"`
	Nickname       string  `json:"nickname"`
	IsMicOn        bool    `json:"is_mic_on"`
	IsSpeaking     bool    `json:"is_speaking"`
	IsConnected    bool    `json:"is_connected"`

	RecordingFilePath *string    `json:"recording_file_path,omitempty"`
	RecordingStarted  *time.Time `json:"recording_started_at,omitempty"`
	RecordingEnded    *time.Time `json:"recording_ended_at,omitempty"`

	JoinedAt     time.Time `json:"joined_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Identity returns the participant's identity as a tagged value.
func (p *VoiceParticipant) Identity() Identity {
	if p.UserID != nil {
		return UserIdentity(*p.UserID)
	}
	if p.GuestID != nil {
		return GuestIdentity(*p.GuestID)
	}
	return Identity{}
}

// Is reports whether the participant is the given identity.
func (p *VoiceParticipant) Is(id Identity) bool {
	switch id.Kind {
	case IdentityUser:
		return p.UserID != nil && *p.UserID == id.UserID
	case IdentityGuest:
		return p.GuestID != nil && *p.GuestID == id.GuestID
	default:
		return false
	}
}
