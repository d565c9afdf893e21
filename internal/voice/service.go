// internal/voice/service.go
package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/triadlab/triad/internal/models"
)

// Sentinel errors for voice session operations.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomInactive     = errors.New("room is inactive")
	ErrSessionNotFound  = errors.New("voice session not found")
	ErrSessionInactive  = errors.New("voice session is inactive")
	ErrNotParticipant   = errors.New("not a participant of this voice session")
	ErrSessionFull      = errors.New("voice session is full")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

// Store is the persistence gateway for voice sessions. The postgres
// implementation lives in internal/database.
type Store interface {
	Tx(ctx context.Context, fn func(Store) error) error

	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)

	InsertVoiceSession(ctx context.Context, vs *models.VoiceSession) error
	UpdateVoiceSession(ctx context.Context, vs *models.VoiceSession) error
	// GetVoiceSession returns (nil, nil) when no session has that id.
	GetVoiceSession(ctx context.Context, sessionID string) (*models.VoiceSession, error)
	// GetActiveVoiceSessionByRoomCode returns (nil, nil) when the room has
	// no active session.
	GetActiveVoiceSessionByRoomCode(ctx context.Context, roomCode string) (*models.VoiceSession, error)

	InsertVoiceParticipant(ctx context.Context, p *models.VoiceParticipant) error
	UpdateVoiceParticipant(ctx context.Context, p *models.VoiceParticipant) error
	DeleteVoiceParticipant(ctx context.Context, id int64) error
	ListVoiceParticipants(ctx context.Context, voiceSessionID int64) ([]models.VoiceParticipant, error)
}

// Service owns voice session and participant state. Live socket fanout is
// the connection registry's job; this service only persists.
type Service struct {
	store Store
	log   *logrus.Logger
	now   func() time.Time
}

func NewService(store Store, logger *logrus.Logger) *Service {
	return &Service{store: store, log: logger, now: time.Now}
}

// CreateSession opens a voice session for a room and seats the creator.
func (s *Service) CreateSession(ctx context.Context, roomCode string, creator models.Identity, nickname string) (*models.VoiceSession, error) {
	var vs *models.VoiceSession
	err := s.store.Tx(ctx, func(tx Store) error {
		r, err := tx.GetRoomByCode(ctx, roomCode)
		if err != nil {
			return err
		}
		if !r.IsActive {
			return ErrRoomInactive
		}
		vs = &models.VoiceSession{
			RoomID:    r.ID,
			SessionID: newSessionID(),
			IsActive:  true,
		}
		if err := tx.InsertVoiceSession(ctx, vs); err != nil {
			return err
		}
		p := participantFor(vs.ID, creator, nickname)
		return tx.InsertVoiceParticipant(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"room_code": roomCode, "session_id": vs.SessionID}).Info("voice session created")
	return vs, nil
}

// Join seats an identity in a voice session. Joining twice returns the
// existing seat; a full session returns ErrSessionFull.
func (s *Service) Join(ctx context.Context, sessionID string, id models.Identity, nickname string) (*models.VoiceParticipant, error) {
	var seated *models.VoiceParticipant
	err := s.store.Tx(ctx, func(tx Store) error {
		vs, err := s.activeSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		participants, err := tx.ListVoiceParticipants(ctx, vs.ID)
		if err != nil {
			return err
		}
		for i := range participants {
			if participants[i].Is(id) {
				seated = &participants[i]
				return nil
			}
		}
		if len(participants) >= models.RoomCapacity {
			return ErrSessionFull
		}
		p := participantFor(vs.ID, id, nickname)
		if err := tx.InsertVoiceParticipant(ctx, p); err != nil {
			return err
		}
		seated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return seated, nil
}

// UpdateStatus records a participant's mic and speaking state.
func (s *Service) UpdateStatus(ctx context.Context, sessionID string, id models.Identity, micOn, speaking bool) (*models.VoiceParticipant, error) {
	var out *models.VoiceParticipant
	err := s.store.Tx(ctx, func(tx Store) error {
		p, err := s.participant(ctx, tx, sessionID, id)
		if err != nil {
			return err
		}
		p.IsMicOn = micOn
		p.IsSpeaking = speaking
		p.LastActivity = s.now()
		out = p
		return tx.UpdateVoiceParticipant(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Leave vacates a participant's seat. The last leaver deactivates the
// session and stamps ended_at.
func (s *Service) Leave(ctx context.Context, sessionID string, id models.Identity) error {
	return s.store.Tx(ctx, func(tx Store) error {
		vs, err := s.activeSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		participants, err := tx.ListVoiceParticipants(ctx, vs.ID)
		if err != nil {
			return err
		}
		var leaver *models.VoiceParticipant
		for i := range participants {
			if participants[i].Is(id) {
				leaver = &participants[i]
				break
			}
		}
		if leaver == nil {
			return ErrNotParticipant
		}
		if err := tx.DeleteVoiceParticipant(ctx, leaver.ID); err != nil {
			return err
		}
		if len(participants) == 1 {
			vs.IsActive = false
			ended := s.now()
			vs.EndedAt = &ended
			return tx.UpdateVoiceSession(ctx, vs)
		}
		return nil
	})
}

// StartRecording marks a participant as recording and allocates the file
// path the uploaded audio will land at.
func (s *Service) StartRecording(ctx context.Context, sessionID string, id models.Identity) (*models.VoiceParticipant, error) {
	var out *models.VoiceParticipant
	err := s.store.Tx(ctx, func(tx Store) error {
		p, err := s.participant(ctx, tx, sessionID, id)
		if err != nil {
			return err
		}
		if p.RecordingStarted != nil && p.RecordingEnded == nil {
			return ErrAlreadyRecording
		}
		started := s.now()
		path := fmt.Sprintf("recordings/recording_%s_%s.wav", id.String(), started.Format("20060102_150405"))
		p.RecordingFilePath = &path
		p.RecordingStarted = &started
		p.RecordingEnded = nil
		out = p
		return tx.UpdateVoiceParticipant(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StopRecording ends a participant's recording and returns its duration in
// seconds.
func (s *Service) StopRecording(ctx context.Context, sessionID string, id models.Identity) (*models.VoiceParticipant, int, error) {
	var out *models.VoiceParticipant
	var duration int
	err := s.store.Tx(ctx, func(tx Store) error {
		p, err := s.participant(ctx, tx, sessionID, id)
		if err != nil {
			return err
		}
		if p.RecordingStarted == nil || p.RecordingEnded != nil {
			return ErrNotRecording
		}
		ended := s.now()
		p.RecordingEnded = &ended
		duration = int(ended.Sub(*p.RecordingStarted).Seconds())
		out = p
		return tx.UpdateVoiceParticipant(ctx, p)
	})
	if err != nil {
		return nil, 0, err
	}
	return out, duration, nil
}

// GetSession returns a voice session by public id, ErrSessionNotFound if
// absent.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*models.VoiceSession, error) {
	vs, err := s.store.GetVoiceSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if vs == nil {
		return nil, ErrSessionNotFound
	}
	return vs, nil
}

// GetSessionByRoomCode returns a room's active voice session,
// ErrSessionNotFound if it has none.
func (s *Service) GetSessionByRoomCode(ctx context.Context, roomCode string) (*models.VoiceSession, error) {
	vs, err := s.store.GetActiveVoiceSessionByRoomCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if vs == nil {
		return nil, ErrSessionNotFound
	}
	return vs, nil
}

// Participants returns the seats of a session.
func (s *Service) Participants(ctx context.Context, sessionID string) ([]models.VoiceParticipant, error) {
	vs, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.store.ListVoiceParticipants(ctx, vs.ID)
}

// Participant resolves an identity's seat, ErrNotParticipant if none.
func (s *Service) Participant(ctx context.Context, sessionID string, id models.Identity) (*models.VoiceParticipant, error) {
	var out *models.VoiceParticipant
	err := s.store.Tx(ctx, func(tx Store) error {
		p, err := s.participant(ctx, tx, sessionID, id)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) activeSession(ctx context.Context, tx Store, sessionID string) (*models.VoiceSession, error) {
	vs, err := tx.GetVoiceSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if vs == nil {
		return nil, ErrSessionNotFound
	}
	if !vs.IsActive {
		return nil, ErrSessionInactive
	}
	return vs, nil
}

func (s *Service) participant(ctx context.Context, tx Store, sessionID string, id models.Identity) (*models.VoiceParticipant, error) {
	vs, err := s.activeSession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	participants, err := tx.ListVoiceParticipants(ctx, vs.ID)
	if err != nil {
		return nil, err
	}
	for i := range participants {
		if participants[i].Is(id) {
			return &participants[i], nil
		}
	}
	return nil, ErrNotParticipant
}

func participantFor(sessionID int64, id models.Identity, nickname string) *models.VoiceParticipant {
	p := &models.VoiceParticipant{
		VoiceSessionID: sessionID,
		Nickname:       nickname,
		IsConnected:    true,
	}
	switch id.Kind {
	case models.IdentityUser:
		uid := id.UserID
		p.UserID = &uid
	case models.IdentityGuest:
		gid := id.GuestID
		p.GuestID = &gid
	}
	return p
}

// newSessionID produces the 12-character public session identifier.
func newSessionID() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:12]
}
