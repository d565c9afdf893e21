// internal/database/voice_store.go
package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triadlab/triad/internal/models"
	"github.com/triadlab/triad/internal/voice"
)

// VoiceStore is the postgres implementation of voice.Store.
type VoiceStore struct {
	pool *pgxpool.Pool
	q    querier
}

func NewVoiceStore(pool *pgxpool.Pool) *VoiceStore {
	return &VoiceStore{pool: pool, q: pool}
}

func (s *VoiceStore) Tx(ctx context.Context, fn func(voice.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&VoiceStore{q: tx})
	})
}

func (s *VoiceStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM rooms WHERE room_code = $1`
	r, err := scanRoom(s.q.QueryRow(ctx, q, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, voice.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *VoiceStore) InsertVoiceSession(ctx context.Context, vs *models.VoiceSession) error {
	q := `
	INSERT INTO voice_sessions (room_id, session_id, is_active)
	VALUES ($1, $2, $3)
	RETURNING id, started_at
	`
	return s.q.QueryRow(ctx, q, vs.RoomID, vs.SessionID, vs.IsActive).Scan(&vs.ID, &vs.StartedAt)
}

func (s *VoiceStore) UpdateVoiceSession(ctx context.Context, vs *models.VoiceSession) error {
	q := `UPDATE voice_sessions SET is_active = $2, ended_at = $3 WHERE id = $1`
	_, err := s.q.Exec(ctx, q, vs.ID, vs.IsActive, vs.EndedAt)
	return err
}

const voiceSessionColumns = `id, room_id, session_id, is_active, started_at, ended_at`

func scanVoiceSession(row pgx.Row) (*models.VoiceSession, error) {
	var vs models.VoiceSession
	err := row.Scan(&vs.ID, &vs.RoomID, &vs.SessionID, &vs.IsActive, &vs.StartedAt, &vs.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vs, nil
}

func (s *VoiceStore) GetVoiceSession(ctx context.Context, sessionID string) (*models.VoiceSession, error) {
	q := `SELECT ` + voiceSessionColumns + ` FROM voice_sessions WHERE session_id = $1`
	return scanVoiceSession(s.q.QueryRow(ctx, q, sessionID))
}

func (s *VoiceStore) GetActiveVoiceSessionByRoomCode(ctx context.Context, roomCode string) (*models.VoiceSession, error) {
	q := `
	SELECT vs.id, vs.room_id, vs.session_id, vs.is_active, vs.started_at, vs.ended_at
	FROM voice_sessions vs
	JOIN rooms r ON r.id = vs.room_id
	WHERE r.room_code = $1 AND vs.is_active
	ORDER BY vs.started_at DESC
	LIMIT 1
	`
	return scanVoiceSession(s.q.QueryRow(ctx, q, roomCode))
}

const voiceParticipantColumns = `
	id, voice_session_id, user_id, guest_id, nickname,
	is_mic_on, is_speaking, is_connected,
	recording_file_path, recording_started_at, recording_ended_at,
	joined_at, last_activity
`

func (s *VoiceStore) InsertVoiceParticipant(ctx context.Context, p *models.VoiceParticipant) error {
	q := `
	INSERT INTO voice_participants (
		voice_session_id, user_id, guest_id, nickname,
		is_mic_on, is_speaking, is_connected
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, joined_at, last_activity
	`
	return s.q.QueryRow(ctx, q,
		p.VoiceSessionID, p.UserID, p.GuestID, p.Nickname,
		p.IsMicOn, p.IsSpeaking, p.IsConnected,
	).Scan(&p.ID, &p.JoinedAt, &p.LastActivity)
}

func (s *VoiceStore) UpdateVoiceParticipant(ctx context.Context, p *models.VoiceParticipant) error {
	q := `
	UPDATE voice_participants SET
		nickname = $2, is_mic_on = $3, is_speaking = $4, is_connected = $5,
		recording_file_path = $6, recording_started_at = $7, recording_ended_at = $8,
		last_activity = $9
	WHERE id = $1
	`
	_, err := s.q.Exec(ctx, q,
		p.ID, p.Nickname, p.IsMicOn, p.IsSpeaking, p.IsConnected,
		p.RecordingFilePath, p.RecordingStarted, p.RecordingEnded,
		p.LastActivity,
	)
	return err
}

func (s *VoiceStore) DeleteVoiceParticipant(ctx context.Context, id int64) error {
	_, err := s.q.Exec(ctx, `DELETE FROM voice_participants WHERE id = $1`, id)
	return err
}

func (s *VoiceStore) ListVoiceParticipants(ctx context.Context, voiceSessionID int64) ([]models.VoiceParticipant, error) {
	q := `
	SELECT ` + voiceParticipantColumns + `
	FROM voice_participants
	WHERE voice_session_id = $1
	ORDER BY joined_at ASC, id ASC
	`
	rows, err := s.q.Query(ctx, q, voiceSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VoiceParticipant
	for rows.Next() {
		var p models.VoiceParticipant
		err := rows.Scan(
			&p.ID, &p.VoiceSessionID, &p.UserID, &p.GuestID, &p.Nickname,
			&p.IsMicOn, &p.IsSpeaking, &p.IsConnected,
			&p.RecordingFilePath, &p.RecordingStarted, &p.RecordingEnded,
			&p.JoinedAt, &p.LastActivity,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
