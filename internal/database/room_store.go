// internal/database/room_store.go
package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triadlab/triad/internal/models"
	"github.com/triadlab/triad/internal/room"
)

// RoomStore is the postgres implementation of room.Store. Outside a
// transaction queries go through the pool; inside Tx they share one pgx.Tx.
type RoomStore struct {
	pool *pgxpool.Pool
	q    querier
}

func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool, q: pool}
}

// Tx runs fn inside a single transaction. Nested calls join the enclosing
// transaction rather than opening a new one.
func (s *RoomStore) Tx(ctx context.Context, fn func(room.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&RoomStore{q: tx})
	})
}

const roomColumns = `
	id, room_code, title, description, topic,
	is_public, allow_random_matching,
	max_players, current_players,
	is_active, is_started, start_time,
	ai_type, ai_name, created_by, created_at
`

func scanRoom(row pgx.Row) (*models.Room, error) {
	var r models.Room
	err := row.Scan(
		&r.ID, &r.RoomCode, &r.Title, &r.Description, &r.Topic,
		&r.IsPublic, &r.AllowRandomMatching,
		&r.MaxPlayers, &r.CurrentPlayers,
		&r.IsActive, &r.IsStarted, &r.StartTime,
		&r.AIType, &r.AIName, &r.CreatedBy, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RoomStore) InsertRoom(ctx context.Context, r *models.Room) error {
	q := `
	INSERT INTO rooms (
		room_code, title, description, topic,
		is_public, allow_random_matching,
		max_players, current_players,
		is_active, is_started, start_time,
		ai_type, ai_name, created_by
	)
	VALUES ($1, $2, $3, $4,
	        $5, $6,
	        $7, $8,
	        $9, $10, $11,
	        $12, $13, $14)
	RETURNING id, created_at
	`
	err := s.q.QueryRow(ctx, q,
		r.RoomCode, r.Title, r.Description, r.Topic,
		r.IsPublic, r.AllowRandomMatching,
		r.MaxPlayers, r.CurrentPlayers,
		r.IsActive, r.IsStarted, r.StartTime,
		r.AIType, r.AIName, r.CreatedBy,
	).Scan(&r.ID, &r.CreatedAt)
	if isUniqueViolation(err) {
		return room.ErrCodeConflict
	}
	return err
}

func (s *RoomStore) UpdateRoom(ctx context.Context, r *models.Room) error {
	q := `
	UPDATE rooms SET
		title = $2, description = $3, topic = $4,
		is_public = $5, allow_random_matching = $6,
		max_players = $7, current_players = $8,
		is_active = $9, is_started = $10, start_time = $11,
		ai_type = $12, ai_name = $13
	WHERE id = $1
	`
	_, err := s.q.Exec(ctx, q,
		r.ID,
		r.Title, r.Description, r.Topic,
		r.IsPublic, r.AllowRandomMatching,
		r.MaxPlayers, r.CurrentPlayers,
		r.IsActive, r.IsStarted, r.StartTime,
		r.AIType, r.AIName,
	)
	return err
}

func (s *RoomStore) getRoom(ctx context.Context, where string, arg any, forUpdate bool) (*models.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM rooms WHERE ` + where
	if forUpdate {
		q += ` FOR UPDATE`
	}
	r, err := scanRoom(s.q.QueryRow(ctx, q, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, room.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RoomStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	return s.getRoom(ctx, "room_code = $1", code, false)
}

func (s *RoomStore) GetRoomByCodeForUpdate(ctx context.Context, code string) (*models.Room, error) {
	return s.getRoom(ctx, "room_code = $1", code, true)
}

func (s *RoomStore) GetRoomByID(ctx context.Context, id int64) (*models.Room, error) {
	return s.getRoom(ctx, "id = $1", id, false)
}

func (s *RoomStore) GetRoomByIDForUpdate(ctx context.Context, id int64) (*models.Room, error) {
	return s.getRoom(ctx, "id = $1", id, true)
}

func (s *RoomStore) RoomCodeExists(ctx context.Context, code string) (bool, error) {
	var tmp int
	err := s.q.QueryRow(ctx, `SELECT 1 FROM rooms WHERE room_code = $1 LIMIT 1`, code).Scan(&tmp)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RoomStore) listRooms(ctx context.Context, q string, args ...any) ([]models.Room, error) {
	rows, err := s.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Room
	for rows.Next() {
		var r models.Room
		err := rows.Scan(
			&r.ID, &r.RoomCode, &r.Title, &r.Description, &r.Topic,
			&r.IsPublic, &r.AllowRandomMatching,
			&r.MaxPlayers, &r.CurrentPlayers,
			&r.IsActive, &r.IsStarted, &r.StartTime,
			&r.AIType, &r.AIName, &r.CreatedBy, &r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RoomStore) ListPublicRooms(ctx context.Context, skip, limit int) ([]models.Room, error) {
	q := `
	SELECT ` + roomColumns + `
	FROM rooms
	WHERE is_public AND is_active AND NOT is_started
	ORDER BY created_at DESC
	OFFSET $1 LIMIT $2
	`
	return s.listRooms(ctx, q, skip, limit)
}

func (s *RoomStore) ListAvailableRooms(ctx context.Context) ([]models.Room, error) {
	q := `
	SELECT ` + roomColumns + `
	FROM rooms
	WHERE is_active AND NOT is_started
	  AND allow_random_matching
	  AND current_players < max_players
	ORDER BY created_at ASC
	`
	return s.listRooms(ctx, q)
}

func (s *RoomStore) InsertParticipant(ctx context.Context, p *models.RoomParticipant) error {
	q := `
	INSERT INTO room_participants (room_id, user_id, guest_id, nickname, is_ready, is_host, role_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, joined_at
	`
	err := s.q.QueryRow(ctx, q,
		p.RoomID, p.UserID, p.GuestID, p.Nickname, p.IsReady, p.IsHost, p.RoleID,
	).Scan(&p.ID, &p.JoinedAt)
	if isUniqueViolation(err) {
		return room.ErrDuplicateParticipant
	}
	return err
}

func (s *RoomStore) UpdateParticipant(ctx context.Context, p *models.RoomParticipant) error {
	q := `
	UPDATE room_participants SET
		nickname = $2, is_ready = $3, is_host = $4, role_id = $5
	WHERE id = $1
	`
	_, err := s.q.Exec(ctx, q, p.ID, p.Nickname, p.IsReady, p.IsHost, p.RoleID)
	return err
}

func (s *RoomStore) DeleteParticipant(ctx context.Context, id int64) error {
	_, err := s.q.Exec(ctx, `DELETE FROM room_participants WHERE id = $1`, id)
	return err
}

func (s *RoomStore) ListParticipants(ctx context.Context, roomID int64) ([]models.RoomParticipant, error) {
	q := `
	SELECT id, room_id, user_id, guest_id, nickname, is_ready, is_host, role_id, joined_at
	FROM room_participants
	WHERE room_id = $1
	ORDER BY joined_at ASC, id ASC
	`
	rows, err := s.q.Query(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RoomParticipant
	for rows.Next() {
		var p models.RoomParticipant
		err := rows.Scan(&p.ID, &p.RoomID, &p.UserID, &p.GuestID, &p.Nickname, &p.IsReady, &p.IsHost, &p.RoleID, &p.JoinedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *RoomStore) ResetReadyStates(ctx context.Context, roomID int64) error {
	_, err := s.q.Exec(ctx, `UPDATE room_participants SET is_ready = false WHERE room_id = $1`, roomID)
	return err
}

func (s *RoomStore) GetRoundChoice(ctx context.Context, roomID int64, round int, participantID int64) (*models.RoundChoice, error) {
	q := `
	SELECT id, room_id, round_number, participant_id, choice, confidence, created_at
	FROM round_choices
	WHERE room_id = $1 AND round_number = $2 AND participant_id = $3
	`
	var c models.RoundChoice
	err := s.q.QueryRow(ctx, q, roomID, round, participantID).Scan(
		&c.ID, &c.RoomID, &c.RoundNumber, &c.ParticipantID, &c.Choice, &c.Confidence, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *RoomStore) UpsertRoundChoice(ctx context.Context, c *models.RoundChoice) error {
	q := `
	INSERT INTO round_choices (room_id, round_number, participant_id, choice, confidence)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (room_id, round_number, participant_id)
	DO UPDATE SET choice = EXCLUDED.choice, confidence = EXCLUDED.confidence
	RETURNING id, created_at
	`
	return s.q.QueryRow(ctx, q,
		c.RoomID, c.RoundNumber, c.ParticipantID, c.Choice, c.Confidence,
	).Scan(&c.ID, &c.CreatedAt)
}

func (s *RoomStore) GetConsensusChoice(ctx context.Context, roomID int64, round int) (*models.ConsensusChoice, error) {
	q := `
	SELECT id, room_id, round_number, choice, confidence, created_at
	FROM consensus_choices
	WHERE room_id = $1 AND round_number = $2
	`
	var c models.ConsensusChoice
	err := s.q.QueryRow(ctx, q, roomID, round).Scan(
		&c.ID, &c.RoomID, &c.RoundNumber, &c.Choice, &c.Confidence, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *RoomStore) UpsertConsensusChoice(ctx context.Context, c *models.ConsensusChoice) error {
	q := `
	INSERT INTO consensus_choices (room_id, round_number, choice, confidence)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (room_id, round_number)
	DO UPDATE SET choice = EXCLUDED.choice, confidence = EXCLUDED.confidence
	RETURNING id, created_at
	`
	return s.q.QueryRow(ctx, q,
		c.RoomID, c.RoundNumber, c.Choice, c.Confidence,
	).Scan(&c.ID, &c.CreatedAt)
}
