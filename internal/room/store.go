// internal/room/store.go
package room

import (
	"context"

	"github.com/triadlab/triad/internal/models"
)

// Store is the persistence gateway the lifecycle manager drives. The
// postgres implementation lives in internal/database; tests substitute an
// in-memory fake.
//
// Lookup methods return ErrNotFound when the room is absent. Choice lookups
// return (nil, nil) for a missing row, since an absent choice is a normal
// state rather than a failure. ForUpdate variants take a row lock inside a
// Tx so that capacity checks and counter updates are serialized per room.
type Store interface {
	// Tx runs fn inside a single transaction. Calls made on the Store
	// passed to fn share that transaction. A returned error rolls back.
	Tx(ctx context.Context, fn func(Store) error) error

	InsertRoom(ctx context.Context, r *models.Room) error
	UpdateRoom(ctx context.Context, r *models.Room) error
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	GetRoomByCodeForUpdate(ctx context.Context, code string) (*models.Room, error)
	GetRoomByID(ctx context.Context, id int64) (*models.Room, error)
	GetRoomByIDForUpdate(ctx context.Context, id int64) (*models.Room, error)
	RoomCodeExists(ctx context.Context, code string) (bool, error)
	ListPublicRooms(ctx context.Context, skip, limit int) ([]models.Room, error)
	ListAvailableRooms(ctx context.Context) ([]models.Room, error)

	InsertParticipant(ctx context.Context, p *models.RoomParticipant) error
	UpdateParticipant(ctx context.Context, p *models.RoomParticipant) error
	DeleteParticipant(ctx context.Context, id int64) error
	// ListParticipants returns seats ordered by joined_at ascending, ties
	// broken by lowest id. Host succession depends on this ordering.
	ListParticipants(ctx context.Context, roomID int64) ([]models.RoomParticipant, error)
	ResetReadyStates(ctx context.Context, roomID int64) error

	GetRoundChoice(ctx context.Context, roomID int64, round int, participantID int64) (*models.RoundChoice, error)
	UpsertRoundChoice(ctx context.Context, c *models.RoundChoice) error
	GetConsensusChoice(ctx context.Context, roomID int64, round int) (*models.ConsensusChoice, error)
	UpsertConsensusChoice(ctx context.Context, c *models.ConsensusChoice) error
}
