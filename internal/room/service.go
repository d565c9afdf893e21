// internal/room/service.go
package room

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/triadlab/triad/internal/models"
)

// startGraceWindow is the delay between the ready quorum being reached and
// the scheduled game start, giving clients time to show a countdown.
const startGraceWindow = 3 * time.Second

// codeGenAttempts bounds how many random codes are tried before giving up.
const codeGenAttempts = 10

var roomCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Service owns all room and participant state transitions. It never touches
// live connections; callers broadcast through the connection registry after
// consulting it.
type Service struct {
	store Store
	log   *logrus.Logger
	now   func() time.Time
}

func NewService(store Store, logger *logrus.Logger) *Service {
	return &Service{store: store, log: logger, now: time.Now}
}

// CreateRoomParams carries everything needed to open a room. Creator is
// seated as host immediately.
type CreateRoomParams struct {
	Title               string
	Description         *string
	Topic               string
	Public              bool
	AllowRandomMatching bool
	CustomRoomCode      string
	Creator             models.Identity
	Nickname            string
}

// CreateRoom opens a room and seats the creator as its host, not ready.
// A custom code must be exactly 6 digits and unused (ErrInvalidCode /
// ErrCodeConflict); otherwise a code is generated with a bounded number of
// uniqueness retries (ErrCodeExhausted).
func (s *Service) CreateRoom(ctx context.Context, p CreateRoomParams) (*models.Room, error) {
	code := p.CustomRoomCode
	if code != "" {
		if !roomCodePattern.MatchString(code) {
			return nil, ErrInvalidCode
		}
		exists, err := s.store.RoomCodeExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("check room code: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("code %q: %w", code, ErrCodeConflict)
		}
	} else {
		generated, err := s.generateRoomCode(ctx)
		if err != nil {
			return nil, err
		}
		code = generated
	}

	r := &models.Room{
		RoomCode:            code,
		Title:               p.Title,
		Description:         p.Description,
		Topic:               p.Topic,
		IsPublic:            p.Public,
		AllowRandomMatching: p.AllowRandomMatching,
		MaxPlayers:          models.RoomCapacity,
		CurrentPlayers:      1,
		IsActive:            true,
	}
	if p.Creator.Kind == models.IdentityUser {
		uid := p.Creator.UserID
		r.CreatedBy = &uid
	}

	err := s.store.Tx(ctx, func(tx Store) error {
		if err := tx.InsertRoom(ctx, r); err != nil {
			return err
		}
		host := participantFor(r.ID, p.Creator, p.Nickname)
		host.IsHost = true
		return tx.InsertParticipant(ctx, host)
	})
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	s.log.WithFields(logrus.Fields{"room_code": r.RoomCode, "public": r.IsPublic}).Info("room created")
	return r, nil
}

func (s *Service) generateRoomCode(ctx context.Context) (string, error) {
	for i := 0; i < codeGenAttempts; i++ {
		code := fmt.Sprintf("%06d", rand.Intn(1000000))
		exists, err := s.store.RoomCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check room code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

// JoinRoom seats an identity in the room identified by its public code. The
// capacity check and the seat insert run in one transaction with a room row
// lock, so two concurrent joins can never both pass the capacity of 3.
func (s *Service) JoinRoom(ctx context.Context, roomCode string, id models.Identity, nickname string) (*models.RoomParticipant, error) {
	return s.join(ctx, id, nickname, func(ctx context.Context, tx Store) (*models.Room, error) {
		return tx.GetRoomByCodeForUpdate(ctx, roomCode)
	})
}

// JoinRoomByID is JoinRoom keyed by the room's internal id.
func (s *Service) JoinRoomByID(ctx context.Context, roomID int64, id models.Identity, nickname string) (*models.RoomParticipant, error) {
	return s.join(ctx, id, nickname, func(ctx context.Context, tx Store) (*models.Room, error) {
		return tx.GetRoomByIDForUpdate(ctx, roomID)
	})
}

func (s *Service) join(ctx context.Context, id models.Identity, nickname string, lookup func(context.Context, Store) (*models.Room, error)) (*models.RoomParticipant, error) {
	var seated *models.RoomParticipant
	err := s.store.Tx(ctx, func(tx Store) error {
		r, err := lookup(ctx, tx)
		if err != nil {
			return err
		}
		if !r.IsActive {
			return ErrRoomInactive
		}
		if r.IsStarted {
			return ErrAlreadyStarted
		}
		if r.CurrentPlayers >= r.MaxPlayers {
			return ErrRoomFull
		}
		participants, err := tx.ListParticipants(ctx, r.ID)
		if err != nil {
			return err
		}
		for i := range participants {
			if participants[i].Is(id) {
				return ErrDuplicateParticipant
			}
		}
		p := participantFor(r.ID, id, nickname)
		if err := tx.InsertParticipant(ctx, p); err != nil {
			return err
		}
		r.CurrentPlayers++
		if err := tx.UpdateRoom(ctx, r); err != nil {
			return err
		}
		seated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"room_id": seated.RoomID, "player": id.String()}).Info("player joined room")
	return seated, nil
}

// ReadyResult reports the outcome of a ready toggle.
type ReadyResult struct {
	Participant  *models.RoomParticipant
	Room         *models.Room
	GameStarting bool
	StartTime    *time.Time
}

// ToggleReady flips the caller's ready flag. When the flip leaves exactly
// 3 participants all ready, the game start is scheduled startGraceWindow
// from now. This is the only path that sets start_time; it is not cleared
// here if someone later un-readies — the start consumer re-validates.
func (s *Service) ToggleReady(ctx context.Context, roomCode string, id models.Identity) (*ReadyResult, error) {
	res := &ReadyResult{}
	err := s.store.Tx(ctx, func(tx Store) error {
		r, err := tx.GetRoomByCodeForUpdate(ctx, roomCode)
		if err != nil {
			return err
		}
		if !r.IsActive {
			return ErrRoomInactive
		}
		if r.IsStarted {
			return ErrAlreadyStarted
		}
		participants, err := tx.ListParticipants(ctx, r.ID)
		if err != nil {
			return err
		}
		me := findParticipant(participants, id)
		if me == nil {
			return ErrNotParticipant
		}
		me.IsReady = !me.IsReady
		if err := tx.UpdateParticipant(ctx, me); err != nil {
			return err
		}

		readyCount := 0
		for i := range participants {
			if participants[i].IsReady {
				readyCount++
			}
		}
		if len(participants) == models.RoomCapacity && readyCount == models.RoomCapacity {
			st := s.now().Add(startGraceWindow)
			r.StartTime = &st
			if err := tx.UpdateRoom(ctx, r); err != nil {
				return err
			}
			res.GameStarting = true
			res.StartTime = &st
		}
		res.Participant = me
		res.Room = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.GameStarting {
		s.log.WithField("room_code", roomCode).Info("all players ready, game start scheduled")
	}
	return res, nil
}

// LeaveResult reports what happened when a seat was vacated.
type LeaveResult struct {
	RoomCode         string
	RemainingPlayers int
	RoomDeactivated  bool
	NewHost          *models.RoomParticipant
	GameStarted      bool
}

// LeaveRoom vacates the caller's seat. If the host leaves and others
// remain, the longest-seated participant (earliest joined_at, lowest id on
// ties) is promoted. The last leaver deactivates the room.
func (s *Service) LeaveRoom(ctx context.Context, roomCode string, id models.Identity) (*LeaveResult, error) {
	res := &LeaveResult{RoomCode: roomCode}
	err := s.store.Tx(ctx, func(tx Store) error {
		r, err := tx.GetRoomByCodeForUpdate(ctx, roomCode)
		if err != nil {
			return err
		}
		participants, err := tx.ListParticipants(ctx, r.ID)
		if err != nil {
			return err
		}
		leaver := findParticipant(participants, id)
		if leaver == nil {
			return ErrNotParticipant
		}

		if leaver.IsHost {
			for i := range participants {
				if participants[i].ID == leaver.ID {
					continue
				}
				// participants is ordered by joined_at, then id; the first
				// remaining seat is the successor.
				successor := &participants[i]
				successor.IsHost = true
				if err := tx.UpdateParticipant(ctx, successor); err != nil {
					return err
				}
				res.NewHost = successor
				break
			}
		}

		if err := tx.DeleteParticipant(ctx, leaver.ID); err != nil {
			return err
		}
		r.CurrentPlayers--
		if r.CurrentPlayers <= 0 {
			r.IsActive = false
			res.RoomDeactivated = true
		}
		if err := tx.UpdateRoom(ctx, r); err != nil {
			return err
		}
		res.RemainingPlayers = r.CurrentPlayers
		res.GameStarted = r.IsStarted
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"room_code": roomCode, "remaining": res.RemainingPlayers, "deactivated": res.RoomDeactivated,
	}).Info("player left room")
	return res, nil
}

// AssignRoles deals the fixed three-role set to the room's participants as
// a uniformly random bijection. Requires exactly 3 seats in an active, not
// yet started room. Re-invocation reshuffles; there is no already-assigned
// guard.
func (s *Service) AssignRoles(ctx context.Context, roomCode string) ([]models.RoleAssignment, error) {
	var assignments []models.RoleAssignment
	err := s.store.Tx(ctx, func(tx Store) error {
		r, err := tx.GetRoomByCodeForUpdate(ctx, roomCode)
		if err != nil {
			return err
		}
		if !r.IsActive || r.IsStarted {
			return ErrInvalidState
		}
		participants, err := tx.ListParticipants(ctx, r.ID)
		if err != nil {
			return err
		}
		if len(participants) != models.RoomCapacity {
			return fmt.Errorf("have %d of %d participants: %w", len(participants), models.RoomCapacity, ErrInvalidState)
		}

		order := rand.Perm(len(participants))
		for i, pi := range order {
			roleID := i + 1
			p := &participants[pi]
			p.RoleID = &roleID
			if err := tx.UpdateParticipant(ctx, p); err != nil {
				return err
			}
			assignments = append(assignments, models.RoleAssignment{
				PlayerID: p.Identity().String(),
				RoleID:   roleID,
				RoleName: models.RoleNames[roleID],
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("room_code", roomCode).Info("roles assigned")
	return assignments, nil
}

// SubmitRoundChoice upserts the caller's decision for a round. Once a
// consensus exists for the round, individual choices are frozen.
func (s *Service) SubmitRoundChoice(ctx context.Context, roomCode string, round int, id models.Identity, choice int) (*models.RoundChoice, error) {
	if choice < 1 || choice > 4 {
		return nil, ErrInvalidChoice
	}
	var out *models.RoundChoice
	err := s.store.Tx(ctx, func(tx Store) error {
		r, me, err := s.participantInRoom(ctx, tx, roomCode, id)
		if err != nil {
			return err
		}
		consensus, err := tx.GetConsensusChoice(ctx, r.ID, round)
		if err != nil {
			return err
		}
		if consensus != nil {
			return ErrConsensusLocked
		}
		existing, err := tx.GetRoundChoice(ctx, r.ID, round, me.ID)
		if err != nil {
			return err
		}
		c := &models.RoundChoice{RoomID: r.ID, RoundNumber: round, ParticipantID: me.ID, Choice: choice}
		if existing != nil {
			c.ID = existing.ID
			c.Confidence = existing.Confidence
		}
		if err := tx.UpsertRoundChoice(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitRoundConfidence records confidence on an existing round choice.
func (s *Service) SubmitRoundConfidence(ctx context.Context, roomCode string, round int, id models.Identity, confidence int) (*models.RoundChoice, error) {
	if confidence < 1 || confidence > 5 {
		return nil, ErrInvalidConfidence
	}
	var out *models.RoundChoice
	err := s.store.Tx(ctx, func(tx Store) error {
		r, me, err := s.participantInRoom(ctx, tx, roomCode, id)
		if err != nil {
			return err
		}
		existing, err := tx.GetRoundChoice(ctx, r.ID, round, me.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrChoiceRequired
		}
		existing.Confidence = &confidence
		if err := tx.UpsertRoundChoice(ctx, existing); err != nil {
			return err
		}
		out = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitConsensusChoice records the group decision for a round. Host only,
// and only once every current participant has a round choice. Upsert is
// allowed; consensus stays mutable until the caller's own game flow closes
// the round.
func (s *Service) SubmitConsensusChoice(ctx context.Context, roomCode string, round int, id models.Identity, choice int) (*models.ConsensusChoice, error) {
	if choice < 1 || choice > 4 {
		return nil, ErrInvalidChoice
	}
	var out *models.ConsensusChoice
	err := s.store.Tx(ctx, func(tx Store) error {
		r, err := tx.GetRoomByCodeForUpdate(ctx, roomCode)
		if err != nil {
			return err
		}
		participants, err := tx.ListParticipants(ctx, r.ID)
		if err != nil {
			return err
		}
		me := findParticipant(participants, id)
		if me == nil {
			return ErrNotParticipant
		}
		if !me.IsHost {
			return ErrNotHost
		}
		for i := range participants {
			c, err := tx.GetRoundChoice(ctx, r.ID, round, participants[i].ID)
			if err != nil {
				return err
			}
			if c == nil {
				return ErrIncompleteChoices
			}
		}
		existing, err := tx.GetConsensusChoice(ctx, r.ID, round)
		if err != nil {
			return err
		}
		c := &models.ConsensusChoice{RoomID: r.ID, RoundNumber: round, Choice: choice}
		if existing != nil {
			c.ID = existing.ID
			c.Confidence = existing.Confidence
		}
		if err := tx.UpsertConsensusChoice(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitConsensusConfidence records confidence on an existing consensus.
func (s *Service) SubmitConsensusConfidence(ctx context.Context, roomCode string, round int, id models.Identity, confidence int) (*models.ConsensusChoice, error) {
	if confidence < 1 || confidence > 5 {
		return nil, ErrInvalidConfidence
	}
	var out *models.ConsensusChoice
	err := s.store.Tx(ctx, func(tx Store) error {
		r, _, err := s.participantInRoom(ctx, tx, roomCode, id)
		if err != nil {
			return err
		}
		existing, err := tx.GetConsensusChoice(ctx, r.ID, round)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrChoiceRequired
		}
		existing.Confidence = &confidence
		if err := tx.UpsertConsensusChoice(ctx, existing); err != nil {
			return err
		}
		out = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParticipantChoiceStatus is one participant's completion flags for a round.
type ParticipantChoiceStatus struct {
	ParticipantID       int64  `json:"participant_id"`
	Nickname            string `json:"nickname"`
	ChoiceCompleted     bool   `json:"choice_completed"`
	Choice              *int   `json:"choice,omitempty"`
	ConfidenceCompleted bool   `json:"confidence_completed"`
	Confidence          *int   `json:"confidence,omitempty"`
}

// ChoiceStatus aggregates a round's completion state.
type ChoiceStatus struct {
	RoomCode           string                    `json:"room_code"`
	RoundNumber        int                       `json:"round_number"`
	Participants       []ParticipantChoiceStatus `json:"participants"`
	AllCompleted       bool                      `json:"all_completed"`
	ConsensusCompleted bool                      `json:"consensus_completed"`
	ConsensusChoice    *int                      `json:"consensus_choice,omitempty"`
	CanProceed         bool                      `json:"can_proceed"`
}

// GetChoiceStatus is a read-only aggregate of a round's progress.
func (s *Service) GetChoiceStatus(ctx context.Context, roomCode string, round int) (*ChoiceStatus, error) {
	r, err := s.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, r.ID)
	if err != nil {
		return nil, err
	}

	status := &ChoiceStatus{RoomCode: roomCode, RoundNumber: round, AllCompleted: true}
	for i := range participants {
		p := &participants[i]
		c, err := s.store.GetRoundChoice(ctx, r.ID, round, p.ID)
		if err != nil {
			return nil, err
		}
		ps := ParticipantChoiceStatus{ParticipantID: p.ID, Nickname: p.Nickname}
		if c != nil {
			ps.ChoiceCompleted = true
			choice := c.Choice
			ps.Choice = &choice
			ps.ConfidenceCompleted = c.Confidence != nil
			ps.Confidence = c.Confidence
		} else {
			status.AllCompleted = false
		}
		status.Participants = append(status.Participants, ps)
	}

	consensus, err := s.store.GetConsensusChoice(ctx, r.ID, round)
	if err != nil {
		return nil, err
	}
	if consensus != nil {
		status.ConsensusCompleted = true
		choice := consensus.Choice
		status.ConsensusChoice = &choice
	}
	status.CanProceed = status.AllCompleted && status.ConsensusCompleted
	return status, nil
}

// RoleStatus aggregates a room's role assignment state.
type RoleStatus struct {
	RoomCode             string                  `json:"room_code"`
	IsRolesAssigned      bool                    `json:"is_roles_assigned"`
	Assignments          []models.RoleAssignment `json:"assignments"`
	TotalParticipants    int                     `json:"total_participants"`
	AssignedParticipants int                     `json:"assigned_participants"`
}

// GetRoleStatus is a read-only aggregate of role assignment progress.
func (s *Service) GetRoleStatus(ctx context.Context, roomCode string) (*RoleStatus, error) {
	r, err := s.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if !r.IsActive {
		return nil, ErrRoomInactive
	}
	participants, err := s.store.ListParticipants(ctx, r.ID)
	if err != nil {
		return nil, err
	}

	status := &RoleStatus{RoomCode: roomCode, TotalParticipants: len(participants)}
	var assignments []models.RoleAssignment
	allAssigned := true
	for i := range participants {
		p := &participants[i]
		if p.RoleID == nil {
			allAssigned = false
			continue
		}
		status.AssignedParticipants++
		assignments = append(assignments, models.RoleAssignment{
			PlayerID: p.Identity().String(),
			RoleID:   *p.RoleID,
			RoleName: models.RoleNames[*p.RoleID],
		})
	}
	if allAssigned && len(participants) == models.RoomCapacity {
		status.IsRolesAssigned = true
		status.Assignments = assignments
	}
	return status, nil
}

// ResetRoomStatus clears is_started, start_time and every ready flag. Test
// and facilitation tooling only; normal play never rewinds a started room.
func (s *Service) ResetRoomStatus(ctx context.Context, roomCode string) (*models.Room, error) {
	var out *models.Room
	err := s.store.Tx(ctx, func(tx Store) error {
		r, err := tx.GetRoomByCodeForUpdate(ctx, roomCode)
		if err != nil {
			return err
		}
		r.IsStarted = false
		r.StartTime = nil
		if err := tx.UpdateRoom(ctx, r); err != nil {
			return err
		}
		if err := tx.ResetReadyStates(ctx, r.ID); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("room_code", roomCode).Warn("room status reset")
	return out, nil
}

// SetAIType stores the room's AI type. Write-once.
func (s *Service) SetAIType(ctx context.Context, roomCode string, aiType int) (*models.Room, error) {
	var out *models.Room
	err := s.store.Tx(ctx, func(tx Store) error {
		r, err := tx.GetRoomByCodeForUpdate(ctx, roomCode)
		if err != nil {
			return err
		}
		if r.AIType != nil {
			return fmt.Errorf("ai_type already set: %w", ErrInvalidState)
		}
		r.AIType = &aiType
		out = r
		return tx.UpdateRoom(ctx, r)
	})
	return out, err
}

// GetAIType returns the room's AI type, ErrNotFound if not yet set.
func (s *Service) GetAIType(ctx context.Context, roomCode string) (int, error) {
	r, err := s.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return 0, err
	}
	if r.AIType == nil {
		return 0, fmt.Errorf("ai_type not set: %w", ErrNotFound)
	}
	return *r.AIType, nil
}

// SetAIName stores the room's AI display name. Write-once.
func (s *Service) SetAIName(ctx context.Context, roomCode string, aiName string) (*models.Room, error) {
	var out *models.Room
	err := s.store.Tx(ctx, func(tx Store) error {
		r, err := tx.GetRoomByCodeForUpdate(ctx, roomCode)
		if err != nil {
			return err
		}
		if r.AIName != nil && *r.AIName != "" {
			return fmt.Errorf("ai_name already set: %w", ErrInvalidState)
		}
		r.AIName = &aiName
		out = r
		return tx.UpdateRoom(ctx, r)
	})
	return out, err
}

// GetAIName returns the room's AI display name, ErrNotFound if not yet set.
func (s *Service) GetAIName(ctx context.Context, roomCode string) (string, error) {
	r, err := s.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return "", err
	}
	if r.AIName == nil || *r.AIName == "" {
		return "", fmt.Errorf("ai_name not set: %w", ErrNotFound)
	}
	return *r.AIName, nil
}

// GetRoom returns a room and its seats.
func (s *Service) GetRoom(ctx context.Context, roomCode string) (*models.Room, []models.RoomParticipant, error) {
	r, err := s.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return nil, nil, err
	}
	participants, err := s.store.ListParticipants(ctx, r.ID)
	if err != nil {
		return nil, nil, err
	}
	return r, participants, nil
}

// GetParticipant resolves an identity's seat in a room, ErrNotParticipant
// if it holds none.
func (s *Service) GetParticipant(ctx context.Context, roomCode string, id models.Identity) (*models.RoomParticipant, error) {
	r, err := s.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	p := findParticipant(participants, id)
	if p == nil {
		return nil, ErrNotParticipant
	}
	return p, nil
}

// ListPublicRooms returns active, not yet started public rooms, newest
// first.
func (s *Service) ListPublicRooms(ctx context.Context, skip, limit int) ([]models.Room, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListPublicRooms(ctx, skip, limit)
}

// ListAvailableRooms returns public rooms a random joiner could enter:
// active, not started, at least one seat taken and at least one free.
func (s *Service) ListAvailableRooms(ctx context.Context) ([]models.Room, error) {
	return s.store.ListAvailableRooms(ctx)
}

func (s *Service) participantInRoom(ctx context.Context, tx Store, roomCode string, id models.Identity) (*models.Room, *models.RoomParticipant, error) {
	r, err := tx.GetRoomByCodeForUpdate(ctx, roomCode)
	if err != nil {
		return nil, nil, err
	}
	participants, err := tx.ListParticipants(ctx, r.ID)
	if err != nil {
		return nil, nil, err
	}
	me := findParticipant(participants, id)
	if me == nil {
		return nil, nil, ErrNotParticipant
	}
	return r, me, nil
}

func participantFor(roomID int64, id models.Identity, nickname string) *models.RoomParticipant {
	p := &models.RoomParticipant{RoomID: roomID, Nickname: nickname}
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

func findParticipant(participants []models.RoomParticipant, id models.Identity) *models.RoomParticipant {
	for i := range participants {
		if participants[i].Is(id) {
			return &participants[i]
		}
	}
	return nil
}
