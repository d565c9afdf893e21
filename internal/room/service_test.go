// internal/room/service_test.go
package room

import (
	"context"
	"io"
	"regexp"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triadlab/triad/internal/models"
)

// fakeStore is an in-memory Store. Tests run single-goroutine, so Tx just
// invokes fn on the same fake; getters hand out copies so mutations only
// land through the update methods, like the real gateway.
type fakeStore struct {
	rooms        map[int64]*models.Room
	participants map[int64]*models.RoomParticipant
	roundChoices map[int64]*models.RoundChoice
	consensus    map[int64]*models.ConsensusChoice
	nextID       int64
	clock        time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:        make(map[int64]*models.Room),
		participants: make(map[int64]*models.RoomParticipant),
		roundChoices: make(map[int64]*models.RoundChoice),
		consensus:    make(map[int64]*models.ConsensusChoice),
		clock:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) Tx(ctx context.Context, fn func(Store) error) error {
	return fn(f)
}

func (f *fakeStore) InsertRoom(ctx context.Context, r *models.Room) error {
	for _, existing := range f.rooms {
		if existing.RoomCode == r.RoomCode {
			return ErrCodeConflict
		}
	}
	r.ID = f.id()
	r.CreatedAt = f.tick()
	cp := *r
	f.rooms[r.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateRoom(ctx context.Context, r *models.Room) error {
	cp := *r
	f.rooms[r.ID] = &cp
	return nil
}

func (f *fakeStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	for _, r := range f.rooms {
		if r.RoomCode == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) GetRoomByCodeForUpdate(ctx context.Context, code string) (*models.Room, error) {
	return f.GetRoomByCode(ctx, code)
}

func (f *fakeStore) GetRoomByID(ctx context.Context, id int64) (*models.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) GetRoomByIDForUpdate(ctx context.Context, id int64) (*models.Room, error) {
	return f.GetRoomByID(ctx, id)
}

func (f *fakeStore) RoomCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := f.GetRoomByCode(ctx, code)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (f *fakeStore) ListPublicRooms(ctx context.Context, skip, limit int) ([]models.Room, error) {
	var out []models.Room
	for _, r := range f.rooms {
		if r.IsPublic && r.IsActive && !r.IsStarted {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListAvailableRooms(ctx context.Context) ([]models.Room, error) {
	var out []models.Room
	for _, r := range f.rooms {
		if r.IsActive && !r.IsStarted && r.AllowRandomMatching && r.CurrentPlayers < r.MaxPlayers {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) InsertParticipant(ctx context.Context, p *models.RoomParticipant) error {
	for _, existing := range f.participants {
		if existing.RoomID == p.RoomID && existing.Is(p.Identity()) {
			return ErrDuplicateParticipant
		}
	}
	p.ID = f.id()
	p.JoinedAt = f.tick()
	cp := *p
	f.participants[p.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateParticipant(ctx context.Context, p *models.RoomParticipant) error {
	cp := *p
	f.participants[p.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteParticipant(ctx context.Context, id int64) error {
	delete(f.participants, id)
	return nil
}

func (f *fakeStore) ListParticipants(ctx context.Context, roomID int64) ([]models.RoomParticipant, error) {
	var out []models.RoomParticipant
	for _, p := range f.participants {
		if p.RoomID == roomID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) ResetReadyStates(ctx context.Context, roomID int64) error {
	for _, p := range f.participants {
		if p.RoomID == roomID {
			p.IsReady = false
		}
	}
	return nil
}

func (f *fakeStore) GetRoundChoice(ctx context.Context, roomID int64, round int, participantID int64) (*models.RoundChoice, error) {
	for _, c := range f.roundChoices {
		if c.RoomID == roomID && c.RoundNumber == round && c.ParticipantID == participantID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpsertRoundChoice(ctx context.Context, c *models.RoundChoice) error {
	existing, _ := f.GetRoundChoice(ctx, c.RoomID, c.RoundNumber, c.ParticipantID)
	if existing != nil {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else {
		c.ID = f.id()
		c.CreatedAt = f.tick()
	}
	cp := *c
	f.roundChoices[c.ID] = &cp
	return nil
}

func (f *fakeStore) GetConsensusChoice(ctx context.Context, roomID int64, round int) (*models.ConsensusChoice, error) {
	for _, c := range f.consensus {
		if c.RoomID == roomID && c.RoundNumber == round {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpsertConsensusChoice(ctx context.Context, c *models.ConsensusChoice) error {
	existing, _ := f.GetConsensusChoice(ctx, c.RoomID, c.RoundNumber)
	if existing != nil {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else {
		c.ID = f.id()
		c.CreatedAt = f.tick()
	}
	cp := *c
	f.consensus[c.ID] = &cp
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	svc := NewService(store, testLogger())
	return svc, store
}

func guest(id string) models.Identity { return models.GuestIdentity(id) }

func createRoom(t *testing.T, svc *Service, code string) *models.Room {
	t.Helper()
	r, err := svc.CreateRoom(context.Background(), CreateRoomParams{
		Title:          "test room",
		Topic:          "dinner",
		Public:         true,
		CustomRoomCode: code,
		Creator:        guest("g-host"),
		Nickname:       "host",
	})
	require.NoError(t, err)
	return r
}

func fillRoom(t *testing.T, svc *Service, code string) {
	t.Helper()
	_, err := svc.JoinRoom(context.Background(), code, guest("g-2"), "second")
	require.NoError(t, err)
	_, err = svc.JoinRoom(context.Background(), code, guest("g-3"), "third")
	require.NoError(t, err)
}

func TestCreateRoomGeneratesSixDigitCode(t *testing.T) {
	svc, store := newTestService()

	r, err := svc.CreateRoom(context.Background(), CreateRoomParams{
		Title:    "generated",
		Topic:    "dinner",
		Creator:  guest("g-host"),
		Nickname: "host",
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), r.RoomCode)
	assert.Equal(t, 1, r.CurrentPlayers)
	assert.Equal(t, models.RoomCapacity, r.MaxPlayers)
	assert.True(t, r.IsActive)

	participants, err := store.ListParticipants(context.Background(), r.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.True(t, participants[0].IsHost)
	assert.False(t, participants[0].IsReady)
}

func TestCreateRoomCustomCode(t *testing.T) {
	svc, _ := newTestService()

	r := createRoom(t, svc, "123456")
	assert.Equal(t, "123456", r.RoomCode)

	_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
		Title: "dup", Topic: "dinner", CustomRoomCode: "123456",
		Creator: guest("g-other"), Nickname: "other",
	})
	assert.ErrorIs(t, err, ErrCodeConflict)

	_, err = svc.CreateRoom(context.Background(), CreateRoomParams{
		Title: "bad", Topic: "dinner", CustomRoomCode: "12ab56",
		Creator: guest("g-other"), Nickname: "other",
	})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestJoinRoomCapacityAndDuplicates(t *testing.T) {
	svc, _ := newTestService()
	r := createRoom(t, svc, "111111")

	_, err := svc.JoinRoom(context.Background(), r.RoomCode, guest("g-2"), "second")
	require.NoError(t, err)
	_, err = svc.JoinRoom(context.Background(), r.RoomCode, guest("g-2"), "again")
	assert.ErrorIs(t, err, ErrDuplicateParticipant)

	_, err = svc.JoinRoom(context.Background(), r.RoomCode, guest("g-3"), "third")
	require.NoError(t, err)

	_, err = svc.JoinRoom(context.Background(), r.RoomCode, guest("g-4"), "fourth")
	assert.ErrorIs(t, err, ErrRoomFull)

	_, err = svc.JoinRoom(context.Background(), "999999", guest("g-5"), "lost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinRoomByID(t *testing.T) {
	svc, _ := newTestService()
	r := createRoom(t, svc, "222333")

	p, err := svc.JoinRoomByID(context.Background(), r.ID, guest("g-2"), "second")
	require.NoError(t, err)
	assert.Equal(t, r.ID, p.RoomID)

	updated, _, err := svc.GetRoom(context.Background(), r.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentPlayers)
}

func TestJoinRejectedByRoomState(t *testing.T) {
	svc, store := newTestService()
	r := createRoom(t, svc, "222222")

	stored, _ := store.GetRoomByID(context.Background(), r.ID)
	stored.IsStarted = true
	require.NoError(t, store.UpdateRoom(context.Background(), stored))
	_, err := svc.JoinRoom(context.Background(), r.RoomCode, guest("g-2"), "late")
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	stored.IsStarted = false
	stored.IsActive = false
	require.NoError(t, store.UpdateRoom(context.Background(), stored))
	_, err = svc.JoinRoom(context.Background(), r.RoomCode, guest("g-2"), "late")
	assert.ErrorIs(t, err, ErrRoomInactive)
}

func TestToggleReadyQuorumSchedulesStart(t *testing.T) {
	svc, store := newTestService()
	now := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	r := createRoom(t, svc, "333333")
	fillRoom(t, svc, r.RoomCode)

	res, err := svc.ToggleReady(context.Background(), r.RoomCode, guest("g-host"))
	require.NoError(t, err)
	assert.False(t, res.GameStarting)

	res, err = svc.ToggleReady(context.Background(), r.RoomCode, guest("g-2"))
	require.NoError(t, err)
	assert.False(t, res.GameStarting)

	res, err = svc.ToggleReady(context.Background(), r.RoomCode, guest("g-3"))
	require.NoError(t, err)
	assert.True(t, res.GameStarting)
	require.NotNil(t, res.StartTime)
	assert.Equal(t, now.Add(3*time.Second), *res.StartTime)

	// Un-readying afterwards does not clear the scheduled start.
	_, err = svc.ToggleReady(context.Background(), r.RoomCode, guest("g-2"))
	require.NoError(t, err)
	stored, _ := store.GetRoomByID(context.Background(), r.ID)
	require.NotNil(t, stored.StartTime)
	assert.Equal(t, now.Add(3*time.Second), *stored.StartTime)
}

func TestToggleReadyRequiresSeat(t *testing.T) {
	svc, _ := newTestService()
	r := createRoom(t, svc, "444444")

	_, err := svc.ToggleReady(context.Background(), r.RoomCode, guest("g-stranger"))
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestLeaveRoomHostSuccession(t *testing.T) {
	svc, _ := newTestService()
	r := createRoom(t, svc, "555555")
	fillRoom(t, svc, r.RoomCode)

	res, err := svc.LeaveRoom(context.Background(), r.RoomCode, guest("g-host"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.RemainingPlayers)
	assert.False(t, res.RoomDeactivated)
	require.NotNil(t, res.NewHost)
	// Longest-seated remaining participant inherits the host.
	assert.Equal(t, "second", res.NewHost.Nickname)

	p, err := svc.GetParticipant(context.Background(), r.RoomCode, guest("g-2"))
	require.NoError(t, err)
	assert.True(t, p.IsHost)
}

func TestLastLeaverDeactivatesRoom(t *testing.T) {
	svc, _ := newTestService()
	r := createRoom(t, svc, "666666")

	res, err := svc.LeaveRoom(context.Background(), r.RoomCode, guest("g-host"))
	require.NoError(t, err)
	assert.True(t, res.RoomDeactivated)
	assert.Equal(t, 0, res.RemainingPlayers)

	stored, _, err := svc.GetRoom(context.Background(), r.RoomCode)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestLeaveRoomNotParticipant(t *testing.T) {
	svc, _ := newTestService()
	r := createRoom(t, svc, "676767")

	_, err := svc.LeaveRoom(context.Background(), r.RoomCode, guest("g-stranger"))
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestAssignRolesBijection(t *testing.T) {
	svc, _ := newTestService()
	r := createRoom(t, svc, "777777")

	_, err := svc.AssignRoles(context.Background(), r.RoomCode)
	assert.ErrorIs(t, err, ErrInvalidState)

	fillRoom(t, svc, r.RoomCode)
	assignments, err := svc.AssignRoles(context.Background(), r.RoomCode)
	require.NoError(t, err)
	require.Len(t, assignments, 3)

	seenRoles := make(map[int]bool)
	seenPlayers := make(map[string]bool)
	for _, a := range assignments {
		assert.False(t, seenRoles[a.RoleID], "role %d assigned twice", a.RoleID)
		assert.False(t, seenPlayers[a.PlayerID], "player %s assigned twice", a.PlayerID)
		seenRoles[a.RoleID] = true
		seenPlayers[a.PlayerID] = true
		assert.Equal(t, models.RoleNames[a.RoleID], a.RoleName)
	}
	for roleID := 1; roleID <= 3; roleID++ {
		assert.True(t, seenRoles[roleID])
	}

	// Re-invocation reshuffles without error.
	_, err = svc.AssignRoles(context.Background(), r.RoomCode)
	require.NoError(t, err)

	status, err := svc.GetRoleStatus(context.Background(), r.RoomCode)
	require.NoError(t, err)
	assert.True(t, status.IsRolesAssigned)
	assert.Equal(t, 3, status.AssignedParticipants)
}

func TestChoiceValidationBounds(t *testing.T) {
	svc, _ := newTestService()
	r := createRoom(t, svc, "888888")

	_, err := svc.SubmitRoundChoice(context.Background(), r.RoomCode, 1, guest("g-host"), 0)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	_, err = svc.SubmitRoundChoice(context.Background(), r.RoomCode, 1, guest("g-host"), 5)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	_, err = svc.SubmitRoundConfidence(context.Background(), r.RoomCode, 1, guest("g-host"), 6)
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestConfidenceRequiresChoice(t *testing.T) {
	svc, _ := newTestService()
	r := createRoom(t, svc, "898989")

	_, err := svc.SubmitRoundConfidence(context.Background(), r.RoomCode, 1, guest("g-host"), 3)
	assert.ErrorIs(t, err, ErrChoiceRequired)

	_, err = svc.SubmitRoundChoice(context.Background(), r.RoomCode, 1, guest("g-host"), 2)
	require.NoError(t, err)
	c, err := svc.SubmitRoundConfidence(context.Background(), r.RoomCode, 1, guest("g-host"), 4)
	require.NoError(t, err)
	require.NotNil(t, c.Confidence)
	assert.Equal(t, 4, *c.Confidence)
}

func TestConsensusFlow(t *testing.T) {
	svc, _ := newTestService()
	r := createRoom(t, svc, "909090")
	fillRoom(t, svc, r.RoomCode)

	// Host cannot record consensus until everyone has chosen.
	_, err := svc.SubmitConsensusChoice(context.Background(), r.RoomCode, 1, guest("g-host"), 2)
	assert.ErrorIs(t, err, ErrIncompleteChoices)

	for _, g := range []string{"g-host", "g-2", "g-3"} {
		_, err := svc.SubmitRoundChoice(context.Background(), r.RoomCode, 1, guest(g), 3)
		require.NoError(t, err)
	}

	// Only the host may record consensus.
	_, err = svc.SubmitConsensusChoice(context.Background(), r.RoomCode, 1, guest("g-2"), 3)
	assert.ErrorIs(t, err, ErrNotHost)

	consensus, err := svc.SubmitConsensusChoice(context.Background(), r.RoomCode, 1, guest("g-host"), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, consensus.Choice)

	// Consensus freezes the round's individual choices.
	_, err = svc.SubmitRoundChoice(context.Background(), r.RoomCode, 1, guest("g-2"), 1)
	assert.ErrorIs(t, err, ErrConsensusLocked)

	// Consensus confidence rides on the existing consensus.
	_, err = svc.SubmitConsensusConfidence(context.Background(), r.RoomCode, 2, guest("g-host"), 4)
	assert.ErrorIs(t, err, ErrChoiceRequired)
	cc, err := svc.SubmitConsensusConfidence(context.Background(), r.RoomCode, 1, guest("g-host"), 4)
	require.NoError(t, err)
	require.NotNil(t, cc.Confidence)
	assert.Equal(t, 4, *cc.Confidence)

	status, err := svc.GetChoiceStatus(context.Background(), r.RoomCode, 1)
	require.NoError(t, err)
	assert.True(t, status.AllCompleted)
	assert.True(t, status.ConsensusCompleted)
	assert.True(t, status.CanProceed)
	require.Len(t, status.Participants, 3)
}

func TestChoiceStatusIncomplete(t *testing.T) {
	svc, _ := newTestService()
	r := createRoom(t, svc, "919191")
	fillRoom(t, svc, r.RoomCode)

	_, err := svc.SubmitRoundChoice(context.Background(), r.RoomCode, 1, guest("g-2"), 1)
	require.NoError(t, err)

	status, err := svc.GetChoiceStatus(context.Background(), r.RoomCode, 1)
	require.NoError(t, err)
	assert.False(t, status.AllCompleted)
	assert.False(t, status.CanProceed)

	completed := 0
	for _, ps := range status.Participants {
		if ps.ChoiceCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestResetRoomStatus(t *testing.T) {
	svc, store := newTestService()
	r := createRoom(t, svc, "929292")
	fillRoom(t, svc, r.RoomCode)

	for _, g := range []string{"g-host", "g-2", "g-3"} {
		_, err := svc.ToggleReady(context.Background(), r.RoomCode, guest(g))
		require.NoError(t, err)
	}
	stored, _ := store.GetRoomByID(context.Background(), r.ID)
	require.NotNil(t, stored.StartTime)

	reset, err := svc.ResetRoomStatus(context.Background(), r.RoomCode)
	require.NoError(t, err)
	assert.False(t, reset.IsStarted)
	assert.Nil(t, reset.StartTime)

	participants, err := store.ListParticipants(context.Background(), r.ID)
	require.NoError(t, err)
	for _, p := range participants {
		assert.False(t, p.IsReady)
	}
}

func TestAIMetadataWriteOnce(t *testing.T) {
	svc, _ := newTestService()
	r := createRoom(t, svc, "939393")

	_, err := svc.GetAIType(context.Background(), r.RoomCode)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.SetAIType(context.Background(), r.RoomCode, 2)
	require.NoError(t, err)
	aiType, err := svc.GetAIType(context.Background(), r.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, 2, aiType)

	_, err = svc.SetAIType(context.Background(), r.RoomCode, 3)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.SetAIName(context.Background(), r.RoomCode, "Nova")
	require.NoError(t, err)
	name, err := svc.GetAIName(context.Background(), r.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, "Nova", name)
	_, err = svc.SetAIName(context.Background(), r.RoomCode, "Mira")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestListPublicAndAvailableRooms(t *testing.T) {
	svc, _ := newTestService()

	r1, err := svc.CreateRoom(context.Background(), CreateRoomParams{
		Title: "open", Topic: "dinner", Public: true, AllowRandomMatching: true,
		Creator: guest("g-a"), Nickname: "a",
	})
	require.NoError(t, err)
	_, err = svc.CreateRoom(context.Background(), CreateRoomParams{
		Title: "hidden", Topic: "dinner", Public: false,
		Creator: guest("g-b"), Nickname: "b",
	})
	require.NoError(t, err)

	public, err := svc.ListPublicRooms(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, r1.RoomCode, public[0].RoomCode)

	available, err := svc.ListAvailableRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, r1.RoomCode, available[0].RoomCode)

	// A full room is no longer available for random matching.
	fillRoom(t, svc, r1.RoomCode)
	available, err = svc.ListAvailableRooms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, available)
}
