// internal/voice/service_test.go
package voice

import (
	"context"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triadlab/triad/internal/models"
)

// fakeStore is an in-memory voice.Store for single-goroutine tests.
type fakeStore struct {
	rooms        map[string]*models.Room
	sessions     map[int64]*models.VoiceSession
	participants map[int64]*models.VoiceParticipant
	nextID       int64
	clock        time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:        make(map[string]*models.Room),
		sessions:     make(map[int64]*models.VoiceSession),
		participants: make(map[int64]*models.VoiceParticipant),
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

func (f *fakeStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	r, ok := f.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) InsertVoiceSession(ctx context.Context, vs *models.VoiceSession) error {
	vs.ID = f.id()
	vs.StartedAt = f.tick()
	cp := *vs
	f.sessions[vs.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateVoiceSession(ctx context.Context, vs *models.VoiceSession) error {
	cp := *vs
	f.sessions[vs.ID] = &cp
	return nil
}

func (f *fakeStore) GetVoiceSession(ctx context.Context, sessionID string) (*models.VoiceSession, error) {
	for _, vs := range f.sessions {
		if vs.SessionID == sessionID {
			cp := *vs
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetActiveVoiceSessionByRoomCode(ctx context.Context, roomCode string) (*models.VoiceSession, error) {
	r, ok := f.rooms[roomCode]
	if !ok {
		return nil, nil
	}
	for _, vs := range f.sessions {
		if vs.RoomID == r.ID && vs.IsActive {
			cp := *vs
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertVoiceParticipant(ctx context.Context, p *models.VoiceParticipant) error {
	p.ID = f.id()
	p.JoinedAt = f.tick()
	p.LastActivity = p.JoinedAt
	cp := *p
	f.participants[p.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateVoiceParticipant(ctx context.Context, p *models.VoiceParticipant) error {
	cp := *p
	f.participants[p.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteVoiceParticipant(ctx context.Context, id int64) error {
	delete(f.participants, id)
	return nil
}

func (f *fakeStore) ListVoiceParticipants(ctx context.Context, voiceSessionID int64) ([]models.VoiceParticipant, error) {
	var out []models.VoiceParticipant
	for _, p := range f.participants {
		if p.VoiceSessionID == voiceSessionID {
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

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	store.rooms["123456"] = &models.Room{ID: 1, RoomCode: "123456", IsActive: true}
	store.rooms["654321"] = &models.Room{ID: 2, RoomCode: "654321", IsActive: false}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(store, logger), store
}

func guest(id string) models.Identity { return models.GuestIdentity(id) }

func TestCreateSessionSeatsCreator(t *testing.T) {
	svc, _ := newTestService()

	vs, err := svc.CreateSession(context.Background(), "123456", guest("g-1"), "alice")
	require.NoError(t, err)
	assert.Len(t, vs.SessionID, 12)
	assert.True(t, vs.IsActive)

	participants, err := svc.Participants(context.Background(), vs.SessionID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, "alice", participants[0].Nickname)
	assert.True(t, participants[0].IsConnected)
}

func TestCreateSessionRejectsBadRooms(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateSession(context.Background(), "000000", guest("g-1"), "alice")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = svc.CreateSession(context.Background(), "654321", guest("g-1"), "alice")
	assert.ErrorIs(t, err, ErrRoomInactive)
}

func TestJoinIsIdempotentAndBounded(t *testing.T) {
	svc, _ := newTestService()
	vs, err := svc.CreateSession(context.Background(), "123456", guest("g-1"), "alice")
	require.NoError(t, err)

	p2, err := svc.Join(context.Background(), vs.SessionID, guest("g-2"), "bob")
	require.NoError(t, err)

	again, err := svc.Join(context.Background(), vs.SessionID, guest("g-2"), "bob2")
	require.NoError(t, err)
	assert.Equal(t, p2.ID, again.ID, "rejoining returns the existing seat")

	_, err = svc.Join(context.Background(), vs.SessionID, guest("g-3"), "carol")
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), vs.SessionID, guest("g-4"), "dave")
	assert.ErrorIs(t, err, ErrSessionFull)
}

func TestJoinUnknownSession(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Join(context.Background(), "NOSUCHSESSID", guest("g-1"), "alice")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUpdateStatus(t *testing.T) {
	svc, _ := newTestService()
	vs, err := svc.CreateSession(context.Background(), "123456", guest("g-1"), "alice")
	require.NoError(t, err)

	p, err := svc.UpdateStatus(context.Background(), vs.SessionID, guest("g-1"), true, true)
	require.NoError(t, err)
	assert.True(t, p.IsMicOn)
	assert.True(t, p.IsSpeaking)

	_, err = svc.UpdateStatus(context.Background(), vs.SessionID, guest("g-9"), true, false)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestLastLeaverEndsSession(t *testing.T) {
	svc, store := newTestService()
	vs, err := svc.CreateSession(context.Background(), "123456", guest("g-1"), "alice")
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), vs.SessionID, guest("g-2"), "bob")
	require.NoError(t, err)

	require.NoError(t, svc.Leave(context.Background(), vs.SessionID, guest("g-2")))
	stored, err := store.GetVoiceSession(context.Background(), vs.SessionID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	require.NoError(t, svc.Leave(context.Background(), vs.SessionID, guest("g-1")))
	stored, err = store.GetVoiceSession(context.Background(), vs.SessionID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.NotNil(t, stored.EndedAt)

	// The ended session no longer accepts operations.
	_, err = svc.Join(context.Background(), vs.SessionID, guest("g-3"), "carol")
	assert.ErrorIs(t, err, ErrSessionInactive)
}

func TestRecordingLifecycle(t *testing.T) {
	svc, _ := newTestService()
	start := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	now := start
	svc.now = func() time.Time { return now }

	vs, err := svc.CreateSession(context.Background(), "123456", guest("g-1"), "alice")
	require.NoError(t, err)

	_, _, err = svc.StopRecording(context.Background(), vs.SessionID, guest("g-1"))
	assert.ErrorIs(t, err, ErrNotRecording)

	p, err := svc.StartRecording(context.Background(), vs.SessionID, guest("g-1"))
	require.NoError(t, err)
	require.NotNil(t, p.RecordingFilePath)
	assert.Contains(t, *p.RecordingFilePath, "recordings/recording_g-1_")

	_, err = svc.StartRecording(context.Background(), vs.SessionID, guest("g-1"))
	assert.ErrorIs(t, err, ErrAlreadyRecording)

	now = start.Add(42 * time.Second)
	_, duration, err := svc.StopRecording(context.Background(), vs.SessionID, guest("g-1"))
	require.NoError(t, err)
	assert.Equal(t, 42, duration)

	// A finished recording can be replaced by a new one.
	_, err = svc.StartRecording(context.Background(), vs.SessionID, guest("g-1"))
	require.NoError(t, err)
}

func TestGetSessionByRoomCode(t *testing.T) {
	svc, _ := newTestService()
	vs, err := svc.CreateSession(context.Background(), "123456", guest("g-1"), "alice")
	require.NoError(t, err)

	found, err := svc.GetSessionByRoomCode(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, vs.SessionID, found.SessionID)

	_, err = svc.GetSessionByRoomCode(context.Background(), "654321")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
