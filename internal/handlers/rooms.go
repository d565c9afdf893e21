// internal/handlers/rooms.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/triadlab/triad/internal/auth"
	"github.com/triadlab/triad/internal/journal"
	"github.com/triadlab/triad/internal/models"
	"github.com/triadlab/triad/internal/room"
)

// identity resolves the caller from the request token, falling back to a
// guest id supplied in the body or query.
func (s *Server) identity(r *http.Request, bodyGuestID string) (models.Identity, error) {
	guestID := bodyGuestID
	if guestID == "" {
		guestID = r.URL.Query().Get("guest_id")
	}
	return auth.ResolveIdentity(requestToken(r), guestID)
}

func (s *Server) journalEvent(roomCode, eventType string, id models.Identity, payload map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rec := journal.RoomEventRecord{
		RoomCode:      roomCode,
		EventType:     eventType,
		ParticipantID: id.String(),
		Payload:       payload,
	}
	if err := journal.PublishRoomEvent(ctx, rec); err != nil {
		s.Log.Warnf("room event journal failed: %v", err)
	}
}

// resetPages clears page agreement state for the room's active voice
// session. Page marks are tracked per voice session id, so the room code
// has to be resolved to a session first; a room without one has no state
// to clear.
func (s *Server) resetPages(ctx context.Context, roomCode string) {
	vs, err := s.Voice.GetSessionByRoomCode(ctx, roomCode)
	if err != nil {
		return
	}
	s.Pages.Reset(vs.SessionID)
}

type createRoomRequest struct {
	Title               string  `json:"title"`
	Description         *string `json:"description"`
	Topic               string  `json:"topic"`
	Nickname            string  `json:"nickname"`
	CustomRoomCode      string  `json:"custom_room_code"`
	AllowRandomMatching bool    `json:"allow_random_matching"`
	GuestID             string  `json:"guest_id"`
}

// CreateRoomHandler opens a room. The public flag distinguishes the two
// create endpoints.
func (s *Server) CreateRoomHandler(public bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request payload", http.StatusBadRequest)
			return
		}
		id, err := s.identity(r, req.GuestID)
		if err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		rm, err := s.Rooms.CreateRoom(r.Context(), room.CreateRoomParams{
			Title:               req.Title,
			Description:         req.Description,
			Topic:               req.Topic,
			Public:              public,
			AllowRandomMatching: req.AllowRandomMatching,
			CustomRoomCode:      req.CustomRoomCode,
			Creator:             id,
			Nickname:            req.Nickname,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		s.journalEvent(rm.RoomCode, "room_created", id, nil)
		writeJSON(w, http.StatusOK, rm)
	}
}

func (s *Server) ListPublicRoomsHandler(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	rooms, err := s.Rooms.ListPublicRooms(r.Context(), skip, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) ListAvailableRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.Rooms.ListAvailableRooms(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	rm, participants, err := s.Rooms.GetRoom(r.Context(), r.PathValue("roomCode"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room":         rm,
		"participants": participants,
	})
}

type joinRoomRequest struct {
	RoomCode string `json:"room_code"`
	Nickname string `json:"nickname"`
	GuestID  string `json:"guest_id"`
}

func (s *Server) JoinByCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	p, err := s.Rooms.JoinRoom(r.Context(), req.RoomCode, id, req.Nickname)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.journalEvent(req.RoomCode, "participant_joined", id, nil)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) JoinByIDHandler(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseInt(r.PathValue("roomID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	p, err := s.Rooms.JoinRoomByID(r.Context(), roomID, id, req.Nickname)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type roomCodeRequest struct {
	RoomCode string `json:"room_code"`
	GuestID  string `json:"guest_id"`
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	var req roomCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	res, err := s.Rooms.ToggleReady(r.Context(), req.RoomCode, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if res.GameStarting {
		s.journalEvent(req.RoomCode, "game_starting", id, map[string]interface{}{
			"start_time": res.StartTime,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"is_ready":      res.Participant.IsReady,
		"game_starting": res.GameStarting,
		"start_time":    res.StartTime,
		"room":          res.Room,
	})
}

func (s *Server) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req roomCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	res, err := s.Rooms.LeaveRoom(r.Context(), req.RoomCode, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.journalEvent(req.RoomCode, "participant_left", id, map[string]interface{}{
		"remaining_players": res.RemainingPlayers,
		"room_deactivated":  res.RoomDeactivated,
	})
	if res.RoomDeactivated {
		s.resetPages(r.Context(), req.RoomCode)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) ResetRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req roomCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	rm, err := s.Rooms.ResetRoomStatus(r.Context(), req.RoomCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.resetPages(r.Context(), req.RoomCode)
	writeJSON(w, http.StatusOK, rm)
}

func (s *Server) AssignRolesHandler(w http.ResponseWriter, r *http.Request) {
	roomCode := r.PathValue("roomCode")
	assignments, err := s.Rooms.AssignRoles(r.Context(), roomCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room_code":   roomCode,
		"assignments": assignments,
	})
}

func (s *Server) RoleStatusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := s.Rooms.GetRoleStatus(r.Context(), r.PathValue("roomCode"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type aiSelectRequest struct {
	RoomCode string `json:"room_code"`
	AIType   int    `json:"ai_type"`
	AIName   string `json:"ai_name"`
}

func (s *Server) SetAITypeHandler(w http.ResponseWriter, r *http.Request) {
	var req aiSelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	rm, err := s.Rooms.SetAIType(r.Context(), req.RoomCode, req.AIType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"room_code": rm.RoomCode, "ai_type": rm.AIType})
}

func (s *Server) GetAITypeHandler(w http.ResponseWriter, r *http.Request) {
	roomCode := r.URL.Query().Get("room_code")
	aiType, err := s.Rooms.GetAIType(r.Context(), roomCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"room_code": roomCode, "ai_type": aiType})
}

func (s *Server) SetAINameHandler(w http.ResponseWriter, r *http.Request) {
	var req aiSelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	rm, err := s.Rooms.SetAIName(r.Context(), req.RoomCode, req.AIName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"room_code": rm.RoomCode, "ai_name": rm.AIName})
}

func (s *Server) GetAINameHandler(w http.ResponseWriter, r *http.Request) {
	roomCode := r.URL.Query().Get("room_code")
	aiName, err := s.Rooms.GetAIName(r.Context(), roomCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"room_code": roomCode, "ai_name": aiName})
}
