// internal/handlers/voice.go
package handlers

import (
	"encoding/json"
	"net/http"
)

type voiceSessionRequest struct {
	RoomCode string `json:"room_code"`
	Nickname string `json:"nickname"`
	GuestID  string `json:"guest_id"`
}

func (s *Server) CreateVoiceSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req voiceSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	vs, err := s.Voice.CreateSession(r.Context(), req.RoomCode, id, req.Nickname)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

func (s *Server) GetVoiceSessionHandler(w http.ResponseWriter, r *http.Request) {
	vs, err := s.Voice.GetSession(r.Context(), r.PathValue("sessionID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	participants, err := s.Voice.Participants(r.Context(), vs.SessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":      vs,
		"participants": participants,
	})
}

func (s *Server) GetVoiceSessionByRoomHandler(w http.ResponseWriter, r *http.Request) {
	vs, err := s.Voice.GetSessionByRoomCode(r.Context(), r.PathValue("roomCode"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

func (s *Server) JoinVoiceSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req voiceSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	p, err := s.Voice.Join(r.Context(), r.PathValue("sessionID"), id, req.Nickname)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type voiceStatusRequest struct {
	IsMicOn    bool   `json:"is_mic_on"`
	IsSpeaking bool   `json:"is_speaking"`
	GuestID    string `json:"guest_id"`
}

func (s *Server) UpdateVoiceStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req voiceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	p, err := s.Voice.UpdateStatus(r.Context(), r.PathValue("sessionID"), id, req.IsMicOn, req.IsSpeaking)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) LeaveVoiceSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req voiceSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	sessionID := r.PathValue("sessionID")
	if err := s.Voice.Leave(r.Context(), sessionID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	// The last leaver ends the session; its page marks go with it.
	if vs, err := s.Voice.GetSession(r.Context(), sessionID); err == nil && !vs.IsActive {
		s.Pages.Reset(sessionID)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"left": true})
}

func (s *Server) StartRecordingHandler(w http.ResponseWriter, r *http.Request) {
	var req voiceSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	p, err := s.Voice.StartRecording(r.Context(), r.PathValue("sessionID"), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recording_file_path":  p.RecordingFilePath,
		"recording_started_at": p.RecordingStarted,
	})
}

func (s *Server) StopRecordingHandler(w http.ResponseWriter, r *http.Request) {
	var req voiceSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	p, duration, err := s.Voice.StopRecording(r.Context(), r.PathValue("sessionID"), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recording_file_path": p.RecordingFilePath,
		"duration_seconds":    duration,
	})
}
