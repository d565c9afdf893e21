// internal/handlers/stats.go
package handlers

import (
	"net/http"
	"time"
)

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// VoiceSessionStatsHandler reports the registry's counters for one voice
// session.
func (s *Server) VoiceSessionStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.Registry.Stats(r.PathValue("sessionID"))
	if !ok {
		http.Error(w, "no connections for session", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// AllVoiceStatsHandler reports the registry's counters for every session
// with live connections.
func (s *Server) AllVoiceStatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Registry.AllStats())
}

// PingVoiceSessionHandler probes every live connection of a session.
func (s *Server) PingVoiceSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	delivered := s.Registry.Ping(r.Context(), sessionID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"delivered":  delivered,
	})
}

// SignalingRoomHandler reports the peers registered in a signaling room.
func (s *Server) SignalingRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomCode := r.PathValue("roomCode")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room_code": roomCode,
		"peers":     s.Relay.Peers(roomCode),
	})
}
