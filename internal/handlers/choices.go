// internal/handlers/choices.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type choiceRequest struct {
	RoomCode    string `json:"room_code"`
	RoundNumber int    `json:"round_number"`
	Choice      int    `json:"choice"`
	Confidence  int    `json:"confidence"`
	GuestID     string `json:"guest_id"`
}

func (s *Server) SubmitRoundChoiceHandler(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	c, err := s.Rooms.SubmitRoundChoice(r.Context(), req.RoomCode, req.RoundNumber, id, req.Choice)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) SubmitRoundConfidenceHandler(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	c, err := s.Rooms.SubmitRoundConfidence(r.Context(), req.RoomCode, req.RoundNumber, id, req.Confidence)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) SubmitConsensusChoiceHandler(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	c, err := s.Rooms.SubmitConsensusChoice(r.Context(), req.RoomCode, req.RoundNumber, id, req.Choice)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) SubmitConsensusConfidenceHandler(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	id, err := s.identity(r, req.GuestID)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	c, err := s.Rooms.SubmitConsensusConfidence(r.Context(), req.RoomCode, req.RoundNumber, id, req.Confidence)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) ChoiceStatusHandler(w http.ResponseWriter, r *http.Request) {
	roomCode := r.URL.Query().Get("room_code")
	round, err := strconv.Atoi(r.URL.Query().Get("round_number"))
	if err != nil || round < 1 {
		http.Error(w, "invalid round_number", http.StatusBadRequest)
		return
	}
	status, err := s.Rooms.GetChoiceStatus(r.Context(), roomCode, round)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
