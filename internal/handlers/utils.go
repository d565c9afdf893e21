package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/triadlab/triad/internal/auth"
	"github.com/triadlab/triad/internal/models"
	"github.com/triadlab/triad/internal/room"
	"github.com/triadlab/triad/internal/voice"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// requestToken pulls a JWT from the Authorization header, the auth_token
// cookie, or a token query parameter, in that order. The query form exists
// for websocket clients that cannot set headers.
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if cookie := r.Header.Get("Cookie"); strings.Contains(cookie, "auth_token=") {
		return extractCookieToken(cookie, "auth_token")
	}
	return r.URL.Query().Get("token")
}

// identityFromRequest resolves the caller's identity from a token or a
// guest_id query parameter.
func identityFromRequest(r *http.Request) (models.Identity, error) {
	return auth.ResolveIdentity(requestToken(r), r.URL.Query().Get("guest_id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service error classes onto HTTP statuses:
// validation 400, missing 404, permission 403, state conflicts 409,
// everything else 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case room.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, room.ErrNotFound),
		errors.Is(err, voice.ErrRoomNotFound),
		errors.Is(err, voice.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, room.ErrNotHost),
		errors.Is(err, room.ErrNotParticipant),
		errors.Is(err, voice.ErrNotParticipant):
		http.Error(w, err.Error(), http.StatusForbidden)
	case room.IsConflict(err),
		errors.Is(err, voice.ErrRoomInactive),
		errors.Is(err, voice.ErrSessionInactive),
		errors.Is(err, voice.ErrSessionFull),
		errors.Is(err, voice.ErrAlreadyRecording),
		errors.Is(err, voice.ErrNotRecording):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
