// internal/handlers/voice_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/triadlab/triad/internal/middleware"
	"github.com/triadlab/triad/internal/models"
	"github.com/triadlab/triad/internal/registry"
)

// voiceWSMessage is the envelope every inbound voice WS frame uses.
type voiceWSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// VoiceWSHandler is the realtime entry point for a voice session. The
// client authenticates via token or guest_id query parameter; invalid
// credentials close the socket with 1008 before any state is touched.
// After an "init" frame the connection is registered for session
// broadcasts.
func (s *Server) VoiceWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("sessionID")
		nickname := r.URL.Query().Get("nickname")

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"voice"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Log.Warnf("voice ws accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "voice" {
			c.Close(BadSubprotocolError, "client must speak the voice subprotocol")
			return
		}

		id, err := identityFromRequest(r)
		if err != nil {
			s.Log.Warnf("voice ws auth failed for session %s: %v", sessionID, err)
			c.Close(websocket.StatusPolicyViolation, "authentication failed")
			return
		}

		vs, err := s.Voice.GetSession(r.Context(), sessionID)
		if err != nil || !vs.IsActive {
			c.Close(InvalidSessionIDError, "voice session does not exist or is inactive")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := newWSClient(c)
		go conn.writePump(ctx, s.Log)

		middleware.LogWebSocketConnect(s.Log, r.RemoteAddr, r.URL.Path)
		s.Log.Infof("identity %s connected to voice session %s", id, sessionID)

		registered := false
		defer func() {
			middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, r.URL.Path, nil)
			if registered {
				s.Registry.Disconnect(conn)
				s.Registry.BroadcastToSession(context.Background(), sessionID, map[string]interface{}{
					"type":           "participant_event",
					"event":          "leave",
					"participant_id": id.String(),
					"nickname":       nickname,
				})
			}
		}()

		for {
			typ, raw, err := c.Read(ctx)
			if err != nil {
				closeStatus := websocket.CloseStatus(err)
				if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
					s.Log.Infof("voice ws closed normally for %s in session %s", id, sessionID)
				} else if !strings.Contains(err.Error(), "context canceled") {
					s.Log.Warnf("voice ws read error for %s: %v", id, err)
				}
				return
			}
			if typ != websocket.MessageText {
				continue
			}

			var msg voiceWSMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				s.sendWSError(ctx, conn, "invalid JSON format")
				continue
			}

			switch msg.Type {
			case "init":
				if _, err := s.Voice.Join(ctx, sessionID, id, nickname); err != nil {
					s.sendWSError(ctx, conn, err.Error())
					continue
				}
				s.Registry.Connect(ctx, conn, sessionID, registry.Meta{
					ParticipantID: id.String(),
					Nickname:      nickname,
				})
				registered = true
				s.Registry.BroadcastToSession(ctx, sessionID, map[string]interface{}{
					"type":           "participant_event",
					"event":          "join",
					"participant_id": id.String(),
					"nickname":       nickname,
				})

			case "voice_status_update":
				s.handleVoiceStatus(ctx, conn, sessionID, id, nickname, msg.Data)

			case "start_recording":
				p, err := s.Voice.StartRecording(ctx, sessionID, id)
				if err != nil {
					s.sendWSError(ctx, conn, err.Error())
					continue
				}
				s.Registry.BroadcastToSession(ctx, sessionID, map[string]interface{}{
					"type":                "recording_started",
					"participant_id":      id.String(),
					"recording_file_path": p.RecordingFilePath,
				})

			case "stop_recording":
				_, duration, err := s.Voice.StopRecording(ctx, sessionID, id)
				if err != nil {
					s.sendWSError(ctx, conn, err.Error())
					continue
				}
				s.Registry.BroadcastToSession(ctx, sessionID, map[string]interface{}{
					"type":             "recording_stopped",
					"participant_id":   id.String(),
					"duration_seconds": duration,
				})

			case "next_page":
				s.handleNextPage(ctx, conn, sessionID, id, msg.Data)

			default:
				s.sendWSError(ctx, conn, "unknown message type: "+msg.Type)
			}
		}
	}
}

func (s *Server) handleVoiceStatus(ctx context.Context, conn *wsClient, sessionID string, id models.Identity, nickname string, data json.RawMessage) {
	var status struct {
		IsMicOn    bool `json:"is_mic_on"`
		IsSpeaking bool `json:"is_speaking"`
	}
	if err := json.Unmarshal(data, &status); err != nil {
		s.sendWSError(ctx, conn, "invalid voice_status_update payload")
		return
	}
	p, err := s.Voice.UpdateStatus(ctx, sessionID, id, status.IsMicOn, status.IsSpeaking)
	if err != nil {
		s.sendWSError(ctx, conn, err.Error())
		return
	}
	s.Registry.BroadcastToSession(ctx, sessionID, map[string]interface{}{
		"type":           "voice_status",
		"participant_id": id.String(),
		"nickname":       p.Nickname,
		"is_mic_on":      p.IsMicOn,
		"is_speaking":    p.IsSpeaking,
	})
}

func (s *Server) handleNextPage(ctx context.Context, conn *wsClient, sessionID string, id models.Identity, data json.RawMessage) {
	var payload struct {
		Page int `json:"page"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Page < 1 {
		s.sendWSError(ctx, conn, "invalid next_page payload")
		return
	}
	if s.Pages.MarkReady(sessionID, id.String(), payload.Page) {
		s.Registry.BroadcastToSession(ctx, sessionID, map[string]interface{}{
			"type": "page_sync",
			"page": payload.Page,
		})
	}
}

func (s *Server) sendWSError(ctx context.Context, conn *wsClient, msg string) {
	payload, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
	if err := conn.Send(ctx, payload); err != nil {
		s.Log.Debugf("ws error delivery failed: %v", err)
	}
}
