// internal/handlers/signaling_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/triadlab/triad/internal/middleware"
	"github.com/triadlab/triad/internal/room"
)

// SignalingWSHandler relays WebRTC signaling between the peers of a room.
// Credentials are checked before any relay state is touched; an invalid
// token closes the socket with 1008. The first frame must be a join with
// the caller's peer id, answered with the ids already present.
func (s *Server) SignalingWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomCode := r.PathValue("roomCode")

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"signaling"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Log.Warnf("signaling ws accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "signaling" {
			c.Close(BadSubprotocolError, "client must speak the signaling subprotocol")
			return
		}

		id, err := identityFromRequest(r)
		if err != nil {
			s.Log.Warnf("signaling ws auth failed for room %s: %v", roomCode, err)
			c.Close(websocket.StatusPolicyViolation, "authentication failed")
			return
		}

		rm, _, err := s.Rooms.GetRoom(r.Context(), roomCode)
		if err != nil {
			if errors.Is(err, room.ErrNotFound) {
				c.Close(InvalidRoomCodeError, "room does not exist")
			} else {
				c.Close(websocket.StatusInternalError, "room lookup failed")
			}
			return
		}
		if !rm.IsActive {
			c.Close(InvalidRoomCodeError, "room is inactive")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := newWSClient(c)
		go conn.writePump(ctx, s.Log)

		middleware.LogWebSocketConnect(s.Log, r.RemoteAddr, r.URL.Path)
		s.Log.Infof("identity %s connected to signaling for room %s", id, roomCode)

		peerID := ""
		defer func() {
			middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, r.URL.Path, nil)
			if peerID != "" {
				s.Relay.Leave(context.Background(), roomCode, peerID, conn)
			}
		}()

		for {
			typ, raw, err := c.Read(ctx)
			if err != nil {
				closeStatus := websocket.CloseStatus(err)
				if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
					s.Log.Infof("signaling ws closed normally for peer %s in room %s", peerID, roomCode)
				} else if !strings.Contains(err.Error(), "context canceled") {
					s.Log.Warnf("signaling ws read error for peer %s: %v", peerID, err)
				}
				return
			}
			if typ != websocket.MessageText {
				continue
			}

			var msg map[string]interface{}
			if err := json.Unmarshal(raw, &msg); err != nil {
				s.sendWSError(ctx, conn, "invalid JSON format")
				continue
			}
			msgType, _ := msg["type"].(string)

			if peerID == "" {
				if msgType != "join" {
					s.sendWSError(ctx, conn, "join required before signaling")
					continue
				}
				joinID, _ := msg["peer_id"].(string)
				if joinID == "" {
					s.sendWSError(ctx, conn, "join requires a peer_id")
					continue
				}
				peerID = joinID
				others := s.Relay.Join(ctx, roomCode, peerID, conn)
				peersMsg, _ := json.Marshal(map[string]interface{}{
					"type":  "peers",
					"peers": others,
				})
				if err := conn.Send(ctx, peersMsg); err != nil {
					s.Log.Debugf("peers delivery failed for %s: %v", peerID, err)
				}
				continue
			}

			if msgType == "join" {
				// Changing peer id mid-connection is not supported.
				s.sendWSError(ctx, conn, "already joined")
				continue
			}

			s.Relay.Route(ctx, roomCode, peerID, msg)
		}
	}
}
