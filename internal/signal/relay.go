// internal/signal/relay.go
package signal

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Conn is a signaling client connection. Mirrors the registry's contract.
type Conn interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// Relay is a WebRTC signaling message router. It keeps one peer directory
// per room and forwards offers, answers and ICE candidates between peers
// without ever touching media. Peers are keyed by caller-supplied ids;
// reconnecting under the same id supersedes the previous connection.
type Relay struct {
	mu    sync.Mutex
	rooms map[string]map[string]Conn
	log   *logrus.Logger
}

func NewRelay(logger *logrus.Logger) *Relay {
	return &Relay{
		rooms: make(map[string]map[string]Conn),
		log:   logger,
	}
}

// Join registers a peer in a room's directory and returns the ids of the
// peers already present. The newcomer is announced to everyone else with
// a peer_joined message. Joining with an id that is already taken
// replaces the old connection (last write wins) and the superseded
// connection is closed.
func (r *Relay) Join(ctx context.Context, roomCode, peerID string, conn Conn) []string {
	r.mu.Lock()
	peers, ok := r.rooms[roomCode]
	if !ok {
		peers = make(map[string]Conn)
		r.rooms[roomCode] = peers
	}
	prev := peers[peerID]
	peers[peerID] = conn

	others := make([]string, 0, len(peers)-1)
	targets := make(map[string]Conn, len(peers)-1)
	for id, c := range peers {
		if id == peerID {
			continue
		}
		others = append(others, id)
		targets[id] = c
	}
	r.mu.Unlock()

	if prev != nil && prev != conn {
		r.log.WithFields(logrus.Fields{"room_code": roomCode, "peer_id": peerID}).Info("peer rejoined, superseding previous connection")
		_ = prev.Close()
	}

	announce, _ := json.Marshal(map[string]any{
		"type":    "peer_joined",
		"peer_id": peerID,
	})
	for id, c := range targets {
		if err := c.Send(ctx, announce); err != nil {
			r.log.WithFields(logrus.Fields{"room_code": roomCode, "peer_id": id, "error": err}).Debug("peer_joined delivery failed")
		}
	}
	return others
}

// Leave removes a peer from the directory and tells the remaining peers.
// It is a no-op when the peer on record is not this connection anymore
// (the slot was superseded by a reconnect), so a stale disconnect never
// evicts a live peer.
func (r *Relay) Leave(ctx context.Context, roomCode, peerID string, conn Conn) {
	r.mu.Lock()
	peers, ok := r.rooms[roomCode]
	if !ok || peers[peerID] != conn {
		r.mu.Unlock()
		return
	}
	delete(peers, peerID)
	if len(peers) == 0 {
		delete(r.rooms, roomCode)
	}
	targets := make(map[string]Conn, len(peers))
	for id, c := range peers {
		targets[id] = c
	}
	r.mu.Unlock()

	announce, _ := json.Marshal(map[string]any{
		"type":    "peer_left",
		"peer_id": peerID,
	})
	for id, c := range targets {
		if err := c.Send(ctx, announce); err != nil {
			r.log.WithFields(logrus.Fields{"room_code": roomCode, "peer_id": id, "error": err}).Debug("peer_left delivery failed")
		}
	}
}

// Route forwards a signaling message from a peer. The sender's id is
// stamped into the message as "from" before forwarding. When the message
// carries a "to" field it goes to that single peer (silently dropped when
// the target is unknown); otherwise it is broadcast to every other peer
// in the room. Message types the relay does not recognize are forwarded
// unchanged, which lets clients evolve their signaling vocabulary without
// a server change.
func (r *Relay) Route(ctx context.Context, roomCode, peerID string, msg map[string]any) {
	msg["from"] = peerID
	payload, err := json.Marshal(msg)
	if err != nil {
		r.log.WithField("error", err).Warn("signaling marshal failed")
		return
	}

	to, _ := msg["to"].(string)

	r.mu.Lock()
	peers := r.rooms[roomCode]
	var targets map[string]Conn
	if to != "" {
		targets = make(map[string]Conn, 1)
		if c, ok := peers[to]; ok {
			targets[to] = c
		}
	} else {
		targets = make(map[string]Conn, len(peers))
		for id, c := range peers {
			if id == peerID {
				continue
			}
			targets[id] = c
		}
	}
	r.mu.Unlock()

	for id, c := range targets {
		if err := c.Send(ctx, payload); err != nil {
			r.log.WithFields(logrus.Fields{"room_code": roomCode, "peer_id": id, "error": err}).Debug("signaling delivery failed")
		}
	}
}

// Peers returns the ids currently registered in a room.
func (r *Relay) Peers(roomCode string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.rooms[roomCode]))
	for id := range r.rooms[roomCode] {
		out = append(out, id)
	}
	return out
}
