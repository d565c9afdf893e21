// internal/registry/registry.go
package registry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// DefaultFailureThreshold is how many consecutive send failures a
// connection is allowed before it gets evicted. Deliberately tolerant so a
// transient burst of backpressure does not flap connections.
const DefaultFailureThreshold = 12

// Conn is a live client connection as the registry sees it. Send must not
// block indefinitely; implementations back it with a bounded outbound
// queue and report overflow as an error.
type Conn interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// Meta identifies who is behind a connection.
type Meta struct {
	ParticipantID string
	Nickname      string
}

// SessionStats are per-session connection counters.
type SessionStats struct {
	TotalConnections   int `json:"total_connections"`
	CurrentConnections int `json:"current_connections"`
	MaxConcurrent      int `json:"max_concurrent"`
}

type connState struct {
	sessionID   string
	meta        Meta
	failedSends int
}

// Registry multiplexes live connections per session id, tracks their
// health and broadcasts with isolation between connections: one broken
// socket never blocks delivery to the rest. One Registry instance is
// created at startup and handed to the entry points.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]map[Conn]*connState
	conns     map[Conn]*connState
	stats     map[string]*SessionStats
	threshold int
	log       *logrus.Logger
}

func New(logger *logrus.Logger) *Registry {
	return &Registry{
		sessions:  make(map[string]map[Conn]*connState),
		conns:     make(map[Conn]*connState),
		stats:     make(map[string]*SessionStats),
		threshold: DefaultFailureThreshold,
		log:       logger,
	}
}

// Connect registers a connection under a session and sends the connection
// ack. A failed ack is logged but does not abort registration; the
// connection is kept optimistically.
func (r *Registry) Connect(ctx context.Context, conn Conn, sessionID string, meta Meta) {
	r.mu.Lock()
	set, ok := r.sessions[sessionID]
	if !ok {
		set = make(map[Conn]*connState)
		r.sessions[sessionID] = set
	}
	st := &connState{sessionID: sessionID, meta: meta}
	set[conn] = st
	r.conns[conn] = st

	stats, ok := r.stats[sessionID]
	if !ok {
		stats = &SessionStats{}
		r.stats[sessionID] = stats
	}
	stats.TotalConnections++
	stats.CurrentConnections = len(set)
	if stats.CurrentConnections > stats.MaxConcurrent {
		stats.MaxConcurrent = stats.CurrentConnections
	}
	r.mu.Unlock()

	ack, _ := json.Marshal(map[string]any{
		"type":           "connection_established",
		"session_id":     sessionID,
		"participant_id": meta.ParticipantID,
		"nickname":       meta.Nickname,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
	if err := conn.Send(ctx, ack); err != nil {
		r.log.WithFields(logrus.Fields{"session_id": sessionID, "error": err}).Warn("connection ack failed, keeping connection")
	}
}

// Disconnect removes a connection. When a session's last connection goes,
// its counters are dropped entirely.
func (r *Registry) Disconnect(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(conn)
}

func (r *Registry) removeLocked(conn Conn) {
	st, ok := r.conns[conn]
	if !ok {
		return
	}
	delete(r.conns, conn)
	set := r.sessions[st.sessionID]
	delete(set, conn)
	if len(set) == 0 {
		delete(r.sessions, st.sessionID)
		delete(r.stats, st.sessionID)
		return
	}
	if stats, ok := r.stats[st.sessionID]; ok {
		stats.CurrentConnections = len(set)
	}
}

// BroadcastToSession sends a message to every connection in a session. A
// failing connection gets its failure counter bumped (and is evicted past
// the threshold), but delivery to the remaining connections always
// proceeds. Returns how many connections the message reached.
func (r *Registry) BroadcastToSession(ctx context.Context, sessionID string, msg any) int {
	payload, err := json.Marshal(msg)
	if err != nil {
		r.log.WithField("error", err).Warn("broadcast marshal failed")
		return 0
	}

	r.mu.Lock()
	targets := make([]Conn, 0, len(r.sessions[sessionID]))
	for conn := range r.sessions[sessionID] {
		targets = append(targets, conn)
	}
	r.mu.Unlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(ctx, payload); err != nil {
			r.recordFailure(conn, err)
			continue
		}
		r.recordSuccess(conn)
		delivered++
	}
	return delivered
}

// SendToOne sends a message to a single connection with the same failure
// accounting as a broadcast.
func (r *Registry) SendToOne(ctx context.Context, conn Conn, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := conn.Send(ctx, payload); err != nil {
		r.recordFailure(conn, err)
		return err
	}
	r.recordSuccess(conn)
	return nil
}

// Ping sends a liveness probe to every connection of a session. Used by
// the health endpoint; the protocol itself never depends on it.
func (r *Registry) Ping(ctx context.Context, sessionID string) int {
	return r.BroadcastToSession(ctx, sessionID, map[string]any{
		"type":      "ping",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Stats returns a snapshot of a session's counters.
func (r *Registry) Stats(sessionID string) (SessionStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.stats[sessionID]
	if !ok {
		return SessionStats{}, false
	}
	return *stats, true
}

// AllStats returns a snapshot of every session's counters.
func (r *Registry) AllStats() map[string]SessionStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]SessionStats, len(r.stats))
	for sid, stats := range r.stats {
		out[sid] = *stats
	}
	return out
}

// FailedSends returns a connection's consecutive-failure count.
func (r *Registry) FailedSends(conn Conn) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.conns[conn]
	if !ok {
		return 0, false
	}
	return st.failedSends, true
}

// Lookup returns the session and metadata a connection is registered
// under.
func (r *Registry) Lookup(conn Conn) (string, Meta, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.conns[conn]
	if !ok {
		return "", Meta{}, false
	}
	return st.sessionID, st.meta, true
}

func (r *Registry) recordSuccess(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.conns[conn]; ok {
		st.failedSends = 0
	}
}

func (r *Registry) recordFailure(conn Conn, sendErr error) {
	r.mu.Lock()
	st, ok := r.conns[conn]
	if !ok {
		r.mu.Unlock()
		return
	}
	st.failedSends++
	evict := st.failedSends >= r.threshold
	// A close frame from the peer means the connection is gone for good,
	// no point waiting out the threshold.
	if websocket.CloseStatus(sendErr) != -1 {
		evict = true
	}
	sessionID := st.sessionID
	failures := st.failedSends
	if evict {
		r.removeLocked(conn)
	}
	r.mu.Unlock()

	if evict {
		r.log.WithFields(logrus.Fields{
			"session_id": sessionID, "failed_sends": failures, "error": sendErr,
		}).Warn("evicting unhealthy connection")
		_ = conn.Close()
		return
	}
	r.log.WithFields(logrus.Fields{
		"session_id": sessionID, "failed_sends": failures, "error": sendErr,
	}).Debug("send failed, keeping connection")
}
