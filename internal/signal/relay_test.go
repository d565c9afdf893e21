// internal/signal/relay_test.go
package signal

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	sent   [][]byte
	closed bool
}

func (f *fakeConn) Send(ctx context.Context, payload []byte) error {
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func (f *fakeConn) lastMessage(t *testing.T) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, f.sent)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(f.sent[len(f.sent)-1], &msg))
	return msg
}

func newTestRelay() *Relay {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRelay(logger)
}

func TestJoinReturnsExistingPeersAndAnnounces(t *testing.T) {
	r := newTestRelay()
	a, b := &fakeConn{}, &fakeConn{}

	others := r.Join(context.Background(), "123456", "peer-a", a)
	assert.Empty(t, others)

	others = r.Join(context.Background(), "123456", "peer-b", b)
	assert.Equal(t, []string{"peer-a"}, others)

	// The newcomer is announced to peers already present, not to itself.
	msg := a.lastMessage(t)
	assert.Equal(t, "peer_joined", msg["type"])
	assert.Equal(t, "peer-b", msg["peer_id"])
	assert.Empty(t, b.sent)
}

func TestRejoinSupersedesPreviousConnection(t *testing.T) {
	r := newTestRelay()
	old, fresh := &fakeConn{}, &fakeConn{}

	r.Join(context.Background(), "123456", "peer-a", old)
	r.Join(context.Background(), "123456", "peer-a", fresh)

	assert.True(t, old.closed)
	assert.Equal(t, []string{"peer-a"}, r.Peers("123456"))

	// A stale disconnect from the superseded connection must not evict
	// the live one.
	r.Leave(context.Background(), "123456", "peer-a", old)
	assert.Equal(t, []string{"peer-a"}, r.Peers("123456"))

	r.Leave(context.Background(), "123456", "peer-a", fresh)
	assert.Empty(t, r.Peers("123456"))
}

func TestDirectedRouteStampsFrom(t *testing.T) {
	r := newTestRelay()
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	r.Join(context.Background(), "123456", "peer-a", a)
	r.Join(context.Background(), "123456", "peer-b", b)
	r.Join(context.Background(), "123456", "peer-c", c)
	a.sent, b.sent, c.sent = nil, nil, nil

	r.Route(context.Background(), "123456", "peer-a", map[string]any{
		"type": "offer",
		"to":   "peer-b",
		"sdp":  "v=0",
	})

	msg := b.lastMessage(t)
	assert.Equal(t, "offer", msg["type"])
	assert.Equal(t, "peer-a", msg["from"])
	assert.Equal(t, "v=0", msg["sdp"])
	assert.Empty(t, a.sent)
	assert.Empty(t, c.sent)
}

func TestRouteToUnknownPeerIsDropped(t *testing.T) {
	r := newTestRelay()
	a := &fakeConn{}
	r.Join(context.Background(), "123456", "peer-a", a)
	a.sent = nil

	r.Route(context.Background(), "123456", "peer-a", map[string]any{
		"type": "candidate",
		"to":   "peer-ghost",
	})

	assert.Empty(t, a.sent)
}

func TestUndirectedRouteBroadcastsToOthers(t *testing.T) {
	r := newTestRelay()
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	r.Join(context.Background(), "123456", "peer-a", a)
	r.Join(context.Background(), "123456", "peer-b", b)
	r.Join(context.Background(), "123456", "peer-c", c)
	a.sent, b.sent, c.sent = nil, nil, nil

	r.Route(context.Background(), "123456", "peer-a", map[string]any{
		"type": "candidate",
		"ice":  "candidate:1",
	})

	assert.Empty(t, a.sent)
	for _, peer := range []*fakeConn{b, c} {
		msg := peer.lastMessage(t)
		assert.Equal(t, "candidate", msg["type"])
		assert.Equal(t, "peer-a", msg["from"])
	}
}

func TestUnknownTypeIsForwardedUnchanged(t *testing.T) {
	r := newTestRelay()
	a, b := &fakeConn{}, &fakeConn{}
	r.Join(context.Background(), "123456", "peer-a", a)
	r.Join(context.Background(), "123456", "peer-b", b)
	b.sent = nil

	r.Route(context.Background(), "123456", "peer-a", map[string]any{
		"type":   "mute_state",
		"muted":  true,
		"custom": "field",
	})

	msg := b.lastMessage(t)
	assert.Equal(t, "mute_state", msg["type"])
	assert.Equal(t, true, msg["muted"])
	assert.Equal(t, "field", msg["custom"])
	assert.Equal(t, "peer-a", msg["from"])
}

func TestLeaveAnnouncesToRemaining(t *testing.T) {
	r := newTestRelay()
	a, b := &fakeConn{}, &fakeConn{}
	r.Join(context.Background(), "123456", "peer-a", a)
	r.Join(context.Background(), "123456", "peer-b", b)
	a.sent = nil

	r.Leave(context.Background(), "123456", "peer-b", b)

	msg := a.lastMessage(t)
	assert.Equal(t, "peer_left", msg["type"])
	assert.Equal(t, "peer-b", msg["peer_id"])
	assert.Equal(t, []string{"peer-a"}, r.Peers("123456"))
}
