package broker

import (
	"bytes"
	"sync/atomic"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
)

// sessionHook tracks and logs client sessions.
type sessionHook struct {
	mochi.HookBase
	broker    *Broker
	connected atomic.Int64
}

func (h *sessionHook) ID() string {
	return "graylogic-sessions"
}

func (h *sessionHook) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mochi.OnSessionEstablished,
		mochi.OnDisconnect,
	}, []byte{b})
}

// OnSessionEstablished is called after a client's CONNECT is accepted.
func (h *sessionHook) OnSessionEstablished(cl *mochi.Client, _ packets.Packet) {
	n := h.connected.Add(1)
	h.broker.log().Info("mqtt client connected",
		"client_id", cl.ID,
		"remote", cl.Net.Remote,
		"clients", n,
	)
}

// OnDisconnect is called when a client goes away for any reason.
func (h *sessionHook) OnDisconnect(cl *mochi.Client, err error, expire bool) {
	n := h.connected.Add(-1)
	args := []any{"client_id", cl.ID, "clients", n, "expire", expire}
	if err != nil {
		h.broker.log().Warn("mqtt client disconnected", append(args, "error", err)...)
		return
	}
	h.broker.log().Info("mqtt client disconnected", args...)
}
