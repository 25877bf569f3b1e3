package connection

import (
	"sync"
	"time"

	"github.com/chunkymonkey/pkserver/frame"
	"github.com/chunkymonkey/pkserver/protocolstate"
	"github.com/chunkymonkey/pkserver/registry"
)

// KeepAlive tracks the per-connection liveness state spec.md §3 names:
// the last challenge sent and when, and the last time anything was
// received from the client. A connection is dead if no inbound
// traffic arrives within Timeout, or if a challenge goes unanswered
// before the next one is due.
type KeepAlive struct {
	mu              sync.Mutex
	table           registry.IDTable
	timeout         time.Duration
	interval        time.Duration
	lastChallenge   int64
	challengePending bool
	lastChallengeAt time.Time
	lastInboundAt   time.Time
}

// NewKeepAlive builds a supervisor with the given timeout (spec.md §5
// default 30s) and challenge interval.
func NewKeepAlive(table registry.IDTable, timeout, interval time.Duration) *KeepAlive {
	now := time.Now()
	return &KeepAlive{
		table:         table,
		timeout:       timeout,
		interval:      interval,
		lastInboundAt: now,
	}
}

// NoteInbound records that traffic of any kind was just received,
// resetting the dead-client clock.
func (k *KeepAlive) NoteInbound() {
	k.mu.Lock()
	k.lastInboundAt = time.Now()
	k.mu.Unlock()
}

// NoteChallengeAnswer clears the pending-challenge flag if id matches
// the outstanding challenge, and counts as inbound traffic.
func (k *KeepAlive) NoteChallengeAnswer(id int64) {
	k.mu.Lock()
	if k.challengePending && id == k.lastChallenge {
		k.challengePending = false
	}
	k.lastInboundAt = time.Now()
	k.mu.Unlock()
}

// Dead reports whether this connection should be considered dead as
// of now: no inbound traffic within Timeout, or a challenge still
// unanswered once the challenge interval has elapsed since it was sent.
func (k *KeepAlive) Dead(now time.Time) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if now.Sub(k.lastInboundAt) > k.timeout {
		return true
	}
	if k.challengePending && now.Sub(k.lastChallengeAt) >= k.interval {
		return true
	}
	return false
}

// DueChallenge reports whether a new keep-alive challenge should be
// issued, and if so returns the RawPacket to send, recording it as
// pending.
func (k *KeepAlive) DueChallenge(now time.Time) (frame.RawPacket, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.challengePending || now.Sub(k.lastChallengeAt) < k.interval {
		return frame.RawPacket{}, false
	}
	k.lastChallenge++
	k.challengePending = true
	k.lastChallengeAt = now

	id, ok := k.table.PacketID(registry.StatePlay, registry.Clientbound, "keep_alive")
	if !ok {
		return frame.RawPacket{}, false
	}
	data := protocolstate.EncodeKeepAlive(protocolstate.KeepAlive{ID: k.lastChallenge})
	return frame.RawPacket{ID: id, Data: data}, true
}
