package battle

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/andersfylling/tango/internal/emulator"
	"github.com/andersfylling/tango/internal/input"
	"github.com/andersfylling/tango/internal/protocol"
	"github.com/andersfylling/tango/internal/shadow"
)

// Round is the durable state of one round on the primary: the tick
// counter, the committed snapshot anchoring rollback, and the input
// queue pairing local inputs with authoritative remote ones.
type Round struct {
	m *Match

	number           uint32
	localPlayerIndex int

	currentTick   uint32
	nextLocalTick uint32

	committedTick    uint32
	committedState   []byte
	shadowFirstState []byte

	iq *input.PairQueue

	// lastInput is the pair for the live tick; the send-and-receive
	// traps inject its rx packets into emulator memory
	lastInput *input.Pair

	// lastRemoteInput seeds the prediction chain for ticks whose real
	// remote input has not arrived yet
	lastRemoteInput input.Input

	latestRemoteTick uint32

	txQueue []txEntry

	pendingRemote []protocol.Input
}

type txEntry struct {
	tick   uint32
	packet []byte
}

// Number returns the round's ordinal within the match
func (r *Round) Number() uint32 { return r.number }

// LocalPlayerIndex is the local player's slot
func (r *Round) LocalPlayerIndex() int { return r.localPlayerIndex }

// RemotePlayerIndex is the peer's slot
func (r *Round) RemotePlayerIndex() int { return 1 - r.localPlayerIndex }

// CurrentTick returns the battle-frame counter
func (r *Round) CurrentTick() uint32 { return r.currentTick }

// IncrementCurrentTick advances the round by one tick. Called from the
// post-input trap, exactly once per game-advanced frame.
func (r *Round) IncrementCurrentTick() { r.currentTick++ }

// HasCommittedState reports whether the rollback anchor exists yet
func (r *Round) HasCommittedState() bool { return r.committedState != nil }

// CommittedTick is the tick of the current rollback anchor
func (r *Round) CommittedTick() uint32 { return r.committedTick }

// CommittedChecksum fingerprints the committed snapshot for
// determinism monitoring
func (r *Round) CommittedChecksum() uint64 {
	if r.committedState == nil {
		return 0
	}
	return xxhash.Sum64(r.committedState)
}

// Dtick is the local tick minus the newest remote tick seen; positive
// means we lead the peer
func (r *Round) Dtick() int32 {
	return int32(r.nextLocalTick) - int32(r.latestRemoteTick)
}

// QueueTx records the tx packet the game generated for an upcoming
// tick, so it can ride along with the local input for that tick
func (r *Round) QueueTx(tick uint32, packet []byte) {
	if n := len(r.txQueue); n > 0 && r.txQueue[n-1].tick == tick {
		r.txQueue[n-1].packet = packet
		return
	}
	r.txQueue = append(r.txQueue, txEntry{tick: tick, packet: packet})
}

// takeTxFor returns the tx packet queued for exactly this tick,
// dropping stale entries. The entry for tick t is queued during frame
// t-1, so it exists by the time tick t is sampled.
func (r *Round) takeTxFor(tick uint32) ([]byte, bool) {
	for len(r.txQueue) > 0 && r.txQueue[0].tick < tick {
		r.txQueue = r.txQueue[1:]
	}
	if len(r.txQueue) > 0 && r.txQueue[0].tick == tick {
		packet := r.txQueue[0].packet
		r.txQueue = r.txQueue[1:]
		return packet, true
	}
	return nil, false
}

// PeekLastInput returns the pair for the live tick, if any
func (r *Round) PeekLastInput() (input.Pair, bool) {
	if r.lastInput == nil {
		return input.Pair{}, false
	}
	return *r.lastInput, true
}

// SetFirstCommittedState anchors the round: the primary's save state
// at tick zero plus the shadow's matching anchor. The first local
// inputs inside the delay window are synthesized here, identically on
// both sides, and sent so the peer can pair them.
func (r *Round) SetFirstCommittedState(state, shadowState []byte) error {
	r.committedState = state
	r.committedTick = r.currentTick
	r.shadowFirstState = shadowState

	placeholder := r.m.adapter.PlaceholderRx()
	for i := uint32(0); i < r.m.cfg.Delay; i++ {
		ip := input.Input{
			LocalTick: r.committedTick + i,
			Joyflags:  0,
			Rx:        placeholder,
		}
		if !r.iq.AddLocal(ip) {
			return fmt.Errorf("queue rejected delay prefill at tick %d", ip.LocalTick)
		}
		if err := r.m.sender.SendInput(r.number, ip.LocalTick, ip.Joyflags, ip.Rx); err != nil {
			return fmt.Errorf("send prefill input: %w", err)
		}
	}
	r.nextLocalTick = r.committedTick + r.m.cfg.Delay

	r.lastRemoteInput = input.Input{Rx: placeholder}

	// Inputs may already have arrived from a faster peer.
	return r.drainPendingRemote()
}

// AddLocalInputAndFastforward runs one primary frame of the rollback
// algorithm: resolve and send the local input for the next tick once
// the game has generated its tx packet for it, then either
// fastforward from the committed state over all known pairs, or (for
// games without fastforward support) run lockstep and wait for the
// real pair.
//
// It returns false when the match must be aborted: the delay window
// overflowed, a desync was detected, or the match is shutting down.
// The caller holds the round state lock.
func (r *Round) AddLocalInputAndFastforward(core emulator.Core, joyflags uint16) bool {
	resolved := false

	localTick := r.nextLocalTick
	if tx, ok := r.takeTxFor(localTick); ok {
		ip := input.Input{
			LocalTick:  localTick,
			RemoteTick: r.latestRemoteTick,
			Joyflags:   joyflags,
			Rx:         tx,
		}
		if !r.iq.AddLocal(ip) {
			r.m.log.Error().Uint32("tick", localTick).Msg("local input queue overflow")
			return false
		}
		r.nextLocalTick++
		resolved = true

		if err := r.m.sender.SendInput(r.number, ip.LocalTick, ip.Joyflags, ip.Rx); err != nil {
			r.m.setError(fmt.Errorf("send local input: %w", err))
			return false
		}

		// A faster peer may have inputs waiting on this local tick.
		if err := r.drainPendingRemote(); err != nil {
			r.m.setError(err)
			return false
		}
	}

	if r.m.adapter.SupportsFastforward() {
		if !resolved {
			// Warm-up: the game has not generated a tx packet for the
			// next tick yet, so there is nothing new to replay.
			return true
		}
		return r.fastforward(core)
	}
	return r.lockstep(core)
}

// fastforward replays from the committed snapshot over every pairable
// tick plus a predicted tail, then swaps the dirty state into the
// live core
func (r *Round) fastforward(core emulator.Core) bool {
	pairs, left := r.iq.ConsumeAndPeekLocal()

	ff, err := r.m.newFastforwarder()
	if err != nil {
		r.m.setError(fmt.Errorf("create fastforwarder: %w", err))
		return false
	}

	res, err := ff.Fastforward(
		r.committedState,
		r.committedTick,
		r.localPlayerIndex,
		pairs,
		r.lastRemoteInput,
		left,
	)
	if err != nil {
		r.m.setError(fmt.Errorf("fastforward: %w", err))
		return false
	}

	if err := core.LoadState(res.DirtyState); err != nil {
		r.m.setError(fmt.Errorf("load dirty state: %w", err))
		return false
	}

	r.committedState = res.CommittedState
	r.committedTick = res.CommittedTick
	r.lastRemoteInput = res.LastRemoteInput
	r.lastInput = &res.LastPair
	return true
}

// lockstep consumes the real pair for the current tick, blocking
// until the peer's input arrives. Used when the adapter has no
// fastforwarder hooks. Pairs older than the current tick belong to
// the handshake window and are discarded.
func (r *Round) lockstep(core emulator.Core) bool {
	for {
		pair, ok := r.iq.ConsumeOne()
		if ok {
			if pair.Local.LocalTick < r.currentTick {
				continue
			}
			if pair.Local.LocalTick != r.currentTick {
				r.m.setError(fmt.Errorf(
					"lockstep: input tick != in battle tick: %d != %d",
					pair.Local.LocalTick, r.currentTick,
				))
				return false
			}
			r.lastInput = &pair
			core.SetGPR(4, int32(uint32(pair.Local.Joyflags)|0xfc00))
			return true
		}

		if r.m.stopping() {
			return false
		}

		// The pair for this tick has not arrived; sleep on the round
		// state condition until the receive loop feeds the queue.
		r.m.cond.Wait()

		if r.m.roundState.Round != r {
			return false
		}
	}
}

// onRemoteInput buffers a wire input and drains everything that can be
// paired. Each drained input passes through the shadow, which replaces
// the peer-claimed rx with the authoritative one its game generated.
func (r *Round) onRemoteInput(in protocol.Input) error {
	r.pendingRemote = append(r.pendingRemote, in)
	return r.drainPendingRemote()
}

func (r *Round) drainPendingRemote() error {
	for len(r.pendingRemote) > 0 {
		if !r.HasCommittedState() {
			// The shadow has no round mirror until both anchors are
			// committed; hold everything until then.
			return nil
		}

		in := r.pendingRemote[0]

		local, ok := r.iq.PeekLocal(in.Tick)
		if !ok {
			// The peer is ahead of our sampling; wait for the local
			// input at that tick to exist.
			return nil
		}

		pair := input.Pair{
			Local: local,
			Remote: input.Input{
				LocalTick:  in.Tick,
				RemoteTick: in.Tick,
				Joyflags:   in.Joyflags,
				Rx:         in.Rx,
			},
		}

		out := pair
		if in.Tick > 0 {
			// Everything past the synthesized first tick goes through
			// the shadow so the rx packet is the one the opponent's
			// game actually generated, not what the peer claims.
			var err error
			out, err = r.m.shadow.ApplyInput(pair)
			if errors.Is(err, shadow.ErrRoundEnded) {
				r.pendingRemote = nil
				return nil
			}
			if err != nil {
				return fmt.Errorf("shadow apply input: %w", err)
			}
		}

		if !r.iq.AddRemote(out.Remote) {
			return fmt.Errorf("remote input at tick %d outpaced local sampling", in.Tick)
		}
		if in.Tick > r.latestRemoteTick {
			r.latestRemoteTick = in.Tick
		}

		r.pendingRemote = r.pendingRemote[1:]
		r.m.cond.Broadcast()
	}
	return nil
}
