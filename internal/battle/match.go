// Package battle implements the match and round state machines at the
// heart of the rollback netplay core.
package battle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/andersfylling/tango/internal/emulator"
	"github.com/andersfylling/tango/internal/fastforwarder"
	"github.com/andersfylling/tango/internal/input"
	"github.com/andersfylling/tango/internal/network"
	"github.com/andersfylling/tango/internal/protocol"
	"github.com/andersfylling/tango/internal/rng"
	"github.com/andersfylling/tango/internal/shadow"
)

// ErrAborted means the match was torn down deliberately, either by
// the facade or because an invariant broke
var ErrAborted = errors.New("match aborted")

// Adapter is the per-game surface the match consumes. Concrete
// adapters live in the game package and satisfy this implicitly.
type Adapter interface {
	shadow.Hooks
	fastforwarder.Hooks

	// PlaceholderRx is the rx packet used before either side has seen
	// a real one
	PlaceholderRx() []byte

	// SupportsFastforward reports whether the adapter ships
	// fastforwarder traps. Without them the round runs lockstep.
	SupportsFastforward() bool

	// PrimaryTraps returns the trap family for the user-visible core
	PrimaryTraps(joyflags *atomic.Uint32, facade *Facade) []emulator.Trap

	// ReplaceOpponentName is an optional cosmetic
	ReplaceOpponentName(core emulator.Core, name string)
}

// Config holds per-match settings
type Config struct {
	// Delay is the input delay window in ticks
	Delay uint32

	// QueueLength bounds how far local sampling may lead remote input
	QueueLength int

	// MatchType is the game-specific battle configuration
	MatchType [2]uint8

	// IsOfferer is true on the side whose SDP offer was accepted; it
	// breaks every symmetric tie
	IsOfferer bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Delay:       3,
		QueueLength: 60,
	}
}

// RoundState is the mutable round bookkeeping guarded by the match's
// round state lock
type RoundState struct {
	Round      *Round
	LastResult *Result
}

// Status is a point-in-time view of the match for monitoring
type Status struct {
	RoundNumber       uint32
	CurrentTick       uint32
	CommittedTick     uint32
	CommittedChecksum uint64
	Dtick             int32
	LocalLead         int
	RoundsPlayed      uint32
	LastResult        string
}

// Match owns the shared RNG, the shadow, and the current round, and
// arbitrates the round lifecycle against packets from the peer.
type Match struct {
	log     zerolog.Logger
	sender  *network.Sender
	adapter Adapter
	cfg     Config

	rngMu sync.Mutex
	rng   *rng.Rng

	mu         sync.Mutex
	cond       *sync.Cond
	roundState RoundState

	shadow *shadow.Shadow

	// newCore builds the ephemeral core backing a fastforwarder run
	newCore func() (emulator.Core, error)

	roundsPlayed uint32

	// pendingPreRound holds inputs that arrived before the local
	// round-start trap fired
	pendingPreRound []protocol.Input

	errMu sync.Mutex
	err   error

	ended    atomic.Bool
	aborted  atomic.Bool
	canceled atomic.Bool
	cancel   context.CancelFunc

	onPong func(protocol.Pong)
}

// New creates a match. The shadow is not stepped here: the match
// advances it on demand, from the primary's traps and the receive loop.
func New(
	cfg Config,
	seed rng.Seed,
	sender *network.Sender,
	adapter Adapter,
	sh *shadow.Shadow,
	newCore func() (emulator.Core, error),
	log zerolog.Logger,
) *Match {
	m := &Match{
		log:     log.With().Str("component", "match").Logger(),
		sender:  sender,
		adapter: adapter,
		cfg:     cfg,
		rng:     rng.New(seed),
		shadow:  sh,
		newCore: newCore,
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// SetOnPong registers the latency callback invoked for every Pong
func (m *Match) SetOnPong(fn func(protocol.Pong)) { m.onPong = fn }

// IsOfferer reports the local signaling role
func (m *Match) IsOfferer() bool { return m.cfg.IsOfferer }

// MatchType returns the negotiated match type
func (m *Match) MatchType() [2]uint8 { return m.cfg.MatchType }

// WithRng runs fn while holding the shared RNG lock. Never taken
// together with the round state lock.
func (m *Match) WithRng(fn func(*rng.Rng)) {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	fn(m.rng)
}

// WithRoundState runs fn while holding the round state lock
func (m *Match) WithRoundState(fn func(*RoundState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.roundState)
}

// Run consumes packets from the peer until the channel fails, the
// context is canceled, or the match ends. Cancellation is not an
// error.
func (m *Match) Run(ctx context.Context, receiver *network.Receiver) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	defer cancel()
	defer m.cond.Broadcast()

	// Cancellation must wake lockstep waiters sleeping on the round
	// state condition.
	stop := context.AfterFunc(ctx, func() {
		m.canceled.Store(true)
		m.cond.Broadcast()
	})
	defer stop()

	for {
		if err := m.Err(); err != nil {
			return err
		}
		if m.ended.Load() {
			return nil
		}

		p, err := receiver.Next()
		if err != nil {
			if ctx.Err() != nil || m.ended.Load() {
				return nil
			}
			if e := m.Err(); e != nil {
				return e
			}
			return fmt.Errorf("receive: %w", err)
		}

		switch p := p.(type) {
		case protocol.Ping:
			if err := m.sender.Send(protocol.Pong{Timestamp: p.Timestamp}); err != nil {
				return fmt.Errorf("send pong: %w", err)
			}
		case protocol.Pong:
			if m.onPong != nil {
				m.onPong(p)
			}
		case protocol.Input:
			if err := m.handleRemoteInput(p); err != nil {
				m.setError(err)
				return err
			}
		default:
			err := fmt.Errorf("unexpected packet during match: %T", p)
			m.setError(err)
			return err
		}
	}
}

func (m *Match) handleRemoteInput(in protocol.Input) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	round := m.roundState.Round
	if round == nil {
		// The trap that starts our round has not fired yet; the peer
		// can legitimately be a few frames ahead.
		m.log.Debug().Uint32("tick", in.Tick).Msg("input before round start, buffering")
		m.pendingPreRound = append(m.pendingPreRound, in)
		return nil
	}

	if in.RoundNumber != round.number {
		m.log.Debug().
			Uint32("round", in.RoundNumber).
			Uint32("current", round.number).
			Msg("dropping input for wrong round")
		return nil
	}

	return round.onRemoteInput(in)
}

// StartRound creates a fresh round. Called from the round-start trap
// on the primary.
func (m *Match) StartRound() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.roundState.Round != nil {
		return errors.New("round already in progress")
	}

	localPlayerIndex := 1
	if m.cfg.IsOfferer {
		localPlayerIndex = 0
	}

	round := &Round{
		m:                m,
		number:           m.roundsPlayed,
		localPlayerIndex: localPlayerIndex,
		iq:               input.NewPairQueue(m.cfg.QueueLength),
	}
	m.roundState.Round = round
	m.roundState.LastResult = nil

	m.log.Info().
		Uint32("round", round.number).
		Int("local_player_index", localPlayerIndex).
		Msg("round started")

	// Drain anything the peer sent before our round existed.
	pending := m.pendingPreRound
	m.pendingPreRound = nil
	for _, in := range pending {
		if in.RoundNumber != round.number {
			continue
		}
		if err := round.onRemoteInput(in); err != nil {
			return err
		}
	}
	return nil
}

// SetLastResult records the outcome read by the round-end comparison
// trap
func (m *Match) SetLastResult(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roundState.LastResult = &r
}

// EndRound tears down the current round
func (m *Match) EndRound() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	round := m.roundState.Round
	if round == nil {
		return nil
	}

	result := "unknown"
	if m.roundState.LastResult != nil {
		result = m.roundState.LastResult.String()
	}
	m.log.Info().
		Uint32("round", round.number).
		Uint32("ticks", round.currentTick).
		Str("result", result).
		Msg("round ended")

	m.roundsPlayed++
	m.roundState.Round = nil
	m.cond.Broadcast()
	return nil
}

// AdvanceShadowUntilFirstCommittedState blocks until the shadow has
// captured its own round anchor
func (m *Match) AdvanceShadowUntilFirstCommittedState() ([]byte, error) {
	return m.shadow.AdvanceUntilFirstCommittedState()
}

// AdvanceShadowUntilRoundEnd blocks until the shadow's round mirror is
// torn down
func (m *Match) AdvanceShadowUntilRoundEnd() error {
	return m.shadow.AdvanceUntilRoundEnd()
}

// RoundsPlayed returns how many rounds have completed
func (m *Match) RoundsPlayed() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roundsPlayed
}

// Status captures a monitoring snapshot
func (m *Match) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{RoundsPlayed: m.roundsPlayed}
	if m.roundState.LastResult != nil {
		s.LastResult = m.roundState.LastResult.String()
	}
	if r := m.roundState.Round; r != nil {
		s.RoundNumber = r.number
		s.CurrentTick = r.currentTick
		s.CommittedTick = r.committedTick
		s.CommittedChecksum = r.CommittedChecksum()
		s.Dtick = r.Dtick()
		s.LocalLead = r.iq.LocalLead()
	}
	return s
}

// newFastforwarder builds an ephemeral fastforwarder for one rollback
func (m *Match) newFastforwarder() (*fastforwarder.Fastforwarder, error) {
	core, err := m.newCore()
	if err != nil {
		return nil, err
	}
	return fastforwarder.New(core, m.adapter), nil
}

// SetError records a fatal error from a trap handler; the run loop
// surfaces it at its next checkpoint
func (m *Match) SetError(err error) { m.setError(err) }

// setError records the first fatal error; the run loop surfaces it at
// its next checkpoint
func (m *Match) setError(err error) {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	if m.err == nil {
		m.err = err
	}
}

// Err reports the error slot, folding in the shadow's own slot
func (m *Match) Err() error {
	if err := m.shadow.State().Err(); err != nil {
		return err
	}
	m.errMu.Lock()
	defer m.errMu.Unlock()
	return m.err
}

// Abort tears the match down because an invariant broke. The graceful
// internal variant of cancellation.
func (m *Match) Abort() {
	if m.aborted.Swap(true) {
		return
	}
	m.setError(ErrAborted)
	m.ended.Store(true)
	if m.cancel != nil {
		m.cancel()
	}
	m.cond.Broadcast()
	m.log.Warn().Msg("match aborted")
}

// End finishes the match normally. Called from the match-end trap.
func (m *Match) End() {
	if m.ended.Swap(true) {
		return
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.cond.Broadcast()
	m.log.Info().Uint32("rounds", m.RoundsPlayed()).Msg("match ended")
}

// Ended reports whether the match has concluded one way or the other
func (m *Match) Ended() bool { return m.ended.Load() }

// stopping is checked by lockstep waiters; true once the match is
// ending, canceled, or errored. Caller holds the round state lock.
func (m *Match) stopping() bool {
	return m.ended.Load() || m.aborted.Load() || m.canceled.Load() || m.Err() != nil
}
