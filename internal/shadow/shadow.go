// Package shadow runs a local instance of the opponent's game. It is
// stepped deterministically with the same shared inputs so that each
// tick reveals the rx packet the opponent's game actually generates,
// which is the authoritative remote input the primary consumes.
package shadow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/andersfylling/tango/internal/emulator"
	"github.com/andersfylling/tango/internal/input"
	"github.com/andersfylling/tango/internal/rng"
)

// Hooks is the slice of a game adapter the shadow needs
type Hooks interface {
	// CommonTraps returns the boot/menu auto-skip trap family
	CommonTraps() []emulator.Trap

	// ShadowTraps returns the trap family driven by a State
	ShadowTraps(state *State) []emulator.Trap
}

// Round mirrors the opponent's view of the current round
type Round struct {
	currentTick uint32

	localPlayerIndex  int
	remotePlayerIndex int

	firstCommittedState []byte

	inInputPair  *input.Pair
	outInputPair *input.Pair

	inputInjected bool
}

// CurrentTick returns the round's tick counter
func (r *Round) CurrentTick() uint32 { return r.currentTick }

// IncrementCurrentTick advances the round by one tick
func (r *Round) IncrementCurrentTick() { r.currentTick++ }

// LocalPlayerIndex is our player slot as the opponent's game sees it
func (r *Round) LocalPlayerIndex() int { return r.localPlayerIndex }

// RemotePlayerIndex is the opponent's own slot in their game
func (r *Round) RemotePlayerIndex() int { return r.remotePlayerIndex }

// HasFirstCommittedState reports whether the round anchor exists yet
func (r *Round) HasFirstCommittedState() bool { return r.firstCommittedState != nil }

// SetFirstCommittedState records the round anchor
func (r *Round) SetFirstCommittedState(state []byte) { r.firstCommittedState = state }

// TakeInInputPair consumes the pending inbound pair, if any
func (r *Round) TakeInInputPair() (input.Pair, bool) {
	if r.inInputPair == nil {
		return input.Pair{}, false
	}
	ip := *r.inInputPair
	r.inInputPair = nil
	return ip, true
}

// PeekOutInputPair returns the outbound pair without consuming it
func (r *Round) PeekOutInputPair() (input.Pair, bool) {
	if r.outInputPair == nil {
		return input.Pair{}, false
	}
	return *r.outInputPair, true
}

// SetOutInputPair publishes the authoritative pair for this tick
func (r *Round) SetOutInputPair(ip input.Pair) { r.outInputPair = &ip }

// SetInputInjected marks that rx packets were written this tick
func (r *Round) SetInputInjected() { r.inputInjected = true }

// TakeInputInjected consumes the injection flag
func (r *Round) TakeInputInjected() bool {
	v := r.inputInjected
	r.inputInjected = false
	return v
}

// RoundState is the shadow's mutable round bookkeeping
type RoundState struct {
	Round      *Round
	LastResult *Result
}

// Result is the outcome of a round from the shadow's perspective
type Result int

// Round outcomes, already flipped to the local player's perspective
const (
	ResultWin Result = iota + 1
	ResultLoss
	ResultDraw
)

// State is shared between the shadow driver and its traps. Traps run
// on the goroutine stepping the core, but the error slot and round
// state are read from the match task, so access is serialized.
type State struct {
	mu sync.Mutex

	roundState RoundState
	rng        *rng.Rng

	isOfferer bool
	matchType [2]uint8

	remotePlayerIndex int

	appliedState     []byte
	appliedStateTick uint32

	err error

	log zerolog.Logger
}

// NewState builds the trap-shared state. The shadow gets its own RNG
// instance seeded identically to the primary's so both derive the same
// rng1/rng2 values independently.
func NewState(seed rng.Seed, isOfferer bool, matchType [2]uint8, remotePlayerIndex int, log zerolog.Logger) *State {
	return &State{
		rng:               rng.New(seed),
		isOfferer:         isOfferer,
		matchType:         matchType,
		remotePlayerIndex: remotePlayerIndex,
		log:               log,
	}
}

// IsOfferer reports which signaling role the local side had
func (s *State) IsOfferer() bool { return s.isOfferer }

// MatchType returns the negotiated match type
func (s *State) MatchType() [2]uint8 { return s.matchType }

// Logger returns the shadow's logger
func (s *State) Logger() zerolog.Logger { return s.log }

// WithRng runs fn with the shadow's RNG
func (s *State) WithRng(fn func(*rng.Rng)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.rng)
}

// WithRoundState runs fn with the shadow's round state
func (s *State) WithRoundState(fn func(*RoundState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.roundState)
}

// StartRound begins a fresh round mirror
func (s *State) StartRound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roundState.LastResult = nil
	s.roundState.Round = &Round{
		localPlayerIndex:  1 - s.remotePlayerIndex,
		remotePlayerIndex: s.remotePlayerIndex,
	}
}

// EndRound tears the round mirror down
func (s *State) EndRound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roundState.Round = nil
}

// SetLastResult records the round outcome
func (s *State) SetLastResult(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roundState.LastResult = &r
}

// SetAppliedState records the save state after the latest injected
// input was consumed
func (s *State) SetAppliedState(state []byte, tick uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appliedState = state
	s.appliedStateTick = tick
}

// SetError records a desync on the error slot. The first error wins.
func (s *State) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err drains nothing; it reports the current error slot value
func (s *State) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ErrRoundEnded reports that the shadow's round mirror was torn down
// while input was being applied; benign at round boundaries
var ErrRoundEnded = errors.New("shadow round ended")

// Shadow owns the secondary core and steps it on behalf of the match
// task. All advancement is synchronous: the caller blocks until the
// sentinel condition is reached.
type Shadow struct {
	core  emulator.Core
	state *State
	log   zerolog.Logger

	// stepMu serializes core stepping between the receive loop and
	// the primary's trap handlers
	stepMu sync.Mutex
}

// New wires a core with the adapter's common and shadow traps
func New(core emulator.Core, hooks Hooks, state *State, log zerolog.Logger) *Shadow {
	emulator.InstallTraps(core, hooks.CommonTraps())
	emulator.InstallTraps(core, hooks.ShadowTraps(state))
	return &Shadow{
		core:  core,
		state: state,
		log:   log.With().Str("component", "shadow").Logger(),
	}
}

// State exposes the trap-shared state
func (s *Shadow) State() *State { return s.state }

const advanceBudget = 6000

// AdvanceUntilFirstCommittedState steps the shadow until it captures
// its round anchor, and returns that save state
func (s *Shadow) AdvanceUntilFirstCommittedState() ([]byte, error) {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	for i := 0; i < advanceBudget; i++ {
		if err := s.state.Err(); err != nil {
			return nil, err
		}

		var state []byte
		s.state.WithRoundState(func(rs *RoundState) {
			if rs.Round != nil && rs.Round.HasFirstCommittedState() {
				state = rs.Round.firstCommittedState
			}
		})
		if state != nil {
			return state, nil
		}

		s.core.StepFrame()
	}
	return nil, errors.New("shadow never reached its first committed state")
}

// AdvanceUntilRoundEnd steps the shadow until its round mirror is torn
// down by the round-end trap
func (s *Shadow) AdvanceUntilRoundEnd() error {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	for i := 0; i < advanceBudget; i++ {
		if err := s.state.Err(); err != nil {
			return err
		}

		done := false
		s.state.WithRoundState(func(rs *RoundState) {
			done = rs.Round == nil
		})
		if done {
			return nil
		}

		s.core.StepFrame()
	}
	return errors.New("shadow never reached round end")
}

// ApplyInput feeds one committed pair to the shadow and steps it until
// the authoritative pair for that tick comes back out
func (s *Shadow) ApplyInput(ip input.Pair) (input.Pair, error) {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	s.state.mu.Lock()
	round := s.state.roundState.Round
	if round == nil {
		s.state.mu.Unlock()
		return input.Pair{}, ErrRoundEnded
	}
	round.inInputPair = &ip
	round.outInputPair = nil
	s.state.mu.Unlock()

	for i := 0; i < advanceBudget; i++ {
		if err := s.state.Err(); err != nil {
			return input.Pair{}, err
		}

		var out *input.Pair
		ended := false
		s.state.WithRoundState(func(rs *RoundState) {
			if rs.Round == nil {
				ended = true
				return
			}
			if rs.Round.outInputPair != nil {
				out = rs.Round.outInputPair
			}
		})
		if out != nil {
			return *out, nil
		}
		if ended {
			return input.Pair{}, ErrRoundEnded
		}

		s.core.StepFrame()
	}
	return input.Pair{}, fmt.Errorf("apply input: shadow stalled at tick %d", ip.Local.LocalTick)
}
