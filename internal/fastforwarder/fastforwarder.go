// Package fastforwarder replays battle frames from a committed save
// state under known inputs, producing a fresh committed state (after
// the last real remote input) and a dirty state (at the live tick,
// covering the predicted tail).
package fastforwarder

import (
	"errors"
	"fmt"

	"github.com/andersfylling/tango/internal/emulator"
	"github.com/andersfylling/tango/internal/input"
)

// Hooks is the slice of a game adapter the fastforwarder needs
type Hooks interface {
	// PrepareForFastforward moves the PC to the canonical in-battle
	// resume point
	PrepareForFastforward(core emulator.Core)

	// FastforwarderTraps returns the trap family driven by a State
	FastforwarderTraps(state *State) []emulator.Trap

	// PredictRx derives the predicted next rx packet from the
	// previous one. Must be a pure function of its input.
	PredictRx(rx []byte) []byte
}

// State is the mutable state a fastforward run shares with its traps.
// A single State is installed at construction; each run swaps in a
// fresh inner record.
type State struct {
	inner *run
}

type run struct {
	currentTick uint32
	commitTime  uint32
	dirtyTime   uint32

	localPlayerIndex  int
	remotePlayerIndex int

	pairs []input.Pair

	committedState []byte
	dirtyState     []byte

	exhausted bool
	err       error
}

// CurrentTick returns the tick the run is at
func (s *State) CurrentTick() uint32 { return s.inner.currentTick }

// IncrementCurrentTick advances the run by one tick
func (s *State) IncrementCurrentTick() { s.inner.currentTick++ }

// CommitTime is the tick at which a new committed state is captured
func (s *State) CommitTime() uint32 { return s.inner.commitTime }

// DirtyTime is the tick at which the dirty state is captured
func (s *State) DirtyTime() uint32 { return s.inner.dirtyTime }

// LocalPlayerIndex returns the local side's player slot
func (s *State) LocalPlayerIndex() int { return s.inner.localPlayerIndex }

// RemotePlayerIndex returns the remote side's player slot
func (s *State) RemotePlayerIndex() int { return s.inner.remotePlayerIndex }

// PeekInputPair returns the pair for the current tick without
// consuming it
func (s *State) PeekInputPair() (input.Pair, bool) {
	if len(s.inner.pairs) == 0 {
		return input.Pair{}, false
	}
	return s.inner.pairs[0], true
}

// PopInputPair consumes the pair for the current tick
func (s *State) PopInputPair() (input.Pair, bool) {
	if len(s.inner.pairs) == 0 {
		return input.Pair{}, false
	}
	ip := s.inner.pairs[0]
	s.inner.pairs = s.inner.pairs[1:]
	return ip, true
}

// SetCommittedState records the save state at the commit boundary
func (s *State) SetCommittedState(state []byte) { s.inner.committedState = state }

// SetDirtyState records the save state at the live tick
func (s *State) SetDirtyState(state []byte) { s.inner.dirtyState = state }

// OnInputsExhausted marks the run complete
func (s *State) OnInputsExhausted() { s.inner.exhausted = true }

// OnBattleEnded marks the run complete because the round ended inside
// the replayed window
func (s *State) OnBattleEnded() { s.inner.exhausted = true }

// SetError records a desync detected by a trap
func (s *State) SetError(err error) { s.inner.err = err }

// Result is the output of one fastforward run
type Result struct {
	CommittedState []byte
	CommittedTick  uint32
	DirtyState     []byte

	// LastRemoteInput is the newest real remote input applied, for
	// seeding the next round of predictions
	LastRemoteInput input.Input

	// LastPair is the pair at the live tick; the primary's traps keep
	// injecting its rx packets after the dirty state is swapped in
	LastPair input.Pair
}

// Fastforwarder owns an ephemeral emulator core used only for
// resimulation
type Fastforwarder struct {
	core  emulator.Core
	hooks Hooks
	state *State
}

// New wires a core with the adapter's fastforwarder traps
func New(core emulator.Core, hooks Hooks) *Fastforwarder {
	ff := &Fastforwarder{
		core:  core,
		hooks: hooks,
		state: &State{},
	}
	emulator.InstallTraps(core, hooks.FastforwarderTraps(ff.state))
	return ff
}

// Fastforward replays from a committed state. commitPairs are the
// fully known pairs starting at committedTick; leftLocal are local
// inputs past the last real remote input, which are paired with
// predictions derived from lastRemoteInput.
func (ff *Fastforwarder) Fastforward(
	state []byte,
	committedTick uint32,
	localPlayerIndex int,
	commitPairs []input.Pair,
	lastRemoteInput input.Input,
	leftLocal []input.Input,
) (*Result, error) {
	if err := ff.core.LoadState(state); err != nil {
		return nil, fmt.Errorf("load committed state: %w", err)
	}

	pairs := make([]input.Pair, 0, len(commitPairs)+len(leftLocal))
	pairs = append(pairs, commitPairs...)

	if len(commitPairs) > 0 {
		lastRemoteInput = commitPairs[len(commitPairs)-1].Remote
	}

	predicted := lastRemoteInput
	for _, local := range leftLocal {
		predicted = input.Input{
			LocalTick:    local.LocalTick,
			RemoteTick:   predicted.RemoteTick,
			Joyflags:     predicted.Joyflags,
			Rx:           ff.hooks.PredictRx(predicted.Rx),
			IsPrediction: true,
		}
		pairs = append(pairs, input.Pair{Local: local, Remote: predicted})
	}

	if len(pairs) == 0 {
		return nil, errors.New("fastforward with no inputs")
	}

	ff.state.inner = &run{
		currentTick:       committedTick,
		commitTime:        committedTick + uint32(len(commitPairs)),
		dirtyTime:         pairs[len(pairs)-1].Local.LocalTick,
		localPlayerIndex:  localPlayerIndex,
		remotePlayerIndex: 1 - localPlayerIndex,
		pairs:             pairs,
	}

	ff.hooks.PrepareForFastforward(ff.core)

	for !ff.state.inner.exhausted && ff.state.inner.err == nil {
		ff.core.StepFrame()
	}

	inner := ff.state.inner
	ff.state.inner = nil

	if inner.err != nil {
		return nil, inner.err
	}
	if inner.committedState == nil || inner.dirtyState == nil {
		return nil, errors.New("fastforward ended without capturing states")
	}

	return &Result{
		CommittedState:  inner.committedState,
		CommittedTick:   inner.commitTime,
		DirtyState:      inner.dirtyState,
		LastRemoteInput: lastRemoteInput,
		LastPair:        pairs[len(pairs)-1],
	}, nil
}
