// Package game provides the per-ROM adapters gluing the netplay core
// to each supported game: a table of code addresses, a munger for the
// memory fields involved, and the four trap families installed on the
// primary, shadow and fastforwarder cores.
package game

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/andersfylling/tango/internal/battle"
	"github.com/andersfylling/tango/internal/emulator"
	"github.com/andersfylling/tango/internal/fastforwarder"
	"github.com/andersfylling/tango/internal/input"
	"github.com/andersfylling/tango/internal/rng"
	"github.com/andersfylling/tango/internal/shadow"
)

// Adapter is the per-ROM surface the rest of the core consumes
type Adapter interface {
	// Name identifies the variant, e.g. "MEGA_EXE3_BLA3XE"
	Name() string

	// PlaceholderRx is the rx packet used before either side has seen
	// a real one
	PlaceholderRx() []byte

	// PredictRx derives the predicted next rx packet from the
	// previous one. Pure function of its input.
	PredictRx(rx []byte) []byte

	// PrepareForFastforward moves the PC to the input-read site so
	// resimulation resumes at a canonical in-battle point
	PrepareForFastforward(core emulator.Core)

	// ReplaceOpponentName is an optional cosmetic
	ReplaceOpponentName(core emulator.Core, name string)

	// SupportsFastforward reports whether fastforwarder traps exist
	// for this variant
	SupportsFastforward() bool

	// CommonTraps returns the boot/menu auto-skip family
	CommonTraps() []emulator.Trap

	// PrimaryTraps returns the family for the user-visible core
	PrimaryTraps(joyflags *atomic.Uint32, facade *battle.Facade) []emulator.Trap

	// ShadowTraps returns the family for the opponent-side mirror
	ShadowTraps(state *shadow.State) []emulator.Trap

	// FastforwarderTraps returns the family for resimulation
	FastforwarderTraps(state *fastforwarder.State) []emulator.Trap
}

// Params describes one ROM variant
type Params struct {
	Name                string
	Offsets             Offsets
	SupportsFastforward bool
	PlaceholderRx       []byte
	Backgrounds         []uint8
}

type adapter struct {
	params Params
	munger Munger
}

// New builds an adapter from a variant table
func New(p Params) Adapter {
	return &adapter{
		params: p,
		munger: Munger{offsets: p.Offsets},
	}
}

func (g *adapter) Name() string { return g.params.Name }

func (g *adapter) PlaceholderRx() []byte {
	return append([]byte(nil), g.params.PlaceholderRx...)
}

func (g *adapter) PredictRx(rx []byte) []byte {
	out := append([]byte(nil), rx...)
	tick := binary.LittleEndian.Uint16(out[0x4:0x6])
	binary.LittleEndian.PutUint16(out[0x4:0x6], tick+1)
	return out
}

func (g *adapter) PrepareForFastforward(core emulator.Core) {
	core.SetThumbPC(g.params.Offsets.ROM.MainReadJoyflags)
}

func (g *adapter) ReplaceOpponentName(core emulator.Core, name string) {
	g.munger.SetOpponentName(core, name)
}

func (g *adapter) SupportsFastforward() bool { return g.params.SupportsFastforward }

// tickTrapAddr is the tick-advance site; games expose one of two
// equivalent hook points
func (g *adapter) tickTrapAddr() uint32 {
	if a := g.params.Offsets.ROM.HandleInputPostCall; a != 0 {
		return a
	}
	return g.params.Offsets.ROM.RoundPostIncrementTick
}

func (g *adapter) CommonTraps() []emulator.Trap {
	munger := g.munger
	return []emulator.Trap{
		{
			Addr: g.params.Offsets.ROM.StartScreenJumpTableEntry,
			Handler: func(core emulator.Core) {
				munger.SkipLogo(core)
			},
		},
		{
			Addr: g.params.Offsets.ROM.StartScreenSramUnmaskRet,
			Handler: func(core emulator.Core) {
				munger.ContinueFromTitleMenu(core)
			},
		},
		{
			Addr: g.params.Offsets.ROM.GameLoadRet,
			Handler: func(core emulator.Core) {
				munger.OpenCommMenuFromOverworld(core)
			},
		},
	}
}

func (g *adapter) PrimaryTraps(joyflags *atomic.Uint32, facade *battle.Facade) []emulator.Trap {
	munger := g.munger

	makeSendAndReceiveCallHook := func() emulator.TrapFunc {
		return func(core emulator.Core) {
			core.SetThumbPC(core.ThumbPC() + 4)
			core.SetGPR(0, 3)

			m := facade.Match()
			if m == nil {
				return
			}

			m.WithRoundState(func(rs *battle.RoundState) {
				round := rs.Round
				if round == nil {
					return
				}

				round.QueueTx(round.CurrentTick()+1, munger.TxPacket(core))

				ip, ok := round.PeekLastInput()
				if !ok {
					return
				}
				munger.SetRxPacket(core, round.LocalPlayerIndex(), ip.Local.Rx)
				munger.SetRxPacket(core, round.RemotePlayerIndex(), ip.Remote.Rx)
			})
		}
	}

	makeRoundEndHook := func() emulator.TrapFunc {
		return func(core emulator.Core) {
			m := facade.Match()
			if m == nil {
				return
			}
			if err := m.EndRound(); err != nil {
				m.SetError(fmt.Errorf("end round: %w", err))
				facade.AbortMatch()
				return
			}
			if err := m.AdvanceShadowUntilRoundEnd(); err != nil {
				m.SetError(fmt.Errorf("advance shadow: %w", err))
				facade.AbortMatch()
			}
		}
	}

	traps := []emulator.Trap{
		{
			Addr: g.params.Offsets.ROM.CommMenuInitRet,
			Handler: func(core emulator.Core) {
				m := facade.Match()
				if m == nil {
					return
				}
				m.WithRng(func(r *rng.Rng) {
					// rng1 is the local rng; it is not synced, but it
					// is derived from the shared stream so the peer's
					// shadow can reproduce it.
					offererRng1State := GenerateRng1State(r)
					answererRng1State := GenerateRng1State(r)
					if m.IsOfferer() {
						munger.SetRng1State(core, offererRng1State)
					} else {
						munger.SetRng1State(core, answererRng1State)
					}

					// rng2 is the shared rng; it must be synced.
					munger.SetRng2State(core, GenerateRng2State(r))

					munger.StartBattleFromCommMenu(core, m.MatchType())
				})
			},
		},
		{
			Addr: g.params.Offsets.ROM.MatchEndRet,
			Handler: func(core emulator.Core) {
				log.Info().Msg("match ended")
				facade.EndMatch()
			},
		},
		{
			Addr: g.params.Offsets.ROM.RoundEndCmp,
			Handler: func(core emulator.Core) {
				m := facade.Match()
				if m == nil {
					return
				}
				switch core.GPR(0) {
				case 1:
					m.SetLastResult(battle.ResultWin)
				case 2:
					m.SetLastResult(battle.ResultLoss)
				case 5:
					m.SetLastResult(battle.ResultDraw)
				}
			},
		},
		{Addr: g.params.Offsets.ROM.RoundWinRet, Handler: makeRoundEndHook()},
		{Addr: g.params.Offsets.ROM.RoundWinRet2, Handler: makeRoundEndHook()},
		{Addr: g.params.Offsets.ROM.RoundLoseRet, Handler: makeRoundEndHook()},
		{Addr: g.params.Offsets.ROM.RoundLoseRet2, Handler: makeRoundEndHook()},
		{Addr: g.params.Offsets.ROM.RoundTieRet, Handler: makeRoundEndHook()},
		{
			Addr: g.params.Offsets.ROM.RoundStartRet,
			Handler: func(core emulator.Core) {
				m := facade.Match()
				if m == nil {
					return
				}
				if err := m.StartRound(); err != nil {
					m.SetError(fmt.Errorf("start round: %w", err))
					facade.AbortMatch()
				}
			},
		},
		{
			Addr: g.params.Offsets.ROM.BattleIsP2Ret,
			Handler: func(core emulator.Core) {
				m := facade.Match()
				if m == nil {
					return
				}
				m.WithRoundState(func(rs *battle.RoundState) {
					if rs.Round == nil {
						return
					}
					core.SetGPR(0, int32(rs.Round.LocalPlayerIndex()))
				})
			},
		},
		{
			Addr: g.params.Offsets.ROM.LinkIsP2Ret,
			Handler: func(core emulator.Core) {
				m := facade.Match()
				if m == nil {
					return
				}
				m.WithRoundState(func(rs *battle.RoundState) {
					if rs.Round == nil {
						return
					}
					core.SetGPR(0, int32(rs.Round.LocalPlayerIndex()))
				})
			},
		},
		{
			Addr: g.params.Offsets.ROM.MainReadJoyflags,
			Handler: func(core emulator.Core) {
				m := facade.Match()
				if m == nil {
					return
				}

				abort := false
				m.WithRoundState(func(rs *battle.RoundState) {
					round := rs.Round
					if round == nil {
						return
					}

					if !munger.IsLinking(core) {
						return
					}

					if !round.HasCommittedState() {
						state, err := core.SaveState()
						if err != nil {
							// Save state failure is unrecoverable.
							panic(fmt.Errorf("save state: %w", err))
						}

						shadowState, err := m.AdvanceShadowUntilFirstCommittedState()
						if err != nil {
							m.SetError(fmt.Errorf("advance shadow: %w", err))
							abort = true
							return
						}

						if err := round.SetFirstCommittedState(state, shadowState); err != nil {
							m.SetError(err)
							abort = true
							return
						}

						log.Info().
							Uint32("rng1", munger.Rng1State(core)).
							Uint32("rng2", munger.Rng2State(core)).
							Uint32("tick", round.CurrentTick()).
							Msg("primary battle state committed")
						return
					}

					if !round.AddLocalInputAndFastforward(core, uint16(joyflags.Load())) {
						abort = true
					}
				})
				if abort {
					facade.AbortMatch()
				}
			},
		},
		{
			Addr:    g.params.Offsets.ROM.HandleInputInitSendAndReceiveCall,
			Handler: makeSendAndReceiveCallHook(),
		},
		{
			Addr:    g.params.Offsets.ROM.HandleInputUpdateSendAndReceiveCall,
			Handler: makeSendAndReceiveCallHook(),
		},
		{
			Addr:    g.params.Offsets.ROM.HandleInputDeinitSendAndReceiveCall,
			Handler: makeSendAndReceiveCallHook(),
		},
		{
			Addr: g.params.Offsets.ROM.ProcessBattleInputRet,
			Handler: func(core emulator.Core) {
				core.SetGPR(0, 0)
			},
		},
		{
			Addr: g.params.Offsets.ROM.CommMenuSendAndReceiveCall,
			Handler: func(core emulator.Core) {
				m := facade.Match()
				if m == nil {
					return
				}

				core.SetThumbPC(core.ThumbPC() + 4)
				core.SetGPR(0, 3)

				m.WithRng(func(r *rng.Rng) {
					rx := append([]byte(nil), g.params.PlaceholderRx...)
					rx[4] = randomBackground(r, g.params.Backgrounds)
					munger.SetRxPacket(core, 0, rx)
					munger.SetRxPacket(core, 1, rx)
				})
			},
		},
		{
			Addr: g.params.Offsets.ROM.InitSioCall,
			Handler: func(core emulator.Core) {
				core.SetThumbPC(core.ThumbPC() + 4)
			},
		},
		{
			Addr: g.tickTrapAddr(),
			Handler: func(core emulator.Core) {
				m := facade.Match()
				if m == nil {
					return
				}
				m.WithRoundState(func(rs *battle.RoundState) {
					round := rs.Round
					if round == nil || !round.HasCommittedState() {
						return
					}
					round.IncrementCurrentTick()
				})
			},
		},
	}

	return traps
}

func (g *adapter) ShadowTraps(state *shadow.State) []emulator.Trap {
	munger := g.munger

	makeSendAndReceiveCallHook := func() emulator.TrapFunc {
		return func(core emulator.Core) {
			core.SetThumbPC(core.ThumbPC() + 4)
			core.SetGPR(0, 3)

			state.WithRoundState(func(rs *shadow.RoundState) {
				round := rs.Round
				if round == nil {
					return
				}

				ip, ok := round.PeekOutInputPair()
				if !ok {
					return
				}

				// HACK: if the emulator advances past the joyflags
				// read and runs this again with no fresh input data,
				// we permit it for exactly one tick.
				if ip.Local.LocalTick+1 == round.CurrentTick() {
					return
				}

				if ip.Local.LocalTick != ip.Remote.LocalTick {
					state.SetError(fmt.Errorf(
						"copy input data: local tick != remote tick (in battle tick = %d): %d != %d",
						round.CurrentTick(), ip.Local.LocalTick, ip.Remote.LocalTick,
					))
					return
				}

				if ip.Local.LocalTick != round.CurrentTick() {
					state.SetError(fmt.Errorf(
						"copy input data: input tick != in battle tick: %d != %d",
						ip.Local.LocalTick, round.CurrentTick(),
					))
					return
				}

				munger.SetRxPacket(core, round.LocalPlayerIndex(), ip.Local.Rx)
				munger.SetRxPacket(core, round.RemotePlayerIndex(), ip.Remote.Rx)

				round.SetInputInjected()
			})
		}
	}

	return []emulator.Trap{
		{
			Addr: g.params.Offsets.ROM.CommMenuInitRet,
			Handler: func(core emulator.Core) {
				state.WithRng(func(r *rng.Rng) {
					// Same derivation as the primary, with the
					// opposite role: the shadow runs the opponent's
					// game.
					offererRng1State := GenerateRng1State(r)
					answererRng1State := GenerateRng1State(r)
					if state.IsOfferer() {
						munger.SetRng1State(core, answererRng1State)
					} else {
						munger.SetRng1State(core, offererRng1State)
					}

					munger.SetRng2State(core, GenerateRng2State(r))

					munger.StartBattleFromCommMenu(core, state.MatchType())
				})
			},
		},
		{
			Addr: g.params.Offsets.ROM.RoundStartRet,
			Handler: func(core emulator.Core) {
				state.StartRound()
			},
		},
		{
			Addr: g.params.Offsets.ROM.RoundEndCmp,
			Handler: func(core emulator.Core) {
				// The shadow plays the opponent, so outcomes are
				// inverted before they reach the local player.
				switch core.GPR(0) {
				case 1:
					state.SetLastResult(shadow.ResultLoss)
				case 2:
					state.SetLastResult(shadow.ResultWin)
				case 5:
					state.SetLastResult(shadow.ResultDraw)
				}
			},
		},
		{
			Addr: g.params.Offsets.ROM.RoundEndEntry,
			Handler: func(core emulator.Core) {
				state.EndRound()
				st, err := core.SaveState()
				if err != nil {
					state.SetError(fmt.Errorf("save state: %w", err))
					return
				}
				state.SetAppliedState(st, 0)
			},
		},
		{
			Addr: g.params.Offsets.ROM.BattleIsP2Ret,
			Handler: func(core emulator.Core) {
				state.WithRoundState(func(rs *shadow.RoundState) {
					if rs.Round == nil {
						return
					}
					core.SetGPR(0, int32(rs.Round.RemotePlayerIndex()))
				})
			},
		},
		{
			Addr: g.params.Offsets.ROM.LinkIsP2Ret,
			Handler: func(core emulator.Core) {
				state.WithRoundState(func(rs *shadow.RoundState) {
					if rs.Round == nil {
						return
					}
					core.SetGPR(0, int32(rs.Round.RemotePlayerIndex()))
				})
			},
		},
		{
			Addr: g.params.Offsets.ROM.MainReadJoyflags,
			Handler: func(core emulator.Core) {
				state.WithRoundState(func(rs *shadow.RoundState) {
					round := rs.Round
					if round == nil {
						return
					}

					if !munger.IsLinking(core) && !round.HasFirstCommittedState() {
						return
					}

					if !round.HasFirstCommittedState() {
						st, err := core.SaveState()
						if err != nil {
							state.SetError(fmt.Errorf("save state: %w", err))
							return
						}
						round.SetFirstCommittedState(st)
						logger := state.Logger()
						logger.Info().
							Uint32("rng1", munger.Rng1State(core)).
							Uint32("rng2", munger.Rng2State(core)).
							Uint32("tick", round.CurrentTick()).
							Msg("shadow state committed")
						return
					}

					if ip, ok := round.TakeInInputPair(); ok {
						if ip.Local.LocalTick != ip.Remote.LocalTick {
							state.SetError(fmt.Errorf(
								"read joyflags: local tick != remote tick (in battle tick = %d): %d != %d",
								round.CurrentTick(), ip.Local.LocalTick, ip.Remote.LocalTick,
							))
							return
						}

						if ip.Local.LocalTick != round.CurrentTick() {
							state.SetError(fmt.Errorf(
								"read joyflags: input tick != in battle tick: %d != %d",
								ip.Local.LocalTick, round.CurrentTick(),
							))
							return
						}

						round.SetOutInputPair(input.Pair{
							Local: ip.Local,
							Remote: input.Input{
								LocalTick:  ip.Remote.LocalTick,
								RemoteTick: ip.Remote.RemoteTick,
								Joyflags:   ip.Remote.Joyflags,
								Rx:         munger.TxPacket(core),
							},
						})

						core.SetGPR(4, int32(uint32(ip.Remote.Joyflags)|0xfc00))
					}

					if round.TakeInputInjected() {
						st, err := core.SaveState()
						if err != nil {
							state.SetError(fmt.Errorf("save state: %w", err))
							return
						}
						state.SetAppliedState(st, round.CurrentTick())
					}
				})
			},
		},
		{
			Addr:    g.params.Offsets.ROM.HandleInputInitSendAndReceiveCall,
			Handler: makeSendAndReceiveCallHook(),
		},
		{
			Addr:    g.params.Offsets.ROM.HandleInputUpdateSendAndReceiveCall,
			Handler: makeSendAndReceiveCallHook(),
		},
		{
			Addr:    g.params.Offsets.ROM.HandleInputDeinitSendAndReceiveCall,
			Handler: makeSendAndReceiveCallHook(),
		},
		{
			Addr: g.params.Offsets.ROM.ProcessBattleInputRet,
			Handler: func(core emulator.Core) {
				core.SetGPR(0, 0)
			},
		},
		{
			Addr: g.params.Offsets.ROM.CommMenuSendAndReceiveCall,
			Handler: func(core emulator.Core) {
				core.SetThumbPC(core.ThumbPC() + 4)
				core.SetGPR(0, 3)
				state.WithRng(func(r *rng.Rng) {
					rx := append([]byte(nil), g.params.PlaceholderRx...)
					rx[4] = randomBackground(r, g.params.Backgrounds)
					munger.SetRxPacket(core, 0, rx)
					munger.SetRxPacket(core, 1, rx)
				})
			},
		},
		{
			Addr: g.params.Offsets.ROM.InitSioCall,
			Handler: func(core emulator.Core) {
				core.SetThumbPC(core.ThumbPC() + 4)
			},
		},
		{
			Addr: g.tickTrapAddr(),
			Handler: func(core emulator.Core) {
				state.WithRoundState(func(rs *shadow.RoundState) {
					round := rs.Round
					if round == nil || !round.HasFirstCommittedState() {
						return
					}
					round.IncrementCurrentTick()

					if rs.LastResult != nil {
						// The round is over but the game wants more
						// inputs; fudge them until the next round.
						core.SetGPR(0, 7)
					}
				})
			},
		},
	}
}

func (g *adapter) FastforwarderTraps(state *fastforwarder.State) []emulator.Trap {
	if !g.params.SupportsFastforward {
		return nil
	}

	munger := g.munger

	makeSendAndReceiveCallHook := func() emulator.TrapFunc {
		return func(core emulator.Core) {
			core.SetThumbPC(core.ThumbPC() + 4)
			core.SetGPR(0, 3)

			currentTick := state.CurrentTick()

			ip, ok := state.PopInputPair()
			if !ok {
				return
			}

			if ip.Local.LocalTick != ip.Remote.LocalTick {
				state.SetError(fmt.Errorf(
					"copy input data: local tick != remote tick (in battle tick = %d): %d != %d",
					currentTick, ip.Local.LocalTick, ip.Remote.LocalTick,
				))
				return
			}

			if ip.Local.LocalTick != currentTick {
				state.SetError(fmt.Errorf(
					"copy input data: input tick != in battle tick: %d != %d",
					ip.Local.LocalTick, currentTick,
				))
				return
			}

			munger.SetRxPacket(core, state.LocalPlayerIndex(), ip.Local.Rx)
			munger.SetRxPacket(core, state.RemotePlayerIndex(), ip.Remote.Rx)
		}
	}

	return []emulator.Trap{
		{
			Addr: g.params.Offsets.ROM.BattleIsP2Ret,
			Handler: func(core emulator.Core) {
				core.SetGPR(0, int32(state.LocalPlayerIndex()))
			},
		},
		{
			Addr: g.params.Offsets.ROM.LinkIsP2Ret,
			Handler: func(core emulator.Core) {
				core.SetGPR(0, int32(state.LocalPlayerIndex()))
			},
		},
		{
			Addr: g.params.Offsets.ROM.RoundEndEntry,
			Handler: func(core emulator.Core) {
				state.OnBattleEnded()
			},
		},
		{
			Addr: g.params.Offsets.ROM.MainReadJoyflags,
			Handler: func(core emulator.Core) {
				currentTick := state.CurrentTick()

				if currentTick == state.CommitTime() {
					st, err := core.SaveState()
					if err != nil {
						state.SetError(fmt.Errorf("save committed state: %w", err))
						return
					}
					state.SetCommittedState(st)
				}

				ip, ok := state.PeekInputPair()
				if !ok {
					state.OnInputsExhausted()
					return
				}

				if ip.Local.LocalTick != ip.Remote.LocalTick {
					state.SetError(fmt.Errorf(
						"read joyflags: local tick != remote tick (in battle tick = %d): %d != %d",
						currentTick, ip.Local.LocalTick, ip.Remote.LocalTick,
					))
					return
				}

				if ip.Local.LocalTick != currentTick {
					state.SetError(fmt.Errorf(
						"read joyflags: input tick != in battle tick: %d != %d",
						ip.Local.LocalTick, currentTick,
					))
					return
				}

				core.SetGPR(4, int32(uint32(ip.Local.Joyflags)|0xfc00))

				if currentTick == state.DirtyTime() {
					st, err := core.SaveState()
					if err != nil {
						state.SetError(fmt.Errorf("save dirty state: %w", err))
						return
					}
					state.SetDirtyState(st)
				}
			},
		},
		{
			Addr:    g.params.Offsets.ROM.HandleInputInitSendAndReceiveCall,
			Handler: makeSendAndReceiveCallHook(),
		},
		{
			Addr:    g.params.Offsets.ROM.HandleInputUpdateSendAndReceiveCall,
			Handler: makeSendAndReceiveCallHook(),
		},
		{
			Addr:    g.params.Offsets.ROM.HandleInputDeinitSendAndReceiveCall,
			Handler: makeSendAndReceiveCallHook(),
		},
		{
			Addr: g.params.Offsets.ROM.ProcessBattleInputRet,
			Handler: func(core emulator.Core) {
				core.SetGPR(0, 0)
			},
		},
		{
			Addr: g.tickTrapAddr(),
			Handler: func(core emulator.Core) {
				state.IncrementCurrentTick()
			},
		},
	}
}
