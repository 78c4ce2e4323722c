package game

// ROMOffsets are the code addresses the trap families hook. One table
// per ROM variant; sibling variants differ only in a handful of
// entries shifted by relinking.
type ROMOffsets struct {
	// StartScreenJumpTableEntry is the logo/intro dispatcher; trapped
	// to skip straight to the title screen
	StartScreenJumpTableEntry uint32

	// StartScreenSramUnmaskRet runs after SRAM is readable on the
	// title screen; trapped to continue into the game
	StartScreenSramUnmaskRet uint32

	// GameLoadRet runs after the save is loaded; trapped to force the
	// communication menu open
	GameLoadRet uint32

	// CommMenuInitRet runs when the communication menu is ready;
	// trapped to seed both in-game RNGs and start the battle
	CommMenuInitRet uint32

	// CommMenuSendAndReceiveCall is the in-menu handshake; trapped to
	// stub it out with placeholder packets
	CommMenuSendAndReceiveCall uint32

	// InitSioCall initializes real serial I/O; trapped to skip it
	InitSioCall uint32

	// MainReadJoyflags is where the game samples the pad each frame:
	// the rollback site
	MainReadJoyflags uint32

	// HandleInputInitSendAndReceiveCall and friends exchange packets
	// during battle; trapped to inject both sides' rx packets
	HandleInputInitSendAndReceiveCall   uint32
	HandleInputUpdateSendAndReceiveCall uint32
	HandleInputDeinitSendAndReceiveCall uint32

	// ProcessBattleInputRet is trapped to force a zero return so the
	// game uses the injected inputs
	ProcessBattleInputRet uint32

	// HandleInputPostCall runs after input handling; trapped to
	// advance the tick counter. Some games expose the equivalent
	// RoundPostIncrementTick site instead; whichever is nonzero is
	// hooked.
	HandleInputPostCall    uint32
	RoundPostIncrementTick uint32

	// BattleIsP2Ret and LinkIsP2Ret report the local player slot;
	// trapped to override the game's own notion
	BattleIsP2Ret uint32
	LinkIsP2Ret   uint32

	// RoundStartRet begins a round
	RoundStartRet uint32

	// RoundEndCmp is where the round outcome lands in r0
	RoundEndCmp uint32

	// RoundWinRet and friends signal the round result paths
	RoundWinRet   uint32
	RoundWinRet2  uint32
	RoundLoseRet  uint32
	RoundLoseRet2 uint32
	RoundTieRet   uint32

	// RoundEndEntry is the final round teardown
	RoundEndEntry uint32

	// MatchEndRet runs when the whole link battle is over
	MatchEndRet uint32
}

// EWRAMOffsets locate the memory fields the munger reads and writes
type EWRAMOffsets struct {
	// Rng1State is the per-player RNG state
	Rng1State uint32

	// Rng2State is the shared RNG state
	Rng2State uint32

	// TxPacket is where the game builds its outgoing packet each tick
	TxPacket uint32

	// RxPacketArray is the two-slot array of incoming packets, one
	// per player index
	RxPacketArray uint32

	// LinkState is nonzero while the game is in linking mode
	LinkState uint32

	// MenuControl drives the start screen and communication menu
	MenuControl uint32

	// OpponentName is the peer's display name, when the game keeps
	// one (zero when unsupported)
	OpponentName uint32
}

// Offsets is the full per-variant table
type Offsets struct {
	ROM   ROMOffsets
	EWRAM EWRAMOffsets
}
