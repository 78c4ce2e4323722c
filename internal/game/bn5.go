package game

var placeholderRxBN5 = []byte{
	0x00, 0x00, 0x00, 0x00, 0xff, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

var backgroundsBN5 = []uint8{0x00, 0x02, 0x04, 0x06, 0x08, 0x0c, 0x10, 0x14}

var ewramBN5 = EWRAMOffsets{
	Rng1State:     0x02009ca0,
	Rng2State:     0x02009d60,
	TxPacket:      0x0203c2e0,
	RxPacketArray: 0x0203c280,
	LinkState:     0x0203cd00,
	MenuControl:   0x02009f80,
}

func romBN5(base uint32) ROMOffsets {
	return ROMOffsets{
		StartScreenJumpTableEntry:           base + 0x0003e8aa,
		StartScreenSramUnmaskRet:            base + 0x0002e7f0,
		GameLoadRet:                         base + 0x00004f06,
		CommMenuInitRet:                     base + 0x0003fe12,
		CommMenuSendAndReceiveCall:          base + 0x000408aa,
		InitSioCall:                         base + 0x000040ee,
		MainReadJoyflags:                    base + 0x000003f6,
		HandleInputInitSendAndReceiveCall:   base + 0x00007e8e,
		HandleInputUpdateSendAndReceiveCall: base + 0x00007ef2,
		HandleInputDeinitSendAndReceiveCall: base + 0x00007f52,
		ProcessBattleInputRet:               base + 0x00008546,
		RoundPostIncrementTick:              base + 0x00007e9a,
		BattleIsP2Ret:                       base + 0x0000797a,
		LinkIsP2Ret:                         base + 0x000040ae,
		RoundStartRet:                       base + 0x00007728,
		RoundEndCmp:                         base + 0x000080be,
		RoundWinRet:                         base + 0x00008130,
		RoundWinRet2:                        base + 0x0000815c,
		RoundLoseRet:                        base + 0x0000819a,
		RoundLoseRet2:                       base + 0x000081c6,
		RoundTieRet:                         base + 0x000081f2,
		RoundEndEntry:                       base + 0x0000805a,
		MatchEndRet:                         base + 0x0003ff1e,
	}
}

// No fastforwarder hook points are known for BN5, so these variants
// run lockstep with delay instead of rollback.
func bn5Variant(name string, base uint32) Adapter {
	return New(Params{
		Name: name,
		Offsets: Offsets{
			ROM:   romBN5(base),
			EWRAM: ewramBN5,
		},
		SupportsFastforward: false,
		PlaceholderRx:       placeholderRxBN5,
		Backgrounds:         backgroundsBN5,
	})
}

var (
	megaman5TPBRBE  = bn5Variant("MEGAMAN5_TP_BRBE", 0x08000000)
	megaman5TCBRKE  = bn5Variant("MEGAMAN5_TC_BRKE", 0x08000020)
	rockExe5TOBBRBJ = bn5Variant("ROCKEXE5_TOBBRBJ", 0x08000010)
	rockExe5TOCBRKJ = bn5Variant("ROCKEXE5_TOCBRKJ", 0x08000030)
)
