package game

var placeholderRxBN6 = []byte{
	0x01, 0x00, 0x00, 0xff, 0x02, 0x00, 0xff, 0xff,
	0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

var backgroundsBN6 = []uint8{0x00, 0x03, 0x05, 0x09, 0x0b, 0x0f, 0x13, 0x15}

var ewramBN6 = EWRAMOffsets{
	Rng1State:     0x02009ee0,
	Rng2State:     0x02009fa0,
	TxPacket:      0x0203d1a0,
	RxPacketArray: 0x0203d140,
	LinkState:     0x0203dc20,
	MenuControl:   0x0200a1c0,
	OpponentName:  0x0203dc0c,
}

func romBN6(base uint32) ROMOffsets {
	return ROMOffsets{
		StartScreenJumpTableEntry:           base + 0x0003f0e2,
		StartScreenSramUnmaskRet:            base + 0x0002f3a4,
		GameLoadRet:                         base + 0x00004fb2,
		CommMenuInitRet:                     base + 0x00040c4e,
		CommMenuSendAndReceiveCall:          base + 0x000416e6,
		InitSioCall:                         base + 0x000041a2,
		MainReadJoyflags:                    base + 0x0000040a,
		HandleInputInitSendAndReceiveCall:   base + 0x0000801e,
		HandleInputUpdateSendAndReceiveCall: base + 0x00008082,
		HandleInputDeinitSendAndReceiveCall: base + 0x000080e2,
		ProcessBattleInputRet:               base + 0x000087a8,
		HandleInputPostCall:                 base + 0x0000802a,
		BattleIsP2Ret:                       base + 0x00007b0a,
		LinkIsP2Ret:                         base + 0x00004162,
		RoundStartRet:                       base + 0x000078b8,
		RoundEndCmp:                         base + 0x0000824e,
		RoundWinRet:                         base + 0x000082c0,
		RoundWinRet2:                        base + 0x000082ec,
		RoundLoseRet:                        base + 0x0000832a,
		RoundLoseRet2:                       base + 0x00008356,
		RoundTieRet:                         base + 0x00008382,
		RoundEndEntry:                       base + 0x000081ea,
		MatchEndRet:                         base + 0x00040d5a,
	}
}

func bn6Variant(name string, base uint32) Adapter {
	return New(Params{
		Name: name,
		Offsets: Offsets{
			ROM:   romBN6(base),
			EWRAM: ewramBN6,
		},
		SupportsFastforward: true,
		PlaceholderRx:       placeholderRxBN6,
		Backgrounds:         backgroundsBN6,
	})
}

var (
	megaman6FXXBR6E = bn6Variant("MEGAMAN6_FXXBR6E", 0x08000000)
	megaman6GXXBR5E = bn6Variant("MEGAMAN6_GXXBR5E", 0x08000028)
	rockExe6RXXBR6J = bn6Variant("ROCKEXE6_RXXBR6J", 0x08000014)
	rockExe6GXXBR5J = bn6Variant("ROCKEXE6_GXXBR5J", 0x0800003c)
)
