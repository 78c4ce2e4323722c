package game

var placeholderRxBN4 = []byte{
	0x01, 0x00, 0x00, 0xff, 0x04, 0x00, 0x00, 0xff,
	0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00,
}

var backgroundsBN4 = []uint8{0x00, 0x01, 0x03, 0x05, 0x07, 0x0b, 0x0d, 0x11}

var ewramBN4 = EWRAMOffsets{
	Rng1State:     0x02009a30,
	Rng2State:     0x02009af0,
	TxPacket:      0x0203b2a0,
	RxPacketArray: 0x0203b240,
	LinkState:     0x0203bc60,
	MenuControl:   0x02009d10,
	OpponentName:  0x0203bc4c,
}

func romBN4(base uint32) ROMOffsets {
	// Sibling BN4 variants are relinked copies of the same code; the
	// whole hook region shifts together.
	return ROMOffsets{
		StartScreenJumpTableEntry:           base + 0x0003d43a,
		StartScreenSramUnmaskRet:            base + 0x0002db2c,
		GameLoadRet:                         base + 0x00004e52,
		CommMenuInitRet:                     base + 0x0003ea22,
		CommMenuSendAndReceiveCall:          base + 0x0003f4ba,
		InitSioCall:                         base + 0x0000403a,
		MainReadJoyflags:                    base + 0x000003e2,
		HandleInputInitSendAndReceiveCall:   base + 0x00007c3e,
		HandleInputUpdateSendAndReceiveCall: base + 0x00007ca2,
		HandleInputDeinitSendAndReceiveCall: base + 0x00007d02,
		ProcessBattleInputRet:               base + 0x000082f4,
		HandleInputPostCall:                 base + 0x00007c4a,
		BattleIsP2Ret:                       base + 0x0000772a,
		LinkIsP2Ret:                         base + 0x00003ffa,
		RoundStartRet:                       base + 0x000074d8,
		RoundEndCmp:                         base + 0x00007e6e,
		RoundWinRet:                         base + 0x00007ee0,
		RoundWinRet2:                        base + 0x00007f0c,
		RoundLoseRet:                        base + 0x00007f4a,
		RoundLoseRet2:                       base + 0x00007f76,
		RoundTieRet:                         base + 0x00007fa2,
		RoundEndEntry:                       base + 0x00007e0a,
		MatchEndRet:                         base + 0x0003eb2e,
	}
}

func bn4Variant(name string, base uint32) Adapter {
	return New(Params{
		Name: name,
		Offsets: Offsets{
			ROM:   romBN4(base),
			EWRAM: ewramBN4,
		},
		SupportsFastforward: true,
		PlaceholderRx:       placeholderRxBN4,
		Backgrounds:         backgroundsBN4,
	})
}

var (
	megamanBN4BMB4BE = bn4Variant("MEGAMANBN4BMB4BE", 0x08000000)
	megamanBN4RSB4WE = bn4Variant("MEGAMANBN4RSB4WE", 0x08000000)
	rockExe4BMB4BJ10 = bn4Variant("ROCK_EXE4_BMB4BJ_10", 0x08000000)
	rockExe4BMB4BJ11 = bn4Variant("ROCK_EXE4_BMB4BJ_11", 0x08000040)
	rockExe4RSB4WJ10 = bn4Variant("ROCK_EXE4_RSB4WJ_10", 0x08000000)
	rockExe4RSB4WJ11 = bn4Variant("ROCK_EXE4_RSB4WJ_11", 0x08000040)
)
