package game

// placeholderRxBN3 seeds the first frames before either side has seen
// a real packet. Byte 4 carries the battle background and is
// randomized from the shared RNG at the comm menu.
var placeholderRxBN3 = []byte{
	0x01, 0xff, 0x00, 0xff, 0x06, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

var backgroundsBN3 = []uint8{0x00, 0x04, 0x05, 0x06, 0x17, 0x10, 0x02, 0x0a}

var ewramBN3 = EWRAMOffsets{
	Rng1State:     0x02009730,
	Rng2State:     0x020097f8,
	TxPacket:      0x0203a9c0,
	RxPacketArray: 0x0203a960,
	LinkState:     0x0203b3a0,
	MenuControl:   0x02009a30,
	OpponentName:  0x0203b394,
}

var megaExe3BLA3XE = New(Params{
	Name: "MEGA_EXE3_BLA3XE",
	Offsets: Offsets{
		ROM: ROMOffsets{
			StartScreenJumpTableEntry:           0x0803d1e6,
			StartScreenSramUnmaskRet:            0x0802d948,
			GameLoadRet:                         0x08004dde,
			CommMenuInitRet:                     0x0803e836,
			CommMenuSendAndReceiveCall:          0x0803f2ce,
			InitSioCall:                         0x08003fc6,
			MainReadJoyflags:                    0x080003c6,
			HandleInputInitSendAndReceiveCall:   0x08007a6e,
			HandleInputUpdateSendAndReceiveCall: 0x08007ad2,
			HandleInputDeinitSendAndReceiveCall: 0x08007b32,
			ProcessBattleInputRet:               0x08008120,
			HandleInputPostCall:                 0x08007a7a,
			BattleIsP2Ret:                       0x0800755a,
			LinkIsP2Ret:                         0x08003f86,
			RoundStartRet:                       0x08007304,
			RoundEndCmp:                         0x08007c9e,
			RoundWinRet:                         0x08007d10,
			RoundWinRet2:                        0x08007d3c,
			RoundLoseRet:                        0x08007d7a,
			RoundLoseRet2:                       0x08007da6,
			RoundTieRet:                         0x08007dd2,
			RoundEndEntry:                       0x08007c3a,
			MatchEndRet:                         0x0803e942,
		},
		EWRAM: ewramBN3,
	},
	SupportsFastforward: true,
	PlaceholderRx:       placeholderRxBN3,
	Backgrounds:         backgroundsBN3,
})

var megaExe3WHA6BE = New(Params{
	Name: "MEGA_EXE3_WHA6BE",
	Offsets: Offsets{
		ROM: ROMOffsets{
			StartScreenJumpTableEntry:           0x0803d22a,
			StartScreenSramUnmaskRet:            0x0802d98c,
			GameLoadRet:                         0x08004dde,
			CommMenuInitRet:                     0x0803e87a,
			CommMenuSendAndReceiveCall:          0x0803f312,
			InitSioCall:                         0x08003fc6,
			MainReadJoyflags:                    0x080003c6,
			HandleInputInitSendAndReceiveCall:   0x08007a6e,
			HandleInputUpdateSendAndReceiveCall: 0x08007ad2,
			HandleInputDeinitSendAndReceiveCall: 0x08007b32,
			ProcessBattleInputRet:               0x08008120,
			HandleInputPostCall:                 0x08007a7a,
			BattleIsP2Ret:                       0x0800755a,
			LinkIsP2Ret:                         0x08003f86,
			RoundStartRet:                       0x08007304,
			RoundEndCmp:                         0x08007c9e,
			RoundWinRet:                         0x08007d10,
			RoundWinRet2:                        0x08007d3c,
			RoundLoseRet:                        0x08007d7a,
			RoundLoseRet2:                       0x08007da6,
			RoundTieRet:                         0x08007dd2,
			RoundEndEntry:                       0x08007c3a,
			MatchEndRet:                         0x0803e986,
		},
		EWRAM: ewramBN3,
	},
	SupportsFastforward: true,
	PlaceholderRx:       placeholderRxBN3,
	Backgrounds:         backgroundsBN3,
})
