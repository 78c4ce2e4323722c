package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalTags(t *testing.T) {
	for _, tc := range []struct {
		p   Packet
		tag byte
	}{
		{Ping{Timestamp: 1}, 0x01},
		{Pong{Timestamp: 1}, 0x02},
		{Settings{}, 0x03},
		{Commit{}, 0x04},
		{Uncommit{}, 0x05},
		{Chunk{}, 0x06},
		{StartMatch{}, 0x07},
		{Input{Rx: []byte{0}}, 0x08},
	} {
		buf, err := Marshal(tc.p)
		require.NoError(t, err)
		require.Equal(t, tc.tag, buf[0], "tag for %T", tc.p)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := Settings{
		Nickname:  "mayl",
		MatchType: [2]uint8{1, 0},
		GameInfo: &GameInfo{
			Title: "MEGA_EXE3_BLA3XE",
			Patch: &PatchSelection{Name: "rockman-fix", Version: "1.2.0"},
		},
		AvailableGames: []string{"MEGA_EXE3_BLA3XE", "MEGAMAN6_FXXBR6E"},
		AvailablePatches: []PatchInfo{
			{Name: "rockman-fix", Versions: []string{"1.1.0", "1.2.0"}},
		},
		RevealSetup: true,
	}

	buf, err := Marshal(s)
	require.NoError(t, err)

	p, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, s, p)
}

func TestSettingsRoundTripEmpty(t *testing.T) {
	buf, err := Marshal(Settings{Nickname: "x"})
	require.NoError(t, err)

	p, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, Settings{Nickname: "x"}, p)
}

func TestInputRoundTrip(t *testing.T) {
	in := Input{
		RoundNumber: 2,
		Tick:        1234,
		Joyflags:    0x0203,
		Rx:          []byte{1, 0, 0, 0xff, 0x12, 0x00, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	}

	buf, err := Marshal(in)
	require.NoError(t, err)

	p, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, in, p)
}

func TestChunkTooLarge(t *testing.T) {
	_, err := Marshal(Chunk{Chunk: make([]byte, ChunkSize+1)})
	require.Error(t, err)
}

func TestUnmarshalRejectsUnknownTag(t *testing.T) {
	_, err := Unmarshal([]byte{0xaa, 0x00})
	require.Error(t, err)
}

func TestUnmarshalRejectsTrailingBytes(t *testing.T) {
	buf, err := Marshal(Ping{Timestamp: 7})
	require.NoError(t, err)

	_, err = Unmarshal(append(buf, 0x00))
	require.Error(t, err)
}

func TestUnmarshalRejectsShortPayload(t *testing.T) {
	_, err := Unmarshal([]byte{byte(PacketCommit), 1, 2, 3})
	require.Error(t, err)
}

func TestNegotiatedStateRoundTrip(t *testing.T) {
	s := &NegotiatedState{SaveData: []byte{0xde, 0xad, 0xbe, 0xef}}
	for i := range s.Nonce {
		s.Nonce[i] = byte(i * 17)
	}

	out, err := DeserializeNegotiatedState(s.Serialize())
	require.NoError(t, err)
	require.Equal(t, s, out)
}

func TestNegotiatedStateRejectsTruncation(t *testing.T) {
	s := &NegotiatedState{SaveData: []byte("save")}
	buf := s.Serialize()

	_, err := DeserializeNegotiatedState(buf[:len(buf)-1])
	require.Error(t, err)
}
