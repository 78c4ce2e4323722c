package protocol

import (
	"encoding/binary"
	"fmt"
)

// Marshal encodes a packet as a 1-byte tag followed by its
// little-endian payload. The frame length prefix is added by the
// channel layer.
func Marshal(p Packet) ([]byte, error) {
	w := writer{buf: []byte{byte(p.packetType())}}

	switch p := p.(type) {
	case Ping:
		w.u64(p.Timestamp)
	case Pong:
		w.u64(p.Timestamp)
	case Settings:
		w.str(p.Nickname)
		w.buf = append(w.buf, p.MatchType[0], p.MatchType[1])
		if p.GameInfo != nil {
			w.buf = append(w.buf, 1)
			w.str(p.GameInfo.Title)
			if p.GameInfo.Patch != nil {
				w.buf = append(w.buf, 1)
				w.str(p.GameInfo.Patch.Name)
				w.str(p.GameInfo.Patch.Version)
			} else {
				w.buf = append(w.buf, 0)
			}
		} else {
			w.buf = append(w.buf, 0)
		}
		w.u32(uint32(len(p.AvailableGames)))
		for _, g := range p.AvailableGames {
			w.str(g)
		}
		w.u32(uint32(len(p.AvailablePatches)))
		for _, pi := range p.AvailablePatches {
			w.str(pi.Name)
			w.u32(uint32(len(pi.Versions)))
			for _, v := range pi.Versions {
				w.str(v)
			}
		}
		w.bool(p.RevealSetup)
	case Commit:
		w.buf = append(w.buf, p.Commitment[:]...)
	case Uncommit:
	case Chunk:
		if len(p.Chunk) > ChunkSize {
			return nil, fmt.Errorf("chunk too large: %d > %d", len(p.Chunk), ChunkSize)
		}
		w.bytes(p.Chunk)
	case StartMatch:
	case Input:
		w.u32(p.RoundNumber)
		w.u32(p.Tick)
		w.u16(p.Joyflags)
		w.bytes(p.Rx)
	default:
		return nil, fmt.Errorf("unknown packet type %T", p)
	}

	return w.buf, nil
}

// Unmarshal decodes a packet from its tagged payload
func Unmarshal(buf []byte) (Packet, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("empty packet")
	}

	r := reader{buf: buf[1:]}

	var p Packet
	switch PacketType(buf[0]) {
	case PacketPing:
		p = Ping{Timestamp: r.u64()}
	case PacketPong:
		p = Pong{Timestamp: r.u64()}
	case PacketSettings:
		var s Settings
		s.Nickname = r.str()
		s.MatchType[0] = r.u8()
		s.MatchType[1] = r.u8()
		if r.bool() {
			gi := &GameInfo{Title: r.str()}
			if r.bool() {
				gi.Patch = &PatchSelection{Name: r.str(), Version: r.str()}
			}
			s.GameInfo = gi
		}
		for i, n := 0, int(r.u32()); i < n && r.err == nil; i++ {
			s.AvailableGames = append(s.AvailableGames, r.str())
		}
		for i, n := 0, int(r.u32()); i < n && r.err == nil; i++ {
			pi := PatchInfo{Name: r.str()}
			for j, m := 0, int(r.u32()); j < m && r.err == nil; j++ {
				pi.Versions = append(pi.Versions, r.str())
			}
			s.AvailablePatches = append(s.AvailablePatches, pi)
		}
		s.RevealSetup = r.bool()
		p = s
	case PacketCommit:
		var c Commit
		copy(c.Commitment[:], r.take(16))
		p = c
	case PacketUncommit:
		p = Uncommit{}
	case PacketChunk:
		c := Chunk{Chunk: r.bytes()}
		if len(c.Chunk) > ChunkSize {
			return nil, fmt.Errorf("chunk too large: %d > %d", len(c.Chunk), ChunkSize)
		}
		p = c
	case PacketStartMatch:
		p = StartMatch{}
	case PacketInput:
		p = Input{
			RoundNumber: r.u32(),
			Tick:        r.u32(),
			Joyflags:    r.u16(),
			Rx:          r.bytes(),
		}
	default:
		return nil, fmt.Errorf("unknown packet tag 0x%02x", buf[0])
	}

	if r.err != nil {
		return nil, fmt.Errorf("unmarshal tag 0x%02x: %w", buf[0], r.err)
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("unmarshal tag 0x%02x: %d trailing bytes", buf[0], len(r.buf))
	}
	return p, nil
}

type writer struct {
	buf []byte
}

func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *writer) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *writer) bool(v bool) {
	b := byte(0)
	if v {
		b = 1
	}
	w.buf = append(w.buf, b)
}

func (w *writer) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) str(s string) { w.bytes([]byte(s)) }

type reader struct {
	buf []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = fmt.Errorf("short read: want %d, have %d", n, len(r.buf))
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) bool() bool { return r.u8() != 0 }

func (r *reader) bytes() []byte {
	n := int(r.u32())
	if r.err != nil {
		return nil
	}
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *reader) str() string { return string(r.bytes()) }
