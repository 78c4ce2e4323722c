package protocol

import "fmt"

// NegotiatedState binds a peer to its pre-match setup: a random nonce
// contributing to the shared RNG seed, and the save file it will play
// with. Both are revealed only after each side has committed to them.
type NegotiatedState struct {
	Nonce    [16]byte
	SaveData []byte
}

// Serialize encodes the state little-endian: nonce, then length-prefixed
// save data
func (s *NegotiatedState) Serialize() []byte {
	w := writer{buf: make([]byte, 0, 16+4+len(s.SaveData))}
	w.buf = append(w.buf, s.Nonce[:]...)
	w.bytes(s.SaveData)
	return w.buf
}

// DeserializeNegotiatedState decodes a serialized NegotiatedState
func DeserializeNegotiatedState(buf []byte) (*NegotiatedState, error) {
	r := reader{buf: buf}
	var s NegotiatedState
	copy(s.Nonce[:], r.take(16))
	s.SaveData = r.bytes()
	if r.err != nil {
		return nil, fmt.Errorf("negotiated state: %w", r.err)
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("negotiated state: %d trailing bytes", len(r.buf))
	}
	return &s, nil
}
