// Package rng provides the shared match RNG. Both peers seed it with
// the XOR of their lobby nonces, so every draw is identical on both
// sides as long as draws happen in the same order.
package rng

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
)

// Seed is the 16-byte shared seed derived during the lobby ceremony
type Seed [16]byte

// SeedFromNonces derives the shared seed as the bytewise XOR of the
// two peers' nonces
func SeedFromNonces(local, remote [16]byte) Seed {
	var seed Seed
	for i := range seed {
		seed[i] = local[i] ^ remote[i]
	}
	return seed
}

// Rng is a deterministic stream of uniform values backed by a ChaCha20
// keystream. Not safe for concurrent use; callers hold the match's rng
// lock.
type Rng struct {
	cipher *chacha20.Cipher
}

// New creates an Rng from a seed. The 16-byte seed is doubled into the
// 32-byte ChaCha20 key; the nonce is fixed at zero since every seed is
// used exactly once per match.
func New(seed Seed) *Rng {
	var key [32]byte
	copy(key[:16], seed[:])
	copy(key[16:], seed[:])

	cipher, err := chacha20.NewUnauthenticatedCipher(key[:], make([]byte, chacha20.NonceSize))
	if err != nil {
		// Key and nonce sizes are fixed above; this cannot fail.
		panic(err)
	}
	return &Rng{cipher: cipher}
}

// Uint32 draws the next 32-bit value from the stream
func (r *Rng) Uint32() uint32 {
	var buf [4]byte
	r.cipher.XORKeyStream(buf[:], buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

// Intn draws a uniform value in [0, n). Panics if n <= 0.
func (r *Rng) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn with non-positive n")
	}

	// Rejection sampling to avoid modulo bias.
	max := uint32(n)
	limit := (1<<32 / uint64(max)) * uint64(max)
	for {
		v := r.Uint32()
		if uint64(v) < limit {
			return int(v % max)
		}
	}
}

// RangeInclusive draws a uniform value in [0, max]
func (r *Rng) RangeInclusive(max int) int {
	return r.Intn(max + 1)
}
