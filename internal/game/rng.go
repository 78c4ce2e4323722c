package game

import "github.com/andersfylling/tango/internal/rng"

// StepRng is the game's own linear recurrence, stepped in place for
// both in-game RNGs. All arithmetic wraps at 32 bits.
func StepRng(seed uint32) uint32 {
	return ((seed * 2) - (seed >> 0x1f) + 1) ^ 0x873ca9e5
}

// rng2InitialState is where every game in the family starts its
// shared RNG before scrambling
const rng2InitialState = 0xa338244f

// GenerateRng1State derives a per-player RNG state from the shared
// stream. The state itself is local, but deriving it this way keeps it
// reproducible on the peer's shadow.
func GenerateRng1State(r *rng.Rng) uint32 {
	rng1State := uint32(0)
	for i, n := 0, r.RangeInclusive(0xffff); i < n; i++ {
		rng1State = StepRng(rng1State)
	}
	return rng1State
}

// GenerateRng2State derives the shared RNG state. It must be written
// identically on both sides.
func GenerateRng2State(r *rng.Rng) uint32 {
	rng2State := uint32(rng2InitialState)
	for i, n := 0, r.RangeInclusive(0xffff); i < n; i++ {
		rng2State = StepRng(rng2State)
	}
	return rng2State
}

// randomBackground picks a battle background for the comm menu
// placeholder packet
func randomBackground(r *rng.Rng, backgrounds []uint8) uint8 {
	return backgrounds[r.Intn(len(backgrounds))]
}
