// Package input models per-tick battle inputs and the rollback queue
// that pairs local inputs with their remote counterparts.
package input

// Input is one tick of input from one side
type Input struct {
	// LocalTick is the tick at which the producer sampled this input
	LocalTick uint32

	// RemoteTick is the producer's most recent acknowledgment of the
	// peer's tick, used for delay bookkeeping
	RemoteTick uint32

	// Joyflags is the button bitmap. The hardware-reserved bits 0xFC00
	// are OR'd in before the value ever reaches an emulator register.
	Joyflags uint16

	// Rx is the opaque per-game packet for this tick. For remote
	// inputs on the primary it may be a prediction.
	Rx []byte

	// IsPrediction is set only on predicted remote inputs
	IsPrediction bool
}

// Pair is the local and remote input at the same tick
type Pair struct {
	Local  Input
	Remote Input
}
