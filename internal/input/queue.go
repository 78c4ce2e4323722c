package input

// PairQueue buffers local and remote inputs keyed by tick until they
// can be paired. Local inputs always lead: the local side samples
// every frame, while remote inputs trail by the link delay.
//
// Absent remote slots are not stored; the round synthesizes
// predictions for them at fastforward time and flags them as such, so
// the queue only ever holds real inputs.
type PairQueue struct {
	local     []Input
	remote    []Input
	maxLength int
}

// NewPairQueue creates a queue that refuses local inputs once the
// local side leads the remote side by maxLength ticks
func NewPairQueue(maxLength int) *PairQueue {
	return &PairQueue{maxLength: maxLength}
}

// AddLocal enqueues a locally sampled input. It returns false when the
// delay window is exhausted; the caller must abort the match rather
// than let ticks diverge unboundedly.
func (q *PairQueue) AddLocal(ip Input) bool {
	if len(q.local) >= q.maxLength {
		return false
	}
	q.local = append(q.local, ip)
	return true
}

// AddRemote enqueues a real remote input. Remote inputs may never
// outpace local ones: a remote input with no local counterpart would
// break pairing.
func (q *PairQueue) AddRemote(ip Input) bool {
	if len(q.remote) >= len(q.local) {
		return false
	}
	q.remote = append(q.remote, ip)
	return true
}

// PeekLocal returns the queued local input for a tick, if present
func (q *PairQueue) PeekLocal(tick uint32) (Input, bool) {
	for _, ip := range q.local {
		if ip.LocalTick == tick {
			return ip, true
		}
	}
	return Input{}, false
}

// LocalLead is how many local ticks have no remote counterpart yet
func (q *PairQueue) LocalLead() int {
	return len(q.local) - len(q.remote)
}

// ConsumeOne drains a single pairable tick, if any. Used by the
// lockstep path, which advances exactly one tick per frame.
func (q *PairQueue) ConsumeOne() (Pair, bool) {
	if len(q.remote) == 0 || len(q.local) == 0 {
		return Pair{}, false
	}
	p := Pair{Local: q.local[0], Remote: q.remote[0]}
	q.local = q.local[1:]
	q.remote = q.remote[1:]
	return p, true
}

// ConsumeAndPeekLocal drains every pairable tick and returns the
// paired inputs, plus a copy of the still-unpaired local tail. The
// tail is what fastforwarding covers with predictions.
func (q *PairQueue) ConsumeAndPeekLocal() ([]Pair, []Input) {
	n := len(q.remote)
	if n > len(q.local) {
		n = len(q.local)
	}

	pairs := make([]Pair, n)
	for i := 0; i < n; i++ {
		pairs[i] = Pair{Local: q.local[i], Remote: q.remote[i]}
	}

	q.local = append([]Input(nil), q.local[n:]...)
	q.remote = q.remote[:0]

	left := make([]Input, len(q.local))
	copy(left, q.local)

	return pairs, left
}
