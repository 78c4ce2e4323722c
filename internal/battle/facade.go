package battle

// Facade is the handle the primary's trap handlers hold into the
// match. It deliberately exposes only what a trap may do.
type Facade struct {
	m *Match
}

// NewFacade wraps a match
func NewFacade(m *Match) *Facade {
	return &Facade{m: m}
}

// Match returns the live match, or nil once it has ended. Traps bail
// out on nil so stray frames after match end are harmless.
func (f *Facade) Match() *Match {
	if f.m == nil || f.m.Ended() {
		return nil
	}
	return f.m
}

// AbortMatch tears the match down from inside a trap; used on input
// queue overflow and desync
func (f *Facade) AbortMatch() {
	if f.m != nil {
		f.m.Abort()
	}
}

// EndMatch finishes the match normally from the match-end trap
func (f *Facade) EndMatch() {
	if f.m != nil {
		f.m.End()
	}
}
