package network

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/andersfylling/tango/internal/protocol"
)

// PingInterval is how often a peer probes round-trip latency
const PingInterval = time.Second

// Sender serializes protocol packets onto a channel. Safe for
// concurrent use.
type Sender struct {
	mu sync.Mutex
	ch PacketChannel
}

// NewSender wraps a channel
func NewSender(ch PacketChannel) *Sender {
	return &Sender{ch: ch}
}

// Send marshals and transmits one packet
func (s *Sender) Send(p protocol.Packet) error {
	buf, err := protocol.Marshal(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Send(buf)
}

// SendInput transmits one tick of local input
func (s *Sender) SendInput(roundNumber, tick uint32, joyflags uint16, rx []byte) error {
	return s.Send(protocol.Input{
		RoundNumber: roundNumber,
		Tick:        tick,
		Joyflags:    joyflags,
		Rx:          rx,
	})
}

// Receiver decodes protocol packets off a channel
type Receiver struct {
	ch PacketChannel
}

// NewReceiver wraps a channel
func NewReceiver(ch PacketChannel) *Receiver {
	return &Receiver{ch: ch}
}

// Next blocks until the next packet arrives
func (r *Receiver) Next() (protocol.Packet, error) {
	buf, err := r.ch.Recv()
	if err != nil {
		return nil, err
	}
	return protocol.Unmarshal(buf)
}

// Pinger measures round-trip latency over the channel at a fixed
// interval. Pongs are fed back via ObservePong by whoever owns the
// receive loop.
type Pinger struct {
	sender  *Sender
	log     zerolog.Logger
	latency atomic.Int64
}

// NewPinger creates a pinger that sends on the given sender
func NewPinger(sender *Sender, log zerolog.Logger) *Pinger {
	return &Pinger{sender: sender, log: log}
}

// Run sends a Ping every PingInterval until the context is canceled
func (p *Pinger) Run(ctx context.Context) {
	t := time.NewTicker(PingInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if err := p.sender.Send(protocol.Ping{Timestamp: uint64(now.UnixNano())}); err != nil {
				p.log.Debug().Err(err).Msg("ping send failed")
				return
			}
		}
	}
}

// ObservePong records the latency sample carried by a Pong
func (p *Pinger) ObservePong(pong protocol.Pong) {
	rtt := time.Now().UnixNano() - int64(pong.Timestamp)
	if rtt >= 0 {
		p.latency.Store(rtt)
	}
}

// Latency returns the last measured round-trip time
func (p *Pinger) Latency() time.Duration {
	return time.Duration(p.latency.Load())
}
