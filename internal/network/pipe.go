package network

import (
	"fmt"
	"sync"
)

// PipeChannel is an in-memory PacketChannel used by tests and by
// loopback sessions
type PipeChannel struct {
	in   chan []byte
	out  chan []byte
	done chan struct{}
	once sync.Once
}

// Pipe returns a connected pair of in-memory channels
func Pipe() (*PipeChannel, *PipeChannel) {
	a := make(chan []byte, 256)
	b := make(chan []byte, 256)
	done := make(chan struct{})
	return &PipeChannel{in: a, out: b, done: done},
		&PipeChannel{in: b, out: a, done: done}
}

func (c *PipeChannel) Send(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	select {
	case c.out <- buf:
		return nil
	case <-c.done:
		return fmt.Errorf("pipe closed")
	}
}

func (c *PipeChannel) Recv() ([]byte, error) {
	// Frames buffered before the peer hung up are still delivered, so
	// closing is not lossy for the reader.
	select {
	case buf := <-c.in:
		return buf, nil
	default:
	}

	select {
	case buf := <-c.in:
		return buf, nil
	case <-c.done:
		select {
		case buf := <-c.in:
			return buf, nil
		default:
			return nil, fmt.Errorf("pipe closed")
		}
	}
}

func (c *PipeChannel) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
