// Package lobby implements the pre-match negotiation: settings
// exchange, the commitment ceremony binding each peer to a nonce and
// save file, and the chunked reveal that seeds the shared RNG.
package lobby

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andersfylling/tango/internal/network"
	"github.com/andersfylling/tango/internal/protocol"
	"github.com/andersfylling/tango/internal/rng"
)

var (
	// ErrIncompatibleSettings means the peers cannot play each other
	ErrIncompatibleSettings = errors.New("settings are not compatible")

	// ErrCommitmentMismatch means the revealed state did not hash to
	// the committed value
	ErrCommitmentMismatch = errors.New("commitment did not match")
)

// Result is the outcome of a successful negotiation
type Result struct {
	Seed           rng.Seed
	LocalState     *protocol.NegotiatedState
	RemoteState    *protocol.NegotiatedState
	RemoteSettings protocol.Settings
}

// Lobby drives the negotiation over a sender/receiver pair
type Lobby struct {
	sender   *network.Sender
	receiver *network.Receiver
	log      zerolog.Logger
}

// New creates a lobby
func New(sender *network.Sender, receiver *network.Receiver, log zerolog.Logger) *Lobby {
	return &Lobby{
		sender:   sender,
		receiver: receiver,
		log:      log.With().Str("component", "lobby").Logger(),
	}
}

// Negotiate runs the full lobby sequence: settings, commit, reveal,
// verify, start. It blocks until both peers have sent StartMatch or a
// phase fails.
func (l *Lobby) Negotiate(ctx context.Context, local protocol.Settings, saveData []byte) (*Result, error) {
	remoteSettings, err := l.exchangeSettings(ctx, local)
	if err != nil {
		return nil, err
	}

	if !CompatibleSettings(local, remoteSettings) {
		return nil, ErrIncompatibleSettings
	}

	localState := &protocol.NegotiatedState{SaveData: saveData}
	if _, err := rand.Read(localState.Nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	rawLocal, err := Compress(localState.Serialize())
	if err != nil {
		return nil, err
	}

	commitment := MakeCommitment(rawLocal)
	l.log.Info().Hex("commitment", commitment[:]).Msg("committing to negotiated state")
	if err := l.sender.Send(protocol.Commit{Commitment: commitment}); err != nil {
		return nil, err
	}

	remoteCommitment, err := l.awaitCommit(ctx)
	if err != nil {
		return nil, err
	}
	l.log.Info().Hex("remote_commitment", remoteCommitment[:]).Msg("peer committed")

	rawRemote, err := l.exchangeChunks(ctx, rawLocal)
	if err != nil {
		return nil, err
	}

	if !VerifyCommitment(remoteCommitment, rawRemote) {
		return nil, ErrCommitmentMismatch
	}

	decompressed, err := Decompress(rawRemote)
	if err != nil {
		return nil, err
	}

	remoteState, err := protocol.DeserializeNegotiatedState(decompressed)
	if err != nil {
		return nil, err
	}

	seed := rng.SeedFromNonces(localState.Nonce, remoteState.Nonce)

	if err := l.sender.Send(protocol.StartMatch{}); err != nil {
		return nil, err
	}
	if err := l.awaitStartMatch(ctx); err != nil {
		return nil, err
	}

	return &Result{
		Seed:           seed,
		LocalState:     localState,
		RemoteState:    remoteState,
		RemoteSettings: remoteSettings,
	}, nil
}

func (l *Lobby) exchangeSettings(ctx context.Context, local protocol.Settings) (protocol.Settings, error) {
	if err := l.sender.Send(local); err != nil {
		return protocol.Settings{}, err
	}

	for {
		p, err := l.next(ctx)
		if err != nil {
			return protocol.Settings{}, err
		}
		switch p := p.(type) {
		case protocol.Settings:
			return p, nil
		default:
			return protocol.Settings{}, unexpectedPacket("settings", p)
		}
	}
}

func (l *Lobby) awaitCommit(ctx context.Context) ([16]byte, error) {
	for {
		p, err := l.next(ctx)
		if err != nil {
			return [16]byte{}, err
		}
		switch p := p.(type) {
		case protocol.Commit:
			return p.Commitment, nil
		case protocol.Uncommit:
			// The peer withdrew; keep waiting for a fresh commitment.
		default:
			return [16]byte{}, unexpectedPacket("commit", p)
		}
	}
}

// exchangeChunks interleaves sending our chunks with collecting the
// peer's, so neither side can stall the other by filling buffers
func (l *Lobby) exchangeChunks(ctx context.Context, rawLocal []byte) ([]byte, error) {
	var remote []byte
	received := 0

	for i := 0; i < protocol.ChunksRequired; i++ {
		chunk := sliceChunk(rawLocal, i)
		if err := l.sender.Send(protocol.Chunk{Chunk: chunk}); err != nil {
			return nil, err
		}

		for received < i+1 {
			p, err := l.next(ctx)
			if err != nil {
				return nil, err
			}
			switch p := p.(type) {
			case protocol.Chunk:
				remote = append(remote, p.Chunk...)
				received++
			default:
				return nil, unexpectedPacket("chunk", p)
			}
		}
	}

	return remote, nil
}

func (l *Lobby) awaitStartMatch(ctx context.Context) error {
	for {
		p, err := l.next(ctx)
		if err != nil {
			return err
		}
		switch p := p.(type) {
		case protocol.StartMatch:
			return nil
		default:
			return unexpectedPacket("start match", p)
		}
	}
}

// next receives the next packet, transparently answering pings so
// latency probing keeps working during long phases
func (l *Lobby) next(ctx context.Context) (protocol.Packet, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := l.receiver.Next()
		if err != nil {
			return nil, err
		}

		switch p := p.(type) {
		case protocol.Ping:
			if err := l.sender.Send(protocol.Pong{Timestamp: p.Timestamp}); err != nil {
				return nil, err
			}
		case protocol.Pong:
			// Latency bookkeeping happens at the session layer; the
			// lobby just tolerates these.
		default:
			return p, nil
		}
	}
}

// sliceChunk returns the i-th ChunkSize window of buf, empty once buf
// is exhausted. Every side always sends exactly ChunksRequired chunks.
func sliceChunk(buf []byte, i int) []byte {
	lo := i * protocol.ChunkSize
	if lo >= len(buf) {
		return nil
	}
	hi := lo + protocol.ChunkSize
	if hi > len(buf) {
		hi = len(buf)
	}
	return buf[lo:hi]
}

func unexpectedPacket(phase string, p protocol.Packet) error {
	return fmt.Errorf("unexpected packet during %s phase: %T", phase, p)
}
