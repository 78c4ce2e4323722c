package lobby

import (
	"crypto/subtle"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/sha3"
)

// commitmentDomain separates lobby commitments from any other use of
// SHAKE-128 over the same bytes
const commitmentDomain = "tango:lobby:"

// MakeCommitment computes the 16-byte SHAKE-128 commitment over a
// serialized, compressed negotiated state
func MakeCommitment(buf []byte) [16]byte {
	shake := sha3.NewShake128()
	shake.Write([]byte(commitmentDomain))
	shake.Write(buf)

	var commitment [16]byte
	shake.Read(commitment[:])
	return commitment
}

// VerifyCommitment checks a commitment against the revealed bytes in
// constant time
func VerifyCommitment(commitment [16]byte, raw []byte) bool {
	actual := MakeCommitment(raw)
	return subtle.ConstantTimeCompare(actual[:], commitment[:]) == 1
}

// Compress zstd-compresses a serialized negotiated state
func Compress(raw []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

// Decompress reverses Compress
func Decompress(buf []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(buf, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress negotiated state: %w", err)
	}
	return raw, nil
}
