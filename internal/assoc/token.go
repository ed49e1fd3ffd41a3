// Package assoc mints and verifies association tokens: short, stateless
// values that bind a future UDP/HTTP tunnel client to its TCP session's
// identity before the player has joined any game. Grounded on the teacher's
// internal/crypto/blowfish.go (BlowfishCipher, ECB block operations) and
// internal/login/session_key.go (process-local random identifiers, no
// persistence).
package assoc

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/blowfish"
)

const (
	idSize      = 16 // 128-bit random payload
	versionSize = 1
	macSize     = 8 // one Blowfish block
	tokenSize   = idSize + versionSize + macSize

	currentVersion = 1
)

// ErrInvalidToken is returned by Verify for a malformed or forged token.
var ErrInvalidToken = errors.New("assoc: invalid token")

// ID is the 128-bit association identifier carried inside a verified token.
type ID [idSize]byte

// Signer mints and verifies association tokens using a process-local
// Blowfish key generated once at startup. Tokens are never persisted: a
// process restart invalidates every outstanding token, matching §4.I.
type Signer struct {
	cipher *blowfish.Cipher
}

// NewSigner derives a fresh random Blowfish key and builds a Signer. The key
// lives only in process memory.
func NewSigner() (*Signer, error) {
	key := make([]byte, 16)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	c, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &Signer{cipher: c}, nil
}

// Mint generates a fresh random association id and returns its signed wire
// token: id (16 bytes) || version (1 byte) || MAC (8 bytes).
func (s *Signer) Mint() (ID, []byte, error) {
	var id ID
	if _, err := rand.Read(id[:]); err != nil {
		return ID{}, nil, err
	}

	token := make([]byte, tokenSize)
	copy(token[:idSize], id[:])
	token[idSize] = currentVersion
	copy(token[idSize+versionSize:], s.mac(token[:idSize+versionSize]))
	return id, token, nil
}

// Verify checks a wire token's MAC and returns the association id it
// carries. Returns ErrInvalidToken on any length, version, or MAC mismatch.
func (s *Signer) Verify(token []byte) (ID, error) {
	if len(token) != tokenSize {
		return ID{}, ErrInvalidToken
	}
	if token[idSize] != currentVersion {
		return ID{}, ErrInvalidToken
	}

	want := s.mac(token[:idSize+versionSize])
	got := token[idSize+versionSize:]
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return ID{}, ErrInvalidToken
	}

	var id ID
	copy(id[:], token[:idSize])
	return id, nil
}

// mac computes an 8-byte CBC-MAC over payload using the Signer's Blowfish
// cipher: payload is zero-padded to a multiple of the 8-byte block size,
// encrypted block-by-block with each block XORed against the previous
// ciphertext block (IV zero), and the final ciphertext block is the tag.
// This is the same ECB-block idiom BlowfishCipher.Encrypt uses, chained by
// hand since Blowfish itself has no built-in MAC mode.
func (s *Signer) mac(payload []byte) []byte {
	padded := make([]byte, blockCeil(len(payload)))
	copy(padded, payload)

	prev := make([]byte, blowfish.BlockSize)
	block := make([]byte, blowfish.BlockSize)
	for off := 0; off < len(padded); off += blowfish.BlockSize {
		xorBytes(block, padded[off:off+blowfish.BlockSize], prev)
		s.cipher.Encrypt(prev, block)
	}
	return prev
}

func blockCeil(n int) int {
	if rem := n % blowfish.BlockSize; rem != 0 {
		n += blowfish.BlockSize - rem
	}
	return n
}

func xorBytes(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

// PoolKey packs a (game_id, slot_index) pair into the 64-bit key used by
// the tunnel relay's pool-slot table, per §4.H: "(game_id << 32) | slot_index".
func PoolKey(gameID int32, slotIndex uint8) uint64 {
	return uint64(uint32(gameID))<<32 | uint64(slotIndex)
}
