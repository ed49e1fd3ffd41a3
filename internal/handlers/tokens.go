package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/blowfish"
)

// SessionSigner mints and verifies the opaque session tokens handed back in
// AuthResponse and accepted by SilentLogin. Grounded on
// internal/assoc.Signer's CBC-MAC-over-Blowfish construction, generalized to
// bind a player id instead of a random association id: the token's payload
// is the player id itself, so Verify recovers it with no directory lookup.
type SessionSigner struct {
	cipher *blowfish.Cipher
}

const (
	tokenPayloadSize = 4 // player id, big-endian
	tokenVersionSize = 1
	tokenMACSize      = 8
	tokenVersion      = 1
)

// ErrInvalidToken is returned by Verify for a malformed, forged, or
// wrong-version token.
var ErrInvalidToken = errors.New("handlers: invalid session token")

// NewSessionSigner derives a fresh random Blowfish key, process-local like
// assoc.Signer: a restart invalidates every outstanding token, and
// SilentLogin then rejects such a token with InvalidSession.
func NewSessionSigner() (*SessionSigner, error) {
	key := make([]byte, 16)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	c, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &SessionSigner{cipher: c}, nil
}

// Mint produces the base64 wire token for playerID.
func (s *SessionSigner) Mint(playerID int32) string {
	payload := make([]byte, tokenPayloadSize+tokenVersionSize)
	binary.BigEndian.PutUint32(payload[:tokenPayloadSize], uint32(playerID))
	payload[tokenPayloadSize] = tokenVersion

	mac := s.mac(payload)
	raw := append(payload, mac...)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Verify recovers the player id bound to a base64 wire token, or
// ErrInvalidToken if the token is malformed, wrong-version, or forged.
func (s *SessionSigner) Verify(token string) (int32, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, ErrInvalidToken
	}
	if len(raw) != tokenPayloadSize+tokenVersionSize+tokenMACSize {
		return 0, ErrInvalidToken
	}
	payload := raw[:tokenPayloadSize+tokenVersionSize]
	if payload[tokenPayloadSize] != tokenVersion {
		return 0, ErrInvalidToken
	}

	want := s.mac(payload)
	got := raw[tokenPayloadSize+tokenVersionSize:]
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return 0, ErrInvalidToken
	}

	return int32(binary.BigEndian.Uint32(payload[:tokenPayloadSize])), nil
}

// mac computes an 8-byte CBC-MAC over payload, identical in construction to
// assoc.Signer.mac (no shared code since that method is unexported there,
// and the two token kinds are deliberately kept independent — a leaked
// session token must never double as a tunnel association token).
func (s *SessionSigner) mac(payload []byte) []byte {
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
