// Package auth turns signed transactions into an authenticated caller.
//
// A Tx is the cramberry encoding of a types.Envelope. The signature
// covers the encoding of types.SigningPayload, which binds the call to
// a chain id and the signer's nonce. The caller identity is the
// 20-byte BLAKE2b digest of the signer's ed25519 public key.
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"golang.org/x/crypto/blake2b"

	"github.com/blockberries/airdrop/types"
)

var (
	ErrMalformed      = errors.New("auth: malformed envelope")
	ErrUnsupportedKey = errors.New("auth: unsupported key type")
	ErrInvalidSigLen  = errors.New("auth: invalid signature length")
	ErrBadSignature   = errors.New("auth: signature verification failed")
)

// Signed is an envelope whose signature has been checked.
type Signed struct {
	Envelope types.Envelope
	Origin   types.AccountID
}

// AccountFromPublicKey derives the account of an ed25519 key.
func AccountFromPublicKey(pub ed25519.PublicKey) types.AccountID {
	h, err := blake2b.New(types.AccountIDLength, nil)
	if err != nil {
		// Only fails for sizes outside 1..64.
		panic(err)
	}
	h.Write(pub)
	var a types.AccountID
	copy(a[:], h.Sum(nil))
	return a
}

// Account derives the account of an envelope signer.
func Account(pk types.PublicKey) (types.AccountID, error) {
	if pk.Type != types.KeyTypeEd25519 {
		return types.AccountID{}, fmt.Errorf("%w: %d", ErrUnsupportedKey, pk.Type)
	}
	if len(pk.Data) != ed25519.PublicKeySize {
		return types.AccountID{}, fmt.Errorf("%w: public key is %d bytes", ErrMalformed, len(pk.Data))
	}
	return AccountFromPublicKey(pk.Data), nil
}

// PublicKey wraps an ed25519 key for an Envelope.
func PublicKey(pub ed25519.PublicKey) types.PublicKey {
	return types.PublicKey{Type: types.KeyTypeEd25519, Data: append([]byte(nil), pub...)}
}

// Payload returns the bytes a signature covers.
func Payload(chainID string, nonce uint64, call types.Call) ([]byte, error) {
	return cramberry.Marshal(types.SigningPayload{ChainID: chainID, Nonce: nonce, Call: call})
}

// Sign builds and encodes a signed envelope.
func Sign(key ed25519.PrivateKey, chainID string, nonce uint64, call types.Call) (types.Tx, error) {
	msg, err := Payload(chainID, nonce, call)
	if err != nil {
		return nil, fmt.Errorf("auth: encode payload: %w", err)
	}
	env := types.Envelope{
		Signer:    PublicKey(key.Public().(ed25519.PublicKey)),
		Nonce:     nonce,
		Call:      call,
		Signature: ed25519.Sign(key, msg),
	}
	tx, err := cramberry.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("auth: encode envelope: %w", err)
	}
	return tx, nil
}

// Decode parses a Tx without checking its signature.
func Decode(tx types.Tx) (types.Envelope, error) {
	var env types.Envelope
	if len(tx) == 0 {
		return env, fmt.Errorf("%w: empty tx", ErrMalformed)
	}
	if err := cramberry.Unmarshal(tx, &env); err != nil {
		return env, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return env, nil
}

// Verify checks env's signature for chainID and returns the signer's
// account.
func Verify(chainID string, env types.Envelope) (types.AccountID, error) {
	origin, err := Account(env.Signer)
	if err != nil {
		return origin, err
	}
	if len(env.Signature) != ed25519.SignatureSize {
		return origin, ErrInvalidSigLen
	}
	msg, err := Payload(chainID, env.Nonce, env.Call)
	if err != nil {
		return origin, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if !ed25519.Verify(env.Signer.Data, msg, env.Signature) {
		return origin, ErrBadSignature
	}
	return origin, nil
}

// Open decodes and verifies tx in one step.
func Open(chainID string, tx types.Tx) (Signed, error) {
	env, err := Decode(tx)
	if err != nil {
		return Signed{}, err
	}
	origin, err := Verify(chainID, env)
	if err != nil {
		return Signed{}, err
	}
	return Signed{Envelope: env, Origin: origin}, nil
}
