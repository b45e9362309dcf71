// Package types defines the data types shared by the airdrop ledger
// application, its host lifecycle and its transports.
//
// These are plain Go structs with cramberry struct tags for
// deterministic binary serialization. Transport concerns
// (gRPC codec registration) are handled in the transport packages.
package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash is a 32-byte cryptographic hash.
type Hash [32]byte

// AppHash is a deterministic fingerprint of the application
// state after execution.
type AppHash [32]byte

// Tx is an opaque transaction as delivered by the host. The
// application decodes it into an Envelope.
type Tx []byte

// QueryPath is a structured key for state queries (e.g. "/cooldown").
type QueryPath string

// Height is a block height supplied by the host ledger. It never
// decreases during normal operation.
type Height uint64

// Amount is the quantity a caller asks to be airdropped.
type Amount uint64

// Balance is the native unit of the currency ledger.
type Balance uint64

// MaxBalance is the largest representable balance.
const MaxBalance = ^Balance(0)

// AccountIDLength is the byte length of an AccountID.
const AccountIDLength = 20

// AccountID identifies a ledger participant.
type AccountID [AccountIDLength]byte

// String returns the 0x-prefixed hex form of the account.
func (a AccountID) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether a is the zero account.
func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

// Less orders accounts bytewise. Used wherever state is exported
// so that encodings are deterministic.
func (a AccountID) Less(b AccountID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// ParseAccountID parses the hex form produced by String. The 0x
// prefix is optional.
func ParseAccountID(s string) (AccountID, error) {
	var a AccountID
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return a, fmt.Errorf("parse account %q: %w", s, err)
	}
	if len(raw) != AccountIDLength {
		return a, fmt.Errorf("parse account %q: want %d bytes, got %d", s, AccountIDLength, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// AccountIDFromBytes copies b into an AccountID. b must be exactly
// AccountIDLength bytes long.
func AccountIDFromBytes(b []byte) (AccountID, bool) {
	var a AccountID
	if len(b) != AccountIDLength {
		return a, false
	}
	copy(a[:], b)
	return a, true
}

// BlockID uniquely identifies a point in the chain.
type BlockID struct {
	Height uint64 `cramberry:"1"`
	Hash   Hash   `cramberry:"2"`
}
