package airdroptest

import (
	"crypto/ed25519"
	"testing"

	"github.com/blockberries/airdrop/auth"
	"github.com/blockberries/airdrop/types"
)

// Signer is a deterministic test key that tracks its own nonce.
type Signer struct {
	t     *testing.T
	key   ed25519.PrivateKey
	nonce uint64
}

// NewSigner derives a key from seed. Equal seeds give equal keys.
func NewSigner(t *testing.T, seed byte) *Signer {
	s := make([]byte, ed25519.SeedSize)
	for i := range s {
		s[i] = seed
	}
	return &Signer{t: t, key: ed25519.NewKeyFromSeed(s)}
}

// Account returns the signer's account id.
func (s *Signer) Account() types.AccountID {
	return auth.AccountFromPublicKey(s.key.Public().(ed25519.PublicKey))
}

// Nonce returns the nonce the next Tx will use.
func (s *Signer) Nonce() uint64 { return s.nonce }

// Tx signs call with the next nonce.
func (s *Signer) Tx(call types.Call) types.Tx {
	tx := s.TxAt(s.nonce, call)
	s.nonce++
	return tx
}

// TxAt signs call with an explicit nonce and leaves the counter alone.
func (s *Signer) TxAt(nonce uint64, call types.Call) types.Tx {
	s.t.Helper()
	tx, err := auth.Sign(s.key, ChainID, nonce, call)
	if err != nil {
		s.t.Fatalf("sign: %v", err)
	}
	return tx
}

// Airdrop signs an airdrop request for amount.
func (s *Signer) Airdrop(amount types.Amount) types.Tx {
	return s.Tx(types.AirdropCall(amount))
}

// Transfer signs a transfer of amount to to.
func (s *Signer) Transfer(to types.AccountID, amount types.Balance) types.Tx {
	return s.Tx(types.TransferCall(to, amount))
}
