// Package currency is the native-token ledger the airdrop gate mints
// into. Issuance and crediting are separate steps joined by an
// Imbalance: issued value that has not been credited yet is returned to
// nothing (and total issuance shrinks back) when the Imbalance is
// dropped.
package currency

import (
	"errors"

	"github.com/blockberries/airdrop/types"
)

var (
	ErrAccountMissing      = errors.New("currency: account does not exist")
	ErrBalanceOverflow     = errors.New("currency: balance overflow")
	ErrInsufficientBalance = errors.New("currency: insufficient balance")
	ErrBelowExistential    = errors.New("currency: amount below existential deposit")
	ErrSelfTransfer        = errors.New("currency: transfer to self")
)

// Ledger is the capability the issuance gate needs.
type Ledger interface {
	// Issue increases total issuance by up to amount and returns the
	// uncredited value. Issuance saturates at types.MaxBalance, so the
	// returned Imbalance may hold less than amount.
	Issue(amount types.Balance) *Imbalance

	// ResolveIntoExisting credits imb to an existing account. On
	// failure the untouched imbalance is handed back together with
	// the reason.
	ResolveIntoExisting(who types.AccountID, imb *Imbalance) (*Imbalance, error)

	// TotalIssuance is the sum of every balance plus outstanding
	// imbalances.
	TotalIssuance() types.Balance
}

// FromAmount converts a requested airdrop amount into the native
// balance unit. Both are 64-bit, so the conversion is lossless.
func FromAmount(a types.Amount) types.Balance {
	return types.Balance(a)
}

// Imbalance is issued value waiting to be credited.
type Imbalance struct {
	amount types.Balance
	settle func(types.Balance)
}

// Peek returns the value still held.
func (i *Imbalance) Peek() types.Balance {
	if i == nil {
		return 0
	}
	return i.amount
}

// Drop releases whatever is still held, undoing its issuance. It is
// safe to call on a nil or already-resolved Imbalance.
func (i *Imbalance) Drop() {
	if i == nil || i.amount == 0 {
		return
	}
	rest := i.amount
	i.amount = 0
	i.settle(rest)
}

// take empties the imbalance without touching issuance.
func (i *Imbalance) take() types.Balance {
	v := i.amount
	i.amount = 0
	return v
}
