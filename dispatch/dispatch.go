// Package dispatch applies an authenticated call to the replicated
// state at a block height.
package dispatch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/blockberries/airdrop/auth"
	"github.com/blockberries/airdrop/currency"
	"github.com/blockberries/airdrop/issuance"
	"github.com/blockberries/airdrop/state"
	"github.com/blockberries/airdrop/types"
)

var (
	ErrUnknownCall     = errors.New("unknown call")
	ErrAmountTooLarge  = errors.New("amount above chain maximum")
	ErrNoneValue       = errors.New("value slot is empty")
	ErrStorageOverflow = errors.New("value slot overflow")
	ErrBadNonce        = errors.New("bad nonce")
)

// Result is the effect of one successful call.
type Result struct {
	Events []types.Event
	// Airdrop and transfer return the caller's new balance as 8
	// big-endian bytes.
	Data []byte
}

// Apply runs call on behalf of origin. A failed call leaves s
// unchanged.
func Apply(s *state.State, origin types.AccountID, call types.Call, now types.Height) (Result, error) {
	switch call.Kind {
	case types.CallAirdrop:
		return airdrop(s, origin, types.Amount(call.Amount), now)
	case types.CallTransfer:
		return transfer(s, origin, call.To, types.Balance(call.Amount))
	case types.CallStoreValue:
		return storeValue(s, origin, call.Value)
	case types.CallBumpValue:
		return bumpValue(s)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownCall, call.Kind)
	}
}

// ApplySigned checks the envelope nonce, consumes it and applies the
// call. The nonce is consumed even when the call fails; it is left
// alone when the nonce itself is wrong.
func ApplySigned(s *state.State, signed auth.Signed, now types.Height) (Result, error) {
	want := s.Nonce(signed.Origin)
	if got := signed.Envelope.Nonce; got != want {
		return Result{}, fmt.Errorf("%w: %s expected %d, got %d", ErrBadNonce, signed.Origin, want, got)
	}
	s.IncNonce(signed.Origin)
	return Apply(s, signed.Origin, signed.Envelope.Call, now)
}

func airdrop(s *state.State, who types.AccountID, amount types.Amount, now types.Height) (Result, error) {
	if limit := s.Params.MaxAmount; limit != 0 && amount > limit {
		return Result{}, fmt.Errorf("%w: %d > %d", ErrAmountTooLarge, amount, limit)
	}
	issued, err := s.Gate().RequestAirdrop(who, amount, now)
	if err != nil {
		return Result{}, err
	}
	return Result{Events: []types.Event{issued.Event()}, Data: balanceOf(s, who)}, nil
}

func transfer(s *state.State, from, to types.AccountID, amount types.Balance) (Result, error) {
	if err := s.Bank.Transfer(from, to, amount); err != nil {
		return Result{}, err
	}
	return Result{Data: balanceOf(s, from), Events: []types.Event{{
		Kind: types.EventTransfer,
		Attributes: []types.EventAttribute{
			types.AccountAttr("from", from),
			types.AccountAttr("to", to),
			types.Uint64Attr("amount", uint64(amount)),
		},
	}}}, nil
}

func storeValue(s *state.State, who types.AccountID, v uint32) (Result, error) {
	s.SetSomething(v)
	return Result{Events: []types.Event{{
		Kind: types.EventSomethingStored,
		Attributes: []types.EventAttribute{
			types.Uint64Attr("value", uint64(v)),
			types.AccountAttr("who", who),
		},
	}}}, nil
}

func bumpValue(s *state.State) (Result, error) {
	v, ok := s.Something()
	if !ok {
		return Result{}, ErrNoneValue
	}
	if v == math.MaxUint32 {
		return Result{}, ErrStorageOverflow
	}
	s.SetSomething(v + 1)
	return Result{}, nil
}

// balanceOf encodes who's balance as 8 big-endian bytes.
func balanceOf(s *state.State, who types.AccountID) []byte {
	bal, _ := s.Bank.Balance(who)
	return binary.BigEndian.AppendUint64(nil, uint64(bal))
}

// Code maps an Apply or auth error to its TxOutcome code.
func Code(err error) uint32 {
	switch {
	case err == nil:
		return types.CodeOK
	case errors.Is(err, auth.ErrBadSignature), errors.Is(err, auth.ErrInvalidSigLen), errors.Is(err, auth.ErrUnsupportedKey):
		return types.CodeBadSignature
	case errors.Is(err, auth.ErrMalformed):
		return types.CodeMalformedTx
	case errors.Is(err, ErrBadNonce):
		return types.CodeBadNonce
	case errors.Is(err, ErrUnknownCall):
		return types.CodeUnknownCall
	case errors.Is(err, issuance.ErrDelayNotFinished):
		return types.CodeDelayNotFinished
	case errors.Is(err, issuance.ErrSomethingWentWrong):
		return types.CodeSomethingWentWrong
	case errors.Is(err, ErrAmountTooLarge):
		return types.CodeAmountTooLarge
	case errors.Is(err, currency.ErrInsufficientBalance):
		return types.CodeInsufficientBalance
	case errors.Is(err, currency.ErrBelowExistential):
		return types.CodeBelowExistential
	case errors.Is(err, currency.ErrAccountMissing):
		return types.CodeAccountMissing
	case errors.Is(err, currency.ErrBalanceOverflow):
		return types.CodeBalanceOverflow
	case errors.Is(err, ErrNoneValue):
		return types.CodeNoneValue
	case errors.Is(err, ErrStorageOverflow):
		return types.CodeStorageOverflow
	default:
		return types.CodeMalformedTx
	}
}
