package app

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/airdrop/state"
	"github.com/blockberries/airdrop/types"
)

// Query serves the read paths below. Every path reads the last
// committed state; a request for any other height is refused.
//
//	/cooldown     [20]account               => [8]last airdrop height
//	/eligibility  [20]account [8]height?    => [1]eligible [8]next eligible height
//	/balance      [20]account               => [8]balance
//	/issuance                               => [8]total issuance
//	/nonce        [20]account               => [8]next nonce
//	/something                              => [4]value
//	/params                                 => cramberry(state.Params)
//
// /eligibility defaults to the next block height when no height is
// given.
func (a *App) Query(_ context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := a.current
	res := types.StateQueryResult{Key: req.Data, Height: s.Height}
	if req.Height != nil && *req.Height != s.Height {
		res.Code = types.CodeHeightMissing
		res.Info = fmt.Sprintf("only height %d is available", s.Height)
		return res, nil
	}

	switch req.Path {
	case types.PathCooldown:
		who, ok := accountArg(req.Data, 0)
		if !ok {
			return badData(res, "data must be [20]account"), nil
		}
		h, found := s.Cooldowns.LastHeight(who)
		if !found {
			res.Code = types.CodeNotFound
			res.Info = "no airdrop recorded"
			return res, nil
		}
		res.Value = encodeUint64(uint64(h))

	case types.PathEligibility:
		who, ok := accountArg(req.Data, 8)
		if !ok {
			return badData(res, "data must be [20]account with optional [8]height"), nil
		}
		at := types.Height(s.Height + 1)
		if len(req.Data) == types.AccountIDLength+8 {
			at = types.Height(binary.BigEndian.Uint64(req.Data[types.AccountIDLength:]))
		}
		eligible, next := s.Gate().Eligibility(who, at)
		v := make([]byte, 9)
		if eligible {
			v[0] = 1
		}
		binary.BigEndian.PutUint64(v[1:], uint64(next))
		res.Value = v

	case types.PathBalance:
		who, ok := accountArg(req.Data, 0)
		if !ok {
			return badData(res, "data must be [20]account"), nil
		}
		bal, found := s.Bank.Balance(who)
		if !found {
			res.Code = types.CodeNotFound
			res.Info = "account does not exist"
			return res, nil
		}
		res.Value = encodeUint64(uint64(bal))

	case types.PathIssuance:
		res.Value = encodeUint64(uint64(s.Bank.TotalIssuance()))

	case types.PathNonce:
		who, ok := accountArg(req.Data, 0)
		if !ok {
			return badData(res, "data must be [20]account"), nil
		}
		res.Value = encodeUint64(s.Nonce(who))

	case types.PathSomething:
		v, ok := s.Something()
		if !ok {
			res.Code = types.CodeNotFound
			res.Info = "value slot is empty"
			return res, nil
		}
		res.Value = binary.BigEndian.AppendUint32(nil, v)

	case types.PathParams:
		raw, err := cramberry.Marshal(s.Params)
		if err != nil {
			return res, fmt.Errorf("encode params: %w", err)
		}
		res.Value = raw

	default:
		res.Code = types.CodeUnknownPath
		res.Info = fmt.Sprintf("unknown query path %q", req.Path)
	}
	return res, nil
}

// accountArg reads a leading account from data, allowing up to extra
// trailing bytes (exactly 0 or extra).
func accountArg(data []byte, extra int) (types.AccountID, bool) {
	if len(data) != types.AccountIDLength && len(data) != types.AccountIDLength+extra {
		return types.AccountID{}, false
	}
	return types.AccountIDFromBytes(data[:types.AccountIDLength])
}

func badData(res types.StateQueryResult, info string) types.StateQueryResult {
	res.Code = types.CodeBadQueryData
	res.Info = info
	return res
}

func encodeUint64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

// AccountQuery builds a query for one of the per-account paths.
func AccountQuery(path types.QueryPath, who types.AccountID) types.StateQuery {
	return types.StateQuery{Path: path, Data: append([]byte(nil), who[:]...)}
}

// EligibilityQuery asks whether who may receive an airdrop at height at.
func EligibilityQuery(who types.AccountID, at types.Height) types.StateQuery {
	data := append([]byte(nil), who[:]...)
	return types.StateQuery{Path: types.PathEligibility, Data: binary.BigEndian.AppendUint64(data, uint64(at))}
}

// DecodeUint64 reads the 8-byte values returned by most paths.
func DecodeUint64(v []byte) (uint64, error) {
	if len(v) != 8 {
		return 0, fmt.Errorf("want 8 bytes, got %d", len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}

// DecodeEligibility reads an /eligibility value.
func DecodeEligibility(v []byte) (bool, types.Height, error) {
	if len(v) != 9 {
		return false, 0, fmt.Errorf("want 9 bytes, got %d", len(v))
	}
	return v[0] == 1, types.Height(binary.BigEndian.Uint64(v[1:])), nil
}

// DecodeParams reads a /params value.
func DecodeParams(v []byte) (state.Params, error) {
	var p state.Params
	if err := cramberry.Unmarshal(v, &p); err != nil {
		return p, fmt.Errorf("decode params: %w", err)
	}
	return p, nil
}
