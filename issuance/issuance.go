// Package issuance gates airdrop requests: a caller may mint to itself
// at most once per Delay blocks.
//
// The gate is synchronous and holds no locks. The caller serializes
// requests (one block executes at a time) and decides whether the
// writes it performs are kept.
package issuance

import (
	"errors"
	"fmt"

	"github.com/blockberries/airdrop/cooldown"
	"github.com/blockberries/airdrop/currency"
	"github.com/blockberries/airdrop/types"
)

// Delay is the default cooldown window in blocks.
const Delay types.Height = 16

var (
	// ErrDelayNotFinished is returned when the caller's previous
	// airdrop is less than Delay blocks old.
	ErrDelayNotFinished = errors.New("delay not finished")

	// ErrSomethingWentWrong is returned when minted funds could not be
	// credited to the caller. The mint is rolled back.
	ErrSomethingWentWrong = errors.New("something went wrong")
)

// Issued describes one accepted airdrop.
type Issued struct {
	Amount types.Amount
	Who    types.AccountID
}

// Event renders the Airdrop(amount, who) event.
func (i Issued) Event() types.Event {
	return types.Event{
		Kind: types.EventAirdrop,
		Attributes: []types.EventAttribute{
			types.Uint64Attr("amount", uint64(i.Amount)),
			types.AccountAttr("who", i.Who),
		},
	}
}

// Option configures a Gate.
type Option func(*Gate)

// WithDelay overrides the cooldown window. A zero delay disables the
// window entirely.
func WithDelay(d types.Height) Option {
	return func(g *Gate) { g.delay = d }
}

// Gate is the issuance gate. Its storage is injected; it owns no state
// of its own.
type Gate struct {
	cooldowns cooldown.Ledger
	currency  currency.Ledger
	delay     types.Height
}

// NewGate returns a gate over the given cooldown and currency ledgers.
func NewGate(c cooldown.Ledger, cur currency.Ledger, opts ...Option) *Gate {
	g := &Gate{cooldowns: c, currency: cur, delay: Delay}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Delay returns the configured window.
func (g *Gate) Delay() types.Height { return g.delay }

// RequestAirdrop mints amount to who at height now. On error neither
// ledger has changed.
func (g *Gate) RequestAirdrop(who types.AccountID, amount types.Amount, now types.Height) (Issued, error) {
	if ok, next := g.Eligibility(who, now); !ok {
		return Issued{}, fmt.Errorf("%w: %s eligible at height %d", ErrDelayNotFinished, who, next)
	}

	want := currency.FromAmount(amount)
	imb := g.currency.Issue(want)
	// Issuance saturated below the request; crediting a partial mint
	// would break the issuance accounting the event reports.
	if imb.Peek() != want {
		imb.Drop()
		return Issued{}, fmt.Errorf("%w: total issuance would overflow", ErrSomethingWentWrong)
	}
	if rest, err := g.currency.ResolveIntoExisting(who, imb); err != nil {
		rest.Drop()
		return Issued{}, fmt.Errorf("%w: %w", ErrSomethingWentWrong, err)
	}

	g.cooldowns.SetLastHeight(who, now)
	return Issued{Amount: amount, Who: who}, nil
}

// Eligibility reports whether who may receive an airdrop at height now
// and, if not, the first height at which it may. An account with no
// record is always eligible. A recorded height above now counts as
// zero blocks elapsed.
func (g *Gate) Eligibility(who types.AccountID, now types.Height) (bool, types.Height) {
	last, ok := g.cooldowns.LastHeight(who)
	if !ok {
		return true, now
	}
	var elapsed types.Height
	if now > last {
		elapsed = now - last
	}
	if elapsed >= g.delay {
		return true, now
	}
	return false, saturatingAdd(last, g.delay)
}

func saturatingAdd(a, b types.Height) types.Height {
	if a > ^types.Height(0)-b {
		return ^types.Height(0)
	}
	return a + b
}
