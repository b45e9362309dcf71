package currency

import (
	"sort"

	"github.com/blockberries/airdrop/types"
)

// Compile-time interface check.
var _ Ledger = (*Bank)(nil)

// AccountBalance is one persisted balance entry.
type AccountBalance struct {
	Account types.AccountID `cramberry:"1"`
	Balance types.Balance   `cramberry:"2"`
}

// Bank is the in-memory currency ledger. An account exists once it has
// been endowed at genesis or received a transfer of at least the
// existential deposit; accounts are never reaped.
type Bank struct {
	balances    map[types.AccountID]types.Balance
	issuance    types.Balance
	existential types.Balance
	dirty       map[types.AccountID]struct{}
}

// NewBank returns an empty bank with the given existential deposit.
func NewBank(existentialDeposit types.Balance) *Bank {
	return &Bank{
		balances:    make(map[types.AccountID]types.Balance),
		existential: existentialDeposit,
		dirty:       make(map[types.AccountID]struct{}),
	}
}

// FromBalances rebuilds a bank from persisted entries. Total issuance
// is stored separately because it may include value not yet credited
// at the time of the snapshot; callers pass it explicitly.
func FromBalances(existentialDeposit, issuance types.Balance, entries []AccountBalance) *Bank {
	b := NewBank(existentialDeposit)
	for _, e := range entries {
		b.balances[e.Account] = e.Balance
	}
	b.issuance = issuance
	return b
}

// Issue implements Ledger.
func (b *Bank) Issue(amount types.Balance) *Imbalance {
	if headroom := types.MaxBalance - b.issuance; amount > headroom {
		amount = headroom
	}
	b.issuance += amount
	return &Imbalance{
		amount: amount,
		settle: func(rest types.Balance) { b.issuance -= rest },
	}
}

// ResolveIntoExisting implements Ledger.
func (b *Bank) ResolveIntoExisting(who types.AccountID, imb *Imbalance) (*Imbalance, error) {
	if imb.Peek() == 0 {
		return nil, nil
	}
	bal, ok := b.balances[who]
	if !ok {
		return imb, ErrAccountMissing
	}
	if bal > types.MaxBalance-imb.Peek() {
		return imb, ErrBalanceOverflow
	}
	b.credit(who, bal+imb.take())
	return nil, nil
}

// TotalIssuance implements Ledger.
func (b *Bank) TotalIssuance() types.Balance { return b.issuance }

// ExistentialDeposit is the minimum amount that brings an account
// into existence.
func (b *Bank) ExistentialDeposit() types.Balance { return b.existential }

// Balance returns the balance of who and whether the account exists.
func (b *Bank) Balance(who types.AccountID) (types.Balance, bool) {
	bal, ok := b.balances[who]
	return bal, ok
}

// Endow creates or tops up who with freshly issued value. Used for
// genesis allocations.
func (b *Bank) Endow(who types.AccountID, amount types.Balance) error {
	if amount < b.existential {
		if _, ok := b.balances[who]; !ok {
			return ErrBelowExistential
		}
	}
	if amount > types.MaxBalance-b.issuance {
		return ErrBalanceOverflow
	}
	b.issuance += amount
	b.credit(who, b.balances[who]+amount)
	return nil
}

// Transfer moves amount from an existing account to another account,
// creating the destination if amount covers the existential deposit.
// Nothing changes when it returns an error.
func (b *Bank) Transfer(from, to types.AccountID, amount types.Balance) error {
	if from == to {
		return ErrSelfTransfer
	}
	src, ok := b.balances[from]
	if !ok {
		return ErrAccountMissing
	}
	if src < amount {
		return ErrInsufficientBalance
	}
	dst, exists := b.balances[to]
	if !exists && amount < b.existential {
		return ErrBelowExistential
	}
	if dst > types.MaxBalance-amount {
		return ErrBalanceOverflow
	}
	b.credit(from, src-amount)
	b.credit(to, dst+amount)
	return nil
}

// Len returns the number of existing accounts.
func (b *Bank) Len() int { return len(b.balances) }

// Balances returns every account ordered by id.
func (b *Bank) Balances() []AccountBalance {
	out := make([]AccountBalance, 0, len(b.balances))
	for a, v := range b.balances {
		out = append(out, AccountBalance{Account: a, Balance: v})
	}
	sortBalances(out)
	return out
}

// TakeDirty returns the accounts credited or debited since the
// previous call and resets the dirty set.
func (b *Bank) TakeDirty() []AccountBalance {
	out := make([]AccountBalance, 0, len(b.dirty))
	for a := range b.dirty {
		out = append(out, AccountBalance{Account: a, Balance: b.balances[a]})
	}
	sortBalances(out)
	b.dirty = make(map[types.AccountID]struct{})
	return out
}

// Clone returns a deep copy. Imbalances issued by b keep settling
// against b, not the clone.
func (b *Bank) Clone() *Bank {
	c := &Bank{
		balances:    make(map[types.AccountID]types.Balance, len(b.balances)),
		issuance:    b.issuance,
		existential: b.existential,
		dirty:       make(map[types.AccountID]struct{}, len(b.dirty)),
	}
	for a, v := range b.balances {
		c.balances[a] = v
	}
	for a := range b.dirty {
		c.dirty[a] = struct{}{}
	}
	return c
}

func (b *Bank) credit(who types.AccountID, bal types.Balance) {
	b.balances[who] = bal
	b.dirty[who] = struct{}{}
}

func sortBalances(bs []AccountBalance) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].Account.Less(bs[j].Account) })
}
