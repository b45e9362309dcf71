package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/airdrop/cooldown"
	"github.com/blockberries/airdrop/currency"
	"github.com/blockberries/airdrop/types"
)

func account(n byte) types.AccountID {
	var a types.AccountID
	a[0] = n
	return a
}

func populated(t *testing.T) *State {
	t.Helper()
	s := New("test-chain", DefaultParams())
	s.Height = 9
	require.NoError(t, s.Bank.Endow(account(2), 20))
	require.NoError(t, s.Bank.Endow(account(1), 10))
	s.Cooldowns.SetLastHeight(account(2), 4)
	s.IncNonce(account(1))
	s.SetSomething(77)
	return s
}

func TestEncodeDecode(t *testing.T) {
	s := populated(t)
	data, err := s.Encode()
	require.NoError(t, err)

	r, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, s.Snapshot(), r.Snapshot())

	h1, err := s.AppHash()
	require.NoError(t, err)
	h2, err := r.AppHash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestAppHash_OrderIndependent(t *testing.T) {
	a := New("c", DefaultParams())
	b := New("c", DefaultParams())
	for _, n := range []byte{1, 2, 3} {
		require.NoError(t, a.Bank.Endow(account(n), 5))
		a.Cooldowns.SetLastHeight(account(n), types.Height(n))
	}
	for _, n := range []byte{3, 1, 2} {
		require.NoError(t, b.Bank.Endow(account(n), 5))
		b.Cooldowns.SetLastHeight(account(n), types.Height(n))
	}
	ha, err := a.AppHash()
	require.NoError(t, err)
	hb, err := b.AppHash()
	require.NoError(t, err)
	require.Equal(t, ha, hb)

	b.SetSomething(1)
	hb, err = b.AppHash()
	require.NoError(t, err)
	require.NotEqual(t, ha, hb)
}

func TestClone_Independent(t *testing.T) {
	s := populated(t)
	c := s.Clone()
	c.IncNonce(account(1))
	c.SetSomething(1)
	c.Cooldowns.SetLastHeight(account(1), 50)

	require.Equal(t, uint64(1), s.Nonce(account(1)))
	v, ok := s.Something()
	require.True(t, ok)
	require.Equal(t, uint32(77), v)
	_, ok = s.Cooldowns.LastHeight(account(1))
	require.False(t, ok)
}

func TestTakeChanges(t *testing.T) {
	s := populated(t)
	ch := s.TakeChanges()
	require.Equal(t, uint64(9), ch.Height)
	require.Equal(t, types.Balance(30), ch.Issuance)
	require.Equal(t, []cooldown.Record{{Account: account(2), Height: 4}}, ch.Cooldowns)
	require.Equal(t, []currency.AccountBalance{
		{Account: account(1), Balance: 10},
		{Account: account(2), Balance: 20},
	}, ch.Balances)
	require.Equal(t, []NonceRecord{{Account: account(1), Nonce: 1}}, ch.Nonces)
	require.NotNil(t, ch.Something)
	require.Equal(t, uint32(77), *ch.Something)

	ch = s.TakeChanges()
	require.Empty(t, ch.Cooldowns)
	require.Empty(t, ch.Balances)
	require.Empty(t, ch.Nonces)
	require.Nil(t, ch.Something)
}

func TestGenesis(t *testing.T) {
	raw := []byte(`{
		"params": {"delay": 4, "existential_deposit": 5, "max_amount": 1000},
		"accounts": [{"address": "` + account(1).String() + `", "balance": 50}]
	}`)
	g, err := ParseGenesis(raw)
	require.NoError(t, err)
	require.Equal(t, Params{Delay: 4, ExistentialDeposit: 5, MaxAmount: 1000}, g.Params)

	s, events, err := g.Build("c")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, types.EventEndowed, events[0].Kind)
	bal, ok := s.Bank.Balance(account(1))
	require.True(t, ok)
	require.Equal(t, types.Balance(50), bal)
	require.Equal(t, types.Height(4), s.Gate().Delay())
}

func TestGenesis_Defaults(t *testing.T) {
	g, err := ParseGenesis(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultParams(), g.Params)

	g, err = ParseGenesis([]byte(`{"accounts": []}`))
	require.NoError(t, err)
	require.Equal(t, DefaultParams(), g.Params)
}

func TestGenesis_Invalid(t *testing.T) {
	_, err := ParseGenesis([]byte(`{`))
	require.ErrorIs(t, err, ErrInvalidGenesis)

	g := Genesis{Params: DefaultParams(), Accounts: []GenesisAccount{{Address: "zz", Balance: 1}}}
	_, _, err = g.Build("c")
	require.ErrorIs(t, err, ErrInvalidGenesis)

	g.Accounts = []GenesisAccount{
		{Address: account(1).String(), Balance: 1},
		{Address: account(1).String(), Balance: 1},
	}
	_, _, err = g.Build("c")
	require.ErrorIs(t, err, ErrInvalidGenesis)

	g = Genesis{Params: Params{Delay: 16, ExistentialDeposit: 10}, Accounts: []GenesisAccount{{Address: account(1).String(), Balance: 9}}}
	_, _, err = g.Build("c")
	require.ErrorIs(t, err, currency.ErrBelowExistential)
}
