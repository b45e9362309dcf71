package cooldown

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/airdrop/types"
)

func account(n byte) types.AccountID {
	var a types.AccountID
	a[0] = n
	a[19] = n
	return a
}

func TestMap_AbsentMeansNever(t *testing.T) {
	m := NewMap()
	h, ok := m.LastHeight(account(1))
	require.False(t, ok)
	require.Zero(t, h)
	require.Zero(t, m.Len())
}

func TestMap_OverwriteIsUnconditional(t *testing.T) {
	m := NewMap()
	m.SetLastHeight(account(1), 40)
	m.SetLastHeight(account(1), 12)

	h, ok := m.LastHeight(account(1))
	require.True(t, ok)
	require.Equal(t, types.Height(12), h)
	require.Equal(t, 1, m.Len())
}

func TestMap_RecordsSorted(t *testing.T) {
	m := NewMap()
	m.SetLastHeight(account(3), 30)
	m.SetLastHeight(account(1), 10)
	m.SetLastHeight(account(2), 20)

	require.Equal(t, []Record{
		{Account: account(1), Height: 10},
		{Account: account(2), Height: 20},
		{Account: account(3), Height: 30},
	}, m.Records())
}

func TestMap_TakeDirty(t *testing.T) {
	m := FromRecords([]Record{{Account: account(1), Height: 5}})
	require.Empty(t, m.TakeDirty(), "loaded records are clean")

	m.SetLastHeight(account(2), 9)
	m.SetLastHeight(account(2), 11)
	require.Equal(t, []Record{{Account: account(2), Height: 11}}, m.TakeDirty())
	require.Empty(t, m.TakeDirty())
}

func TestMap_CloneIsIndependent(t *testing.T) {
	m := NewMap()
	m.SetLastHeight(account(1), 5)

	c := m.Clone()
	c.SetLastHeight(account(1), 21)
	c.SetLastHeight(account(2), 21)

	h, _ := m.LastHeight(account(1))
	require.Equal(t, types.Height(5), h)
	_, ok := m.LastHeight(account(2))
	require.False(t, ok)
	require.Len(t, m.TakeDirty(), 1)
	require.Len(t, c.TakeDirty(), 2)
}
