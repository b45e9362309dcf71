package main

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/airdrop/auth"
	"github.com/blockberries/airdrop/config"
	"github.com/blockberries/airdrop/logging"
	"github.com/blockberries/airdrop/state"
	"github.com/blockberries/airdrop/store"
	"github.com/blockberries/airdrop/types"
)

var testSeed = strings.Repeat("07", ed25519.SeedSize)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return strings.TrimSpace(out.String()), err
}

func testAccount(t *testing.T) types.AccountID {
	t.Helper()
	key, err := parseSeed(testSeed)
	require.NoError(t, err)
	return auth.AccountFromPublicKey(key.Public().(ed25519.PublicKey))
}

func TestKeygenFromSeed(t *testing.T) {
	out, err := execute(t, "keygen", "--seed", testSeed)
	require.NoError(t, err)

	var info keyInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.Equal(t, testAccount(t).String(), info.Account)
	require.Equal(t, testSeed, info.Seed)
}

func TestKeygenRandom(t *testing.T) {
	a, err := execute(t, "keygen")
	require.NoError(t, err)
	b, err := execute(t, "keygen")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestKeygenBadSeed(t *testing.T) {
	_, err := execute(t, "keygen", "--seed", "abcd")
	require.Error(t, err)
}

func TestSignAirdrop(t *testing.T) {
	out, err := execute(t, "sign", "airdrop", "250", "--seed", testSeed, "--chain-id", "c1", "--nonce", "3")
	require.NoError(t, err)

	raw, err := hex.DecodeString(out)
	require.NoError(t, err)
	signed, err := auth.Open("c1", types.Tx(raw))
	require.NoError(t, err)
	require.Equal(t, testAccount(t), signed.Origin)
	require.Equal(t, uint64(3), signed.Envelope.Nonce)
	require.Equal(t, types.AirdropCall(250), signed.Envelope.Call)

	_, err = auth.Open("other", types.Tx(raw))
	require.ErrorIs(t, err, auth.ErrBadSignature)
}

func TestSignTransfer(t *testing.T) {
	to := types.AccountID{1, 2, 3}
	out, err := execute(t, "sign", "transfer", to.String(), "9", "--seed", testSeed, "--chain-id", "c1")
	require.NoError(t, err)

	raw, err := hex.DecodeString(out)
	require.NoError(t, err)
	signed, err := auth.Open("c1", types.Tx(raw))
	require.NoError(t, err)
	require.Equal(t, types.TransferCall(to, 9), signed.Envelope.Call)
}

func TestSignRequiresSeed(t *testing.T) {
	_, err := execute(t, "sign", "airdrop", "1", "--chain-id", "c1")
	require.Error(t, err)
}

func TestGenesisPrint(t *testing.T) {
	who := testAccount(t)
	out, err := execute(t, "genesis", "--delay", "4", "--max-amount", "100", "--account", who.String()+"=50")
	require.NoError(t, err)

	g, err := state.ParseGenesis([]byte(out))
	require.NoError(t, err)
	require.Equal(t, types.Height(4), g.Params.Delay)
	require.Equal(t, types.Amount(100), g.Params.MaxAmount)
	require.Equal(t, []state.GenesisAccount{{Address: who.String(), Balance: 50}}, g.Accounts)
}

func TestGenesisRejectsBadAccounts(t *testing.T) {
	who := testAccount(t).String()
	for name, args := range map[string][]string{
		"no balance":  {"--account", who},
		"bad address": {"--account", "zz=1"},
		"duplicate":   {"--account", who + "=1", "--account", who + "=2"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, append([]string{"genesis"}, args...)...)
			require.Error(t, err)
		})
	}
}

func TestGenesisWrite(t *testing.T) {
	home := t.TempDir()
	out, err := execute(t, "genesis", "--write", "--home", home)
	require.NoError(t, err)

	path := filepath.Join(home, "genesis.json")
	require.Equal(t, path, out)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	g, err := state.ParseGenesis(raw)
	require.NoError(t, err)
	require.Equal(t, state.DefaultParams(), g.Params)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Cleanup(logging.Sync)
	home := t.TempDir()
	cfg := config.Config{
		Home:     home,
		GRPCAddr: "127.0.0.1:0",
		Log:      logging.Config{Level: "error"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, run(ctx, cfg))

	// The data directory holds a usable, empty store.
	st, err := store.Open(cfg.DataDir(), store.Options{})
	require.NoError(t, err)
	defer st.Close()
	_, ok, err := st.Meta()
	require.NoError(t, err)
	require.False(t, ok)
}
