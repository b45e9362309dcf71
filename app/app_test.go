package app

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/blockberries/airdrop"
	"github.com/blockberries/airdrop/state"
	"github.com/blockberries/airdrop/store"
	airdroptest "github.com/blockberries/airdrop/testing"
	"github.com/blockberries/airdrop/types"
)

func TestApp_Compliance(t *testing.T) {
	airdroptest.RunComplianceSuite(t, func() airdrop.Lifecycle {
		return New()
	})
}

func TestApp_ComplianceWithStore(t *testing.T) {
	airdroptest.RunComplianceSuite(t, func() airdrop.Lifecycle {
		st, err := store.OpenMem()
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		t.Cleanup(func() { st.Close() })
		return New(WithStore(st))
	})
}

func TestApp_Capabilities(t *testing.T) {
	h := airdroptest.NewHarness(t, New())
	resp := h.GenesisDefault()

	if !resp.Capabilities.Has(types.CapStateSync) {
		t.Error("expected CapStateSync")
	}
	if !resp.Capabilities.Has(types.CapSimulation) {
		t.Error("expected CapSimulation")
	}
}

// chain wraps a harness and the next height to execute.
type chain struct {
	t    *testing.T
	h    *airdroptest.Harness
	next uint64
}

func newChain(t *testing.T, app *App, params state.Params, signers ...*airdroptest.Signer) *chain {
	t.Helper()
	h := airdroptest.NewHarness(t, app)
	h.Genesis(airdroptest.GenesisWith(t, params, 1000, signers...))
	return &chain{t: t, h: h, next: 1}
}

// at executes empty blocks up to height-1, then a block at height
// holding txs.
func (c *chain) at(height uint64, txs ...types.Tx) types.BlockOutcome {
	c.t.Helper()
	for ; c.next < height; c.next++ {
		c.h.ExecuteAndCommit(airdroptest.MakeEmptyBlock(c.next))
	}
	c.next = height + 1
	return c.h.ExecuteAndCommit(airdroptest.MakeBlock(height, txs...))
}

func (c *chain) issuance() uint64 {
	c.t.Helper()
	return c.u64(c.h.Query(types.PathIssuance, nil))
}

func (c *chain) u64(res types.StateQueryResult) uint64 {
	c.t.Helper()
	if res.Code != types.CodeOK {
		c.t.Fatalf("query failed: code=%d %s", res.Code, res.Info)
	}
	v, err := DecodeUint64(res.Value)
	if err != nil {
		c.t.Fatalf("decode: %v", err)
	}
	return v
}

func (c *chain) account(path types.QueryPath, who types.AccountID) types.StateQueryResult {
	c.t.Helper()
	res, err := c.h.Conn().Query(context.Background(), AccountQuery(path, who))
	if err != nil {
		c.t.Fatalf("query %s: %v", path, err)
	}
	return res
}

func (c *chain) cooldown(who types.AccountID) (uint64, bool) {
	c.t.Helper()
	res := c.account(types.PathCooldown, who)
	if res.Code == types.CodeNotFound {
		return 0, false
	}
	return c.u64(res), true
}

func TestApp_Scenario(t *testing.T) {
	alice := airdroptest.NewSigner(t, 1)
	c := newChain(t, New(), state.DefaultParams(), alice)
	base := c.issuance()

	out := c.at(5, alice.Airdrop(100))
	if !out.TxOutcomes[0].OK() {
		t.Fatalf("airdrop at 5 failed: %s", out.TxOutcomes[0].Info)
	}
	ev := out.TxOutcomes[0].Events
	if len(ev) != 1 || ev[0].Kind != types.EventAirdrop {
		t.Fatalf("expected one airdrop event, got %+v", ev)
	}
	if who, _ := ev[0].Attr("who"); who != alice.Account().String() {
		t.Errorf("event who = %s", who)
	}
	if h, ok := c.cooldown(alice.Account()); !ok || h != 5 {
		t.Errorf("expected cooldown 5, got %d (%v)", h, ok)
	}
	if got := c.issuance(); got != base+100 {
		t.Errorf("expected issuance %d, got %d", base+100, got)
	}

	out = c.at(18, alice.Airdrop(50))
	if out.TxOutcomes[0].Code != types.CodeDelayNotFinished {
		t.Fatalf("expected DelayNotFinished at 18, got code=%d %s", out.TxOutcomes[0].Code, out.TxOutcomes[0].Info)
	}
	if len(out.TxOutcomes[0].Events) != 0 {
		t.Error("rejected airdrop emitted events")
	}
	if got := c.issuance(); got != base+100 {
		t.Errorf("issuance changed on rejection: %d", got)
	}
	if h, _ := c.cooldown(alice.Account()); h != 5 {
		t.Errorf("cooldown changed on rejection: %d", h)
	}

	out = c.at(21, alice.Airdrop(50))
	if !out.TxOutcomes[0].OK() {
		t.Fatalf("airdrop at 21 failed: %s", out.TxOutcomes[0].Info)
	}
	if h, _ := c.cooldown(alice.Account()); h != 21 {
		t.Errorf("expected cooldown 21, got %d", h)
	}
	if got := c.issuance(); got != base+150 {
		t.Errorf("expected issuance %d, got %d", base+150, got)
	}
	bal := c.u64(c.account(types.PathBalance, alice.Account()))
	if bal != 1150 {
		t.Errorf("expected balance 1150, got %d", bal)
	}
}

func TestApp_SameBlockSecondRequestRejected(t *testing.T) {
	alice := airdroptest.NewSigner(t, 1)
	c := newChain(t, New(), state.DefaultParams(), alice)

	out := c.at(3, alice.Airdrop(10), alice.Airdrop(10))
	if !out.TxOutcomes[0].OK() {
		t.Fatalf("first airdrop failed: %s", out.TxOutcomes[0].Info)
	}
	if out.TxOutcomes[1].Code != types.CodeDelayNotFinished {
		t.Fatalf("expected DelayNotFinished, got %d", out.TxOutcomes[1].Code)
	}
	// Both envelopes consumed a nonce.
	n := c.u64(c.account(types.PathNonce, alice.Account()))
	if n != 2 {
		t.Errorf("expected nonce 2, got %d", n)
	}
}

func TestApp_MissingAccountThenTransfer(t *testing.T) {
	alice := airdroptest.NewSigner(t, 1)
	bob := airdroptest.NewSigner(t, 2)
	c := newChain(t, New(), state.DefaultParams(), alice)
	base := c.issuance()

	out := c.at(1, bob.Airdrop(10))
	if out.TxOutcomes[0].Code != types.CodeSomethingWentWrong {
		t.Fatalf("expected SomethingWentWrong, got %d %s", out.TxOutcomes[0].Code, out.TxOutcomes[0].Info)
	}
	if got := c.issuance(); got != base {
		t.Errorf("mint not rolled back: %d", got)
	}
	if _, ok := c.cooldown(bob.Account()); ok {
		t.Error("cooldown recorded for failed airdrop")
	}

	out = c.at(2, alice.Transfer(bob.Account(), 1), bob.Airdrop(10))
	for i, o := range out.TxOutcomes {
		if !o.OK() {
			t.Fatalf("tx %d failed: %s", i, o.Info)
		}
	}
	if got := c.issuance(); got != base+10 {
		t.Errorf("expected issuance %d, got %d", base+10, got)
	}
}

func TestApp_GenesisMaxAmount(t *testing.T) {
	alice := airdroptest.NewSigner(t, 1)
	p := state.DefaultParams()
	p.MaxAmount = 100
	c := newChain(t, New(), p, alice)

	c.h.MustRejectTx(alice.TxAt(0, types.AirdropCall(101)), types.CodeAmountTooLarge)
	out := c.at(1, alice.Airdrop(101))
	if out.TxOutcomes[0].Code != types.CodeAmountTooLarge {
		t.Fatalf("expected AmountTooLarge, got %d", out.TxOutcomes[0].Code)
	}
	if _, ok := c.cooldown(alice.Account()); ok {
		t.Error("cooldown recorded for refused request")
	}
}

func TestApp_CheckTx(t *testing.T) {
	alice := airdroptest.NewSigner(t, 1)
	c := newChain(t, New(WithMempoolMaxAmount(500)), state.DefaultParams(), alice)

	c.h.MustAcceptTx(alice.TxAt(0, types.AirdropCall(10)))
	c.h.MustRejectTx(alice.TxAt(0, types.AirdropCall(501)), types.CodeAmountTooLarge)
	if v := c.h.CheckTx(types.Tx{0xde, 0xad}); v.Accepted() {
		t.Error("garbage tx accepted")
	}
	c.h.MustRejectTx(alice.TxAt(0, types.Call{Kind: 42}), types.CodeUnknownCall)

	v := c.h.CheckTx(alice.TxAt(0, types.AirdropCall(10)))
	if v.Sender != alice.Account().String() {
		t.Errorf("expected sender %s, got %s", alice.Account(), v.Sender)
	}

	c.at(1, alice.Airdrop(10))

	// Cooling against the committed height, and the nonce moved on.
	c.h.MustRejectTx(alice.TxAt(1, types.AirdropCall(10)), types.CodeDelayNotFinished)
	c.h.MustRejectTx(alice.TxAt(0, types.StoreValueCall(1)), types.CodeBadNonce)
	c.h.MustAcceptTx(alice.TxAt(1, types.StoreValueCall(1)))
}

func TestApp_BadSignature(t *testing.T) {
	alice := airdroptest.NewSigner(t, 1)
	c := newChain(t, New(), state.DefaultParams(), alice)

	tx := alice.TxAt(0, types.AirdropCall(10))
	tx[len(tx)-1] ^= 0xff
	out := c.at(1, tx)
	if out.TxOutcomes[0].Code != types.CodeBadSignature && out.TxOutcomes[0].Code != types.CodeMalformedTx {
		t.Fatalf("expected signature failure, got %d", out.TxOutcomes[0].Code)
	}
	if n := c.u64(c.account(types.PathNonce, alice.Account())); n != 0 {
		t.Errorf("unauthenticated tx consumed a nonce")
	}
}

func TestApp_ValueSlot(t *testing.T) {
	alice := airdroptest.NewSigner(t, 1)
	c := newChain(t, New(), state.DefaultParams(), alice)

	if res := c.h.Query(types.PathSomething, nil); res.Code != types.CodeNotFound {
		t.Fatalf("expected NotFound, got %d", res.Code)
	}
	out := c.at(1, alice.Tx(types.BumpValueCall()), alice.Tx(types.StoreValueCall(7)), alice.Tx(types.BumpValueCall()))
	if out.TxOutcomes[0].Code != types.CodeNoneValue {
		t.Errorf("expected NoneValue, got %d", out.TxOutcomes[0].Code)
	}
	if out.TxOutcomes[1].Events[0].Kind != types.EventSomethingStored {
		t.Errorf("expected something_stored event")
	}
	res := c.h.Query(types.PathSomething, nil)
	if got := binary.BigEndian.Uint32(res.Value); got != 8 {
		t.Errorf("expected 8, got %d", got)
	}
}

func TestApp_Queries(t *testing.T) {
	alice := airdroptest.NewSigner(t, 1)
	p := state.Params{Delay: 4, ExistentialDeposit: 1, MaxAmount: 9}
	c := newChain(t, New(), p, alice)
	c.at(2, alice.Airdrop(5))

	res := c.h.Query(types.PathParams, nil)
	got, err := DecodeParams(res.Value)
	if err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if got != p {
		t.Errorf("params = %+v", got)
	}

	q := EligibilityQuery(alice.Account(), 5)
	res, err = c.h.Conn().Query(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	ok, next, err := DecodeEligibility(res.Value)
	if err != nil || ok || next != 6 {
		t.Errorf("eligibility at 5 = %v, %d, %v", ok, next, err)
	}
	res = c.account(types.PathEligibility, alice.Account())
	if ok, _, _ := DecodeEligibility(res.Value); ok {
		t.Error("expected cooling at next height 3")
	}

	if res := c.h.Query(types.PathBalance, []byte{1, 2}); res.Code != types.CodeBadQueryData {
		t.Errorf("expected BadQueryData, got %d", res.Code)
	}
	if res := c.h.Query("/nope", nil); res.Code != types.CodeUnknownPath {
		t.Errorf("expected UnknownPath, got %d", res.Code)
	}
	old := uint64(1)
	res, err = c.h.Conn().Query(context.Background(), types.StateQuery{Path: types.PathIssuance, Height: &old})
	if err != nil {
		t.Fatal(err)
	}
	if res.Code != types.CodeHeightMissing {
		t.Errorf("expected HeightMissing, got %d", res.Code)
	}
}

func TestApp_Simulate(t *testing.T) {
	alice := airdroptest.NewSigner(t, 1)
	c := newChain(t, New(), state.DefaultParams(), alice)
	base := c.issuance()

	o := c.h.Simulate(alice.TxAt(0, types.AirdropCall(10)))
	if !o.OK() {
		t.Fatalf("simulate failed: %s", o.Info)
	}
	if got := c.issuance(); got != base {
		t.Errorf("simulation changed state")
	}
}

func TestApp_HeightMustIncrease(t *testing.T) {
	c := newChain(t, New(), state.DefaultParams())
	c.at(3)

	_, err := c.h.Conn().ExecuteBlock(context.Background(), airdroptest.MakeEmptyBlock(3))
	if err == nil {
		t.Fatal("expected error for repeated height")
	}
	// The guard allows the block to be retried at a valid height.
	c.h.ExecuteAndCommit(airdroptest.MakeEmptyBlock(4))
}
