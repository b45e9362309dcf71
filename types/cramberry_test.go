package types_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/blockberries/airdrop/types"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// roundTrip marshals v, unmarshals into a new T, and returns it.
func roundTrip[T any](t *testing.T, v T) T {
	t.Helper()
	data, err := cramberry.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out T
	if err := cramberry.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return out
}

func TestEnvelope_RoundTrip(t *testing.T) {
	to := types.AccountID{0x0A, 0x0B}
	v := types.Envelope{
		Signer:    types.PublicKey{Type: types.KeyTypeEd25519, Data: bytes.Repeat([]byte{0x07}, 32)},
		Nonce:     9,
		Call:      types.TransferCall(to, 250),
		Signature: []byte{0xDE, 0xAD},
	}
	got := roundTrip(t, v)
	if got.Nonce != 9 || got.Call != v.Call {
		t.Fatalf("Envelope round-trip failed: got %+v", got)
	}
	if got.Call.To != to || got.Call.Kind != types.CallTransfer {
		t.Fatalf("Envelope call mismatch: %+v", got.Call)
	}
	if !bytes.Equal(got.Signer.Data, v.Signer.Data) || !bytes.Equal(got.Signature, v.Signature) {
		t.Fatal("Envelope byte fields mismatch")
	}
}

func TestQueryHeightPointer_RoundTrip(t *testing.T) {
	h := uint64(42)
	v := types.StateQuery{Path: types.PathCooldown, Data: []byte("addr"), Height: &h}
	got := roundTrip(t, v)
	if got.Path != types.PathCooldown || got.Height == nil || *got.Height != 42 {
		t.Fatalf("StateQuery round-trip failed: %+v", got)
	}
}

// TestDeterminism verifies that the same struct always produces
// the same bytes. The app hash and signatures depend on it.
func TestDeterminism(t *testing.T) {
	v := types.FinalizedBlock{
		Height:        42,
		Time:          types.TimeToTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 500, time.UTC)),
		Txs:           []types.Tx{[]byte("a"), []byte("b")},
		LastBlockHash: types.Hash{0xFF},
	}
	data1, err := cramberry.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	data2, err := cramberry.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data1, data2) {
		t.Fatalf("non-deterministic encoding:\n%x\n%x", data1, data2)
	}

	p := types.SigningPayload{ChainID: "c", Nonce: 1, Call: types.AirdropCall(100)}
	s1, _ := cramberry.Marshal(p)
	p.Nonce = 2
	s2, _ := cramberry.Marshal(p)
	if bytes.Equal(s1, s2) {
		t.Fatal("signing payload must change with the nonce")
	}
}

func TestAccountID_ParseString(t *testing.T) {
	a := types.AccountID{0x01, 0xAB}
	a[19] = 0xFF

	s := a.String()
	if s[:2] != "0x" || len(s) != 2+2*types.AccountIDLength {
		t.Fatalf("unexpected account string %q", s)
	}
	got, err := types.ParseAccountID(s)
	if err != nil {
		t.Fatalf("ParseAccountID: %v", err)
	}
	if got != a {
		t.Fatalf("parsed %s, want %s", got, a)
	}
	if _, err := types.ParseAccountID(s[4:]); err == nil {
		t.Fatal("expected error for short account")
	}
	if _, err := types.ParseAccountID("0xzz"); err == nil {
		t.Fatal("expected error for non-hex account")
	}
}

func TestAccountID_Less(t *testing.T) {
	a := types.AccountID{0x01}
	b := types.AccountID{0x02}
	if !a.Less(b) || b.Less(a) || a.Less(a) {
		t.Fatal("Less is not a strict bytewise order")
	}
}

func TestCapabilities_String(t *testing.T) {
	if s := types.Capabilities(0).String(); s != "none" {
		t.Errorf("expected none, got %s", s)
	}
	c := types.CapStateSync | types.CapSimulation
	if s := c.String(); s != "StateSync|Simulation" {
		t.Errorf("unexpected %s", s)
	}
}

func TestEvent_Attr(t *testing.T) {
	who := types.AccountID{0x05}
	e := types.Event{
		Kind:       types.EventAirdrop,
		Attributes: []types.EventAttribute{types.Uint64Attr("amount", 100), types.AccountAttr("who", who)},
	}
	if v, ok := e.Attr("amount"); !ok || v != "100" {
		t.Errorf("amount attr = %q, %v", v, ok)
	}
	if v, ok := e.Attr("who"); !ok || v != who.String() {
		t.Errorf("who attr = %q, %v", v, ok)
	}
	if _, ok := e.Attr("missing"); ok {
		t.Error("expected missing attribute")
	}
}
