package types

import "fmt"

// CallKind selects the state transition an Envelope dispatches.
type CallKind uint8

const (
	// CallAirdrop mints Amount to the signer, at most once per
	// cooldown window.
	CallAirdrop CallKind = 1
	// CallTransfer moves Amount from the signer to To.
	CallTransfer CallKind = 2
	// CallStoreValue writes Value into the placeholder slot.
	CallStoreValue CallKind = 3
	// CallBumpValue increments the placeholder slot.
	CallBumpValue CallKind = 4
)

func (k CallKind) String() string {
	switch k {
	case CallAirdrop:
		return "airdrop"
	case CallTransfer:
		return "transfer"
	case CallStoreValue:
		return "store_value"
	case CallBumpValue:
		return "bump_value"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Call is the signed intent inside an Envelope. Fields not used by
// Kind must be zero.
type Call struct {
	Kind   CallKind  `cramberry:"1"`
	Amount uint64    `cramberry:"2"`
	To     AccountID `cramberry:"3"`
	Value  uint32    `cramberry:"4"`
}

// AirdropCall asks for amount to be minted to the signer.
func AirdropCall(amount Amount) Call {
	return Call{Kind: CallAirdrop, Amount: uint64(amount)}
}

// TransferCall moves amount from the signer to to.
func TransferCall(to AccountID, amount Balance) Call {
	return Call{Kind: CallTransfer, To: to, Amount: uint64(amount)}
}

// StoreValueCall writes v into the placeholder slot.
func StoreValueCall(v uint32) Call {
	return Call{Kind: CallStoreValue, Value: v}
}

// BumpValueCall increments the placeholder slot.
func BumpValueCall() Call {
	return Call{Kind: CallBumpValue}
}

// Envelope is the decoded form of a Tx: a call, the key that signed
// it and the signer's nonce.
type Envelope struct {
	Signer    PublicKey `cramberry:"1"`
	Nonce     uint64    `cramberry:"2"`
	Call      Call      `cramberry:"3"`
	Signature []byte    `cramberry:"4"`
}

// SigningPayload is the message an Envelope signature covers.
type SigningPayload struct {
	ChainID string `cramberry:"1"`
	Nonce   uint64 `cramberry:"2"`
	Call    Call   `cramberry:"3"`
}
