package types

// KeyType identifies a signature algorithm.
type KeyType uint8

const (
	KeyTypeEd25519 KeyType = 1
)

// PublicKey is a signer's public key as carried in an Envelope.
type PublicKey struct {
	Type KeyType `cramberry:"1"`
	Data []byte  `cramberry:"2"`
}
