package types

// HandshakeRequest is sent by the host on every startup.
type HandshakeRequest struct {
	// The last block the HOST committed. Nil = genesis (fresh chain).
	LastCommitted *BlockID `cramberry:"1"`
	// Raw genesis document. Only set when LastCommitted is nil.
	Genesis *GenesisDoc `cramberry:"2"`
}

// HandshakeResponse is the application's reply, reporting its
// state and capabilities.
type HandshakeResponse struct {
	// The last block the APP committed. Nil = app has no state.
	LastBlock *BlockID `cramberry:"1"`
	// App hash at that height (for consistency check with the host).
	AppHash *AppHash `cramberry:"2"`
	// Capabilities this app supports.
	Capabilities Capabilities `cramberry:"3"`
}
