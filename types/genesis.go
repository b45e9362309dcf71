package types

// GenesisDoc is the raw genesis document for chain initialization.
type GenesisDoc struct {
	ChainID       string    `cramberry:"1"`
	GenesisTime   Timestamp `cramberry:"2"`
	InitialHeight uint64    `cramberry:"3"`
	// Application genesis state, JSON encoded (see state.Genesis).
	// Empty means default parameters and no endowed accounts.
	AppState []byte `cramberry:"4"`
}
