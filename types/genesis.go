package types

// GenesisDoc is the raw genesis document for chain initialization.
type GenesisDoc struct {
	ChainID       string    `cramberry:"1"`
	GenesisTime   Timestamp `cramberry:"2"`
	InitialHeight uint64    `cramberry:"3"`
	// Application genesis state, JSON-encoded (see app.GenesisState).
	AppState []byte `cramberry:"4"`
}
