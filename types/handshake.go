package types

// HandshakeRequest opens every session. A host starting a new chain
// sends Genesis; a restarting host sends the block it last committed.
type HandshakeRequest struct {
	LastCommitted *BlockID    `cramberry:"1"`
	Genesis       *GenesisDoc `cramberry:"2"`
}

// IsGenesis reports whether the host is starting a new chain.
func (r HandshakeRequest) IsGenesis() bool { return r.LastCommitted == nil }

// HandshakeResponse reports the registry's committed position. A nil
// LastBlock means the application has no state yet.
type HandshakeResponse struct {
	LastBlock    *BlockID     `cramberry:"1"`
	AppHash      *AppHash     `cramberry:"2"`
	Capabilities Capabilities `cramberry:"3"`
}
