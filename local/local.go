// Package local provides a zero-copy, in-process connection.
//
// For hosts that compile the kudos application into the same binary,
// this adapter wraps the application with lifecycle state machine
// enforcement and capability discovery, with no serialization
// overhead.
package local

import (
	"context"

	"github.com/blockberries/kudos"
	"github.com/blockberries/kudos/server"
	"github.com/blockberries/kudos/types"
)

// Compile-time interface check.
var _ kudos.Connection = (*Connection)(nil)

// Connection wraps a local Lifecycle implementation with lifecycle
// enforcement and capability discovery.
type Connection struct {
	srv *server.Server
}

// NewConnection creates an in-process connection wrapping the given
// application.
func NewConnection(app kudos.Lifecycle, opts ...server.Option) *Connection {
	return &Connection{srv: server.New(app, opts...)}
}

func (c *Connection) Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	return c.srv.Handshake(ctx, req)
}

func (c *Connection) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	return c.srv.CheckTx(ctx, tx, mctx)
}

func (c *Connection) ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	return c.srv.ExecuteBlock(ctx, block)
}

func (c *Connection) Commit(ctx context.Context) (types.CommitResult, error) {
	return c.srv.Commit(ctx)
}

func (c *Connection) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	return c.srv.Query(ctx, req)
}

func (c *Connection) Capabilities() types.Capabilities {
	return c.srv.Capabilities()
}

func (c *Connection) AsStateSync() kudos.StateSync {
	return c.srv.AsStateSync()
}

func (c *Connection) AsSimulator() kudos.Simulator {
	return c.srv.AsSimulator()
}

func (c *Connection) Close() error { return nil }

// Server returns the underlying server for advanced use cases.
func (c *Connection) Server() *server.Server {
	return c.srv
}
