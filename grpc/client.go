package kudosgrpc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/blockberries/kudos"
	"github.com/blockberries/kudos/server"
	"github.com/blockberries/kudos/types"

	"google.golang.org/grpc"
)

var _ kudos.Connection = (*Client)(nil)

// Client implements kudos.Connection for a remote application over
// gRPC using cramberry serialization.
type Client struct {
	cc    *grpc.ClientConn
	caps  types.Capabilities
	guard *server.LifecycleGuard
}

// Dial connects to a remote kudos application.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(CramberryCodec{}),
	))
	cc, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("kudos client: dial %s: %w", addr, err)
	}
	return &Client{
		cc:    cc,
		guard: server.NewLifecycleGuard(),
	}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

// --- Lifecycle ---

func (c *Client) Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	if err := c.guard.BeginHandshake(); err != nil {
		return types.HandshakeResponse{}, err
	}

	resp := new(types.HandshakeResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Handshake"), &req, resp); err != nil {
		c.guard.AbortHandshake()
		return types.HandshakeResponse{}, err
	}

	c.caps = resp.Capabilities
	c.guard.EndHandshake()
	return *resp, nil
}

func (c *Client) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	if err := c.guard.CheckRead("CheckTx"); err != nil {
		return types.GateVerdict{}, err
	}

	req := &CheckTxRequest{Tx: tx, Context: mctx}
	resp := new(types.GateVerdict)
	if err := c.cc.Invoke(ctx, fullMethod("CheckTx"), req, resp); err != nil {
		return types.GateVerdict{}, err
	}
	return *resp, nil
}

func (c *Client) ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	if err := c.guard.BeginExecute(); err != nil {
		return types.BlockOutcome{}, err
	}

	resp := new(types.BlockOutcome)
	if err := c.cc.Invoke(ctx, fullMethod("ExecuteBlock"), &block, resp); err != nil {
		c.guard.AbortExecute()
		return types.BlockOutcome{}, err
	}

	c.guard.EndExecute()
	return *resp, nil
}

func (c *Client) Commit(ctx context.Context) (types.CommitResult, error) {
	if err := c.guard.BeginCommit(); err != nil {
		return types.CommitResult{}, err
	}
	defer c.guard.EndCommit()

	resp := new(types.CommitResult)
	if err := c.cc.Invoke(ctx, fullMethod("Commit"), &CommitRequest{}, resp); err != nil {
		return types.CommitResult{}, err
	}
	return *resp, nil
}

func (c *Client) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	if err := c.guard.CheckRead("Query"); err != nil {
		return types.StateQueryResult{}, err
	}

	resp := new(types.StateQueryResult)
	if err := c.cc.Invoke(ctx, fullMethod("Query"), &req, resp); err != nil {
		return types.StateQueryResult{}, err
	}
	return *resp, nil
}

// --- Capability accessors ---

func (c *Client) Capabilities() types.Capabilities { return c.caps }

func (c *Client) AsStateSync() kudos.StateSync {
	if c.caps.Has(types.CapStateSync) {
		return &clientStateSync{c}
	}
	return nil
}

func (c *Client) AsSimulator() kudos.Simulator {
	if c.caps.Has(types.CapSimulation) {
		return &clientSimulator{c}
	}
	return nil
}

// --- StateSync wrapper ---

type clientStateSync struct{ c *Client }

func (w *clientStateSync) AvailableSnapshots(ctx context.Context) ([]types.SnapshotDescriptor, error) {
	resp := new(AvailableSnapshotsResponse)
	if err := w.c.cc.Invoke(ctx, fullMethod("AvailableSnapshots"), &AvailableSnapshotsRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Snapshots, nil
}

// ExportSnapshot streams the chunks of a snapshot. The descriptor is
// not carried by the stream; callers obtain it from AvailableSnapshots.
func (w *clientStateSync) ExportSnapshot(ctx context.Context, height uint64, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error) {
	stream, err := w.c.cc.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    "ExportSnapshot",
		ServerStreams: true,
	}, fullMethod("ExportSnapshot"))
	if err != nil {
		return nil, nil, err
	}
	if err := stream.SendMsg(&ExportSnapshotRequest{Height: height, Format: format}); err != nil {
		return nil, nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, nil, err
	}

	ch := make(chan types.SnapshotChunk)
	go func() {
		defer close(ch)
		for {
			chunk := new(types.SnapshotChunk)
			if err := stream.RecvMsg(chunk); err != nil {
				return
			}
			select {
			case ch <- *chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil, nil
}

func (w *clientStateSync) ImportSnapshot(ctx context.Context, desc types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error) {
	stream, err := w.c.cc.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    "ImportSnapshot",
		ClientStreams: true,
	}, fullMethod("ImportSnapshot"))
	if err != nil {
		return types.ImportResult{}, err
	}

	if err := stream.SendMsg(&ImportSnapshotMessage{Descriptor: &desc}); err != nil {
		return types.ImportResult{}, err
	}
	for chunk := range chunks {
		if err := stream.SendMsg(&ImportSnapshotMessage{Chunk: &chunk}); err != nil {
			if errors.Is(err, io.EOF) {
				// The server closed the stream early; RecvMsg reports why.
				break
			}
			return types.ImportResult{}, err
		}
	}
	if err := stream.CloseSend(); err != nil {
		return types.ImportResult{}, err
	}

	result := new(types.ImportResult)
	if err := stream.RecvMsg(result); err != nil {
		return types.ImportResult{}, err
	}
	return *result, nil
}

// --- Simulator wrapper ---

type clientSimulator struct{ c *Client }

func (w *clientSimulator) Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	resp := new(types.TxOutcome)
	if err := w.c.cc.Invoke(ctx, fullMethod("Simulate"), &SimulateRequest{Tx: tx}, resp); err != nil {
		return types.TxOutcome{}, err
	}
	return *resp, nil
}
