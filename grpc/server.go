package kudosgrpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/blockberries/kudos"
	"github.com/blockberries/kudos/server"
	"github.com/blockberries/kudos/types"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ RoundServiceServer = (*GRPCServer)(nil)

// GRPCServer exposes a kudos application as a gRPC service.
type GRPCServer struct {
	srv *server.Server
	log zerolog.Logger
}

// Option configures a GRPCServer.
type Option func(*GRPCServer)

// WithLogger sets the logger used by the interceptors and the wrapped
// server.
func WithLogger(l zerolog.Logger) Option {
	return func(s *GRPCServer) { s.log = l.With().Str("component", "grpc_server").Logger() }
}

// NewGRPCServer creates a gRPC server wrapping app.
func NewGRPCServer(app kudos.Lifecycle, opts ...Option) *GRPCServer {
	s := &GRPCServer{log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	s.srv = server.New(app, server.WithLogger(s.log))
	return s
}

// Register adds the service to a gRPC server.
func (s *GRPCServer) Register(gs *grpc.Server) {
	RegisterRoundServiceServer(gs, s)
}

// NewServer builds a grpc.Server with the logging interceptor installed
// and the service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(LoggingInterceptor(s.log)))
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs
}

// Serve starts a gRPC server on lis and blocks until it stops.
func (s *GRPCServer) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	return s.NewServer(opts...).Serve(lis)
}

// Server returns the underlying server.
func (s *GRPCServer) Server() *server.Server {
	return s.srv
}

// LoggingInterceptor logs every unary call and maps halt errors to
// codes.Unavailable.
func LoggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		err = statusOf(err)
		ev := log.Debug()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("elapsed", time.Since(start)).
			Msg("rpc")
		return resp, err
	}
}

func statusOf(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if _, ok := kudos.IsHalt(err); ok || errors.Is(err, server.ErrHalted) {
		return status.Error(codes.Unavailable, err.Error())
	}
	if errors.Is(err, server.ErrOutOfOrder) {
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// --- Lifecycle RPCs ---

func (s *GRPCServer) Handshake(ctx context.Context, req *types.HandshakeRequest) (*types.HandshakeResponse, error) {
	resp, err := s.srv.Handshake(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCServer) CheckTx(ctx context.Context, req *CheckTxRequest) (*types.GateVerdict, error) {
	verdict, err := s.srv.CheckTx(ctx, req.Tx, req.Context)
	if err != nil {
		return nil, err
	}
	return &verdict, nil
}

func (s *GRPCServer) ExecuteBlock(ctx context.Context, block *types.FinalizedBlock) (*types.BlockOutcome, error) {
	outcome, err := s.srv.ExecuteBlock(ctx, *block)
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

func (s *GRPCServer) Commit(ctx context.Context, _ *CommitRequest) (*types.CommitResult, error) {
	result, err := s.srv.Commit(ctx)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *GRPCServer) Query(ctx context.Context, req *types.StateQuery) (*types.StateQueryResult, error) {
	result, err := s.srv.Query(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// --- StateSync RPCs ---

func (s *GRPCServer) AvailableSnapshots(ctx context.Context, _ *AvailableSnapshotsRequest) (*AvailableSnapshotsResponse, error) {
	snaps, err := s.srv.AvailableSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	return &AvailableSnapshotsResponse{Snapshots: snaps}, nil
}

func (s *GRPCServer) ExportSnapshot(req *ExportSnapshotRequest, stream grpc.ServerStream) error {
	ch, _, err := s.srv.ExportSnapshot(stream.Context(), req.Height, req.Format)
	if err != nil {
		return statusOf(err)
	}
	for chunk := range ch {
		if err := stream.SendMsg(&chunk); err != nil {
			return err
		}
	}
	return nil
}

func (s *GRPCServer) ImportSnapshot(stream grpc.ServerStream) error {
	first := new(ImportSnapshotMessage)
	if err := stream.RecvMsg(first); err != nil {
		return err
	}
	if first.Descriptor == nil {
		return status.Error(codes.InvalidArgument, "kudos grpc: first ImportSnapshot message must carry a descriptor")
	}

	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	chunks := make(chan types.SnapshotChunk)
	recvErr := make(chan error, 1)
	go func() {
		defer close(chunks)
		for {
			msg := new(ImportSnapshotMessage)
			if err := stream.RecvMsg(msg); err != nil {
				if !errors.Is(err, io.EOF) {
					recvErr <- err
				}
				return
			}
			if msg.Chunk == nil {
				continue
			}
			select {
			case chunks <- *msg.Chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	result, err := s.srv.ImportSnapshot(ctx, *first.Descriptor, chunks)
	if err != nil {
		return statusOf(err)
	}
	select {
	case err := <-recvErr:
		return fmt.Errorf("kudos grpc: receive snapshot chunk: %w", err)
	default:
	}
	return stream.SendMsg(&result)
}

// --- Simulator RPC ---

func (s *GRPCServer) Simulate(ctx context.Context, req *SimulateRequest) (*types.TxOutcome, error) {
	outcome, err := s.srv.Simulate(ctx, req.Tx)
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}
