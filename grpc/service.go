package kudosgrpc

import (
	"context"
	"fmt"

	"github.com/blockberries/kudos/types"

	"google.golang.org/grpc"
)

const serviceName = "kudos.v1.RoundService"

// RoundServiceServer is the server-side interface for the kudos gRPC service.
type RoundServiceServer interface {
	Handshake(context.Context, *types.HandshakeRequest) (*types.HandshakeResponse, error)
	CheckTx(context.Context, *CheckTxRequest) (*types.GateVerdict, error)
	ExecuteBlock(context.Context, *types.FinalizedBlock) (*types.BlockOutcome, error)
	Commit(context.Context, *CommitRequest) (*types.CommitResult, error)
	Query(context.Context, *types.StateQuery) (*types.StateQueryResult, error)
	AvailableSnapshots(context.Context, *AvailableSnapshotsRequest) (*AvailableSnapshotsResponse, error)
	ExportSnapshot(*ExportSnapshotRequest, grpc.ServerStream) error
	ImportSnapshot(grpc.ServerStream) error
	Simulate(context.Context, *SimulateRequest) (*types.TxOutcome, error)
}

// RegisterRoundServiceServer registers srv on a gRPC server.
func RegisterRoundServiceServer(s *grpc.Server, srv RoundServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// unary adapts a typed unary method to a grpc.MethodHandler.
func unary[Req any, Resp any](call func(RoundServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		return call(srv.(RoundServiceServer), ctx, req)
	}
}

func handlerExportSnapshot(srv any, stream grpc.ServerStream) error {
	req := new(ExportSnapshotRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(RoundServiceServer).ExportSnapshot(req, stream)
}

func handlerImportSnapshot(srv any, stream grpc.ServerStream) error {
	return srv.(RoundServiceServer).ImportSnapshot(stream)
}

// fullMethod builds the full gRPC method path.
func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RoundServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Handshake", Handler: unary(RoundServiceServer.Handshake)},
		{MethodName: "CheckTx", Handler: unary(RoundServiceServer.CheckTx)},
		{MethodName: "ExecuteBlock", Handler: unary(RoundServiceServer.ExecuteBlock)},
		{MethodName: "Commit", Handler: unary(RoundServiceServer.Commit)},
		{MethodName: "Query", Handler: unary(RoundServiceServer.Query)},
		{MethodName: "AvailableSnapshots", Handler: unary(RoundServiceServer.AvailableSnapshots)},
		{MethodName: "Simulate", Handler: unary(RoundServiceServer.Simulate)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ExportSnapshot",
			Handler:       handlerExportSnapshot,
			ServerStreams: true,
		},
		{
			StreamName:    "ImportSnapshot",
			Handler:       handlerImportSnapshot,
			ClientStreams: true,
		},
	},
	Metadata: "kudos/v1/service.cram",
}
