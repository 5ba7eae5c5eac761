package kudosgrpc_test

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/blockberries/kudos/app"
	kudosgrpc "github.com/blockberries/kudos/grpc"
	"github.com/blockberries/kudos/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var (
	admin    = app.TestAccount(1)
	treasury = app.TestAccount(2)
	alice    = app.TestAccount(3)
	bob      = app.TestAccount(4)

	genesisTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

// startServer serves gs on a random local port.
func startServer(t *testing.T, gs *kudosgrpc.GRPCServer) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := gs.NewServer()
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.GracefulStop)
	return lis.Addr().String()
}

func dial(t *testing.T, addr string) *kudosgrpc.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := kudosgrpc.Dial(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func genesisDoc(t *testing.T) *types.GenesisDoc {
	t.Helper()
	gs := app.DefaultGenesisState()
	gs.Admins = []types.AccountID{admin}
	gs.Treasury = treasury
	gs.Endowment = 1000
	doc, err := gs.Doc("grpc-test", genesisTime)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	return &doc
}

func connect(t *testing.T) *kudosgrpc.Client {
	t.Helper()
	client := dial(t, startServer(t, kudosgrpc.NewGRPCServer(app.New())))
	resp, err := client.Handshake(context.Background(), types.HandshakeRequest{Genesis: genesisDoc(t)})
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if resp.AppHash == nil {
		t.Fatal("expected AppHash from genesis")
	}
	return client
}

func runBlock(t *testing.T, client *kudosgrpc.Client, height uint64, txs ...types.Tx) types.BlockOutcome {
	t.Helper()
	ctx := context.Background()
	outcome, err := client.ExecuteBlock(ctx, types.FinalizedBlock{
		Height: height,
		Time:   types.TimeToTimestamp(genesisTime.Add(time.Duration(height) * time.Minute)),
		Txs:    txs,
	})
	if err != nil {
		t.Fatalf("ExecuteBlock(%d): %v", height, err)
	}
	if _, err := client.Commit(ctx); err != nil {
		t.Fatalf("Commit(%d): %v", height, err)
	}
	return outcome
}

func TestGRPC_Lifecycle(t *testing.T) {
	client := connect(t)
	ctx := context.Background()

	outcome := runBlock(t, client, 1,
		app.AddContributorTx(admin, alice),
		app.AddContributorTx(admin, bob),
	)
	if outcome.AppHash == (types.AppHash{}) {
		t.Fatal("expected non-zero AppHash")
	}
	for i, o := range outcome.TxOutcomes {
		if !o.OK() {
			t.Fatalf("tx %d failed: code=%d info=%s", i, o.Code, o.Info)
		}
	}

	qr, err := client.Query(ctx, types.StateQuery{Path: app.PathReputation, Data: bob[:]})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if qr.Height != 1 {
		t.Fatalf("expected query height 1, got %d", qr.Height)
	}
	if rep := binary.BigEndian.Uint32(qr.Value); rep != 1 {
		t.Fatalf("expected reputation 1, got %d", rep)
	}

	qr, err = client.Query(ctx, types.StateQuery{Path: app.PathBalance, Data: treasury[:]})
	if err != nil {
		t.Fatalf("Query balance: %v", err)
	}
	if bal := binary.BigEndian.Uint64(qr.Value); bal != 1000 {
		t.Fatalf("expected treasury 1000, got %d", bal)
	}
}

func TestGRPC_CheckTx(t *testing.T) {
	client := connect(t)
	ctx := context.Background()

	v, err := client.CheckTx(ctx, app.VoteTx(alice, bob, types.Positive, 1), types.MempoolFirstSeen)
	if err != nil {
		t.Fatalf("CheckTx: %v", err)
	}
	if !v.Accepted() {
		t.Fatalf("expected accepted, got code %d", v.Code)
	}

	v, err = client.CheckTx(ctx, types.Tx{0x01}, types.MempoolFirstSeen)
	if err != nil {
		t.Fatalf("CheckTx: %v", err)
	}
	if v.Accepted() {
		t.Fatal("expected garbage tx to be rejected")
	}
}

func TestGRPC_Capabilities(t *testing.T) {
	client := connect(t)
	ctx := context.Background()

	if !client.Capabilities().Has(types.CapStateSync | types.CapSimulation) {
		t.Fatalf("unexpected capabilities %s", client.Capabilities())
	}

	runBlock(t, client, 1, app.AddContributorTx(admin, alice))

	sim := client.AsSimulator()
	if sim == nil {
		t.Fatal("AsSimulator returned nil")
	}
	res, err := sim.Simulate(ctx, app.RemoveContributorTx(admin, alice))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if !res.OK() {
		t.Fatalf("Simulate failed: code=%d info=%s", res.Code, res.Info)
	}
	res, err = sim.Simulate(ctx, app.AddAdminTx(alice, bob))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if res.OK() {
		t.Fatal("expected contributor add_admin to fail")
	}

	// The simulated removal must not have touched committed state.
	qr, err := client.Query(ctx, types.StateQuery{Path: app.PathRole, Data: alice[:]})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(qr.Value) != 1 || types.Role(qr.Value[0]) != types.RoleContributor {
		t.Fatalf("expected alice still a contributor, got %x", qr.Value)
	}
}

func TestGRPC_SnapshotTransfer(t *testing.T) {
	client := connect(t)
	ctx := context.Background()

	outcome := runBlock(t, client, 1, app.AddContributorTx(admin, alice))

	ss := client.AsStateSync()
	if ss == nil {
		t.Fatal("AsStateSync returned nil")
	}
	snaps, err := ss.AvailableSnapshots(ctx)
	if err != nil {
		t.Fatalf("AvailableSnapshots: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Height != 1 {
		t.Fatalf("unexpected snapshots %+v", snaps)
	}

	ch, _, err := ss.ExportSnapshot(ctx, snaps[0].Height, snaps[0].Format)
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}
	var chunks []types.SnapshotChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	if uint32(len(chunks)) != snaps[0].Chunks {
		t.Fatalf("expected %d chunks, got %d", snaps[0].Chunks, len(chunks))
	}

	// Restore into a fresh application over a second connection.
	fresh := dial(t, startServer(t, kudosgrpc.NewGRPCServer(app.New())))
	if _, err := fresh.Handshake(ctx, types.HandshakeRequest{Genesis: genesisDoc(t)}); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	in := make(chan types.SnapshotChunk, len(chunks))
	for _, c := range chunks {
		in <- c
	}
	close(in)
	result, err := fresh.AsStateSync().ImportSnapshot(ctx, snaps[0], in)
	if err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if result.Status != types.ImportOK {
		t.Fatalf("import status %v", result.Status)
	}
	if result.AppHash == nil || *result.AppHash != outcome.AppHash {
		t.Fatalf("restored hash %v, want %x", result.AppHash, outcome.AppHash)
	}
}
