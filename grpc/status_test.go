package kudosgrpc

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/blockberries/kudos"
	"github.com/blockberries/kudos/server"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"nil", nil, codes.OK},
		{"halt", kudos.NewHaltError(4, "corrupt record", errors.New("bad")), codes.Unavailable},
		{"halted", fmt.Errorf("%w: earlier halt", server.ErrHalted), codes.Unavailable},
		{"out of order", &server.OrderError{Call: "Commit", Phase: "Ready", Expected: "Executed"}, codes.FailedPrecondition},
		{"status passthrough", status.Error(codes.NotFound, "gone"), codes.NotFound},
		{"other", errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := status.Code(statusOf(tc.err)); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}
