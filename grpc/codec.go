// Package kudosgrpc serves a kudos application over gRPC and dials
// one remotely. Messages are the cramberry-tagged structs of the types
// package; no protobuf generation is involved.
package kudosgrpc

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"google.golang.org/grpc/encoding"
)

const codecName = "cramberry"

// CramberryCodec is the grpc encoding.Codec for every RoundService
// message.
type CramberryCodec struct{}

var _ encoding.Codec = CramberryCodec{}

func (CramberryCodec) Marshal(v any) ([]byte, error) {
	data, err := cramberry.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("kudosgrpc: encode %T: %w", v, err)
	}
	return data, nil
}

func (CramberryCodec) Unmarshal(data []byte, v any) error {
	if err := cramberry.Unmarshal(data, v); err != nil {
		return fmt.Errorf("kudosgrpc: decode %T: %w", v, err)
	}
	return nil
}

func (CramberryCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(CramberryCodec{})
}
