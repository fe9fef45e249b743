// Package codec provides the gRPC wire codec used by the Transport Layer
// (spec.md §4.4) to send and receive dynamic.Message values without any
// generated Go types in the path. grpc-go dispatches through
// encoding.Codec by name per RPC, or per call via grpc.ForceCodec;
// internal/grpcclient forces DynamicCodec on every InvokeUnary/
// InvokeServerStream call, so the encode/decode path used for every RPC
// the engine makes runs through this package rather than through
// grpcdynamic.Stub's internal, unexported default. Grounded on the
// Marshal/Unmarshal pair dynamic.Message itself exposes, the same pair
// grpcurl.go relies on implicitly through grpcdynamic.
package codec

import (
	"fmt"

	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc/encoding"
)

// Name is the codec's registered name, analogous to "proto".
const Name = "grpctui-dynamic"

// EncodeError reports a failure to marshal a message to wire bytes.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("codec: encode: %v", e.Err) }
func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports a failure to unmarshal wire bytes into a message.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("codec: decode: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// DynamicCodec implements google.golang.org/grpc/encoding.Codec for
// *dynamic.Message values. Any non-dynamic message (there shouldn't be
// any, in an engine with no generated types) is rejected rather than
// silently falling back to proto.Marshal.
type DynamicCodec struct{}

func (DynamicCodec) Name() string { return Name }

func (DynamicCodec) Marshal(v interface{}) ([]byte, error) {
	msg, ok := v.(*dynamic.Message)
	if !ok {
		return nil, &EncodeError{Err: fmt.Errorf("%T is not a *dynamic.Message", v)}
	}
	b, err := msg.Marshal()
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	return b, nil
}

func (DynamicCodec) Unmarshal(data []byte, v interface{}) error {
	msg, ok := v.(*dynamic.Message)
	if !ok {
		return &DecodeError{Err: fmt.Errorf("%T is not a *dynamic.Message", v)}
	}
	if err := msg.Unmarshal(data); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// Register installs the codec globally, once, at process startup.
func Register() {
	encoding.RegisterCodec(DynamicCodec{})
}

var _ encoding.Codec = DynamicCodec{}
