package bridge

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// RPCStub is the injectable call primitive an RPC sink pushes envelopes
// through. The payload map contains the context metadata, the envelope, and
// the capability overlay, all as plain JSON-compatible values.
type RPCStub func(ctx context.Context, payload map[string]any) error

// NewGRPCSink creates a transport sink that pushes envelopes through an RPC
// stub.
func NewGRPCSink(name string, stub RPCStub, opts ...TransportOption) *TransportSink {
	sendData := func(ctx context.Context, env *Envelope, dctx *Context) error {
		meta, err := toPlainMap(dctx.Metadata())
		if err != nil {
			return err
		}
		envelopeMap, err := toPlainMap(env)
		if err != nil {
			return err
		}
		return stub(ctx, map[string]any{
			"context":      meta,
			"envelope":     envelopeMap,
			"capabilities": dctx.Capabilities,
		})
	}
	return NewTransportSink(name, sendData, opts...)
}

// NewGRPCStub builds an RPCStub over a gRPC client connection. The payload
// is encoded as a structpb.Struct and invoked against the given full method
// name (e.g. "/signalbridge.Bridge/Dispatch").
func NewGRPCStub(conn grpc.ClientConnInterface, method string) RPCStub {
	return func(ctx context.Context, payload map[string]any) error {
		message, err := structpb.NewStruct(payload)
		if err != nil {
			return err
		}
		return conn.Invoke(ctx, method, message, &emptypb.Empty{})
	}
}

// toPlainMap round-trips a value through JSON so every nested value is a
// plain type structpb can represent.
func toPlainMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
