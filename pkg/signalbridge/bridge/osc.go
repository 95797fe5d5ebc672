package bridge

import (
	"context"
	"encoding/json"
)

// OSCEncoder serializes an envelope under an OSC address pattern. The
// default encoder wraps the datagram packet in a JSON object carrying the
// pattern; custom encoders can produce binary OSC framing instead.
type OSCEncoder func(pattern string, env *Envelope, meta Metadata) ([]byte, error)

// oscPacket is the default address-pattern wire shape.
type oscPacket struct {
	Address  string         `json:"address"`
	Envelope datagramPacket `json:"envelope"`
}

// NewOSCSink creates a transport sink that emits address-pattern-wrapped
// envelopes over a datagram sender. A nil sender dials a real UDP socket; a
// nil encoder uses the JSON wrapping.
func NewOSCSink(name, pattern, addr string, sender DatagramSender, encoder OSCEncoder, opts ...TransportOption) *TransportSink {
	if sender == nil {
		sender = sendUDP
	}
	if encoder == nil {
		encoder = encodeOSC
	}
	sendData := func(ctx context.Context, env *Envelope, dctx *Context) error {
		payload, err := encoder(pattern, env, dctx.Metadata())
		if err != nil {
			return err
		}
		return sender(ctx, addr, payload)
	}
	return NewTransportSink(name, sendData, opts...)
}

func encodeOSC(pattern string, env *Envelope, meta Metadata) ([]byte, error) {
	return json.Marshal(oscPacket{
		Address:  pattern,
		Envelope: datagramPacket{Context: meta, Envelope: env},
	})
}
