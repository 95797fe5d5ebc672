package bridge

import (
	"context"
	"encoding/json"
	"net"
)

// DatagramSender is the injectable primitive a datagram sink writes through.
// Injection keeps the sink testable without a real socket.
type DatagramSender func(ctx context.Context, addr string, payload []byte) error

// datagramPacket is the wire shape for datagram transports.
type datagramPacket struct {
	Context  Metadata  `json:"context"`
	Envelope *Envelope `json:"envelope"`
}

// NewUDPSink creates a transport sink that emits JSON envelopes as UDP
// datagrams to addr (host:port). A nil sender dials a real UDP socket per
// send.
func NewUDPSink(name, addr string, sender DatagramSender, opts ...TransportOption) *TransportSink {
	if sender == nil {
		sender = sendUDP
	}
	sendData := func(ctx context.Context, env *Envelope, dctx *Context) error {
		payload, err := json.Marshal(datagramPacket{Context: dctx.Metadata(), Envelope: env})
		if err != nil {
			return err
		}
		return sender(ctx, addr, payload)
	}
	return NewTransportSink(name, sendData, opts...)
}

// sendUDP writes one datagram over a fresh UDP connection.
func sendUDP(ctx context.Context, addr string, payload []byte) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	_, err = conn.Write(payload)
	return err
}
