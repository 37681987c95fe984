package broadcast

import (
	"fmt"
	"log/slog"

	"github.com/siohaza/sundown/internal/protocol"
	"github.com/siohaza/sundown/internal/registry"
)

//go:generate go tool mockgen -destination=./mocks/transport_mock.go -package=mocks . Transport

// Transport submits payloads to the network. Implementations must not block
// on delivery: SendWithRequirements only queues or hands off the payload.
type Transport interface {
	SendWithRequirements(addr registry.Address, payload []byte, delivery protocol.Delivery, urgency protocol.Urgency) error
	Flush() error
}

// Directory resolves client ids to addresses.
type Directory interface {
	Find(id registry.ClientID) (registry.Handle, bool)
	List() []registry.Handle
}

type Broadcaster struct {
	transport Transport
	codec     protocol.Codec
	clients   Directory
	logger    *slog.Logger
}

func New(transport Transport, codec protocol.Codec, clients Directory, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	if codec == nil {
		codec = protocol.BinaryCodec{}
	}

	return &Broadcaster{
		transport: transport,
		codec:     codec,
		clients:   clients,
		logger:    logger,
	}
}

// Send encodes ev and hands it to the transport. A message that fails to
// encode or submit is logged and dropped; the return value reports whether
// it was submitted.
func (b *Broadcaster) Send(addr registry.Address, ev protocol.Event, delivery protocol.Delivery, urgency protocol.Urgency) bool {
	payload, err := b.codec.Encode(ev)
	if err != nil {
		b.logger.Error("failed to encode event", "event", kindOf(ev), "address", addr, "error", err)
		return false
	}
	return b.submit(addr, ev, payload, delivery, urgency)
}

// SendToClient resolves id through the directory before sending.
func (b *Broadcaster) SendToClient(id registry.ClientID, ev protocol.Event, delivery protocol.Delivery, urgency protocol.Urgency) error {
	handle, ok := b.clients.Find(id)
	if !ok {
		return fmt.Errorf("send %s to client %d: %w", kindOf(ev), id, registry.ErrUnknownClient)
	}
	b.Send(handle.Address, ev, delivery, urgency)
	return nil
}

// Broadcast sends ev to every registered client and returns how many
// submissions succeeded.
func (b *Broadcaster) Broadcast(ev protocol.Event, delivery protocol.Delivery, urgency protocol.Urgency) int {
	payload, err := b.codec.Encode(ev)
	if err != nil {
		b.logger.Error("failed to encode broadcast", "event", kindOf(ev), "error", err)
		return 0
	}

	sent := 0
	for _, handle := range b.clients.List() {
		if b.submit(handle.Address, ev, payload, delivery, urgency) {
			sent++
		}
	}
	return sent
}

func (b *Broadcaster) submit(addr registry.Address, ev protocol.Event, payload []byte, delivery protocol.Delivery, urgency protocol.Urgency) bool {
	if err := b.transport.SendWithRequirements(addr, payload, delivery, urgency); err != nil {
		b.logger.Warn("failed to send event",
			"event", kindOf(ev),
			"address", addr,
			"delivery", delivery,
			"error", err,
		)
		return false
	}
	return true
}

// Flush releases messages queued with UrgencyOnTick.
func (b *Broadcaster) Flush() {
	if err := b.transport.Flush(); err != nil {
		b.logger.Warn("failed to flush transport", "error", err)
	}
}

func (b *Broadcaster) Codec() protocol.Codec {
	return b.codec
}

func kindOf(ev protocol.Event) string {
	if ev == nil {
		return "nil"
	}
	return ev.Kind().String()
}
