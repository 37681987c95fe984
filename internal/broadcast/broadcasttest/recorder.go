// Package broadcasttest provides an in-memory Transport for tests.
package broadcasttest

import (
	"sync"

	"github.com/siohaza/sundown/internal/protocol"
	"github.com/siohaza/sundown/internal/registry"
)

type Message struct {
	Address  registry.Address
	Event    protocol.Event
	Delivery protocol.Delivery
	Urgency  protocol.Urgency
}

// Recorder decodes every submitted payload with Codec and keeps it.
type Recorder struct {
	Codec protocol.Codec

	mu       sync.Mutex
	messages []Message
	flushes  int
}

func NewRecorder() *Recorder {
	return &Recorder{Codec: protocol.BinaryCodec{}}
}

func (r *Recorder) SendWithRequirements(addr registry.Address, payload []byte, delivery protocol.Delivery, urgency protocol.Urgency) error {
	ev, err := r.Codec.Decode(payload)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Address: addr, Event: ev, Delivery: delivery, Urgency: urgency})
	return nil
}

func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// OfKind filters recorded messages by event kind.
func (r *Recorder) OfKind(kind protocol.EventKind) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.Event.Kind() == kind {
			out = append(out, m)
		}
	}
	return out
}

func (r *Recorder) Flushes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushes
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
	r.flushes = 0
}
