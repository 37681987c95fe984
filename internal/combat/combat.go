// Package combat turns projectile hits and weapon input into health,
// ammo and projectile changes, and tells clients about them.
package combat

import (
	"github.com/siohaza/sundown/internal/protocol"
	"github.com/siohaza/sundown/internal/registry"
)

// Notifier is the outbound side of the network layer.
type Notifier interface {
	SendToClient(id registry.ClientID, ev protocol.Event, delivery protocol.Delivery, urgency protocol.Urgency) error
	Broadcast(ev protocol.Event, delivery protocol.Delivery, urgency protocol.Urgency) int
}
