package gamestate

import (
	"time"

	"github.com/siohaza/sundown/internal/protocol"
	"github.com/siohaza/sundown/internal/registry"
	"github.com/siohaza/sundown/internal/weapon"
)

type EntityID uint32

// Capability flags record which components an entity carries.
type Capability uint32

const (
	CapTransform Capability = 1 << iota
	CapBounds
	CapVelocity
	CapProjectile
	CapHealth
	CapEliminated
	CapDamage
	CapClient
	CapHolster
	CapInput
	CapLifespan
	CapRespawn
)

// Has reports whether every flag in mask is set.
func (c Capability) Has(mask Capability) bool {
	return c&mask == mask
}

type Transform struct {
	Position protocol.Vector2f
	// Rotation in radians, counter-clockwise from the model's +Y axis.
	Rotation float32
}

type BoundingCircle struct {
	Radius float32
}

type Health struct {
	Value uint32
	Max   uint32
}

type Eliminated struct {
	At time.Duration
}

type Damage struct {
	Value uint32
}

type Input struct {
	Flags     protocol.InputFlags
	Cursor    protocol.Vector2f
	MoveSpeed float32
}

type Lifespan struct {
	SpawnedAt time.Duration
	TTL       time.Duration
}

func (l Lifespan) Expired(now time.Duration) bool {
	return now-l.SpawnedAt >= l.TTL
}

type Respawn struct {
	Delay time.Duration
}

// Entity is the component record of one simulation entity. A component
// field is meaningful only when its capability flag is set.
type Entity struct {
	ID   EntityID
	Caps Capability

	Transform  Transform
	Bounds     BoundingCircle
	Velocity   protocol.Vector2f
	Health     Health
	Eliminated Eliminated
	Damage     Damage
	Client     registry.ClientID
	Holster    *weapon.Holster
	Input      Input
	Lifespan   Lifespan
	Respawn    Respawn
	// Owner is the shooter of a projectile; it is never hit by it.
	Owner EntityID
}

func (e *Entity) Has(mask Capability) bool {
	return e.Caps.Has(mask)
}

func (e *Entity) Add(mask Capability) {
	e.Caps |= mask
}

func (e *Entity) Remove(mask Capability) {
	e.Caps &^= mask
}

// ClientID returns the owning client, if any.
func (e *Entity) ClientID() (registry.ClientID, bool) {
	if !e.Has(CapClient) {
		return 0, false
	}
	return e.Client, true
}
