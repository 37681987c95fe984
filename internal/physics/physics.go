package physics

import (
	"math"
	"time"

	"github.com/siohaza/sundown/internal/gamestate"
	"github.com/siohaza/sundown/internal/protocol"
)

const Epsilon = 1e-9

// ModelForward is the +Y model axis. The muzzle points along -ModelForward.
var ModelForward = protocol.Vector2f{X: 0, Y: 1}

// Forward returns ModelForward rotated by rotation.
func Forward(rotation float32) protocol.Vector2f {
	return ModelForward.Rotate(float64(rotation))
}

// AimRotation returns the rotation that points the muzzle from from towards
// to. It reports false when the points coincide.
func AimRotation(from, to protocol.Vector2f) (float32, bool) {
	dx := float64(to.X) - float64(from.X)
	dy := float64(to.Y) - float64(from.Y)
	if math.Abs(dx) < Epsilon && math.Abs(dy) < Epsilon {
		return 0, false
	}
	return float32(math.Atan2(dx, -dy)), true
}

// InputVelocity converts movement flags into a velocity of length speed.
func InputVelocity(flags protocol.InputFlags, speed float32) protocol.Vector2f {
	var v protocol.Vector2f
	if flags.Has(protocol.InputUp) {
		v.Y++
	}
	if flags.Has(protocol.InputDown) {
		v.Y--
	}
	if flags.Has(protocol.InputRight) {
		v.X++
	}
	if flags.Has(protocol.InputLeft) {
		v.X--
	}

	// diagonal movement is no faster than straight movement
	return v.Normalize().Scale(speed)
}

// ApplyInput steers input-driven entities. Eliminated entities stop.
func ApplyInput(world *gamestate.World) {
	world.Each(gamestate.CapInput|gamestate.CapTransform|gamestate.CapVelocity, func(e *gamestate.Entity) {
		if e.Has(gamestate.CapEliminated) {
			e.Velocity = protocol.Vector2f{}
			return
		}

		e.Velocity = InputVelocity(e.Input.Flags, e.Input.MoveSpeed)
		if rot, ok := AimRotation(e.Transform.Position, e.Input.Cursor); ok {
			e.Transform.Rotation = rot
		}
	})
}

// Integrate advances every moving entity by dt.
func Integrate(world *gamestate.World, dt time.Duration) {
	seconds := float32(dt.Seconds())
	world.Each(gamestate.CapTransform|gamestate.CapVelocity, func(e *gamestate.Entity) {
		e.Transform.Position = e.Transform.Position.Add(e.Velocity.Scale(seconds))
	})
}

// ExpireLifespans despawns entities whose lifespan has run out and returns
// their ids.
func ExpireLifespans(world *gamestate.World, now time.Duration) []gamestate.EntityID {
	var expired []gamestate.EntityID
	world.Each(gamestate.CapLifespan, func(e *gamestate.Entity) {
		if e.Lifespan.Expired(now) {
			expired = append(expired, e.ID)
		}
	})

	for _, id := range expired {
		world.Despawn(id)
	}
	return expired
}
