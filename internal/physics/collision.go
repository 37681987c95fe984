package physics

import (
	"math"

	"github.com/siohaza/sundown/internal/gamestate"
	"github.com/siohaza/sundown/internal/protocol"
)

// Collision records that Mover overlaps Other. Subtracting Vector from the
// mover's position separates the two circles.
type Collision struct {
	Mover  gamestate.EntityID
	Other  gamestate.EntityID
	Vector protocol.Vector2f
}

// CirclePenetration tests two circles for overlap. The returned vector
// points from a towards b and its length is the overlap depth. Coincident
// centers separate along +X.
func CirclePenetration(a protocol.Vector2f, ra float32, b protocol.Vector2f, rb float32) (protocol.Vector2f, bool) {
	dx := float64(b.X) - float64(a.X)
	dy := float64(b.Y) - float64(a.Y)
	dist := math.Hypot(dx, dy)
	sum := float64(ra) + float64(rb)

	if dist >= sum {
		return protocol.Vector2f{}, false
	}
	return penetration(dx, dy, dist, sum-dist), true
}

func penetration(dx, dy, dist, depth float64) protocol.Vector2f {
	if dist < Epsilon {
		return protocol.Vector2f{X: float32(depth)}
	}
	return protocol.Vector2f{
		X: float32(dx / dist * depth),
		Y: float32(dy / dist * depth),
	}
}

// DetectCollisions appends one entry to out for every ordered (mover, other)
// pair of overlapping bounded entities. Movers are the bounded entities with
// a velocity. Both loops run in ascending entity id order.
func DetectCollisions(world *gamestate.World, out []Collision) []Collision {
	positioned := world.Query(gamestate.CapTransform | gamestate.CapBounds)

	for _, mover := range positioned {
		if !mover.Has(gamestate.CapVelocity) {
			continue
		}
		for _, other := range positioned {
			if other.ID == mover.ID {
				continue
			}
			vector, hit := CirclePenetration(
				mover.Transform.Position, mover.Bounds.Radius,
				other.Transform.Position, other.Bounds.Radius,
			)
			if hit {
				out = append(out, Collision{Mover: mover.ID, Other: other.ID, Vector: vector})
			}
		}
	}
	return out
}

// ResolveObstacles pushes every mover out of what it collided with. Entries
// for the same mover accumulate in list order.
func ResolveObstacles(world *gamestate.World, collisions []Collision) {
	for _, c := range collisions {
		mover, ok := world.Get(c.Mover)
		if !ok || !mover.Has(gamestate.CapTransform) {
			continue
		}
		mover.Transform.Position = mover.Transform.Position.Sub(c.Vector)
	}
}
