package physics

import (
	"math"

	"github.com/siohaza/sundown/internal/gamestate"
	"github.com/siohaza/sundown/internal/protocol"
)

type ProjectileCollision struct {
	Projectile gamestate.EntityID
	Target     gamestate.EntityID
	Vector     protocol.Vector2f
}

// PointPenetration tests whether point lies strictly inside the circle. The
// vector points from the point towards the center with length radius-dist.
func PointPenetration(point, center protocol.Vector2f, radius float32) (protocol.Vector2f, bool) {
	dx := float64(center.X) - float64(point.X)
	dy := float64(center.Y) - float64(point.Y)
	dist := math.Hypot(dx, dy)
	r := float64(radius)

	if dist >= r {
		return protocol.Vector2f{}, false
	}
	return penetration(dx, dy, dist, r-dist), true
}

// DetectProjectileCollisions appends a hit for every projectile inside a
// bounded non-projectile other than its owner. A projectile may hit several
// targets.
func DetectProjectileCollisions(world *gamestate.World, out []ProjectileCollision) []ProjectileCollision {
	projectiles := world.Query(gamestate.CapProjectile | gamestate.CapTransform)
	if len(projectiles) == 0 {
		return out
	}

	targets := world.Query(gamestate.CapTransform | gamestate.CapBounds)

	for _, p := range projectiles {
		for _, target := range targets {
			if target.Has(gamestate.CapProjectile) || target.ID == p.Owner {
				continue
			}
			vector, hit := PointPenetration(p.Transform.Position, target.Transform.Position, target.Bounds.Radius)
			if hit {
				out = append(out, ProjectileCollision{Projectile: p.ID, Target: target.ID, Vector: vector})
			}
		}
	}
	return out
}
