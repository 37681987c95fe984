// Package simulation runs the fixed per-tick stage sequence.
package simulation

import (
	"log/slog"
	"time"

	"github.com/siohaza/sundown/internal/combat"
	"github.com/siohaza/sundown/internal/gamestate"
	"github.com/siohaza/sundown/internal/physics"
)

// Scratch holds the per-tick collision lists. Step clears it before any
// stage runs.
type Scratch struct {
	Collisions           []physics.Collision
	ProjectileCollisions []physics.ProjectileCollision
}

func (s *Scratch) Reset() {
	s.Collisions = s.Collisions[:0]
	s.ProjectileCollisions = s.ProjectileCollisions[:0]
}

type Flusher interface {
	Flush()
}

type Report struct {
	Tick       uint64
	Expired    int
	Collisions int
	Hits       int
	Damage     combat.DamageStats
}

type Pipeline struct {
	world   *gamestate.World
	damage  *combat.DamageResolver
	weapons *combat.WeaponController
	flusher Flusher
	logger  *slog.Logger

	scratch Scratch
	tick    uint64
}

func New(world *gamestate.World, damage *combat.DamageResolver, weapons *combat.WeaponController, flusher Flusher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		world:   world,
		damage:  damage,
		weapons: weapons,
		flusher: flusher,
		logger:  logger,
		scratch: Scratch{
			Collisions:           make([]physics.Collision, 0, 64),
			ProjectileCollisions: make([]physics.ProjectileCollision, 0, 64),
		},
	}
}

// Step advances the world by one tick ending at now, dt after the previous
// one. Stages run in this order: movement, lifespan expiry, body
// collisions, obstacle resolution, projectile collisions, damage, weapons,
// network flush.
func (p *Pipeline) Step(now, dt time.Duration) Report {
	p.tick++
	p.scratch.Reset()

	physics.ApplyInput(p.world)
	physics.Integrate(p.world, dt)
	expired := physics.ExpireLifespans(p.world, now)

	p.scratch.Collisions = physics.DetectCollisions(p.world, p.scratch.Collisions)
	physics.ResolveObstacles(p.world, p.scratch.Collisions)

	p.scratch.ProjectileCollisions = physics.DetectProjectileCollisions(p.world, p.scratch.ProjectileCollisions)
	stats := p.damage.Resolve(now, p.scratch.ProjectileCollisions)

	p.weapons.Update(now)

	if p.flusher != nil {
		p.flusher.Flush()
	}

	report := Report{
		Tick:       p.tick,
		Expired:    len(expired),
		Collisions: len(p.scratch.Collisions),
		Hits:       len(p.scratch.ProjectileCollisions),
		Damage:     stats,
	}
	if report.Hits > 0 {
		p.logger.Debug("tick", "tick", report.Tick, "hits", report.Hits, "damaged", stats.Applied, "deleted", stats.Deleted)
	}
	return report
}

func (p *Pipeline) Scratch() *Scratch {
	return &p.scratch
}

func (p *Pipeline) World() *gamestate.World {
	return p.world
}
