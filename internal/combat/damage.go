package combat

import (
	"log/slog"
	"time"

	"github.com/siohaza/sundown/internal/callbacks"
	"github.com/siohaza/sundown/internal/gamestate"
	"github.com/siohaza/sundown/internal/physics"
	"github.com/siohaza/sundown/internal/protocol"
)

type DamageEvent struct {
	Damage uint32
	Target gamestate.EntityID
}

type EntityDelete struct {
	Entity gamestate.EntityID
}

type DamageStats struct {
	Applied int
	Deleted int
}

// DamageResolver applies projectile hits to health and removes the
// projectiles.
type DamageResolver struct {
	world  *gamestate.World
	net    Notifier
	hooks  callbacks.Hooks
	logger *slog.Logger

	damage  []DamageEvent
	deletes []EntityDelete
}

func NewDamageResolver(world *gamestate.World, net Notifier, hooks callbacks.Hooks, logger *slog.Logger) *DamageResolver {
	if logger == nil {
		logger = slog.Default()
	}
	if hooks == nil {
		hooks = &callbacks.DefaultCallbacks{}
	}

	return &DamageResolver{
		world:  world,
		net:    net,
		hooks:  hooks,
		logger: logger,
	}
}

// Collect derives damage and deletion requests from hits. A hit yields
// damage only when the target has health and the projectile carries
// damage; every hit requests deletion of its projectile.
func (r *DamageResolver) Collect(hits []physics.ProjectileCollision) ([]DamageEvent, []EntityDelete) {
	r.damage = r.damage[:0]
	r.deletes = r.deletes[:0]

	for _, hit := range hits {
		target, ok := r.world.Get(hit.Target)
		projectile, pok := r.world.Get(hit.Projectile)
		if ok && pok && target.Has(gamestate.CapHealth) && projectile.Has(gamestate.CapDamage) {
			r.damage = append(r.damage, DamageEvent{Damage: projectile.Damage.Value, Target: hit.Target})
		}
		r.deletes = append(r.deletes, EntityDelete{Entity: hit.Projectile})
	}
	return r.damage, r.deletes
}

// Resolve applies every hit of the tick, then deletes the projectiles.
func (r *DamageResolver) Resolve(now time.Duration, hits []physics.ProjectileCollision) DamageStats {
	var stats DamageStats

	damage, deletes := r.Collect(hits)
	for _, ev := range damage {
		if r.Apply(now, ev) {
			stats.Applied++
		}
	}
	for _, del := range deletes {
		if r.world.Despawn(del.Entity) {
			stats.Deleted++
		}
	}
	return stats
}

// Apply subtracts ev.Damage from the target's health. Damage that drains
// the target sets health to zero and eliminates it. Targets without health
// or already eliminated are left unchanged.
func (r *DamageResolver) Apply(now time.Duration, ev DamageEvent) bool {
	target, ok := r.world.Get(ev.Target)
	if !ok || !target.Has(gamestate.CapHealth) {
		r.logger.Debug("damage target has no health", "entity", ev.Target)
		return false
	}
	if target.Has(gamestate.CapEliminated) {
		return false
	}

	health := &target.Health
	drained := health.Value <= ev.Damage
	if drained {
		health.Value = 0
		target.Add(gamestate.CapEliminated)
		target.Eliminated = gamestate.Eliminated{At: now}
	} else {
		health.Value -= ev.Damage
	}

	r.hooks.OnDamage(target, ev.Damage)
	if drained {
		r.logger.Info("entity eliminated", "entity", target.ID, "at", now)
		r.hooks.OnEliminated(target, now)
	}

	r.notifyHealth(target)
	return true
}

func (r *DamageResolver) notifyHealth(target *gamestate.Entity) {
	client, ok := target.ClientID()
	if !ok {
		return
	}

	update := protocol.HealthUpdate{Health: target.Health.Value, Max: target.Health.Max}
	err := r.net.SendToClient(client, update,
		protocol.ReliableSequenced(protocol.StreamHealthUpdate), protocol.UrgencyOnTick)
	if err != nil {
		r.logger.Warn("failed to send health update", "entity", target.ID, "client", client, "error", err)
	}
}
