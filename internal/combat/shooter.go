package combat

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/siohaza/sundown/internal/callbacks"
	"github.com/siohaza/sundown/internal/gamestate"
	"github.com/siohaza/sundown/internal/physics"
	"github.com/siohaza/sundown/internal/protocol"
	"github.com/siohaza/sundown/internal/weapon"
)

// WeaponController reads player input and drives weapon switching, firing
// and reloading.
type WeaponController struct {
	world  *gamestate.World
	net    Notifier
	rng    *rand.Rand
	hooks  callbacks.Hooks
	logger *slog.Logger
}

func NewWeaponController(world *gamestate.World, net Notifier, rng *rand.Rand, hooks callbacks.Hooks, logger *slog.Logger) *WeaponController {
	if logger == nil {
		logger = slog.Default()
	}
	if hooks == nil {
		hooks = &callbacks.DefaultCallbacks{}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}

	return &WeaponController{
		world:  world,
		net:    net,
		rng:    rng,
		hooks:  hooks,
		logger: logger,
	}
}

// Update handles the input of every armed, living entity.
func (c *WeaponController) Update(now time.Duration) {
	c.world.Each(gamestate.CapHolster|gamestate.CapInput|gamestate.CapTransform, func(e *gamestate.Entity) {
		if e.Has(gamestate.CapEliminated) || e.Holster == nil {
			return
		}

		flags := e.Input.Flags
		if slot, ok := flags.SelectedSlot(); ok {
			c.Switch(e, slot, now)
		}

		c.reload(e, flags.Has(protocol.InputReload), now)

		if flags.Has(protocol.InputShoot) {
			c.Shoot(e, now)
		} else {
			e.Holster.Active().Weapon.ReleaseTrigger()
		}
	})
}

// Switch activates holster slot index. Requests for the active slot or a
// slot the holster does not have are ignored.
func (c *WeaponController) Switch(e *gamestate.Entity, index int, now time.Duration) bool {
	if index >= e.Holster.Len() {
		c.logger.Debug("ignoring switch to missing slot", "entity", e.ID, "slot", index+1)
		return false
	}

	slot, ok := e.Holster.Switch(index, now)
	if !ok {
		return false
	}
	c.hooks.OnWeaponSwitch(e, slot.Name)

	if client, ok := e.ClientID(); ok {
		w := slot.Weapon
		ev := protocol.WeaponSwitch{
			Name:           slot.Name,
			MagazineSize:   w.Details.MagazineSize,
			AmmoInMagazine: w.BulletsLeft,
		}
		err := c.net.SendToClient(client, ev,
			protocol.ReliableSequenced(protocol.StreamWeaponSwitch), protocol.UrgencyOnTick)
		if err != nil {
			c.logger.Warn("failed to send weapon switch", "entity", e.ID, "client", client, "error", err)
		}
	}
	return true
}

// Shoot fires the active weapon if it is ready. Each pellet becomes a
// projectile announced to every client; the shot as a whole costs one
// round.
func (c *WeaponController) Shoot(e *gamestate.Entity, now time.Duration) bool {
	slot := e.Holster.Active()
	w := slot.Weapon
	if !w.CanFire(now) {
		return false
	}

	var radius float32
	if e.Has(gamestate.CapBounds) {
		radius = e.Bounds.Radius
	}

	forward := physics.Forward(e.Transform.Rotation)
	position := e.Transform.Position.Sub(forward.Scale(radius))
	timeLimit := w.Details.BulletTimeLimit()
	ttl := w.Details.Lifetime()

	for i := 0; i < w.Details.PelletNumber; i++ {
		direction := forward.Rotate(c.spreadAngle(w.Details.Spread))
		velocity := direction.Scale(-w.Details.BulletSpeed)

		c.world.Spawn(gamestate.Entity{
			Caps: gamestate.CapTransform | gamestate.CapVelocity | gamestate.CapProjectile |
				gamestate.CapDamage | gamestate.CapLifespan,
			Transform: gamestate.Transform{Position: position, Rotation: e.Transform.Rotation},
			Velocity:  velocity,
			Damage:    gamestate.Damage{Value: w.Details.Damage},
			Lifespan:  gamestate.Lifespan{SpawnedAt: now, TTL: ttl},
			Owner:     e.ID,
		})

		c.net.Broadcast(protocol.ShotEvent{
			Position:        position,
			Velocity:        velocity,
			BulletTimeLimit: timeLimit,
		}, protocol.ReliableSequenced(protocol.StreamShotEvent), protocol.UrgencyOnTick)
	}

	w.Fire(now)
	c.hooks.OnWeaponFire(e, slot.Name, w.Details.PelletNumber)
	c.sendAmmo(e, w)
	return true
}

// spreadAngle draws a deviation in radians from [-spread, +spread] degrees.
func (c *WeaponController) spreadAngle(spread float64) float64 {
	if spread <= 0 {
		return 0
	}
	degrees := (c.rng.Float64()*2 - 1) * spread
	return degrees * math.Pi / 180
}

func (c *WeaponController) reload(e *gamestate.Entity, requested bool, now time.Duration) {
	w := e.Holster.Active().Weapon
	if requested && w.StartReload(now) {
		c.logger.Debug("reload started", "entity", e.ID)
		return
	}
	if w.FinishReload(now) {
		c.sendAmmo(e, w)
	}
}

func (c *WeaponController) sendAmmo(e *gamestate.Entity, w *weapon.Weapon) {
	client, ok := e.ClientID()
	if !ok {
		return
	}

	err := c.net.SendToClient(client, protocol.AmmoUpdate{AmmoInMagazine: w.BulletsLeft},
		protocol.ReliableSequenced(protocol.StreamAmmoUpdate), protocol.UrgencyOnTick)
	if err != nil {
		c.logger.Warn("failed to send ammo update", "entity", e.ID, "client", client, "error", err)
	}
}
