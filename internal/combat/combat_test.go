package combat

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/siohaza/sundown/internal/broadcast"
	"github.com/siohaza/sundown/internal/broadcast/broadcasttest"
	"github.com/siohaza/sundown/internal/gamestate"
	"github.com/siohaza/sundown/internal/physics"
	"github.com/siohaza/sundown/internal/protocol"
	"github.com/siohaza/sundown/internal/registry"
	"github.com/siohaza/sundown/internal/weapon"
)

type fixture struct {
	world    *gamestate.World
	clients  *registry.Registry
	recorder *broadcasttest.Recorder
	net      *broadcast.Broadcaster
	logger   *slog.Logger
}

func newFixture(t *testing.T, clients int) *fixture {
	t.Helper()

	reg, err := registry.New(8)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	for i := 0; i < clients; i++ {
		addr := registry.Address(fmt.Sprintf("10.0.0.%d:7000", i+1))
		if _, err := reg.Register(addr, fmt.Sprintf("player%d", i)); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := broadcasttest.NewRecorder()
	return &fixture{
		world:    gamestate.NewWorld(),
		clients:  reg,
		recorder: rec,
		net:      broadcast.New(rec, protocol.BinaryCodec{}, reg, logger),
		logger:   logger,
	}
}

func (f *fixture) address(t *testing.T, id registry.ClientID) registry.Address {
	t.Helper()
	h, ok := f.clients.Find(id)
	if !ok {
		t.Fatalf("client %d not registered", id)
	}
	return h.Address
}

func (f *fixture) spawnTarget(health uint32, client *registry.ClientID) *gamestate.Entity {
	e := gamestate.Entity{
		Caps:   gamestate.CapTransform | gamestate.CapBounds | gamestate.CapHealth,
		Bounds: gamestate.BoundingCircle{Radius: 1},
		Health: gamestate.Health{Value: health, Max: 100},
	}
	if client != nil {
		e.Add(gamestate.CapClient)
		e.Client = *client
	}
	return f.world.Spawn(e)
}

func (f *fixture) spawnProjectile(damage uint32) *gamestate.Entity {
	return f.world.Spawn(gamestate.Entity{
		Caps:   gamestate.CapTransform | gamestate.CapProjectile | gamestate.CapDamage,
		Damage: gamestate.Damage{Value: damage},
	})
}

func clientID(id registry.ClientID) *registry.ClientID { return &id }

func TestDrainingDamageEliminatesOnce(t *testing.T) {
	f := newFixture(t, 1)
	r := NewDamageResolver(f.world, f.net, nil, f.logger)
	target := f.spawnTarget(30, clientID(0))

	if !r.Apply(5*time.Second, DamageEvent{Damage: 40, Target: target.ID}) {
		t.Fatalf("damage not applied")
	}
	if target.Health.Value != 0 {
		t.Fatalf("health = %d, want 0", target.Health.Value)
	}
	if !target.Has(gamestate.CapEliminated) || target.Eliminated.At != 5*time.Second {
		t.Fatalf("eliminated = %v at %v", target.Has(gamestate.CapEliminated), target.Eliminated.At)
	}

	if r.Apply(6*time.Second, DamageEvent{Damage: 40, Target: target.ID}) {
		t.Fatalf("damage applied to eliminated target")
	}
	if target.Eliminated.At != 5*time.Second {
		t.Fatalf("elimination time rewritten to %v", target.Eliminated.At)
	}

	updates := f.recorder.OfKind(protocol.EventKindHealthUpdate)
	if len(updates) != 1 {
		t.Fatalf("health updates = %d, want 1", len(updates))
	}
	msg := updates[0]
	if msg.Event.(protocol.HealthUpdate).Health != 0 {
		t.Fatalf("health update carries %+v", msg.Event)
	}
	if msg.Address != f.address(t, 0) {
		t.Fatalf("health update sent to %s", msg.Address)
	}
	if msg.Delivery != protocol.ReliableSequenced(protocol.StreamHealthUpdate) || msg.Urgency != protocol.UrgencyOnTick {
		t.Fatalf("health update delivery = %v / %v", msg.Delivery, msg.Urgency)
	}
}

func TestExactDamageDrains(t *testing.T) {
	f := newFixture(t, 0)
	r := NewDamageResolver(f.world, f.net, nil, f.logger)
	target := f.spawnTarget(40, nil)

	r.Apply(time.Second, DamageEvent{Damage: 40, Target: target.ID})
	if target.Health.Value != 0 || !target.Has(gamestate.CapEliminated) {
		t.Fatalf("damage equal to health did not eliminate: %+v", target.Health)
	}
}

func TestPartialDamageSubtracts(t *testing.T) {
	f := newFixture(t, 1)
	r := NewDamageResolver(f.world, f.net, nil, f.logger)
	target := f.spawnTarget(100, clientID(0))

	r.Apply(time.Second, DamageEvent{Damage: 40, Target: target.ID})
	if target.Health.Value != 60 {
		t.Fatalf("health = %d, want 60", target.Health.Value)
	}
	if target.Has(gamestate.CapEliminated) {
		t.Fatalf("partial damage eliminated the target")
	}
}

func TestDamageWithoutHealthIsIgnored(t *testing.T) {
	f := newFixture(t, 0)
	r := NewDamageResolver(f.world, f.net, nil, f.logger)
	rock := f.world.Spawn(gamestate.Entity{
		Caps:   gamestate.CapTransform | gamestate.CapBounds,
		Bounds: gamestate.BoundingCircle{Radius: 2},
	})
	before := *rock

	if r.Apply(time.Second, DamageEvent{Damage: 10, Target: rock.ID}) {
		t.Fatalf("damage applied to entity without health")
	}
	if *rock != before {
		t.Fatalf("entity changed: %+v", *rock)
	}

	projectile := f.spawnProjectile(10)
	stats := r.Resolve(time.Second, []physics.ProjectileCollision{{Projectile: projectile.ID, Target: rock.ID}})
	if stats.Applied != 0 || stats.Deleted != 1 {
		t.Fatalf("stats = %+v, want 0 applied, 1 deleted", stats)
	}
}

func TestProjectileHittingTwoTargets(t *testing.T) {
	f := newFixture(t, 0)
	r := NewDamageResolver(f.world, f.net, nil, f.logger)
	a := f.spawnTarget(100, nil)
	b := f.spawnTarget(100, nil)
	p := f.spawnProjectile(25)

	hits := []physics.ProjectileCollision{
		{Projectile: p.ID, Target: a.ID},
		{Projectile: p.ID, Target: b.ID},
	}

	damage, deletes := r.Collect(hits)
	if len(damage) != 2 || len(deletes) != 2 {
		t.Fatalf("collected %d damage, %d deletes", len(damage), len(deletes))
	}

	stats := r.Resolve(time.Second, hits)
	if stats.Applied != 2 || stats.Deleted != 1 {
		t.Fatalf("stats = %+v, want 2 applied, 1 deleted", stats)
	}
	if a.Health.Value != 75 || b.Health.Value != 75 {
		t.Fatalf("health = %d, %d; want 75, 75", a.Health.Value, b.Health.Value)
	}
	if _, ok := f.world.Get(p.ID); ok {
		t.Fatalf("projectile still alive")
	}
}

func TestUnknownClientDoesNotBlockOtherTargets(t *testing.T) {
	f := newFixture(t, 1)
	r := NewDamageResolver(f.world, f.net, nil, f.logger)
	orphan := f.spawnTarget(100, clientID(7))
	known := f.spawnTarget(100, clientID(0))
	p := f.spawnProjectile(10)

	stats := r.Resolve(time.Second, []physics.ProjectileCollision{
		{Projectile: p.ID, Target: orphan.ID},
		{Projectile: p.ID, Target: known.ID},
	})
	if stats.Applied != 2 {
		t.Fatalf("applied = %d, want 2", stats.Applied)
	}
	if orphan.Health.Value != 90 || known.Health.Value != 90 {
		t.Fatalf("health = %d, %d", orphan.Health.Value, known.Health.Value)
	}
	if n := len(f.recorder.OfKind(protocol.EventKindHealthUpdate)); n != 1 {
		t.Fatalf("health updates = %d, want 1", n)
	}
}

func gun(pellets int, spread float64) weapon.Details {
	return weapon.Details{
		Damage:              20,
		MagazineSize:        6,
		ReloadTime:          time.Second,
		Spread:              spread,
		BulletSpeed:         12.5,
		PelletNumber:        pellets,
		FireRate:            1000,
		BulletDistanceLimit: 7.5,
		Shot:                weapon.ShotAuto,
	}
}

func (f *fixture) spawnShooter(t *testing.T, client *registry.ClientID, details ...weapon.Details) *gamestate.Entity {
	t.Helper()

	slots := make([]weapon.Slot, len(details))
	for i, d := range details {
		slots[i] = weapon.Slot{Name: fmt.Sprintf("gun%d", i+1), Weapon: weapon.New(d)}
	}
	h, err := weapon.NewHolster(slots...)
	if err != nil {
		t.Fatalf("NewHolster: %v", err)
	}

	e := gamestate.Entity{
		Caps: gamestate.CapTransform | gamestate.CapBounds | gamestate.CapHolster |
			gamestate.CapInput | gamestate.CapHealth,
		Bounds:  gamestate.BoundingCircle{Radius: 1},
		Health:  gamestate.Health{Value: 100, Max: 100},
		Holster: h,
	}
	if client != nil {
		e.Add(gamestate.CapClient)
		e.Client = *client
	}
	return f.world.Spawn(e)
}

func projectiles(w *gamestate.World) []*gamestate.Entity {
	return w.Query(gamestate.CapProjectile)
}

func TestShotGeometryAndFanout(t *testing.T) {
	f := newFixture(t, 3)
	c := NewWeaponController(f.world, f.net, rand.New(rand.NewPCG(1, 2)), nil, f.logger)
	shooter := f.spawnShooter(t, clientID(0), gun(1, 0))

	shooter.Input.Flags = protocol.InputShoot
	c.Update(time.Second)

	shots := f.recorder.OfKind(protocol.EventKindShot)
	if len(shots) != 3 {
		t.Fatalf("shot events = %d, want 3", len(shots))
	}
	want := protocol.ShotEvent{
		Position:        protocol.Vector2f{X: 0, Y: -1},
		Velocity:        protocol.Vector2f{X: 0, Y: -12.5},
		BulletTimeLimit: 0.6,
	}
	seen := make(map[registry.Address]bool)
	for _, m := range shots {
		if m.Event.(protocol.ShotEvent) != want {
			t.Fatalf("shot = %+v, want %+v", m.Event, want)
		}
		if m.Delivery != protocol.ReliableSequenced(protocol.StreamShotEvent) {
			t.Fatalf("shot delivery = %v", m.Delivery)
		}
		seen[m.Address] = true
	}
	if len(seen) != 3 {
		t.Fatalf("shots reached %d distinct clients, want 3", len(seen))
	}

	ammo := f.recorder.OfKind(protocol.EventKindAmmoUpdate)
	if len(ammo) != 1 {
		t.Fatalf("ammo updates = %d, want 1", len(ammo))
	}
	if ammo[0].Address != f.address(t, 0) || ammo[0].Event.(protocol.AmmoUpdate).AmmoInMagazine != 5 {
		t.Fatalf("ammo update = %+v", ammo[0])
	}

	ps := projectiles(f.world)
	if len(ps) != 1 {
		t.Fatalf("projectiles = %d, want 1", len(ps))
	}
	if ps[0].Lifespan.TTL != 600*time.Millisecond || ps[0].Damage.Value != 20 || ps[0].Owner != shooter.ID {
		t.Fatalf("projectile = %+v", ps[0])
	}
}

func TestAmmoDecrementsOncePerShot(t *testing.T) {
	for _, pellets := range []int{1, 5} {
		f := newFixture(t, 0)
		c := NewWeaponController(f.world, f.net, nil, nil, f.logger)
		shooter := f.spawnShooter(t, nil, gun(pellets, 15))

		if !c.Shoot(shooter, time.Second) {
			t.Fatalf("pellets=%d: shot did not fire", pellets)
		}
		if left := shooter.Holster.Active().Weapon.BulletsLeft; left != 5 {
			t.Fatalf("pellets=%d: bullets left = %d, want 5", pellets, left)
		}
		if n := len(projectiles(f.world)); n != pellets {
			t.Fatalf("pellets=%d: spawned %d projectiles", pellets, n)
		}
	}
}

func TestZeroSpreadHasNoDeviation(t *testing.T) {
	f := newFixture(t, 0)
	c := NewWeaponController(f.world, f.net, rand.New(rand.NewPCG(3, 4)), nil, f.logger)
	shooter := f.spawnShooter(t, nil, gun(5, 0))

	c.Shoot(shooter, time.Second)

	for _, p := range projectiles(f.world) {
		if p.Velocity != (protocol.Vector2f{X: 0, Y: -12.5}) {
			t.Fatalf("pellet velocity = %+v, want (0, -12.5)", p.Velocity)
		}
	}
}

func TestSeededSpreadIsReproducible(t *testing.T) {
	fire := func() []protocol.Vector2f {
		f := newFixture(t, 0)
		c := NewWeaponController(f.world, f.net, rand.New(rand.NewPCG(42, 42)), nil, f.logger)
		shooter := f.spawnShooter(t, nil, gun(5, 10))
		c.Shoot(shooter, time.Second)

		var out []protocol.Vector2f
		for _, p := range projectiles(f.world) {
			out = append(out, p.Velocity)
		}
		return out
	}

	first, second := fire(), fire()
	if len(first) != 5 || len(second) != 5 {
		t.Fatalf("pellets = %d, %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("pellet %d differs: %+v vs %+v", i, first[i], second[i])
		}
		// 10 degrees off -Y keeps |x| below sin(10deg) * speed.
		if x := first[i].X; x > 2.18 || x < -2.18 {
			t.Fatalf("pellet %d deviates too far: %+v", i, first[i])
		}
	}
}

func TestCooldownAndEmptyMagazine(t *testing.T) {
	f := newFixture(t, 0)
	c := NewWeaponController(f.world, f.net, nil, nil, f.logger)
	d := gun(1, 0)
	d.FireRate = 2
	d.MagazineSize = 2
	shooter := f.spawnShooter(t, nil, d)

	if !c.Shoot(shooter, time.Second) {
		t.Fatalf("first shot blocked")
	}
	if c.Shoot(shooter, 1200*time.Millisecond) {
		t.Fatalf("fired during cooldown")
	}
	if !c.Shoot(shooter, 1500*time.Millisecond) {
		t.Fatalf("second shot blocked after cooldown")
	}
	if c.Shoot(shooter, 10*time.Second) {
		t.Fatalf("fired with an empty magazine")
	}
}

func TestSingleShotNeedsRelease(t *testing.T) {
	f := newFixture(t, 0)
	c := NewWeaponController(f.world, f.net, nil, nil, f.logger)
	d := gun(1, 0)
	d.Shot = weapon.ShotSingle
	shooter := f.spawnShooter(t, nil, d)

	shooter.Input.Flags = protocol.InputShoot
	c.Update(time.Second)
	c.Update(2 * time.Second)
	if n := len(projectiles(f.world)); n != 1 {
		t.Fatalf("held trigger fired %d times, want 1", n)
	}

	shooter.Input.Flags = 0
	c.Update(3 * time.Second)
	shooter.Input.Flags = protocol.InputShoot
	c.Update(4 * time.Second)
	if n := len(projectiles(f.world)); n != 2 {
		t.Fatalf("after release fired %d times, want 2", n)
	}
}

func TestSwitchFromInput(t *testing.T) {
	f := newFixture(t, 2)
	c := NewWeaponController(f.world, f.net, nil, nil, f.logger)
	shotgun := gun(5, 12)
	shotgun.MagazineSize = 2
	shooter := f.spawnShooter(t, clientID(1), gun(1, 0), shotgun)

	first := shooter.Holster.Active().Weapon
	first.Fire(0)
	first.StartReload(100 * time.Millisecond)

	shooter.Input.Flags = protocol.InputSelect2
	c.Update(400 * time.Millisecond)

	if shooter.Holster.ActiveIndex() != 1 {
		t.Fatalf("active slot = %d, want 1", shooter.Holster.ActiveIndex())
	}
	started, reloading := first.ReloadStartedAt()
	if !reloading || started != 400*time.Millisecond {
		t.Fatalf("reload = %v at %v, want restarted at 400ms", reloading, started)
	}

	switches := f.recorder.OfKind(protocol.EventKindWeaponSwitch)
	if len(switches) != 1 {
		t.Fatalf("weapon switches = %d, want 1", len(switches))
	}
	ws := switches[0].Event.(protocol.WeaponSwitch)
	if ws.Name != "gun2" || ws.MagazineSize != 2 || ws.AmmoInMagazine != 2 {
		t.Fatalf("weapon switch = %+v", ws)
	}
	if switches[0].Address != f.address(t, 1) {
		t.Fatalf("weapon switch sent to %s", switches[0].Address)
	}

	// Holding the same selection again is not a switch.
	c.Update(500 * time.Millisecond)
	shooter.Input.Flags = protocol.InputSelect5
	c.Update(600 * time.Millisecond)
	if n := len(f.recorder.OfKind(protocol.EventKindWeaponSwitch)); n != 1 {
		t.Fatalf("weapon switches = %d, want 1", n)
	}
}

func TestReloadFromInput(t *testing.T) {
	f := newFixture(t, 1)
	c := NewWeaponController(f.world, f.net, nil, nil, f.logger)
	shooter := f.spawnShooter(t, clientID(0), gun(1, 0))
	w := shooter.Holster.Active().Weapon
	w.Fire(0)

	shooter.Input.Flags = protocol.InputReload
	c.Update(time.Second)
	if !w.Reloading() {
		t.Fatalf("reload did not start")
	}

	shooter.Input.Flags = 0
	c.Update(2 * time.Second)
	if w.Reloading() || w.BulletsLeft != 6 {
		t.Fatalf("reload did not finish: reloading=%v bullets=%d", w.Reloading(), w.BulletsLeft)
	}
	ammo := f.recorder.OfKind(protocol.EventKindAmmoUpdate)
	if len(ammo) != 1 || ammo[0].Event.(protocol.AmmoUpdate).AmmoInMagazine != 6 {
		t.Fatalf("ammo updates = %+v", ammo)
	}
}

func TestEliminatedShooterIsSkipped(t *testing.T) {
	f := newFixture(t, 0)
	c := NewWeaponController(f.world, f.net, nil, nil, f.logger)
	shooter := f.spawnShooter(t, nil, gun(1, 0))
	shooter.Add(gamestate.CapEliminated)
	shooter.Input.Flags = protocol.InputShoot

	c.Update(time.Second)
	if n := len(projectiles(f.world)); n != 0 {
		t.Fatalf("eliminated shooter fired %d pellets", n)
	}
}
