package server

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/siohaza/sundown/internal/callbacks"
	"github.com/siohaza/sundown/internal/combat"
	"github.com/siohaza/sundown/internal/gamestate"
	"github.com/siohaza/sundown/internal/protocol"
	"github.com/siohaza/sundown/internal/registry"
	"github.com/siohaza/sundown/internal/weapon"
)

// PlayerTemplate describes a freshly spawned player entity.
type PlayerTemplate struct {
	Radius       float32
	MaxHealth    uint32
	Speed        float32
	RespawnDelay time.Duration
	Loadout      []string
}

// Players binds clients to their player entity and respawns eliminated
// players.
type Players struct {
	world    *gamestate.World
	catalog  weapon.Catalog
	template PlayerTemplate
	spawns   *gamestate.SpawnPoints
	net      combat.Notifier
	hooks    callbacks.Hooks
	logger   *slog.Logger

	mu       sync.Mutex
	byClient map[registry.ClientID]gamestate.EntityID
}

func NewPlayers(world *gamestate.World, catalog weapon.Catalog, template PlayerTemplate, spawns *gamestate.SpawnPoints, net combat.Notifier, hooks callbacks.Hooks, logger *slog.Logger) *Players {
	if logger == nil {
		logger = slog.Default()
	}
	if hooks == nil {
		hooks = &callbacks.DefaultCallbacks{}
	}

	return &Players{
		world:    world,
		catalog:  catalog,
		template: template,
		spawns:   spawns,
		net:      net,
		hooks:    hooks,
		logger:   logger,
		byClient: make(map[registry.ClientID]gamestate.EntityID),
	}
}

// Spawn creates the player entity for client, replacing any previous one,
// and sends the client its health and active weapon.
func (p *Players) Spawn(client registry.ClientID, now time.Duration) (*gamestate.Entity, error) {
	holster, err := p.catalog.Loadout(p.template.Loadout)
	if err != nil {
		return nil, fmt.Errorf("failed to build loadout: %w", err)
	}

	p.Despawn(client)

	e := p.world.Spawn(gamestate.Entity{
		Caps: gamestate.CapTransform | gamestate.CapBounds | gamestate.CapVelocity |
			gamestate.CapHealth | gamestate.CapClient | gamestate.CapHolster |
			gamestate.CapInput | gamestate.CapRespawn,
		Transform: gamestate.Transform{Position: p.spawns.Next()},
		Bounds:    gamestate.BoundingCircle{Radius: p.template.Radius},
		Health:    gamestate.Health{Value: p.template.MaxHealth, Max: p.template.MaxHealth},
		Client:    client,
		Holster:   holster,
		Input:     gamestate.Input{MoveSpeed: p.template.Speed},
		Respawn:   gamestate.Respawn{Delay: p.template.RespawnDelay},
	})

	p.mu.Lock()
	p.byClient[client] = e.ID
	p.mu.Unlock()

	p.logger.Info("player spawned", "client", client, "entity", e.ID, "position", e.Transform.Position, "at", now)
	p.hooks.OnSpawn(e)
	p.sendLoadout(e)
	return e, nil
}

// Despawn removes the player entity of client, if any.
func (p *Players) Despawn(client registry.ClientID) bool {
	p.mu.Lock()
	id, ok := p.byClient[client]
	delete(p.byClient, client)
	p.mu.Unlock()

	if !ok {
		return false
	}
	return p.world.Despawn(id)
}

func (p *Players) Entity(client registry.ClientID) (*gamestate.Entity, bool) {
	p.mu.Lock()
	id, ok := p.byClient[client]
	p.mu.Unlock()

	if !ok {
		return nil, false
	}
	return p.world.Get(id)
}

// SetInput stores the latest input of client on its player entity.
func (p *Players) SetInput(client registry.ClientID, in protocol.InputState) bool {
	e, ok := p.Entity(client)
	if !ok || !e.Has(gamestate.CapInput) {
		return false
	}
	e.Input.Flags = in.Flags
	e.Input.Cursor = in.Cursor
	return true
}

// Respawn replaces every player eliminated at least its respawn delay ago
// with a fresh entity for the same client. The eliminated entity is
// removed, not revived.
func (p *Players) Respawn(now time.Duration) int {
	var due []registry.ClientID
	p.world.Each(gamestate.CapEliminated|gamestate.CapRespawn|gamestate.CapClient, func(e *gamestate.Entity) {
		if now-e.Eliminated.At >= e.Respawn.Delay {
			due = append(due, e.Client)
		}
	})

	respawned := 0
	for _, client := range due {
		if _, err := p.Spawn(client, now); err != nil {
			p.logger.Error("failed to respawn player", "client", client, "error", err)
			continue
		}
		respawned++
	}
	return respawned
}

func (p *Players) sendLoadout(e *gamestate.Entity) {
	health := protocol.HealthUpdate{Health: e.Health.Value, Max: e.Health.Max}
	if err := p.net.SendToClient(e.Client, health,
		protocol.ReliableSequenced(protocol.StreamHealthUpdate), protocol.UrgencyOnTick); err != nil {
		p.logger.Warn("failed to send health update", "client", e.Client, "error", err)
	}

	slot := e.Holster.Active()
	sw := protocol.WeaponSwitch{
		Name:           slot.Name,
		MagazineSize:   slot.Weapon.Details.MagazineSize,
		AmmoInMagazine: slot.Weapon.BulletsLeft,
	}
	if err := p.net.SendToClient(e.Client, sw,
		protocol.ReliableSequenced(protocol.StreamWeaponSwitch), protocol.UrgencyOnTick); err != nil {
		p.logger.Warn("failed to send weapon switch", "client", e.Client, "error", err)
	}
}

// Snapshot collects the transform of every non-projectile entity.
func Snapshot(world *gamestate.World) protocol.EntityState {
	var state protocol.EntityState
	world.Each(gamestate.CapTransform, func(e *gamestate.Entity) {
		if e.Has(gamestate.CapProjectile) {
			return
		}
		state.Entities = append(state.Entities, protocol.EntitySnapshot{
			ID:       uint32(e.ID),
			Position: e.Transform.Position,
			Rotation: e.Transform.Rotation,
		})
	})
	return state
}
