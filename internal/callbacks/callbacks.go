package callbacks

import (
	"time"

	"github.com/siohaza/sundown/internal/gamestate"
	"github.com/siohaza/sundown/internal/registry"
)

// Hooks observes simulation events. Implementations run on the tick
// goroutine and must not block.
type Hooks interface {
	OnConnect(id registry.ClientID, name string)
	OnDisconnect(id registry.ClientID)
	OnSpawn(e *gamestate.Entity)
	OnDamage(target *gamestate.Entity, damage uint32)
	OnEliminated(target *gamestate.Entity, at time.Duration)
	OnWeaponFire(shooter *gamestate.Entity, weapon string, pellets int)
	OnWeaponSwitch(owner *gamestate.Entity, weapon string)
}

type DefaultCallbacks struct{}

func (d *DefaultCallbacks) OnConnect(id registry.ClientID, name string)                        {}
func (d *DefaultCallbacks) OnDisconnect(id registry.ClientID)                                  {}
func (d *DefaultCallbacks) OnSpawn(e *gamestate.Entity)                                        {}
func (d *DefaultCallbacks) OnDamage(target *gamestate.Entity, damage uint32)                   {}
func (d *DefaultCallbacks) OnEliminated(target *gamestate.Entity, at time.Duration)            {}
func (d *DefaultCallbacks) OnWeaponFire(shooter *gamestate.Entity, weapon string, pellets int) {}
func (d *DefaultCallbacks) OnWeaponSwitch(owner *gamestate.Entity, weapon string)              {}

type CallbackChain struct {
	callbacks []Hooks
}

func NewCallbackChain() *CallbackChain {
	return &CallbackChain{
		callbacks: make([]Hooks, 0),
	}
}

func (c *CallbackChain) Register(cb Hooks) {
	c.callbacks = append(c.callbacks, cb)
}

func (c *CallbackChain) Len() int {
	return len(c.callbacks)
}

func (c *CallbackChain) OnConnect(id registry.ClientID, name string) {
	for _, cb := range c.callbacks {
		cb.OnConnect(id, name)
	}
}

func (c *CallbackChain) OnDisconnect(id registry.ClientID) {
	for _, cb := range c.callbacks {
		cb.OnDisconnect(id)
	}
}

func (c *CallbackChain) OnSpawn(e *gamestate.Entity) {
	for _, cb := range c.callbacks {
		cb.OnSpawn(e)
	}
}

func (c *CallbackChain) OnDamage(target *gamestate.Entity, damage uint32) {
	for _, cb := range c.callbacks {
		cb.OnDamage(target, damage)
	}
}

func (c *CallbackChain) OnEliminated(target *gamestate.Entity, at time.Duration) {
	for _, cb := range c.callbacks {
		cb.OnEliminated(target, at)
	}
}

func (c *CallbackChain) OnWeaponFire(shooter *gamestate.Entity, weapon string, pellets int) {
	for _, cb := range c.callbacks {
		cb.OnWeaponFire(shooter, weapon, pellets)
	}
}

func (c *CallbackChain) OnWeaponSwitch(owner *gamestate.Entity, weapon string) {
	for _, cb := range c.callbacks {
		cb.OnWeaponSwitch(owner, weapon)
	}
}
