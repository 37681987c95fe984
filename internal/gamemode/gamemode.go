// Package gamemode lets a game mode observe the simulation through the
// callback hooks.
package gamemode

import (
	"time"

	"github.com/siohaza/sundown/internal/callbacks"
)

type GameMode interface {
	callbacks.Hooks
	Name() string
	// Update runs once per tick after the pipeline.
	Update(now time.Duration) error
	Close()
}

// BaseGameMode ignores every hook.
type BaseGameMode struct {
	callbacks.DefaultCallbacks
	name string
}

func NewBaseGameMode(name string) *BaseGameMode {
	return &BaseGameMode{name: name}
}

func (b *BaseGameMode) Name() string {
	return b.name
}

func (b *BaseGameMode) Update(now time.Duration) error {
	return nil
}

func (b *BaseGameMode) Close() {}
