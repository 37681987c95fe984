package weapon

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrEmptyHolster = errors.New("holster needs at least one weapon")

type ShotMode uint8

const (
	ShotSingle ShotMode = iota
	ShotAuto
)

func ParseShotMode(s string) (ShotMode, error) {
	switch s {
	case "", "single":
		return ShotSingle, nil
	case "auto":
		return ShotAuto, nil
	default:
		return ShotSingle, fmt.Errorf("unknown shot mode %q", s)
	}
}

// Details is the immutable configuration of a weapon type.
type Details struct {
	Damage       uint32
	MagazineSize uint32
	ReloadTime   time.Duration
	// Spread is the maximum pellet deviation in degrees to either side.
	Spread              float64
	BulletSpeed         float32
	PelletNumber        int
	FireRate            float64
	BulletDistanceLimit float32
	Shot                ShotMode
}

// Cooldown is the minimum time between two shots. A weapon without a
// positive fire rate never comes off cooldown.
func (d Details) Cooldown() time.Duration {
	if d.FireRate <= 0 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(float64(time.Second) / d.FireRate)
}

// BulletTimeLimit is how long a pellet lives before it has travelled
// BulletDistanceLimit, in seconds.
func (d Details) BulletTimeLimit() float32 {
	if d.BulletSpeed <= 0 {
		return 0
	}
	return d.BulletDistanceLimit / d.BulletSpeed
}

// Lifetime is BulletTimeLimit as a duration.
func (d Details) Lifetime() time.Duration {
	if d.BulletSpeed <= 0 {
		return 0
	}
	seconds := float64(d.BulletDistanceLimit) / float64(d.BulletSpeed)
	return time.Duration(seconds * float64(time.Second))
}

func (d Details) Validate() error {
	if d.MagazineSize == 0 {
		return fmt.Errorf("magazine_size must be positive")
	}
	if d.PelletNumber <= 0 {
		return fmt.Errorf("pellet_number must be positive")
	}
	if d.BulletSpeed <= 0 {
		return fmt.Errorf("bullet_speed must be positive")
	}
	if d.FireRate <= 0 {
		return fmt.Errorf("fire_rate must be positive")
	}
	if d.Spread < 0 || d.BulletDistanceLimit < 0 || d.ReloadTime < 0 {
		return fmt.Errorf("spread, bullet_distance_limit and reload_time must not be negative")
	}
	return nil
}

type Weapon struct {
	Details     Details
	BulletsLeft uint32
	// LastShotTime is only meaningful once HasFired is set.
	LastShotTime time.Duration
	HasFired     bool
	// InputLifted records that the trigger was released since the last shot.
	InputLifted bool

	reloadStartedAt time.Duration
	reloading       bool
}

func New(details Details) *Weapon {
	return &Weapon{
		Details:     details,
		BulletsLeft: details.MagazineSize,
		InputLifted: true,
	}
}

func (w *Weapon) OffCooldown(now time.Duration) bool {
	if !w.HasFired {
		return true
	}
	return now-w.LastShotTime >= w.Details.Cooldown()
}

// CanFire reports whether a held trigger fires this tick. An empty magazine
// or a running reload blocks firing.
func (w *Weapon) CanFire(now time.Duration) bool {
	if w.reloading || w.BulletsLeft == 0 {
		return false
	}
	if w.Details.Shot == ShotSingle && !w.InputLifted {
		return false
	}
	return w.OffCooldown(now)
}

// Fire records a shot. It consumes one round regardless of pellet count.
func (w *Weapon) Fire(now time.Duration) {
	w.LastShotTime = now
	w.HasFired = true
	w.InputLifted = false
	if w.BulletsLeft > 0 {
		w.BulletsLeft--
	}
}

func (w *Weapon) ReleaseTrigger() {
	w.InputLifted = true
}

func (w *Weapon) ReloadStartedAt() (time.Duration, bool) {
	return w.reloadStartedAt, w.reloading
}

func (w *Weapon) Reloading() bool {
	return w.reloading
}

// StartReload begins a reload unless one is running or the magazine is full.
func (w *Weapon) StartReload(now time.Duration) bool {
	if w.reloading || w.BulletsLeft >= w.Details.MagazineSize {
		return false
	}
	w.reloadStartedAt = now
	w.reloading = true
	return true
}

// RestartReload moves the start of a running reload to now.
func (w *Weapon) RestartReload(now time.Duration) bool {
	if !w.reloading {
		return false
	}
	w.reloadStartedAt = now
	return true
}

// FinishReload refills the magazine once ReloadTime has elapsed.
func (w *Weapon) FinishReload(now time.Duration) bool {
	if !w.reloading || now-w.reloadStartedAt < w.Details.ReloadTime {
		return false
	}
	w.BulletsLeft = w.Details.MagazineSize
	w.reloading = false
	w.reloadStartedAt = 0
	return true
}
