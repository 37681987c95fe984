package config

import (
	"fmt"
	"os"
	"time"

	"github.com/siohaza/sundown/internal/protocol"
	"github.com/siohaza/sundown/internal/weapon"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server  ServerConfig   `toml:"server"`
	Player  PlayerConfig   `toml:"player"`
	Weapons []WeaponConfig `toml:"weapons"`
}

type ServerConfig struct {
	Name            string `toml:"name"`
	Port            int    `toml:"port"`
	MaxClients      int    `toml:"max_clients"`
	TickRate        int    `toml:"tick_rate"`
	WorldUpdateRate int    `toml:"world_update_rate"`
	Codec           string `toml:"codec"`
	// Seed drives weapon spread and spawn selection; 0 seeds from the clock.
	Seed     uint64   `toml:"seed"`
	Scripts  []string `toml:"scripts"`
	BansFile string   `toml:"bans_file"`
	// Status enables the UDP status responder on Port+1.
	Status bool `toml:"status"`

	// logging configuration
	LogToFile bool `toml:"log_to_file"`
}

type PlayerConfig struct {
	Radius      float32     `toml:"radius"`
	MaxHealth   uint32      `toml:"max_health"`
	Speed       float32     `toml:"speed"`
	RespawnTime float64     `toml:"respawn_time"`
	Loadout     []string    `toml:"loadout"`
	SpawnPoints [][]float64 `toml:"spawn_points"`
}

type WeaponConfig struct {
	Name                string  `toml:"name"`
	Damage              uint32  `toml:"damage"`
	MagazineSize        uint32  `toml:"magazine_size"`
	ReloadTime          float64 `toml:"reload_time"`
	Spread              float64 `toml:"spread"`
	BulletSpeed         float32 `toml:"bullet_speed"`
	PelletNumber        int     `toml:"pellet_number"`
	FireRate            float64 `toml:"fire_rate"`
	BulletDistanceLimit float32 `toml:"bullet_distance_limit"`
	Shot                string  `toml:"shot"`
}

func defaultWeapons() []WeaponConfig {
	return []WeaponConfig{
		{
			Name: "Revolver", Damage: 35, MagazineSize: 6, ReloadTime: 2.0,
			Spread: 2, BulletSpeed: 40, PelletNumber: 1, FireRate: 2.5,
			BulletDistanceLimit: 30, Shot: "single",
		},
		{
			Name: "Shotgun", Damage: 12, MagazineSize: 2, ReloadTime: 2.5,
			Spread: 12, BulletSpeed: 30, PelletNumber: 6, FireRate: 1.2,
			BulletDistanceLimit: 12, Shot: "single",
		},
		{
			Name: "Rifle", Damage: 60, MagazineSize: 5, ReloadTime: 3.0,
			Spread: 0, BulletSpeed: 60, PelletNumber: 1, FireRate: 0.8,
			BulletDistanceLimit: 60, Shot: "single",
		},
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

func LoadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "sundown"
	}

	if c.Server.Port == 0 {
		c.Server.Port = 32887
	}

	if c.Server.MaxClients == 0 {
		c.Server.MaxClients = 16
	}

	if c.Server.TickRate == 0 {
		c.Server.TickRate = 60
	}

	if c.Server.WorldUpdateRate == 0 {
		c.Server.WorldUpdateRate = 20
	}

	if c.Server.Codec == "" {
		c.Server.Codec = "binary"
	}

	if c.Server.BansFile == "" {
		c.Server.BansFile = "data/bans.toml"
	}

	// player defaults
	if c.Player.Radius == 0 {
		c.Player.Radius = 0.5
	}
	if c.Player.MaxHealth == 0 {
		c.Player.MaxHealth = 100
	}
	if c.Player.Speed == 0 {
		c.Player.Speed = 5
	}
	if c.Player.RespawnTime == 0 {
		c.Player.RespawnTime = 3
	}

	if len(c.Weapons) == 0 {
		c.Weapons = defaultWeapons()
	}
	for i := range c.Weapons {
		if c.Weapons[i].PelletNumber == 0 {
			c.Weapons[i].PelletNumber = 1
		}
		if c.Weapons[i].Shot == "" {
			c.Weapons[i].Shot = "single"
		}
	}

	if len(c.Player.Loadout) == 0 {
		for _, w := range c.Weapons {
			c.Player.Loadout = append(c.Player.Loadout, w.Name)
		}
	}

	if len(c.Player.SpawnPoints) == 0 {
		c.Player.SpawnPoints = [][]float64{{0, 0}}
	}
}

func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server name cannot be empty")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65534 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Server.MaxClients <= 0 || c.Server.MaxClients > protocol.MaxClients {
		return fmt.Errorf("max_clients must be between 1 and %d", protocol.MaxClients)
	}

	if c.Server.TickRate <= 0 || c.Server.TickRate > 240 {
		return fmt.Errorf("tick_rate must be between 1 and 240")
	}

	if c.Server.WorldUpdateRate <= 0 || c.Server.WorldUpdateRate > c.Server.TickRate {
		return fmt.Errorf("world_update_rate must be between 1 and tick_rate")
	}

	if _, err := protocol.NewCodec(c.Server.Codec); err != nil {
		return err
	}

	if c.Player.Radius <= 0 {
		return fmt.Errorf("player radius must be positive")
	}

	if c.Player.RespawnTime < 0 {
		return fmt.Errorf("respawn_time cannot be negative")
	}

	catalog, err := c.Catalog()
	if err != nil {
		return err
	}

	if len(c.Player.Loadout) > protocol.SelectSlots {
		return fmt.Errorf("loadout has %d weapons, at most %d can be selected",
			len(c.Player.Loadout), protocol.SelectSlots)
	}
	if _, err := catalog.Loadout(c.Player.Loadout); err != nil {
		return fmt.Errorf("invalid loadout: %w", err)
	}

	if _, err := c.SpawnPoints(); err != nil {
		return err
	}

	return nil
}

// Catalog converts the [[weapons]] tables into weapon details.
func (c *Config) Catalog() (weapon.Catalog, error) {
	catalog := make(weapon.Catalog, len(c.Weapons))
	for _, w := range c.Weapons {
		if w.Name == "" {
			return nil, fmt.Errorf("weapon name cannot be empty")
		}
		if _, dup := catalog[w.Name]; dup {
			return nil, fmt.Errorf("weapon %q defined twice", w.Name)
		}

		shot, err := weapon.ParseShotMode(w.Shot)
		if err != nil {
			return nil, fmt.Errorf("weapon %q: %w", w.Name, err)
		}

		details := weapon.Details{
			Damage:              w.Damage,
			MagazineSize:        w.MagazineSize,
			ReloadTime:          time.Duration(w.ReloadTime * float64(time.Second)),
			Spread:              w.Spread,
			BulletSpeed:         w.BulletSpeed,
			PelletNumber:        w.PelletNumber,
			FireRate:            w.FireRate,
			BulletDistanceLimit: w.BulletDistanceLimit,
			Shot:                shot,
		}
		if err := details.Validate(); err != nil {
			return nil, fmt.Errorf("weapon %q: %w", w.Name, err)
		}
		catalog[w.Name] = details
	}
	return catalog, nil
}

func (c *Config) SpawnPoints() ([]protocol.Vector2f, error) {
	points := make([]protocol.Vector2f, 0, len(c.Player.SpawnPoints))
	for i, p := range c.Player.SpawnPoints {
		if len(p) != 2 {
			return nil, fmt.Errorf("spawn point %d must have 2 coordinates, got %d", i, len(p))
		}
		points = append(points, protocol.Vector2f{X: float32(p[0]), Y: float32(p[1])})
	}
	return points, nil
}

func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Server.TickRate)
}

func (c *Config) WorldUpdateInterval() time.Duration {
	return time.Second / time.Duration(c.Server.WorldUpdateRate)
}

func (c *Config) RespawnDelay() time.Duration {
	return time.Duration(c.Player.RespawnTime * float64(time.Second))
}
