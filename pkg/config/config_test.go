package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/siohaza/sundown/internal/weapon"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
name = "dusty"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Server.Name != "dusty" {
		t.Fatalf("name = %q", cfg.Server.Name)
	}
	if cfg.Server.Port != 32887 || cfg.Server.TickRate != 60 || cfg.Server.Codec != "binary" {
		t.Fatalf("server defaults not applied: %+v", cfg.Server)
	}
	if len(cfg.Player.Loadout) != 3 || cfg.Player.Loadout[0] != "Revolver" {
		t.Fatalf("default loadout = %v", cfg.Player.Loadout)
	}
	if cfg.TickInterval() != time.Second/60 {
		t.Fatalf("tick interval = %v", cfg.TickInterval())
	}
}

func TestLoadConfigWeapons(t *testing.T) {
	path := writeConfig(t, `
[player]
loadout = ["Scattergun"]
spawn_points = [[1.0, 2.0], [-3.0, 4.5]]
respawn_time = 1.5

[[weapons]]
name = "Scattergun"
damage = 10
magazine_size = 2
reload_time = 2.5
spread = 8.0
bullet_speed = 25.0
pellet_number = 5
fire_rate = 1.0
bullet_distance_limit = 10.0
shot = "auto"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	details, ok := catalog["Scattergun"]
	if !ok {
		t.Fatalf("catalog missing Scattergun: %v", catalog.Names())
	}
	if details.ReloadTime != 2500*time.Millisecond || details.PelletNumber != 5 || details.Shot != weapon.ShotAuto {
		t.Fatalf("details = %+v", details)
	}

	points, err := cfg.SpawnPoints()
	if err != nil {
		t.Fatalf("SpawnPoints: %v", err)
	}
	if len(points) != 2 || points[1].X != -3 || points[1].Y != 4.5 {
		t.Fatalf("spawn points = %+v", points)
	}
	if cfg.RespawnDelay() != 1500*time.Millisecond {
		t.Fatalf("respawn delay = %v", cfg.RespawnDelay())
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "invalid port"},
		{"codec", func(c *Config) { c.Server.Codec = "xml" }, "codec"},
		{"world rate", func(c *Config) { c.Server.WorldUpdateRate = 120 }, "world_update_rate"},
		{"loadout", func(c *Config) { c.Player.Loadout = []string{"Cannon"} }, "invalid loadout"},
		{"duplicate", func(c *Config) { c.Weapons = append(c.Weapons, c.Weapons[0]) }, "defined twice"},
		{"spawn point", func(c *Config) { c.Player.SpawnPoints = [][]float64{{1}} }, "spawn point 0"},
		{"shot mode", func(c *Config) { c.Weapons[0].Shot = "burst" }, "shot mode"},
		{"fire rate", func(c *Config) { c.Weapons[0].FireRate = 0 }, "fire_rate must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
