package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a JSON/YAML-friendly wrapper around time.Duration that accepts
// human readable strings such as "300ms" in configuration files while still
// allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML mirrors MarshalJSON so YAML documents carry "300ms" style values.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar, got kind %d", node.Kind)
	}
	if node.Tag == "!!int" {
		var n int64
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode int: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	if node.Tag == "!!null" {
		*d = 0
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config captures the tunable parameters of a voxel world server.
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Terrain TerrainConfig `json:"terrain" yaml:"terrain"`
	Chunk   ChunkConfig   `json:"chunk" yaml:"chunk"`
	Player  PlayerConfig  `json:"player" yaml:"player"`
	Network NetworkConfig `json:"network" yaml:"network"`
}

type ServerConfig struct {
	ID       string   `json:"id" yaml:"id"`
	TickRate Duration `json:"tickRate" yaml:"tickRate"` // e.g. "16ms"
	// StateStreamEvery sends the player state to the client every N ticks.
	StateStreamEvery int `json:"stateStreamEvery" yaml:"stateStreamEvery"`
}

// NoiseConfig parameterises one noise feature.
type NoiseConfig struct {
	// SeedScale multiplies the world seed to derive this feature's seed.
	SeedScale float64 `json:"seedScale" yaml:"seedScale"`
	Gap       float64 `json:"gap" yaml:"gap"`
	Amplitude float64 `json:"amplitude" yaml:"amplitude"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

type TerrainConfig struct {
	Seed       float64     `json:"seed" yaml:"seed"`
	Baseline   int         `json:"baseline" yaml:"baseline"`
	TreeHeight int         `json:"treeHeight" yaml:"treeHeight"`
	Height     NoiseConfig `json:"height" yaml:"height"`
	Stone      NoiseConfig `json:"stone" yaml:"stone"`
	Coal       NoiseConfig `json:"coal" yaml:"coal"`
	Tree       NoiseConfig `json:"tree" yaml:"tree"`
	Leaf       NoiseConfig `json:"leaf" yaml:"leaf"`
}

type ChunkConfig struct {
	RenderDistance int `json:"renderDistance" yaml:"renderDistance"`
	// CapacityFactors scales the per-type buffer capacity, indexed by block type.
	CapacityFactors []float64 `json:"capacityFactors" yaml:"capacityFactors"`
	Workers         int       `json:"workers" yaml:"workers"` // classification workers, 0 = GOMAXPROCS
	QueueDepth      int       `json:"queueDepth" yaml:"queueDepth"`
}

type PlayerConfig struct {
	Spawn         [3]float64 `json:"spawn" yaml:"spawn"`
	WalkSpeed     float64    `json:"walkSpeed" yaml:"walkSpeed"`
	FlySpeed      float64    `json:"flySpeed" yaml:"flySpeed"`
	Gravity       float64    `json:"gravity" yaml:"gravity"`
	TerminalFall  float64    `json:"terminalFall" yaml:"terminalFall"`
	JumpImpulse   float64    `json:"jumpImpulse" yaml:"jumpImpulse"`
	JumpWindow    Duration   `json:"jumpWindow" yaml:"jumpWindow"`
	Height        float64    `json:"height" yaml:"height"`       // eye height, also the downward ray range
	SideReach     float64    `json:"sideReach" yaml:"sideReach"` // horizontal ray range
	FallFloor     float64    `json:"fallFloor" yaml:"fallFloor"`
	RespawnHeight float64    `json:"respawnHeight" yaml:"respawnHeight"`
	Reach         float64    `json:"reach" yaml:"reach"` // block interaction range
}

type NetworkConfig struct {
	Listen            string   `json:"listen" yaml:"listen"` // ":8080"
	Path              string   `json:"path" yaml:"path"`
	HandshakeTimeout  Duration `json:"handshakeTimeout" yaml:"handshakeTimeout"`
	ReadTimeout       Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout      Duration `json:"writeTimeout" yaml:"writeTimeout"`
	OutboundQueue     int      `json:"outboundQueue" yaml:"outboundQueue"`
	CompressThreshold int      `json:"compressThreshold" yaml:"compressThreshold"` // bytes, 0 disables
	ReadLimit         int64    `json:"readLimit" yaml:"readLimit"`                 // max inbound message bytes
}

// Load reads configuration from a JSON or YAML file if provided. An empty path
// returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ID:               "voxelworld-0",
			TickRate:         Duration(16 * time.Millisecond),
			StateStreamEvery: 3,
		},
		Terrain: TerrainConfig{
			Seed:       0.5,
			Baseline:   30,
			TreeHeight: 10,
			Height:     NoiseConfig{SeedScale: 1, Gap: 22, Amplitude: 8},
			Stone:      NoiseConfig{SeedScale: 0.4, Gap: 12, Amplitude: 8, Threshold: 3.5},
			Coal:       NoiseConfig{SeedScale: 0.5, Gap: 3, Amplitude: 8, Threshold: 3},
			Tree:       NoiseConfig{SeedScale: 0.7, Gap: 2, Amplitude: 6, Threshold: -0.7},
			Leaf:       NoiseConfig{SeedScale: 0.8, Gap: 2, Amplitude: 5, Threshold: -0.03},
		},
		Chunk: ChunkConfig{
			RenderDistance: 3,
			// grass, sand, tree, leaf, dirt, stone, coal, wood
			CapacityFactors: []float64{1, 0.2, 0.1, 0.7, 0.1, 0.2, 0.1, 0.1},
			QueueDepth:      4,
		},
		Player: PlayerConfig{
			Spawn:         [3]float64{8, 50, 8},
			WalkSpeed:     5.612,
			FlySpeed:      21.78,
			Gravity:       25,
			TerminalFall:  38.4,
			JumpImpulse:   8,
			JumpWindow:    Duration(300 * time.Millisecond),
			Height:        1.8,
			SideReach:     0.5,
			FallFloor:     -100,
			RespawnHeight: 60,
			Reach:         8,
		},
		Network: NetworkConfig{
			Listen:            ":8080",
			Path:              "/ws",
			HandshakeTimeout:  Duration(5 * time.Second),
			ReadTimeout:       Duration(60 * time.Second),
			WriteTimeout:      Duration(5 * time.Second),
			OutboundQueue:     16,
			CompressThreshold: 16 << 10,
			ReadLimit:         64 << 10,
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.ID == "" {
		return errors.New("server.id must be set")
	}
	if c.Server.TickRate <= 0 {
		return errors.New("server.tickRate must be positive")
	}
	if c.Terrain.TreeHeight <= 0 {
		return errors.New("terrain.treeHeight must be positive")
	}
	for name, n := range map[string]NoiseConfig{
		"height": c.Terrain.Height,
		"stone":  c.Terrain.Stone,
		"coal":   c.Terrain.Coal,
		"tree":   c.Terrain.Tree,
		"leaf":   c.Terrain.Leaf,
	} {
		if n.Gap <= 0 {
			return fmt.Errorf("terrain.%s.gap must be positive", name)
		}
	}
	if c.Chunk.RenderDistance < 0 {
		return errors.New("chunk.renderDistance cannot be negative")
	}
	if len(c.Chunk.CapacityFactors) != 8 {
		return errors.New("chunk.capacityFactors must list 8 block types")
	}
	for _, f := range c.Chunk.CapacityFactors {
		if f < 0 {
			return errors.New("chunk.capacityFactors cannot be negative")
		}
	}
	if c.Chunk.Workers < 0 {
		return errors.New("chunk.workers cannot be negative")
	}
	if c.Player.Height <= 0 {
		return errors.New("player.height must be positive")
	}
	if c.Player.Gravity < 0 || c.Player.TerminalFall <= 0 {
		return errors.New("player gravity must be >= 0 and terminalFall > 0")
	}
	if c.Player.RespawnHeight <= c.Player.FallFloor {
		return errors.New("player.respawnHeight must be above player.fallFloor")
	}
	if c.Network.Listen == "" {
		return errors.New("network.listen must be set")
	}
	if c.Network.CompressThreshold < 0 {
		return errors.New("network.compressThreshold cannot be negative")
	}
	if c.Network.ReadLimit < 0 {
		return errors.New("network.readLimit cannot be negative")
	}
	return nil
}
