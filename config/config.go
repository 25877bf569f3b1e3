// Package config loads the server's external configuration (spec.md
// §6): listen address, world root, viewer distances, compression
// policy and MOTD text. Loading is deliberately thin — this package
// carries no CLI flag parsing or code-generation subcommands, both
// explicit Non-goals.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// Config mirrors spec.md §6's external config-interface field list.
type Config struct {
	ListenAddress         string `toml:"listen_address"`
	WorldRoot             string `toml:"world_root"`
	ViewDistance          int    `toml:"view_distance"`
	EntityDistance        int    `toml:"entity_distance"`
	CompressionThreshold  int    `toml:"compression_threshold"`
	CompressionLevel      int    `toml:"compression_level"`
	MOTDText              string `toml:"motd_text"`
	MOTDIconBase64        string `toml:"motd_icon_base64"`
	Brand                 string `toml:"brand"`
	KeepAliveTimeoutSecs  int    `toml:"keep_alive_timeout_secs"`
	MaxPlayers            int    `toml:"max_players"`
}

// Default returns the configuration used when no file is supplied,
// matching the defaults spec.md §5 names explicitly (30s keep-alive
// timeout) and reasonable stand-ins for the rest.
func Default() Config {
	return Config{
		ListenAddress:        "0.0.0.0:25565",
		WorldRoot:            "world",
		ViewDistance:         10,
		EntityDistance:       10,
		CompressionThreshold: 256,
		CompressionLevel:     6,
		MOTDText:             "A Minecraft Server",
		Brand:                "pkserver",
		KeepAliveTimeoutSecs: 30,
		MaxPlayers:           20,
	}
}

// Load reads and parses a TOML config file at path, overlaying its
// fields onto Default() so a partial file is valid.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
