// Command server is the orchestrator spec.md §4.14 names: it wires
// config, the registry table, the region-backed overworld, the entity
// manager and tab list, the accept loop and the tick loop together
// behind a single fixed game-data table. CLI flag parsing and the
// code-generation subcommands remain explicit Non-goals; the config
// file path is the one fixed constant below.
package main

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/chunkymonkey/pkserver/config"
)

// protocolVersion/versionName are the fixed values this repo's single
// game-data table (registry.NewStatic) corresponds to; a real
// deployment would derive these from the code-generation collaborator
// spec.md keeps out of scope.
const (
	protocolVersion = 767
	versionName     = "1.21.1"
)

const configPath = "pkserver.toml"

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Default()
	if loaded, err := config.Load(configPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Warn("failed to load config, using defaults")
		}
	} else {
		cfg = loaded
	}

	srv, err := NewServer(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build server")
	}

	if err := srv.Serve(); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
