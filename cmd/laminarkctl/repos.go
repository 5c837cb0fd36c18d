package main

import (
	"fmt"
	"os"

	"github.com/laminark/laminark/internal/config"
	"github.com/laminark/laminark/internal/fingerprint"
	"github.com/laminark/laminark/internal/logging"
	"github.com/laminark/laminark/internal/store"
)

// openRepos opens the database and builds repositories scoped to the
// current working directory's project fingerprint. Every one-shot
// subcommand shares this path so "laminarkctl recall" and the hook see
// the same project.
func openRepos() (*store.DB, *store.Repositories, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	log := logging.New("laminarkctl")
	dbCfg := store.DefaultConfig()
	dbCfg.DataDir = cfg.DataDir

	d, err := store.Open(dbCfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("laminark: open store: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		d.Close()
		return nil, nil, fmt.Errorf("laminark: resolve working directory: %w", err)
	}

	repos, err := store.NewRepositories(d, fingerprint.Of(cwd))
	if err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, repos, nil
}
