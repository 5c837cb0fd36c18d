package capture

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/laminark/laminark/internal/config"
	"github.com/laminark/laminark/internal/fingerprint"
	"github.com/laminark/laminark/internal/store"
)

// RunHook is the full hook invocation in one call: read raw stdin bytes,
// parse the event, open the store scoped to cwd's fingerprint, and run
// the pipeline. Every failure is absorbed and logged at warn level —
// callers always follow up with os.Exit(0).
func RunHook(raw []byte, cwd string, log zerolog.Logger) {
	ev, err := ParseEvent(raw)
	if err != nil {
		log.Warn().Err(err).Msg("failed to parse hook event, ignoring")
		return
	}
	if ev.CWD != "" {
		cwd = ev.CWD
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load config, using defaults")
	}

	dbCfg := store.DefaultConfig()
	if cfg.DataDir != "" {
		dbCfg.DataDir = cfg.DataDir
	}
	db, err := store.Open(dbCfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("failed to open store, dropping event")
		return
	}
	defer db.Close()

	repos, err := store.NewRepositories(db, fingerprint.Of(cwd))
	if err != nil {
		log.Warn().Err(err).Msg("failed to build repositories, dropping event")
		return
	}

	privacy := cfg.Privacy
	pipeline := NewPipeline(repos, func() config.Privacy { return privacy }, log)
	pipeline.Run(ev)
}

// ReadAll is a thin wrapper so both hook entrypoints read stdin the same
// way without importing io directly.
func ReadAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
