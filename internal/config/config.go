// Package config loads Laminark's runtime configuration from the
// environment and an optional JSON file, and can watch that file for
// changes so a long-lived RPC process picks up edits without a restart.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Privacy holds the operator-extensible redaction and exclusion rules
// layered on top of the built-in categories in internal/capture.
type Privacy struct {
	AdditionalPatterns []string `json:"additionalPatterns"`
	ExcludedFiles      []string `json:"excludedFiles"`
}

// File is the shape of the optional on-disk config file. The format is
// JSON, so encoding/json is used directly rather than reaching for a
// third-party config library.
type File struct {
	Debug   bool    `json:"debug"`
	Privacy Privacy `json:"privacy"`
}

// Config is the fully resolved runtime configuration: environment
// variables take precedence for the knobs they cover, the file supplies
// everything else.
type Config struct {
	DataDir        string
	ModelCacheDir  string
	Debug          bool
	EmbeddingMode  string
	Privacy        Privacy
}

// Load reads LAMINARK_DATA_DIR, LAMINARK_DEBUG, LAMINARK_EMBEDDING_MODE
// from the environment and, if present, DataDir/config.json.
func Load() (Config, error) {
	cfg := Config{
		DataDir:       dataDir(),
		EmbeddingMode: envOr("LAMINARK_EMBEDDING_MODE", "local"),
		Debug:         envBool("LAMINARK_DEBUG"),
	}
	cfg.ModelCacheDir = filepath.Join(cfg.DataDir, "models")

	path := filepath.Join(cfg.DataDir, "config.json")
	f, err := readFile(path)
	if err != nil {
		return cfg, err
	}
	if f != nil {
		if os.Getenv("LAMINARK_DEBUG") == "" {
			cfg.Debug = f.Debug
		}
		cfg.Privacy = f.Privacy
	}
	return cfg, nil
}

func readFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("laminark: read config file: %w", err)
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("laminark: parse config file: %w", err)
	}
	return &f, nil
}

func dataDir() string {
	if d := os.Getenv("LAMINARK_DATA_DIR"); d != "" {
		return d
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".laminark")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True":
		return true
	default:
		return false
	}
}

// Watcher hot-reloads the Privacy section of the config file. Only the
// RPC process uses this — the hook process is too short-lived to
// benefit, and starting an fsnotify watcher there would outlive the
// process that started it.
type Watcher struct {
	mu      sync.RWMutex
	current Privacy
	fsw     *fsnotify.Watcher
	log     zerolog.Logger
}

// NewWatcher starts watching dataDir/config.json. It watches the
// containing directory and filters for the file's events, so a file that
// doesn't exist yet is picked up once it is created.
func NewWatcher(dataDir string, initial Privacy, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("laminark: start config watcher: %w", err)
	}
	if err := fsw.Add(dataDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("laminark: watch data dir: %w", err)
	}

	w := &Watcher{current: initial, fsw: fsw, log: log.With().Str("component", "config-watcher").Logger()}
	configPath := filepath.Join(dataDir, "config.json")
	go w.loop(configPath)
	return w, nil
}

func (w *Watcher) loop(configPath string) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(configPath) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			f, err := readFile(configPath)
			if err != nil {
				w.log.Warn().Err(err).Msg("config reload failed, keeping previous values")
				continue
			}
			if f == nil {
				continue
			}
			w.mu.Lock()
			w.current = f.Privacy
			w.mu.Unlock()
			w.log.Info().Msg("reloaded privacy config")
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

// Privacy returns the most recently loaded privacy configuration.
func (w *Watcher) Privacy() Privacy {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
