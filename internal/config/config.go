package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	DBPath   string `envconfig:"DB_PATH" default:"./data/wakeup.db"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"` // webhooks, healthz, metrics
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error

	// Polling.
	PollInterval     time.Duration `envconfig:"POLL_INTERVAL" default:"3m"`
	WindowSlack      time.Duration `envconfig:"WINDOW_SLACK" default:"1m"`
	DispatchCooldown time.Duration `envconfig:"DISPATCH_COOLDOWN" default:"10m"`

	// Dispatch.
	WorkerLimit int           `envconfig:"WORKER_LIMIT" default:"8"`
	CallTimeout time.Duration `envconfig:"CALL_TIMEOUT" default:"30s"`

	// Telephony provider.
	ProviderBaseURL string `envconfig:"PROVIDER_BASE_URL" required:"true"`
	ProviderToken   string `envconfig:"PROVIDER_TOKEN" required:"true"`

	// Audio artifact cache.
	AudioCacheDir  string        `envconfig:"AUDIO_CACHE_DIR" default:"./data/audiocache"`
	AudioRetention time.Duration `envconfig:"AUDIO_RETENTION" default:"168h"`
}

// Load reads environment variables into Config and checks the relations
// the selection logic depends on.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.PollInterval <= 0 {
		return cfg, fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if cfg.PollInterval+cfg.WindowSlack >= 24*time.Hour {
		return cfg, fmt.Errorf("poll window must stay below 24h")
	}
	if cfg.DispatchCooldown <= cfg.PollInterval+cfg.WindowSlack {
		// An occurrence matches every tick for the full window width, so
		// only a cooldown longer than the window blocks the next tick from
		// re-firing an already-dispatched occurrence.
		return cfg, fmt.Errorf("DISPATCH_COOLDOWN must exceed POLL_INTERVAL + WINDOW_SLACK")
	}
	return cfg, nil
}
