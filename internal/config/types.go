package config

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Providers ProvidersConfig `json:"providers"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scanner   ScannerConfig   `json:"scanner,omitempty"`
	Broadcast BroadcastConfig `json:"broadcast,omitempty"`
	Session   SessionConfig   `json:"session,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// OwnerID is the sole principal allowed to run owner commands.
	OwnerID int64 `json:"owner_id"`
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// ProvidersConfig holds upstream API keys. At least one of the two keys must
// be set; startup fails otherwise.
type ProvidersConfig struct {
	OMDbAPIKey string `json:"omdb_api_key,omitempty"`
	TMDbAPIKey string `json:"tmdb_api_key,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite only).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type ScannerConfig struct {
	// PostDelay is the pacing delay between successive channel posts
	// (Go duration string, default "3s").
	PostDelay string `json:"post_delay,omitempty"`
}

type BroadcastConfig struct {
	RatePerSec    int `json:"rate_per_sec,omitempty"`
	ProgressEvery int `json:"progress_every,omitempty"`
}

type SessionConfig struct {
	// TTL evicts abandoned search sessions (Go duration string,
	// default "30m").
	TTL string `json:"ttl,omitempty"`
}
