package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Backend  BackendConfig  `toml:"backend"`
	Log      LogConfig      `toml:"log"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Duration *int    `toml:"duration"`
	Mode     *string `toml:"mode"`
	Words    *int    `toml:"words"`
	WordList *string `toml:"wordlist"`
}

// BackendConfig selects and configures the result backend.
type BackendConfig struct {
	Kind      *string `toml:"kind"`
	URL       *string `toml:"url"`
	Key       *string `toml:"key"`
	DSN       *string `toml:"dsn"`
	RedisAddr *string `toml:"redis-addr"`
	Timeout   *string `toml:"timeout"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Template is written by the config command when no file exists.
const Template = `# typeme configuration

[practice]
# duration = 30        # 30 or 60 seconds
# mode = "timed"       # timed or words
# words = 25           # words mode text length
# wordlist = ""        # path to a word list, one word per line

[backend]
# kind = "rest"        # rest, sqlite or postgres
# url = ""             # rest: project URL, e.g. https://xyz.supabase.co
# key = ""             # rest: anon key
# dsn = ""             # postgres: connection string
# redis-addr = ""      # optional best score ranking, e.g. localhost:6379
# timeout = "10s"

[log]
# level = "info"
`

// WriteTemplate creates path with Template unless it already exists.
func WriteTemplate(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(Template), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}
