package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/verte-zerg/typeme/internal/model"
)

// Backend kinds.
const (
	KindREST     = "rest"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// Defaults.
const (
	DefaultWords   = 25
	DefaultTimeout = 10 * time.Second
	DefaultLevel   = "info"
)

// BackendSettings configures the result backend.
type BackendSettings struct {
	Kind      string
	URL       string
	Key       string
	DSN       string
	DBPath    string
	RedisAddr string
	Timeout   time.Duration
}

// Settings is the resolved configuration before CLI flag overrides.
type Settings struct {
	Practice     model.Config
	Backend      BackendSettings
	LogLevel     string
	IdentityPath string
	LogPath      string
}

// Defaults returns settings with no file or environment applied.
func Defaults() Settings {
	return Settings{
		Practice: model.Config{
			Mode:     model.TestTimed,
			Duration: model.Duration30,
			Words:    DefaultWords,
		},
		Backend: BackendSettings{
			Kind:    KindREST,
			DBPath:  DefaultDBPath(),
			Timeout: DefaultTimeout,
		},
		LogLevel:     DefaultLevel,
		IdentityPath: DefaultIdentityPath(),
		LogPath:      DefaultLogPath(),
	}
}

// Resolve layers the config file and then the environment over Defaults.
func Resolve(file FileConfig, env Env) (Settings, error) {
	s := Defaults()
	if err := s.applyFile(file); err != nil {
		return Settings{}, err
	}
	if err := s.applyEnv(env); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) applyFile(file FileConfig) error {
	p := file.Practice
	if p.Duration != nil {
		s.Practice.Duration = *p.Duration
	}
	if p.Mode != nil {
		s.Practice.Mode = model.TestType(*p.Mode)
	}
	if p.Words != nil {
		s.Practice.Words = *p.Words
	}
	if p.WordList != nil {
		s.Practice.WordListPath = *p.WordList
	}

	b := file.Backend
	setString(&s.Backend.Kind, b.Kind)
	setString(&s.Backend.URL, b.URL)
	setString(&s.Backend.Key, b.Key)
	setString(&s.Backend.DSN, b.DSN)
	setString(&s.Backend.RedisAddr, b.RedisAddr)
	if b.Timeout != nil {
		d, err := time.ParseDuration(*b.Timeout)
		if err != nil {
			return fmt.Errorf("failed to parse backend timeout: %w", err)
		}
		s.Backend.Timeout = d
	}
	setString(&s.LogLevel, file.Log.Level)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (s *Settings) applyEnv(env Env) error {
	if v, ok := env.Get(EnvBackend...); ok {
		s.Backend.Kind = v
	}
	if v, ok := env.Get(EnvURL...); ok {
		s.Backend.URL = v
	}
	if v, ok := env.Get(EnvKey...); ok {
		s.Backend.Key = v
	}
	if v, ok := env.Get(EnvDSN...); ok {
		s.Backend.DSN = v
	}
	if v, ok := env.Get(EnvRedisAddr...); ok {
		s.Backend.RedisAddr = v
	}
	if v, ok := env.Get(EnvTimeout...); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvTimeout[0], err)
		}
		s.Backend.Timeout = d
	}
	if v, ok := env.Get(EnvLogLevel...); ok {
		s.LogLevel = v
	}
	if v, ok := env.Get(EnvDuration...); ok {
		n, err := strconv.Atoi(strings.TrimSuffix(v, "s"))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvDuration[0], err)
		}
		s.Practice.Duration = n
	}
	if v, ok := env.Get(EnvMode...); ok {
		s.Practice.Mode = model.TestType(v)
	}
	if v, ok := env.Get(EnvWords...); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvWords[0], err)
		}
		s.Practice.Words = n
	}
	if v, ok := env.Get(EnvWordList...); ok {
		s.Practice.WordListPath = v
	}
	return nil
}

// Validate checks the practice and backend settings.
func (s Settings) Validate() error {
	if s.Practice.Duration != model.Duration30 && s.Practice.Duration != model.Duration60 {
		return fmt.Errorf("duration must be 30 or 60, got %d", s.Practice.Duration)
	}
	if !s.Practice.Mode.Valid() {
		return fmt.Errorf("mode must be timed or words, got %q", s.Practice.Mode)
	}
	if s.Practice.Words <= 0 {
		return fmt.Errorf("words must be positive")
	}
	if _, err := zapcore.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", s.LogLevel)
	}
	if s.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}
	switch s.Backend.Kind {
	case KindREST:
		if s.Backend.URL == "" {
			return fmt.Errorf("backend url is required: set SUPABASE_URL or [backend] url")
		}
		if s.Backend.Key == "" {
			return fmt.Errorf("backend key is required: set SUPABASE_ANON_KEY or [backend] key")
		}
	case KindPostgres:
		if s.Backend.DSN == "" {
			return fmt.Errorf("postgres dsn is required: set TYPEME_DSN or [backend] dsn")
		}
	case KindSQLite:
		if s.Backend.DBPath == "" {
			return fmt.Errorf("sqlite database path is empty")
		}
	default:
		return fmt.Errorf("unknown backend kind %q", s.Backend.Kind)
	}
	return nil
}
