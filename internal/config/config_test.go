package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typeme/internal/model"
)

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")

	assert.Equal(t, filepath.Join("/cfg", "typeme", "config.toml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join("/data", "typeme", "local.db"), DefaultIdentityPath())
	assert.Equal(t, filepath.Join("/data", "typeme", "typeme.db"), DefaultDBPath())
	assert.Equal(t, filepath.Join("/state", "typeme", "typeme.log"), DefaultLogPath())
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, FileConfig{}, cfg)

	_, err = LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[practice]
duration = 60
mode = "words"
words = 40

[backend]
kind = "sqlite"
timeout = "3s"

[log]
level = "debug"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Practice.Duration)
	assert.Equal(t, 60, *cfg.Practice.Duration)
	assert.Equal(t, "words", *cfg.Practice.Mode)
	assert.Equal(t, "sqlite", *cfg.Backend.Kind)
	assert.Equal(t, "debug", *cfg.Log.Level)
	assert.Nil(t, cfg.Backend.URL)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[practice]\nlang = \"en\"\n"), 0o644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "practice.lang")
}

func TestTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	created, err := WriteTemplate(path)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = WriteTemplate(path)
	require.NoError(t, err)
	assert.False(t, created)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, FileConfig{}, cfg)
}

func TestLoadEnvReadsDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("VITE_SUPABASE_URL=https://dotenv.example\nTYPEME_MODE=words\n"), 0o644))
	t.Setenv("TYPEME_MODE", "timed")
	for _, k := range EnvURL {
		t.Setenv(k, "")
	}

	env, err := LoadEnv(path)
	require.NoError(t, err)
	v, ok := env.Get(EnvURL...)
	assert.True(t, ok)
	assert.Equal(t, "https://dotenv.example", v)

	// Process environment wins over the file.
	v, _ = env.Get(EnvMode...)
	assert.Equal(t, "timed", v)

	missing, err := LoadEnv(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	_, ok = missing.Get("TYPEME_DOES_NOT_EXIST")
	assert.False(t, ok)
}

func TestEnvKeyPriority(t *testing.T) {
	env := NewEnv(
		map[string]string{"SUPABASE_URL": "https://proc.example", "TYPEME_BACKEND_URL": ""},
		map[string]string{"TYPEME_BACKEND_URL": "https://file.example"},
	)
	v, ok := env.Get(EnvURL...)
	assert.True(t, ok)
	assert.Equal(t, "https://proc.example", v)
}

func TestResolvePrecedence(t *testing.T) {
	duration := 60
	kind := "sqlite"
	level := "warn"
	file := FileConfig{
		Practice: PracticeConfig{Duration: &duration},
		Backend:  BackendConfig{Kind: &kind},
		Log:      LogConfig{Level: &level},
	}
	env := NewEnv(map[string]string{"TYPEME_LOG_LEVEL": "debug", "TYPEME_TIMEOUT": "2s"}, nil)

	s, err := Resolve(file, env)
	require.NoError(t, err)
	assert.Equal(t, 60, s.Practice.Duration)
	assert.Equal(t, model.TestTimed, s.Practice.Mode)
	assert.Equal(t, DefaultWords, s.Practice.Words)
	assert.Equal(t, KindSQLite, s.Backend.Kind)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, 2*time.Second, s.Backend.Timeout)
	require.NoError(t, s.Validate())
}

func TestResolveBadValues(t *testing.T) {
	_, err := Resolve(FileConfig{}, NewEnv(map[string]string{"TYPEME_DURATION": "soon"}, nil))
	assert.Error(t, err)

	bad := "forever"
	_, err = Resolve(FileConfig{Backend: BackendConfig{Timeout: &bad}}, NewEnv(nil, nil))
	assert.Error(t, err)
}

func TestDurationEnvAcceptsSuffix(t *testing.T) {
	s, err := Resolve(FileConfig{}, NewEnv(map[string]string{"TYPEME_DURATION": "60s"}, nil))
	require.NoError(t, err)
	assert.Equal(t, 60, s.Practice.Duration)
}

func TestValidateRESTRequiresURLAndKey(t *testing.T) {
	s := Defaults()
	assert.ErrorContains(t, s.Validate(), "backend url is required")

	s.Backend.URL = "https://xyz.supabase.co"
	assert.ErrorContains(t, s.Validate(), "backend key is required")

	s.Backend.Key = "sb_publishable_abc"
	assert.NoError(t, s.Validate())
}

func TestValidate(t *testing.T) {
	base := Defaults()
	base.Backend.Kind = KindSQLite

	cases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"duration", func(s *Settings) { s.Practice.Duration = 45 }},
		{"mode", func(s *Settings) { s.Practice.Mode = "sprint" }},
		{"words", func(s *Settings) { s.Practice.Words = 0 }},
		{"level", func(s *Settings) { s.LogLevel = "loud" }},
		{"timeout", func(s *Settings) { s.Backend.Timeout = 0 }},
		{"kind", func(s *Settings) { s.Backend.Kind = "mongo" }},
		{"postgres", func(s *Settings) { s.Backend.Kind = KindPostgres }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := base
			tc.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
	assert.NoError(t, base.Validate())
}
