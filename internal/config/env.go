package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variable names. Earlier names in each list win.
var (
	EnvBackend   = []string{"TYPEME_BACKEND"}
	EnvURL       = []string{"TYPEME_BACKEND_URL", "SUPABASE_URL", "VITE_SUPABASE_URL"}
	EnvKey       = []string{"TYPEME_BACKEND_KEY", "SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY"}
	EnvDSN       = []string{"TYPEME_DSN", "DATABASE_URL"}
	EnvRedisAddr = []string{"TYPEME_REDIS_ADDR"}
	EnvTimeout   = []string{"TYPEME_TIMEOUT"}
	EnvLogLevel  = []string{"TYPEME_LOG_LEVEL"}
	EnvDuration  = []string{"TYPEME_DURATION"}
	EnvMode      = []string{"TYPEME_MODE"}
	EnvWords     = []string{"TYPEME_WORDS"}
	EnvWordList  = []string{"TYPEME_WORDLIST"}
)

// Env resolves variables from the process environment, then a dotenv file.
type Env struct {
	lookup func(string) (string, bool)
	dotenv map[string]string
}

// LoadEnv reads the dotenv file at path on top of the process environment.
// A missing file is not an error.
func LoadEnv(path string) (Env, error) {
	env := Env{lookup: os.LookupEnv, dotenv: map[string]string{}}
	if path == "" {
		return env, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return Env{}, fmt.Errorf("failed to stat env file: %w", err)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return Env{}, fmt.Errorf("failed to read env file: %w", err)
	}
	env.dotenv = values
	return env, nil
}

// NewEnv builds an Env from fixed maps.
func NewEnv(process, dotenv map[string]string) Env {
	return Env{
		lookup: func(k string) (string, bool) {
			v, ok := process[k]
			return v, ok
		},
		dotenv: dotenv,
	}
}

// DefaultEnvPath is the dotenv file in the working directory.
func DefaultEnvPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return ".env"
	}
	return filepath.Join(wd, ".env")
}

// Get returns the first non-empty value among keys.
func (e Env) Get(keys ...string) (string, bool) {
	if e.lookup != nil {
		for _, k := range keys {
			if v, ok := e.lookup(k); ok && v != "" {
				return v, true
			}
		}
	}
	for _, k := range keys {
		if v := e.dotenv[k]; v != "" {
			return v, true
		}
	}
	return "", false
}
