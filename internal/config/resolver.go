package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	SecretsFileEnv     = "BOOKRAG_SECRETS_FILE"
	defaultSecretsFile = ".bookrag/secrets.toml"
)

// SecretStore is a secondary source of settings consulted after the environment.
type SecretStore interface {
	Lookup(key string) (string, bool)
}

// Secrets is a flat key/value secret store loaded from a TOML or YAML file.
type Secrets map[string]string

func (s Secrets) Lookup(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// LoadSecrets decodes a secrets file. TOML is the default, .yaml/.yml use yaml.v3.
func LoadSecrets(path string) (Secrets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = toml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode secrets file %s: %w", path, err)
	}

	secrets := make(Secrets, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			secrets[k] = val
		case map[string]any, []any:
			// nested tables are not settings
			continue
		default:
			secrets[k] = fmt.Sprint(val)
		}
	}
	return secrets, nil
}

// Resolver looks settings up in the environment, then the secret store, then
// falls back to the supplied default.
type Resolver struct {
	secrets SecretStore
}

// NewResolver returns a resolver backed by the given secret store, which may be nil.
func NewResolver(secrets SecretStore) *Resolver {
	return &Resolver{secrets: secrets}
}

// NewDefaultResolver loads the secrets file named by BOOKRAG_SECRETS_FILE (or the
// default location). An absent or unreadable file is skipped.
func NewDefaultResolver() *Resolver {
	path := os.Getenv(SecretsFileEnv)
	if path == "" {
		path = defaultSecretsFile
	}
	secrets, err := LoadSecrets(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Secret store unavailable, using environment only")
		return NewResolver(nil)
	}
	log.Debug().Str("path", path).Int("keys", len(secrets)).Msg("Loaded secret store")
	return NewResolver(secrets)
}

// Get never fails: a missing value always resolves to def.
func (r *Resolver) Get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if r != nil && r.secrets != nil {
		if v, ok := r.secrets.Lookup(key); ok && v != "" {
			return v
		}
	}
	return def
}
