package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "acp-users.json", cfg.Storage.Document)
	assert.Equal(t, "./users.json", cfg.Storage.File)
	assert.False(t, cfg.Registry.Serialized)
	assert.Equal(t, "clock", cfg.Registry.IDStrategy)
	assert.Equal(t, []string{"rawPassword"}, cfg.Registry.SensitiveFields)
	assert.Equal(t, "none", cfg.MQ.Backend)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("STORAGE_BACKEND", "Gist")
	t.Setenv("GIST_ID", "abc123")
	t.Setenv("REGISTRY_SERIALIZED", "true")
	t.Setenv("REGISTRY_ID_STRATEGY", "counter")
	t.Setenv("REGISTRY_SENSITIVE_FIELDS", "rawPassword, pin ,,")

	cfg := LoadConfig()

	assert.Equal(t, 3000, cfg.ServerPort)
	assert.Equal(t, "gist", cfg.Storage.Backend)
	assert.Equal(t, "abc123", cfg.Gist.ID)
	assert.True(t, cfg.Registry.Serialized)
	assert.Equal(t, "counter", cfg.Registry.IDStrategy)
	assert.Equal(t, []string{"rawPassword", "pin"}, cfg.Registry.SensitiveFields)
}

func TestLoadConfigIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("REGISTRY_STRICT_DECODE", "maybe")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.False(t, cfg.Registry.StrictDecode)
}

func TestLoadConfigEmptyListsKeepDefaults(t *testing.T) {
	for _, value := range []string{"", " ", ",,"} {
		t.Setenv("REGISTRY_SENSITIVE_FIELDS", value)

		cfg := LoadConfig()

		assert.Equal(t, []string{"rawPassword"}, cfg.Registry.SensitiveFields, "value %q", value)
	}
}
