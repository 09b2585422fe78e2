package main

import (
	"os"
	"testing"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctor-appointment-agent/server/internal/agent/repo"
)

func TestMemoryStoreNeedsNoDatabaseURL(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	var cfg AppConfig
	require.NoError(t, envconfig.Process("", &cfg))

	store, err := openStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &repo.MemoryStore{}, store)

	cfg.StoreDriver = "postgres"
	_, err = openStore(cfg)
	assert.ErrorContains(t, err, "DATABASE_URL")

	cfg.StoreDriver = "sqlite"
	_, err = openStore(cfg)
	assert.Error(t, err)
}
