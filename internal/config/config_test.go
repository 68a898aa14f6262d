package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, ":8080", cfg.ServerAddress)
	require.Equal(t, "jwt", cfg.AuthProvider)
	require.Equal(t, "kidswap", cfg.MongoDB)
	require.Equal(t, "./uploads", cfg.UploadDir)
	require.EqualValues(t, 10, cfg.MaxUploadSizeMB)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("AUTH_PROVIDER", "firebase")
	t.Setenv("SERVER_ADDRESS", ":9090")

	cfg := Load()
	require.Equal(t, "firebase", cfg.AuthProvider)
	require.Equal(t, ":9090", cfg.ServerAddress)
}
