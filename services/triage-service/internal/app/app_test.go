package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "worker", "setup", "import", "classify-all", "search"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestPersistentFlagsBound(t *testing.T) {
	for _, key := range []string{"database.url", "ollama.base_url", "ollama.model", "redis.addr"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(key), key)
	}
	assert.NotNil(t, serveCmd.Flags().Lookup("worker"))
	assert.NotNil(t, workerCmd.Flags().Lookup("worker.concurrency"))
}
