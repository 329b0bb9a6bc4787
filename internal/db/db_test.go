package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectAndMigrate_SQLite(t *testing.T) {
	gdb, err := Connect("sqlite:file:dbtest?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	for _, table := range []string{"chat_sessions", "chat_messages", "rag_chunks", "model_configs", "usage_records"} {
		require.True(t, gdb.Migrator().HasTable(table), "missing table %s", table)
	}
}
