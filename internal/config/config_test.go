package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeConnectionString(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "dotnet style",
			in:   "Host=db;Port=5432;Database=ledger;Username=app;Password=secret",
			want: "host=db port=5432 dbname=ledger user=app password=secret sslmode=disable",
		},
		{
			name: "keeps explicit sslmode",
			in:   "Host=db;Database=ledger;SSLMode=require",
			want: "host=db dbname=ledger sslmode=require",
		},
		{
			name: "timeouts",
			in:   "Host=db;Timeout=15;CommandTimeout=30",
			want: "host=db connect_timeout=15 statement_timeout=30s sslmode=disable",
		},
		{
			name: "libpq passthrough",
			in:   "host=db port=5432 dbname=ledger",
			want: "host=db port=5432 dbname=ledger",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeConnectionString(tc.in))
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, int64(1000000), cfg.BaseAccountNumber)
	assert.Equal(t, 3, cfg.LoanLimit)
	assert.False(t, cfg.LoanCreditsOnApproval)
	assert.Equal(t, "ledger.notifications", cfg.NotificationStream)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/test-ledger.db")
	t.Setenv("LOAN_LIMIT", "5")
	t.Setenv("LOAN_CREDITS_ON_APPROVAL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.Equal(t, "/tmp/test-ledger.db", cfg.SQLitePath)
	assert.Equal(t, 5, cfg.LoanLimit)
	assert.True(t, cfg.LoanCreditsOnApproval)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: memory\nloan_limit: 2\n"), 0o600))
	t.Setenv("LEDGER_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 2, cfg.LoanLimit)
}

func TestValidateRejectsUnknownStorage(t *testing.T) {
	cfg := Config{Storage: "mongodb", BaseAccountNumber: 1, LoanLimit: 1}
	assert.Error(t, cfg.Validate())
}
