package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carteira/internal/log"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CARTEIRA_TEST_FROM_DOTENV=yes\n"), 0o600))
	t.Setenv("CARTEIRA_TEST_FROM_DOTENV", "")
	require.NoError(t, os.Unsetenv("CARTEIRA_TEST_FROM_DOTENV"))

	require.NoError(t, LoadEnvFile(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "yes", os.Getenv("CARTEIRA_TEST_FROM_DOTENV"))
}

func TestOpenMemoryApp(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(`{"transactions":[{"date":"2024-03-01","amount":1000,"type":"income","title":"Pix"}]}`), 0o600))

	for _, name := range []string{"CARTEIRA_DATA_BACKEND", "DATA_BACKEND", "CARTEIRA_PORT", "PORT", "AMQP_URL", "CARTEIRA_AMQP_URL"} {
		t.Setenv(name, "")
	}
	t.Setenv("CARTEIRA_SEED_FILE", seed)
	t.Setenv("CARTEIRA_TIMEZONE", "UTC")

	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)

	app, err := Open(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	defer app.Close()

	txs, err := app.Ledger.ListTransactions(context.Background(), "default")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Equal(t, "default", app.Session("").UserID)
	assert.Equal(t, time.UTC, app.Location)
}

func TestGracefulShutdownJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	err := GracefulShutdown(log.Discard(), time.Second,
		func(context.Context) error { ran = append(ran, "http"); return nil },
		func(context.Context) error { ran = append(ran, "backend"); return boom },
	)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"http", "backend"}, ran)
}
