package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zoiner/internal/config"
)

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "consume", "pinata-check"}, names)

	flag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "config.yaml", flag.DefValue)
}

func TestParseWei(t *testing.T) {
	v, err := parseWei("0.1 gwei")
	require.NoError(t, err)
	assert.Equal(t, "100000000", v.String())

	_, err = parseWei("a lot")
	assert.Error(t, err)
}

func TestNewAppDryRun(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	cfg.Neynar.APIKey = "key"
	cfg.Neynar.SignerUUID = "signer"
	cfg.Bot.FID = 1
	cfg.DryRun = true
	cfg.Storage.DSN = ""
	cfg.Redis.Addr = ""
	cfg.Notifier.TelegramToken = ""

	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.pipeline)
	assert.Nil(t, a.repo)
	assert.Nil(t, a.dedupe())
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	_, err := newApp(&config.Config{Dispatch: config.DispatchConfig{Mode: config.DispatchInline}}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewAlerts(t *testing.T) {
	cfg := &config.Config{}
	assert.Nil(t, newAlerts(cfg))

	cfg.Notifier.TelegramToken = "token"
	assert.Nil(t, newAlerts(cfg), "no chat ids")

	cfg.Notifier.TelegramChatIDs = []string{"1"}
	assert.NotNil(t, newAlerts(cfg))
}
