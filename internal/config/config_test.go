package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for name := range envKeys {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, int64(8453), cfg.Chain.ChainID)
	assert.Equal(t, int64(-199200), cfg.Chain.TickLower)
	assert.Equal(t, "0x777777751622c0d3258f214F9DF38E35BF45baF3", cfg.Chain.Factory)
	assert.Equal(t, 5*time.Second, cfg.Metadata.Timeout)
	assert.Equal(t, DispatchInline, cfg.Dispatch.Mode)
	assert.False(t, cfg.DedupeEnabled())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bot:
  fid: 100
  name: filebot
dispatch:
  mode: kafka
queue:
  brokers: [k1:9092]
dedupe:
  window: 10m
`), 0o600))

	clearEnv(t)
	t.Setenv("BOT_NAME", "envbot")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("TELEGRAM_CHAT_IDS", "1,2")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("UNRELATED_VAR", "ignored")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(100), cfg.Bot.FID)
	assert.Equal(t, "envbot", cfg.Bot.Name)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, DispatchKafka, cfg.Dispatch.Mode)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Queue.Brokers)
	assert.Equal(t, []string{"1", "2"}, cfg.Notifier.TelegramChatIDs)
	assert.Equal(t, 10*time.Minute, cfg.Dedupe.Window)
	assert.True(t, cfg.DedupeEnabled())
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{APIEndpoint: "https://bot.test"},
		Bot:      BotConfig{FID: 1},
		Neynar:   NeynarConfig{APIKey: "key", SignerUUID: "signer"},
		Chain:    ChainConfig{PrivateKey: "0xabc"},
		Dispatch: DispatchConfig{Mode: DispatchInline},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	dry := validConfig()
	dry.Chain.PrivateKey = ""
	assert.Error(t, dry.Validate())
	dry.DryRun = true
	assert.NoError(t, dry.Validate())

	kafka := validConfig()
	kafka.Dispatch.Mode = DispatchKafka
	assert.ErrorContains(t, kafka.Validate(), "KAFKA_BROKERS")

	unknown := validConfig()
	unknown.Dispatch.Mode = "carrier-pigeon"
	assert.ErrorContains(t, unknown.Validate(), "carrier-pigeon")

	dedupe := validConfig()
	dedupe.Dedupe.Window = time.Minute
	assert.ErrorContains(t, dedupe.Validate(), "REDIS_ADDR")

	empty := &Config{Dispatch: DispatchConfig{Mode: DispatchInline}}
	err := empty.Validate()
	assert.ErrorContains(t, err, "NEYNAR_API_KEY")
	assert.ErrorContains(t, err, "SIGNER_UUID")
	assert.ErrorContains(t, err, "BOT_FID")
}

func TestNormalizeGateway(t *testing.T) {
	for in, want := range map[string]string{
		"gateway.pinata.cloud":               "https://gateway.pinata.cloud/ipfs",
		"gateway.pinata.cloud/":              "https://gateway.pinata.cloud/ipfs",
		"https://gateway.pinata.cloud":       "https://gateway.pinata.cloud/ipfs",
		"https://gateway.pinata.cloud/ipfs":  "https://gateway.pinata.cloud/ipfs",
		"https://gateway.pinata.cloud/ipfs/": "https://gateway.pinata.cloud/ipfs",
		"http://localhost:8080/ipfs":         "http://localhost:8080/ipfs",
		"":                                   "",
	} {
		got, err := NormalizeGateway(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := NormalizeGateway("ftp://gateway.pinata.cloud")
	assert.Error(t, err)
}

func TestLoadNormalizesBareGatewayHost(t *testing.T) {
	clearEnv(t)
	t.Setenv("GATEWAY_URL", "my-gateway.mypinata.cloud")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://my-gateway.mypinata.cloud/ipfs", cfg.Pinata.Gateway)
}

func TestLoadKeepsDefaultGatewayURL(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs", cfg.Pinata.Gateway)
}
