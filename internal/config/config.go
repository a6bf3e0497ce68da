package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DispatchInline = "inline"
	DispatchKafka  = "kafka"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Bot      BotConfig      `koanf:"bot"`
	Neynar   NeynarConfig   `koanf:"neynar"`
	Pinata   PinataConfig   `koanf:"pinata"`
	Metadata MetadataConfig `koanf:"metadata"`
	Chain    ChainConfig    `koanf:"chain"`
	DryRun   bool           `koanf:"dry_run"`
	Dispatch DispatchConfig `koanf:"dispatch"`
	Queue    QueueConfig    `koanf:"queue"`
	Redis    RedisConfig    `koanf:"redis"`
	Dedupe   DedupeConfig   `koanf:"dedupe"`
	Storage  StorageConfig  `koanf:"storage"`
	Notifier NotifierConfig `koanf:"notifier"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Port        string `koanf:"port"`
	APIEndpoint string `koanf:"api_endpoint"`
}

type BotConfig struct {
	FID  int64  `koanf:"fid"`
	Name string `koanf:"name"`
}

type NeynarConfig struct {
	APIKey     string `koanf:"api_key"`
	SignerUUID string `koanf:"signer_uuid"`
}

type PinataConfig struct {
	JWT     string `koanf:"jwt"`
	Gateway string `koanf:"gateway"`
}

type MetadataConfig struct {
	Gateways []string      `koanf:"gateways"`
	Timeout  time.Duration `koanf:"timeout"`
}

type ChainConfig struct {
	RPCURL           string        `koanf:"rpc_url"`
	ChainID          int64         `koanf:"chain_id"`
	PrivateKey       string        `koanf:"private_key"`
	Factory          string        `koanf:"factory"`
	Currency         string        `koanf:"currency"`
	PlatformReferrer string        `koanf:"platform_referrer"`
	TickLower        int64         `koanf:"tick_lower"`
	GasLimit         uint64        `koanf:"gas_limit"`
	GasFeeCap        string        `koanf:"gas_fee_cap"`
	GasTipCap        string        `koanf:"gas_tip_cap"`
	ReceiptTimeout   time.Duration `koanf:"receipt_timeout"`
	Explorer         string        `koanf:"explorer"`
}

type DispatchConfig struct {
	Mode string `koanf:"mode"`
}

type QueueConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
	GroupID string   `koanf:"group_id"`
}

type RedisConfig struct {
	Addr string `koanf:"addr"`
}

// DedupeConfig enables the duplicate-delivery guard. A zero window leaves it
// off.
type DedupeConfig struct {
	Window time.Duration `koanf:"window"`
}

type StorageConfig struct {
	DSN string `koanf:"dsn"`
}

type NotifierConfig struct {
	TelegramToken   string   `koanf:"telegram_token"`
	TelegramChatIDs []string `koanf:"telegram_chat_ids"`
}

type LogConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.port":           "3000",
		"server.api_endpoint":   "http://localhost:3000",
		"bot.name":              "zoiner",
		"pinata.gateway":        "https://gateway.pinata.cloud/ipfs",
		"metadata.timeout":      "5s",
		"chain.rpc_url":         "https://mainnet.base.org",
		"chain.chain_id":        8453,
		"chain.factory":         "0x777777751622c0d3258f214F9DF38E35BF45baF3",
		"chain.currency":        "0x4200000000000000000000000000000000000006",
		"chain.tick_lower":      -199200,
		"chain.gas_limit":       6000000,
		"chain.gas_fee_cap":     "0.1 gwei",
		"chain.gas_tip_cap":     "0.001 gwei",
		"chain.receipt_timeout": "2m",
		"chain.explorer":        "https://basescan.org",
		"dispatch.mode":         DispatchInline,
		"queue.topic":           "zoiner.casts",
		"queue.group_id":        "zoiner",
		"log.level":             "info",
	}
}

// envKeys maps the recognised environment variables onto config keys.
var envKeys = map[string]string{
	"NEYNAR_API_KEY":     "neynar.api_key",
	"SIGNER_UUID":        "neynar.signer_uuid",
	"BOT_FID":            "bot.fid",
	"BOT_NAME":           "bot.name",
	"PINATA_JWT":         "pinata.jwt",
	"GATEWAY_URL":        "pinata.gateway",
	"RPC_URL":            "chain.rpc_url",
	"WALLET_PRIVATE_KEY": "chain.private_key",
	"DRY_RUN":            "dry_run",
	"PORT":               "server.port",
	"API_ENDPOINT":       "server.api_endpoint",
	"DATABASE_URL":       "storage.dsn",
	"REDIS_ADDR":         "redis.addr",
	"DEDUPE_WINDOW":      "dedupe.window",
	"DISPATCH_MODE":      "dispatch.mode",
	"KAFKA_BROKERS":      "queue.brokers",
	"TELEGRAM_TOKEN":     "notifier.telegram_token",
	"TELEGRAM_CHAT_IDS":  "notifier.telegram_chat_ids",
	"LOG_LEVEL":          "log.level",
}

var listKeys = map[string]bool{
	"queue.brokers":              true,
	"notifier.telegram_chat_ids": true,
}

// Load reads defaults, then the optional yaml file at path, then the
// environment. Later sources win.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, err
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	gateway, err := NormalizeGateway(cfg.Pinata.Gateway)
	if err != nil {
		return nil, fmt.Errorf("pinata.gateway: %w", err)
	}
	cfg.Pinata.Gateway = gateway

	return cfg, nil
}

// NormalizeGateway accepts a bare gateway host ("gateway.pinata.cloud") or a
// URL and returns the base that CIDs are appended to, e.g.
// "https://gateway.pinata.cloud/ipfs".
func NormalizeGateway(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", s)
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	if u.Path == "" {
		u.Path = "/ipfs"
	}
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}

func envValue(name, value string) (string, any) {
	key, ok := envKeys[name]
	if !ok || value == "" {
		return "", nil
	}
	if listKeys[key] {
		return key, splitList(value)
	}
	return key, value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the settings every mode needs. The wallet key is only
// required when transactions are really sent.
func (c *Config) Validate() error {
	var errs []error

	if c.Neynar.APIKey == "" {
		errs = append(errs, errors.New("NEYNAR_API_KEY is required"))
	}
	if c.Neynar.SignerUUID == "" {
		errs = append(errs, errors.New("SIGNER_UUID is required"))
	}
	if c.Bot.FID == 0 {
		errs = append(errs, errors.New("BOT_FID is required"))
	}
	if c.Server.APIEndpoint == "" {
		errs = append(errs, errors.New("API_ENDPOINT is required"))
	}
	if !c.DryRun && c.Chain.PrivateKey == "" {
		errs = append(errs, errors.New("WALLET_PRIVATE_KEY is required unless DRY_RUN is set"))
	}

	switch c.Dispatch.Mode {
	case DispatchInline:
	case DispatchKafka:
		if len(c.Queue.Brokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required in kafka dispatch mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dispatch mode %q", c.Dispatch.Mode))
	}

	if c.Dedupe.Window > 0 && c.Redis.Addr == "" {
		errs = append(errs, errors.New("dedupe.window needs REDIS_ADDR"))
	}

	return errors.Join(errs...)
}

// DedupeEnabled reports whether the redis claim guard should be wired.
func (c *Config) DedupeEnabled() bool {
	return c.Redis.Addr != "" && c.Dedupe.Window > 0
}
