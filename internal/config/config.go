// Package config loads and persists the bot configuration file.
// A missing file is auto-populated with placeholder values; the bot
// refuses to serve until the placeholder token is replaced.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vaultgen/vaultgen/internal/domain"
)

// PlaceholderToken is written into a freshly created config file.
const PlaceholderToken = "YOUR_BOT_TOKEN_HERE"

// Config is the full bot configuration, stored as TOML.
type Config struct {
	Bot      BotConfig      `toml:"bot"`
	API      APIConfig      `toml:"api"`
	Gateway  GatewayConfig  `toml:"gateway"`
	Channels ChannelsConfig `toml:"channels"`
	Cooldown CooldownConfig `toml:"cooldown"`
	Vouch    VouchConfig    `toml:"vouch"`
	Status   StatusConfig   `toml:"status"`
	Embed    EmbedConfig    `toml:"embed"`
}

// BotConfig holds identity and storage settings.
type BotConfig struct {
	Token           string   `toml:"token"`
	StatusToken     string   `toml:"status_token"`
	DataDir         string   `toml:"data_dir"`
	AllowedGuildIDs []string `toml:"allowed_guild_ids"`
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	Listen        string `toml:"listen"`
	WebhookSecret string `toml:"webhook_secret"` // HMAC key for webhook JWTs
	EnableMetrics bool   `toml:"enable_metrics"`
}

// GatewayConfig configures the outbound chat-platform client.
type GatewayConfig struct {
	BaseURL    string `toml:"base_url"`
	SocksProxy string `toml:"socks_proxy"` // optional host:port, empty = direct
}

// ChannelsConfig maps features to channel and role identifiers.
type ChannelsConfig struct {
	Free        []string `toml:"free"`
	Premium     []string `toml:"premium"`
	Booster     []string `toml:"booster"`
	Vouch       string   `toml:"vouch"`
	Log         string   `toml:"log"`
	BanLogs     string   `toml:"ban_logs"`
	RestockLogs string   `toml:"restock_logs"`
	Restock     string   `toml:"restock"`
	RestockRole string   `toml:"restock_role"`
}

// CooldownConfig holds per-tier generation cooldowns in seconds.
type CooldownConfig struct {
	FreeSeconds    int `toml:"free_seconds"`
	PremiumSeconds int `toml:"premium_seconds"`
	BoosterSeconds int `toml:"booster_seconds"`
}

// VouchConfig controls the vouch obligation system.
type VouchConfig struct {
	GraceSeconds   int `toml:"grace_seconds"`
	TimeoutBanMins int `toml:"timeout_ban_minutes"`
}

// StatusConfig controls the status-role companion.
type StatusConfig struct {
	MustContain string `toml:"must_contain"`
	RoleID      string `toml:"role_id"`
	LogChannel  string `toml:"log_channel"`
}

// EmbedConfig holds presentation styling passed through to notifications.
type EmbedConfig struct {
	Color        string `toml:"color"`
	FooterText   string `toml:"footer_text"`
	ThumbnailURL string `toml:"thumbnail_url"`
}

// Default returns the configuration written for a fresh install.
func Default() Config {
	return Config{
		Bot: BotConfig{
			Token:   PlaceholderToken,
			DataDir: "data",
		},
		API: APIConfig{
			Listen:        "127.0.0.1:8474",
			EnableMetrics: true,
		},
		Cooldown: CooldownConfig{
			FreeSeconds:    int(domain.TierFree.DefaultCooldown().Seconds()),
			PremiumSeconds: int(domain.TierPremium.DefaultCooldown().Seconds()),
			BoosterSeconds: int(domain.TierBooster.DefaultCooldown().Seconds()),
		},
		Vouch: VouchConfig{
			GraceSeconds:   120,
			TimeoutBanMins: 30,
		},
		Embed: EmbedConfig{
			Color:      "#ffffff",
			FooterText: "vaultgen",
		},
	}
}

// Load reads the config file at path. If the file does not exist it is
// created with placeholder values and the defaults are returned.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return Config{}, fmt.Errorf("create config: %w", err)
		}
		return cfg, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyFallbacks(&cfg)
	return cfg, nil
}

// Save writes the config file, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// TokenConfigured reports whether a real bot token has been set.
func (c Config) TokenConfigured() bool {
	return c.Bot.Token != "" && c.Bot.Token != PlaceholderToken
}

// CooldownFor returns the configured cooldown for a tier.
func (c Config) CooldownFor(tier domain.Tier) time.Duration {
	switch tier {
	case domain.TierPremium:
		return time.Duration(c.Cooldown.PremiumSeconds) * time.Second
	case domain.TierBooster:
		return time.Duration(c.Cooldown.BoosterSeconds) * time.Second
	default:
		return time.Duration(c.Cooldown.FreeSeconds) * time.Second
	}
}

// SetCooldown updates the configured cooldown for a tier.
func (c *Config) SetCooldown(tier domain.Tier, d time.Duration) {
	switch tier {
	case domain.TierPremium:
		c.Cooldown.PremiumSeconds = int(d.Seconds())
	case domain.TierBooster:
		c.Cooldown.BoosterSeconds = int(d.Seconds())
	default:
		c.Cooldown.FreeSeconds = int(d.Seconds())
	}
}

// GracePeriod returns the vouch grace period.
func (c Config) GracePeriod() time.Duration {
	return time.Duration(c.Vouch.GraceSeconds) * time.Second
}

// TimeoutBan returns the ban length applied when an obligation lapses.
func (c Config) TimeoutBan() time.Duration {
	return time.Duration(c.Vouch.TimeoutBanMins) * time.Minute
}

// ChannelsFor returns the channels a tier's generation command may run in.
func (c Config) ChannelsFor(tier domain.Tier) []string {
	switch tier {
	case domain.TierPremium:
		return c.Channels.Premium
	case domain.TierBooster:
		return c.Channels.Booster
	default:
		return c.Channels.Free
	}
}

// applyFallbacks fills zero values in a hand-edited file with defaults.
func applyFallbacks(cfg *Config) {
	def := Default()
	if cfg.Bot.DataDir == "" {
		cfg.Bot.DataDir = def.Bot.DataDir
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = def.API.Listen
	}
	if cfg.Cooldown.FreeSeconds <= 0 {
		cfg.Cooldown.FreeSeconds = def.Cooldown.FreeSeconds
	}
	if cfg.Cooldown.PremiumSeconds <= 0 {
		cfg.Cooldown.PremiumSeconds = def.Cooldown.PremiumSeconds
	}
	if cfg.Cooldown.BoosterSeconds <= 0 {
		cfg.Cooldown.BoosterSeconds = def.Cooldown.BoosterSeconds
	}
	if cfg.Vouch.GraceSeconds <= 0 {
		cfg.Vouch.GraceSeconds = def.Vouch.GraceSeconds
	}
	if cfg.Vouch.TimeoutBanMins <= 0 {
		cfg.Vouch.TimeoutBanMins = def.Vouch.TimeoutBanMins
	}
	if cfg.Embed.FooterText == "" {
		cfg.Embed.FooterText = def.Embed.FooterText
	}
}
