package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	GatewayBaseURL string
	GatewayWSURL   string

	BotPrefix string

	AuthToken string

	RedisURL    string
	DatabaseURL string

	AllowedChannels []string

	ChallengeTTL time.Duration
	GameTTL      time.Duration
	StaleMaxIdle time.Duration

	AIDepth      int
	SuggestCount int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ChallengeTTL: 5 * time.Minute,
		GameTTL:      24 * time.Hour,
		StaleMaxIdle: 12 * time.Hour,
		AIDepth:      2,
		SuggestCount: 3,
	}

	cfg.GatewayBaseURL = strings.TrimSpace(os.Getenv("GATEWAY_BASE_URL"))
	cfg.GatewayWSURL = strings.TrimSpace(os.Getenv("GATEWAY_WS_URL"))
	cfg.BotPrefix = strings.TrimSpace(os.Getenv("BOT_PREFIX"))

	cfg.AuthToken = strings.TrimSpace(os.Getenv("GATEWAY_AUTH_TOKEN"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("ALLOWED_CHANNELS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			s := strings.TrimSpace(p)
			if s != "" {
				cfg.AllowedChannels = append(cfg.AllowedChannels, s)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("CHALLENGE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ChallengeTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("GAME_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.GameTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("STALE_GAME_MAX_IDLE")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.StaleMaxIdle = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("AI_DEPTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 4 {
			cfg.AIDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SUGGEST_COUNT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SuggestCount = n
		}
	}

	if cfg.GatewayBaseURL == "" {
		return nil, errors.New("GATEWAY_BASE_URL is required")
	}
	if cfg.GatewayWSURL == "" {
		return nil, errors.New("GATEWAY_WS_URL is required")
	}
	if cfg.BotPrefix == "" {
		return nil, errors.New("BOT_PREFIX is required")
	}

	return cfg, nil
}

// ChannelAllowed reports whether the channel passes the allowlist. An empty
// allowlist admits everything.
func (c *AppConfig) ChannelAllowed(channelID string) bool {
	if len(c.AllowedChannels) == 0 {
		return true
	}
	for _, ch := range c.AllowedChannels {
		if ch == channelID {
			return true
		}
	}
	return false
}
