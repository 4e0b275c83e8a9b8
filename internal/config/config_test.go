package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("GATEWAY_BASE_URL", "http://localhost:3000")
	t.Setenv("GATEWAY_WS_URL", "ws://localhost:3000/ws")
	t.Setenv("BOT_PREFIX", "!")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChallengeTTL != 5*time.Minute {
		t.Fatalf("ChallengeTTL = %v", cfg.ChallengeTTL)
	}
	if cfg.GameTTL != 24*time.Hour {
		t.Fatalf("GameTTL = %v", cfg.GameTTL)
	}
	if cfg.AIDepth != 2 || cfg.SuggestCount != 3 {
		t.Fatalf("AIDepth=%d SuggestCount=%d", cfg.AIDepth, cfg.SuggestCount)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("GATEWAY_BASE_URL", "")
	t.Setenv("GATEWAY_WS_URL", "ws://localhost:3000/ws")
	t.Setenv("BOT_PREFIX", "!")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing GATEWAY_BASE_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CHALLENGE_TTL", "90s")
	t.Setenv("AI_DEPTH", "3")
	t.Setenv("ALLOWED_CHANNELS", "chan-1, chan-2,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChallengeTTL != 90*time.Second {
		t.Fatalf("ChallengeTTL = %v", cfg.ChallengeTTL)
	}
	if cfg.AIDepth != 3 {
		t.Fatalf("AIDepth = %d", cfg.AIDepth)
	}
	if len(cfg.AllowedChannels) != 2 {
		t.Fatalf("AllowedChannels = %v", cfg.AllowedChannels)
	}
	if !cfg.ChannelAllowed("chan-2") || cfg.ChannelAllowed("chan-3") {
		t.Fatal("allowlist not applied")
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	setRequired(t)
	t.Setenv("GAME_TTL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GameTTL != 24*time.Hour {
		t.Fatalf("GameTTL = %v", cfg.GameTTL)
	}
}
