package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 4*time.Second, cfg.Countdown)
	assert.Equal(t, DefaultArenaConfig().Match.Duration, cfg.ArenaConfig().Match.Duration)
}

func TestLoadConfigEnvAndFlags(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("MATCH_SECONDS", "90")
	t.Setenv("FADE_MS", "150")
	t.Setenv("BALL_COUNT", "not-a-number")
	t.Setenv("SCORE_LIMIT", "5")

	cfg, err := LoadConfig([]string{"-addr", ":7000", "-score-limit", "7", "-db", ""})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr, "flags override the environment")
	assert.Equal(t, "", cfg.DBPath)

	ac := cfg.ArenaConfig()
	assert.Equal(t, 90*time.Second, ac.Match.Duration)
	assert.Equal(t, 150*time.Millisecond, ac.Fade)
	assert.Equal(t, 7, ac.Match.ScoreLimit)
	assert.Equal(t, DefaultArenaConfig().BallCount, ac.BallCount, "bad values fall back to defaults")
}

func TestLoadConfigRejectsInvertedThrowRange(t *testing.T) {
	t.Setenv("MIN_THROW_SPEED", "30")
	t.Setenv("MAX_THROW_SPEED", "10")
	_, err := LoadConfig(nil)
	assert.Error(t, err)
}

func TestLoadConfigBadFlag(t *testing.T) {
	_, err := LoadConfig([]string{"-nope"})
	assert.Error(t, err)
}
