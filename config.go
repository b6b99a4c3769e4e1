package main

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds process settings. Values come from .env, then the
// environment, then command-line flags; later sources win.
type Config struct {
	Addr      string
	DBPath    string
	JWTSecret string
	LogLevel  string
	LogPretty bool
	PublicURL string
	ClientDir string

	Countdown       time.Duration
	MatchDuration   time.Duration
	ScoreLimit      int
	MinThrowSpeed   float64
	MaxThrowSpeed   float64
	GrabRadius      float64
	BallCount       int
	BallRespawn     time.Duration
	TeleportTimeout time.Duration
	Fade            time.Duration
}

// LoadConfig reads configuration for the server binary
func LoadConfig(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	def := DefaultArenaConfig()
	cfg := Config{
		Addr:      getenv("ADDR", ":8080"),
		DBPath:    getenv("DB_PATH", "dodgeball.db"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogPretty: getenvBool("LOG_PRETTY", true),
		PublicURL: getenv("PUBLIC_URL", "http://localhost:8080"),
		ClientDir: os.Getenv("CLIENT_DIR"),

		Countdown:       getenvSeconds("COUNTDOWN_SECONDS", def.Match.Countdown),
		MatchDuration:   getenvSeconds("MATCH_SECONDS", def.Match.Duration),
		ScoreLimit:      getenvInt("SCORE_LIMIT", def.Match.ScoreLimit),
		MinThrowSpeed:   getenvFloat("MIN_THROW_SPEED", def.Throw.MinSpeed),
		MaxThrowSpeed:   getenvFloat("MAX_THROW_SPEED", def.Throw.MaxSpeed),
		GrabRadius:      getenvFloat("GRAB_RADIUS", def.Throw.GrabRadius),
		BallCount:       getenvInt("BALL_COUNT", def.BallCount),
		BallRespawn:     getenvSeconds("BALL_RESPAWN_SECONDS", def.BallRespawn),
		TeleportTimeout: getenvSeconds("TELEPORT_TIMEOUT_SECONDS", def.TeleportTimeout),
		Fade:            time.Duration(getenvInt("FADE_MS", int(def.Fade/time.Millisecond))) * time.Millisecond,
	}

	fl := flag.NewFlagSet("dodgeball-server", flag.ContinueOnError)
	fl.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fl.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path (empty disables persistence)")
	fl.StringVar(&cfg.ClientDir, "client", cfg.ClientDir, "Path to static client directory")
	fl.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fl.IntVar(&cfg.ScoreLimit, "score-limit", cfg.ScoreLimit, "Knockouts that end a match early (0 disables)")
	if err := fl.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.MinThrowSpeed > cfg.MaxThrowSpeed {
		return cfg, errors.New("MIN_THROW_SPEED must not exceed MAX_THROW_SPEED")
	}
	return cfg, nil
}

// ArenaConfig builds the per-arena settings shared by every session
func (c Config) ArenaConfig() ArenaConfig {
	ac := DefaultArenaConfig()
	ac.Match.Countdown = c.Countdown
	ac.Match.Duration = c.MatchDuration
	ac.Match.ScoreLimit = c.ScoreLimit
	ac.Throw.MinSpeed = c.MinThrowSpeed
	ac.Throw.MaxSpeed = c.MaxThrowSpeed
	ac.Throw.GrabRadius = c.GrabRadius
	ac.BallCount = c.BallCount
	ac.BallRespawn = c.BallRespawn
	ac.TeleportTimeout = c.TeleportTimeout
	ac.Fade = c.Fade
	return ac
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer, using default")
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid number, using default")
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid seconds, using default")
		return def
	}
	return time.Duration(f * float64(time.Second))
}
