package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpiry        = 7 * 24 * time.Hour // 7 days
	bcryptCost       = 12
	minPasswordLen   = 4
	minUsernameLen   = 2
	maxUsernameLen   = 16
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoAccounts   = errors.New("accounts unavailable")
)

// Identity is who a connection speaks for. StableID survives reconnects and
// is the key of the session store.
type Identity struct {
	StableID  string
	Name      string
	AccountID int64 // 0 for guests
	Guest     bool
}

// accountStableID derives the stable id of a registered account
func accountStableID(id int64) string {
	return "u" + strconv.FormatInt(id, 10)
}

// Auth handles authentication
type Auth struct {
	db        *DB
	jwtSecret []byte

	// Rate limiting for login attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates a new Auth handler. A non-empty secret overrides the stored one.
// db may be nil, in which case only guest identities are issued.
func NewAuth(db *DB, secret string) *Auth {
	key := []byte(secret)
	if secret == "" {
		key = loadOrCreateSecret(db)
	}
	return &Auth{
		db:        db,
		jwtSecret: key,
		rateMap:   make(map[string]*rateEntry),
	}
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	// Generate a new secret
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			log.Warn().Err(err).Msg("could not persist JWT secret")
		}
	}
	return secret
}

// Guest issues a fresh guest identity
func (a *Auth) Guest(name string) (Identity, string, error) {
	if name == "" {
		name = GenerateGuestName()
	}
	id := Identity{StableID: "g" + GenerateID(8), Name: name, Guest: true}
	token, err := a.generateToken(id)
	if err != nil {
		return Identity{}, "", fmt.Errorf("internal error")
	}
	return id, token, nil
}

// Register creates a new account
func (a *Auth) Register(username, password string) (Identity, string, error) {
	if a.db == nil {
		return Identity{}, "", ErrNoAccounts
	}
	username = strings.TrimSpace(username)

	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return Identity{}, "", fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return Identity{}, "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	exists, err := a.db.UsernameExists(username)
	if err != nil {
		log.Error().Err(err).Msg("username lookup failed")
		return Identity{}, "", fmt.Errorf("database error")
	}
	if exists {
		return Identity{}, "", fmt.Errorf("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return Identity{}, "", fmt.Errorf("internal error")
	}

	pid, err := a.db.CreatePlayer(username, string(hash))
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("create account failed")
		return Identity{}, "", fmt.Errorf("failed to create account")
	}

	id := Identity{StableID: accountStableID(pid), Name: username, AccountID: pid}
	token, err := a.generateToken(id)
	if err != nil {
		return Identity{}, "", fmt.Errorf("internal error")
	}
	return id, token, nil
}

// Login authenticates a user and returns a JWT
func (a *Auth) Login(username, password, ip string) (Identity, string, error) {
	if a.db == nil {
		return Identity{}, "", ErrNoAccounts
	}
	if !a.checkRate(ip) {
		return Identity{}, "", fmt.Errorf("too many login attempts, try again later")
	}

	player, err := a.db.GetPlayerByUsername(username)
	if err != nil {
		log.Error().Err(err).Msg("account lookup failed")
		return Identity{}, "", fmt.Errorf("database error")
	}
	if player == nil || player.PassHash == "" {
		return Identity{}, "", fmt.Errorf("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(player.PassHash), []byte(password)); err != nil {
		return Identity{}, "", fmt.Errorf("invalid username or password")
	}

	id := Identity{StableID: accountStableID(player.ID), Name: player.Username, AccountID: player.ID}
	token, err := a.generateToken(id)
	if err != nil {
		return Identity{}, "", fmt.Errorf("internal error")
	}
	return id, token, nil
}

// ValidateToken validates a JWT and returns the identity it carries
func (a *Auth) ValidateToken(tokenStr string) (Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return Identity{}, fmt.Errorf("%w: missing stable id", ErrInvalidToken)
	}
	username, _ := claims["usr"].(string)
	pidFloat, _ := claims["pid"].(float64)
	guest, _ := claims["gst"].(bool)

	return Identity{StableID: sid, Name: username, AccountID: int64(pidFloat), Guest: guest}, nil
}

func (a *Auth) generateToken(id Identity) (string, error) {
	claims := jwt.MapClaims{
		"sid": id.StableID,
		"pid": id.AccountID,
		"usr": id.Name,
		"gst": id.Guest,
		"exp": time.Now().Add(jwtExpiry).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}

// GenerateGuestName creates a unique guest name like "Guest_a3f2"
func GenerateGuestName() string {
	b := make([]byte, 3)
	rand.Read(b)
	return "Guest_" + hex.EncodeToString(b)
}
