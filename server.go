package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	qrSize          = 256
	leaderboardMax  = 100
	historyMax      = 50
	analyticsMaxAge = 90
)

var uuidPathRe = regexp.MustCompile(`^/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RouteOptions holds the optional parts of the HTTP surface
type RouteOptions struct {
	ClientDir string // static client; "" disables
	PublicURL string // base of the join links encoded in QR codes
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, opts RouteOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":       true,
			"sessions": hub.sessions.Count(),
			"clients":  hub.ClientCount(),
		})
	})

	// WebSocket endpoint
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Str("addr", ip).Msg("upgrade error")
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, hub.sessions.ListSessions())
		})
		r.Post("/sessions", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Name string `json:"name"`
			}
			_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&body)
			name := strings.TrimSpace(body.Name)
			if name == "" {
				name = "Dodgeball Court"
			}
			name = TruncateRunes(name, maxSessionNameLen)
			sess := hub.sessions.CreateSession(name)
			if sess == nil {
				writeJSON(w, http.StatusServiceUnavailable, ErrorMsg{Msg: "too many active sessions"})
				return
			}
			writeJSON(w, http.StatusCreated, SessionInfo{ID: sess.ID, Name: sess.Name, Phase: sess.Arena.Phase().String()})
		})
		r.Get("/sessions/{sid}", func(w http.ResponseWriter, r *http.Request) {
			sess := hub.sessions.GetSession(chi.URLParam(r, "sid"))
			if sess == nil {
				writeJSON(w, http.StatusNotFound, ErrorMsg{Msg: "session not found"})
				return
			}
			writeJSON(w, http.StatusOK, SessionInfo{
				ID:      sess.ID,
				Name:    sess.Name,
				Players: sess.Arena.PlayerCount(),
				Phase:   sess.Arena.Phase().String(),
			})
		})
		r.Get("/leaderboard", func(w http.ResponseWriter, r *http.Request) {
			if hub.db == nil {
				writeJSON(w, http.StatusOK, []LeaderboardEntry{})
				return
			}
			limit := queryInt(r, "limit", 20, leaderboardMax)
			entries, err := hub.db.GetLeaderboard(r.URL.Query().Get("sort"), limit)
			if err != nil {
				log.Error().Err(err).Msg("leaderboard query failed")
				writeJSON(w, http.StatusInternalServerError, ErrorMsg{Msg: "leaderboard unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, entries)
		})
		r.Get("/history/{stableID}", func(w http.ResponseWriter, r *http.Request) {
			if hub.db == nil {
				writeJSON(w, http.StatusOK, []MatchPlayerRow{})
				return
			}
			rows, err := hub.db.GetMatchHistory(chi.URLParam(r, "stableID"), queryInt(r, "limit", 10, historyMax))
			if err != nil {
				log.Error().Err(err).Msg("history query failed")
				writeJSON(w, http.StatusInternalServerError, ErrorMsg{Msg: "history unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, rows)
		})
		r.Get("/analytics", func(w http.ResponseWriter, r *http.Request) {
			if hub.analytics == nil {
				writeJSON(w, http.StatusOK, map[string]interface{}{})
				return
			}
			days := queryInt(r, "days", 7, analyticsMaxAge)
			counts, err := hub.analytics.EventCounts(days)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, ErrorMsg{Msg: err.Error()})
				return
			}
			matches, err := hub.analytics.Matches(days)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, ErrorMsg{Msg: err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"days":    days,
				"events":  counts,
				"matches": matches,
			})
		})
	})

	// Join QR for a headset or phone to scan
	r.Get("/qr/{sid}", func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "sid")
		if hub.sessions.GetSession(sid) == nil {
			http.NotFound(w, r)
			return
		}
		png, err := qrcode.Encode(strings.TrimRight(opts.PublicURL, "/")+"/"+sid, qrcode.Medium, qrSize)
		if err != nil {
			log.Error().Err(err).Str("session", sid).Msg("qr encode failed")
			http.Error(w, "qr unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	})

	if opts.ClientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(opts.ClientDir))
		r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			// SPA: serve index.html for root and session paths
			if r.URL.Path == "/" || uuidPathRe.MatchString(r.URL.Path) {
				http.ServeFile(w, r, filepath.Join(opts.ClientDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		}))
	}

	return r
}

// requestLogger logs API requests; the websocket upgrade is logged by the hub
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(rec, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Int("status", rec.status).Dur("dur", time.Since(start)).Msg("http")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func queryInt(r *http.Request, key string, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
