package main

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
)

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

// RouteOptions carries the optional collaborators of the HTTP surface
type RouteOptions struct {
	ClientDir string // static client files, empty to disable
	PublicURL string // base of join links
	Analytics *Analytics
	Auth      *AdminAuth // nil disables the admin API
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, opts RouteOptions) *http.ServeMux {
	mux := http.NewServeMux()

	if opts.ClientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(opts.ClientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			fs.ServeHTTP(w, r)
		}))
	}

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.Admit(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.Release(ip)
			log.Printf("upgrade error: %v", err)
			return
		}

		binary := r.URL.Query().Get("protocol") == "binary"
		client := NewClient(hub, conn, ip, binary)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"rooms":   hub.rooms.Count(),
			"clients": hub.ClientCount(),
		})
	})

	mux.HandleFunc("GET /qr/{code}", func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSuffix(r.PathValue("code"), ".png")
		if !ValidRoomCode(code) {
			http.NotFound(w, r)
			return
		}
		if _, err := hub.rooms.Get(code); err != nil {
			http.NotFound(w, r)
			return
		}
		png, err := RoomQRCode(opts.PublicURL, code)
		if err != nil {
			log.Printf("qr %s: %v", code, err)
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	})

	if opts.Auth != nil {
		setupAdminRoutes(mux, hub, opts)
	}
	return mux
}

func setupAdminRoutes(mux *http.ServeMux, hub *Hub, opts RouteOptions) {
	auth := opts.Auth

	mux.HandleFunc("POST /api/admin/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
			return
		}
		token, err := auth.Login(req.Password, extractIP(r))
		switch {
		case errors.Is(err, ErrRateLimited):
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
		case err != nil:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusOK, map[string]string{"token": token})
		}
	})

	mux.Handle("GET /api/admin/rooms", requireAdmin(auth, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.rooms.List())
	}))

	mux.Handle("GET /api/admin/stats", requireAdmin(auth, func(w http.ResponseWriter, r *http.Request) {
		days := 7
		if v, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && v > 0 && v <= 365 {
			days = v
		}
		stats := map[string]interface{}{
			"rooms":   hub.rooms.Count(),
			"clients": hub.ClientCount(),
			"days":    days,
		}
		if a := opts.Analytics; a != nil {
			if counts, err := a.EventCounts(days); err == nil {
				stats["events"] = counts
			} else {
				log.Printf("stats: event counts: %v", err)
			}
			if matches, err := a.MatchStats(days); err == nil {
				stats["matches"] = matches
			} else {
				log.Printf("stats: match stats: %v", err)
			}
			if reasons, err := a.EndReasons(days); err == nil {
				stats["endReasons"] = reasons
			} else {
				log.Printf("stats: end reasons: %v", err)
			}
		}
		writeJSON(w, http.StatusOK, stats)
	}))
}

// requireAdmin rejects requests without a valid bearer token
func requireAdmin(auth *AdminAuth, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || auth.ValidateToken(token) != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	})
}
