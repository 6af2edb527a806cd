package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := LoadConfig()

	addr := flag.String("addr", cfg.Addr(), "HTTP listen address")
	clientDir := flag.String("client", cfg.ClientDir, "Path to static client directory (empty to disable)")
	dbPath := flag.String("db", cfg.DBPath, "SQLite analytics database (empty to disable)")
	flag.Parse()

	var db *DB
	if *dbPath != "" {
		var err error
		db, err = OpenDB(*dbPath)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()
	}

	analytics := NewAnalytics(db, !cfg.Production)

	auth, err := NewAdminAuth(cfg.AdminPassword, cfg.JWTSecret, db)
	if err != nil {
		log.Fatalf("admin auth: %v", err)
	}
	if auth == nil {
		log.Printf("ADMIN_PASSWORD not set, admin API disabled")
	}

	rooms := NewRoomRegistry(cfg.MaxRooms, analytics)
	hub := NewHub(rooms)
	go hub.Run()

	mux := SetupRoutes(hub, RouteOptions{
		ClientDir: *clientDir,
		PublicURL: cfg.PublicURL,
		Analytics: analytics,
		Auth:      auth,
	})

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s (max %d rooms)", *addr, cfg.MaxRooms)
		if *clientDir != "" {
			log.Printf("Serving client files from %s", *clientDir)
		}
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")

	rooms.Shutdown(shutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	hub.Stop()
	analytics.Stop()
}
