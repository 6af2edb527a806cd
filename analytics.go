package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"os"
	"runtime"
	"sync"
	"time"
)

// Event types for analytics tracking
const (
	EvtRoomCreated  = "room_created"
	EvtPlayerJoined = "player_joined"
	EvtBotAdded     = "bot_added"
	EvtMatchStarted = "match_started"
	EvtMatchEnded   = "match_ended"
)

const (
	analyticsBufSize    = 1024
	analyticsBatchSize  = 50
	analyticsFlushEvery = 5 * time.Second
	anonymousSubject    = "anonymous_server"
)

// Tracker receives lifecycle events. Implementations must never block.
type Tracker interface {
	Track(event, subjectID string, props map[string]any)
}

type nopTracker struct{}

func (nopTracker) Track(string, string, map[string]any) {}

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	SubjectID string
	RoomCode  string
	Data      string // JSON properties
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes
type Analytics struct {
	db         *DB
	verbose    bool
	serverInfo map[string]any
	events     chan AnalyticsEvent
	stop       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewAnalytics creates and starts the analytics background writer. With a
// nil db events are only logged, and only when verbose is set.
func NewAnalytics(db *DB, verbose bool) *Analytics {
	host, _ := os.Hostname()
	a := &Analytics{
		db:      db,
		verbose: verbose,
		serverInfo: map[string]any{
			"hostname":  host,
			"platform":  runtime.GOOS,
			"goVersion": runtime.Version(),
		},
		events: make(chan AnalyticsEvent, analyticsBufSize),
		stop:   make(chan struct{}),
	}
	if db == nil {
		log.Printf("analytics: no database configured, events are logged only")
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(event, subjectID string, props map[string]any) {
	if subjectID == "" {
		subjectID = anonymousSubject
	}
	now := time.Now().UTC()
	merged := make(map[string]any, len(props)+len(a.serverInfo)+1)
	for k, v := range props {
		merged[k] = v
	}
	for k, v := range a.serverInfo {
		merged[k] = v
	}
	merged["timestamp"] = UnixMilli(now)

	data, err := json.Marshal(merged)
	if err != nil {
		log.Printf("analytics: marshal %s: %v", event, err)
		return
	}
	room, _ := props["room"].(string)

	select {
	case a.events <- AnalyticsEvent{
		Type:      event,
		SubjectID: subjectID,
		RoomCode:  room,
		Data:      string(data),
		Timestamp: now,
	}:
	default:
		// Channel full, drop event rather than blocking a room
	}
}

// Stop drains pending events and shuts the writer down
func (a *Analytics) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
	a.wg.Wait()
}

// writer is the background goroutine that batches and writes events to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(analyticsFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			a.drain(batch)
			return
		}
	}
}

// drain flushes whatever is still queued
func (a *Analytics) drain(batch []AnalyticsEvent) {
	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
		default:
			if len(batch) > 0 {
				a.flush(batch)
			}
			return
		}
	}
}

// flush writes a batch of events to the database
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil {
		if a.verbose {
			for _, evt := range events {
				log.Printf("[analytics] %s (%s): %s", evt.Type, evt.SubjectID, evt.Data)
			}
		}
		return
	}
	if err := a.db.InsertEvents(events); err != nil {
		log.Printf("analytics: %v", err)
	}
}

// --- Query methods for the admin API ---

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			continue
		}
		result[evtType] = count
	}
	return result, rows.Err()
}

// MatchStats returns finished match counts and average length per map
func (a *Analytics) MatchStats(days int) ([]MatchAnalytics, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT COALESCE(json_extract(data, '$.map'), 'unknown') AS map_id, COUNT(*) AS cnt,
			AVG(CAST(json_extract(data, '$.duration') AS REAL)) AS avg_dur
		FROM analytics_events
		WHERE event_type = ? AND json_valid(data)
			AND created_at >= date('now', '-' || ? || ' days')
		GROUP BY map_id
		ORDER BY cnt DESC
	`, EvtMatchEnded, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MatchAnalytics
	for rows.Next() {
		var m MatchAnalytics
		var avgDur sql.NullFloat64
		if err := rows.Scan(&m.MapID, &m.Count, &avgDur); err != nil {
			continue
		}
		m.AvgDuration = avgDur.Float64
		result = append(result, m)
	}
	return result, rows.Err()
}

// EndReasons returns how many matches ended for each reason in the last N days
func (a *Analytics) EndReasons(days int) (map[string]int, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT COALESCE(json_extract(data, '$.reason'), 'unknown'), COUNT(*)
		FROM analytics_events
		WHERE event_type = ? AND json_valid(data)
			AND created_at >= date('now', '-' || ? || ' days')
		GROUP BY 1
	`, EvtMatchEnded, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			continue
		}
		result[reason] = count
	}
	return result, rows.Err()
}

// MatchAnalytics holds aggregated match statistics
type MatchAnalytics struct {
	MapID       string  `json:"map"`
	Count       int     `json:"count"`
	AvgDuration float64 `json:"avg_duration"`
}
