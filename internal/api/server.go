// Package api exposes the engine's operational surface: health,
// script compilation, and the event feed (recent history over HTTP,
// live over WebSocket). Story pages and the authoring UI are external
// concerns and live elsewhere.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/chatstory/engine/internal/events"
	"github.com/chatstory/engine/internal/script"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "engine",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events.Snapshot())
}

// eventsHistoryHandler serves persisted events from Postgres, older
// than the in-memory ring buffer holds. 503 when no store is attached.
func eventsHistoryHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	client := events.GetPostgresClient()
	if client == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "event persistence not configured"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := client.QueryEvents(limit)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "event query failed"})
		return
	}
	_ = json.NewEncoder(w).Encode(rows)
}

// CompileResponse carries the compiler's full diagnostic output plus
// the validator's day-review issues.
type CompileResponse struct {
	Scenes   []script.Scene   `json:"scenes"`
	Choices  []script.Choice  `json:"choices"`
	DayMeta  script.DayMeta   `json:"day_meta"`
	Errors   []script.Error   `json:"errors"`
	Warnings []script.Warning `json:"warnings"`
	Issues   []script.Issue   `json:"issues"`
}

// compileHandler compiles a raw script body and returns the result.
// Compile errors are diagnostics, not HTTP errors: the response is
// always 200 with the full report.
func compileHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "method not allowed"})
		return
	}

	source, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "failed to read body"})
		return
	}

	res := script.Compile(string(source))
	events.Emit("info", "compile.completed", "", map[string]any{
		"scenes":   len(res.Scenes),
		"errors":   len(res.Errors),
		"warnings": len(res.Warnings),
	})

	_ = json.NewEncoder(w).Encode(CompileResponse{
		Scenes:   res.Scenes,
		Choices:  res.Choices,
		DayMeta:  res.DayMeta,
		Errors:   res.Errors,
		Warnings: res.Warnings,
		Issues:   script.Validate(res),
	})
}

// ListenAndServe starts the API server on the given port.
// It blocks until the server exits.
// Compilation requires the admin role; the event feed admits operators
// too. Health stays open for probes. TLS is used when configured.
func ListenAndServe(port int) error {
	InitAuth()
	InitTLS()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/events", RequireAnyRole(eventsHandler))
	mux.HandleFunc("/events/history", RequireAnyRole(eventsHistoryHandler))
	mux.HandleFunc("/ws/events", RequireAnyRole(wsEventsHandler))
	mux.HandleFunc("/compile", RequireAdmin(compileHandler))

	addr := fmt.Sprintf(":%d", port)
	if cfg := LoadTLSConfig(); cfg != nil {
		srv := &http.Server{Addr: addr, Handler: mux, TLSConfig: cfg}
		log.Printf("API listening on %s (TLS)\n", addr)
		return srv.ListenAndServeTLS("", "")
	}
	log.Printf("API listening on %s\n", addr)
	return http.ListenAndServe(addr, mux)
}

// Start starts the API server in a goroutine.
// Errors are logged but do not stop the caller.
func Start(port int) {
	go func() {
		if err := ListenAndServe(port); err != nil {
			log.Printf("api server error: %v", err)
		}
	}()
}
