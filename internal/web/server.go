// Package web provides an HTTP status server for the gate controller.
// It is read-only: nothing served here can command the gate.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/gate-controller/internal/status"
)

// DefaultLiveInterval is how often the live feed checks for a changed snapshot.
const DefaultLiveInterval = 250 * time.Millisecond

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	hub        *Hub
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{
		tracker: tracker,
		hub:     NewHub(tracker, DefaultLiveInterval),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/ws", s.hub.HandleWebSocket)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Hub returns the live feed hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe starts the live feed and listens. It blocks until the server
// is shut down.
func (s *Server) ListenAndServe() error {
	go s.hub.Run()
	return s.httpServer.ListenAndServe()
}

// Serve starts the live feed and accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	go s.hub.Run()
	return s.httpServer.Serve(ln)
}

// Shutdown stops the live feed and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}
