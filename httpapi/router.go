// Copyright 2026 The Patchkernel Authors
// This file is part of patchkernel, licensed LGPLv3-or-later.

// Package httpapi implements the debug HTTP surface (SPEC_FULL.md §11):
// a health check, a diagnostics ring-buffer dump, a debug-index
// DOT/name-table dump, and a websocket feed pushing the same event
// stream package sink carries over gRPC, for browser-side collaborators
// (editor UI, inspector) that don't want a gRPC client.
package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/patchkernel/engine/dindex"
	"github.com/patchkernel/engine/diag"
	"github.com/patchkernel/engine/sink"
)

// Server holds everything the debug HTTP surface needs to answer a
// request: the live diagnostics ring buffer, the most recent debug index,
// and a JWT signing key for bearer-token auth.
type Server struct {
	rings   *diag.RingBuffer
	debug   func() *dindex.DebugIndex
	auth    *Auth
	upgrade websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// New builds the chi-backed debug HTTP surface. debugIndex is a callback
// rather than a fixed value because a hot-swap replaces the compiled
// program (and its DebugIndex) out from under any open connection.
func New(rings *diag.RingBuffer, debugIndex func() *dindex.DebugIndex, auth *Auth) *Server {
	return &Server{
		rings:   rings,
		debug:   debugIndex,
		auth:    auth,
		upgrade: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		conns:   make(map[*websocket.Conn]struct{}),
	}
}

// Router assembles the chi mux: health is unauthenticated, everything
// else requires a bearer token (mirroring the teacher's engine-API auth
// pattern, SPEC_FULL.md §11).
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Get("/diagnostics", s.handleDiagnostics)
		r.Get("/debug-index/{kind}", s.handleDebugIndexNames)
		r.Get("/debug-index.dot", s.handleDebugIndexDOT)
		r.Get("/events", s.handleEvents)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.rings.Snapshot())
}

func (s *Server) handleDebugIndexNames(w http.ResponseWriter, r *http.Request) {
	kind := dindex.Kind(chi.URLParam(r, "kind"))
	idx := s.debug()
	if idx == nil {
		http.Error(w, "no compiled program yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, idx.SortedNames(kind))
}

func (s *Server) handleDebugIndexDOT(w http.ResponseWriter, r *http.Request) {
	idx := s.debug()
	if idx == nil {
		http.Error(w, "no compiled program yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write([]byte(idx.ExportDOT(nil)))
}

// handleEvents upgrades to a websocket and pushes every lifecycle event
// broadcast through Server.Broadcast until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrade.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	// Drain and discard any client->server messages; this feed is
	// server-push only, but a closed connection must still be detected.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast pushes one event to every connected websocket client (the
// browser-side mirror of sink.Server.PushEvent).
func (s *Server) Broadcast(e sink.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		if err := conn.WriteJSON(e); err != nil {
			conn.Close()
			delete(s.conns, conn)
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
