// Package httpapi exposes the engine's operations over HTTP JSON plus a
// websocket push feed. One endpoint per operation; every response body ends
// in the {code, msg} status block.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"trailhunt.dev/internal/config"
	"trailhunt.dev/internal/hunt"
	"trailhunt.dev/internal/protocol"
)

type Server struct {
	engine *hunt.Engine
	feed   *FeedHub
	log    *log.Logger
}

func NewServer(engine *hunt.Engine, cfg config.FeedConfig, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[http] ", log.LstdFlags|log.Lmicroseconds)
	}
	s := &Server{
		engine: engine,
		feed:   NewFeedHub(cfg, logger),
		log:    logger,
	}
	engine.SetNotifier(s.feed.Broadcast)
	return s
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/fetch_hunt", s.handleFetchHunt)
	mux.HandleFunc("POST /api/user_progress", s.handleUserProgress)
	mux.HandleFunc("POST /api/update_riddles", s.handleUpdateRiddles)
	mux.HandleFunc("POST /api/delete_riddle", s.handleDeleteRiddle)
	mux.HandleFunc("POST /api/delete_road", s.handleDeleteRoad)
	mux.HandleFunc("POST /api/renew_lock", s.handleRenewLock)
	mux.HandleFunc("GET /api/feed", s.feed.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) Close() { s.feed.Close() }

func decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.StatusResponse{
			Status: protocol.Error(protocol.ErrBadRequest, "malformed request body"),
		})
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleFetchHunt(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[protocol.FetchHuntRequest](w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.FetchHunt(r.Context(), req))
}

func (s *Server) handleUserProgress(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[protocol.UserProgressRequest](w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.UserProgress(r.Context(), req))
}

func (s *Server) handleUpdateRiddles(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[protocol.UpdateRiddlesRequest](w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.UpdateRiddles(r.Context(), req))
}

func (s *Server) handleDeleteRiddle(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[protocol.DeleteRiddleRequest](w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.DeleteRiddle(r.Context(), req))
}

func (s *Server) handleDeleteRoad(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[protocol.DeleteRoadRequest](w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.DeleteRoad(r.Context(), req))
}

func (s *Server) handleRenewLock(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[protocol.RenewLockRequest](w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.RenewLock(r.Context(), req))
}
