// Package debugserver exposes a small HTTP endpoint for inspecting a
// running Player's state, for use during development rather than in any
// shipped build.
package debugserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"flashback"
)

// Server serves read-only JSON snapshots of a Player's live state.
type Server struct {
	player *flashback.Player
	http   *http.Server
	log    *logrus.Entry
}

// New builds a debug server bound to player, listening on addr once
// Start is called. addr may be empty, in which case Start is a no-op.
func New(player *flashback.Player, addr string) *Server {
	s := &Server{
		player: player,
		log:    logrus.WithField("component", "debugserver"),
	}
	router := mux.NewRouter()
	router.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.http = &http.Server{Addr: addr, Handler: router}
	return s
}

type stateResponse struct {
	Subscene int                       `json:"subscene"`
	Frame    int                       `json:"frame"`
	Total    int                       `json:"total_frames"`
	State    flashback.PlayerState     `json:"state"`
	Channels [16]flashback.ChannelInfo `json:"channels"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sub, frame := s.player.CurrentFrame()
	resp := stateResponse{
		Subscene: sub,
		Frame:    frame,
		Total:    s.player.FrameCount(),
		Channels: s.player.GetChannels(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warnf("encode state: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Start runs the HTTP server in a background goroutine. Addr == "" skips
// starting the listener entirely.
func (s *Server) Start() {
	if s.http.Addr == "" {
		return
	}
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Warnf("debug server stopped: %v", err)
		}
	}()
}

// Close shuts the server down, if it was ever started.
func (s *Server) Close() error {
	return s.http.Close()
}
