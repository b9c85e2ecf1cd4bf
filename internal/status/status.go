// Package status exposes a small HTTP+WebSocket telemetry surface over
// the planner: a point-in-time snapshot (GET /status) and a push stream
// of the same snapshot on every emitted segment (WS /stream). Grounded
// on the "status API" shape seen across the pack (mastercactapus-gcnc's
// api.go pushes machine state over a stream as it changes) but built on
// gorilla/mux and gorilla/websocket, the pack's more common HTTP/WS stack.
//
// This is a supplemented ambient feature (SPEC_FULL.md §3): spec.md
// itself has no network surface, but nearly every long-running service
// in the examples exposes one, and both gorilla libraries otherwise have
// no home in this module.
package status

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/holla2040/beagleg/internal/axis"
	"github.com/holla2040/beagleg/internal/planner"
)

// Snapshot is the JSON representation of one point-in-time machine state.
type Snapshot struct {
	SessionID   string             `json:"session_id"`
	HomingState string             `json:"homing_state"`
	PositionMM  map[string]float64 `json:"position_mm"`
	SpeedFactor float64            `json:"speed_factor"`
	AuxBits     uint16             `json:"aux_bits"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Server serves the telemetry surface for one Planner.
type Server struct {
	router   *mux.Router
	upgrader websocket.Upgrader
	p        *planner.Planner

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// New builds a Server. Call Handler() to obtain the http.Handler to serve,
// and Broadcast after every emitted segment batch to push a fresh
// snapshot to connected clients.
func New(p *planner.Planner) *Server {
	s := &Server{
		p:        p,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  make(map[*websocket.Conn]struct{}),
	}
	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/stream", s.handleStream)
	s.router = r
	return s
}

// Handler returns the http.Handler to mount (or serve directly via
// http.ListenAndServe).
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) snapshot() Snapshot {
	pos := make(map[string]float64, int(axis.NumAxes))
	back := s.p.Buffer().Back()
	cfg := s.p.Config()
	for i := axis.Axis(0); i < axis.NumAxes; i++ {
		if cfg.StepsPerMM(i) <= 0 {
			continue
		}
		pos[i.String()] = float64(back.PositionSteps[i]) / cfg.StepsPerMM(i)
	}
	return Snapshot{
		SessionID:   s.p.SessionID(),
		HomingState: s.p.HomingStateValue().String(),
		PositionMM:  pos,
		SpeedFactor: cfg.SpeedFactor(),
		AuxBits:     s.p.AuxBits(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	snap.Timestamp = timestampNow()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Printf("status: encode snapshot: %v", err)
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("status: upgrade: %v", err)
		return
	}
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	// Drain inbound frames (ping/close) until the client disconnects; this
	// connection is push-only otherwise.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast pushes the current snapshot to every connected stream client.
// Call this after emitting segments or after a state-changing command.
func (s *Server) Broadcast() {
	snap := s.snapshot()
	snap.Timestamp = timestampNow()
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("status: marshal snapshot: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

var timestampNow = time.Now
