// Package server streams published planet meshes to browser clients over
// websockets and accepts regenerate requests.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"icoplanet/core"
	"icoplanet/generator"
)

// MeshData is the mesh message sent to clients after every pass.
type MeshData struct {
	Type       string       `json:"type"`
	Pass       uint64       `json:"pass"`
	Resolution int          `json:"resolution"`
	Seed       int32        `json:"seed"`
	Scale      float32      `json:"scale"`
	SeaLevel   float32      `json:"seaLevel"`
	Vertices   [][3]float32 `json:"vertices"`
	Normals    [][3]float32 `json:"normals"`
	Colors     [][4]uint8   `json:"colors"`
	Heights    []float32    `json:"heights"`
	Indices    []uint32     `json:"indices"`
}

// StatusData reports the generation state.
type StatusData struct {
	Type         string `json:"type"`
	HasGenerated bool   `json:"hasGenerated"`
	Collider     string `json:"collider"`
	Passes       uint64 `json:"passes"`
	Resolution   int    `json:"resolution"`
	Backend      string `json:"backend"`
	LastError    string `json:"lastError,omitempty"`
}

// ErrorData is sent to the requesting client when a request fails.
type ErrorData struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Request is a client message.
type Request struct {
	Type       string                `json:"type"`
	Params     *core.NoiseParameters `json:"params,omitempty"`
	Resolution *int                  `json:"resolution,omitempty"`
	Randomize  bool                  `json:"randomize,omitempty"`
}

// Server fans published meshes out to every connected client.
type Server struct {
	planet     *generator.Planet
	params     core.ParameterProvider
	randomizer *core.Randomizer
	staticDir  string

	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithRandomizer enables "randomize" on regenerate requests.
func WithRandomizer(r *core.Randomizer) Option {
	return func(s *Server) { s.randomizer = r }
}

// WithStaticDir serves a web client from dir at "/".
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// New creates a server and subscribes it to the planet's publications.
func New(planet *generator.Planet, params core.ParameterProvider, opts ...Option) *Server {
	s := &Server{
		planet:  planet,
		params:  params,
		clients: make(map[*websocket.Conn]*sync.Mutex),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	planet.OnPublish(func(snap *generator.Snapshot) {
		s.broadcast(NewMeshData(snap))
	})
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.status())
	})
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	core.Logger().Info("server listening", "addr", addr)
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		core.Logger().Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	connMutex := &sync.Mutex{}
	s.clientsMu.Lock()
	s.clients[conn] = connMutex
	s.clientsMu.Unlock()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
	}()

	if snap := s.planet.Snapshot(); snap != nil {
		s.send(conn, connMutex, NewMeshData(snap))
	}
	s.send(conn, connMutex, s.status())

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				core.Logger().Debug("websocket read ended", "err", err)
			}
			return
		}
		if err := s.handleRequest(r.Context(), req); err != nil {
			s.send(conn, connMutex, ErrorData{Type: "error", Error: err.Error()})
			continue
		}
		if req.Type == "status" {
			s.send(conn, connMutex, s.status())
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req Request) error {
	switch req.Type {
	case "status":
		return nil
	case "resolution":
		if req.Resolution == nil {
			return errors.New("resolution request without a level")
		}
		return s.planet.SetResolution(*req.Resolution)
	case "regenerate":
		// Parameters are stored before the pass and stay in place when it
		// fails, including with ErrGenerationInProgress.
		if req.Params != nil || req.Randomize {
			p := s.params.Parameters()
			if req.Params != nil {
				p = *req.Params
			}
			if req.Randomize {
				if s.randomizer == nil {
					return errors.New("randomize is not enabled")
				}
				p = s.randomizer.Randomise(p)
			}
			if err := s.params.SetParameters(p); err != nil {
				return err
			}
		}
		if req.Resolution != nil {
			if err := s.planet.SetResolution(*req.Resolution); err != nil {
				return err
			}
		}
		_, err := s.planet.Generate(ctx)
		return err
	default:
		return errors.New("unknown request type " + req.Type)
	}
}

func (s *Server) send(conn *websocket.Conn, mu *sync.Mutex, v any) {
	mu.Lock()
	err := conn.WriteJSON(v)
	mu.Unlock()
	if err != nil {
		core.Logger().Warn("websocket write failed", "err", err)
	}
}

func (s *Server) broadcast(v any) {
	s.clientsMu.RLock()
	clientsToRemove := []*websocket.Conn{}
	for client, mutex := range s.clients {
		mutex.Lock()
		err := client.WriteJSON(v)
		mutex.Unlock()
		if err != nil {
			core.Logger().Warn("websocket write failed", "err", err)
			client.Close()
			clientsToRemove = append(clientsToRemove, client)
		}
	}
	s.clientsMu.RUnlock()

	if len(clientsToRemove) > 0 {
		s.clientsMu.Lock()
		for _, client := range clientsToRemove {
			delete(s.clients, client)
		}
		s.clientsMu.Unlock()
	}
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) status() StatusData {
	st := s.planet.State()
	data := StatusData{
		Type:         "status",
		HasGenerated: st.HasGenerated,
		Collider:     st.Collider.String(),
		Passes:       st.Passes,
		Resolution:   s.planet.Resolution(),
		Backend:      s.planet.Backend(),
	}
	if st.LastError != nil {
		data.LastError = st.LastError.Error()
	}
	return data
}

// NewMeshData flattens a snapshot into the wire form.
func NewMeshData(snap *generator.Snapshot) MeshData {
	m := snap.Mesh
	data := MeshData{
		Type:       "mesh",
		Pass:       snap.Pass,
		Resolution: snap.Resolution,
		Seed:       snap.Params.Seed,
		Scale:      snap.Params.PlanetSize,
		SeaLevel:   snap.SeaLevel(),
		Vertices:   make([][3]float32, len(m.Positions)),
		Normals:    make([][3]float32, len(m.Normals)),
		Colors:     make([][4]uint8, len(m.Colors)),
		Heights:    snap.Heights,
		Indices:    m.Indices(),
	}
	for i, p := range m.Positions {
		data.Vertices[i] = [3]float32(p)
	}
	for i, n := range m.Normals {
		data.Normals[i] = [3]float32(n)
	}
	for i, c := range m.Colors {
		data.Colors[i] = c.Bytes()
	}
	return data
}
