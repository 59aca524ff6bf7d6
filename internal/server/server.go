// Package server exposes a running network over HTTP: part inspection,
// wiring changes and prometheus metrics. Every request and every tick takes
// the same lock, so the network is only ever touched by one goroutine.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/powerchain/internal/logging"
	"github.com/san-kum/powerchain/internal/metrics"
	"github.com/san-kum/powerchain/internal/powerchain"
)

type Server struct {
	mu        sync.Mutex
	net       *powerchain.Network
	collector *metrics.Collector
	registry  *prometheus.Registry
	logger    *slog.Logger
	step      int
	elapsed   float64
}

// New wraps net. It installs the metrics collector as the network's hooks.
func New(net *powerchain.Network, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		net:       net,
		collector: metrics.NewCollector(),
		registry:  prometheus.NewRegistry(),
		logger:    logger,
	}
	if err := s.collector.Register(s.registry); err != nil {
		return nil, err
	}
	net.SetHooks(s.collector.Hooks())
	net.Activate()
	s.collector.Snapshot(net)
	return s, nil
}

// PartView is the JSON form of a part.
type PartView struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Teeth    int      `json:"teeth,omitempty"`
	Motor    bool     `json:"motor"`
	Speed    float64  `json:"speed,omitempty"`
	Live     bool     `json:"live"`
	RPM      float64  `json:"rpm"`
	Angle    float64  `json:"angle"`
	Enabled  bool     `json:"enabled"`
	Outputs  []string `json:"outputs"`
	Handed   string   `json:"handedness,omitempty"`
	Inverted bool     `json:"inverted,omitempty"`
}

func viewOf(n *powerchain.Node) PartView {
	v := PartView{
		Name:    n.Name(),
		Kind:    n.Kind().String(),
		Motor:   n.IsMotor(),
		Speed:   n.Speed(),
		Live:    n.LiveUpdate(),
		RPM:     n.RPM(),
		Angle:   n.Angle(),
		Enabled: n.Enabled(),
		Outputs: make([]string, 0),
	}
	switch n.Kind() {
	case powerchain.KindGear:
		v.Teeth = n.Teeth()
	case powerchain.KindWormGear:
		v.Handed = n.Handedness().String()
		v.Inverted = n.InvertWormOutput
	}
	for _, o := range n.Outputs() {
		v.Outputs = append(v.Outputs, o.Name())
	}
	return v
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/stats", s.getStats)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/parts", func(r chi.Router) {
		r.Get("/", s.listParts)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.withPart(s.getPart))
			r.Delete("/", s.withPart(s.destroyPart))
			r.Post("/connect", s.withPart(s.connect))
			r.Post("/disconnect", s.withPart(s.disconnect))
			r.Delete("/outputs", s.withPart(s.disconnectAll))
			r.Delete("/outputs/{index}", s.withPart(s.disconnectIndex))
			r.Post("/detach", s.withPart(s.detach))
			r.Put("/speed", s.withPart(s.setSpeed))
			r.Put("/live", s.withPart(s.setLive))
			r.Post("/enable", s.withPart(s.enable))
			r.Post("/update", s.withPart(s.update))
		})
	})
	return r
}

type partHandler func(w http.ResponseWriter, r *http.Request, n *powerchain.Node)

// withPart takes the lock and resolves {name}. Unknown parts are 404s.
func (s *Server) withPart(h partHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		name := chi.URLParam(r, "name")
		n := s.net.Lookup(name)
		if n == nil {
			writeError(w, http.StatusNotFound, "unknown part: "+name)
			return
		}
		h(w, r, n)
	}
}

func (s *Server) listParts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := s.net.Nodes()
	out := make([]PartView, len(nodes))
	for i, n := range nodes {
		out[i] = viewOf(n)
	}
	writeJSON(w, http.StatusOK, out)
}

type statsView struct {
	powerchain.Stats
	Step    int     `json:"step"`
	Elapsed float64 `json:"elapsed"`
	Parts   int     `json:"parts"`
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, statsView{Stats: s.net.Stats(), Step: s.step, Elapsed: s.elapsed, Parts: s.net.Len()})
}

func (s *Server) getPart(w http.ResponseWriter, r *http.Request, n *powerchain.Node) {
	writeJSON(w, http.StatusOK, viewOf(n))
}

func (s *Server) destroyPart(w http.ResponseWriter, r *http.Request, n *powerchain.Node) {
	n.Destroy()
	s.logger.Info("part destroyed", "part", n.Name())
	w.WriteHeader(http.StatusNoContent)
}

type targetRequest struct {
	Target string `json:"target"`
}

// target decodes the body and resolves the named target part.
func (s *Server) target(w http.ResponseWriter, r *http.Request) *powerchain.Node {
	var body targetRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Target == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"target\": \"<part>\"}")
		return nil
	}
	t := s.net.Lookup(body.Target)
	if t == nil {
		writeError(w, http.StatusNotFound, "unknown part: "+body.Target)
	}
	return t
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request, n *powerchain.Node) {
	t := s.target(w, r)
	if t == nil {
		return
	}
	n.Connect(t)
	s.logger.Info("connected", "from", n.Name(), "to", t.Name())
	writeJSON(w, http.StatusOK, viewOf(n))
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request, n *powerchain.Node) {
	t := s.target(w, r)
	if t == nil {
		return
	}
	n.Disconnect(t)
	s.logger.Info("disconnected", "from", n.Name(), "to", t.Name())
	writeJSON(w, http.StatusOK, viewOf(n))
}

func (s *Server) disconnectAll(w http.ResponseWriter, r *http.Request, n *powerchain.Node) {
	n.DisconnectAll()
	writeJSON(w, http.StatusOK, viewOf(n))
}

func (s *Server) disconnectIndex(w http.ResponseWriter, r *http.Request, n *powerchain.Node) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	n.DisconnectIndex(i)
	writeJSON(w, http.StatusOK, viewOf(n))
}

func (s *Server) detach(w http.ResponseWriter, r *http.Request, n *powerchain.Node) {
	s.net.DisconnectFromAllDrivers(n)
	writeJSON(w, http.StatusOK, viewOf(n))
}

type speedRequest struct {
	RPM *float64 `json:"rpm"`
}

func (s *Server) setSpeed(w http.ResponseWriter, r *http.Request, n *powerchain.Node) {
	if !n.IsMotor() {
		writeError(w, http.StatusConflict, n.Name()+" is not a motor")
		return
	}
	var body speedRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RPM == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"rpm\": <number>}")
		return
	}
	n.SetSpeed(*body.RPM)
	n.RequestUpdate()
	writeJSON(w, http.StatusOK, viewOf(n))
}

type liveRequest struct {
	Live bool `json:"live"`
}

func (s *Server) setLive(w http.ResponseWriter, r *http.Request, n *powerchain.Node) {
	if !n.IsMotor() {
		writeError(w, http.StatusConflict, n.Name()+" is not a motor")
		return
	}
	var body liveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "body must be {\"live\": <bool>}")
		return
	}
	n.SetLiveUpdate(body.Live)
	writeJSON(w, http.StatusOK, viewOf(n))
}

func (s *Server) enable(w http.ResponseWriter, r *http.Request, n *powerchain.Node) {
	n.Enable()
	writeJSON(w, http.StatusOK, viewOf(n))
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, n *powerchain.Node) {
	if !n.IsMotor() {
		writeError(w, http.StatusConflict, n.Name()+" is not a motor")
		return
	}
	n.RequestUpdate()
	writeJSON(w, http.StatusAccepted, viewOf(n))
}

// Step advances the network by one tick and refreshes the metrics.
func (s *Server) Step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.net.Tick(dt)
	s.elapsed += dt
	s.collector.OnTick(s.net, s.step, s.elapsed)
	s.step++
}

// Run ticks the network every dt seconds until ctx is done.
func (s *Server) Run(ctx context.Context, dt float64) error {
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Step(dt)
		}
	}
}

// ListenAndServe serves the API on addr and ticks the network until ctx is
// done, then shuts the listener down.
func (s *Server) ListenAndServe(ctx context.Context, addr string, dt float64) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("serving", "addr", addr, "dt", dt)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	go func() { _ = s.Run(ctx, dt) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
