// Package server exposes the dashboard over HTTP: JSON data routes,
// image upload and analysis, Prometheus metrics, and the WebSocket
// session that streams animation patches to the thin client.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forestwatch-dev/forestwatch/pkg/analysis"
	"github.com/forestwatch-dev/forestwatch/pkg/chartdata"
	"github.com/forestwatch-dev/forestwatch/pkg/dashboard"
	"github.com/forestwatch-dev/forestwatch/pkg/dom"
	"github.com/forestwatch-dev/forestwatch/pkg/maplayer"
	"github.com/forestwatch-dev/forestwatch/pkg/motion"
	"github.com/forestwatch-dev/forestwatch/pkg/regiondata"
	"github.com/forestwatch-dev/forestwatch/pkg/toast"
	"github.com/forestwatch-dev/forestwatch/pkg/upload"
)

// Config wires the server's collaborators. Zero-value fields get
// sensible defaults in New.
type Config struct {
	Logger   *slog.Logger
	Store    upload.Store
	Analyzer *analysis.Analyzer
	Reporter *analysis.Reporter
	Regions  []regiondata.Region
	Registry *chartdata.Registry
	Metrics  *MetricsConfig
	Upload   *upload.Config
}

// Server is the dashboard's HTTP surface.
type Server struct {
	logger   *slog.Logger
	router   chi.Router
	hub      *Hub
	metrics  *metrics
	store    upload.Store
	analyzer *analysis.Analyzer
	reporter *analysis.Reporter
	regions  []regiondata.Region
	registry *chartdata.Registry
	upload   *upload.Config

	unbind   func()
	upgrader websocket.Upgrader
}

// New assembles the router and its collaborators.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	if cfg.Analyzer == nil {
		cfg.Analyzer = analysis.NewAnalyzer(logger)
	}
	if cfg.Reporter == nil {
		cfg.Reporter = analysis.NewReporter(logger, 0)
	}
	if cfg.Regions == nil {
		cfg.Regions = regiondata.SeedRegions()
	}
	if cfg.Registry == nil {
		cfg.Registry = chartdata.NewRegistry(chartdata.NewSource())
	}
	mc := defaultMetricsConfig()
	if cfg.Metrics != nil {
		mc = *cfg.Metrics
	}

	s := &Server{
		logger:   logger,
		hub:      NewHub(logger),
		metrics:  newMetrics(mc),
		store:    cfg.Store,
		analyzer: cfg.Analyzer,
		reporter: cfg.Reporter,
		regions:  cfg.Regions,
		registry: cfg.Registry,
		upload:   cfg.Upload,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	s.unbind = s.hub.BindRegistry(s.registry)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(Tracing())
	r.Use(s.metrics.Middleware)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/time-series", s.handleTimeSeries)
	r.Get("/api/hotspots", s.handleHotspots)
	r.Get("/api/regions", s.handleRegions)
	r.Get("/api/export", s.handleExport)
	r.Post("/api/analyze", s.handleAnalyze)
	if s.store != nil {
		r.Method(http.MethodPost, "/api/upload", s.uploadHandler())
	}
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleWS)

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hub exposes the broadcast hub so callers can push toasts.
func (s *Server) Hub() *Hub { return s.hub }

// Close releases the registry subscription.
func (s *Server) Close() {
	if s.unbind != nil {
		s.unbind()
	}
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic",
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()))
				respondError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	period, err := chartdata.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	series, err := s.registry.SeriesFor(period)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, series)
}

func (s *Server) handleHotspots(w http.ResponseWriter, r *http.Request) {
	filter := maplayer.Severity(r.URL.Query().Get("severity"))

	markers := make([]maplayer.Marker, 0, len(s.regions))
	for _, reg := range s.regions {
		m, err := reg.Marker()
		if err != nil {
			continue
		}
		if filter != "" && m.Severity != filter {
			continue
		}
		markers = append(markers, m)
	}
	respondJSON(w, http.StatusOK, markers)
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.regions)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	rep, err := s.reporter.Generate(r.Context(), s.regions, format)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrUnknownFormat):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.Canceled):
			// Client went away; nothing to write.
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	w.Header().Set("Content-Type", rep.ContentType())
	w.Header().Set("X-Report-ID", rep.ID)
	w.WriteHeader(http.StatusOK)
	w.Write(rep.Body)
}

func (s *Server) uploadHandler() http.Handler {
	inner := upload.Handler(s.store)
	if s.upload != nil {
		inner = upload.HandlerWithConfig(s.store, s.upload)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		inner.ServeHTTP(rec, r)
		status := "accepted"
		if rec.status >= 400 {
			status = "rejected"
		}
		s.metrics.uploadsTotal.WithLabelValues(status).Inc()
	})
}

type analyzeRequest struct {
	TempID string `json:"temp_id"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "uploads disabled")
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TempID == "" {
		respondError(w, http.StatusBadRequest, "temp_id required")
		return
	}

	file, err := s.store.Claim(req.TempID)
	if err != nil {
		if errors.Is(err, upload.ErrNotFound) {
			respondError(w, http.StatusNotFound, "upload not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer file.Close()

	result, err := s.analyzer.Analyze(r.Context(), file)
	if err != nil {
		toast.Error(s.hub, "Analysis failed")
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.metrics.analysesTotal.WithLabelValues(string(result.Severity)).Inc()
	toast.Success(s.hub, "Analysis complete: "+file.Filename)
	respondJSON(w, http.StatusOK, result)
}

// Frames accepted from the thin client over /ws.
type clientFrame struct {
	Type    string  `json:"type"`
	ScrollY float64 `json:"scrollY,omitempty"`
	Height  float64 `json:"height,omitempty"`
	ID      string  `json:"id,omitempty"`
	Top     float64 `json:"top,omitempty"`
	BoxH    float64 `json:"boxHeight,omitempty"`
}

// patchFrame carries drained DOM patches to the client.
type patchFrame struct {
	Event   string      `json:"event"`
	Patches []patchWire `json:"patches"`
}

type patchWire struct {
	Op     string `json:"op"`
	NodeID string `json:"nodeId"`
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "error", err)
		return
	}

	client := s.hub.Add(conn)
	s.metrics.wsClients.Inc()

	page := dashboard.NewPage(s.regions, s.logger)
	defer func() {
		page.Teardown()
		client.Close()
		s.metrics.wsClients.Dec()
	}()

	s.logger.Info("client connected", "remote", r.RemoteAddr)

	// Hydration and above-the-fold reveals go out before the first
	// client frame arrives.
	s.flushPatches(page, client)

	for {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			s.logger.Warn("bad frame", "error", err)
			continue
		}

		switch frame.Type {
		case "scroll":
			page.HandleScroll(motion.Viewport{ScrollY: frame.ScrollY, Height: frame.Height})
		case "measure":
			page.UpdateGeometry(frame.ID, dom.Rect{Top: frame.Top, Height: frame.BoxH})
		default:
			s.logger.Warn("unknown frame type", "type", frame.Type)
			continue
		}

		s.flushPatches(page, client)
	}
}

// flushPatches drains the page's pending patches and streams them to
// the client, counting reveals along the way.
func (s *Server) flushPatches(page *dashboard.Page, client *Client) {
	patches := page.Flush()
	if len(patches) == 0 {
		return
	}

	wire := make([]patchWire, len(patches))
	for i, p := range patches {
		wire[i] = patchWire{
			Op:     p.Op.String(),
			NodeID: p.NodeID,
			Key:    p.Key,
			Value:  p.Value,
		}
		if p.Op == dom.PatchAddClass && p.Key == motion.RevealedClass {
			s.metrics.revealsTotal.Inc()
		}
		if p.Op == dom.PatchSetText && counterConverged(page, p) {
			s.metrics.countersDone.Inc()
		}
	}
	s.metrics.patchesSent.Add(float64(len(patches)))
	client.SendJSON(patchFrame{Event: "forestwatch:patch", Patches: wire})
}

// counterConverged reports whether p is a counter writing its final
// value.
func counterConverged(page *dashboard.Page, p dom.Patch) bool {
	n := dom.Query(page.Doc().Root(), "#"+p.NodeID)
	if n == nil || !n.HasClass("counter") {
		return false
	}
	target, ok := n.Data("target")
	return ok && p.Value == target
}
