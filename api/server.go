// Package api exposes the pipeline over HTTP: signal intake, journal
// lookups, quality capability analysis and operational health.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/northfox/foxbox/journal"
	"github.com/northfox/foxbox/pipeline"
	"github.com/northfox/foxbox/signal"
	"github.com/northfox/foxbox/spc"
	"github.com/northfox/foxbox/weekly"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	pipeline     *pipeline.Pipeline
	monitor      *spc.Monitor
	weekly       *weekly.Manager
	journal      *journal.SQLite
	specs        map[string]spc.Spec
	window       time.Duration
	healthWindow time.Duration
	log          zerolog.Logger
	router       *gin.Engine
}

func NewServer(p *pipeline.Pipeline, monitor *spc.Monitor, wm *weekly.Manager, j *journal.SQLite,
	specs map[string]spc.Spec, window, healthWindow time.Duration, log zerolog.Logger) *Server {
	if window <= 0 {
		window = spc.DefaultWindow
	}
	if healthWindow <= 0 {
		healthWindow = spc.DefaultHealthWindow
	}
	s := &Server{
		pipeline:     p,
		monitor:      monitor,
		weekly:       wm,
		journal:      j,
		specs:        specs,
		window:       window,
		healthWindow: healthWindow,
		log:          log.With().Str("component", "api").Logger(),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		v1.POST("/signals", s.handleSubmitSignal)
		v1.GET("/signals/:id", s.handleGetSignal)
		v1.GET("/signals/:id/assessment", s.handleGetAssessment)
		v1.GET("/weekly/:symbol", s.handleWeeklyStrategy)
		v1.POST("/quality/measurements", s.handleRecordMeasurement)
		v1.GET("/quality/capability/:process", s.handleCapability)
		v1.GET("/quality/report", s.handleReport)
		v1.GET("/quality/status", s.handleStatus)
		v1.GET("/health", s.handleHealth)
	}

	s.router = r
	return s
}

// Handler exposes the router for tests and custom servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	s.log.Info().Str("addr", addr).Msg("api listening")
	return s.router.Run(addr)
}

// SubmitSignalRequest is the signal intake body.
type SubmitSignalRequest struct {
	Source     string  `json:"source"`
	Symbol     string  `json:"symbol" binding:"required"`
	Direction  string  `json:"direction" binding:"required"`
	EntryPrice float64 `json:"entry_price" binding:"required"`
	StopLoss   float64 `json:"stop_loss" binding:"required"`
	TakeProfit float64 `json:"take_profit"`
	Strength   string  `json:"strength"`
}

func (s *Server) handleSubmitSignal(c *gin.Context) {
	var req SubmitSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	sig := signal.New(req.Source, req.Symbol, signal.Direction(req.Direction), req.EntryPrice, req.StopLoss, req.TakeProfit)
	sig.Strength = req.Strength

	res, err := s.pipeline.Process(c.Request.Context(), sig)
	if err != nil {
		s.log.Error().Err(err).Str("signal_id", sig.ID).Msg("pipeline fault")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleGetSignal(c *gin.Context) {
	sig, err := s.journal.GetSignal(c.Param("id"))
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, sig)
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	a, err := s.journal.GetAssessment(c.Param("id"))
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) handleWeeklyStrategy(c *gin.Context) {
	c.JSON(http.StatusOK, s.weekly.StrategyForAnalysis(c.Param("symbol")))
}

// RecordMeasurementRequest is an ad-hoc quality observation. The spec
// limits come from the configured process specs unless one is supplied
// inline.
type RecordMeasurementRequest struct {
	Process       string    `json:"process_name" binding:"required"`
	Value         float64   `json:"measurement_value"`
	CorrelationID string    `json:"correlation_id"`
	Spec          *spc.Spec `json:"spec,omitempty"`
}

func (s *Server) handleRecordMeasurement(c *gin.Context) {
	var req RecordMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	spec, ok := s.specs[req.Process]
	if req.Spec != nil {
		spec, ok = *req.Spec, true
	}
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown process and no spec supplied: " + req.Process})
		return
	}
	if err := spec.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	m := spc.NewMeasurement(req.Process, req.Value, spec, req.CorrelationID)
	if err := s.monitor.Record(m); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (s *Server) handleCapability(c *gin.Context) {
	window := s.window
	if h := c.Query("hours"); h != "" {
		f, err := strconv.ParseFloat(h, 64)
		if err != nil || f <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "hours must be a positive number"})
			return
		}
		window = time.Duration(f * float64(time.Hour))
	}

	cap, err := s.monitor.Capability(c.Param("process"), window)
	if err != nil {
		if errors.Is(err, spc.ErrInsufficientData) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, cap)
}

func (s *Server) handleReport(c *gin.Context) {
	rep, err := s.monitor.Report(s.window)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.Status())
}

func (s *Server) handleHealth(c *gin.Context) {
	h, err := s.monitor.Health(s.healthWindow)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	code := http.StatusOK
	if h.Level == spc.HealthDown || h.Level == spc.HealthCritical {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, h)
}
