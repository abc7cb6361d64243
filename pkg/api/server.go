// Package api provides the REST API server for battito
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/james-see/battito/pkg/export"
	"github.com/james-see/battito/pkg/pattern"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title Battito API
// @version 1.0
// @description API for compiling step pattern notation into probabilistic event grids
// @host localhost:8080
// @BasePath /api/v1

// Config holds server settings
type Config struct {
	Port               int
	DefaultSubdivision int
	MaxSubdivision     int
	MaxBodyBytes       int64
	Logger             *zap.Logger
}

// DefaultConfig returns the standard server settings
func DefaultConfig() Config {
	return Config{
		Port:               8080,
		DefaultSubdivision: pattern.DefaultSubdivision,
		MaxSubdivision:     1920,
		MaxBodyBytes:       1 << 20,
		Logger:             zap.NewNop(),
	}
}

type server struct {
	cfg Config
	log *zap.Logger
}

// Run starts the API server with the given settings
func Run(cfg Config) error {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	r := NewRouter(cfg)
	cfg.Logger.Info("starting api server", zap.Int("port", cfg.Port))
	return r.Run(fmt.Sprintf(":%d", cfg.Port))
}

// NewRouter builds the HTTP handler
func NewRouter(cfg Config) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.DefaultSubdivision <= 0 {
		cfg.DefaultSubdivision = pattern.DefaultSubdivision
	}
	s := &server{cfg: cfg, log: cfg.Logger.Named("api")}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(loggerMiddleware(s.log))

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(bodyLimitMiddleware(cfg.MaxBodyBytes))
	{
		v1.GET("/health", healthCheck)
		v1.GET("/formats", listFormats)
		v1.POST("/compile", s.handleCompile)
		v1.POST("/export/midi", s.handleExportMIDI)
		v1.POST("/import/midi", s.handleImportMIDI)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func loggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// CompileRequest is the body of a compile call
type CompileRequest struct {
	Pattern      string `json:"pattern"`
	Subdivision  *int   `json:"subdivision,omitempty"`
	DefaultValue uint32 `json:"default_value,omitempty"`
}

// CompileResponse carries a compiled pattern and its renderings
type CompileResponse struct {
	Events    []pattern.Event `json:"events"`
	Length    uint32          `json:"length"`
	Max       string          `json:"max"`
	Grid      string          `json:"grid"`
	Notation  string          `json:"notation"`
	Padded    int             `json:"padded"`
	Truncated bool            `json:"truncated"`
}

// ExportRequest is the body of a MIDI export call
type ExportRequest struct {
	CompileRequest
	Tempo   float64 `json:"tempo,omitempty"`
	Bars    int     `json:"bars,omitempty"`
	Channel *uint8  `json:"channel,omitempty"`
}

func newCompileResponse(p pattern.Pattern, sum pattern.Summary) CompileResponse {
	return CompileResponse{
		Events:    p.Events,
		Length:    p.Length,
		Max:       p.MaxString(),
		Grid:      p.GridString(),
		Notation:  p.Notation(),
		Padded:    sum.Padded,
		Truncated: sum.Truncated,
	}
}

// subdivision resolves the requested grid size against the server limits
func (s *server) subdivision(requested *int) (int, error) {
	if requested == nil {
		return s.cfg.DefaultSubdivision, nil
	}
	if s.cfg.MaxSubdivision > 0 && *requested > s.cfg.MaxSubdivision {
		return 0, fmt.Errorf("subdivision %d exceeds maximum %d", *requested, s.cfg.MaxSubdivision)
	}
	return *requested, nil
}

func (s *server) compile(req CompileRequest) (pattern.Pattern, pattern.Summary, error) {
	sub, err := s.subdivision(req.Subdivision)
	if err != nil {
		return pattern.Pattern{}, pattern.Summary{}, err
	}
	p, sum := pattern.Compile(req.Pattern, sub, pattern.Options{DefaultValue: req.DefaultValue})
	s.log.Debug("compiled",
		zap.String("pattern", req.Pattern),
		zap.Int("subdivision", sub),
		zap.Int("steps", sum.Steps),
		zap.Bool("truncated", sum.Truncated),
	)
	return p, sum, nil
}

func bindError(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "Request body too large"
	}
	return "Invalid request body"
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "battito",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns the pattern renderings and export formats
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats": pattern.Formats(),
		"exports": []string{"midi"},
	})
}

// handleCompile godoc
// @Summary Compile a pattern
// @Description Compile step notation onto a grid of subdivision steps
// @Tags compile
// @Accept json
// @Produce json
// @Param request body CompileRequest true "Pattern to compile"
// @Success 200 {object} CompileResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/compile [post]
func (s *server) handleCompile(c *gin.Context) {
	var req CompileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindError(err)})
		return
	}

	p, sum, err := s.compile(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newCompileResponse(p, sum))
}

// handleExportMIDI godoc
// @Summary Export a pattern as MIDI
// @Description Compile step notation and receive a Standard MIDI File
// @Tags export
// @Accept json
// @Produce audio/midi
// @Param request body ExportRequest true "Pattern to export"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/export/midi [post]
func (s *server) handleExportMIDI(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindError(err)})
		return
	}

	p, _, err := s.compile(req.CompileRequest)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exp := export.NewMIDIExporter()
	if req.Tempo > 0 {
		exp.Tempo = req.Tempo
	}
	if req.Bars > 0 {
		exp.Bars = req.Bars
	}
	if req.Channel != nil {
		if *req.Channel > 15 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel"})
			return
		}
		exp.Channel = *req.Channel
	}

	data, err := exp.GenerateMIDI(p)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, export.ErrEmptyPattern) {
			status = http.StatusBadRequest
		}
		s.log.Warn("midi export failed", zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=pattern.mid")
	c.Data(http.StatusOK, "audio/midi", data)
}

// handleImportMIDI godoc
// @Summary Import a MIDI file as a pattern
// @Description Upload a MIDI file and receive it quantized onto a step grid
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file to import"
// @Param subdivision query int false "Grid size (default: 16)"
// @Success 200 {object} CompileResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/import/midi [post]
func (s *server) handleImportMIDI(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	var requested *int
	if raw, ok := c.GetQuery("subdivision"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subdivision"})
			return
		}
		requested = &n
	}
	sub, err := s.subdivision(requested)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := export.ParseMIDI(data, sub)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newCompileResponse(p, pattern.Summary{Steps: len(p.Events)}))
}
