// Package api expone la superficie HTTP del core: ingesta de mensajes,
// parseo offline y consulta de registros.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/semconv"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/utils"
	"go.opentelemetry.io/otel/attribute"
)

// Service operaciones del core usadas por la API.
type Service interface {
	Submit(ctx context.Context, msg *domain.InboundMessage) error
	Parse(ctx context.Context, text string) (*domain.ParsedSignal, error)
	GetSignal(ctx context.Context, id string) (*domain.SignalRecord, error)
	FindSignal(ctx context.Context, key domain.CorrelationKey) (*domain.SignalRecord, error)
	ListSignals(ctx context.Context, limit, offset int) ([]*domain.SignalRecord, error)
	Stats(ctx context.Context) (*domain.EntryStats, error)
	Healthy() bool
}

// Server HTTP API server.
type Server struct {
	router    *gin.Engine
	service   Service
	telemetry *telemetry.Client
}

// NewServer crea el servidor con sus rutas.
func NewServer(service Service, tel *telemetry.Client) *Server {
	gin.SetMode(gin.ReleaseMode)
	if tel == nil {
		tel = telemetry.NewNoop("api")
	}

	s := &Server{
		router:    gin.New(),
		service:   service,
		telemetry: tel,
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler retorna el http.Handler para montar en un http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	v1 := s.router.Group("/v1")
	{
		v1.POST("/messages", s.handleSubmitMessage)
		v1.POST("/parse", s.handleParse)
		v1.GET("/signals", s.handleListSignals)
		v1.GET("/signals/:id", s.handleGetSignal)
		v1.GET("/correlations/:key", s.handleGetCorrelation)
		v1.GET("/stats", s.handleStats)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
}

// requestLogger registra cada request con su latencia.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := utils.ElapsedMsSince(start)
		metricCtx := telemetry.AppendMetricAttrs(c.Request.Context(),
			semconv.Signal.Component.String(semconv.ComponentAPI),
		)
		s.telemetry.RecordLatency(metricCtx, "http.request", latency,
			attribute.String("http.route", c.FullPath()),
			attribute.Int("http.status_code", c.Writer.Status()),
		)
		s.telemetry.Debug(c.Request.Context(), "HTTP request handled",
			semconv.Signal.Component.String(semconv.ComponentAPI),
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", c.FullPath()),
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Float64("latency_ms", latency),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if !s.service.Healthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type messageRequest struct {
	ChatID           string     `json:"chat_id" binding:"required"`
	MessageID        string     `json:"message_id" binding:"required"`
	ReplyToMessageID string     `json:"reply_to_message_id"`
	ReplyToChatID    string     `json:"reply_to_chat_id"` // default: chat_id
	Text             string     `json:"text"`
	ReceivedAt       *time.Time `json:"received_at"`
}

func (r *messageRequest) toInbound() *domain.InboundMessage {
	msg := &domain.InboundMessage{
		ChatID:    r.ChatID,
		MessageID: r.MessageID,
		Text:      r.Text,
	}
	if r.ReplyToMessageID != "" {
		chat := r.ReplyToChatID
		if chat == "" {
			chat = r.ChatID
		}
		msg.ReplyTo = &domain.CorrelationKey{ChatID: chat, MessageID: r.ReplyToMessageID}
	}
	if r.ReceivedAt != nil {
		msg.ReceivedAt = r.ReceivedAt.UTC()
	}
	return msg
}

func (s *Server) handleSubmitMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg := req.toInbound()
	if err := s.service.Submit(c.Request.Context(), msg); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status":          "queued",
		"correlation_key": msg.Key().String(),
	})
}

type parseRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleParse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sig, err := s.service.Parse(c.Request.Context(), req.Text)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"code":  domain.CodeOf(err),
		})
		return
	}
	if sig == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no signal detected"})
		return
	}
	c.JSON(http.StatusOK, sig)
}

func (s *Server) handleListSignals(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	records, err := s.service.ListSignals(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if records == nil {
		records = []*domain.SignalRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleGetSignal(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signal id"})
		return
	}

	rec, err := s.service.GetSignal(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleGetCorrelation busca el registro por clave "chat:message".
func (s *Server) handleGetCorrelation(c *gin.Context) {
	key, err := domain.ParseCorrelationKey(c.Param("key"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	rec, err := s.service.FindSignal(c.Request.Context(), key)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.service.Stats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// writeError traduce errores de dominio a códigos HTTP.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case domain.IsCode(err, domain.ErrQueueFull), domain.IsCode(err, domain.ErrBrokerOffline):
		status = http.StatusServiceUnavailable
	case domain.IsCode(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case domain.CodeOf(err) != domain.ErrUnknown:
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.telemetry.Error(c.Request.Context(), "HTTP request failed", err,
			attribute.String("http.route", c.FullPath()),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
