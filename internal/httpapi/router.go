// Package httpapi serves the read-only status API of a running monitor.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vitals-alert/internal/alert"
	"vitals-alert/internal/patient"
	"vitals-alert/internal/status"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// ==================== Types ====================

// UnifiedResponse wraps every JSON reply.
type UnifiedResponse struct {
	Code int         `json:"code"`
	Data interface{} `json:"data,omitempty"`
	Msg  string      `json:"msg"`
}

// AlertQuerier is a persistent alert history (the Redis store).
type AlertQuerier interface {
	QueryAlerts(ctx context.Context, patientID int, limit int64) ([]alert.Event, error)
}

// PatientView is the API shape of a roster entry.
type PatientView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth"`
	Room        string `json:"room"`
	Responsible string `json:"responsible"`
	Phone       string `json:"phone"`
}

// Options wires the router's data sources. Board and Roster are required;
// a nil Alerts falls back to the board's in-memory history and a nil
// Gatherer disables /metrics.
type Options struct {
	Board    *status.Board
	Roster   *patient.Roster
	Alerts   AlertQuerier
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

type handler struct {
	board  *status.Board
	roster *patient.Roster
	alerts AlertQuerier
	logger *zap.Logger
}

// ==================== Router ====================

// NewRouter builds the gin engine.
func NewRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	h := &handler{board: opts.Board, roster: opts.Roster, alerts: opts.Alerts, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), corsMiddleware())

	router.GET("/healthz", h.handleHealth)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		v1.GET("/patients", h.handlePatients)
		v1.GET("/readings", h.handleReadings)
		v1.GET("/readings/:patient_id", h.handlePatientReading)
		v1.GET("/alerts", h.handleAlerts)
		v1.GET("/notifications", h.handleNotifications)
		v1.GET("/modem", h.handleModem)
		v1.GET("/monitor", h.handleMonitor)
	}

	return router
}

// ==================== Middleware ====================

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// ==================== Handlers ====================

func (h *handler) handleHealth(c *gin.Context) {
	sendSuccessResponse(c, gin.H{"status": "ok", "monitor_running": h.board.Monitor().Running})
}

func (h *handler) handlePatients(c *gin.Context) {
	patients := h.roster.Patients()
	views := make([]PatientView, 0, len(patients))
	for _, p := range patients {
		views = append(views, PatientView{
			ID:          p.ID,
			Name:        p.FullName(),
			DateOfBirth: p.DateOfBirth.Format(patient.DateLayout),
			Room:        p.Location,
			Responsible: p.Responsible.FullName(),
			Phone:       p.Responsible.PhoneNumber,
		})
	}
	sendSuccessResponse(c, views)
}

func (h *handler) handleReadings(c *gin.Context) {
	sendSuccessResponse(c, h.board.Readings())
}

func (h *handler) handlePatientReading(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("patient_id"))
	if err != nil {
		sendErrorResponse(c, http.StatusBadRequest, "invalid patient_id")
		return
	}
	if _, ok := h.roster.Patient(id); !ok {
		sendErrorResponse(c, http.StatusNotFound, "unknown patient")
		return
	}

	reading, ok := h.board.Reading(id)
	if !ok {
		sendErrorResponse(c, http.StatusNotFound, "no reading yet")
		return
	}
	sendSuccessResponse(c, reading)
}

func (h *handler) handleAlerts(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))
	patientID, err := parseOptionalInt(c.Query("patient_id"))
	if err != nil {
		sendErrorResponse(c, http.StatusBadRequest, "invalid patient_id")
		return
	}

	if h.alerts != nil {
		events, err := h.alerts.QueryAlerts(c.Request.Context(), patientID, int64(limit))
		if err != nil {
			h.logger.Warn("query alert history failed", zap.Error(err))
			sendErrorResponse(c, http.StatusInternalServerError, "query alerts failed")
			return
		}
		sendSuccessResponse(c, events)
		return
	}

	events := h.board.Alerts(0)
	filtered := make([]alert.Event, 0, limit)
	for _, ev := range events {
		if patientID != 0 && ev.PatientID != patientID {
			continue
		}
		filtered = append(filtered, ev)
		if len(filtered) == limit {
			break
		}
	}
	sendSuccessResponse(c, filtered)
}

func (h *handler) handleNotifications(c *gin.Context) {
	sendSuccessResponse(c, h.board.Notifications(parseLimit(c.Query("limit"))))
}

func (h *handler) handleModem(c *gin.Context) {
	sendSuccessResponse(c, h.board.Modem())
}

func (h *handler) handleMonitor(c *gin.Context) {
	sendSuccessResponse(c, h.board.Monitor())
}

// ==================== Helpers ====================

func sendSuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, UnifiedResponse{Code: http.StatusOK, Data: data, Msg: "success"})
}

func sendErrorResponse(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, UnifiedResponse{Code: httpStatus, Msg: message})
}

// parseLimit clamps the limit query parameter to [1, maxLimit].
func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func parseOptionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
