package handler

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"asic-advisor/internal/usecase"
)

const loggerKey = "logger"

// Router returns a gin engine serving the same routes as Handle, plus CORS for
// allowedOrigins.
func (h *Handler) Router(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.correlation(), h.requestLog(), cors(allowedOrigins))

	r.POST(pathAsk, h.handleAsk)
	r.GET(pathASICData, h.handleASICData)
	r.GET(pathHealth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	})
	return r
}

func (h *Handler) handleAsk(c *gin.Context) {
	logger := requestLogger(c, h.logger)
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnContext(c.Request.Context(), "invalid ask body", "err", err)
		c.JSON(http.StatusBadRequest, errorResponse{Error: usecase.MsgMissingFields})
		return
	}
	status, body := h.doAsk(c.Request.Context(), logger, req)
	c.JSON(status, body)
}

func (h *Handler) handleASICData(c *gin.Context) {
	status, body := h.doListings(c.Request.Context(), requestLogger(c, h.logger))
	c.JSON(status, body)
}

func (h *Handler) correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		corrID := strings.TrimSpace(c.GetHeader(correlationHeader))
		if corrID == "" {
			corrID = uuid.NewString()
		}
		c.Header(correlationHeader, corrID)
		c.Set(loggerKey, h.logger.With("correlation_id", corrID))
		c.Next()
	}
}

func (h *Handler) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		requestLogger(c, h.logger).InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func cors(allowedOrigins []string) gin.HandlerFunc {
	allowAll := slices.Contains(allowedOrigins, "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || slices.Contains(allowedOrigins, origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, "+correlationHeader)
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return fallback
}
