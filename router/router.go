package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"EdgeTpuDetServer/engine"
	"EdgeTpuDetServer/logger"
	"EdgeTpuDetServer/monitor"
	"EdgeTpuDetServer/pipeline"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	// ResultsDir is served under /results when set.
	ResultsDir string
}

// reservedItems are root segments taken by fixed routes. They are never
// looked up as images; /ws/ is redirected to the WebSocket route by gin.
var reservedItems = map[string]bool{"api": true, "items": true, "ws": true}

type handler struct {
	pipeline *pipeline.Pipeline
}

func New(p *pipeline.Pipeline, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())
	if opts.ResultsDir != "" {
		r.Use(static.Serve("/results", static.LocalFile(opts.ResultsDir, false)))
	}

	h := &handler{pipeline: p}
	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/api/engine", h.checkEngine)
	r.GET("/api/detect/:item_id", h.detect)
	r.GET("/items/:item_id", h.readItem)
	r.GET("/ws", h.websocket)
	r.GET("/:item_id/", h.readRoot)
	return r
}

// readRoot runs detection on images/<item_id>. The body is a fixed
// acknowledgment; detections are served by /api/detect.
func (h *handler) readRoot(c *gin.Context) {
	itemID := c.Param("item_id")
	if reservedItems[itemID] {
		monitor.ObserveRequest(monitor.TransportHTTP, pipeline.ErrInvalidItem)
		abortWithError(c, fmt.Errorf("%w: %q is a reserved route", pipeline.ErrInvalidItem, itemID))
		return
	}
	_, err := h.pipeline.Run(c.Request.Context(), itemID)
	monitor.ObserveRequest(monitor.TransportHTTP, err)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"Hello": "World"})
}

func (h *handler) detect(c *gin.Context) {
	res, err := h.pipeline.Run(c.Request.Context(), c.Param("item_id"))
	monitor.ObserveRequest(monitor.TransportHTTP, err)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) readItem(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("item_id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "item_id must be an integer"})
		return
	}
	var q any
	if v, ok := c.GetQuery("q"); ok {
		q = v
	}
	c.JSON(http.StatusOK, gin.H{"item_id": itemID, "q": q})
}

func (h *handler) checkEngine(c *gin.Context) {
	cfg := h.pipeline.Detector().CheckConfig()
	cfg.Labels = len(h.pipeline.Labels())
	c.JSON(http.StatusOK, gin.H{"data": cfg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrInvalidItem), errors.Is(err, pipeline.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrStopped), errors.Is(err, engine.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Log().Error("detection failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log().Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client", c.ClientIP()))
	}
}
