package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/catherinevee/mdcagent/internal/shared/errors"
	"github.com/catherinevee/mdcagent/internal/shared/logging"
	"github.com/catherinevee/mdcagent/internal/shared/metrics"
)

// Response headers set on every request.
const (
	HeaderRequestID   = "X-Request-Id"
	HeaderProcessTime = "X-Process-Time-Ms"
)

const requestIDKey = "request_id"

// RequestID reuses the caller's X-Request-Id or generates one, and attaches
// a request-scoped logger to the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.New().String()
		}

		c.Set(requestIDKey, requestID)
		c.Header(HeaderRequestID, requestID)

		logger := logging.Logger.With().Str("request_id", requestID).Logger()
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))

		c.Next()
	}
}

// timingWriter stamps the elapsed time header just before the first byte
// of the body goes out.
type timingWriter struct {
	gin.ResponseWriter
	start time.Time
}

func (w *timingWriter) stamp() {
	if !w.Written() {
		elapsed := float64(time.Since(w.start).Microseconds()) / 1000
		w.Header().Set(HeaderProcessTime, strconv.FormatFloat(elapsed, 'f', 2, 64))
	}
}

func (w *timingWriter) Write(data []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(data)
}

func (w *timingWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}

func (w *timingWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

// RequestLogger logs one line per request and records HTTP metrics.
func RequestLogger(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		writer := &timingWriter{ResponseWriter: c.Writer, start: start}
		c.Writer = writer

		c.Next()

		writer.stamp()
		duration := time.Since(start)
		status := c.Writer.Status()
		collector.ObserveHTTPRequest(c.Request.Method, c.FullPath(), status, duration)

		logger := logging.FromContext(c.Request.Context())
		event := logger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("query", c.Request.URL.RawQuery).
			Int("status", status).
			Float64("duration_ms", float64(duration.Microseconds())/1000).
			Int("bytes", c.Writer.Size()).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// Recovery turns a handler panic into an INTERNAL_ERROR response.
func (s *Server) Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger := logging.FromContext(c.Request.Context())
		logger.Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic")

		s.renderError(c, apperrors.NewInternalError(nil))
	})
}
