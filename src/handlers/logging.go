package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// requestLogger sends access logs through logrus so they share its level
// and formatter.
type requestLogger struct {
	logger *log.Logger
}

func (l requestLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &requestLogEntry{entry: l.logger.WithFields(log.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
		"remote":     r.RemoteAddr,
	})}
}

type requestLogEntry struct {
	entry *log.Entry
}

func (e *requestLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	entry := e.entry.WithFields(log.Fields{
		"status":   status,
		"bytes":    bytes,
		"duration": elapsed.String(),
	})
	if status >= http.StatusInternalServerError {
		entry.Warn("request")
		return
	}
	entry.Info("request")
}

func (e *requestLogEntry) Panic(v interface{}, stack []byte) {
	e.entry.WithFields(log.Fields{"panic": v, "stack": string(stack)}).Error("request panicked")
}
