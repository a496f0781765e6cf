package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

const requestIDContextKey contextKey = "request_id"

// RequestIDFromContext returns the id Logging assigned to the request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// errorBody is the part of the response envelope the access log cares about.
type errorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)

		started := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		// Auth runs further down the chain; it reports the principal back
		// through this holder so the log line can carry the user id.
		holder := &principalHolder{}
		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		ctx = context.WithValue(ctx, principalHolderKey, holder)

		next.ServeHTTP(wrapped, r.WithContext(ctx))

		duration := time.Since(started).Milliseconds()

		attrs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", duration,
			"client_ip", extractClientIP(r),
		}
		if userID := holder.get(); userID != "" {
			attrs = append(attrs, "user_id", userID)
		}

		if wrapped.status >= 400 && r.URL.RawQuery != "" {
			attrs = append(attrs, "query", r.URL.RawQuery)
		}

		if wrapped.status >= 400 && wrapped.body.Len() > 0 {
			var parsed errorBody
			if err := json.Unmarshal(wrapped.body.Bytes(), &parsed); err == nil && parsed.Error != nil {
				attrs = append(attrs, "error_code", parsed.Error.Code)
				attrs = append(attrs, "error_message", parsed.Error.Message)
				if parsed.Error.Details != "" {
					attrs = append(attrs, "error_details", parsed.Error.Details)
				}
			}
		}

		switch {
		case wrapped.status >= 500:
			slog.Error("request", attrs...)
		case wrapped.status >= 400:
			slog.Warn("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	})
}

type responseWriter struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.wroteHeader {
		return
	}
	rw.status = statusCode
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status >= 400 {
		rw.body.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}

const principalHolderKey contextKey = "principal_holder"

// principalHolder may be written from the goroutine Timeout runs handlers in.
type principalHolder struct {
	userID atomic.Value
}

func (h *principalHolder) get() string {
	id, _ := h.userID.Load().(string)
	return id
}

func notePrincipal(ctx context.Context, userID string) {
	if holder, ok := ctx.Value(principalHolderKey).(*principalHolder); ok {
		holder.userID.Store(userID)
	}
}
