package service

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/segmentio/ksuid"
	"github.com/stratadb/strata/api"
	"go.uber.org/zap"
)

// requestIDMiddleware adds the unique identifier of the request to the
// request context.  If the header "X-Request-ID" exists this will be
// used, otherwise one will be generated.
func requestIDMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(api.RequestIDHeader)
			if reqID == "" {
				reqID = ksuid.New().String()
			}
			w.Header().Add(api.RequestIDHeader, reqID)
			ctx := api.ContextWithRequestID(r.Context(), reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessLogMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	logger = logger.Named("http.access")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logger.With(
				zap.String("request_id", api.RequestIDFromContext(r.Context())),
				zap.String("method", r.Method),
				zap.Stringer("url", r.URL),
			)
			recorder := &recordingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			logger.Debug("Request started")
			defer func(start time.Time) {
				logger.Info("Request completed",
					zap.Duration("elapsed", time.Since(start)),
					zap.Int("response_content_length", recorder.contentLength),
					zap.Int("status_code", recorder.statusCode),
				)
			}(time.Now())
			next.ServeHTTP(recorder, r)
		})
	}
}

type recordingResponseWriter struct {
	http.ResponseWriter
	contentLength int
	statusCode    int
}

func (w *recordingResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.contentLength += n
	return n, err
}

func (w *recordingResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
