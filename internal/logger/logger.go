package logger

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iurnickita/primelabel/internal/logger/config"
)

// тела этикеток большие, в лог идет только начало
const maxLoggedBody = 512

func NewZapLog(cfg config.Config) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapcfg := zap.NewProductionConfig()
	zapcfg.Level = lvl
	if cfg.Encoding != "" {
		zapcfg.Encoding = cfg.Encoding
	}
	zapcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcfg.Build()
}

// RequestLogMdlw пишет в лог входящий запрос и ответ на него.
// Ответы 4xx логируются как Warn, 5xx как Error.
func RequestLogMdlw(h http.HandlerFunc, zaplog *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqlog := zaplog.With(
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)

		var reqBody []byte
		if r.Body != nil {
			reqBody, _ = io.ReadAll(r.Body)
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(reqBody))
		}
		reqlog.Info("got incoming HTTP request", zap.String("body", clip(reqBody)))

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h(rec, r)

		fields := []zap.Field{
			zap.Int("code", rec.status),
			zap.Int("length", rec.length),
			zap.Duration("duration", time.Since(start)),
		}
		if loggableBody(rec.Header().Get("Content-Type")) {
			fields = append(fields, zap.String("body", clip(rec.body.Bytes())))
		}

		switch {
		case rec.status >= http.StatusInternalServerError:
			reqlog.Error("send HTTP response", fields...)
		case rec.status >= http.StatusBadRequest:
			reqlog.Warn("send HTTP response", fields...)
		default:
			reqlog.Info("send HTTP response", fields...)
		}
	}
}

// loggableBody: JSON и текстовые ответы; ZPL только по длине.
func loggableBody(contentType string) bool {
	if contentType == "" {
		return true
	}
	return strings.Contains(contentType, "json") || strings.HasPrefix(contentType, "text/")
}

func clip(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "..."
	}
	return string(b)
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	length int
	body   bytes.Buffer
}

func (rec *responseRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *responseRecorder) Write(b []byte) (int, error) {
	if room := maxLoggedBody + 1 - rec.body.Len(); room > 0 {
		rec.body.Write(b[:min(room, len(b))])
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.length += n
	return n, err
}
