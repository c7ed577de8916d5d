package log

import (
	"io"
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
)

// HTTPHandler wraps an http.Handler with per-request access logging at
// debug level. The gorilla logging handler preserves http.Hijacker, so
// websocket upgrades pass through untouched.
func HTTPHandler(next http.Handler) http.Handler {
	return gorillahandlers.CustomLoggingHandler(io.Discard, next, writeAccessLine)
}

func writeAccessLine(_ io.Writer, params gorillahandlers.LogFormatterParams) {
	Debugw("http request",
		"method", params.Request.Method,
		"path", params.URL.Path,
		"status", params.StatusCode,
		"size", params.Size,
		"remote", params.Request.RemoteAddr,
	)
}
