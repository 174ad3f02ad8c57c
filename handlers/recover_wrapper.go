package handlers

import (
	"net/http"
	"runtime"

	"go.uber.org/zap"
)

// RecoverWrapper wraps an http.HandlerFunc with panic recovery
func RecoverWrapper(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := make([]byte, 8*1024)
				stack = stack[:runtime.Stack(stack, false)]
				zap.L().Error("panic recovered",
					zap.Any("error", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", stack))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		handler(w, r)
	}
}
