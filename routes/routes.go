package routes

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"uebergabe/handlers"
)

// Handlers groups everything the router serves.
type Handlers struct {
	Session *handlers.SessionHandler
	History *handlers.HistoryHandler
	Geocode *handlers.GeocodeHandler
	Render  *handlers.RenderHandler
}

// CORS middleware
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		// Handle preflight request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withAuth requires "Authorization: Bearer <token>" whose bcrypt hash is
// tokenHash. An empty hash leaves the API open.
func withAuth(tokenHash string, next http.Handler) http.Handler {
	if tokenHash == "" {
		return next
	}
	hash := []byte(tokenHash)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || bcrypt.CompareHashAndPassword(hash, []byte(token)) != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", clientIP(r)))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}

func SetupRoutes(h Handlers, authTokenHash string) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, withCORS(withAuth(authTokenHash, handlers.RecoverWrapper(fn))))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Wizard session
	handle("/session", h.Session.GetSession)
	handle("/session/new", h.Session.NewProtocol)
	handle("/session/step", h.Session.Step)
	handle("/session/edit", h.Session.Edit)
	handle("/session/signatures", h.Session.Sign)
	handle("/session/pdf", h.Session.PDF)
	handle("/session/submit", h.Session.Submit)

	// History
	handle("/history", h.History.ListHistory)
	handle("/history/{id}", h.History.Entry)
	handle("/history/{id}/resume", h.History.Resume)

	handle("/geocode", h.Geocode.Search)
	handle("/render", h.Render.Render)

	return withAccessLog(mux)
}
