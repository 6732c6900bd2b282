package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/teilomillet/quill/config"
)

// RequestTimer sets X-Response-Time to the time spent before the first write.
func RequestTimer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &timedWriter{ResponseWriter: w, start: time.Now()}
		next.ServeHTTP(tw, r)
		if !tw.wroteHeader {
			w.Header().Set("X-Response-Time", time.Since(tw.start).String())
		}
	})
}

type timedWriter struct {
	http.ResponseWriter
	start       time.Time
	wroteHeader bool
}

func (tw *timedWriter) WriteHeader(code int) {
	if !tw.wroteHeader {
		tw.wroteHeader = true
		tw.Header().Set("X-Response-Time", time.Since(tw.start).String())
	}
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timedWriter) Write(b []byte) (int, error) {
	if !tw.wroteHeader {
		tw.WriteHeader(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}

func (tw *timedWriter) Flush() {
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// CORS handles Cross-Origin Resource Sharing for the configured origins.
// "*" allows any origin. Preflight requests are answered with 204.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(defaultList(cfg.AllowedMethods, "GET", "POST", "OPTIONS"), ", ")
	headers := strings.Join(defaultList(cfg.AllowedHeaders, "Accept", "Authorization", "Content-Type", "X-API-Key", RequestIDHeader), ", ")
	origins := defaultList(cfg.AllowedOrigins, "*")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowed := allowOrigin(origins, origin); allowed != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allowed)
				if allowed != "*" {
					h.Add("Vary", "Origin")
				}
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Expose-Headers", RequestIDHeader)
				if maxAge != "" {
					h.Set("Access-Control-Max-Age", maxAge)
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allowOrigin(origins []string, origin string) string {
	for _, o := range origins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

func defaultList(list []string, def ...string) []string {
	if len(list) == 0 {
		return def
	}
	return list
}
