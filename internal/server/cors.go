package server

import (
	"net/http"
	"strconv"
	"strings"

	"modelql/internal/config"
)

// CORSMiddleware adds CORS headers and answers preflight requests. With a
// wildcard origin the Allow-Origin header is "*" and credentials are never
// allowed; otherwise the request origin is echoed back and Vary: Origin set.
func CORSMiddleware(cfg config.CORSConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	wildcard := false
	origins := make(map[string]struct{})
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			wildcard = true
			break
		}
		origins[o] = struct{}{}
	}

	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed := wildcard
			if !wildcard {
				_, allowed = origins[origin]
			}

			if allowed {
				if wildcard {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
					if cfg.AllowCredentials {
						w.Header().Set("Access-Control-Allow-Credentials", "true")
					}
				}
				if expose != "" {
					w.Header().Set("Access-Control-Expose-Headers", expose)
				}
			}

			if r.Method == http.MethodOptions {
				if allowed {
					if methods != "" {
						w.Header().Set("Access-Control-Allow-Methods", methods)
					}
					if headers != "" {
						w.Header().Set("Access-Control-Allow-Headers", headers)
					}
					if maxAge != "" {
						w.Header().Set("Access-Control-Max-Age", maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
