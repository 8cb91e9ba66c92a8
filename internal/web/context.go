package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/JonMunkholm/fastro/internal/logging"
	"github.com/JonMunkholm/fastro/internal/provider"
)

// WithRequestMetadata adds IP and User-Agent to context for audit logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.WithRequestMeta(ctx, core.RequestMeta{
		IPAddress: clientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	})
}

// requestContext attaches audit metadata and a notification inbox to every
// request. Handlers drain the inbox into their response.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithRequestMetadata(r.Context(), r)
		ctx = provider.WithInbox(ctx, provider.NewInbox())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP returns the host part of RemoteAddr, which TrustedRealIP has
// already resolved.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type definitionKey struct{}

// requireTable resolves the {table} URL parameter against the registry.
func (s *Server) requireTable(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := chiParam(r, "table")
		def, ok := core.Get(key)
		if !ok {
			respondError(w, r, errUnknownTable, http.StatusNotFound)
			return
		}
		ctx := context.WithValue(r.Context(), definitionKey{}, def)
		ctx = logging.WithTable(ctx, def.Info.Key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// definition returns the table resolved by requireTable.
func definition(r *http.Request) core.TableDefinition {
	def, _ := r.Context().Value(definitionKey{}).(core.TableDefinition)
	return def
}
