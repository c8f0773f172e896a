package server

import (
	"net/http"
	"strings"

	"github.com/danieceiflora/perdcomp01-sub000/internal/tenant"
)

// HeaderEmpresaIDs carries the comma-separated empresas a caller may see.
// Requests without it are trusted internal calls with full access.
const HeaderEmpresaIDs = "X-Empresa-IDs"

func (s *Server) tenantAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values, ok := r.Header[http.CanonicalHeaderKey(HeaderEmpresaIDs)]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		ids, err := tenant.ParseIDs(strings.Join(values, ","))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, HeaderEmpresaIDs+" must list UUIDs")
			return
		}
		ctx := tenant.WithAccess(r.Context(), tenant.Restricted(ids...))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
