package middleware

import (
	"net/http"

	"github.com/rightwin/qr-portal-server/internal/audit"
	"github.com/rightwin/qr-portal-server/internal/util"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminKeyMiddleware guards the operator API with a single pre-shared key.
// Only the bcrypt hash of the key is configured on the server.
type AdminKeyMiddleware struct {
	keyHash string
}

func NewAdminKeyMiddleware(keyHash string) *AdminKeyMiddleware {
	return &AdminKeyMiddleware{keyHash: keyHash}
}

func (m *AdminKeyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.keyHash == "" {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "Admin API is not configured",
			})
			return
		}

		key := r.Header.Get(AdminKeyHeader)
		if key == "" || !util.CheckKeyHash(key, m.keyHash) {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"surface": "admin"},
			})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid admin key",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
