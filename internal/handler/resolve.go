package handler

import (
	"fmt"
	"html"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/rightwin/qr-portal-server/internal/errors"
	"github.com/rightwin/qr-portal-server/internal/httputil"
	"github.com/rightwin/qr-portal-server/internal/middleware"
	"github.com/rightwin/qr-portal-server/internal/service"
)

// ResolveHandler serves the public scan endpoint. Scanners are browsers, so
// denials render as small HTML pages rather than JSON.
type ResolveHandler struct {
	resolver *service.Resolver
}

func NewResolveHandler(resolver *service.Resolver) *ResolveHandler {
	return &ResolveHandler{resolver: resolver}
}

func (h *ResolveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")

	resolution, err := h.resolver.Resolve(r.Context(), alias, service.RequestMeta{
		ClientIP:  middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	})
	if err != nil {
		h.writeDenial(w, err)
		return
	}

	if resolution.Unconfigured {
		writeHTML(w, http.StatusOK, "No target configured")
		return
	}

	http.Redirect(w, r, resolution.RedirectURL, http.StatusFound)
}

func (h *ResolveHandler) writeDenial(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		writeHTML(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	status := httputil.StatusFromCode(appErr.Code)
	message := appErr.Message
	if appErr.Code == apperrors.ErrCodeNotFound {
		message = "QR Not Found"
	}
	if status >= http.StatusInternalServerError {
		message = "Something went wrong"
	}
	writeHTML(w, status, message)
}

func writeHTML(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<!DOCTYPE html><html><body><h1>%s</h1></body></html>", html.EscapeString(message))
}
