package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rightwin/qr-portal-server/internal/audit"
	apperrors "github.com/rightwin/qr-portal-server/internal/errors"
	"github.com/rightwin/qr-portal-server/internal/model"
	"github.com/rightwin/qr-portal-server/internal/service"
)

// AdminHandler is the operator API: portal-wide limits, account
// provisioning and the administrator lock.
type AdminHandler struct {
	settingsService *service.SettingsService
	codeService     *service.CodeService
	accountService  *service.AccountService
}

func NewAdminHandler(
	settingsService *service.SettingsService,
	codeService *service.CodeService,
	accountService *service.AccountService,
) *AdminHandler {
	return &AdminHandler{
		settingsService: settingsService,
		codeService:     codeService,
		accountService:  accountService,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
	r.Get("/codes", h.ListCodes)
	r.Post("/codes/{id}/lock", h.Lock)
	r.Post("/codes/{id}/unlock", h.Unlock)
	r.Post("/accounts", h.CreateAccount)
	r.Get("/accounts", h.ListAccounts)
	r.Post("/accounts/{id}/disable", h.DisableAccount)

	return r
}

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.Current(r.Context())
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxScansPerCode        *int `json:"maxScansPerCode"`
		MaxScansPerOwnerWindow *int `json:"maxScansPerOwnerWindow"`
		OwnerWindowDays        *int `json:"ownerWindowDays"`
		MaxCodesPerOwner       *int `json:"maxCodesPerOwner"`
		RetentionDays          *int `json:"retentionDays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	for name, v := range map[string]*int{
		"maxScansPerCode":        req.MaxScansPerCode,
		"maxScansPerOwnerWindow": req.MaxScansPerOwnerWindow,
		"ownerWindowDays":        req.OwnerWindowDays,
		"maxCodesPerOwner":       req.MaxCodesPerOwner,
		"retentionDays":          req.RetentionDays,
	} {
		if v != nil && *v < 0 {
			writeError(w, apperrors.InvalidInput(name, "must not be negative"))
			return
		}
	}

	settings, err := h.settingsService.Update(r.Context(), model.UpdateSettingsParams{
		MaxScansPerCode:        req.MaxScansPerCode,
		MaxScansPerOwnerWindow: req.MaxScansPerOwnerWindow,
		OwnerWindowDays:        req.OwnerWindowDays,
		MaxCodesPerOwner:       req.MaxCodesPerOwner,
		RetentionDays:          req.RetentionDays,
	})
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventSettingsUpdate})
	writeJSON(w, http.StatusOK, settings)
}

func (h *AdminHandler) ListCodes(w http.ResponseWriter, r *http.Request) {
	pagination := ParsePagination(r)

	codes, err := h.codeService.ListAll(r.Context(), pagination.Limit, pagination.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if codes == nil {
		codes = []model.Code{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"codes": codes,
		"total": len(codes),
	})
}

func (h *AdminHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.setLock(w, r, true)
}

func (h *AdminHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	h.setLock(w, r, false)
}

func (h *AdminHandler) setLock(w http.ResponseWriter, r *http.Request, locked bool) {
	id := chi.URLParam(r, "id")

	code, err := h.codeService.SetAdminLock(r.Context(), id, locked)
	if err != nil {
		writeError(w, err)
		return
	}

	eventType := audit.EventCodeUnlock
	if locked {
		eventType = audit.EventCodeLock
	}
	audit.LogFromRequest(r, audit.Event{Type: eventType, CodeID: id})

	writeJSON(w, http.StatusOK, code)
}

func (h *AdminHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	account, token, err := h.accountService.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventAccountCreate, AccountID: account.ID})

	// The plaintext token is shown exactly once.
	writeJSON(w, http.StatusCreated, map[string]any{
		"account": account,
		"token":   token,
	})
}

func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if accounts == nil {
		accounts = []model.Account{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"total":    len(accounts),
	})
}

func (h *AdminHandler) DisableAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.accountService.Disable(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventAccountDisable, AccountID: id})
	w.WriteHeader(http.StatusNoContent)
}
