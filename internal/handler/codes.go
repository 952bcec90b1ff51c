package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/rightwin/qr-portal-server/internal/errors"
	"github.com/rightwin/qr-portal-server/internal/middleware"
	"github.com/rightwin/qr-portal-server/internal/model"
	"github.com/rightwin/qr-portal-server/internal/service"
)

// CodeHandler is the authenticated authoring and analytics API. Every route
// is scoped to the account resolved by the auth middleware.
type CodeHandler struct {
	codeService      *service.CodeService
	analyticsService *service.AnalyticsService
}

func NewCodeHandler(codeService *service.CodeService, analyticsService *service.AnalyticsService) *CodeHandler {
	return &CodeHandler{
		codeService:      codeService,
		analyticsService: analyticsService,
	}
}

func (h *CodeHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/summary", h.OwnerSummary)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/pause", h.Pause)
	r.Post("/{id}/resume", h.Resume)
	r.Get("/{id}/stats", h.Stats)
	r.Get("/{id}/scans", h.RecentScans)

	return r
}

type codeRequest struct {
	Title       string  `json:"title"`
	Alias       string  `json:"alias"`
	TargetKind  string  `json:"targetKind"`
	TargetValue string  `json:"targetValue"`
	Published   *bool   `json:"published"`
	StartAt     *string `json:"startAt"`
	EndAt       *string `json:"endAt"`
	ClearWindow bool    `json:"clearWindow"`
	ScanLimit   *int    `json:"scanLimit"`
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	// Dates come either as bare calendar days or full timestamps.
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, apperrors.InvalidInput("date", "must be YYYY-MM-DD or RFC 3339")
	}
	return &t, nil
}

func (h *CodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	params := model.CreateCodeParams{
		Title:       req.Title,
		Alias:       req.Alias,
		TargetKind:  model.TargetKind(req.TargetKind),
		TargetValue: req.TargetValue,
	}
	if req.TargetKind == "" {
		params.TargetKind = model.TargetKindUnconfigured
	}
	if req.Published != nil {
		params.Published = *req.Published
	} else {
		params.Published = true
	}
	if req.ScanLimit != nil {
		params.ScanLimit = *req.ScanLimit
	}

	var err error
	if req.StartAt != nil {
		if params.StartAt, err = parseDate(*req.StartAt); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.EndAt != nil {
		if params.EndAt, err = parseDate(*req.EndAt); err != nil {
			writeError(w, err)
			return
		}
	}

	code, err := h.codeService.Create(r.Context(), account.ID, params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, code)
}

func (h *CodeHandler) List(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	codes, err := h.codeService.ListByOwner(r.Context(), account.ID)
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

func (h *CodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	code, err := h.codeService.GetOwned(r.Context(), chi.URLParam(r, "id"), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, code)
}

func (h *CodeHandler) Update(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	params := model.UpdateCodeParams{
		Published:   req.Published,
		ClearWindow: req.ClearWindow,
		ScanLimit:   req.ScanLimit,
	}
	if req.Title != "" {
		params.Title = &req.Title
	}
	if req.TargetKind != "" {
		kind := model.TargetKind(req.TargetKind)
		params.TargetKind = &kind
		params.TargetValue = &req.TargetValue
	}

	var err error
	if req.StartAt != nil {
		if params.StartAt, err = parseDate(*req.StartAt); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.EndAt != nil {
		if params.EndAt, err = parseDate(*req.EndAt); err != nil {
			writeError(w, err)
			return
		}
	}

	code, err := h.codeService.Update(r.Context(), chi.URLParam(r, "id"), account.ID, params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, code)
}

func (h *CodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	if err := h.codeService.Delete(r.Context(), chi.URLParam(r, "id"), account.ID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CodeHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

func (h *CodeHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *CodeHandler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	account := middleware.GetAccount(r.Context())

	code, err := h.codeService.SetPaused(r.Context(), chi.URLParam(r, "id"), account.ID, paused)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, code)
}

func (h *CodeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	code, err := h.codeService.GetOwned(r.Context(), chi.URLParam(r, "id"), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	stats, err := h.analyticsService.CodeStats(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *CodeHandler) RecentScans(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	code, err := h.codeService.GetOwned(r.Context(), chi.URLParam(r, "id"), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	pagination := ParsePagination(r)
	scans, err := h.analyticsService.RecentScans(r.Context(), code.ID, pagination.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if scans == nil {
		scans = []model.ScanEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scans": scans,
		"total": len(scans),
	})
}

func (h *CodeHandler) OwnerSummary(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	summary, err := h.analyticsService.OwnerSummary(r.Context(), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
