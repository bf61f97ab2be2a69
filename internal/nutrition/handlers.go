package nutrition

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/httpx"
	"github.com/orbitha/orbitha/internal/userctx"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// HandleDailySummary handles GET /v1/nutrition/daily-summary?date=
func (h *Handler) HandleDailySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.service.DailySummary(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, summary)
}

// HandleListMeals handles GET /v1/nutrition/meals?date=
func (h *Handler) HandleListMeals(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp, err := h.service.ListMeals(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleDiaryPDF handles GET /v1/nutrition/diary.pdf?date=
func (h *Handler) HandleDiaryPDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	date, err := h.service.ResolveDate(r.URL.Query().Get("date"))
	if err != nil {
		h.handleError(w, err)
		return
	}

	doc, err := h.service.DiaryPDF(r.Context(), userID, date)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="diario-`+date+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidDate):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("nutrition request failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
