package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"farmapos/backend/internal/domain"
	"farmapos/backend/internal/service"
	"farmapos/backend/internal/store"
)

type API struct {
	service *service.Service
}

func New(svc *service.Service) *API {
	return &API{service: svc}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/medications/{id}", a.handleGetMedication)
		r.Get("/medications/{id}/quote", a.handleQuote)
		r.Post("/medications/{id}/stock/decrement", a.handleStockAdjust)

		r.Post("/sales", a.handleCreateSale)
		r.Get("/sales", a.handleListSales)
		r.Get("/sales/{id}", a.handleGetSale)
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleGetMedication(w http.ResponseWriter, r *http.Request) {
	med, err := a.service.GetMedication(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, med)
}

func (a *API) handleQuote(w http.ResponseWriter, r *http.Request) {
	quantity, err := parseQuantity(r.URL.Query().Get("quantity"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	quotation, err := a.service.Quote(r.Context(), chi.URLParam(r, "id"), quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quotation)
}

func (a *API) handleStockAdjust(w http.ResponseWriter, r *http.Request) {
	var req domain.StockAdjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.AdjustStock(r.Context(), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sale, err := a.service.CreateSale(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := domain.SaleQuery{
		Sort: q.Get("sort"),
	}

	var err error
	if query.Page, err = parseIntParam(q.Get("page"), 0); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if query.Size, err = parseIntParam(q.Get("size"), 0); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if from := strings.TrimSpace(q.Get("from")); from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid from date, expected YYYY-MM-DD"))
			return
		}
		query.From = &parsed
	}
	if to := strings.TrimSpace(q.Get("to")); to != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid to date, expected YYYY-MM-DD"))
			return
		}
		query.To = &parsed
	}

	page, err := a.service.ListSales(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// writeServiceError maps error kinds to HTTP statuses. Validation is the
// caller's fault, not-found is its own condition, and business-rule
// violations (insufficient stock, inactive medication) get 409 so clients can
// offer a "reduce quantity" remedy instead of treating them as bugs.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrInsufficientStock), errors.Is(err, store.ErrMedicationInactive):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func parseQuantity(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, errors.New("quantity is required")
	}
	quantity, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, errors.New("quantity must be an integer")
	}
	return quantity, nil
}

func parseIntParam(raw string, fallback int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, errors.New("page and size must be integers")
	}
	return parsed, nil
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details (stack traces, SQL errors, file paths, etc.).
	// 4xx responses are user-facing so we return the original error message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
