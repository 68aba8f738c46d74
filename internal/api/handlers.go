package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/trade-journal/internal/analysis"
	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/internal/screener"
	"github.com/mohamedkhairy/trade-journal/pkg/logger"
)

// ScreenHandler serves saved screener queries and their results
type ScreenHandler struct {
	queries  screener.QueryStore
	screener *screener.Screener
}

// NewScreenHandler creates a new screen handler
func NewScreenHandler(queries screener.QueryStore, s *screener.Screener) *ScreenHandler {
	return &ScreenHandler{queries: queries, screener: s}
}

// ListQueries handles GET /api/v1/queries
func (h *ScreenHandler) ListQueries(w http.ResponseWriter, r *http.Request) {
	queries, err := h.queries.ListQueries(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve queries")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"queries": queries,
		"count":   len(queries),
	})
}

// GetQuery handles GET /api/v1/queries/{id}
func (h *ScreenHandler) GetQuery(w http.ResponseWriter, r *http.Request) {
	q, err := h.queries.GetQuery(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.queryError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, q)
}

// Screen handles GET /api/v1/queries/{id}/results
// Optional parameters: symbols (comma separated), period, order_by, sort, limit
func (h *ScreenHandler) Screen(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	saved, query, err := screener.LoadSaved(r.Context(), h.queries, id)
	if err != nil {
		h.queryError(w, err)
		return
	}

	params := r.URL.Query()
	pt := saved.PeriodType
	if p := params.Get("period"); p != "" {
		if pt, err = models.ParsePeriodType(p); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	opts := screener.ScreenOptions{
		OrderBy:   saved.OrderBy,
		SortOrder: saved.SortOrder,
		Limit:     parseIntQuery(r, "limit", saved.Limit, 1, 10000),
	}
	if orderBy := params.Get("order_by"); orderBy != "" {
		opts.OrderBy = orderBy
	}
	if sort := params.Get("sort"); sort != "" {
		if opts.SortOrder, err = models.ParseSortOrder(sort); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var symbols []string
	if s := params.Get("symbols"); s != "" {
		for _, sym := range strings.Split(s, ",") {
			if sym = strings.TrimSpace(sym); sym != "" {
				symbols = append(symbols, strings.ToUpper(sym))
			}
		}
	}

	results, err := h.screener.Screen(r.Context(), query, symbols, pt, opts)
	if err != nil {
		if errors.Is(err, screener.ErrInvalidQuery) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("Screen failed",
			logger.String("query_id", id),
			logger.ErrorField(err),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to run screen")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"query_id":    saved.ID,
		"period_type": pt,
		"filtered":    query != nil,
		"results":     results,
		"count":       len(results),
	})
}

func (h *ScreenHandler) queryError(w http.ResponseWriter, err error) {
	if errors.Is(err, screener.ErrQueryNotFound) {
		respondWithError(w, http.StatusNotFound, "Query not found")
		return
	}
	respondWithError(w, http.StatusInternalServerError, "Failed to retrieve query")
}

// Runner starts analysis runs and reports their status
type Runner interface {
	Trigger(req analysis.RunRequest) bool
	Status() analysis.RunStatus
}

// RunHandler triggers analysis runs
type RunHandler struct {
	runner Runner
}

// NewRunHandler creates a new run handler
func NewRunHandler(runner Runner) *RunHandler {
	return &RunHandler{runner: runner}
}

type runRequestBody struct {
	Symbols     []string            `json:"symbols"`
	PeriodTypes []models.PeriodType `json:"period_types"`
	Reset       bool                `json:"reset"`
}

// TriggerRun handles POST /api/v1/runs. An empty body runs the defaults.
func (h *RunHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var body runRequestBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid run request: "+err.Error())
			return
		}
	}

	req := analysis.RunRequest{
		Symbols:     body.Symbols,
		PeriodTypes: body.PeriodTypes,
		Reset:       body.Reset,
	}
	if !h.runner.Trigger(req) {
		respondWithError(w, http.StatusConflict, "An analysis run is already in progress")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"accepted": true,
	})
}

// LastRun handles GET /api/v1/runs/last
func (h *RunHandler) LastRun(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.runner.Status())
}
