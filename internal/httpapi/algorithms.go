package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tconn93/Day-trader/internal/domain"
	"github.com/tconn93/Day-trader/internal/ledger"
)

// AlgorithmHandlers serves the algorithm and rule CRUD routes of §6.
type AlgorithmHandlers struct {
	store *ledger.Store
	log   zerolog.Logger
}

// NewAlgorithmHandlers constructs an AlgorithmHandlers.
func NewAlgorithmHandlers(store *ledger.Store, log zerolog.Logger) *AlgorithmHandlers {
	return &AlgorithmHandlers{store: store, log: log.With().Str("handler", "algorithms").Logger()}
}

type algorithmResponse struct {
	domain.Algorithm
	Rules []domain.Rule `json:"rules,omitempty"`
}

func algorithmIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func nestedAlgorithmIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "aid"), 10, 64)
	return id, err == nil
}

// HandleList handles GET /algorithms.
func (h *AlgorithmHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	algos, err := h.store.Algorithms.ListByUser(r.Context(), UserID(r))
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, algos)
}

// HandleCreate handles POST /algorithms.
func (h *AlgorithmHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	algo, err := h.store.Algorithms.Create(r.Context(), UserID(r), req.Name, req.Description)
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, algo)
}

// HandleGet handles GET /algorithms/:id.
func (h *AlgorithmHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := algorithmIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	algo, err := h.store.Algorithms.GetByID(r.Context(), UserID(r), id)
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	rules, err := h.store.Rules.ListByAlgorithmOrdered(r.Context(), id)
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, algorithmResponse{Algorithm: *algo, Rules: rules})
}

// HandleUpdate handles PUT /algorithms/:id.
func (h *AlgorithmHandlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := algorithmIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.store.Algorithms.Update(r.Context(), UserID(r), id, req.Name, req.Description); err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleDelete handles DELETE /algorithms/:id.
func (h *AlgorithmHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := algorithmIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.store.Algorithms.Delete(r.Context(), UserID(r), id); err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleToggle handles PATCH /algorithms/:id/toggle.
func (h *AlgorithmHandlers) HandleToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := algorithmIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	isActive, err := h.store.Algorithms.Toggle(r.Context(), UserID(r), id)
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"is_active": isActive})
}

// HandleCreateRule handles POST /algorithms/:id/rules.
func (h *AlgorithmHandlers) HandleCreateRule(w http.ResponseWriter, r *http.Request) {
	algoID, ok := algorithmIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var rule domain.Rule
	if err := decodeJSON(r, &rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := rule.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.store.Rules.Create(r.Context(), algoID, rule)
	if err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func ruleIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "rid"), 10, 64)
	return id, err == nil
}

// HandleUpdateRule handles PUT /algorithms/:aid/rules/:rid.
func (h *AlgorithmHandlers) HandleUpdateRule(w http.ResponseWriter, r *http.Request) {
	algoID, ok := nestedAlgorithmIDParam(r)
	ruleID, ok2 := ruleIDParam(r)
	if !ok || !ok2 {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var rule domain.Rule
	if err := decodeJSON(r, &rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := rule.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Rules.Update(r.Context(), algoID, ruleID, rule); err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleDeleteRule handles DELETE /algorithms/:aid/rules/:rid.
func (h *AlgorithmHandlers) HandleDeleteRule(w http.ResponseWriter, r *http.Request) {
	algoID, ok := nestedAlgorithmIDParam(r)
	ruleID, ok2 := ruleIDParam(r)
	if !ok || !ok2 {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.store.Rules.Delete(r.Context(), algoID, ruleID); err != nil {
		respondErr(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
