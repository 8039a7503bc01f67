package handlers

import (
	"context"
	"net/http"

	"github.com/iic3964/leyurgencia/backend/internal/application/services"
	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

// UrgencyEvaluator produces the urgency judgement for a clinical case
type UrgencyEvaluator interface {
	Evaluate(ctx context.Context, caseText string) (*entities.UrgencyOutput, error)
}

// UrgencyHandler exposes synchronous urgency reasoning
type UrgencyHandler struct {
	evaluator UrgencyEvaluator
}

// NewUrgencyHandler creates a new urgency handler
func NewUrgencyHandler(evaluator UrgencyEvaluator) *UrgencyHandler {
	return &UrgencyHandler{evaluator: evaluator}
}

// EvaluateUrgency handles POST /api/v1/ai/urgency
func (h *UrgencyHandler) EvaluateUrgency(w http.ResponseWriter, r *http.Request) {
	var req services.UrgencyCase
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	caseText := req.CaseText()
	if caseText == "" {
		respondWithError(w, http.StatusBadRequest, "text or symptoms is required")
		return
	}

	output, err := h.evaluator.Evaluate(r.Context(), caseText)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, output)
}
