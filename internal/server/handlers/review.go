package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink"
	"github.com/vhdlcheck/vhdlcheck/internal/core"
	apperrors "github.com/vhdlcheck/vhdlcheck/internal/errors"
)

// MaxRequestBodyBytes caps the size of review request bodies.
const MaxRequestBodyBytes = 1 << 20

// Reviewer runs analysis and testbench generation against a model.
type Reviewer interface {
	Analyze(ctx context.Context, code, modelID string) (*core.AnalysisResult, error)
	GenerateTestbench(ctx context.Context, code string, scenario core.TestbenchScenario, modelID string) (*core.TestbenchResult, error)
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Code  string `json:"code" validate:"notblank"`
	Model string `json:"model" validate:"required"`
}

// TestbenchRequest is the body of POST /api/generate-testbench.
type TestbenchRequest struct {
	Code     string                  `json:"code" validate:"notblank"`
	Scenario *core.TestbenchScenario `json:"scenario" validate:"required"`
	Model    string                  `json:"model" validate:"required"`
}

// AnalyzeResponse is the success body of POST /api/analyze.
type AnalyzeResponse struct {
	Success bool                 `json:"success"`
	Result  *core.AnalysisResult `json:"result"`
}

// TestbenchResponse is the success body of POST /api/generate-testbench.
type TestbenchResponse struct {
	Success bool                  `json:"success"`
	Result  *core.TestbenchResult `json:"result"`
}

// ReviewHandler serves the review API.
type ReviewHandler struct {
	reviewer Reviewer
}

// NewReviewHandler creates a handler backed by the given reviewer.
func NewReviewHandler(reviewer Reviewer) *ReviewHandler {
	return &ReviewHandler{reviewer: reviewer}
}

// Analyze handles POST /api/analyze.
func (h *ReviewHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.reviewer.Analyze(r.Context(), req.Code, req.Model)
	if err != nil {
		respondWithReviewError(w, r, err, req.Model, "Analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{Success: true, Result: result})
}

// GenerateTestbench handles POST /api/generate-testbench.
func (h *ReviewHandler) GenerateTestbench(w http.ResponseWriter, r *http.Request) {
	var req TestbenchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.reviewer.GenerateTestbench(r.Context(), req.Code, *req.Scenario, req.Model)
	if err != nil {
		respondWithReviewError(w, r, err, req.Model, "Testbench generation failed")
		return
	}

	writeJSON(w, http.StatusOK, TestbenchResponse{Success: true, Result: result})
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apperrors.RespondWithAPIError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid request body"))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		apperrors.RespondWithAPIError(w, r, apperrors.WrapValidationError(r.Context(), err, validationMessage(err)))
		return false
	}
	return true
}

// respondWithReviewError maps reviewer failures onto the API error body.
// Provider details stay in logs; callers get the generic message.
func respondWithReviewError(w http.ResponseWriter, r *http.Request, err error, model, generic string) {
	ctx := r.Context()

	if errors.Is(err, ailink.ErrUnknownModel) {
		apperrors.RespondWithAPIError(w, r, apperrors.WrapUnsupportedModel(ctx, err, fmt.Sprintf("Unsupported AI model: %s", strings.TrimSpace(model))))
		return
	}

	var failure *ailink.ProviderFailure
	if errors.As(err, &failure) {
		env := apperrors.WrapInternal(ctx, err, generic)
		env, _ = env.WithContext(map[string]interface{}{
			"provider_code": failure.Code,
		})
		apperrors.RespondWithAPIError(w, r, env)
		return
	}

	apperrors.RespondWithAPIError(w, r, apperrors.WrapInternal(ctx, err, generic))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
