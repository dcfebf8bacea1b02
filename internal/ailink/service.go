package ailink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink/content"
	"github.com/vhdlcheck/vhdlcheck/internal/ailink/driver"
	"github.com/vhdlcheck/vhdlcheck/internal/ailink/prompt"
	"github.com/vhdlcheck/vhdlcheck/internal/core"
	"github.com/vhdlcheck/vhdlcheck/internal/metrics"
	"github.com/vhdlcheck/vhdlcheck/internal/models"
	"github.com/vhdlcheck/vhdlcheck/internal/validation"
)

// Service runs review and testbench requests against the configured providers.
type Service struct {
	Config   Config
	Registry *Registry
	Prompts  prompt.Registry
	Logger   *logging.Logger

	Now   func() time.Time
	NewID func() string
}

// NewService wires a service from configuration, loading the prompt set.
func NewService(cfg Config, logger *logging.Logger) (*Service, error) {
	prompts, err := prompt.DefaultRegistry(cfg.PromptsDir)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	return &Service{
		Config:   cfg,
		Registry: NewRegistry(cfg),
		Prompts:  prompts,
		Logger:   logger,
	}, nil
}

// Analyze reviews VHDL code with the given model.
//
// Provider failures and unusable model output produce a result with no
// issues and an explanatory reasoning string rather than an error. Only an
// unknown model or a broken prompt set is returned as an error.
func (s *Service) Analyze(ctx context.Context, code, modelID string) (*core.AnalysisResult, error) {
	resolved, err := s.Registry.Resolve(modelID)
	if errors.Is(err, ErrUnknownModel) {
		return nil, err
	}
	if err != nil {
		return s.softFail("provider_unavailable", mapProviderError(err).Message, zap.Error(err)), nil
	}

	text, err := s.complete(ctx, resolved, prompt.SlugAnalyze, OperationAnalyze, map[string]string{"code": code})
	if err != nil {
		var failure *ProviderFailure
		if errors.As(err, &failure) {
			return s.softFail(strings.ToLower(failure.Code), failure.Message,
				zap.String("model", resolved.Model.ID), zap.String("details", failure.Details)), nil
		}
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return s.softFail("empty_response", "the model returned an empty response",
			zap.String("model", resolved.Model.ID)), nil
	}

	checked := validation.Validate([]byte(ExtractJSON(text)))
	if !checked.Valid {
		return s.softFail("invalid_response", "the model response was not in the expected format",
			zap.String("model", resolved.Model.ID),
			zap.String("reason", checked.Reason),
			zap.String("raw", rawExcerpt(s.Config.Debug, text))), nil
	}

	issues := make([]core.Issue, 0, len(checked.Response.IssuesFound))
	bySeverity := make(map[core.Severity]int)
	for _, found := range checked.Response.IssuesFound {
		issues = append(issues, core.Issue{
			ID:          s.newID(),
			Description: found.Description,
			LineRanges:  found.Lines,
			Category:    found.Category,
			Severity:    found.Severity,
			Suggestions: found.Suggestions,
		})
		bySeverity[found.Severity]++
	}
	for severity, count := range bySeverity {
		metrics.RecordAnalysisIssues(string(severity), count)
	}

	return &core.AnalysisResult{
		Issues:    issues,
		Reasoning: checked.Response.Reasoning,
		Timestamp: s.now(),
	}, nil
}

// GenerateTestbench produces testbench source for code exercising scenario.
// Provider failures are returned as *ProviderFailure.
func (s *Service) GenerateTestbench(ctx context.Context, code string, scenario core.TestbenchScenario, modelID string) (*core.TestbenchResult, error) {
	resolved, err := s.Registry.Resolve(modelID)
	if errors.Is(err, ErrUnknownModel) {
		return nil, err
	}
	if err != nil {
		return nil, mapProviderError(err)
	}

	text, err := s.complete(ctx, resolved, prompt.SlugTestbench, OperationTestbench, map[string]string{
		"code":            code,
		"scenario":        scenario.Description,
		"clock_period":    scenario.ClockPeriod,
		"simulation_time": scenario.SimulationTime,
	})
	if err != nil {
		return nil, err
	}

	generated := StripCodeFences(text)
	if generated == "" {
		return nil, &ProviderFailure{Code: "AILINK_EMPTY_RESPONSE", Message: "the model returned no testbench code"}
	}

	return &core.TestbenchResult{
		Code:      generated,
		Scenario:  scenario,
		Timestamp: s.now(),
	}, nil
}

// complete renders slug, calls the provider and returns the text reply.
// Provider errors are returned as *ProviderFailure; prompt errors are returned as is.
func (s *Service) complete(ctx context.Context, resolved *ResolvedProvider, slug, operation string, vars map[string]string) (string, error) {
	def, err := s.Prompts.Get(slug)
	if err != nil {
		return "", err
	}
	system, user, err := prompt.Render(def, vars)
	if err != nil {
		return "", err
	}

	req := &driver.Request{
		Model: resolved.Model.ID,
		Messages: []content.Message{
			content.TextMessage(content.RoleSystem, system),
			content.TextMessage(content.RoleUser, user),
		},
		Temperature: temperatureFor(resolved.Model, def),
		PromptSlug:  slug,
	}
	if def.Config.Response.Format == "json" {
		req.ResponseFormat = &driver.ResponseFormat{Type: "json_object"}
	}
	if def.Config.Response.MaxTokens > 0 {
		maxTokens := def.Config.Response.MaxTokens
		req.MaxTokens = &maxTokens
	}

	ctx, cancel := driver.WithTimeout(ctx, s.Config.Timeout())
	if cancel != nil {
		defer cancel()
	}

	start := time.Now()
	resp, err := resolved.Driver.Complete(ctx, req)
	duration := time.Since(start)
	metrics.RecordAILinkRequest(resolved.ProviderID, resolved.Model.ID, operation, err == nil, duration)

	if err != nil {
		failure := mapProviderError(err)
		if s.Logger != nil {
			s.Logger.Warn("Provider request failed",
				zap.String("provider", resolved.ProviderID),
				zap.String("model", resolved.Model.ID),
				zap.String("operation", operation),
				zap.String("code", failure.Code),
				zap.String("details", failure.Details),
				zap.Duration("duration", duration))
		}
		return "", failure
	}

	if s.Logger != nil {
		fields := []zap.Field{
			zap.String("provider", resolved.ProviderID),
			zap.String("model", resolved.Model.ID),
			zap.String("operation", operation),
			zap.String("finish_reason", resp.FinishReason),
			zap.Duration("duration", duration),
		}
		if resp.Usage != nil {
			fields = append(fields, zap.Int("total_tokens", resp.Usage.TotalTokens))
		}
		s.Logger.Debug("Provider request completed", fields...)
	}
	return resp.Text(), nil
}

func (s *Service) softFail(reason, message string, fields ...zap.Field) *core.AnalysisResult {
	metrics.RecordAnalysisSoftFailure(reason)
	if s.Logger != nil {
		s.Logger.Warn("Analysis returned no issues: "+message, fields...)
	}
	return &core.AnalysisResult{
		Issues:    []core.Issue{},
		Reasoning: fmt.Sprintf("Analysis could not be completed: %s. Please try again or choose a different model.", message),
		Timestamp: s.now(),
	}
}

func temperatureFor(model models.Model, def *prompt.Prompt) *float64 {
	if model.UseDefaultTemperature || def == nil || def.Config.Response.Temperature == nil {
		return nil
	}
	temp := *def.Config.Response.Temperature
	return &temp
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
