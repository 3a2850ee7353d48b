package service

import (
	"context"
	"fmt"

	"sectrain_backend/internal/model"
	"sectrain_backend/internal/util"
)

// DefaultPassThreshold applies when a tenant has no explicit policy.
const DefaultPassThreshold = 0.70

// FreeTextEvaluator is the external evaluation service behind free-text
// scoring. The AI client implements it in production; tests use stubs.
type FreeTextEvaluator interface {
	EvaluateFreeText(ctx context.Context, question, rubric, response string) (score float64, rationale string, err error)
}

// ScoringService computes deterministic scores and delegates free-text
// evaluation. Everything except ScoreFreeText is pure.
type ScoringService struct {
	Evaluator FreeTextEvaluator
}

func NewScoringService(evaluator FreeTextEvaluator) *ScoringService {
	return &ScoringService{Evaluator: evaluator}
}

// ScoreMultipleChoice gives full credit on exact match, zero otherwise.
// Case-sensitive, no partial credit.
func ScoreMultipleChoice(selected, correct string) float64 {
	if selected == correct {
		return 1.0
	}
	return 0.0
}

// ScoreFreeText delegates to the evaluation service and validates the
// returned score is within [0,1].
func (s *ScoringService) ScoreFreeText(ctx context.Context, question, rubric, response string) (float64, string, error) {
	score, rationale, err := s.Evaluator.EvaluateFreeText(ctx, question, rubric, response)
	if err != nil {
		return 0, "", err
	}
	if score < 0 || score > 1 {
		return 0, "", &util.AIError{
			Code: util.AICodeEvaluationFailed,
			Err:  fmt.Errorf("score %v out of range", score),
		}
	}
	return score, rationale, nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// ComputeModuleScore is the mean over all scenario and quiz scores, or
// nil when the module recorded nothing.
func ComputeModuleScore(scenarioScores, quizScores []float64) *float64 {
	all := make([]float64, 0, len(scenarioScores)+len(quizScores))
	all = append(all, scenarioScores...)
	all = append(all, quizScores...)
	if len(all) == 0 {
		return nil
	}
	m := mean(all)
	return &m
}

// ComputeAggregateScore is the mean over module scores, or nil when
// there are none.
func ComputeAggregateScore(moduleScores []float64) *float64 {
	if len(moduleScores) == 0 {
		return nil
	}
	m := mean(moduleScores)
	return &m
}

func IsPassing(aggregateScore, threshold float64) bool {
	return aggregateScore >= threshold
}

// IdentifyWeakAreas returns the topic areas of modules scoring below the
// threshold, in module order, keeping duplicates when topics repeat.
// Unscored modules are not weak areas; they simply never happened.
func IdentifyWeakAreas(modules []model.TrainingModule, threshold float64) []string {
	var weak []string
	for _, m := range modules {
		if m.ModuleScore != nil && *m.ModuleScore < threshold {
			weak = append(weak, m.TopicArea)
		}
	}
	return weak
}
