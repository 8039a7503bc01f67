package evaluation

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/observability"
)

// Evaluator produces an urgency verdict for free clinical text.
type Evaluator interface {
	Evaluate(ctx context.Context, caseText string) (*entities.UrgencyOutput, error)
}

// Runner runs evaluation across a set of golden cases.
type Runner struct {
	evaluator  Evaluator
	guardrails *Guardrails
	parallel   int
}

func NewRunner(evaluator Evaluator, guardrails *Guardrails, parallel int) *Runner {
	if guardrails == nil {
		guardrails = NewGuardrails(GuardrailConfig{})
	}
	if parallel < 1 {
		parallel = 1
	}
	return &Runner{evaluator: evaluator, guardrails: guardrails, parallel: parallel}
}

// Run evaluates every case and aggregates the results. A failing case is
// recorded and does not stop the run; only context cancellation does.
func (r *Runner) Run(ctx context.Context, cases []GoldenCase) (*EvalSummary, error) {
	logger := observability.LoggerFromContext(ctx)
	results := make([]CaseResult, len(cases))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i, gc := range cases {
		i, gc := i, gc
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = r.evaluateCase(gCtx, gc)
			if results[i].Error != "" {
				logger.Warn().Str("case_id", gc.ID).Str("error", results[i].Error).Msg("Golden case evaluation failed")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := Summarize(results)
	logger.Info().
		Int("cases", summary.TotalCases).
		Float64("flag_accuracy", summary.FlagAccuracy).
		Float64("f1", summary.F1).
		Msg("Evaluation finished")
	return summary, nil
}

func (r *Runner) evaluateCase(ctx context.Context, gc GoldenCase) CaseResult {
	result := CaseResult{
		CaseID:          gc.ID,
		Difficulty:      gc.Difficulty,
		ExpectedFlag:    gc.ExpectedFlag,
		ExpectedApplies: gc.ExpectedApplies,
	}

	start := time.Now()
	output, err := r.evaluator.Evaluate(ctx, gc.Text)
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if output == nil {
		result.Error = "evaluator returned no verdict"
		return result
	}

	result.PredictedFlag = output.UrgencyFlag
	result.Confidence = output.UrgencyConfidence
	result.Abstained = r.guardrails.ShouldAbstain(output)
	return result
}

// Summarize aggregates per-case results. Flag accuracy counts every case that
// produced a verdict; precision, recall and F1 skip abstentions.
func Summarize(results []CaseResult) *EvalSummary {
	summary := &EvalSummary{
		TotalCases:   len(results),
		ByDifficulty: make(map[Difficulty]*DifficultySummary),
		Results:      results,
	}

	var confusion Confusion
	answered, correct := 0, 0
	for _, res := range results {
		ds, ok := summary.ByDifficulty[res.Difficulty]
		if !ok {
			ds = &DifficultySummary{}
			summary.ByDifficulty[res.Difficulty] = ds
		}
		ds.Count++

		if res.Error != "" {
			summary.Failed++
			continue
		}
		answered++
		summary.AvgLatency += res.Latency

		if res.PredictedFlag == res.ExpectedFlag {
			correct++
			ds.Correct++
		}
		if res.Abstained {
			summary.Abstained++
			ds.Abstained++
			continue
		}
		confusion.Add(res.ExpectedApplies, res.PredictedFlag == entities.UrgencyFlagApplies)
	}

	if answered > 0 {
		summary.FlagAccuracy = ratio(correct, answered)
		summary.AbstentionRate = ratio(summary.Abstained, answered)
		summary.AvgLatency /= time.Duration(answered)
	}
	summary.Precision = confusion.Precision()
	summary.Recall = confusion.Recall()
	summary.F1 = confusion.F1()

	for _, ds := range summary.ByDifficulty {
		ds.FlagAccuracy = ratio(ds.Correct, ds.Count)
	}

	return summary
}
