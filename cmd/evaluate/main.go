package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iic3964/leyurgencia/backend/internal/adapters/providers/completion"
	"github.com/iic3964/leyurgencia/backend/internal/application/services"
	"github.com/iic3964/leyurgencia/backend/internal/evaluation"
	"github.com/iic3964/leyurgencia/backend/pkg/config"
)

var evaluateFlags struct {
	cases         string
	parallel      int
	minConfidence float64
	withResults   bool
	output        string
}

var rootCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score the urgency reasoning model against golden clinical cases",
	Long: `Evaluate runs every golden case through the configured completion provider
and reports flag accuracy, precision/recall/F1 on applicability, abstention
rate and latency, broken down by difficulty.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	RunE:         runEvaluate,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&evaluateFlags.cases, "cases", "config/golden_cases.yaml", "Golden case file (YAML or JSON)")
	f.IntVar(&evaluateFlags.parallel, "parallel", 2, "Number of cases evaluated concurrently")
	f.Float64Var(&evaluateFlags.minConfidence, "min-confidence", 0.5, "Confidence under which a verdict counts as an abstention")
	f.BoolVar(&evaluateFlags.withResults, "with-results", false, "Include per-case results in the output")
	f.StringVar(&evaluateFlags.output, "output", "", "Write the summary to this path instead of stdout")
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	// stdout carries the JSON summary
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	provider, err := completion.NewCompletionProvider(&cfg.AI)
	if err != nil {
		return err
	}
	if provider == nil {
		return errors.New("live urgency reasoning is disabled; set AI_PROVIDER and its API key")
	}

	cases, err := evaluation.LoadGoldenCases(evaluateFlags.cases)
	if err != nil {
		return err
	}
	if err := evaluation.ValidateGoldenCases(cases); err != nil {
		return err
	}
	log.Info().Int("cases", len(cases)).Str("provider", provider.Name()).Msg("Starting evaluation")

	reasoning := services.NewUrgencyReasoningService(provider, services.UrgencyReasoningConfig{Enabled: true})
	guardrails := evaluation.NewGuardrails(evaluation.GuardrailConfig{MinConfidence: evaluateFlags.minConfidence})
	runner := evaluation.NewRunner(reasoning, guardrails, evaluateFlags.parallel)

	summary, err := runner.Run(cmd.Context(), cases)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	if !evaluateFlags.withResults {
		summary.Results = nil
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	if evaluateFlags.output != "" {
		return os.WriteFile(evaluateFlags.output, append(out, '\n'), 0o644)
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
