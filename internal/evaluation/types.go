package evaluation

import (
	"time"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

// Difficulty labels how ambiguous a golden case is for a clinician.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"   // textbook emergency or clearly elective
	DifficultyMedium Difficulty = "medium" // needs vitals or history to decide
	DifficultyHard   Difficulty = "hard"   // borderline, reviewers disagreed
)

// IsValid checks if the difficulty value is one of the defined constants.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// GoldenCase is a labeled clinical case with the verdict a reviewer expects.
type GoldenCase struct {
	ID              string               `json:"id" yaml:"id"`
	Text            string               `json:"text" yaml:"text"`
	ExpectedFlag    entities.UrgencyFlag `json:"expected_flag" yaml:"expected_flag"`
	ExpectedApplies bool                 `json:"expected_applies" yaml:"expected_applies"`
	Difficulty      Difficulty           `json:"difficulty" yaml:"difficulty"`
}

// CaseResult holds the evaluation outcome for a single case.
type CaseResult struct {
	CaseID          string               `json:"case_id"`
	Difficulty      Difficulty           `json:"difficulty"`
	ExpectedFlag    entities.UrgencyFlag `json:"expected_flag"`
	ExpectedApplies bool                 `json:"expected_applies"`
	PredictedFlag   entities.UrgencyFlag `json:"predicted_flag,omitempty"`
	Confidence      float64              `json:"confidence"`
	Abstained       bool                 `json:"abstained"`
	Latency         time.Duration        `json:"latency"`
	Error           string               `json:"error,omitempty"`
}

// Scored reports whether the case counts towards precision and recall.
func (r CaseResult) Scored() bool {
	return r.Error == "" && !r.Abstained
}

// EvalSummary holds aggregate metrics across all golden cases.
type EvalSummary struct {
	TotalCases     int                               `json:"total_cases"`
	Failed         int                               `json:"failed"`
	Abstained      int                               `json:"abstained"`
	FlagAccuracy   float64                           `json:"flag_accuracy"`
	Precision      float64                           `json:"precision"`
	Recall         float64                           `json:"recall"`
	F1             float64                           `json:"f1"`
	AbstentionRate float64                           `json:"abstention_rate"`
	AvgLatency     time.Duration                     `json:"avg_latency"`
	ByDifficulty   map[Difficulty]*DifficultySummary `json:"by_difficulty"`
	Results        []CaseResult                      `json:"results,omitempty"`
}

// DifficultySummary holds metrics grouped by difficulty.
type DifficultySummary struct {
	Count        int     `json:"count"`
	Correct      int     `json:"correct"`
	Abstained    int     `json:"abstained"`
	FlagAccuracy float64 `json:"flag_accuracy"`
}
