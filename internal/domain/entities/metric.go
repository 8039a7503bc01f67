package entities

// MetricStats aggregates how urgency decisions held up against insurer review
type MetricStats struct {
	ID                          string  `json:"id"`
	Name                        string  `json:"name"`
	TotalEpisodes               int     `json:"total_episodes"`
	TotalUrgencyLaw             int     `json:"total_urgency_law"`
	PercentUrgencyLawRejected   float64 `json:"percent_urgency_law_rejected"`
	TotalAIYes                  int     `json:"total_ai_yes"`
	PercentAIYesRejected        float64 `json:"percent_ai_yes_rejected"`
	TotalAINoMedicYes           int     `json:"total_ai_no_medic_yes"`
	PercentAINoMedicYesRejected float64 `json:"percent_ai_no_medic_yes_rejected"`
}
