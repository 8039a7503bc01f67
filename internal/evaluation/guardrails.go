package evaluation

import "github.com/iic3964/leyurgencia/backend/internal/domain/entities"

type GuardrailConfig struct {
	// MinConfidence below which a verdict is treated as an abstention
	MinConfidence float64
}

type Guardrails struct {
	config GuardrailConfig
}

func NewGuardrails(config GuardrailConfig) *Guardrails {
	if config.MinConfidence < 0 {
		config.MinConfidence = 0
	}
	if config.MinConfidence > 1 {
		config.MinConfidence = 1
	}
	return &Guardrails{config: config}
}

// ShouldAbstain reports whether the verdict is too weak to score. An
// uncertain flag always abstains.
func (g *Guardrails) ShouldAbstain(output *entities.UrgencyOutput) bool {
	if output == nil || output.UrgencyFlag == entities.UrgencyFlagUncertain {
		return true
	}
	return output.UrgencyConfidence < g.config.MinConfidence
}
