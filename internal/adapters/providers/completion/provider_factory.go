package completion

import (
	"fmt"

	"github.com/iic3964/leyurgencia/backend/internal/domain/providers"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/clients/gemini"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/clients/openai"
	"github.com/iic3964/leyurgencia/backend/pkg/config"
)

// NewCompletionProvider builds the client named by cfg.Provider. It returns
// (nil, nil) when live model access is disabled or no key is configured, so
// the reasoning service answers with its placeholder.
func NewCompletionProvider(cfg *config.AIConfig) (providers.CompletionProvider, error) {
	if cfg == nil || !cfg.Enabled() {
		return nil, nil
	}

	switch cfg.Provider {
	case "", "gemini":
		return gemini.NewClient(cfg)
	case "openai":
		return openai.NewClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", providers.ErrCompletionUnavailable, cfg.Provider)
	}
}
