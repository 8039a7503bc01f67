package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

// LoadGoldenCases reads a golden case set from a YAML or JSON file,
// chosen by extension.
func LoadGoldenCases(path string) ([]GoldenCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden cases file: %w", err)
	}

	var cases []GoldenCase
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cases)
	default:
		err = json.Unmarshal(data, &cases)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse golden cases: %w", err)
	}

	return cases, nil
}

// ValidateGoldenCases checks that all golden cases have required fields and
// that the expected flag agrees with the expected applicability.
func ValidateGoldenCases(cases []GoldenCase) error {
	seen := make(map[string]struct{}, len(cases))

	for i, c := range cases {
		if c.ID == "" {
			return fmt.Errorf("case at index %d: missing id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("case at index %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}

		if strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("case %q: missing case text", c.ID)
		}
		if !c.ExpectedFlag.Valid() {
			return fmt.Errorf("case %q: invalid expected_flag %q", c.ID, c.ExpectedFlag)
		}
		if !c.Difficulty.IsValid() {
			return fmt.Errorf("case %q: invalid difficulty %q (must be easy/medium/hard)", c.ID, c.Difficulty)
		}

		// uncertain cases carry the reviewer's final call in expected_applies
		switch c.ExpectedFlag {
		case entities.UrgencyFlagApplies:
			if !c.ExpectedApplies {
				return fmt.Errorf("case %q: expected_flag applies contradicts expected_applies=false", c.ID)
			}
		case entities.UrgencyFlagDoesNotApply:
			if c.ExpectedApplies {
				return fmt.Errorf("case %q: expected_flag does_not_apply contradicts expected_applies=true", c.ID)
			}
		}
	}

	return nil
}
