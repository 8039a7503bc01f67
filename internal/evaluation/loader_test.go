package evaluation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

func TestLoadGoldenCases_ValidJSON(t *testing.T) {
	content := `[
		{"id": "c1", "text": "Dolor torácico opresivo de 40 minutos, diaforesis", "expected_flag": "applies", "expected_applies": true, "difficulty": "easy"},
		{"id": "c2", "text": "Control de presión arterial, asintomático", "expected_flag": "does_not_apply", "expected_applies": false, "difficulty": "easy"}
	]`
	path := writeTempFile(t, "cases.json", content)

	cases, err := LoadGoldenCases(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	if cases[0].ID != "c1" {
		t.Errorf("expected id c1, got %s", cases[0].ID)
	}
	if cases[0].ExpectedFlag != entities.UrgencyFlagApplies {
		t.Errorf("expected flag applies, got %s", cases[0].ExpectedFlag)
	}
	if !cases[0].ExpectedApplies {
		t.Error("expected c1 to apply")
	}
	if cases[1].Difficulty != DifficultyEasy {
		t.Errorf("expected difficulty easy, got %s", cases[1].Difficulty)
	}
}

func TestLoadGoldenCases_ValidYAML(t *testing.T) {
	content := `
- id: c1
  text: |
    - Síntomas: disnea súbita
    - Saturación: 86%
  expected_flag: applies
  expected_applies: true
  difficulty: medium
- id: c2
  text: Cefalea leve de tres días
  expected_flag: uncertain
  expected_applies: false
  difficulty: hard
`
	path := writeTempFile(t, "cases.yaml", content)

	cases, err := LoadGoldenCases(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	if cases[0].Text != "- Síntomas: disnea súbita\n- Saturación: 86%\n" {
		t.Errorf("unexpected text %q", cases[0].Text)
	}
	if cases[1].ExpectedFlag != entities.UrgencyFlagUncertain {
		t.Errorf("expected flag uncertain, got %s", cases[1].ExpectedFlag)
	}
	if err := ValidateGoldenCases(cases); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoadGoldenCases_ShippedCaseSet(t *testing.T) {
	cases, err := LoadGoldenCases(filepath.Join("..", "..", "config", "golden_cases.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("expected reviewed cases in config/golden_cases.yaml")
	}
	if err := ValidateGoldenCases(cases); err != nil {
		t.Fatalf("shipped cases failed validation: %v", err)
	}
}

func TestLoadGoldenCases_InvalidFile(t *testing.T) {
	_, err := LoadGoldenCases("/nonexistent/path.json")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadGoldenCases_InvalidJSON(t *testing.T) {
	path := writeTempFile(t, "cases.json", `not valid json`)
	_, err := LoadGoldenCases(path)
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadGoldenCases_EmptyArray(t *testing.T) {
	path := writeTempFile(t, "cases.json", `[]`)
	cases, err := LoadGoldenCases(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cases) != 0 {
		t.Errorf("expected 0 cases, got %d", len(cases))
	}
}

func TestDifficulty_IsValid(t *testing.T) {
	tests := []struct {
		difficulty Difficulty
		valid      bool
	}{
		{DifficultyEasy, true},
		{DifficultyMedium, true},
		{DifficultyHard, true},
		{Difficulty("impossible"), false},
		{Difficulty(""), false},
	}
	for _, tt := range tests {
		got := tt.difficulty.IsValid()
		if got != tt.valid {
			t.Errorf("Difficulty(%q).IsValid() = %v, want %v", tt.difficulty, got, tt.valid)
		}
	}
}

func TestValidateGoldenCases(t *testing.T) {
	valid := GoldenCase{ID: "c1", Text: "Dolor abdominal intenso", ExpectedFlag: entities.UrgencyFlagApplies, ExpectedApplies: true, Difficulty: DifficultyEasy}

	tests := []struct {
		name    string
		cases   []GoldenCase
		wantErr bool
	}{
		{"valid", []GoldenCase{valid}, false},
		{"missing id", []GoldenCase{{Text: "x", ExpectedFlag: entities.UrgencyFlagApplies, ExpectedApplies: true, Difficulty: DifficultyEasy}}, true},
		{"blank text", []GoldenCase{{ID: "c1", Text: "   ", ExpectedFlag: entities.UrgencyFlagApplies, ExpectedApplies: true, Difficulty: DifficultyEasy}}, true},
		{"invalid flag", []GoldenCase{{ID: "c1", Text: "x", ExpectedFlag: "maybe", Difficulty: DifficultyEasy}}, true},
		{"invalid difficulty", []GoldenCase{{ID: "c1", Text: "x", ExpectedFlag: entities.UrgencyFlagApplies, ExpectedApplies: true, Difficulty: "trivial"}}, true},
		{"duplicate ids", []GoldenCase{valid, valid}, true},
		{"applies contradicted", []GoldenCase{{ID: "c1", Text: "x", ExpectedFlag: entities.UrgencyFlagApplies, ExpectedApplies: false, Difficulty: DifficultyEasy}}, true},
		{"does_not_apply contradicted", []GoldenCase{{ID: "c1", Text: "x", ExpectedFlag: entities.UrgencyFlagDoesNotApply, ExpectedApplies: true, Difficulty: DifficultyEasy}}, true},
		{"uncertain either way", []GoldenCase{{ID: "c1", Text: "x", ExpectedFlag: entities.UrgencyFlagUncertain, ExpectedApplies: true, Difficulty: DifficultyHard}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGoldenCases(tt.cases)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGoldenCases() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}
