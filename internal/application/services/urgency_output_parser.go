package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

// ParseUrgencyOutput turns raw model text into a fully populated UrgencyOutput.
// It never fails: unparseable text yields the defaulted empty judgement.
func ParseUrgencyOutput(text string) *entities.UrgencyOutput {
	return CoerceUrgencyOutput(extractJSONObject(text))
}

func extractJSONObject(text string) map[string]any {
	cleaned := stripMarkdownFences(text)

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err == nil && raw != nil {
		return raw
	}

	if candidate := lastJSONObject(cleaned); candidate != "" {
		raw = nil
		if err := json.Unmarshal([]byte(candidate), &raw); err == nil && raw != nil {
			return raw
		}
	}
	return map[string]any{}
}

// lastJSONObject returns the balanced {...} block that ends at the final
// closing brace of text, after dropping a trailing code fence. Braces inside
// JSON strings are not counted.
func lastJSONObject(text string) string {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))

	end := strings.LastIndexByte(trimmed, '}')
	if end < 0 {
		return ""
	}

	depth := 0
	inString := false
	for i := end; i >= 0; i-- {
		c := trimmed[i]
		if c == '"' && !escapedAt(trimmed, i) {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '}':
			depth++
		case '{':
			depth--
			if depth == 0 {
				return trimmed[i : end+1]
			}
		}
	}
	return ""
}

// escapedAt reports whether the byte at i is preceded by an odd run of
// backslashes.
func escapedAt(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

func stripMarkdownFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

// CoerceUrgencyOutput fills defaults and normalizes every field of a decoded
// model answer.
func CoerceUrgencyOutput(raw map[string]any) *entities.UrgencyOutput {
	out := &entities.UrgencyOutput{
		UrgencyFlag:         entities.UrgencyFlagUncertain,
		UrgencyConfidence:   clampUnit(toFloat(raw["urgency_confidence"])),
		DiagnosisHypotheses: normalizeHypotheses(raw["diagnosis_hypotheses"]),
		Rationale:           toString(raw["rationale"]),
		Actions:             normalizeStrings(raw["actions"], 0),
		Citations:           normalizeStrings(raw["citations"], entities.MaxCitations),
		CitationsStructured: normalizeStructuredCitations(raw["citations_structured"]),
	}

	if flag, ok := raw["urgency_flag"].(string); ok {
		candidate := entities.UrgencyFlag(strings.ToLower(strings.TrimSpace(flag)))
		if candidate.Valid() {
			out.UrgencyFlag = candidate
		}
	}
	return out
}

func normalizeHypotheses(raw any) []entities.DiagnosisHypothesis {
	out := []entities.DiagnosisHypothesis{}
	items, ok := raw.([]any)
	if !ok {
		return out
	}

	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		condition := firstNonEmptyString(obj, "condition", "diagnosis", "name")
		if condition == "" {
			continue
		}

		confidence, present := obj["confidence"]
		if !present {
			confidence = obj["score"]
		}

		out = append(out, entities.DiagnosisHypothesis{
			Condition:  condition,
			Confidence: clampUnit(toFloat(confidence)),
		})
	}
	return out
}

func normalizeStructuredCitations(raw any) []entities.StructuredCitation {
	out := []entities.StructuredCitation{}
	items, ok := raw.([]any)
	if !ok {
		return out
	}

	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		section := entities.CitationSection(toString(obj["section"]))
		if !section.Valid() {
			section = entities.CitationSectionGeneral
		}

		out = append(out, entities.StructuredCitation{
			Label:   toString(obj["label"]),
			URL:     toString(obj["url"]),
			Snippet: toString(obj["snippet"]),
			Section: section,
		})
	}
	return out
}

// normalizeStrings trims and drops empty entries; limit <= 0 means no cap.
func normalizeStrings(raw any, limit int) []string {
	out := []string{}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case string:
		items = []any{v}
	default:
		return out
	}

	for _, item := range items {
		s := strings.TrimSpace(toString(item))
		if s == "" {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func firstNonEmptyString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// toFloat returns 0 for anything that is not a finite-or-infinite number.
func toFloat(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if t {
			f = 1
		}
	default:
		return 0
	}
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func clampUnit(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
