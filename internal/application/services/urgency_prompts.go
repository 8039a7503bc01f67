package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iic3964/leyurgencia/backend/internal/domain/providers"
)

const urgencySystemPrompt = "Eres un asistente clínico-legal en Chile. Evalúa si corresponde aplicar la Ley de Urgencia " +
	"(riesgo de muerte o secuela funcional grave que requiera atención inmediata e impostergable). " +
	"Devuelve EXCLUSIVAMENTE JSON válido."

const urgencySchemaPrompt = `

Responde EXACTAMENTE con este esquema JSON:
{
  "urgency_flag": "applies|uncertain|does_not_apply",
  "urgency_confidence": 0.0,
  "diagnosis_hypotheses": [{"condition": "str", "confidence": 0.0}],
  "rationale": "str",
  "actions": ["str", "..."],
  "citations": ["str", "..."],
  "citations_structured": [
    {
      "label": "str",
      "url": "str",
      "snippet": "str",
      "section": "urgency|diagnosis_top|actions|general"
    }
  ]
}
`

// low temperature keeps verdicts stable across retries
const urgencyTemperature = 0.2

const urgencyUserPromptTemplate = `Caso clínico proporcionado por el usuario (texto libre):
"""%s"""

Instrucciones:
1) Extrae 2–5 hipótesis diagnósticas con confianza [0–1].
2) urgency_flag: "applies" si hay riesgo vital/secuela grave e inmediata;
    "does_not_apply" si no;
    "uncertain" si falta info.
3) Acciones inmediatas (p. ej., activar 131 / activar Ley de Urgencia) si corresponde.
4) Devuelve SOLO JSON válido del esquema indicado.
`

var sectionHeader = regexp.MustCompile(`={5}\s*([^=\r\n]+?)\s*={5}`)

// StripTriageSections removes every "===== TRIAGE =====" block (header
// matched case-insensitively) up to the next section header or the end of text.
func StripTriageSections(text string) string {
	headers := sectionHeader.FindAllStringSubmatchIndex(text, -1)
	if len(headers) == 0 {
		return strings.TrimSpace(text)
	}

	var b strings.Builder
	cursor := 0
	skipping := false
	for _, h := range headers {
		if skipping {
			cursor = h[0]
			skipping = false
		}
		if strings.EqualFold(strings.TrimSpace(text[h[2]:h[3]]), "TRIAGE") {
			b.WriteString(text[cursor:h[0]])
			skipping = true
		}
	}
	if !skipping {
		b.WriteString(text[cursor:])
	}
	return strings.TrimSpace(b.String())
}

// BuildUrgencyCompletionRequest builds the JSON-constrained request for an
// already cleansed case text.
func BuildUrgencyCompletionRequest(caseText string) providers.CompletionRequest {
	temperature := urgencyTemperature
	return providers.CompletionRequest{
		System:         urgencySystemPrompt + urgencySchemaPrompt,
		User:           fmt.Sprintf(urgencyUserPromptTemplate, caseText),
		ResponseFormat: providers.ResponseFormatJSON,
		Temperature:    &temperature,
	}
}

// UrgencyCase is a clinical case given either as free text or as the
// structured intake fields.
type UrgencyCase struct {
	Text          string `json:"text"`
	Symptoms      string `json:"symptoms"`
	Vitals        string `json:"vitals"`
	Age           string `json:"age"`
	Comorbidities string `json:"comorbidities"`
	Onset         string `json:"onset"`
}

// CaseText returns the text sent to the model. Free text wins over the
// structured fields; empty structured fields are omitted.
func (c UrgencyCase) CaseText() string {
	if text := strings.TrimSpace(c.Text); text != "" {
		return text
	}

	fields := []struct{ label, value string }{
		{"Síntomas", c.Symptoms},
		{"Signos vitales", c.Vitals},
		{"Edad", c.Age},
		{"Comorbilidades", c.Comorbidities},
		{"Tiempo de evolución", c.Onset},
	}

	var lines []string
	for _, f := range fields {
		if v := strings.TrimSpace(f.value); v != "" {
			lines = append(lines, "- "+f.label+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}
