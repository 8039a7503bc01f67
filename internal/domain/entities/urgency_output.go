package entities

// UrgencyFlag is the three-way AI verdict on the Ley de Urgencia
type UrgencyFlag string

const (
	UrgencyFlagApplies      UrgencyFlag = "applies"
	UrgencyFlagUncertain    UrgencyFlag = "uncertain"
	UrgencyFlagDoesNotApply UrgencyFlag = "does_not_apply"
)

// Valid reports whether f is one of the known flags
func (f UrgencyFlag) Valid() bool {
	switch f {
	case UrgencyFlagApplies, UrgencyFlagUncertain, UrgencyFlagDoesNotApply:
		return true
	}
	return false
}

// CitationSection tags which part of the judgement a structured citation supports
type CitationSection string

const (
	CitationSectionUrgency      CitationSection = "urgency"
	CitationSectionDiagnosisTop CitationSection = "diagnosis_top"
	CitationSectionActions      CitationSection = "actions"
	CitationSectionGeneral      CitationSection = "general"
)

// Valid reports whether s is one of the known sections
func (s CitationSection) Valid() bool {
	switch s {
	case CitationSectionUrgency, CitationSectionDiagnosisTop, CitationSectionActions, CitationSectionGeneral:
		return true
	}
	return false
}

// MaxCitations caps the plain citation list of an UrgencyOutput
const MaxCitations = 10

// DiagnosisHypothesis is one differential diagnosis proposed by the model
type DiagnosisHypothesis struct {
	Condition  string  `json:"condition"`
	Confidence float64 `json:"confidence"`
}

// StructuredCitation references a source backing part of the judgement
type StructuredCitation struct {
	Label   string          `json:"label"`
	URL     string          `json:"url"`
	Snippet string          `json:"snippet"`
	Section CitationSection `json:"section"`
}

// UrgencyOutput is the structured judgement produced by the reasoning service.
// After coercion every slice is non-nil and every numeric field lies in [0,1].
type UrgencyOutput struct {
	UrgencyFlag         UrgencyFlag           `json:"urgency_flag"`
	UrgencyConfidence   float64               `json:"urgency_confidence"`
	DiagnosisHypotheses []DiagnosisHypothesis `json:"diagnosis_hypotheses"`
	Rationale           string                `json:"rationale"`
	Actions             []string              `json:"actions"`
	Citations           []string              `json:"citations"`
	CitationsStructured []StructuredCitation  `json:"citations_structured"`
}

// Applies reports whether the model judged the law applicable
func (o *UrgencyOutput) Applies() bool {
	return o != nil && o.UrgencyFlag == UrgencyFlagApplies
}

// PlaceholderUrgencyOutput is returned when live model access is disabled
func PlaceholderUrgencyOutput() *UrgencyOutput {
	return &UrgencyOutput{
		UrgencyFlag:       UrgencyFlagUncertain,
		UrgencyConfidence: 0.0,
		DiagnosisHypotheses: []DiagnosisHypothesis{
			{Condition: "Evaluación simulada (IA deshabilitada)", Confidence: 0.0},
		},
		Rationale:           "Evaluación automática deshabilitada: no hay credenciales configuradas para el modelo de lenguaje. Se requiere revisión médica.",
		Actions:             []string{},
		Citations:           []string{},
		CitationsStructured: []StructuredCitation{},
	}
}
