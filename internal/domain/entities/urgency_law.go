package entities

// ReconcileUrgencyLaw derives whether the Ley de Urgencia applies to an
// episode from the AI verdict and the two human reviews.
//
// The resident approval ratifies (true) or inverts (false) the AI verdict.
// A supervisor rejection inverts the resident-adjusted verdict once more;
// supervisor approval or absence leaves it untouched. The result is nil
// while either the AI verdict or the resident review is missing.
func ReconcileUrgencyLaw(aiResult, medicApproved, supervisorApproved *bool) *bool {
	if aiResult == nil || medicApproved == nil {
		return nil
	}

	verdict := *aiResult
	if !*medicApproved {
		verdict = !verdict
	}
	if supervisorApproved != nil && !*supervisorApproved {
		verdict = !verdict
	}
	return &verdict
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
