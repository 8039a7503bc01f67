package evaluation

// Confusion counts binary outcomes for "the law applies" as the positive class.
type Confusion struct {
	TruePositive  int
	FalsePositive int
	FalseNegative int
	TrueNegative  int
}

// Add records one prediction against its label.
func (c *Confusion) Add(expected, predicted bool) {
	switch {
	case expected && predicted:
		c.TruePositive++
	case !expected && predicted:
		c.FalsePositive++
	case expected && !predicted:
		c.FalseNegative++
	default:
		c.TrueNegative++
	}
}

// Precision returns TP/(TP+FP), or 0 when nothing was predicted positive.
func (c Confusion) Precision() float64 {
	return ratio(c.TruePositive, c.TruePositive+c.FalsePositive)
}

// Recall returns TP/(TP+FN), or 0 when there are no positive labels.
func (c Confusion) Recall() float64 {
	return ratio(c.TruePositive, c.TruePositive+c.FalseNegative)
}

// F1 is the harmonic mean of precision and recall.
func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0.0
	}
	return 2 * p * r / (p + r)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0.0
	}
	return float64(num) / float64(den)
}
