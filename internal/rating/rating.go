package rating

// The rating engine is pure: identical inputs always produce identical
// assessments, score and confidence. Nothing in this package touches I/O.

// Signals carries the raw technical and fundamental inputs for one symbol.
// Pointer fields are optional; a nil signal contributes nothing.
type Signals struct {
	Price float64

	RSI         *float64
	MACD        *float64
	MACDSignal  *float64
	MA20        *float64
	MA50        *float64
	MA200       *float64
	BollUpper   *float64
	BollMiddle  *float64
	BollLower   *float64
	ADX         *float64
	PlusDI      *float64
	MinusDI     *float64
	StochasticK *float64
	StochasticD *float64
	CCI         *float64

	Supports    []float64
	Resistances []float64

	InsiderNetBuys   *int
	InstitutionalPct *float64
	SentimentScore   *float64 // -1 .. 1
	HasRevenue       bool
}

// PreliminaryRating is the deterministic aggregate of all signals.
type PreliminaryRating struct {
	Score       float64               `json:"score"`      // 0-100
	Confidence  int                   `json:"confidence"` // 1-10
	TechScore   float64               `json:"tech_score"`
	FundScore   float64               `json:"fund_score"`
	Notes       []string              `json:"notes"`
	Assessments map[string]Assessment `json:"assessments"`
}

// Scoring ceilings. Technical signals fill at most TechCeiling of the final
// 0-100 score, fundamentals the remainder. Exported so the strategy file can
// be cross-checked at startup.
const (
	TechCeiling = 70.0
	FundCeiling = 30.0

	// Raw point budget per side before rescaling.
	techRawMax = 80.0
	fundRawMax = 30.0
)

// GeneratePreliminaryRating interprets every available signal and combines
// them into a normalized 0-100 score with a 1-10 confidence estimate.
func GeneratePreliminaryRating(s Signals) PreliminaryRating {
	assessments := make(map[string]Assessment)
	var notes []string

	var techRaw float64

	record := func(name string, a Assessment) {
		assessments[name] = a
		if a.Strength > 0 || a.Status != StatusNeutral {
			notes = append(notes, a.Description)
		}
	}

	// Each technical indicator contributes 0-10 raw points: 5 when neutral,
	// shifted by direction * strength * 2.5.
	techPoints := func(a Assessment) float64 {
		p := 5.0 + float64(direction(a.Status))*float64(a.Strength)*2.5
		if p < 0 {
			return 0
		}
		if p > 10 {
			return 10
		}
		return p
	}

	if s.RSI != nil {
		a := InterpretRSI(*s.RSI)
		record("rsi", a)
		techRaw += techPoints(a)
	}
	if s.MACD != nil && s.MACDSignal != nil {
		a := InterpretMACD(*s.MACD, *s.MACDSignal)
		record("macd", a)
		techRaw += techPoints(a)
	}
	if s.MA20 != nil || s.MA50 != nil || s.MA200 != nil {
		a := InterpretMovingAverages(s.Price, deref(s.MA20), deref(s.MA50), deref(s.MA200))
		record("moving_averages", a)
		techRaw += techPoints(a)
	}
	if s.BollUpper != nil && s.BollLower != nil {
		a := InterpretBollinger(s.Price, *s.BollUpper, deref(s.BollMiddle), *s.BollLower)
		record("bollinger", a)
		techRaw += techPoints(a)
	}
	if s.ADX != nil {
		a := InterpretADX(*s.ADX, deref(s.PlusDI), deref(s.MinusDI))
		record("adx", a)
		techRaw += techPoints(a)
	}
	if s.StochasticK != nil && s.StochasticD != nil {
		a := InterpretStochastic(*s.StochasticK, *s.StochasticD)
		record("stochastic", a)
		techRaw += techPoints(a)
	}
	if s.CCI != nil {
		a := InterpretCCI(*s.CCI)
		record("cci", a)
		techRaw += techPoints(a)
	}
	if len(s.Supports) > 0 || len(s.Resistances) > 0 {
		a := InterpretSupportResistance(s.Price, s.Supports, s.Resistances)
		record("support_resistance", a)
		techRaw += techPoints(a)
	}

	var fundRaw float64

	if s.InsiderNetBuys != nil {
		a := InterpretInsiderActivity(*s.InsiderNetBuys)
		record("insider_activity", a)
		fundRaw += 5.0 + float64(direction(a.Status))*float64(a.Strength)*2.5
	}
	if s.InstitutionalPct != nil {
		a := InterpretInstitutionalHoldings(*s.InstitutionalPct)
		record("institutional_holdings", a)
		fundRaw += 2.5 * float64(a.Strength+1)
	}
	if s.SentimentScore != nil {
		sc := clampFloat(*s.SentimentScore, -1, 1)
		fundRaw += 2.5 + sc*2.5
		if sc > 0.2 {
			notes = append(notes, "Social sentiment is positive")
		} else if sc < -0.2 {
			notes = append(notes, "Social sentiment is negative")
		}
	}
	if s.HasRevenue {
		fundRaw += 5
		notes = append(notes, "Company reports revenue")
	}

	if fundRaw < 0 {
		fundRaw = 0
	}

	// Cap raw points, then rescale each side to its share of the 0-100 total.
	techScore := clampFloat(techRaw, 0, techRawMax) / techRawMax * TechCeiling
	fundScore := clampFloat(fundRaw, 0, fundRawMax) / fundRawMax * FundCeiling

	total := clampFloat(techScore+fundScore, 0, 100)

	// Confidence is a proxy for available signal, not a statistical interval.
	confidence := len(notes) / 2
	if confidence < 1 {
		confidence = 1
	}
	if confidence > 10 {
		confidence = 10
	}

	return PreliminaryRating{
		Score:       total,
		Confidence:  confidence,
		TechScore:   techScore,
		FundScore:   fundScore,
		Notes:       notes,
		Assessments: assessments,
	}
}

// direction maps a status to its score direction: +1 bullish, -1 bearish.
// Overbought reads as a bearish warning, oversold as a bullish opportunity.
func direction(status string) int {
	switch status {
	case StatusBullish, StatusUptrend, StatusOversold, StatusNearSupport, StatusAccumulation, StatusHighOwnership:
		return 1
	case StatusBearish, StatusDowntrend, StatusOverbought, StatusNearResist, StatusDistribution:
		return -1
	default:
		return 0
	}
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
