package contracts

import (
	"time"
)

// RequestState tracks a WorkRequest through the pipeline.
type RequestState string

const (
	StateQueued     RequestState = "queued"
	StateGenerating RequestState = "generating"
	StateGenerated  RequestState = "generated"
	StateConsulting RequestState = "consulting"
	StateCompleted  RequestState = "completed"
	StateFailed     RequestState = "failed"
)

// AnalysisMode selects the prompt and scoring variant.
type AnalysisMode string

const (
	// ModeBuy evaluates whether a position should be opened.
	ModeBuy AnalysisMode = "buy"
	// ModeHold evaluates an existing position; selected when a purchase
	// price is present on the request.
	ModeHold AnalysisMode = "hold"
)

// WorkRequest is a queued unit of work identifying one symbol to analyze.
type WorkRequest struct {
	Symbol        string       `json:"symbol"`
	RequestID     string       `json:"request_id"`
	RequestedBy   string       `json:"requested_by"`
	Priority      bool         `json:"priority"`
	PurchasePrice *float64     `json:"purchase_price,omitempty"`
	State         RequestState `json:"state"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Mode returns the analysis variant implied by the request.
func (r *WorkRequest) Mode() AnalysisMode {
	if r.PurchasePrice != nil {
		return ModeHold
	}
	return ModeBuy
}

// ReportArtifact is the generated report handed to the reasoning backend.
// Produced once per WorkRequest; consumed exactly once by consultation.
type ReportArtifact struct {
	Symbol        string    `json:"symbol"`
	ReportPath    string    `json:"report_path"`
	RequestID     string    `json:"request_id"`
	RequestedBy   string    `json:"requested_by"`
	PurchasePrice *float64  `json:"purchase_price,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// Mode returns the analysis variant implied by the artifact.
func (a *ReportArtifact) Mode() AnalysisMode {
	if a.PurchasePrice != nil {
		return ModeHold
	}
	return ModeBuy
}

// EntryStrategy describes when and at what price to enter a position.
type EntryStrategy struct {
	Price  string `json:"price"`
	Timing string `json:"timing"`
}

// ExitStrategy describes profit target, stop loss and time horizon.
type ExitStrategy struct {
	ProfitTarget string `json:"profit_target"`
	StopLoss     string `json:"stop_loss"`
	TimeHorizon  string `json:"time_horizon"`
}

// ConsultationResult is the terminal artifact of the pipeline.
type ConsultationResult struct {
	Symbol      string        `json:"symbol"`
	Rating      float64       `json:"rating"`     // 0-100
	Confidence  int           `json:"confidence"` // 1-10
	Reasoning   string        `json:"reasoning"`
	Entry       EntryStrategy `json:"entry_strategy"`
	Exit        ExitStrategy  `json:"exit_strategy"`
	Action      string        `json:"action,omitempty"` // hold mode: hold | sell
	Mode        AnalysisMode  `json:"mode"`
	RequestID   string        `json:"request_id"`
	RequestedBy string        `json:"requested_by"`
	CompletedAt time.Time     `json:"completed_at"`

	// Err carries a stage failure as data instead of a dropped item.
	Err string `json:"error,omitempty"`
}

// Failed reports whether the pipeline produced an error payload for this
// request instead of a usable result.
func (r *ConsultationResult) Failed() bool {
	return r.Err != ""
}

// Recommendation is the durable projection of a high-quality result,
// written at most once per (symbol, date).
type Recommendation struct {
	Symbol        string    `json:"symbol"`
	RecommendDate time.Time `json:"recommend_date"`
	Rating        float64   `json:"rating"`
	Confidence    int       `json:"confidence"`
	EntryPrice    string    `json:"entry_price"`
	EntryTiming   string    `json:"entry_timing"`
	ProfitTarget  string    `json:"profit_target"`
	StopLoss      string    `json:"stop_loss"`
	TimeHorizon   string    `json:"time_horizon"`
	Reasoning     string    `json:"reasoning"`
	CreatedAt     time.Time `json:"created_at"`
}
