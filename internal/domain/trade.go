package domain

import "fmt"

// Bet is the single open position of a run.
type Bet struct {
	Dimension Dimension // target dimension
	Value     int       // target attribute value
	Stake     float64   // amount staked for the next settlement
	Step      int       // martingale / recovery step, 0 on open
}

// Target returns the display target "dimension:value".
func (b Bet) Target() string {
	return fmt.Sprintf("%s:%d", b.Dimension, b.Value)
}

// TradeResult is one settled bet.
type TradeResult struct {
	TradeID     string    `json:"trade_id"`     // deterministic hash
	Period      string    `json:"period"`       // period the bet was settled against
	Dimension   Dimension `json:"dimension"`    // target dimension
	Value       int       `json:"value"`        // target value
	Actual      int       `json:"actual"`       // observed attribute value
	Hit         bool      `json:"is_hit"`       // actual == value
	Amount      float64   `json:"amount"`       // stake
	Odds        float64   `json:"odds"`         // odds applied (stake included)
	Profit      float64   `json:"profit"`       // rounded to cents
	Step        int       `json:"step"`         // step of the settled stake
	CloseReason string    `json:"close_reason"` // empty when the bet carries over
}

// Close reason codes
const (
	CloseReasonWin           = "WIN"
	CloseReasonLoss          = "LOSS"
	CloseReasonStopLoss      = "STOP_LOSS"
	CloseReasonInvalidParams = "INVALID_PARAMS"
)

// BetView is the pending bet recorded in a period snapshot.
type BetView struct {
	Target    string    `json:"target"`    // "dimension:value"
	Dimension Dimension `json:"dimension"` // target dimension
	Value     int       `json:"value"`     // target value
	Amount    float64   `json:"amount"`    // stake
	Step      int       `json:"step"`      // money manager step
	Period    string    `json:"period"`    // period the bet settles against, empty past the last record
}
