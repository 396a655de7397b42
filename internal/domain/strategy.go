package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ConditionType selects the indicator a condition reads.
type ConditionType string

// Condition type constants.
const (
	ConditionOmission   ConditionType = "omission"
	ConditionWindowStat ConditionType = "window_stat"
)

// Operator is a comparison operator applied to an indicator value.
type Operator string

// Operator constants.
const (
	OperatorGTE Operator = ">="
	OperatorLTE Operator = "<="
	OperatorEQ  Operator = "=="
	OperatorGT  Operator = ">"
	OperatorLT  Operator = "<"
)

// LogicOperator combines condition results.
type LogicOperator string

// Logic operator constants.
const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// MoneyMode selects the stake sizing policy.
type MoneyMode string

// Money mode constants.
const (
	MoneyModeFixed        MoneyMode = "fixed"
	MoneyModeMartingale   MoneyMode = "martingale"
	MoneyModeLossRecovery MoneyMode = "loss_recovery"
)

// DefaultBaseBet is used when a strategy omits money.params.baseBet.
const DefaultBaseBet = 10.0

// ValueToken is the human-facing value of a condition ("red", "big", "鼠", "7").
// JSON accepts both strings and numbers.
type ValueToken string

// UnmarshalJSON accepts a JSON string or number.
func (t *ValueToken) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = ValueToken(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("condition value must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*t = ValueToken(strconv.FormatInt(i, 10))
		return nil
	}
	*t = ValueToken(n.String())
	return nil
}

// Condition is one atomic entry comparison.
type Condition struct {
	Type      ConditionType `json:"type" yaml:"type"`
	Dimension Dimension     `json:"dimension" yaml:"dimension"`
	Value     ValueToken    `json:"value" yaml:"value"`
	Operator  Operator      `json:"operator" yaml:"operator"`
	Threshold float64       `json:"threshold" yaml:"threshold"`
	Window    int           `json:"window,omitempty" yaml:"window,omitempty"` // window_stat only, 0 means 100
}

// EntryRule is the entry condition set.
type EntryRule struct {
	Conditions    []Condition   `json:"conditions" yaml:"conditions"`
	LogicOperator LogicOperator `json:"logicOperator" yaml:"logicOperator"`
}

// MoneyParams holds stake sizing parameters.
type MoneyParams struct {
	BaseBet      float64   `json:"baseBet" yaml:"baseBet"`
	Multipliers  []float64 `json:"multipliers,omitempty" yaml:"multipliers,omitempty"`   // martingale table
	MaxBet       float64   `json:"maxBet,omitempty" yaml:"maxBet,omitempty"`             // loss_recovery cap, 0 = no cap
	TargetProfit float64   `json:"targetProfit,omitempty" yaml:"targetProfit,omitempty"` // loss_recovery, 0 = BaseBet
}

// MoneyRule is the money management policy.
type MoneyRule struct {
	Mode   MoneyMode   `json:"mode" yaml:"mode"`
	Params MoneyParams `json:"params" yaml:"params"`
}

// OddsOverride replaces the default odds for one play type.
type OddsOverride struct {
	PlayType string  `json:"playType" yaml:"playType"`
	Odds     float64 `json:"odds" yaml:"odds"`
}

// StrategyConfig is a complete backtest strategy.
// Two configs with the same canonical serialization replay identically.
type StrategyConfig struct {
	Entry EntryRule     `json:"entry" yaml:"entry"`
	Money MoneyRule     `json:"money" yaml:"money"`
	Odds  *OddsOverride `json:"odds,omitempty" yaml:"odds,omitempty"`
}
