package condition

import (
	"fmt"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/indicator"
)

// Result is the explanation of one evaluated condition.
type Result struct {
	Position  int                  `json:"position"` // declaration order
	Type      domain.ConditionType `json:"type"`
	Dimension domain.Dimension     `json:"dimension"`
	Token     domain.ValueToken    `json:"token"`
	Value     int                  `json:"value"`
	Column    string               `json:"column"`
	Actual    int                  `json:"actual"`
	Threshold float64              `json:"threshold"`
	Operator  domain.Operator      `json:"operator"`
	Passed    bool                 `json:"passed"`
	Resolved  bool                 `json:"resolved"`  // false when the indicator column is absent
	Defaulted bool                 `json:"defaulted"` // token unknown, value defaulted to 0
	Desc      string               `json:"desc,omitempty"`
}

// Evaluation is the outcome of a rule set at one record.
type Evaluation struct {
	Triggered     bool                 `json:"triggered"`
	LogicOperator domain.LogicOperator `json:"logic_operator"`
	Conditions    []Result             `json:"conditions"`
}

// Evaluator evaluates entry rules against an indicator table.
type Evaluator struct {
	table *indicator.Table
}

// NewEvaluator creates an evaluator over table.
func NewEvaluator(table *indicator.Table) *Evaluator {
	return &Evaluator{table: table}
}

// Evaluate evaluates every condition of rule at record i and combines them.
// An empty condition set never triggers. Unknown logic operators combine with AND.
func (e *Evaluator) Evaluate(rule domain.EntryRule, i int) Evaluation {
	logic := rule.LogicOperator
	if logic != domain.LogicOr {
		logic = domain.LogicAnd
	}

	ev := Evaluation{
		LogicOperator: logic,
		Conditions:    make([]Result, 0, len(rule.Conditions)),
	}
	if len(rule.Conditions) == 0 {
		return ev
	}

	triggered := logic == domain.LogicAnd
	for pos, c := range rule.Conditions {
		r := e.EvaluateCondition(c, i)
		r.Position = pos
		ev.Conditions = append(ev.Conditions, r)

		if logic == domain.LogicAnd {
			triggered = triggered && r.Passed
		} else {
			triggered = triggered || r.Passed
		}
	}
	ev.Triggered = triggered
	return ev
}

// EvaluateCondition evaluates a single condition at record i.
// It never fails: gaps are reported as unresolved results.
func (e *Evaluator) EvaluateCondition(c domain.Condition, i int) Result {
	r := Result{
		Type:      c.Type,
		Dimension: c.Dimension,
		Token:     c.Value,
		Threshold: c.Threshold,
		Operator:  c.Operator,
	}

	if !c.Dimension.Valid() {
		r.Desc = fmt.Sprintf("unresolved condition: unknown dimension %q", c.Dimension)
		return r
	}

	value, ok := ResolveValue(c.Dimension, c.Value)
	r.Value = value
	r.Defaulted = !ok

	key, ok := columnKey(c, value)
	if !ok {
		r.Desc = fmt.Sprintf("unresolved condition: unknown type %q", c.Type)
		return r
	}
	r.Column = key.Column()

	actual, ok := e.table.Value(key, i)
	if !ok {
		r.Desc = fmt.Sprintf("unresolved condition: missing column %s", r.Column)
		return r
	}
	r.Resolved = true
	r.Actual = actual
	r.Passed = Compare(float64(actual), c.Operator, c.Threshold)
	return r
}

func columnKey(c domain.Condition, value int) (indicator.Key, bool) {
	switch c.Type {
	case domain.ConditionOmission:
		return indicator.OmissionKey(c.Dimension, value), true
	case domain.ConditionWindowStat:
		window := c.Window
		if window == 0 {
			window = indicator.Window
		}
		return indicator.FrequencyKey(c.Dimension, value, window), true
	default:
		return indicator.Key{}, false
	}
}

// Compare applies op to actual and threshold. Unknown operators never pass.
func Compare(actual float64, op domain.Operator, threshold float64) bool {
	switch op {
	case domain.OperatorGTE:
		return actual >= threshold
	case domain.OperatorLTE:
		return actual <= threshold
	case domain.OperatorEQ:
		return actual == threshold
	case domain.OperatorGT:
		return actual > threshold
	case domain.OperatorLT:
		return actual < threshold
	default:
		return false
	}
}
