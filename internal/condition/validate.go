package condition

import (
	"errors"
	"fmt"

	"marksix-lab/internal/domain"
)

// Validation errors.
var (
	ErrUnknownToken     = errors.New("unknown value token")
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrUnknownType      = errors.New("unknown condition type")
	ErrUnknownOperator  = errors.New("unknown operator")
	ErrUnknownLogic     = errors.New("unknown logic operator")
)

// Validate checks a rule set strictly. Evaluation itself is lenient; callers
// that want to reject configs evaluation would silently default use this.
func Validate(rule domain.EntryRule) error {
	var errs []error

	switch rule.LogicOperator {
	case "", domain.LogicAnd, domain.LogicOr:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownLogic, rule.LogicOperator))
	}

	for i, c := range rule.Conditions {
		if !c.Dimension.Valid() {
			errs = append(errs, fmt.Errorf("condition %d: %w: %q", i, ErrUnknownDimension, c.Dimension))
		} else if _, ok := ResolveValue(c.Dimension, c.Value); !ok {
			errs = append(errs, fmt.Errorf("condition %d: %w: %q for %s", i, ErrUnknownToken, c.Value, c.Dimension))
		}

		switch c.Type {
		case domain.ConditionOmission, domain.ConditionWindowStat:
		default:
			errs = append(errs, fmt.Errorf("condition %d: %w: %q", i, ErrUnknownType, c.Type))
		}

		switch c.Operator {
		case domain.OperatorGTE, domain.OperatorLTE, domain.OperatorEQ, domain.OperatorGT, domain.OperatorLT:
		default:
			errs = append(errs, fmt.Errorf("condition %d: %w: %q", i, ErrUnknownOperator, c.Operator))
		}
	}

	return errors.Join(errs...)
}
