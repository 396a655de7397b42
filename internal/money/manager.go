package money

import (
	"errors"
	"fmt"
	"io"
	"log"

	"marksix-lab/internal/domain"
)

// ErrInvalidParams marks malformed money parameters. It is logged by the
// manager and never propagated out of a run.
var ErrInvalidParams = errors.New("invalid money params")

// MinStake is the floor of a loss-recovery stake.
const MinStake = 1.0

// State of the manager.
type State string

// Manager states.
const (
	StateIdle State = "IDLE"
	StateOpen State = "OPEN"
)

// Settlement is the result of settling the open bet.
type Settlement struct {
	Bet         domain.Bet  // bet that was settled
	Odds        float64     // odds applied
	Actual      int         // observed attribute value
	Hit         bool        // actual == target
	Profit      float64     // signed capital change, unrounded
	CloseReason string      // empty when the bet stays open
	Next        *domain.Bet // bet pending for the next period, nil when closed
}

// Manager is the IDLE/OPEN stake sizing state machine. Not safe for
// concurrent use.
type Manager struct {
	rule     domain.MoneyRule
	override *domain.OddsOverride
	logger   *log.Logger

	baseBet      float64
	targetProfit float64
	invalid      error // malformed params found at construction
	oddsLogged   map[domain.Dimension]bool

	state   State
	bet     domain.Bet
	odds    float64
	accLoss float64
}

// NewManager creates a manager for rule. A zero base bet defaults to
// domain.DefaultBaseBet, a zero target profit to the base bet.
func NewManager(rule domain.MoneyRule, override *domain.OddsOverride, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	m := &Manager{
		rule:     rule,
		override: override,
		logger:   logger,
		state:    StateIdle,

		oddsLogged: make(map[domain.Dimension]bool),
	}

	m.baseBet = rule.Params.BaseBet
	if m.baseBet == 0 {
		m.baseBet = domain.DefaultBaseBet
	}
	m.targetProfit = rule.Params.TargetProfit
	if m.targetProfit == 0 {
		m.targetProfit = m.baseBet
	}

	m.invalid = validate(rule, m.baseBet)
	if m.invalid != nil {
		logger.Printf("money rule degraded to stop-loss: %v", m.invalid)
	}
	return m
}

func validate(rule domain.MoneyRule, baseBet float64) error {
	if baseBet < 0 {
		return fmt.Errorf("%w: baseBet %.2f is negative", ErrInvalidParams, baseBet)
	}
	switch rule.Mode {
	case "", domain.MoneyModeFixed, domain.MoneyModeLossRecovery:
	case domain.MoneyModeMartingale:
		if len(rule.Params.Multipliers) == 0 {
			return fmt.Errorf("%w: martingale without multipliers", ErrInvalidParams)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidParams, rule.Mode)
	}
	return nil
}

// State returns the current state.
func (m *Manager) State() State {
	return m.state
}

// Bet returns the open bet, if any.
func (m *Manager) Bet() (domain.Bet, bool) {
	return m.bet, m.state == StateOpen
}

// BaseBet returns the effective base stake.
func (m *Manager) BaseBet() float64 {
	return m.baseBet
}

// Open places a bet at base stake on dim:value. Refused when a bet is already
// open, the base stake is not positive, or the odds for dim cannot pay out.
func (m *Manager) Open(dim domain.Dimension, value int) (domain.Bet, bool) {
	if m.state == StateOpen {
		return domain.Bet{}, false
	}
	if m.baseBet <= 0 {
		return domain.Bet{}, false
	}

	odds, overridden := ResolveOdds(dim, m.override)
	if !m.oddsLogged[dim] {
		m.oddsLogged[dim] = true
		if overridden {
			m.logger.Printf("odds override %s=%.2f applied to %s", m.override.PlayType, odds, dim)
		}
		if odds <= 1 {
			m.logger.Printf("%v: odds %.2f for %s cannot pay out, bet refused", ErrInvalidParams, odds, dim)
		}
	}
	if odds <= 1 {
		return domain.Bet{}, false
	}

	m.state = StateOpen
	m.odds = odds
	m.accLoss = 0
	m.bet = domain.Bet{Dimension: dim, Value: value, Stake: m.baseBet}
	return m.bet, true
}

// Settle settles the open bet against the observed attribute value.
// Returns false when no bet is open.
func (m *Manager) Settle(actual int) (Settlement, bool) {
	if m.state != StateOpen {
		return Settlement{}, false
	}

	bet := m.bet
	s := Settlement{
		Bet:    bet,
		Odds:   m.odds,
		Actual: actual,
		Hit:    actual == bet.Value,
	}

	if s.Hit {
		s.Profit = bet.Stake * (m.odds - 1)
		s.CloseReason = domain.CloseReasonWin
		m.Reset()
		return s, true
	}

	s.Profit = -bet.Stake
	next, reason := m.afterLoss(bet)
	if reason != "" {
		s.CloseReason = reason
		m.Reset()
		return s, true
	}

	m.bet = next
	s.Next = &next
	return s, true
}

// afterLoss applies the policy to a lost bet. It returns the next bet, or a
// close reason when the position closes.
func (m *Manager) afterLoss(bet domain.Bet) (domain.Bet, string) {
	if m.invalid != nil {
		return domain.Bet{}, domain.CloseReasonInvalidParams
	}

	switch m.rule.Mode {
	case domain.MoneyModeMartingale:
		step := bet.Step + 1
		if step >= len(m.rule.Params.Multipliers) {
			return domain.Bet{}, domain.CloseReasonStopLoss
		}
		bet.Step = step
		bet.Stake = m.baseBet * m.rule.Params.Multipliers[step]
		if bet.Stake <= 0 {
			m.logger.Printf("%v: martingale multiplier %d yields stake %.2f", ErrInvalidParams, step, bet.Stake)
			return domain.Bet{}, domain.CloseReasonInvalidParams
		}
		return bet, ""

	case domain.MoneyModeLossRecovery:
		m.accLoss += bet.Stake
		required, err := NextRecoveryStake(m.accLoss, m.targetProfit, m.odds)
		if err != nil {
			m.logger.Printf("loss recovery closed: %v", err)
			return domain.Bet{}, domain.CloseReasonInvalidParams
		}
		if maxBet := m.rule.Params.MaxBet; maxBet > 0 && required > maxBet {
			return domain.Bet{}, domain.CloseReasonStopLoss
		}
		bet.Step++
		bet.Stake = required
		return bet, ""

	default:
		return domain.Bet{}, domain.CloseReasonLoss
	}
}

// Reset closes any open bet and clears step and loss accumulators.
func (m *Manager) Reset() {
	m.state = StateIdle
	m.bet = domain.Bet{}
	m.odds = 0
	m.accLoss = 0
}

// NextRecoveryStake returns the stake whose win clears accLoss and nets
// targetProfit at the given odds, floored at MinStake.
func NextRecoveryStake(accLoss, targetProfit, odds float64) (float64, error) {
	if odds <= 1 {
		return 0, fmt.Errorf("%w: odds %.4f", ErrInvalidParams, odds)
	}
	required := (accLoss + targetProfit) / (odds - 1)
	if required < MinStake {
		required = MinStake
	}
	return required, nil
}
