package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/coinledger-backend/internal/users"
	"github.com/angelmondragon/coinledger-backend/pkg/db"
	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coinledger-backend/pkg/errors"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/metrics"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox/payloads"
)

const defaultMaxCASRetries = 5

// errBalanceMoved signals a lost compare-and-swap; the whole unit is retried.
var errBalanceMoved = errors.New("balance changed concurrently")

type planResolver interface {
	Get(ctx context.Context, id string) (*models.CoinPlan, error)
}

// DeltaInput is one balance-affecting event. Coin is a magnitude.
type DeltaInput struct {
	UserID         string
	Coin           int64
	IsIncome       bool
	Type           enums.CoinType
	Dollar         decimal.Decimal
	PaymentGateway enums.PaymentGateway
	PlanID         *string
	Source         string
}

// DeltaResult is the committed entry and the balance it produced.
type DeltaResult struct {
	Entry   models.LedgerEntry
	Balance int64
}

// SpendInput debits coins for a feature; the dollar value is derived.
type SpendInput struct {
	UserID         string
	Coin           int64
	Type           enums.CoinType
	PaymentGateway enums.PaymentGateway
}

// PurchaseInput credits a catalogue plan.
type PurchaseInput struct {
	UserID         string
	PlanID         string
	PaymentGateway enums.PaymentGateway
}

// MutatorParams wires a Mutator.
type MutatorParams struct {
	Tx              db.TxRunner
	Entries         *Repository
	Users           *users.Repository
	Plans           planResolver
	Outbox          outbox.Emitter
	Metrics         *metrics.LedgerMetrics
	Logger          *logger.Logger
	SpendDollarRate string
	MaxCASRetries   int
	Now             func() time.Time
}

// Mutator applies signed deltas to a user's cached balance and appends the
// matching ledger entry in one transaction.
type Mutator struct {
	tx         db.TxRunner
	entries    *Repository
	users      *users.Repository
	plans      planResolver
	outbox     outbox.Emitter
	metrics    *metrics.LedgerMetrics
	logg       *logger.Logger
	spendRate  decimal.Decimal
	maxRetries int
	now        func() time.Time

	// beforeSwap runs inside the unit between the lock and the balance swap.
	beforeSwap func(tx *gorm.DB, userID string) error
}

func NewMutator(p MutatorParams) (*Mutator, error) {
	switch {
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Entries == nil:
		return nil, fmt.Errorf("ledger repository required")
	case p.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}

	rate, err := decimal.NewFromString(strings.TrimSpace(p.SpendDollarRate))
	if err != nil || rate.IsNegative() {
		return nil, fmt.Errorf("invalid spend dollar rate %q", p.SpendDollarRate)
	}
	retries := p.MaxCASRetries
	if retries <= 0 {
		retries = defaultMaxCASRetries
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}

	return &Mutator{
		tx:         p.Tx,
		entries:    p.Entries,
		users:      p.Users,
		plans:      p.Plans,
		outbox:     p.Outbox,
		metrics:    p.Metrics,
		logg:       p.Logger,
		spendRate:  rate,
		maxRetries: retries,
		now:        now,
	}, nil
}

func (in DeltaInput) validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return pkgerrors.MissingField("userId")
	}
	if in.Coin < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coin must be non-negative").
			WithDetails(map[string]string{"coin": "non_negative"})
	}
	if !in.Type.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown coin type %d", int(in.Type)).
			WithDetails(map[string]string{"type": "invalid"})
	}
	if in.Dollar.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "dollar must be non-negative").
			WithDetails(map[string]string{"dollar": "non_negative"})
	}
	if !in.PaymentGateway.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown payment gateway %d", int(in.PaymentGateway)).
			WithDetails(map[string]string{"paymentGateway": "invalid"})
	}
	return nil
}

// ApplyDelta debits or credits the user. Debits larger than the balance fail
// with INSUFFICIENT_FUNDS before anything is written. The new balance is never
// below zero: max(0, current-coin) is the floor if the check is ever bypassed.
func (m *Mutator) ApplyDelta(ctx context.Context, in DeltaInput) (*DeltaResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	direction := metrics.DirectionDebit
	if in.IsIncome {
		direction = metrics.DirectionCredit
	}
	ctx = m.logg.WithUserID(ctx, in.UserID)
	ctx = m.logg.WithDirection(ctx, direction)
	ctx = m.logg.WithCategory(ctx, in.Type.Key())
	ctx = m.logg.WithField(ctx, "coin", in.Coin)

	var (
		result *DeltaResult
		err    error
	)
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		result, err = m.applyOnce(ctx, in)
		if !errors.Is(err, errBalanceMoved) {
			break
		}
		m.metrics.IncCASRetry()
		m.logg.Debug(m.logg.WithField(ctx, "attempt", attempt+1), "balance moved during mutation, retrying")
	}

	switch {
	case err == nil:
		m.metrics.ObserveMutation(direction, metrics.ResultOK, in.Type.Key(), in.Coin)
		logCtx := m.logg.WithField(m.logg.WithEntryID(ctx, result.Entry.ID), "balance", result.Balance)
		m.logg.Info(logCtx, "ledger entry applied")
		return result, nil
	case errors.Is(err, errBalanceMoved):
		m.metrics.ObserveMutation(direction, metrics.ResultError, in.Type.Key(), 0)
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "balance is being updated, try again")
	case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds):
		m.metrics.ObserveMutation(direction, metrics.ResultInsufficient, in.Type.Key(), 0)
		return nil, err
	default:
		m.metrics.ObserveMutation(direction, metrics.ResultError, in.Type.Key(), 0)
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		m.logg.Error(ctx, "ledger mutation failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "apply ledger entry")
	}
}

func (m *Mutator) applyOnce(ctx context.Context, in DeltaInput) (*DeltaResult, error) {
	var result DeltaResult
	err := m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := m.users.WithTx(tx)

		user, err := userRepo.LockByID(ctx, in.UserID)
		if err != nil {
			if db.IsRecordNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return err
		}

		if !in.IsIncome && user.Coin < in.Coin {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient coins").
				WithDetails(map[string]int64{"balance": user.Coin, "requested": in.Coin})
		}

		next := user.Coin + in.Coin
		if !in.IsIncome {
			next = max(0, user.Coin-in.Coin)
		}

		at := m.now().UTC().Truncate(time.Second)
		var enrollment *users.PlanEnrollment
		if in.IsIncome && in.Type == enums.CoinTypePurchase {
			enrollment = &users.PlanEnrollment{StartedAt: at, Purchased: in.Coin}
			if in.PlanID != nil {
				enrollment.PlanID = *in.PlanID
			}
		}

		if m.beforeSwap != nil {
			if err := m.beforeSwap(tx, user.ID); err != nil {
				return err
			}
		}
		swapped, err := userRepo.SwapBalance(ctx, user.ID, user.Coin, next, enrollment)
		if err != nil {
			return err
		}
		if !swapped {
			return errBalanceMoved
		}

		entry := models.LedgerEntry{
			UserID:         user.ID,
			PlanID:         in.PlanID,
			PaymentGateway: in.PaymentGateway,
			Date:           at,
			IsIncome:       in.IsIncome,
			Coin:           in.Coin,
			Dollar:         in.Dollar.Round(2),
			Type:           in.Type,
		}
		if err := m.entries.WithTx(tx).Create(ctx, &entry); err != nil {
			return err
		}

		if err := m.emitEntry(ctx, tx, entry, next, in.Source); err != nil {
			return err
		}

		result = DeltaResult{Entry: entry, Balance: next}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (m *Mutator) emitEntry(ctx context.Context, tx *gorm.DB, entry models.LedgerEntry, balance int64, source string) error {
	eventType := enums.EventCoinDebited
	if entry.IsIncome {
		eventType = enums.EventCoinCredited
	}
	return m.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateLedgerEntry,
		AggregateID:   strconv.FormatUint(entry.ID, 10),
		OccurredAt:    entry.Date,
		Actor:         &outbox.ActorRef{UserID: entry.UserID, Source: source},
		Data: payloads.LedgerEntryEvent{
			EntryID:        entry.ID,
			UserID:         entry.UserID,
			Type:           int(entry.Type),
			TypeLabel:      entry.Type.Label(),
			IsIncome:       entry.IsIncome,
			Coin:           entry.Coin,
			Dollar:         entry.Dollar.StringFixed(2),
			PaymentGateway: int(entry.PaymentGateway),
			PlanID:         entry.PlanID,
			BalanceAfter:   balance,
			Date:           entry.Date,
		},
	})
}

// Create records an arbitrary entry. A referenced plan must exist.
func (m *Mutator) Create(ctx context.Context, in DeltaInput) (*DeltaResult, error) {
	if in.PlanID != nil && *in.PlanID != "" {
		if m.plans == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan lookup not configured")
		}
		if _, err := m.plans.Get(ctx, *in.PlanID); err != nil {
			return nil, err
		}
	} else {
		in.PlanID = nil
	}
	if in.Source == "" {
		in.Source = "admin"
	}
	return m.ApplyDelta(ctx, in)
}

// Spend debits coins for a feature, pricing them at the configured dollar rate.
func (m *Mutator) Spend(ctx context.Context, in SpendInput) (*DeltaResult, error) {
	if in.Coin <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coin must be positive").
			WithDetails(map[string]string{"coin": "positive"})
	}
	return m.ApplyDelta(ctx, DeltaInput{
		UserID:         in.UserID,
		Coin:           in.Coin,
		IsIncome:       false,
		Type:           in.Type,
		Dollar:         m.spendRate.Mul(decimal.NewFromInt(in.Coin)),
		PaymentGateway: in.PaymentGateway,
		Source:         "spend",
	})
}

// PurchasePlan credits coin+extraCoin of an active plan and enrolls the user in it.
func (m *Mutator) PurchasePlan(ctx context.Context, in PurchaseInput) (*DeltaResult, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, pkgerrors.MissingField("userId")
	}
	if m.plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan lookup not configured")
	}
	plan, err := m.plans.Get(ctx, in.PlanID)
	if err != nil {
		return nil, err
	}
	planID := plan.ID
	return m.ApplyDelta(ctx, DeltaInput{
		UserID:         in.UserID,
		Coin:           plan.TotalCoins(),
		IsIncome:       true,
		Type:           enums.CoinTypePurchase,
		Dollar:         plan.Dollar,
		PaymentGateway: in.PaymentGateway,
		PlanID:         &planID,
		Source:         "purchase",
	})
}
