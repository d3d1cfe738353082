/*
Package checkout implements the checkout transaction engine.

PURPOSE:
  Composes pricing, loyalty and funds into a single all-or-nothing commit:
  price the cart, apply a loyalty discount, verify funds, then debit,
  redeem, decrement stock, accrue points and issue a receipt.

STATE MACHINE:
  Idle -> Totaling -> DiscountApplied -> FundsChecked -> Committed
  Any checked step may go to Aborted instead. See state.go.

TWO-PHASE COMMIT:
  Phase 1 (Totaling .. FundsChecked) reads only. The discount is a quote;
  no point is deducted and no balance is touched. A checkout that fails
  the funds check leaves cash, card and points exactly as they were.

  Phase 2 (commit) runs as a saga. Every forward step registers its
  compensation:
    debit funds        <- refund
    redeem points      <- restore points
    decrement stock    <- restock
    accrue points      <- revoke points
  If a later step fails, completed steps are compensated in reverse order
  and the checkout aborts. A compensation that itself fails is reported as
  a PartialCommitWarning on the result. The receipt, the journal movements
  and (for CheckoutAccount) the account are then persisted together, in
  one transaction when the store supports it.

REDEMPTION POLICY:
  Asking for more points than the account holds is not an error: the
  request is reset to zero and the checkout proceeds at full price. A
  discount larger than the total is clamped to the total, and only the
  points needed to cover it are redeemed.

CONCURRENCY:
  A per-account mutex is held for the whole attempt, so two checkouts on
  one account can never both pass the funds check against the same
  balance. Stock is protected by the store's atomic compare-and-decrement.

RESULTS:
  Business failures are not Go errors: they come back as Result.Abort with
  an AbortReason. The error return is reserved for infrastructure failures
  (a store that cannot be read or written).

SEE ALSO:
  - cart.go:    Cart and cart operations
  - preview.go: Side-effect-free funds preview
  - suggest.go: Which items to put back when funds fall short
*/
package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/checkout-engine/commerce"
	"github.com/warp/checkout-engine/funds"
	"github.com/warp/checkout-engine/loyalty"
	"github.com/warp/checkout-engine/pricing"
	"github.com/warp/checkout-engine/receipt"
)

// =============================================================================
// ENGINE
// =============================================================================

// Observer is told about every finished checkout attempt.
type Observer interface {
	ObserveCheckout(res Result, elapsed time.Duration)
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithCalculator(c *pricing.Calculator) Option {
	return func(e *Engine) { e.calc = c }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// Engine runs checkouts against a store. Safe for concurrent use.
type Engine struct {
	store    commerce.Store
	calc     *pricing.Calculator
	builder  *receipt.Builder
	logger   *zap.Logger
	observer Observer
	now      func() time.Time
	locks    accountLocks
}

func NewEngine(store commerce.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		calc:   pricing.NewDefaultCalculator(),
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.builder = &receipt.Builder{Calculator: e.calc, Clock: e.now}
	return e
}

// Calculator returns the calculator the engine prices with.
func (e *Engine) Calculator() *pricing.Calculator { return e.calc }

// =============================================================================
// ENTRY POINTS
// =============================================================================

// ProcessCheckout checks out cart against a caller-owned account. On commit
// acct reflects the debit and points change, the receipt is in the
// purchase history and the cart is empty. On abort acct and cart are
// unchanged.
func (e *Engine) ProcessCheckout(
	ctx context.Context,
	acct *commerce.Account,
	cart *Cart,
	method commerce.PaymentMethod,
	pointsToRedeem commerce.Points,
) (Result, error) {
	if acct == nil {
		return e.newSession("").abort(&commerce.NotFoundError{Kind: "account"}), nil
	}
	unlock := e.locks.lock(acct.ID)
	defer unlock()
	return e.process(ctx, acct, cart, method, pointsToRedeem, false)
}

// CheckoutAccount loads the account from the store, checks out, and saves
// the account together with the receipt on commit. Load and save happen
// under the account lock.
func (e *Engine) CheckoutAccount(
	ctx context.Context,
	accountID commerce.AccountID,
	cart *Cart,
	method commerce.PaymentMethod,
	pointsToRedeem commerce.Points,
) (Result, error) {
	unlock := e.locks.lock(accountID)
	defer unlock()

	acct, err := e.store.Account(ctx, accountID)
	if err != nil {
		s := e.newSession(accountID)
		if commerce.IsNotFound(err) {
			return s.abort(err), nil
		}
		return s.fail(fmt.Errorf("failed to load account %s: %w", accountID, err))
	}
	return e.process(ctx, &acct, cart, method, pointsToRedeem, true)
}

// OpenAccount creates acct. An id that is already taken fails with
// ErrAlreadyExists and leaves the stored account alone.
func (e *Engine) OpenAccount(ctx context.Context, acct commerce.Account) (commerce.Account, error) {
	if err := acct.Validate(); err != nil {
		return commerce.Account{}, err
	}
	unlock := e.locks.lock(acct.ID)
	defer unlock()

	_, err := e.store.Account(ctx, acct.ID)
	switch {
	case err == nil:
		return commerce.Account{}, fmt.Errorf("account %s: %w", acct.ID, commerce.ErrAlreadyExists)
	case !commerce.IsNotFound(err):
		return commerce.Account{}, fmt.Errorf("failed to load account %s: %w", acct.ID, err)
	}
	if err := e.store.SaveAccount(ctx, acct); err != nil {
		return commerce.Account{}, fmt.Errorf("failed to save account %s: %w", acct.ID, err)
	}
	e.logger.Info("account opened", zap.String("account_id", string(acct.ID)))
	return acct, nil
}

// SaveAccount creates or replaces acct. It waits for any checkout running
// on the same account, so a checkout never saves over it with a stale copy.
func (e *Engine) SaveAccount(ctx context.Context, acct commerce.Account) error {
	if err := acct.Validate(); err != nil {
		return err
	}
	unlock := e.locks.lock(acct.ID)
	defer unlock()
	return e.store.SaveAccount(ctx, acct)
}

// TopUp credits an account outside checkout and journals the credit.
func (e *Engine) TopUp(ctx context.Context, accountID commerce.AccountID, amount commerce.Money, method commerce.PaymentMethod) (commerce.Account, error) {
	unlock := e.locks.lock(accountID)
	defer unlock()

	acct, err := e.store.Account(ctx, accountID)
	if err != nil {
		return commerce.Account{}, err
	}
	if err := funds.Credit(&acct, amount, method); err != nil {
		return commerce.Account{}, err
	}
	credit := commerce.Movement{
		AccountID:      accountID,
		Kind:           commerce.MoveCredit,
		Method:         method,
		Amount:         amount,
		IdempotencyKey: "topup:" + uuid.NewString(),
		At:             e.now(),
	}
	err = e.inTx(ctx, func(w commerce.TxWriter) error {
		if err := w.SaveAccount(ctx, acct); err != nil {
			return err
		}
		return commerce.NewJournal(w).Append(ctx, credit)
	})
	if err != nil {
		return commerce.Account{}, fmt.Errorf("failed to save top-up for %s: %w", accountID, err)
	}
	e.logger.Info("account topped up",
		zap.String("account_id", string(accountID)),
		zap.String("method", method.String()),
		zap.String("amount", amount.String()))
	return acct, nil
}

// =============================================================================
// PHASE 1 - Price, discount, verify (read-only)
// =============================================================================

// quote is the tentative pricing of a checkout.
type quote struct {
	totals     pricing.Totals
	requested  commerce.Points
	redeem     commerce.Points
	discount   commerce.Money
	finalTotal commerce.Money
	reset      bool // requested more points than the balance
	clamped    bool // discount capped at the total
}

func (e *Engine) total(lines []commerce.LineItem, points commerce.Points) quote {
	totals := e.calc.ComputeTotals(lines)
	return quote{totals: totals, requested: points, redeem: points, finalTotal: totals.Total}
}

// applyDiscount converts the requested points into a tentative discount.
// It never touches acct.
func (e *Engine) applyDiscount(q *quote, acct *commerce.Account) {
	if q.redeem > acct.LoyaltyPoints {
		q.redeem = 0
		q.reset = true
	}
	if q.redeem > 0 {
		discount, _ := loyalty.Quote(q.redeem)
		if discount.GreaterThan(q.totals.Total) {
			discount = q.totals.Total
			q.redeem = loyalty.PointsFor(discount)
			q.clamped = true
		}
		q.discount = discount
	}
	q.finalTotal = q.totals.Total.Sub(q.discount)
}

func (e *Engine) quote(acct *commerce.Account, lines []commerce.LineItem, points commerce.Points) quote {
	q := e.total(lines, points)
	e.applyDiscount(&q, acct)
	return q
}

func validate(cart *Cart, method commerce.PaymentMethod, points commerce.Points) error {
	if !method.Valid() {
		return fmt.Errorf("%w: %q", commerce.ErrUnknownPaymentMethod, string(method))
	}
	if points < 0 {
		return fmt.Errorf("%w: points to redeem %d", commerce.ErrInvalidAmount, points)
	}
	if cart == nil || cart.IsEmpty() {
		return commerce.ErrEmptyCart
	}
	return nil
}

func (e *Engine) process(
	ctx context.Context,
	acct *commerce.Account,
	cart *Cart,
	method commerce.PaymentMethod,
	points commerce.Points,
	saveAccount bool,
) (res Result, err error) {
	start := time.Now()
	s := e.newSession(acct.ID)
	if e.observer != nil {
		defer func() { e.observer.ObserveCheckout(res, time.Since(start)) }()
	}

	// 1. Guard
	if err := validate(cart, method, points); err != nil {
		return s.abort(err), nil
	}
	lines := cart.Lines()

	// 2. Totaling
	if err := s.advance(StateTotaling); err != nil {
		return s.fail(err)
	}
	q := e.total(lines, points)
	s.result.Totals = q.totals

	// 3. DiscountApplied
	if err := s.advance(StateDiscountApplied); err != nil {
		return s.fail(err)
	}
	e.applyDiscount(&q, acct)
	if q.reset {
		s.logger.Debug("redemption exceeds balance, continuing without discount",
			zap.Int64("requested", int64(points)),
			zap.Int64("balance", int64(acct.LoyaltyPoints)))
	}
	if q.clamped {
		s.logger.Debug("discount capped at total",
			zap.Int64("requested", int64(points)),
			zap.Int64("redeemed", int64(q.redeem)))
	}
	s.result.Discount = q.discount
	s.result.FinalTotal = q.finalTotal
	s.result.PointsRedeemed = q.redeem

	// 4. FundsChecked
	if err := s.advance(StateFundsChecked); err != nil {
		return s.fail(err)
	}
	ok, err := funds.HasSufficientFunds(acct, q.finalTotal, method)
	if err != nil {
		return s.abort(err), nil
	}
	if !ok {
		available, _ := acct.Balance(method)
		return s.abort(&commerce.InsufficientFundsError{
			AccountID: acct.ID,
			Method:    method,
			Available: available,
			Requested: q.finalTotal,
		}), nil
	}

	// 5. Commit
	return e.commit(ctx, s, acct, cart, lines, method, q, saveAccount)
}

// =============================================================================
// PHASE 2 - Commit saga
// =============================================================================

func (e *Engine) commit(
	ctx context.Context,
	s *session,
	acct *commerce.Account,
	cart *Cart,
	lines []commerce.LineItem,
	method commerce.PaymentMethod,
	q quote,
	saveAccount bool,
) (Result, error) {
	id, err := e.store.NextReceiptID(ctx)
	if err != nil {
		return s.fail(fmt.Errorf("failed to allocate receipt id: %w", err))
	}
	r := e.builder.Build(receipt.Draft{
		ID:             id,
		CheckoutID:     s.id,
		AccountID:      acct.ID,
		Lines:          lines,
		Method:         method,
		Discount:       q.discount,
		PointsRedeemed: q.redeem,
	})
	if err := receipt.Verify(r, q.totals, q.discount); err != nil {
		return s.abort(err), nil
	}

	sg := &saga{checkoutID: s.id, accountID: acct.ID, receiptID: id, at: e.now()}

	if q.finalTotal.IsPositive() {
		if err := funds.Debit(acct, q.finalTotal, method); err != nil {
			return e.unwind(ctx, s, sg, err)
		}
		sg.step("refund",
			sg.money(commerce.MoveDebit, method, q.finalTotal),
			sg.money(commerce.MoveRefund, method, q.finalTotal),
			func(context.Context) error { return funds.Credit(acct, q.finalTotal, method) })
	}

	if q.redeem > 0 {
		if _, err := loyalty.Redeem(acct, q.redeem); err != nil {
			return e.unwind(ctx, s, sg, err)
		}
		sg.step("restore points",
			sg.points(commerce.MoveRedeem, q.redeem),
			sg.points(commerce.MoveRestore, q.redeem),
			func(context.Context) error { return loyalty.Restore(acct, q.redeem) })
	}

	for _, l := range lines {
		if err := e.store.DecrementStock(ctx, l.ItemID, l.Quantity); err != nil {
			return e.unwind(ctx, s, sg, err)
		}
		line := l
		sg.step("restock "+string(line.ItemID), nil, nil, func(ctx context.Context) error {
			return e.store.IncrementStock(ctx, line.ItemID, line.Quantity)
		})
	}

	if q.redeem == 0 && r.PointsEarned > 0 {
		if err := loyalty.Accrue(acct, r.PointsEarned); err != nil {
			return e.unwind(ctx, s, sg, err)
		}
		sg.step("revoke points",
			sg.points(commerce.MoveAccrue, r.PointsEarned),
			nil,
			func(context.Context) error { return loyalty.Revoke(acct, r.PointsEarned) })
	}

	if err := e.persist(ctx, acct, r, sg.forward, saveAccount); err != nil {
		res, _ := e.unwind(ctx, s, sg, err)
		return res, fmt.Errorf("failed to persist checkout %s: %w", s.id, err)
	}

	cart.Clear()
	if err := s.advance(StateCommitted); err != nil {
		return s.fail(err)
	}
	s.result.Receipt = r
	s.logger.Info("checkout committed",
		zap.Int64("receipt_id", int64(r.ID)),
		zap.String("method", method.String()),
		zap.String("final_total", r.FinalTotal.String()),
		zap.Int64("points_redeemed", int64(r.PointsRedeemed)),
		zap.Int64("points_earned", int64(r.PointsEarned)))
	return s.result, nil
}

// unwind compensates completed saga steps and aborts with cause.
func (e *Engine) unwind(ctx context.Context, s *session, sg *saga, cause error) (Result, error) {
	s.result.Warnings = sg.compensate(context.WithoutCancel(ctx))
	for _, w := range s.result.Warnings {
		s.logger.Error("compensation failed", zap.Error(w))
	}

	if entries := sg.journal(); len(entries) > 0 {
		if err := commerce.NewJournal(e.store).AppendBatch(context.WithoutCancel(ctx), entries); err != nil {
			s.logger.Warn("failed to journal compensated checkout", zap.Error(err))
		}
	}

	if ReasonFor(cause) == ReasonInternal {
		return s.fail(cause)
	}
	return s.abort(cause), nil
}

// persist writes the receipt, its movements and optionally the account.
func (e *Engine) persist(ctx context.Context, acct *commerce.Account, r *commerce.Receipt, ms []commerce.Movement, saveAccount bool) error {
	return e.inTx(ctx, func(w commerce.TxWriter) error {
		if saveAccount {
			if err := w.SaveAccount(ctx, *acct); err != nil {
				return err
			}
		}
		if err := receipt.Issue(ctx, w, r); err != nil {
			return err
		}
		if len(ms) == 0 {
			return nil
		}
		return commerce.NewJournal(w).AppendBatch(ctx, ms)
	})
}

// inTx runs fn in a store transaction when the store supports one.
func (e *Engine) inTx(ctx context.Context, fn func(commerce.TxWriter) error) error {
	if tx, ok := e.store.(commerce.TxStore); ok {
		return tx.WithTx(ctx, fn)
	}
	return fn(e.store)
}

// =============================================================================
// SAGA - Forward steps and their compensations
// =============================================================================

type sagaStep struct {
	name    string
	forward *commerce.Movement
	reverse *commerce.Movement
	undo    func(context.Context) error
}

type saga struct {
	checkoutID string
	accountID  commerce.AccountID
	receiptID  commerce.ReceiptID
	at         time.Time

	steps   []sagaStep
	forward []commerce.Movement
	undone  []commerce.Movement
}

func (sg *saga) step(name string, forward, reverse *commerce.Movement, undo func(context.Context) error) {
	sg.steps = append(sg.steps, sagaStep{name: name, forward: forward, reverse: reverse, undo: undo})
	if forward != nil {
		sg.forward = append(sg.forward, *forward)
	}
}

// compensate undoes completed steps in reverse order.
func (sg *saga) compensate(ctx context.Context) []error {
	var warnings []error
	for i := len(sg.steps) - 1; i >= 0; i-- {
		st := sg.steps[i]
		if err := st.undo(ctx); err != nil {
			warnings = append(warnings, &PartialCommitWarning{CheckoutID: sg.checkoutID, Step: st.name, Err: err})
			continue
		}
		if st.reverse != nil {
			sg.undone = append(sg.undone, *st.reverse)
		}
	}
	return warnings
}

// journal returns forward movements followed by their compensations, for
// the audit trail of an aborted commit. Accruals are never journaled on
// abort because they are only recorded on persist.
func (sg *saga) journal() []commerce.Movement {
	var out []commerce.Movement
	for _, m := range sg.forward {
		if m.Kind == commerce.MoveAccrue {
			continue
		}
		out = append(out, m)
	}
	return append(out, sg.undone...)
}

func (sg *saga) movement(kind commerce.MovementKind) *commerce.Movement {
	return &commerce.Movement{
		AccountID:      sg.accountID,
		Kind:           kind,
		ReceiptID:      sg.receiptID,
		CheckoutID:     sg.checkoutID,
		IdempotencyKey: sg.checkoutID + ":" + string(kind),
		At:             sg.at,
	}
}

func (sg *saga) money(kind commerce.MovementKind, method commerce.PaymentMethod, amount commerce.Money) *commerce.Movement {
	m := sg.movement(kind)
	m.Method = method
	m.Amount = amount
	return m
}

func (sg *saga) points(kind commerce.MovementKind, points commerce.Points) *commerce.Movement {
	m := sg.movement(kind)
	m.Points = points
	return m
}

// =============================================================================
// SESSION - One attempt through the state machine
// =============================================================================

type session struct {
	id     string
	state  State
	logger *zap.Logger
	result Result
}

func (e *Engine) newSession(accountID commerce.AccountID) *session {
	id := uuid.NewString()
	return &session{
		id:    id,
		state: StateIdle,
		logger: e.logger.With(
			zap.String("checkout_id", id),
			zap.String("account_id", string(accountID))),
		result: Result{CheckoutID: id, State: StateIdle},
	}
}

func (s *session) advance(next State) error {
	if !s.state.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.state, next)
	}
	s.logger.Debug("checkout state", zap.String("from", s.state.String()), zap.String("to", next.String()))
	s.state = next
	s.result.State = next
	return nil
}

// abort ends the attempt with a business failure.
func (s *session) abort(err error) Result {
	s.result.Abort = &AbortError{Reason: ReasonFor(err), At: s.state, Err: err}
	s.result.State = StateAborted
	s.result.Receipt = nil
	s.state = StateAborted
	s.logger.Info("checkout aborted",
		zap.String("reason", string(s.result.Abort.Reason)),
		zap.String("at", s.result.Abort.At.String()),
		zap.Error(err))
	return s.result
}

// fail ends the attempt with an infrastructure failure.
func (s *session) fail(err error) (Result, error) {
	s.result.Abort = &AbortError{Reason: ReasonInternal, At: s.state, Err: err}
	s.result.State = StateAborted
	s.result.Receipt = nil
	s.state = StateAborted
	s.logger.Error("checkout failed", zap.String("at", s.result.Abort.At.String()), zap.Error(err))
	return s.result, err
}

// =============================================================================
// ACCOUNT LOCKS
// =============================================================================

// accountLocks hands out one mutex per account id.
type accountLocks struct {
	mu    sync.Mutex
	locks map[commerce.AccountID]*sync.Mutex
}

func (l *accountLocks) lock(id commerce.AccountID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[commerce.AccountID]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
