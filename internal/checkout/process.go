// Package checkout converts a frozen cart into a durable order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/abgdnv/storesim/internal/cart"
	"github.com/abgdnv/storesim/internal/catalog"
	shoperrors "github.com/abgdnv/storesim/internal/errors"
	"github.com/abgdnv/storesim/internal/ledger"
	"github.com/abgdnv/storesim/internal/payment"
	"github.com/abgdnv/storesim/pkg/messaging"
	"github.com/abgdnv/storesim/pkg/messaging/events"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

// Inventory is the part of the catalog checkout depends on.
type Inventory interface {
	FindByID(ctx context.Context, id string) (catalog.Product, error)
	Reserve(ctx context.Context, items []catalog.Reservation) ([]catalog.Product, error)
}

// OrderRecorder persists committed orders.
type OrderRecorder interface {
	PrependOrder(ctx context.Context, username string, order ledger.Order) error
}

// Service starts checkout processes and holds their shared dependencies.
type Service struct {
	inventory         Inventory
	orders            OrderRecorder
	gateway           payment.Gateway
	publisher         messaging.Publisher
	paymentTimeout    time.Duration
	validate          *validator.Validate
	logger            *slog.Logger
	ordersPlaced      metric.Int64Counter
	checkoutsRejected metric.Int64Counter
	now               func() time.Time
}

// NewService creates a checkout Service. paymentTimeout bounds each authorization attempt.
func NewService(inventory Inventory, orders OrderRecorder, gateway payment.Gateway, publisher messaging.Publisher,
	paymentTimeout time.Duration, logger *slog.Logger) *Service {
	meter := otel.Meter("storesim/checkout")
	ordersPlaced, err := meter.Int64Counter("orders_placed", metric.WithDescription("Total number of committed checkouts"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_placed counter: %v", err))
	}
	checkoutsRejected, err := meter.Int64Counter("checkouts_rejected", metric.WithDescription("Total number of checkouts rejected for stock"))
	if err != nil {
		panic(fmt.Sprintf("failed to create checkouts_rejected counter: %v", err))
	}
	return &Service{
		inventory:         inventory,
		orders:            orders,
		gateway:           gateway,
		publisher:         publisher,
		paymentTimeout:    paymentTimeout,
		validate:          validator.New(),
		logger:            logger.With("component", "checkout"),
		ordersPlaced:      ordersPlaced,
		checkoutsRejected: checkoutsRejected,
		now:               time.Now,
	}
}

// Begin freezes the current cart of engine into a new process in the Assembling state.
// The process holds the cart until it commits, is rejected or is abandoned; cart mutations fail with
// ErrCheckoutInProgress meanwhile.
// Returns ErrNoActiveUser without a user, ErrEmptyCart for an empty cart and
// ErrCheckoutInProgress while another checkout holds the cart.
func (s *Service) Begin(ctx context.Context, username string, engine *cart.Engine) (*Process, error) {
	if strings.TrimSpace(username) == "" {
		return nil, shoperrors.ErrNoActiveUser
	}
	hold, err := engine.Hold()
	if err != nil {
		return nil, err
	}
	frozen := engine.Cart()
	if frozen.IsEmpty() {
		hold.Release()
		return nil, shoperrors.ErrEmptyCart
	}
	p := &Process{
		svc:      s,
		id:       uuid.NewString(),
		username: username,
		hold:     hold,
		lines:    frozen.Lines,
		total:    frozen.Total,
		state:    StateAssembling,
	}
	s.logger.DebugContext(ctx, "Checkout started", "checkout_id", p.id, "username", username, "lines", len(p.lines), "total", p.total)
	return p, nil
}

// Process is one attempt to turn a frozen cart into an order.
type Process struct {
	svc      *Service
	id       string
	username string
	hold     *cart.Hold
	lines    []cart.Line
	total    decimal.Decimal

	mu         sync.Mutex
	state      State
	details    *Details
	committing bool
	abandoned  bool
	rejection  error
	// pending is set once stock has been reserved; a retry resumes at the ledger write.
	pending *pendingCommit
	order   *ledger.Order
}

type pendingCommit struct {
	order ledger.Order
	auth  payment.Authorization
}

// View is a read-only rendering of a process.
type View struct {
	ID         string                 `json:"id"`
	State      State                  `json:"state"`
	Lines      []cart.Line            `json:"lines"`
	Total      decimal.Decimal        `json:"total"`
	ShipTo     string                 `json:"shipTo,omitempty"`
	CardLast4  string                 `json:"cardLast4,omitempty"`
	Order      *ledger.Order          `json:"order,omitempty"`
	Rejection  string                 `json:"rejection,omitempty"`
	Shortfalls []shoperrors.Shortfall `json:"shortfalls,omitempty"`
}

func (p *Process) ID() string {
	return p.id
}

func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Process) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := View{
		ID:    p.id,
		State: p.state,
		Lines: append([]cart.Line(nil), p.lines...),
		Total: p.total,
	}
	if p.details != nil {
		v.ShipTo = p.details.Shipping.Name
		v.CardLast4 = p.details.Card.last4()
	}
	if p.order != nil {
		o := *p.order
		v.Order = &o
	}
	if p.rejection != nil {
		v.Rejection = p.rejection.Error()
		var stockErr *shoperrors.InsufficientStockError
		if errors.As(p.rejection, &stockErr) {
			v.Shortfalls = stockErr.Shortfalls
		}
	}
	return v
}

// Submit records shipping and payment details and moves the process to AwaitingPayment.
// Details may be replaced until Commit has reserved stock.
func (p *Process) Submit(d Details) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkOpen("submit details"); err != nil {
		return err
	}
	if p.state != StateAssembling && p.state != StateAwaitingPayment {
		return &TransitionError{Op: "submit details", State: p.state}
	}
	if p.pending != nil {
		return &TransitionError{Op: "submit details after stock reservation", State: p.state}
	}
	if err := p.svc.validate.Struct(d); err != nil {
		return shoperrors.FromValidator(err)
	}
	p.details = &d
	p.state = StateAwaitingPayment
	return nil
}

// Abandon discards the process and gives the cart back. It is refused once stock has been reserved.
func (p *Process) Abandon() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.committing || p.pending != nil {
		return shoperrors.ErrCheckoutInProgress
	}
	if p.state == StateCommitted {
		return &TransitionError{Op: "abandon", State: p.state}
	}
	p.abandoned = true
	p.hold.Release()
	return nil
}

func (p *Process) checkOpen(op string) error {
	if p.abandoned {
		return &TransitionError{Op: op + " on an abandoned checkout", State: p.state}
	}
	if p.committing {
		return shoperrors.ErrCheckoutInProgress
	}
	return nil
}

// Commit places the order.
//
// Committing an already committed process returns the same order without side effects, and a rejected
// process returns its rejection. Live stock is re-checked first; a shortfall moves the process to
// Rejected. Payment is then authorized; cancellation or a gateway error leaves the process in
// AwaitingPayment with nothing changed and the cart still held. A zero total skips authorization. From stock reservation on, writes ignore ctx cancellation and run
// in the order stock, order history, cart. If the order history write fails, a later Commit resumes there.
func (p *Process) Commit(ctx context.Context) (ledger.Order, error) {
	p.mu.Lock()
	switch p.state {
	case StateCommitted:
		order := *p.order
		p.mu.Unlock()
		return order, nil
	case StateRejected:
		err := p.rejection
		p.mu.Unlock()
		return ledger.Order{}, err
	case StateAssembling:
		p.mu.Unlock()
		return ledger.Order{}, &TransitionError{Op: "commit before details are submitted", State: StateAssembling}
	case StateAwaitingPayment:
	}
	if err := p.checkOpen("commit"); err != nil {
		p.mu.Unlock()
		return ledger.Order{}, err
	}
	p.committing = true
	details := *p.details
	pending := p.pending
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.committing = false
		p.mu.Unlock()
	}()

	logger := p.svc.logger.With("checkout_id", p.id, "username", p.username)

	if pending == nil {
		if err := p.revalidate(ctx); err != nil {
			var stockErr *shoperrors.InsufficientStockError
			if errors.As(err, &stockErr) {
				return ledger.Order{}, p.reject(ctx, logger, err)
			}
			return ledger.Order{}, err
		}

		auth, err := p.authorize(ctx, details)
		if err != nil {
			logger.WarnContext(ctx, "Payment authorization failed", "error", err)
			return ledger.Order{}, fmt.Errorf("payment authorization failed: %w", err)
		}

		pending, err = p.reserve(ctx, logger, auth)
		if err != nil {
			return ledger.Order{}, err
		}
	}

	wctx := context.WithoutCancel(ctx)
	if err := p.svc.orders.PrependOrder(wctx, p.username, pending.order); err != nil {
		logger.ErrorContext(ctx, "Failed to record order after stock reservation", "order_id", pending.order.ID, "error", err)
		return ledger.Order{}, fmt.Errorf("failed to record order %s: %w", pending.order.ID, err)
	}
	p.hold.Clear()
	p.hold.Release()

	p.mu.Lock()
	order := pending.order
	p.order = &order
	p.pending = nil
	p.state = StateCommitted
	p.mu.Unlock()

	p.publish(wctx, logger, order)
	p.svc.ordersPlaced.Add(wctx, 1)
	logger.InfoContext(ctx, "Order placed", "order_id", order.ID, "total", order.Total)
	return order, nil
}

// authorize charges the frozen total. Nothing is charged for a free cart.
func (p *Process) authorize(ctx context.Context, details Details) (payment.Authorization, error) {
	if p.total.IsZero() {
		return payment.Authorization{Reference: p.id, Amount: p.total}, nil
	}
	payCtx, cancel := ctx, context.CancelFunc(func() {})
	if p.svc.paymentTimeout > 0 {
		payCtx, cancel = context.WithTimeout(ctx, p.svc.paymentTimeout)
	}
	defer cancel()
	return p.svc.gateway.Authorize(payCtx, payment.Charge{
		Reference:  p.id,
		Amount:     p.total,
		CardHolder: details.Card.Holder,
		CardNumber: details.Card.Number,
	})
}

// revalidate checks every frozen line against live stock.
func (p *Process) revalidate(ctx context.Context) error {
	var shortfalls []shoperrors.Shortfall
	for _, l := range p.lines {
		live, err := p.svc.inventory.FindByID(ctx, l.Product.ID)
		if err != nil {
			if errors.Is(err, shoperrors.ErrNotFound) {
				shortfalls = append(shortfalls, shoperrors.Shortfall{ProductID: l.Product.ID, Requested: l.Quantity, Available: -1})
				continue
			}
			return fmt.Errorf("failed to check stock: %w", err)
		}
		if l.Quantity > live.Stock {
			shortfalls = append(shortfalls, shoperrors.Shortfall{ProductID: l.Product.ID, Requested: l.Quantity, Available: live.Stock})
		}
	}
	if len(shortfalls) > 0 {
		return &shoperrors.InsufficientStockError{Shortfalls: shortfalls}
	}
	return nil
}

// reserve decrements stock and builds the order. A stock race lost since revalidation rejects the
// process and voids the authorization.
func (p *Process) reserve(ctx context.Context, logger *slog.Logger, auth payment.Authorization) (*pendingCommit, error) {
	wctx := context.WithoutCancel(ctx)
	items := make([]catalog.Reservation, 0, len(p.lines))
	orderLines := make([]ledger.OrderLine, 0, len(p.lines))
	for _, l := range p.lines {
		items = append(items, catalog.Reservation{ProductID: l.Product.ID, Quantity: l.Quantity})
		orderLines = append(orderLines, ledger.OrderLine{Product: l.Product, Quantity: l.Quantity})
	}

	if _, err := p.svc.inventory.Reserve(wctx, items); err != nil {
		if auth.ID != "" {
			if vErr := p.svc.gateway.Void(wctx, auth); vErr != nil {
				logger.ErrorContext(ctx, "Failed to void authorization", "authorization_id", auth.ID, "error", vErr)
			}
		}
		var stockErr *shoperrors.InsufficientStockError
		if errors.As(err, &stockErr) {
			return nil, p.reject(ctx, logger, err)
		}
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}

	pending := &pendingCommit{
		order: ledger.NewOrder(orderLines, p.total, p.svc.now()),
		auth:  auth,
	}
	p.mu.Lock()
	p.pending = pending
	p.mu.Unlock()
	return pending, nil
}

func (p *Process) reject(ctx context.Context, logger *slog.Logger, cause error) error {
	p.mu.Lock()
	p.state = StateRejected
	p.rejection = cause
	p.mu.Unlock()
	p.hold.Release()
	p.svc.checkoutsRejected.Add(context.WithoutCancel(ctx), 1)
	logger.WarnContext(ctx, "Checkout rejected", "error", cause)
	return cause
}

func (p *Process) publish(ctx context.Context, logger *slog.Logger, order ledger.Order) {
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event := events.OrderPlacedEvent{
		Carrier:   carrier,
		OrderID:   order.ID,
		Username:  p.username,
		Total:     order.Total,
		LineCount: len(order.Lines),
		ItemCount: order.ItemCount(),
		PlacedAt:  order.PlacedAt,
	}
	if err := p.svc.publisher.Publish(ctx, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish OrderPlacedEvent", "order_id", order.ID, "error", err)
	}
}
