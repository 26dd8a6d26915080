// Package checkout converts cart intent into remote stock decrements.
package checkout

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
)

// Sentinel errors for checkout preconditions.
var (
	// ErrEmptyCart is returned when checkout is attempted with no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInProgress is returned when a checkout is already running; the
	// caller must not start a second one.
	ErrInProgress = errors.New("checkout already in progress")
)

// PartialFailureError reports a checkout that aborted partway through its
// write sequence. Applied lists the ids whose remote stock decrements had
// already landed before FailedID's write failed; those decrements are not
// rolled back and the local cart is left intact, so local and remote state
// diverge until resolved out of band.
type PartialFailureError struct {
	Applied  []string
	FailedID string
	Err      error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("checkout failed at item %s after %d applied: %v",
		e.FailedID, len(e.Applied), e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// Result describes a fully successful checkout.
type Result struct {
	// Applied lists every item id whose stock decrement was written, in
	// processing order.
	Applied []string
	// Units is the total number of units purchased across all items.
	Units int
}

// Service runs the checkout sequence against the remote catalog.
//
// Writes are issued strictly sequentially: item i+1's write does not begin
// until item i's completed. There is no cross-item transaction and no
// compensation of already-applied decrements on a later failure; the first
// failing item aborts the sequence and the cart is not cleared.
type Service struct {
	store   *cart.Store
	view    *cart.Controller
	client  catalog.Client
	lg      *zap.Logger
	tracer  trace.Tracer
	units   metric.Int64Counter
	running atomic.Bool
}

// NewService creates a checkout service over the given store, working copy
// and catalog client.
func NewService(store *cart.Store, view *cart.Controller, client catalog.Client, lg *zap.Logger) *Service {
	meter := otel.Meter("storefront/checkout")
	units, err := meter.Int64Counter("checkout.units",
		metric.WithDescription("Units of stock decremented by successful checkouts"))
	if err != nil {
		units = nil
		lg.Warn("checkout units counter unavailable", zap.Error(err))
	}
	return &Service{
		store:  store,
		view:   view,
		client: client,
		lg:     lg,
		tracer: otel.Tracer("storefront/checkout"),
		units:  units,
	}
}

// Checkout processes the working copy in iteration order, writing each
// item's remote stock down by its quantity. On full success the cart store
// is cleared (which empties the working copy through its subscription) and
// the applied ids are returned. On the first failure the sequence aborts and
// a *PartialFailureError records which decrements already landed.
//
// Cancelling ctx aborts the sequence between writes; decrements already
// written stay written.
func (s *Service) Checkout(ctx context.Context) (*Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrInProgress
	}
	defer s.running.Store(false)

	items := s.view.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	ctx, span := s.tracer.Start(ctx, "Checkout",
		trace.WithAttributes(attribute.Int("cart.items", len(items))))
	defer span.End()

	applied := make([]string, 0, len(items))
	units := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(span, applied, item.ID, err)
		}
		if err := s.decrement(ctx, item); err != nil {
			return nil, s.fail(span, applied, item.ID, err)
		}
		applied = append(applied, item.ID)
		units += item.Quantity
	}

	s.store.Clear()
	if s.units != nil {
		s.units.Add(ctx, int64(units))
	}
	s.lg.Info("checkout complete",
		zap.Int("items", len(applied)),
		zap.Int("units", units))
	return &Result{Applied: applied, Units: units}, nil
}

// decrement performs the read-modify-write for one line item: fetch the
// authoritative record, subtract the purchased quantity from its stock, and
// replace the record. The fetch includes the stored image: Replace writes
// the whole record, so an imageless fetch would erase it.
func (s *Service) decrement(ctx context.Context, item cart.LineItem) error {
	record, err := s.client.Get(ctx, item.ID, true)
	if err != nil {
		return errors.Wrap(err, "fetch record")
	}

	record.Stock -= item.Quantity
	if _, err := s.client.Replace(ctx, *record); err != nil {
		return errors.Wrap(err, "write stock")
	}
	return nil
}

// fail logs and wraps a mid-sequence failure, preserving the attribution of
// already-applied decrements. The cart is deliberately left as-is.
func (s *Service) fail(span trace.Span, applied []string, failedID string, err error) error {
	span.RecordError(err)
	s.lg.Error("checkout aborted",
		zap.String("failed_item", failedID),
		zap.Strings("applied", applied),
		zap.Error(err))
	return &PartialFailureError{
		Applied:  applied,
		FailedID: failedID,
		Err:      err,
	}
}
