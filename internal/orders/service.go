package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/farmstand-app/orderflow/internal/inventory"
	"github.com/farmstand-app/orderflow/internal/monitoring"
	"github.com/farmstand-app/orderflow/internal/validation"
)

// StockKeeper is the stock collaborator the pipeline reserves against.
// *inventory.Store is the production implementation.
type StockKeeper interface {
	Snapshot(ctx context.Context, productIDs []string) (map[string]inventory.Snapshot, error)
	Decrement(ctx context.Context, productID string, qty int) error
	Restore(ctx context.Context, productID string, qty int, reason string) error
	TableName() string
}

// Service orchestrates the order submission pipeline.
type Service struct {
	store    *Store
	stock    StockKeeper
	monitor  *monitoring.Monitor
	notifier Notifier // optional; all calls best-effort
	validate *validatorv10.Validate
	log      *logrus.Logger

	// atomicSubmit selects the single-round-trip transact path. The
	// fallback path persists step by step with compensation and carries an
	// inherent check-then-act gap.
	atomicSubmit bool

	idFunc  func() string
	nowFunc func() time.Time
}

// ServiceConfig groups the Service dependencies.
type ServiceConfig struct {
	Store        *Store
	Stock        StockKeeper
	Monitor      *monitoring.Monitor
	Notifier     Notifier
	Validate     *validatorv10.Validate
	Log          *logrus.Logger
	AtomicSubmit bool
}

// NewService creates the submission service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}
	if cfg.Validate == nil {
		cfg.Validate = validation.New()
	}
	if cfg.Monitor == nil {
		cfg.Monitor = monitoring.NewMonitor(cfg.Log, nil, "")
	}
	return &Service{
		store:        cfg.Store,
		stock:        cfg.Stock,
		monitor:      cfg.Monitor,
		notifier:     cfg.Notifier,
		validate:     cfg.Validate,
		log:          cfg.Log,
		atomicSubmit: cfg.AtomicSubmit,
		idFunc:       uuid.NewString,
		nowFunc:      time.Now,
	}
}

// Submit turns a validated order request into a persisted order with reserved
// stock, or fails cleanly with no partial state. It never returns an error:
// every outcome, including panics, comes back as a SubmitResult.
func (s *Service) Submit(ctx context.Context, req validation.SubmitOrderRequest) (result SubmitResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{"component": "orders"}).Errorf("submit panic: %v", r)
			result = SubmitResult{
				ErrorCode: CodeUnexpectedError,
				Message:   "your order could not be processed, please try again",
			}
		}
	}()

	oc := validation.ValidateStruct(s.monitor, s.validate, req, validation.Options{
		Strictness: validation.Strict,
		Transform:  true,
		Scope:      "submit_order",
	})
	if !oc.Success {
		return SubmitResult{
			ErrorCode: CodeMissingRequiredField,
			Message:   strings.Join(oc.Errors, "; "),
		}
	}
	req = *oc.Data

	// Read-time stock view. Conflicts short-circuit before any write.
	conflicts, err := s.checkInventory(ctx, req.Items)
	if err != nil {
		s.log.WithFields(logrus.Fields{"component": "orders"}).Errorf("stock check failed: %v", err)
		return SubmitResult{
			ErrorCode: CodePersistenceFailure,
			Message:   "we could not check product availability, please try again",
		}
	}
	if len(conflicts) > 0 {
		return SubmitResult{
			ErrorCode: CodeInventoryConflict,
			Message:   conflictSummary(conflicts),
			Conflicts: conflicts,
		}
	}

	order := s.buildOrder(req)
	order.Items = ReconcileLines(s.monitor, order.OrderID, order.Items)
	order.Subtotal, order.Tax, order.Total = ComputeTotals(order.Items)

	if s.atomicSubmit {
		if res := s.submitAtomic(ctx, order, req.Items); res != nil {
			return *res
		}
	} else {
		if res := s.submitWithCompensation(ctx, order); res != nil {
			return *res
		}
	}

	s.log.WithFields(logrus.Fields{
		"component":    "orders",
		"order_id": order.OrderID,
		"total":    order.Total,
	}).Info("order created")
	s.notifyNewOrder(ctx, &order)

	return SubmitResult{Success: true, Order: &order}
}

// submitAtomic persists the order through the single transact round trip. On
// a canceled transaction the stock is re-read so the caller gets an accurate
// conflict report for the race it lost.
func (s *Service) submitAtomic(ctx context.Context, order Order, items []validation.OrderItemInput) *SubmitResult {
	err := s.store.SubmitTransaction(ctx, order, s.stock.TableName())
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransactionConflict) {
		conflicts, snapErr := s.checkInventory(ctx, items)
		if snapErr == nil && len(conflicts) > 0 {
			return &SubmitResult{
				ErrorCode: CodeInventoryConflict,
				Message:   conflictSummary(conflicts),
				Conflicts: conflicts,
			}
		}
	}
	s.log.WithFields(logrus.Fields{"component": "orders", "order_id": order.OrderID}).
		Errorf("atomic submit failed: %v", err)
	return &SubmitResult{
		ErrorCode: CodePersistenceFailure,
		Message:   "your order could not be saved, please try again",
	}
}

// submitWithCompensation is the non-atomic path: header, lines, then one
// stock decrement per product, each paired with its undo. A failure runs the
// compensations in reverse so the net effect is all-or-nothing.
func (s *Service) submitWithCompensation(ctx context.Context, order Order) *SubmitResult {
	steps := []sagaStep{
		{
			name:       "create_order_header",
			execute:    func(ctx context.Context) error { return s.store.PutHeader(ctx, order) },
			compensate: func(ctx context.Context) error { return s.store.DeleteHeader(ctx, order.OrderID) },
		},
		{
			name:       "create_order_lines",
			execute:    func(ctx context.Context) error { return s.store.PutLines(ctx, order.OrderID, order.Items) },
			compensate: func(ctx context.Context) error { return s.store.DeleteLines(ctx, order.OrderID, order.Items) },
		},
	}
	for _, req := range aggregateLineQuantities(order.Items) {
		steps = append(steps, sagaStep{
			name: "reserve_stock_" + req.productID,
			execute: func(ctx context.Context) error {
				return s.stock.Decrement(ctx, req.productID, req.qty)
			},
			compensate: func(ctx context.Context) error {
				return s.stock.Restore(ctx, req.productID, req.qty, "submission_failed")
			},
		})
	}

	err := (&saga{log: s.log, steps: steps}).run(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, inventory.ErrInsufficientStock) {
		return &SubmitResult{
			ErrorCode: CodeStockUpdateFailure,
			Message:   "stock changed while saving your order, please try again",
		}
	}
	return &SubmitResult{
		ErrorCode: CodePersistenceFailure,
		Message:   "your order could not be saved, please try again",
	}
}

// Get returns the hydrated order, reconciling its stored totals on the way
// out. Returns (nil, nil) when the order does not exist.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	order, err := s.store.Get(ctx, orderID)
	if err != nil || order == nil {
		return order, err
	}
	CheckOrderTotals(s.monitor, order)
	return order, nil
}

// UpdateStatus sets the lifecycle status and fires the status side effects:
// pickup-ready notification on "ready", stock restoration on "cancelled".
// Side-effect failures are logged and never revert the status change.
func (s *Service) UpdateStatus(ctx context.Context, orderID, newStatus string) (*Order, error) {
	if !validStatus(newStatus) {
		return nil, fmt.Errorf("invalid order status %q", newStatus)
	}
	if err := s.store.UpdateStatus(ctx, orderID, newStatus); err != nil {
		return nil, err
	}

	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("status updated but refetch failed: %w", err)
	}
	if order == nil {
		return nil, ErrNotFound
	}

	switch newStatus {
	case StatusReady:
		if s.notifier != nil {
			if nerr := s.notifier.SendPickupReady(ctx, order); nerr != nil {
				s.log.WithFields(logrus.Fields{"component": "orders", "order_id": orderID}).
					Warnf("pickup-ready notification failed: %v", nerr)
			}
		}
	case StatusCancelled:
		s.restoreOrderStock(ctx, order, "order_cancelled")
	}
	return order, nil
}

// BulkUpdateStatus applies one status to a set of orders. Each id is updated
// and notified independently; a failure on one id never rolls back another.
func (s *Service) BulkUpdateStatus(ctx context.Context, orderIDs []string, newStatus string) ([]*Order, map[string]error) {
	updated := make([]*Order, 0, len(orderIDs))
	failed := map[string]error{}
	for _, id := range orderIDs {
		order, err := s.UpdateStatus(ctx, id, newStatus)
		if err != nil {
			s.log.WithFields(logrus.Fields{"component": "orders", "order_id": id}).
				Warnf("bulk status update failed: %v", err)
			failed[id] = err
			continue
		}
		updated = append(updated, order)
	}
	return updated, failed
}

func (s *Service) restoreOrderStock(ctx context.Context, order *Order, reason string) {
	for _, req := range aggregateLineQuantities(order.Items) {
		if err := s.stock.Restore(ctx, req.productID, req.qty, reason); err != nil {
			s.log.WithFields(logrus.Fields{
				"component":      "orders",
				"order_id":   order.OrderID,
				"product_id": req.productID,
			}).Errorf("stock restoration failed: %v", err)
		}
	}
}

func (s *Service) checkInventory(ctx context.Context, items []validation.OrderItemInput) ([]InventoryConflict, error) {
	requests := make([]lineQty, 0, len(items))
	index := map[string]int{}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			requests[i].qty += it.Quantity
			continue
		}
		index[it.ProductID] = len(requests)
		requests = append(requests, lineQty{productID: it.ProductID, productName: it.ProductName, qty: it.Quantity})
		ids = append(ids, it.ProductID)
	}

	snaps, err := s.stock.Snapshot(ctx, ids)
	if err != nil {
		return nil, err
	}

	var conflicts []InventoryConflict
	for _, req := range requests {
		snap, ok := snaps[req.productID]
		if ok && snap.Quantity >= req.qty {
			continue
		}
		conflicts = append(conflicts, InventoryConflict{
			ProductID:   req.productID,
			ProductName: req.productName,
			Requested:   req.qty,
			Available:   snap.Quantity,
		})
	}
	return conflicts, nil
}

func (s *Service) buildOrder(req validation.SubmitOrderRequest) Order {
	now := s.nowFunc().UTC()
	items := make([]LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, LineItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal,
		})
	}
	return Order{
		OrderID:         s.idFunc(),
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		Items:           items,
		FulfillmentMode: req.FulfillmentMode,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   PaymentPending,
		Status:          StatusPending,
		DeliveryAddress: req.DeliveryAddress,
		PickupDate:      req.PickupDate,
		PickupTime:      req.PickupTime,
		Instructions:    req.Instructions,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// notifyNewOrder fires the change broadcast and the confirmation message.
// Both are best-effort: a failure is logged and the submission stays
// successful.
func (s *Service) notifyNewOrder(ctx context.Context, order *Order) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Broadcast(ctx, "orders", "order_created", order); err != nil {
		s.log.WithFields(logrus.Fields{"component": "orders", "order_id": order.OrderID}).
			Warnf("order broadcast failed: %v", err)
	}
	if err := s.notifier.SendOrderConfirmation(ctx, order); err != nil {
		s.log.WithFields(logrus.Fields{"component": "orders", "order_id": order.OrderID}).
			Warnf("confirmation notification failed: %v", err)
	}
}

func conflictSummary(conflicts []InventoryConflict) string {
	parts := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", c.ProductName, c.Requested, c.Available))
	}
	return "insufficient stock for: " + strings.Join(parts, ", ")
}
