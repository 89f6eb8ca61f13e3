package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/medistore/api/internal/database"
	"github.com/medistore/api/internal/enum"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidMedicineID   = errors.New("invalid medicine_id")
	ErrMedicineNotFound    = errors.New("medicine not found")
	ErrInvalidPayment      = errors.New("invalid payment_method")
	ErrInvalidReminderDays = errors.New("reminder_days must be > 0")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrStatusConflict      = errors.New("order status no longer allows this transition")
	ErrNotReorderable      = errors.New("only delivered orders can be reordered")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context) (int32, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetMedicine(ctx context.Context, id uuid.UUID) (database.Medicine, error)
	DecrementMedicineStock(ctx context.Context, arg database.DecrementMedicineStockParams) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CreateDeliveredOrder(ctx context.Context, arg database.CreateDeliveredOrderParams) error
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	CreateReminder(ctx context.Context, arg database.CreateReminderParams) (database.Reminder, error)
	CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)
	IncrementReorderCount(ctx context.Context, id uuid.UUID) error
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// PlaceOrderRequest is the validated input for placing an order.
type PlaceOrderRequest struct {
	UserID          uuid.UUID
	PaymentMethod   string
	DeliveryAddress string
	ReminderDays    int32 // 0 means no reminder
	Items           []PlaceOrderItemRequest
}

// PlaceOrderItemRequest is a single line in the order.
type PlaceOrderItemRequest struct {
	MedicineID string
	Quantity   int32
}

// PlaceOrderResult is the full created order with items and payment record.
type PlaceOrderResult struct {
	Order   database.Order
	Items   []database.OrderItem
	Payment database.Payment
}

// StatusUpdateResult carries the updated order and the notification written
// for the customer, so the caller can broadcast it.
type StatusUpdateResult struct {
	Order        database.Order
	Notification database.Notification
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// PlaceOrder validates, snapshots prices, and creates an order atomically:
// order row, item snapshots, payment record, stock decrement, and the
// optional refill reminder all commit together. Retries up to
// maxOrderNumberRetries times on order_number unique constraint violations
// (race condition where concurrent transactions get the same MAX).
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if !isValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPayment
	}
	if req.ReminderDays < 0 {
		return nil, ErrInvalidReminderDays
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.placeOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

func (s *OrderService) placeOrderTx(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	user, err := store.GetUserByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	nextNum, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	orderNumber := fmt.Sprintf("MED-%06d", nextNum)

	// Process items: validate, snapshot catalog prices, accumulate total.
	type processedItem struct {
		medicine database.Medicine
		quantity int32
		subtotal decimal.Decimal
	}
	totalAmount := decimal.Zero
	var items []processedItem

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		medicineID, err := uuid.Parse(item.MedicineID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMedicineID)
		}
		medicine, err := store.GetMedicine(ctx, medicineID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMedicineNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get medicine: %w", i, err)
		}

		unitPrice := numericToDecimal(medicine.Price)
		subtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		totalAmount = totalAmount.Add(subtotal)

		items = append(items, processedItem{
			medicine: medicine,
			quantity: item.Quantity,
			subtotal: subtotal,
		})
	}

	deliveryAddress := pgtype.Text{}
	if req.DeliveryAddress != "" {
		deliveryAddress = pgtype.Text{String: req.DeliveryAddress, Valid: true}
	}
	reminderDays := pgtype.Int4{}
	if req.ReminderDays > 0 {
		reminderDays = pgtype.Int4{Int32: req.ReminderDays, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:     orderNumber,
		UserID:          req.UserID,
		Status:          enum.OrderStatusPending,
		PaymentMethod:   req.PaymentMethod,
		TotalAmount:     decimalToNumeric(totalAmount),
		DeliveryAddress: deliveryAddress,
		ReminderDays:    reminderDays,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var itemRows []database.OrderItem
	for _, pi := range items {
		row, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:      order.ID,
			MedicineID:   pi.medicine.ID,
			MedicineName: pi.medicine.Name,
			UnitPrice:    pi.medicine.Price,
			Quantity:     pi.quantity,
			Subtotal:     decimalToNumeric(pi.subtotal),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		itemRows = append(itemRows, row)

		// Stock is decremented at placement; delivery does not touch it again.
		if _, err := store.DecrementMedicineStock(ctx, database.DecrementMedicineStockParams{
			ID:       pi.medicine.ID,
			Quantity: pi.quantity,
		}); err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}

		if req.ReminderDays > 0 {
			if _, err := store.CreateReminder(ctx, database.CreateReminderParams{
				UserID:       req.UserID,
				OrderID:      pgtype.UUID{Bytes: order.ID, Valid: true},
				MedicineID:   pi.medicine.ID,
				MedicineName: pi.medicine.Name,
				Quantity:     pi.quantity,
				ReminderDays: req.ReminderDays,
				OrderedAt:    order.CreatedAt,
				DueAt:        order.CreatedAt.AddDate(0, 0, int(req.ReminderDays)),
			}); err != nil {
				return nil, fmt.Errorf("create reminder: %w", err)
			}
		}
	}

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:   order.ID,
		UserName:  user.FullName,
		UserEmail: user.Email,
		Amount:    decimalToNumeric(totalAmount),
		Method:    req.PaymentMethod,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &PlaceOrderResult{Order: order, Items: itemRows, Payment: payment}, nil
}

// UpdateStatus transitions an order between statuses atomically. The only
// allowed transitions are PENDING -> DELIVERED and PENDING -> CANCELLED;
// anything else returns ErrStatusConflict. Delivery also writes the
// flattened delivered_orders copy (idempotent via the unique order_id) and
// a customer notification, all in the same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, newStatus string) (*StatusUpdateResult, error) {
	if newStatus != enum.OrderStatusDelivered && newStatus != enum.OrderStatusCancelled {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: orderID, UserID: userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusPending {
		return nil, ErrStatusConflict
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         orderID,
		UserID:     userID,
		Status:     newStatus,
		FromStatus: enum.OrderStatusPending,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	if newStatus == enum.OrderStatusDelivered {
		user, err := store.GetUserByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		if err := store.CreateDeliveredOrder(ctx, database.CreateDeliveredOrderParams{
			OrderID:         updated.ID,
			UserID:          updated.UserID,
			UserName:        user.FullName,
			UserEmail:       user.Email,
			UserMobile:      user.Mobile,
			TotalAmount:     updated.TotalAmount,
			DeliveryAddress: updated.DeliveryAddress,
			PaymentMethod:   updated.PaymentMethod,
			OrderedAt:       updated.CreatedAt,
		}); err != nil {
			return nil, fmt.Errorf("create delivered order: %w", err)
		}
	}

	notification, err := store.CreateNotification(ctx, database.CreateNotificationParams{
		UserID:           userID,
		Title:            "Order Status Updated",
		Message:          fmt.Sprintf("Your order %s is now %s.", updated.OrderNumber, updated.Status),
		Type:             enum.NotificationTypeOrderStatus,
		OrderID:          pgtype.UUID{Bytes: updated.ID, Valid: true},
		HasReorderAction: newStatus == enum.OrderStatusDelivered,
	})
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &StatusUpdateResult{Order: updated, Notification: notification}, nil
}

// Reorder clones a delivered order into a fresh PENDING order with a new
// number, current payment record, and stock decrement, and bumps the user's
// reorder counter. Retries on order number conflicts like PlaceOrder.
func (s *OrderService) Reorder(ctx context.Context, userID, orderID uuid.UUID) (*PlaceOrderResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.reorderTx(ctx, userID, orderID)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *OrderService) reorderTx(ctx context.Context, userID, orderID uuid.UUID) (*PlaceOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	original, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: orderID, UserID: userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if original.Status != enum.OrderStatusDelivered {
		return nil, ErrNotReorderable
	}

	originalItems, err := store.ListOrderItemsByOrder(ctx, original.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	if len(originalItems) == 0 {
		return nil, ErrEmptyItems
	}

	user, err := store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	nextNum, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	orderNumber := fmt.Sprintf("MED-%06d", nextNum)

	// Re-snapshot prices from the current catalog; the clone pays today's
	// prices, not the original's.
	totalAmount := decimal.Zero
	type cloneItem struct {
		medicine database.Medicine
		quantity int32
		subtotal decimal.Decimal
	}
	var clones []cloneItem
	for _, item := range originalItems {
		medicine, err := store.GetMedicine(ctx, item.MedicineID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrMedicineNotFound, item.MedicineName)
			}
			return nil, fmt.Errorf("get medicine: %w", err)
		}
		subtotal := numericToDecimal(medicine.Price).Mul(decimal.NewFromInt32(item.Quantity))
		totalAmount = totalAmount.Add(subtotal)
		clones = append(clones, cloneItem{medicine: medicine, quantity: item.Quantity, subtotal: subtotal})
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:     orderNumber,
		UserID:          userID,
		Status:          enum.OrderStatusPending,
		PaymentMethod:   original.PaymentMethod,
		TotalAmount:     decimalToNumeric(totalAmount),
		DeliveryAddress: original.DeliveryAddress,
		IsReorder:       true,
		OriginalOrderID: pgtype.UUID{Bytes: original.ID, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var itemRows []database.OrderItem
	for _, c := range clones {
		row, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:      order.ID,
			MedicineID:   c.medicine.ID,
			MedicineName: c.medicine.Name,
			UnitPrice:    c.medicine.Price,
			Quantity:     c.quantity,
			Subtotal:     decimalToNumeric(c.subtotal),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		itemRows = append(itemRows, row)

		if _, err := store.DecrementMedicineStock(ctx, database.DecrementMedicineStockParams{
			ID:       c.medicine.ID,
			Quantity: c.quantity,
		}); err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
	}

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:   order.ID,
		UserName:  user.FullName,
		UserEmail: user.Email,
		Amount:    decimalToNumeric(totalAmount),
		Method:    original.PaymentMethod,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := store.IncrementReorderCount(ctx, userID); err != nil {
		return nil, fmt.Errorf("increment reorder count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &PlaceOrderResult{Order: order, Items: itemRows, Payment: payment}, nil
}

// --- Helpers ---

func isValidPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodCOD, enum.PaymentMethodUPI:
		return true
	}
	return false
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
