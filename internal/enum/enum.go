package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// ── Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin    = "ADMIN"
	UserRoleCustomer = "CUSTOMER"
)

const (
	PaymentMethodCOD = "COD"
	PaymentMethodUPI = "UPI"
)

// ── Configurable labels (no DB constraint) ──

const (
	NotificationTypeOrderStatus = "order_status"
	NotificationTypeReminder    = "reminder"
	NotificationTypeCustom      = "custom"
)
