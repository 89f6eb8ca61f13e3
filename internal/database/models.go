package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	FullName       string
	Email          string
	Mobile         string
	HashedPassword string
	Role           string
	ReorderCount   int32
	CreatedAt      time.Time
	LastLoginAt    time.Time
}

type Medicine struct {
	ID                uuid.UUID
	Name              string
	Description       pgtype.Text
	Category          string
	Price             pgtype.Numeric
	TotalQuantity     int32
	CurrentQuantity   int32
	LowStockThreshold int32
	ExpiryDate        pgtype.Date
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	UserID          uuid.UUID
	Status          string
	PaymentMethod   string
	TotalAmount     pgtype.Numeric
	DeliveryAddress pgtype.Text
	ReminderDays    pgtype.Int4
	IsReorder       bool
	OriginalOrderID pgtype.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	MedicineID   uuid.UUID
	MedicineName string
	UnitPrice    pgtype.Numeric
	Quantity     int32
	Subtotal     pgtype.Numeric
}

type DeliveredOrder struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	UserID          uuid.UUID
	UserName        string
	UserEmail       string
	UserMobile      string
	TotalAmount     pgtype.Numeric
	DeliveryAddress pgtype.Text
	PaymentMethod   string
	OrderedAt       time.Time
	DeliveredAt     time.Time
}

type Payment struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	UserName  string
	UserEmail string
	Amount    pgtype.Numeric
	Method    string
	CreatedAt time.Time
}

type Notification struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Title            string
	Message          string
	Type             string
	OrderID          pgtype.UUID
	HasReorderAction bool
	Read             bool
	CreatedAt        time.Time
}

type Reminder struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	OrderID      pgtype.UUID
	MedicineID   uuid.UUID
	MedicineName string
	Quantity     int32
	ReminderDays int32
	OrderedAt    time.Time
	DueAt        time.Time
	Notified     bool
	CreatedAt    time.Time
}

type PasswordResetCode struct {
	ID        uuid.UUID
	Email     string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}
