package database

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusCompleted OrderStatus = "completed"
)

func (s *OrderStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = OrderStatus(v)
	case []byte:
		*s = OrderStatus(v)
	default:
		return fmt.Errorf("unsupported scan type for OrderStatus: %T", src)
	}
	return nil
}

func (s OrderStatus) Value() (driver.Value, error) {
	return string(s), nil
}

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodOnline PaymentMethod = "online"
)

func (m *PaymentMethod) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*m = PaymentMethod(v)
	case []byte:
		*m = PaymentMethod(v)
	default:
		return fmt.Errorf("unsupported scan type for PaymentMethod: %T", src)
	}
	return nil
}

func (m PaymentMethod) Value() (driver.Value, error) {
	return string(m), nil
}

// NullOrderStatus represents a nullable order_status (used for filters).
type NullOrderStatus struct {
	OrderStatus OrderStatus
	Valid       bool
}

func (n *NullOrderStatus) Scan(src interface{}) error {
	if src == nil {
		n.OrderStatus, n.Valid = "", false
		return nil
	}
	n.Valid = true
	return n.OrderStatus.Scan(src)
}

func (n NullOrderStatus) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return string(n.OrderStatus), nil
}

// NullPaymentMethod represents a nullable payment_method column.
type NullPaymentMethod struct {
	PaymentMethod PaymentMethod
	Valid         bool
}

func (n *NullPaymentMethod) Scan(src interface{}) error {
	if src == nil {
		n.PaymentMethod, n.Valid = "", false
		return nil
	}
	n.Valid = true
	return n.PaymentMethod.Scan(src)
}

func (n NullPaymentMethod) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return string(n.PaymentMethod), nil
}

type User struct {
	ID             uuid.UUID
	Email          string
	FullName       string
	HashedPassword string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type BusinessProfile struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	BusinessName   pgtype.Text
	Phone          pgtype.Text
	Address        pgtype.Text
	Gstin          pgtype.Text
	GstPercentage  pgtype.Numeric
	ReportsPinHash pgtype.Text
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Item struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Price     pgtype.Numeric
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	OrderNumber   string
	CustomerPhone pgtype.Text
	Status        OrderStatus
	PaymentMethod NullPaymentMethod
	Subtotal      pgtype.Numeric
	GstAmount     pgtype.Numeric
	Cgst          pgtype.Numeric
	Sgst          pgtype.Numeric
	GrandTotal    pgtype.Numeric
	PsgMarked     bool
	Printed       bool
	PrintedAt     pgtype.Timestamptz
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	ItemID     uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
}
