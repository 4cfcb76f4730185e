package order

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/tshilobo/soko/core"
)

// Order statuses
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusCanceled  = "CANCELED"
)

// Shipping statuses
const (
	ShippingPending   = "PENDING"
	ShippingShipped   = "SHIPPED"
	ShippingDelivered = "DELIVERED"
)

// Payment methods
const (
	MethodCard      = "CARD"
	MethodTransfer  = "BANK_TRANSFER"
	MethodPromptPay = "PROMPTPAY"
)

type ShippingInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Status  string `json:"status"`
}

type Order struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	ItemType    string        `json:"item_type"` // course | ebook
	ItemID      string        `json:"item_id"`
	ItemTitle   string        `json:"item_title"`
	Subtotal    float64       `json:"subtotal"`
	Discount    float64       `json:"discount"`
	ShippingFee float64       `json:"shipping_fee"`
	Total       float64       `json:"total"`
	CouponID    null.String   `json:"coupon_id,omitempty"`
	CouponCode  string        `json:"coupon_code,omitempty"`
	Status      string        `json:"status"`
	Shipping    *ShippingInfo `json:"shipping,omitempty"` // print ebooks only
	CreatedAt   time.Time     `json:"created_at"`         // UTC
	UpdatedAt   time.Time     `json:"updated_at"`         // UTC
}

type Payment struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Method    string    `json:"method"`
	Amount    float64   `json:"amount"`
	Reference string    `json:"reference,omitempty"`
	PaidAt    time.Time `json:"paid_at"` // UTC
}

// Stats aggregates completed sales for the admin dashboard.
type Stats struct {
	CompletedOrders int            `json:"completed_orders"`
	PendingOrders   int            `json:"pending_orders"`
	Revenue         float64        `json:"revenue"`
	ByItemType      map[string]int `json:"by_item_type"`
}

// NewShipping is the shipping address supplied at checkout for print ebooks.
type NewShipping struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
}

// NewOrder contains information needed to check out a single catalog item.
type NewOrder struct {
	ItemType   string       `json:"item_type" validate:"required,oneof=course ebook"`
	ItemID     string       `json:"item_id" validate:"required"`
	CouponCode string       `json:"coupon_code"`
	Shipping   *NewShipping `json:"shipping"`
}

func (no *NewOrder) Validate() error {
	no.CouponCode = core.CleanString(no.CouponCode, true /* lower */)
	return core.Validate.Struct(no)
}

// CompleteOrder confirms payment for a pending order.
type CompleteOrder struct {
	Method    string `json:"method" validate:"required,oneof=CARD BANK_TRANSFER PROMPTPAY"`
	Reference string `json:"reference"`
}

func (co *CompleteOrder) Validate() error {
	co.Reference = core.CleanString(co.Reference)
	return core.Validate.Struct(co)
}

// UpdateShipping sets the shipping status on an order (admin only).
type UpdateShipping struct {
	Status string `json:"status" validate:"required,oneof=PENDING SHIPPED DELIVERED"`
}

func (us *UpdateShipping) Validate() error { return core.Validate.Struct(us) }

type QueryFilter struct {
	UserID   string `query:"user_id"`
	ItemType string `query:"item_type"`
	Status   string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.UserID == "" && qf.ItemType == "" && qf.Status == ""
}
