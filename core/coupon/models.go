package coupon

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/tshilobo/soko/core"
)

// Discount types
const (
	TypePercentage   = "PERCENTAGE"
	TypeFixedAmount  = "FIXED_AMOUNT"
	TypeFreeShipping = "FREE_SHIPPING"
)

// Applicability scopes
const (
	ScopeAll          = "ALL"
	ScopeCourseOnly   = "COURSE_ONLY"
	ScopeEbookOnly    = "EBOOK_ONLY"
	ScopeSpecificItem = "SPECIFIC_ITEM"
)

// Catalog item types a coupon may apply to.
const (
	ItemTypeCourse = "course"
	ItemTypeEbook  = "ebook"
)

// ShippingFlatFee is the flat shipping charge a FREE_SHIPPING coupon waives.
const ShippingFlatFee = 50.0

type Coupon struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	Type           string     `json:"type"`
	Value          float64    `json:"value"`
	MinOrderAmount float64    `json:"min_order_amount"`
	MaxDiscount    null.Float64 `json:"max_discount,omitempty"`
	UsageLimit     null.Int   `json:"usage_limit,omitempty"`    // invalid = unlimited
	PerUserLimit   null.Int   `json:"per_user_limit,omitempty"` // invalid = unlimited
	UsageCount     int        `json:"usage_count"`
	ValidFrom      time.Time  `json:"valid_from"`
	ValidUntil     time.Time  `json:"valid_until"`
	Scope          string     `json:"scope"`
	Items          []string   `json:"items,omitempty"` // allow-list for ScopeSpecificItem
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"` // UTC
	UpdatedAt      time.Time  `json:"updated_at"` // UTC
}

// Exhausted reports whether the global usage limit has been fully consumed.
// The limit is inclusive: usage == limit means no redemption is left.
func (c Coupon) Exhausted() bool {
	return c.UsageLimit.Valid && c.UsageCount >= c.UsageLimit.Int
}

// NewCoupon contains information needed to create a new Coupon.
type NewCoupon struct {
	Code           string   `json:"code" validate:"required,min=3,alphanum_"`
	Type           string   `json:"type" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT FREE_SHIPPING"`
	Value          float64  `json:"value" validate:"omitempty,gt=0"`
	MinOrderAmount float64  `json:"min_order_amount" validate:"omitempty,gte=0"`
	MaxDiscount    *float64 `json:"max_discount" validate:"omitempty,gt=0"`
	UsageLimit     *int     `json:"usage_limit" validate:"omitempty,gt=0"`
	PerUserLimit   *int     `json:"per_user_limit" validate:"omitempty,gt=0"`
	ValidFrom      time.Time `json:"valid_from" validate:"required"`
	ValidUntil     time.Time `json:"valid_until" validate:"required,gtefield=ValidFrom"`
	Scope          string   `json:"scope" validate:"required,oneof=ALL COURSE_ONLY EBOOK_ONLY SPECIFIC_ITEM"`
	Items          []string `json:"items" validate:"required_if=Scope SPECIFIC_ITEM,omitempty,dive,required"`
}

func (nc *NewCoupon) Validate(svc Service) error {
	nc.Code = core.CleanString(nc.Code, true /* lower */)
	if nc.Type != TypeFreeShipping && nc.Value <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "value", Error: "this field is required"})
	}
	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(nc.Code)
}

// UpdateCoupon defines what information may be provided to modify an existing Coupon.
type UpdateCoupon struct {
	Type           string     `json:"type" validate:"omitempty,oneof=PERCENTAGE FIXED_AMOUNT FREE_SHIPPING"`
	Value          *float64   `json:"value" validate:"omitempty,gt=0"`
	MinOrderAmount *float64   `json:"min_order_amount" validate:"omitempty,gte=0"`
	MaxDiscount    *float64   `json:"max_discount" validate:"omitempty,gt=0"`
	UsageLimit     *int       `json:"usage_limit" validate:"omitempty,gt=0"`
	PerUserLimit   *int       `json:"per_user_limit" validate:"omitempty,gt=0"`
	ValidFrom      *time.Time `json:"valid_from"`
	ValidUntil     *time.Time `json:"valid_until"`
	Scope          string     `json:"scope" validate:"omitempty,oneof=ALL COURSE_ONLY EBOOK_ONLY SPECIFIC_ITEM"`
	Items          []string   `json:"items"`
	IsActive       *bool      `json:"is_active"`
}

func (uc *UpdateCoupon) Validate(orig Coupon) error {
	if err := core.Validate.Struct(uc); err != nil {
		return err
	}
	from, until := orig.ValidFrom, orig.ValidUntil
	if uc.ValidFrom != nil {
		from = *uc.ValidFrom
	}
	if uc.ValidUntil != nil {
		until = *uc.ValidUntil
	}
	if until.Before(from) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "valid_until", Error: "must not be before valid_from",
		})
	}
	return nil
}

// Apply merges the update into an existing Coupon.
func (uc *UpdateCoupon) Apply(c Coupon) Coupon {
	if uc.Type != "" {
		c.Type = uc.Type
	}
	if uc.Value != nil {
		c.Value = *uc.Value
	}
	if uc.MinOrderAmount != nil {
		c.MinOrderAmount = *uc.MinOrderAmount
	}
	if uc.MaxDiscount != nil {
		c.MaxDiscount = null.Float64From(*uc.MaxDiscount)
	}
	if uc.UsageLimit != nil {
		c.UsageLimit = null.IntFrom(*uc.UsageLimit)
	}
	if uc.PerUserLimit != nil {
		c.PerUserLimit = null.IntFrom(*uc.PerUserLimit)
	}
	if uc.ValidFrom != nil {
		c.ValidFrom = *uc.ValidFrom
	}
	if uc.ValidUntil != nil {
		c.ValidUntil = *uc.ValidUntil
	}
	if uc.Scope != "" {
		c.Scope = uc.Scope
	}
	if uc.Items != nil {
		c.Items = uc.Items
	}
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
	c.UpdatedAt = time.Now().UTC()
	return c
}

// Usage is a single redemption of a Coupon by a User.
type Usage struct {
	ID       string    `json:"id"`
	CouponID string    `json:"coupon_id"`
	UserID   string    `json:"user_id"`
	OrderID  string    `json:"order_id"`
	UsedAt   time.Time `json:"used_at"` // UTC
}
