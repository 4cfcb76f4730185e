package coupon

import (
	"errors"
	"time"

	"github.com/tshilobo/soko/core"
)

// Rejection reasons, in the order the checks run; the first failing check wins
// so the user-facing message always names the earliest problem.
var (
	ErrNotFound         = errors.New("coupon not found")
	ErrNotYetActive     = errors.New("coupon is not active yet")
	ErrExpired          = errors.New("coupon has expired")
	ErrExhausted        = errors.New("coupon usage limit reached")
	ErrUserLimitReached = errors.New("you have already used this coupon the maximum number of times")
	ErrBelowMinimum     = errors.New("order total is below the coupon minimum")
	ErrWrongItemType    = errors.New("coupon does not apply to this item type")
	ErrNotApplicable    = errors.New("coupon does not apply to this item")
)

// Quote is a successful coupon evaluation against a cart.
type Quote struct {
	Coupon     Coupon  `json:"coupon"`
	Discount   float64 `json:"discount"`
	FinalTotal float64 `json:"final_total"`
}

// Evaluate runs the full rule chain for applying c to a single-item cart.
// It is pure: no usage is consumed here. userUses is the caller's redemption
// count for this coupon so far. Checks run in a fixed order and the first
// failure is returned.
func (c Coupon) Evaluate(itemType, itemID string, subtotal float64, userUses int, now time.Time) (Quote, error) {
	if !c.IsActive {
		return Quote{}, ErrNotFound
	}
	if now.Before(c.ValidFrom) {
		return Quote{}, ErrNotYetActive
	}
	if now.After(c.ValidUntil) {
		return Quote{}, ErrExpired
	}
	if c.Exhausted() {
		return Quote{}, ErrExhausted
	}
	if c.PerUserLimit.Valid && userUses >= c.PerUserLimit.Int {
		return Quote{}, ErrUserLimitReached
	}
	if subtotal < c.MinOrderAmount {
		return Quote{}, ErrBelowMinimum
	}

	switch c.Scope {
	case ScopeCourseOnly:
		if itemType != ItemTypeCourse {
			return Quote{}, ErrWrongItemType
		}
	case ScopeEbookOnly:
		if itemType != ItemTypeEbook {
			return Quote{}, ErrWrongItemType
		}
	case ScopeSpecificItem:
		if !c.appliesToItem(itemID) {
			return Quote{}, ErrNotApplicable
		}
	}

	discount := c.discountFor(subtotal)
	finalTotal := subtotal - discount
	if finalTotal < 0 {
		finalTotal = 0
	}
	return Quote{
		Coupon:     c,
		Discount:   core.Round2(discount),
		FinalTotal: core.Round2(finalTotal),
	}, nil
}

func (c Coupon) appliesToItem(itemID string) bool {
	for _, id := range c.Items {
		if id == itemID {
			return true
		}
	}
	return false
}

func (c Coupon) discountFor(subtotal float64) float64 {
	switch c.Type {
	case TypePercentage:
		discount := subtotal * c.Value / 100
		if c.MaxDiscount.Valid && discount > c.MaxDiscount.Float64 {
			discount = c.MaxDiscount.Float64
		}
		return discount
	case TypeFixedAmount:
		if c.Value > subtotal {
			return subtotal
		}
		return c.Value
	case TypeFreeShipping:
		return ShippingFlatFee
	}
	return 0
}
