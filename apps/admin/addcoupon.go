package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/coupon"
)

func (cli *commandLine) addCoupon(code, typ string, value float64, limit, days int) error {
	ctx := context.Background()
	code = core.CleanString(code, true /* lower */)
	typ = strings.ToUpper(strings.TrimSpace(typ))

	switch typ {
	case coupon.TypePercentage, coupon.TypeFixedAmount:
		if value <= 0 {
			return fmt.Errorf("type %s requires a positive -value", typ)
		}
	case coupon.TypeFreeShipping: // value ignored
	default:
		return fmt.Errorf("unknown coupon type %q", typ)
	}

	if err := cli.couponRepo.CheckCodeUniqueness(ctx, code); err != nil {
		return err
	}

	now := time.Now().UTC()
	cpn := coupon.Coupon{
		ID:         uuid.New().String(),
		Code:       code,
		Type:       typ,
		Value:      value,
		ValidFrom:  now,
		ValidUntil: now.Add(time.Duration(days) * 24 * time.Hour),
		Scope:      coupon.ScopeAll,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if limit > 0 {
		cpn.UsageLimit = null.IntFrom(limit)
	}
	if _, err := cli.couponRepo.CreateCoupon(ctx, cpn); err != nil {
		return err
	}
	return nil
}
