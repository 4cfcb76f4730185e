package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/tshilobo/soko/core"
)

var ErrCodeExists = errors.New("a coupon with this code already exists")

const (
	cacheKeyPrefix = "coupon:code:"
	cacheTTL       = 5 * time.Minute
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string) error
		CreateCoupon(ctx context.Context, cpn Coupon) (Coupon, error)
		QueryAllCoupons(ctx context.Context, ordering ...core.DBOrdering) ([]Coupon, error)
		GetCouponByID(ctx context.Context, id string) (Coupon, error)
		GetCouponByCode(ctx context.Context, code string) (Coupon, error)
		CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error)
		QueryCouponUsages(ctx context.Context, couponID string) ([]Usage, error)
		UpdateCoupon(ctx context.Context, cpn Coupon) (Coupon, error)
		DeleteCouponsByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		CheckCodeUniqueness(code string) error
		Create(ctx context.Context, nc NewCoupon) (Coupon, error)
		QueryAll(ctx context.Context, ordering ...core.DBOrdering) ([]Coupon, error)
		GetByID(ctx context.Context, id string) (Coupon, error)
		GetByCode(ctx context.Context, code string) (Coupon, error)
		Usages(ctx context.Context, couponID string) ([]Usage, error)
		// Validate prices a single-item cart against a coupon code.
		// It consumes nothing; redemption happens at order completion.
		Validate(ctx context.Context, code, userID, itemType, itemID string, subtotal float64) (Quote, error)
		// InvalidateCode drops the cached entry for code; called after a
		// redemption bumps the usage count outside this service.
		InvalidateCode(ctx context.Context, code string)
		Update(ctx context.Context, id string, uc UpdateCoupon) (Coupon, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo  Repository
		cache core.Cache
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, cache core.Cache) Service {
	return &service{
		repo:  repo,
		cache: cache,
	}
}

func (svc *service) CheckCodeUniqueness(code string) error {
	if err := svc.repo.CheckCodeUniqueness(context.Background(), code); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewCoupon) (Coupon, error) {
	now := time.Now().UTC()
	cpn := Coupon{
		ID:             uuid.New().String(),
		Code:           nc.Code,
		Type:           nc.Type,
		Value:          nc.Value,
		MinOrderAmount: nc.MinOrderAmount,
		MaxDiscount:    null.Float64FromPtr(nc.MaxDiscount),
		UsageLimit:     null.IntFromPtr(nc.UsageLimit),
		PerUserLimit:   null.IntFromPtr(nc.PerUserLimit),
		ValidFrom:      nc.ValidFrom.UTC(),
		ValidUntil:     nc.ValidUntil.UTC(),
		Scope:          nc.Scope,
		Items:          nc.Items,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateCoupon(ctx, cpn)
}

func (svc *service) QueryAll(ctx context.Context, ordering ...core.DBOrdering) ([]Coupon, error) {
	return svc.repo.QueryAllCoupons(ctx, ordering...)
}

func (svc *service) GetByID(ctx context.Context, id string) (Coupon, error) {
	return svc.repo.GetCouponByID(ctx, id)
}

func (svc *service) GetByCode(ctx context.Context, code string) (Coupon, error) {
	code = core.CleanString(code, true /* lower */)

	if data, err := svc.cache.Get(ctx, cacheKeyPrefix+code); err == nil {
		var cpn Coupon
		if err = json.Unmarshal(data, &cpn); err == nil {
			return cpn, nil
		}
	}

	cpn, err := svc.repo.GetCouponByCode(ctx, code)
	if err != nil {
		return Coupon{}, err
	}
	if data, err := json.Marshal(cpn); err == nil {
		_ = svc.cache.Set(ctx, cacheKeyPrefix+code, data, cacheTTL)
	}
	return cpn, nil
}

func (svc *service) Usages(ctx context.Context, couponID string) ([]Usage, error) {
	return svc.repo.QueryCouponUsages(ctx, couponID)
}

func (svc *service) Validate(ctx context.Context, code, userID, itemType, itemID string, subtotal float64) (Quote, error) {
	cpn, err := svc.GetByCode(ctx, code)
	if err != nil {
		if err == ErrNotFound {
			return Quote{}, core.NewValidationError(ErrNotFound)
		}
		return Quote{}, err
	}

	var userUses int
	if cpn.PerUserLimit.Valid && userID != "" {
		if userUses, err = svc.repo.CountUserRedemptions(ctx, cpn.ID, userID); err != nil {
			return Quote{}, err
		}
	}

	quote, err := cpn.Evaluate(itemType, itemID, subtotal, userUses, time.Now().UTC())
	if err != nil {
		return Quote{}, core.NewValidationError(err)
	}
	return quote, nil
}

func (svc *service) InvalidateCode(ctx context.Context, code string) {
	_ = svc.cache.Delete(ctx, cacheKeyPrefix+core.CleanString(code, true /* lower */))
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCoupon) (Coupon, error) {
	orig, err := svc.repo.GetCouponByID(ctx, id)
	if err != nil {
		return Coupon{}, err
	}
	if err = uc.Validate(orig); err != nil {
		return Coupon{}, err
	}

	cpn, err := svc.repo.UpdateCoupon(ctx, uc.Apply(orig))
	if err != nil {
		return Coupon{}, err
	}
	_ = svc.cache.Delete(ctx, cacheKeyPrefix+cpn.Code)
	return cpn, nil
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if cpn, err := svc.repo.GetCouponByID(ctx, id); err == nil {
			keys = append(keys, cacheKeyPrefix+cpn.Code)
		}
	}
	if err := svc.repo.DeleteCouponsByID(ctx, ids...); err != nil {
		return err
	}
	if len(keys) > 0 {
		_ = svc.cache.Delete(ctx, keys...)
	}
	return nil
}
