package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/coupon"
)

type couponRepository struct {
	db *couponTable
}

var _ coupon.Repository = (*couponRepository)(nil) // interface compliance check

func NewCouponRepository(db *DB) coupon.Repository {
	return &couponRepository{db: db.coupon}
}

func (repo *couponRepository) query() []coupon.Coupon {
	coupons := make([]coupon.Coupon, 0, len(repo.db.coupons))
	for _, cpn := range repo.db.coupons {
		coupons = append(coupons, *cpn)
	}
	sort.Slice(coupons, func(i, j int) bool { return coupons[i].CreatedAt.After(coupons[j].CreatedAt) })
	return coupons
}

func (repo *couponRepository) CheckCodeUniqueness(ctx context.Context, code string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cpn := range repo.db.coupons {
		if strings.EqualFold(cpn.Code, code) {
			return coupon.ErrCodeExists
		}
	}
	return nil
}

func (repo *couponRepository) CreateCoupon(ctx context.Context, cpn coupon.Coupon) (coupon.Coupon, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.coupons[cpn.ID] = &cpn
	return cpn, nil
}

func (repo *couponRepository) QueryAllCoupons(ctx context.Context, ordering ...core.DBOrdering) ([]coupon.Coupon, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *couponRepository) GetCouponByID(ctx context.Context, id string) (coupon.Coupon, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cpn, ok := repo.db.coupons[id]; ok {
		return *cpn, nil
	}
	return coupon.Coupon{}, coupon.ErrNotFound
}

func (repo *couponRepository) GetCouponByCode(ctx context.Context, code string) (coupon.Coupon, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cpn := range repo.db.coupons {
		if strings.EqualFold(cpn.Code, code) {
			return *cpn, nil
		}
	}
	return coupon.Coupon{}, coupon.ErrNotFound
}

func (repo *couponRepository) CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, usage := range repo.db.usages {
		if usage.CouponID == couponID && usage.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (repo *couponRepository) QueryCouponUsages(ctx context.Context, couponID string) ([]coupon.Usage, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	usages := make([]coupon.Usage, 0)
	for _, usage := range repo.db.usages {
		if usage.CouponID == couponID {
			usages = append(usages, *usage)
		}
	}
	sort.Slice(usages, func(i, j int) bool { return usages[i].UsedAt.After(usages[j].UsedAt) })
	return usages, nil
}

func (repo *couponRepository) UpdateCoupon(ctx context.Context, cpn coupon.Coupon) (coupon.Coupon, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, ok := repo.db.coupons[cpn.ID]
	if !ok {
		return coupon.Coupon{}, coupon.ErrNotFound
	}
	// usage_count only moves through order completion
	cpn.UsageCount = existing.UsageCount
	repo.db.coupons[cpn.ID] = &cpn
	return cpn, nil
}

func (repo *couponRepository) DeleteCouponsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.coupons, id)
	}
	return nil
}
