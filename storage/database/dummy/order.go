package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/coupon"
	"github.com/tshilobo/soko/core/course"
	"github.com/tshilobo/soko/core/order"
)

// orderRepository holds the whole DB: completing an order touches the
// coupon and enrollment tables too.
type orderRepository struct {
	db *DB
}

var _ order.Repository = (*orderRepository)(nil) // interface compliance check

func NewOrderRepository(db *DB) order.Repository {
	return &orderRepository{db: db}
}

func (repo *orderRepository) CreateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	repo.db.order.Lock()
	defer repo.db.order.Unlock()

	repo.db.order.orders[ord.ID] = &ord
	return ord, nil
}

func (repo *orderRepository) GetOrderByID(ctx context.Context, id string) (order.Order, error) {
	repo.db.order.RLock()
	defer repo.db.order.RUnlock()

	if ord, ok := repo.db.order.orders[id]; ok {
		return *ord, nil
	}
	return order.Order{}, order.ErrNotFound
}

func (repo *orderRepository) FilterOrders(ctx context.Context, filter order.QueryFilter, ordering ...core.DBOrdering) ([]order.Order, error) {
	repo.db.order.RLock()
	defer repo.db.order.RUnlock()

	orders := make([]order.Order, 0)
	for _, ord := range repo.db.order.orders {
		if filter.UserID != "" && ord.UserID != filter.UserID {
			continue
		}
		if filter.ItemType != "" && ord.ItemType != filter.ItemType {
			continue
		}
		if filter.Status != "" && ord.Status != filter.Status {
			continue
		}
		orders = append(orders, *ord)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (repo *orderRepository) UpdateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	repo.db.order.Lock()
	defer repo.db.order.Unlock()

	if _, ok := repo.db.order.orders[ord.ID]; !ok {
		return order.Order{}, order.ErrNotFound
	}
	repo.db.order.orders[ord.ID] = &ord
	return ord, nil
}

func (repo *orderRepository) CompleteOrder(ctx context.Context, ord order.Order, pay order.Payment) (order.Order, error) {
	repo.db.order.Lock()
	defer repo.db.order.Unlock()
	repo.db.coupon.Lock()
	defer repo.db.coupon.Unlock()

	stored, ok := repo.db.order.orders[ord.ID]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	if stored.Status != order.StatusPending {
		return order.Order{}, order.ErrNotPending
	}

	now := time.Now().UTC()

	if ord.CouponID.Valid {
		cpn, ok := repo.db.coupon.coupons[ord.CouponID.String]
		if !ok {
			return order.Order{}, coupon.ErrNotFound
		}
		// the conditional increment; losers of the last slot get exhausted
		if cpn.Exhausted() {
			return order.Order{}, coupon.ErrExhausted
		}
		cpn.UsageCount++
		cpn.UpdatedAt = now

		usage := &coupon.Usage{
			ID:       uuid.New().String(),
			CouponID: cpn.ID,
			UserID:   ord.UserID,
			OrderID:  ord.ID,
			UsedAt:   now,
		}
		repo.db.coupon.usages[usage.ID] = usage
	}

	completed := *stored
	completed.Status = order.StatusCompleted
	completed.UpdatedAt = now
	repo.db.order.orders[ord.ID] = &completed
	repo.db.order.payments[pay.ID] = &pay

	if ord.ItemType == coupon.ItemTypeCourse {
		repo.db.course.Lock()
		alreadyEnrolled := false
		for _, enr := range repo.db.course.enrollments {
			if enr.UserID == ord.UserID && enr.CourseID == ord.ItemID {
				alreadyEnrolled = true
				break
			}
		}
		if !alreadyEnrolled {
			enr := &course.Enrollment{
				ID:        uuid.New().String(),
				UserID:    ord.UserID,
				CourseID:  ord.ItemID,
				Status:    course.StatusActive,
				CreatedAt: now,
				UpdatedAt: now,
			}
			repo.db.course.enrollments[enr.ID] = enr
		}
		repo.db.course.Unlock()
	}

	return completed, nil
}

func (repo *orderRepository) GetPayment(ctx context.Context, orderID string) (order.Payment, error) {
	repo.db.order.RLock()
	defer repo.db.order.RUnlock()

	for _, pay := range repo.db.order.payments {
		if pay.OrderID == orderID {
			return *pay, nil
		}
	}
	return order.Payment{}, order.ErrNotFound
}

func (repo *orderRepository) GetStats(ctx context.Context) (order.Stats, error) {
	repo.db.order.RLock()
	defer repo.db.order.RUnlock()

	stats := order.Stats{ByItemType: make(map[string]int)}
	for _, ord := range repo.db.order.orders {
		switch ord.Status {
		case order.StatusCompleted:
			stats.CompletedOrders++
			stats.Revenue += ord.Total
			stats.ByItemType[ord.ItemType]++
		case order.StatusPending:
			stats.PendingOrders++
		}
	}
	stats.Revenue = core.Round2(stats.Revenue)
	return stats, nil
}
