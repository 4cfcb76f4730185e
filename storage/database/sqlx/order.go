package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/coupon"
	"github.com/tshilobo/soko/core/course"
	"github.com/tshilobo/soko/core/order"
)

type orderRepository struct {
	db *sqlx.DB
}

var _ order.Repository = (*orderRepository)(nil) // interface compliance check

func NewOrderRepository(db *sqlx.DB) *orderRepository {
	return &orderRepository{db: db}
}

type orderRow struct {
	ID              string      `db:"id"`
	UserID          string      `db:"user_id"`
	ItemType        string      `db:"item_type"`
	ItemID          string      `db:"item_id"`
	ItemTitle       string      `db:"item_title"`
	Subtotal        float64     `db:"subtotal"`
	Discount        float64     `db:"discount"`
	ShippingFee     float64     `db:"shipping_fee"`
	Total           float64     `db:"total"`
	CouponID        null.String `db:"coupon_id"`
	CouponCode      string      `db:"coupon_code"`
	Status          string      `db:"status"`
	ShippingName    null.String `db:"shipping_name"`
	ShippingAddress null.String `db:"shipping_address"`
	ShippingPhone   null.String `db:"shipping_phone"`
	ShippingStatus  null.String `db:"shipping_status"`
	CreatedAt       null.Time   `db:"created_at"`
	UpdatedAt       null.Time   `db:"updated_at"`
}

func (repo orderRepository) row(ord order.Order) orderRow {
	row := orderRow{
		ID:          ord.ID,
		UserID:      ord.UserID,
		ItemType:    ord.ItemType,
		ItemID:      ord.ItemID,
		ItemTitle:   ord.ItemTitle,
		Subtotal:    ord.Subtotal,
		Discount:    ord.Discount,
		ShippingFee: ord.ShippingFee,
		Total:       ord.Total,
		CouponID:    ord.CouponID,
		CouponCode:  ord.CouponCode,
		Status:      ord.Status,
		CreatedAt:   null.NewTime(ord.CreatedAt.UTC(), !ord.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(ord.UpdatedAt.UTC(), !ord.UpdatedAt.IsZero()),
	}
	if ord.Shipping != nil {
		row.ShippingName = null.StringFrom(ord.Shipping.Name)
		row.ShippingAddress = null.StringFrom(ord.Shipping.Address)
		row.ShippingPhone = null.StringFrom(ord.Shipping.Phone)
		row.ShippingStatus = null.StringFrom(ord.Shipping.Status)
	}
	return row
}

func (repo orderRepository) unrow(row orderRow) order.Order {
	ord := order.Order{
		ID:          row.ID,
		UserID:      row.UserID,
		ItemType:    row.ItemType,
		ItemID:      row.ItemID,
		ItemTitle:   row.ItemTitle,
		Subtotal:    row.Subtotal,
		Discount:    row.Discount,
		ShippingFee: row.ShippingFee,
		Total:       row.Total,
		CouponID:    row.CouponID,
		CouponCode:  row.CouponCode,
		Status:      row.Status,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
	if row.ShippingStatus.Valid {
		ord.Shipping = &order.ShippingInfo{
			Name:    row.ShippingName.String,
			Address: row.ShippingAddress.String,
			Phone:   row.ShippingPhone.String,
			Status:  row.ShippingStatus.String,
		}
	}
	return ord
}

// trapNoRowsErr maps psql "no rows" err to order.ErrNotFound
func (repo orderRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return order.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const orderInsertQuery = `
INSERT INTO "order" (id, user_id, item_type, item_id, item_title, subtotal, discount, shipping_fee, total,
                     coupon_id, coupon_code, status, shipping_name, shipping_address, shipping_phone,
                     shipping_status, created_at, updated_at)
VALUES (:id, :user_id, :item_type, :item_id, :item_title, :subtotal, :discount, :shipping_fee, :total,
        :coupon_id, :coupon_code, :status, :shipping_name, :shipping_address, :shipping_phone,
        :shipping_status, :created_at, :updated_at)`

func (repo orderRepository) CreateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	if _, err := repo.db.NamedExecContext(ctx, orderInsertQuery, repo.row(ord)); err != nil {
		return order.Order{}, errors.Wrap(err, "inserting order")
	}
	return ord, nil
}

func (repo orderRepository) GetOrderByID(ctx context.Context, id string) (order.Order, error) {
	var row orderRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "order" WHERE id = $1`, id); err != nil {
		return order.Order{}, repo.trapNoRowsErr(err, "getting order")
	}
	return repo.unrow(row), nil
}

func (repo orderRepository) FilterOrders(ctx context.Context, filter order.QueryFilter, ordering ...core.DBOrdering) ([]order.Order, error) {
	var (
		clauses []string
		args    []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != "" {
		clauses = append(clauses, fmt.Sprintf("user_id = %s", arg(filter.UserID)))
	}
	if filter.ItemType != "" {
		clauses = append(clauses, fmt.Sprintf("item_type = %s", arg(filter.ItemType)))
	}
	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = %s", arg(filter.Status)))
	}

	q := `SELECT * FROM "order"`
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += orderBy(ordering)

	rows := make([]orderRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering orders")
	}
	orders := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, repo.unrow(row))
	}
	return orders, nil
}

func (repo orderRepository) UpdateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	q := `
UPDATE "order"
SET status = :status, shipping_name = :shipping_name, shipping_address = :shipping_address,
    shipping_phone = :shipping_phone, shipping_status = :shipping_status, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.row(ord))
	if err != nil {
		return order.Order{}, errors.Wrap(err, "updating order")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return order.Order{}, order.ErrNotFound
	}
	return ord, nil
}

// CompleteOrder finalizes a pending order in one transaction. The coupon
// usage increment is conditional on the usage limit so two concurrent
// completions cannot both redeem the last slot; the loser rolls back with
// coupon.ErrExhausted.
func (repo orderRepository) CompleteOrder(ctx context.Context, ord order.Order, pay order.Payment) (order.Order, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	if ord.CouponID.Valid {
		res, err := tx.ExecContext(ctx, `
UPDATE coupon SET usage_count = usage_count + 1, updated_at = $2
WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`,
			ord.CouponID.String, now)
		if err != nil {
			return order.Order{}, errors.Wrap(err, "incrementing coupon usage")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return order.Order{}, coupon.ErrExhausted
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO coupon_usage (id, coupon_id, user_id, order_id, used_at)
VALUES ($1, $2, $3, $4, $5)`,
			uuid.New().String(), ord.CouponID.String, ord.UserID, ord.ID, now)
		if err != nil {
			return order.Order{}, errors.Wrap(err, "inserting coupon usage")
		}
	}

	ord.Status = order.StatusCompleted
	ord.UpdatedAt = now
	res, err := tx.ExecContext(ctx, `UPDATE "order" SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		ord.ID, ord.Status, now, order.StatusPending)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "completing order")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return order.Order{}, order.ErrNotPending
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO payment (id, order_id, method, amount, reference, paid_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		pay.ID, pay.OrderID, pay.Method, pay.Amount, pay.Reference, pay.PaidAt.UTC())
	if err != nil {
		return order.Order{}, errors.Wrap(err, "inserting payment")
	}

	if ord.ItemType == coupon.ItemTypeCourse {
		_, err = tx.ExecContext(ctx, `
INSERT INTO enrollment (id, user_id, course_id, status, progress, created_at, updated_at)
VALUES ($1, $2, $3, $4, 0, $5, $5)
ON CONFLICT (user_id, course_id) DO NOTHING`,
			uuid.New().String(), ord.UserID, ord.ItemID, course.StatusActive, now)
		if err != nil {
			return order.Order{}, errors.Wrap(err, "enrolling buyer")
		}
	}

	if err = tx.Commit(); err != nil {
		return order.Order{}, errors.Wrap(err, "committing transaction")
	}
	return ord, nil
}

func (repo orderRepository) GetPayment(ctx context.Context, orderID string) (order.Payment, error) {
	var row struct {
		ID        string    `db:"id"`
		OrderID   string    `db:"order_id"`
		Method    string    `db:"method"`
		Amount    float64   `db:"amount"`
		Reference string    `db:"reference"`
		PaidAt    null.Time `db:"paid_at"`
	}
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM payment WHERE order_id = $1`, orderID); err != nil {
		return order.Payment{}, repo.trapNoRowsErr(err, "getting payment")
	}
	return order.Payment{
		ID:        row.ID,
		OrderID:   row.OrderID,
		Method:    row.Method,
		Amount:    row.Amount,
		Reference: row.Reference,
		PaidAt:    row.PaidAt.Time,
	}, nil
}

func (repo orderRepository) GetStats(ctx context.Context) (order.Stats, error) {
	stats := order.Stats{ByItemType: make(map[string]int)}

	var counts []struct {
		Status string  `db:"status"`
		Count  int     `db:"count"`
		Total  float64 `db:"total"`
	}
	q := `SELECT status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total FROM "order" GROUP BY status`
	if err := repo.db.SelectContext(ctx, &counts, q); err != nil {
		return order.Stats{}, errors.Wrap(err, "querying order stats")
	}
	for _, c := range counts {
		switch c.Status {
		case order.StatusCompleted:
			stats.CompletedOrders = c.Count
			stats.Revenue = c.Total
		case order.StatusPending:
			stats.PendingOrders = c.Count
		}
	}

	var byType []struct {
		ItemType string `db:"item_type"`
		Count    int    `db:"count"`
	}
	q = `SELECT item_type, COUNT(*) AS count FROM "order" WHERE status = $1 GROUP BY item_type`
	if err := repo.db.SelectContext(ctx, &byType, q, order.StatusCompleted); err != nil {
		return order.Stats{}, errors.Wrap(err, "querying order stats")
	}
	for _, t := range byType {
		stats.ByItemType[t.ItemType] = t.Count
	}
	return stats, nil
}
