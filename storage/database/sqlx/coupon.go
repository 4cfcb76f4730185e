package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/coupon"
)

type couponRepository struct {
	db *sqlx.DB
}

var _ coupon.Repository = (*couponRepository)(nil) // interface compliance check

func NewCouponRepository(db *sqlx.DB) *couponRepository {
	return &couponRepository{db: db}
}

type couponRow struct {
	ID             string         `db:"id"`
	Code           string         `db:"code"`
	Type           string         `db:"type"`
	Value          float64        `db:"value"`
	MinOrderAmount float64        `db:"min_order_amount"`
	MaxDiscount    null.Float64   `db:"max_discount"`
	UsageLimit     null.Int       `db:"usage_limit"`
	PerUserLimit   null.Int       `db:"per_user_limit"`
	UsageCount     int            `db:"usage_count"`
	ValidFrom      null.Time      `db:"valid_from"`
	ValidUntil     null.Time      `db:"valid_until"`
	Scope          string         `db:"scope"`
	Items          pq.StringArray `db:"items"`
	IsActive       bool           `db:"is_active"`
	CreatedAt      null.Time      `db:"created_at"`
	UpdatedAt      null.Time      `db:"updated_at"`
}

func (repo couponRepository) row(cpn coupon.Coupon) couponRow {
	return couponRow{
		ID:             cpn.ID,
		Code:           cpn.Code,
		Type:           cpn.Type,
		Value:          cpn.Value,
		MinOrderAmount: cpn.MinOrderAmount,
		MaxDiscount:    cpn.MaxDiscount,
		UsageLimit:     cpn.UsageLimit,
		PerUserLimit:   cpn.PerUserLimit,
		UsageCount:     cpn.UsageCount,
		ValidFrom:      null.NewTime(cpn.ValidFrom.UTC(), !cpn.ValidFrom.IsZero()),
		ValidUntil:     null.NewTime(cpn.ValidUntil.UTC(), !cpn.ValidUntil.IsZero()),
		Scope:          cpn.Scope,
		Items:          cpn.Items,
		IsActive:       cpn.IsActive,
		CreatedAt:      null.NewTime(cpn.CreatedAt.UTC(), !cpn.CreatedAt.IsZero()),
		UpdatedAt:      null.NewTime(cpn.UpdatedAt.UTC(), !cpn.UpdatedAt.IsZero()),
	}
}

func (repo couponRepository) unrow(row couponRow) coupon.Coupon {
	return coupon.Coupon{
		ID:             row.ID,
		Code:           row.Code,
		Type:           row.Type,
		Value:          row.Value,
		MinOrderAmount: row.MinOrderAmount,
		MaxDiscount:    row.MaxDiscount,
		UsageLimit:     row.UsageLimit,
		PerUserLimit:   row.PerUserLimit,
		UsageCount:     row.UsageCount,
		ValidFrom:      row.ValidFrom.Time,
		ValidUntil:     row.ValidUntil.Time,
		Scope:          row.Scope,
		Items:          row.Items,
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to coupon.ErrNotFound
func (repo couponRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return coupon.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo couponRepository) CheckCodeUniqueness(ctx context.Context, code string) error {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM coupon WHERE lower(code) = lower($1))`
	if err := repo.db.GetContext(ctx, &exists, q, code); err != nil {
		return errors.Wrap(err, "checking coupon code uniqueness")
	}
	if exists {
		return coupon.ErrCodeExists
	}
	return nil
}

func (repo couponRepository) CreateCoupon(ctx context.Context, cpn coupon.Coupon) (coupon.Coupon, error) {
	q := `
INSERT INTO coupon (id, code, type, value, min_order_amount, max_discount, usage_limit, per_user_limit,
                    usage_count, valid_from, valid_until, scope, items, is_active, created_at, updated_at)
VALUES (:id, :code, :type, :value, :min_order_amount, :max_discount, :usage_limit, :per_user_limit,
        :usage_count, :valid_from, :valid_until, :scope, :items, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.row(cpn)); err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "inserting coupon")
	}
	return cpn, nil
}

func (repo couponRepository) QueryAllCoupons(ctx context.Context, ordering ...core.DBOrdering) ([]coupon.Coupon, error) {
	rows := make([]couponRow, 0)
	q := `SELECT * FROM coupon` + orderBy(ordering)
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying coupons")
	}
	coupons := make([]coupon.Coupon, 0, len(rows))
	for _, row := range rows {
		coupons = append(coupons, repo.unrow(row))
	}
	return coupons, nil
}

func (repo couponRepository) GetCouponByID(ctx context.Context, id string) (coupon.Coupon, error) {
	var row couponRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM coupon WHERE id = $1`, id); err != nil {
		return coupon.Coupon{}, repo.trapNoRowsErr(err, "getting coupon")
	}
	return repo.unrow(row), nil
}

func (repo couponRepository) GetCouponByCode(ctx context.Context, code string) (coupon.Coupon, error) {
	var row couponRow
	q := `SELECT * FROM coupon WHERE lower(code) = lower($1)`
	if err := repo.db.GetContext(ctx, &row, q, code); err != nil {
		return coupon.Coupon{}, repo.trapNoRowsErr(err, "getting coupon")
	}
	return repo.unrow(row), nil
}

func (repo couponRepository) CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error) {
	var count int
	q := `SELECT COUNT(*) FROM coupon_usage WHERE coupon_id = $1 AND user_id = $2`
	if err := repo.db.GetContext(ctx, &count, q, couponID, userID); err != nil {
		return 0, errors.Wrap(err, "counting user redemptions")
	}
	return count, nil
}

func (repo couponRepository) QueryCouponUsages(ctx context.Context, couponID string) ([]coupon.Usage, error) {
	rows := make([]couponUsageRow, 0)
	q := `SELECT * FROM coupon_usage WHERE coupon_id = $1 ORDER BY used_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, couponID); err != nil {
		return nil, errors.Wrap(err, "querying coupon usages")
	}
	usages := make([]coupon.Usage, 0, len(rows))
	for _, row := range rows {
		usages = append(usages, coupon.Usage{
			ID:       row.ID,
			CouponID: row.CouponID,
			UserID:   row.UserID,
			OrderID:  row.OrderID,
			UsedAt:   row.UsedAt.Time,
		})
	}
	return usages, nil
}

type couponUsageRow struct {
	ID       string    `db:"id"`
	CouponID string    `db:"coupon_id"`
	UserID   string    `db:"user_id"`
	OrderID  string    `db:"order_id"`
	UsedAt   null.Time `db:"used_at"`
}

func (repo couponRepository) UpdateCoupon(ctx context.Context, cpn coupon.Coupon) (coupon.Coupon, error) {
	q := `
UPDATE coupon
SET code = :code, type = :type, value = :value, min_order_amount = :min_order_amount,
    max_discount = :max_discount, usage_limit = :usage_limit, per_user_limit = :per_user_limit,
    valid_from = :valid_from, valid_until = :valid_until, scope = :scope, items = :items,
    is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.row(cpn))
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "updating coupon")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return coupon.Coupon{}, coupon.ErrNotFound
	}
	return cpn, nil
}

func (repo couponRepository) DeleteCouponsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM coupon WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting coupons")
	}
	return nil
}
