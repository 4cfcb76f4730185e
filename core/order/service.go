package order

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/coupon"
	"github.com/tshilobo/soko/core/course"
	"github.com/tshilobo/soko/core/ebook"
	"github.com/tshilobo/soko/core/user"
)

var (
	ErrNotFound    = errors.New("order not found")
	ErrNotPending  = errors.New("order is not pending")
	ErrItemNotSold = errors.New("item is not available for purchase")
)

type (
	Repository interface {
		CreateOrder(ctx context.Context, ord Order) (Order, error)
		GetOrderByID(ctx context.Context, id string) (Order, error)
		// FilterOrders applies AND on available QueryFilter fields.
		FilterOrders(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Order, error)
		UpdateOrder(ctx context.Context, ord Order) (Order, error)

		// CompleteOrder atomically finalizes a pending order: when a coupon
		// is attached, its usage count is incremented only while still under
		// the usage limit and a usage row is recorded; the order flips to
		// COMPLETED, the payment is stored and, for course orders, the buyer
		// is enrolled. A coupon that hit its limit since checkout aborts the
		// whole transaction with coupon.ErrExhausted.
		CompleteOrder(ctx context.Context, ord Order, pay Payment) (Order, error)

		GetPayment(ctx context.Context, orderID string) (Payment, error)
		GetStats(ctx context.Context) (Stats, error)
	}

	Service interface {
		// Checkout prices the item, applies an optional coupon and creates
		// a PENDING order.
		Checkout(ctx context.Context, usr user.User, no NewOrder) (Order, error)
		// Complete confirms payment on a pending order owned by usr.
		Complete(ctx context.Context, usr user.User, orderID string, co CompleteOrder) (Order, error)
		Cancel(ctx context.Context, usr user.User, orderID string) (Order, error)
		GetByID(ctx context.Context, id string) (Order, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Order, error)
		QueryByUser(ctx context.Context, userID string) ([]Order, error)
		SetShippingStatus(ctx context.Context, orderID string, us UpdateShipping) (Order, error)
		GetPayment(ctx context.Context, orderID string) (Payment, error)
		Stats(ctx context.Context) (Stats, error)
	}

	service struct {
		repo      Repository
		courseSvc course.Service
		ebookSvc  ebook.Service
		couponSvc coupon.Service
		mailSvc   core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service, ebookSvc ebook.Service, couponSvc coupon.Service, mailSvc core.EmailService) Service {
	return &service{
		repo:      repo,
		courseSvc: courseSvc,
		ebookSvc:  ebookSvc,
		couponSvc: couponSvc,
		mailSvc:   mailSvc,
	}
}

func (svc *service) Checkout(ctx context.Context, usr user.User, no NewOrder) (Order, error) {
	if err := no.Validate(); err != nil {
		return Order{}, err
	}

	now := time.Now().UTC()
	ord := Order{
		ID:        uuid.New().String(),
		UserID:    usr.ID,
		ItemType:  no.ItemType,
		ItemID:    no.ItemID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch no.ItemType {
	case coupon.ItemTypeCourse:
		crs, err := svc.courseSvc.GetByID(ctx, no.ItemID)
		if err != nil {
			return Order{}, err
		}
		if !crs.IsPublished || crs.IsFree {
			return Order{}, core.NewValidationError(ErrItemNotSold)
		}
		if enr, err := svc.courseSvc.QueryEnrollments(ctx, usr.ID); err == nil {
			for _, e := range enr {
				if e.CourseID == crs.ID && e.Status == course.StatusActive {
					return Order{}, core.NewValidationError(errors.New("already enrolled in this course"))
				}
			}
		}
		ord.ItemTitle = crs.Title
		ord.Subtotal = crs.Price
	case coupon.ItemTypeEbook:
		eb, err := svc.ebookSvc.GetByID(ctx, no.ItemID)
		if err != nil {
			return Order{}, err
		}
		if !eb.IsPublished {
			return Order{}, core.NewValidationError(ErrItemNotSold)
		}
		ord.ItemTitle = eb.Title
		ord.Subtotal = eb.Price
		if eb.RequiresShipping() {
			if no.Shipping == nil {
				return Order{}, core.NewValidationError(
					nil, core.FieldError{Field: "shipping", Error: "shipping address is required for print ebooks"})
			}
			ord.ShippingFee = coupon.ShippingFlatFee
			ord.Shipping = &ShippingInfo{
				Name:    no.Shipping.Name,
				Address: no.Shipping.Address,
				Phone:   no.Shipping.Phone,
				Status:  ShippingPending,
			}
		}
	}

	total := ord.Subtotal
	if no.CouponCode != "" {
		quote, err := svc.couponSvc.Validate(ctx, no.CouponCode, usr.ID, ord.ItemType, ord.ItemID, ord.Subtotal)
		if err != nil {
			return Order{}, err
		}
		ord.CouponID = null.StringFrom(quote.Coupon.ID)
		ord.CouponCode = quote.Coupon.Code
		ord.Discount = quote.Discount
		total = quote.FinalTotal
	}
	ord.Total = core.Round2(total + ord.ShippingFee)

	return svc.repo.CreateOrder(ctx, ord)
}

func (svc *service) Complete(ctx context.Context, usr user.User, orderID string, co CompleteOrder) (Order, error) {
	if err := co.Validate(); err != nil {
		return Order{}, err
	}
	ord, err := svc.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if ord.UserID != usr.ID && !usr.IsAdmin() {
		return Order{}, core.NewNotFoundError(fmt.Sprintf("order %s not found", orderID))
	}
	if ord.Status != StatusPending {
		return Order{}, core.NewValidationError(ErrNotPending)
	}

	pay := Payment{
		ID:        uuid.New().String(),
		OrderID:   ord.ID,
		Method:    co.Method,
		Amount:    ord.Total,
		Reference: co.Reference,
		PaidAt:    time.Now().UTC(),
	}
	ord, err = svc.repo.CompleteOrder(ctx, ord, pay)
	if err != nil {
		if errors.Cause(err) == coupon.ErrExhausted {
			return Order{}, core.NewValidationError(coupon.ErrExhausted)
		}
		return Order{}, err
	}
	if ord.CouponCode != "" {
		// redemption bumped usage_count; cached quotes must not outlive it
		svc.couponSvc.InvalidateCode(ctx, ord.CouponCode)
	}

	svc.sendReceiptMail(usr, ord)
	return ord, nil
}

func (svc *service) Cancel(ctx context.Context, usr user.User, orderID string) (Order, error) {
	ord, err := svc.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if ord.UserID != usr.ID && !usr.IsAdmin() {
		return Order{}, core.NewNotFoundError(fmt.Sprintf("order %s not found", orderID))
	}
	if ord.Status != StatusPending {
		return Order{}, core.NewValidationError(ErrNotPending)
	}
	ord.Status = StatusCanceled
	ord.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateOrder(ctx, ord)
}

func (svc *service) GetByID(ctx context.Context, id string) (Order, error) {
	return svc.repo.GetOrderByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Order, error) {
	if len(ordering) == 0 {
		ordering = append(ordering, core.DBOrdering{Field: "created_at"})
	}
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.FilterOrders(ctx, *filter, ordering...)
}

func (svc *service) QueryByUser(ctx context.Context, userID string) ([]Order, error) {
	return svc.repo.FilterOrders(ctx, QueryFilter{UserID: userID}, core.DBOrdering{Field: "created_at"})
}

func (svc *service) SetShippingStatus(ctx context.Context, orderID string, us UpdateShipping) (Order, error) {
	if err := us.Validate(); err != nil {
		return Order{}, err
	}
	ord, err := svc.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if ord.Shipping == nil {
		return Order{}, core.NewValidationError(errors.New("order has no shipping"))
	}
	ord.Shipping.Status = us.Status
	ord.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateOrder(ctx, ord)
}

func (svc *service) GetPayment(ctx context.Context, orderID string) (Payment, error) {
	return svc.repo.GetPayment(ctx, orderID)
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	return svc.repo.GetStats(ctx)
}

func (svc *service) sendReceiptMail(usr user.User, ord Order) {
	if usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("Your %s receipt", core.Conf.AppName),
		TemplateName: "order-receipt",
		TemplateData: struct {
			Name  string
			Order Order
		}{Name: usr.Name, Order: ord},
		BodyStr: fmt.Sprintf("Hi %s, your payment of %.2f for %q was received.", usr.Name, ord.Total, ord.ItemTitle),
	})
}
