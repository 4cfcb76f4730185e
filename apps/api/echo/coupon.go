package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/coupon"
)

type (
	ValidateCouponRequest struct {
		Code     string  `json:"code" validate:"required"`
		ItemType string  `json:"item_type" validate:"required,oneof=course ebook"`
		ItemID   string  `json:"item_id" validate:"required"`
		Subtotal float64 `json:"subtotal" validate:"required,gt=0"`
	}
)

func (r *ValidateCouponRequest) Validate() error {
	r.Code = core.CleanString(r.Code, true /* lower */)
	return core.Validate.Struct(r)
}

// sortable coupon columns
var couponOrderFields = []string{"code", "type", "value", "usage_count", "valid_from", "valid_until", "is_active", "created_at", "updated_at"}

type couponApi struct {
	svc coupon.Service
}

func registerCouponAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc coupon.Service) {
	api := couponApi{svc: svc}

	cg := g.Group("/coupons", jwt)

	// any authed user can price a cart against a code
	cg.POST("/validate", api.validate)

	// admin endpoints
	adg := cg.Group("", adminMiddleware())
	adg.POST("", api.create)
	adg.GET("", api.query)
	adg.GET("/:id", api.retrieve)
	adg.GET("/:id/usages", api.queryUsages)
	adg.PUT("/:id", api.update)
	adg.DELETE("", api.destroyMultiple)
}

// Handlers

func (api *couponApi) validate(ctx echo.Context) error {
	var data ValidateCouponRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ValidateCouponRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	quote, err := api.svc.Validate(ctx.Request().Context(), data.Code, claims.Subject, data.ItemType, data.ItemID, data.Subtotal)
	if err != nil {
		return errors.Wrap(err, "validating coupon")
	}
	return ctx.JSON(http.StatusOK, quote)
}

func (api *couponApi) create(ctx echo.Context) error {
	var data coupon.NewCoupon
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCoupon")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	cpn, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating coupon")
	}
	return ctx.JSON(http.StatusCreated, cpn)
}

func (api *couponApi) query(ctx echo.Context) error {
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, couponOrderFields...); err != nil {
		return err
	}

	coupons, err := api.svc.QueryAll(ctx.Request().Context(), ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying coupons")
	}
	if coupons == nil {
		coupons = []coupon.Coupon{}
	}
	return ctx.JSON(http.StatusOK, coupons)
}

func (api *couponApi) retrieve(ctx echo.Context) error {
	cpn, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == coupon.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting coupon")
	}
	return ctx.JSON(http.StatusOK, cpn)
}

func (api *couponApi) queryUsages(ctx echo.Context) error {
	usages, err := api.svc.Usages(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying coupon usages")
	}
	if usages == nil {
		usages = []coupon.Usage{}
	}
	return ctx.JSON(http.StatusOK, usages)
}

func (api *couponApi) update(ctx echo.Context) error {
	var data coupon.UpdateCoupon
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCoupon")
	}

	cpn, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == coupon.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating coupon")
	}
	return ctx.JSON(http.StatusOK, cpn)
}

func (api *couponApi) destroyMultiple(ctx echo.Context) error {
	var data DeleteIDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding ids")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), data.IDs...); err != nil {
		return errors.Wrap(err, "deleting coupons")
	}
	return ctx.NoContent(http.StatusNoContent)
}
