package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tshilobo/soko/core/order"
	"github.com/tshilobo/soko/core/user"
)

// sortable order columns
var orderOrderFields = []string{"item_type", "item_title", "subtotal", "total", "status", "created_at", "updated_at"}

type orderApi struct {
	svc     order.Service
	userSvc user.Service
}

func registerOrderAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc order.Service, userSvc user.Service) {
	api := orderApi{svc: svc, userSvc: userSvc}

	og := g.Group("/orders", jwt)

	og.POST("", api.checkout)
	og.GET("", api.queryMine)
	og.GET("/:id", api.retrieve)
	og.GET("/:id/payment", api.retrievePayment)
	og.POST("/:id/complete", api.complete)
	og.POST("/:id/cancel", api.cancel)

	// admin endpoints
	adg := og.Group("", adminMiddleware())
	adg.GET("/all", api.queryAll)
	adg.GET("/stats", api.stats)
	adg.PUT("/:id/shipping", api.updateShipping)
}

// Handlers

func (api *orderApi) checkout(ctx echo.Context) error {
	var data order.NewOrder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOrder")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ord, err := api.svc.Checkout(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "checking out")
	}
	return ctx.JSON(http.StatusCreated, ord)
}

func (api *orderApi) queryMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	ords, err := api.svc.QueryByUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying orders")
	}
	if ords == nil {
		ords = []order.Order{}
	}
	return ctx.JSON(http.StatusOK, ords)
}

func (api *orderApi) queryAll(ctx echo.Context) error {
	filter := new(order.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []order.Order{})
	}
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, orderOrderFields...); err != nil {
		return err
	}

	ords, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying orders")
	}
	if ords == nil {
		ords = []order.Order{}
	}
	return ctx.JSON(http.StatusOK, ords)
}

// retrieve hides other users' orders from non-admins.
func (api *orderApi) retrieve(ctx echo.Context) error {
	ord, err := api.getOwnedOrder(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ord)
}

func (api *orderApi) retrievePayment(ctx echo.Context) error {
	if _, err := api.getOwnedOrder(ctx); err != nil {
		return err
	}
	pay, err := api.svc.GetPayment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == order.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting payment")
	}
	return ctx.JSON(http.StatusOK, pay)
}

func (api *orderApi) complete(ctx echo.Context) error {
	var data order.CompleteOrder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteOrder")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ord, err := api.svc.Complete(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == order.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "completing order")
	}
	return ctx.JSON(http.StatusOK, ord)
}

func (api *orderApi) cancel(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ord, err := api.svc.Cancel(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == order.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "canceling order")
	}
	return ctx.JSON(http.StatusOK, ord)
}

func (api *orderApi) updateShipping(ctx echo.Context) error {
	var data order.UpdateShipping
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateShipping")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ord, err := api.svc.SetShippingStatus(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == order.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating shipping status")
	}
	return ctx.JSON(http.StatusOK, ord)
}

func (api *orderApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting order stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *orderApi) getOwnedOrder(ctx echo.Context) (order.Order, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return order.Order{}, err
	}
	ord, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == order.ErrNotFound {
			return order.Order{}, errHttpNotFound
		}
		return order.Order{}, errors.Wrap(err, "getting order")
	}
	if ord.UserID != claims.Subject && !claims.IsAdmin {
		return order.Order{}, errHttpNotFound
	}
	return ord, nil
}
