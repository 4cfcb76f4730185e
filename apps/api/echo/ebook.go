package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tshilobo/soko/core/ebook"
)

// sortable ebook columns
var ebookOrderFields = []string{"title", "author", "price", "format", "stock", "is_published", "created_at", "updated_at"}

type ebookApi struct {
	svc ebook.Service
}

func registerEbookAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc ebook.Service) {
	api := ebookApi{svc: svc}

	eg := g.Group("/ebooks")

	// un-authed endpoints; published ebooks only
	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)

	// admin endpoints
	adg := eg.Group("", jwt, adminMiddleware())
	adg.GET("/all", api.queryAll)
	adg.POST("", api.create)
	adg.PUT("/:id", api.update)
	adg.DELETE("", api.destroyMultiple)
}

// Handlers

func (api *ebookApi) query(ctx echo.Context) error {
	filter := new(ebook.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []ebook.Ebook{})
	}
	published := true
	filter.IsPublished = &published
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, ebookOrderFields...); err != nil {
		return err
	}

	ebooks, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying ebooks")
	}
	if ebooks == nil {
		ebooks = []ebook.Ebook{}
	}
	return ctx.JSON(http.StatusOK, ebooks)
}

func (api *ebookApi) queryAll(ctx echo.Context) error {
	filter := new(ebook.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []ebook.Ebook{})
	}
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, ebookOrderFields...); err != nil {
		return err
	}

	ebooks, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying ebooks")
	}
	if ebooks == nil {
		ebooks = []ebook.Ebook{}
	}
	return ctx.JSON(http.StatusOK, ebooks)
}

func (api *ebookApi) retrieve(ctx echo.Context) error {
	eb, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == ebook.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting ebook")
	}
	if !eb.IsPublished {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, eb)
}

func (api *ebookApi) create(ctx echo.Context) error {
	var data ebook.NewEbook
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEbook")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	eb, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating ebook")
	}
	return ctx.JSON(http.StatusCreated, eb)
}

func (api *ebookApi) update(ctx echo.Context) error {
	var data ebook.UpdateEbook
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEbook")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	eb, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == ebook.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating ebook")
	}
	return ctx.JSON(http.StatusOK, eb)
}

func (api *ebookApi) destroyMultiple(ctx echo.Context) error {
	var data DeleteIDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding ids")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), data.IDs...); err != nil {
		return errors.Wrap(err, "deleting ebooks")
	}
	return ctx.NoContent(http.StatusNoContent)
}
