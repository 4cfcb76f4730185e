package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/course"
	"github.com/tshilobo/soko/core/user"
)

type (
	ProgressRequest struct {
		ContentID string `json:"content_id" validate:"required"`
	}

	ChapterRequest struct {
		Title    string `json:"title" validate:"required"`
		Position int    `json:"position" validate:"omitempty,gte=0"`
	}

	ContentRequest struct {
		Title    string `json:"title" validate:"required"`
		Kind     string `json:"kind" validate:"required,oneof=VIDEO ARTICLE PDF"`
		URL      string `json:"url" validate:"omitempty,url"`
		Position int    `json:"position" validate:"omitempty,gte=0"`
	}

	DeleteIDsRequest struct {
		IDs []string `json:"ids" validate:"required,min=1"`
	}
)

func (r *ProgressRequest) Validate() error { return core.Validate.Struct(r) }

func (r *ChapterRequest) Validate() error {
	r.Title = core.CleanString(r.Title)
	return core.Validate.Struct(r)
}

func (r *ContentRequest) Validate() error {
	r.Title = core.CleanString(r.Title)
	return core.Validate.Struct(r)
}

func (r *DeleteIDsRequest) Validate() error { return core.Validate.Struct(r) }

// sortable course columns
var courseOrderFields = []string{"title", "slug", "price", "is_free", "is_published", "created_at", "updated_at"}

type courseApi struct {
	svc     course.Service
	userSvc user.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc course.Service, userSvc user.Service) {
	api := courseApi{svc: svc, userSvc: userSvc}

	cg := g.Group("/courses")

	// un-authed endpoints; published courses only
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)

	// authed endpoints
	ag := cg.Group("", jwt)
	ag.GET("/enrollments", api.queryEnrollments)
	ag.GET("/:id/access", api.checkAccess)
	ag.POST("/:id/enroll", api.enroll)
	ag.DELETE("/:id/enroll", api.cancelEnrollment)
	ag.POST("/:id/progress", api.updateProgress)

	// staff endpoints
	sg := cg.Group("", jwt, staffMiddleware())
	sg.GET("/all", api.queryAll)
	sg.POST("", api.create)
	sg.PUT("/:id", api.update)
	sg.DELETE("", api.destroyMultiple)
	sg.POST("/:id/chapters", api.addChapter)
	sg.PUT("/:id/chapters/:chid", api.updateChapter)
	sg.DELETE("/:id/chapters", api.destroyChapters)
	sg.POST("/:id/chapters/:chid/contents", api.addContent)
	sg.PUT("/:id/chapters/:chid/contents/:cid", api.updateContent)
	sg.DELETE("/:id/contents", api.destroyContents)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	published := true
	filter.IsPublished = &published
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, courseOrderFields...); err != nil {
		return err
	}

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) queryAll(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, courseOrderFields...); err != nil {
		return err
	}

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

// retrieve looks the course up by id first, then by slug.
func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if errors.Cause(err) == course.ErrNotFound {
		crs, err = api.svc.GetBySlug(ctx.Request().Context(), ctx.Param("id"))
	}
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting course")
	}
	if !crs.IsPublished {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	// instructors create courses under their own name
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() || data.InstructorID == "" {
		data.InstructorID = ctxUsr.ID
	}
	if err := data.Validate(); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.checkCourseOwnership(ctx, ctx.Param("id")); err != nil {
		return err
	}
	crs, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroyMultiple(ctx echo.Context) error {
	var data DeleteIDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding ids")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	for _, id := range data.IDs {
		if err := api.checkCourseOwnership(ctx, id); err != nil {
			return err
		}
	}
	if err := api.svc.Delete(ctx.Request().Context(), data.IDs...); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) checkAccess(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	decision, _, err := api.svc.CheckAccess(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "checking course access")
	}
	return ctx.JSON(http.StatusOK, decision)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	enr, err := api.svc.Enroll(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) cancelEnrollment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	enr, err := api.svc.CancelEnrollment(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrEnrollmentNotFound || errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "canceling enrollment")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *courseApi) updateProgress(ctx echo.Context) error {
	var data ProgressRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	enr, err := api.svc.UpdateProgress(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data.ContentID)
	if err != nil {
		switch errors.Cause(err) {
		case course.ErrNotFound, course.ErrEnrollmentNotFound, course.ErrContentNotFound:
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating progress")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *courseApi) queryEnrollments(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	enrs, err := api.svc.QueryEnrollments(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []course.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *courseApi) addChapter(ctx echo.Context) error {
	var data course.NewChapter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChapter")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.checkCourseOwnership(ctx, ctx.Param("id")); err != nil {
		return err
	}
	ch, err := api.svc.AddChapter(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "adding chapter")
	}
	return ctx.JSON(http.StatusCreated, ch)
}

func (api *courseApi) updateChapter(ctx echo.Context) error {
	var data ChapterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChapterRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.checkCourseOwnership(ctx, ctx.Param("id")); err != nil {
		return err
	}
	ch, err := api.svc.UpdateChapter(ctx.Request().Context(), course.Chapter{
		ID:       ctx.Param("chid"),
		CourseID: ctx.Param("id"),
		Title:    data.Title,
		Position: data.Position,
	})
	if err != nil {
		if errors.Cause(err) == course.ErrChapterNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating chapter")
	}
	return ctx.JSON(http.StatusOK, ch)
}

func (api *courseApi) destroyChapters(ctx echo.Context) error {
	var data DeleteIDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding ids")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if err := api.checkCourseOwnership(ctx, ctx.Param("id")); err != nil {
		return err
	}
	if err := api.svc.DeleteChapters(ctx.Request().Context(), data.IDs...); err != nil {
		return errors.Wrap(err, "deleting chapters")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) addContent(ctx echo.Context) error {
	var data course.NewContent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.checkCourseOwnership(ctx, ctx.Param("id")); err != nil {
		return err
	}
	cnt, err := api.svc.AddContent(ctx.Request().Context(), ctx.Param("id"), ctx.Param("chid"), data)
	if err != nil {
		switch errors.Cause(err) {
		case course.ErrNotFound, course.ErrChapterNotFound:
			return errHttpNotFound
		}
		return errors.Wrap(err, "adding content")
	}
	return ctx.JSON(http.StatusCreated, cnt)
}

func (api *courseApi) updateContent(ctx echo.Context) error {
	var data ContentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ContentRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.checkCourseOwnership(ctx, ctx.Param("id")); err != nil {
		return err
	}
	cnt, err := api.svc.UpdateContent(ctx.Request().Context(), course.Content{
		ID:        ctx.Param("cid"),
		ChapterID: ctx.Param("chid"),
		Title:     data.Title,
		Kind:      data.Kind,
		URL:       data.URL,
		Position:  data.Position,
	})
	if err != nil {
		if errors.Cause(err) == course.ErrContentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating content")
	}
	return ctx.JSON(http.StatusOK, cnt)
}

func (api *courseApi) destroyContents(ctx echo.Context) error {
	var data DeleteIDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding ids")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if err := api.checkCourseOwnership(ctx, ctx.Param("id")); err != nil {
		return err
	}
	if err := api.svc.DeleteContents(ctx.Request().Context(), data.IDs...); err != nil {
		return errors.Wrap(err, "deleting contents")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// checkCourseOwnership lets admins touch any course, instructors only their own.
func (api *courseApi) checkCourseOwnership(ctx echo.Context, courseID string) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if claims.IsAdmin {
		return nil
	}
	crs, err := api.svc.GetByID(ctx.Request().Context(), courseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting course")
	}
	if crs.InstructorID != claims.Subject {
		return errHttpForbidden
	}
	return nil
}
