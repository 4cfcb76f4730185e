package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/exam"
)

type QuestionRequest struct {
	Prompt       string   `json:"prompt" validate:"required"`
	Choices      []string `json:"choices" validate:"required,min=2,dive,required"`
	CorrectIndex int      `json:"correct_index" validate:"gte=0"`
	Position     int      `json:"position" validate:"omitempty,gte=0"`
}

func (r *QuestionRequest) Validate() error {
	r.Prompt = core.CleanString(r.Prompt)
	if err := core.Validate.Struct(r); err != nil {
		return err
	}
	if r.CorrectIndex >= len(r.Choices) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "correct_index", Error: "must point at one of the choices",
		})
	}
	return nil
}

type examApi struct {
	svc exam.Service
}

func registerExamAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc exam.Service) {
	api := examApi{svc: svc}

	xg := g.Group("/exams", jwt)

	xg.GET("/:id", api.retrieve)
	xg.POST("/:id/take", api.take)
	xg.GET("/:id/attempts", api.queryAttempts)

	// staff endpoints
	sg := xg.Group("", staffMiddleware())
	sg.POST("", api.create)
	sg.PUT("/:id", api.update)
	sg.DELETE("", api.destroyMultiple)
	sg.POST("/:id/questions", api.addQuestion)
	sg.PUT("/:id/questions/:qid", api.updateQuestion)
	sg.DELETE("/:id/questions", api.destroyQuestions)

	// exams are listed per course
	g.GET("/courses/:id/exams", api.queryByCourse, jwt)
}

// Handlers

func (api *examApi) create(ctx echo.Context) error {
	var data exam.NewExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}

	ex, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating exam")
	}
	return ctx.JSON(http.StatusCreated, ex)
}

func (api *examApi) queryByCourse(ctx echo.Context) error {
	exams, err := api.svc.QueryByCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying course exams")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if !(claims.IsAdmin || claims.IsInstructor) {
		published := exams[:0]
		for _, ex := range exams {
			if ex.IsPublished {
				published = append(published, ex)
			}
		}
		exams = published
	}
	if exams == nil {
		exams = []exam.Exam{}
	}
	return ctx.JSON(http.StatusOK, exams)
}

func (api *examApi) retrieve(ctx echo.Context) error {
	ex, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == exam.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting exam")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if !ex.IsPublished && !(claims.IsAdmin || claims.IsInstructor) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, ex)
}

func (api *examApi) update(ctx echo.Context) error {
	var data exam.UpdateExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateExam")
	}

	ex, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == exam.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating exam")
	}
	return ctx.JSON(http.StatusOK, ex)
}

func (api *examApi) destroyMultiple(ctx echo.Context) error {
	var data DeleteIDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding ids")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), data.IDs...); err != nil {
		return errors.Wrap(err, "deleting exams")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *examApi) addQuestion(ctx echo.Context) error {
	var data exam.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}

	q, err := api.svc.AddQuestion(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == exam.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *examApi) updateQuestion(ctx echo.Context) error {
	var data QuestionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuestionRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	q, err := api.svc.UpdateQuestion(ctx.Request().Context(), exam.Question{
		ID:           ctx.Param("qid"),
		ExamID:       ctx.Param("id"),
		Prompt:       data.Prompt,
		Choices:      data.Choices,
		CorrectIndex: data.CorrectIndex,
		Position:     data.Position,
	})
	if err != nil {
		if errors.Cause(err) == exam.ErrQuestionNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *examApi) destroyQuestions(ctx echo.Context) error {
	var data DeleteIDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding ids")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if err := api.svc.DeleteQuestions(ctx.Request().Context(), data.IDs...); err != nil {
		return errors.Wrap(err, "deleting questions")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *examApi) take(ctx echo.Context) error {
	var data exam.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	att, err := api.svc.Take(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "taking exam")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *examApi) queryAttempts(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	// staff may inspect any student's attempts
	userID := claims.Subject
	if (claims.IsAdmin || claims.IsInstructor) && ctx.QueryParam("user_id") != "" {
		userID = ctx.QueryParam("user_id")
	}

	atts, err := api.svc.Attempts(ctx.Request().Context(), ctx.Param("id"), userID)
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}
	if atts == nil {
		atts = []exam.Attempt{}
	}
	return ctx.JSON(http.StatusOK, atts)
}
