package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/lesson"
)

type lessonApi struct {
	svc      *lesson.Service
	guard    *access.Guard
	validate *validator.Validate
}

func registerLessonAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := lessonApi{
		svc:      deps.LessonSvc,
		guard:    deps.Guard,
		validate: deps.Validate,
	}

	lg := g.Group("/lessons", jwt, teacherOrAdminMiddleware())
	lg.POST("", api.create)

	// detail endpoints; every route below runs the access guard first
	dg := lg.Group("/:id", lessonAccessMiddleware(deps.Guard, "id"))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/verses", api.queryLessonVerses)
	dg.GET("/checks", api.queryChecks)
	dg.POST("/checks", api.createCheck)

	vg := g.Group("/golden-verses", jwt, teacherOrAdminMiddleware())
	vg.POST("", api.createVerse, adminMiddleware())
	vg.GET("", api.queryVerses)
	vg.GET("/:id", api.retrieveVerse)

	cg := g.Group("/checks", jwt, teacherOrAdminMiddleware())
	cg.GET("/:id", api.retrieveCheck)
	cg.PUT("/:id", api.updateCheck)
}

// Lessons

func (api *lessonApi) create(ctx echo.Context) error {
	var data lesson.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if data.TeacherID == "" {
		data.TeacherID = claims.Subject
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if !api.guard.CanAccessGrade(ctx.Request().Context(), claims.Subject, data.GradeID, claims.Role) {
		return errHttpNotFound
	}

	lsn, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	lsn, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *lessonApi) update(ctx echo.Context) error {
	lsn, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data lesson.UpdateLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err = data.Validate(lsn, api.validate); err != nil {
		return err
	}

	lsn, err = api.svc.Update(ctx.Request().Context(), lsn.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *lessonApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Golden verses

func (api *lessonApi) createVerse(ctx echo.Context) error {
	var data lesson.NewGoldenVerse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGoldenVerse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	verse, err := api.svc.CreateVerse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating golden verse")
	}
	return ctx.JSON(http.StatusCreated, verse)
}

func (api *lessonApi) queryVerses(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	verses, err := api.svc.QueryVerses(ctx.Request().Context(), ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying golden verses")
	}
	if verses == nil {
		verses = []lesson.GoldenVerse{}
	}
	return ctx.JSON(http.StatusOK, verses)
}

func (api *lessonApi) retrieveVerse(ctx echo.Context) error {
	verse, err := api.svc.GetVerse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, verse)
}

func (api *lessonApi) queryLessonVerses(ctx echo.Context) error {
	junctions, err := api.svc.LessonVerses(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying lesson verses")
	}
	if junctions == nil {
		junctions = []lesson.LessonGoldenVerse{}
	}
	return ctx.JSON(http.StatusOK, junctions)
}

// Homework checks

func (api *lessonApi) createCheck(ctx echo.Context) error {
	var data lesson.NewHomeworkCheck
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHomeworkCheck")
	}
	data.LessonID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	chk, err := api.svc.CreateCheck(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating homework check")
	}
	return ctx.JSON(http.StatusCreated, chk)
}

func (api *lessonApi) queryChecks(ctx echo.Context) error {
	checks, err := api.svc.QueryChecks(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying homework checks")
	}
	if checks == nil {
		checks = []lesson.HomeworkCheck{}
	}
	return ctx.JSON(http.StatusOK, checks)
}

func (api *lessonApi) retrieveCheck(ctx echo.Context) error {
	chk, err := api.checkWithAccess(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, chk)
}

func (api *lessonApi) updateCheck(ctx echo.Context) error {
	chk, err := api.checkWithAccess(ctx)
	if err != nil {
		return err
	}

	var data lesson.UpdateHomeworkCheck
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateHomeworkCheck")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	chk, err = api.svc.UpdateCheck(ctx.Request().Context(), chk.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating homework check")
	}
	return ctx.JSON(http.StatusOK, chk)
}

// checkWithAccess resolves the check then runs the access guard on its grade;
// denial masks the check's existence.
func (api *lessonApi) checkWithAccess(ctx echo.Context) (lesson.HomeworkCheck, error) {
	chk, err := api.svc.GetCheck(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return lesson.HomeworkCheck{}, err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return lesson.HomeworkCheck{}, errors.Wrap(err, "getting context claims")
	}
	if !api.guard.CanAccessGrade(ctx.Request().Context(), claims.Subject, chk.GradeID, claims.Role) {
		return lesson.HomeworkCheck{}, errHttpNotFound
	}
	return chk, nil
}
