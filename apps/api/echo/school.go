package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/school"
)

type schoolApi struct {
	svc      *school.Service
	reports  *report.Service
	guard    *access.Guard
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolApi{
		svc:      deps.SchoolSvc,
		reports:  deps.ReportSvc,
		guard:    deps.Guard,
		validate: deps.Validate,
	}

	gg := g.Group("/grades", jwt)
	gg.POST("", api.createGrade, adminMiddleware())
	gg.GET("", api.queryGrades, teacherOrAdminMiddleware())

	// detail endpoints; every route below runs the access guard first
	dg := gg.Group("/:id", gradeAccessMiddleware(deps.Guard, "id"))
	dg.GET("", api.retrieveGrade)
	dg.PUT("", api.updateGrade, adminMiddleware())
	dg.GET("/full", api.retrieveGradeFull)
	dg.GET("/settings", api.retrieveSettings)
	dg.PUT("/settings", api.updateSettings, adminMiddleware())
	dg.GET("/pupils", api.queryPupils)
	dg.POST("/pupils", api.createPupil)
	dg.GET("/teachers", api.queryAssignments, adminMiddleware())
	dg.GET("/years", api.queryYears)
	dg.POST("/years", api.createYear, adminMiddleware())
	dg.POST("/years/complete", api.completeYear, adminMiddleware())

	pg := g.Group("/pupils", jwt, teacherOrAdminMiddleware())
	pg.GET("/:id", api.retrievePupil)
	pg.PUT("/:id", api.updatePupil)

	ag := g.Group("/assignments", jwt, adminMiddleware())
	ag.POST("", api.assignTeacher)
	ag.DELETE("", api.unassignTeacher)

	yg := g.Group("/years", jwt, teacherOrAdminMiddleware())
	yg.GET("/:id", api.retrieveYear)
	yg.POST("/:id/activate", api.activateYear, adminMiddleware())
	yg.DELETE("/:id", api.destroyYear, adminMiddleware())
}

// Grades

func (api *schoolApi) createGrade(ctx echo.Context) error {
	var data school.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	grd, err := api.svc.CreateGrade(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, grd)
}

func (api *schoolApi) queryGrades(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	grades, err := api.svc.QueryGrades(ctx.Request().Context(), ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}

	// teachers only see their assigned grades
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin {
		assigned := api.guard.TeacherGradeIDs(ctx.Request().Context(), claims.Subject)
		visible := make([]school.Grade, 0, len(grades))
		for _, grd := range grades {
			if _, ok := assigned[grd.ID]; ok {
				visible = append(visible, grd)
			}
		}
		grades = visible
	}
	if grades == nil {
		grades = []school.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *schoolApi) retrieveGrade(ctx echo.Context) error {
	grd, err := api.svc.GetGrade(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *schoolApi) updateGrade(ctx echo.Context) error {
	grd, err := api.svc.GetGrade(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data school.UpdateGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err = data.Validate(grd, api.validate); err != nil {
		return err
	}

	grd, err = api.svc.UpdateGrade(ctx.Request().Context(), grd.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *schoolApi) retrieveGradeFull(ctx echo.Context) error {
	view, err := api.reports.GradeFullView(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, view)
}

// Settings

func (api *schoolApi) retrieveSettings(ctx echo.Context) error {
	settings, err := api.svc.Settings(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *schoolApi) updateSettings(ctx echo.Context) error {
	var data school.UpdateGradeSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGradeSettings")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	settings, err := api.svc.UpdateSettings(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating grade settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

// Pupils

func (api *schoolApi) queryPupils(ctx echo.Context) error {
	pupils, err := api.svc.QueryPupils(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying pupils")
	}
	if pupils == nil {
		pupils = []school.Pupil{}
	}
	return ctx.JSON(http.StatusOK, pupils)
}

func (api *schoolApi) createPupil(ctx echo.Context) error {
	var data school.NewPupil
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPupil")
	}
	data.GradeID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	pup, err := api.svc.CreatePupil(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating pupil")
	}
	return ctx.JSON(http.StatusCreated, pup)
}

func (api *schoolApi) retrievePupil(ctx echo.Context) error {
	pup, err := api.pupilWithAccess(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pup)
}

func (api *schoolApi) updatePupil(ctx echo.Context) error {
	pup, err := api.pupilWithAccess(ctx)
	if err != nil {
		return err
	}

	var data school.UpdatePupil
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePupil")
	}
	if err = data.Validate(pup, api.validate); err != nil {
		return err
	}

	pup, err = api.svc.UpdatePupil(ctx.Request().Context(), pup.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating pupil")
	}
	return ctx.JSON(http.StatusOK, pup)
}

// pupilWithAccess resolves the pupil then runs the access guard on its grade;
// denial masks the pupil's existence.
func (api *schoolApi) pupilWithAccess(ctx echo.Context) (school.Pupil, error) {
	pup, err := api.svc.GetPupil(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return school.Pupil{}, err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return school.Pupil{}, errors.Wrap(err, "getting context claims")
	}
	if !api.guard.CanAccessGrade(ctx.Request().Context(), claims.Subject, pup.GradeID, claims.Role) {
		return school.Pupil{}, errHttpNotFound
	}
	return pup, nil
}

// Assignments

func (api *schoolApi) assignTeacher(ctx echo.Context) error {
	var data school.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	asg, err := api.svc.AssignTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "assigning teacher")
	}
	// the cached assignment set is now stale
	api.guard.Invalidate(ctx.Request().Context(), asg.UserID)
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *schoolApi) unassignTeacher(ctx echo.Context) error {
	userID, gradeID := ctx.QueryParam("user_id"), ctx.QueryParam("grade_id")
	if userID == "" || gradeID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and grade_id are required")
	}
	if err := api.svc.UnassignTeacher(ctx.Request().Context(), userID, gradeID); err != nil {
		return errors.Wrap(err, "unassigning teacher")
	}
	api.guard.Invalidate(ctx.Request().Context(), userID)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) queryAssignments(ctx echo.Context) error {
	assignments, err := api.svc.QueryAssignmentsByGrade(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []school.TeacherGradeAssignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

// Academic years

func (api *schoolApi) queryYears(ctx echo.Context) error {
	years, err := api.svc.QueryYears(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying academic years")
	}
	if years == nil {
		years = []school.AcademicYear{}
	}
	return ctx.JSON(http.StatusOK, years)
}

func (api *schoolApi) createYear(ctx echo.Context) error {
	var data school.NewAcademicYear
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAcademicYear")
	}
	data.GradeID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	yr, err := api.svc.CreateYear(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating academic year")
	}
	return ctx.JSON(http.StatusCreated, yr)
}

func (api *schoolApi) completeYear(ctx echo.Context) error {
	yr, err := api.svc.CompleteYear(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "completing academic year")
	}
	return ctx.JSON(http.StatusOK, yr)
}

func (api *schoolApi) retrieveYear(ctx echo.Context) error {
	yr, err := api.yearWithAccess(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, yr)
}

func (api *schoolApi) activateYear(ctx echo.Context) error {
	yr, err := api.svc.ActivateYear(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "activating academic year")
	}
	return ctx.JSON(http.StatusOK, yr)
}

func (api *schoolApi) destroyYear(ctx echo.Context) error {
	if err := api.svc.DeleteYear(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting academic year")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// yearWithAccess resolves the year then runs the access guard on its grade.
func (api *schoolApi) yearWithAccess(ctx echo.Context) (school.AcademicYear, error) {
	yr, err := api.svc.GetYear(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return school.AcademicYear{}, err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return school.AcademicYear{}, errors.Wrap(err, "getting context claims")
	}
	if !api.guard.CanAccessGrade(ctx.Request().Context(), claims.Subject, yr.GradeID, claims.Role) {
		return school.AcademicYear{}, errHttpNotFound
	}
	return yr, nil
}
