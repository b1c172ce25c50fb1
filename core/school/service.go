package school

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/lesson"
)

var (
	ErrGradeNotFound      = core.NewError(core.KindNotFound, "grade not found")
	ErrPupilNotFound      = core.NewError(core.KindNotFound, "pupil not found")
	ErrYearNotFound       = core.NewError(core.KindNotFound, "academic year not found")
	ErrSettingsNotFound   = core.NewError(core.KindNotFound, "grade settings not found")
	ErrAssignmentNotFound = core.NewError(core.KindNotFound, "teacher assignment not found")
	ErrAssignmentExists   = core.NewError(core.KindConflict, "teacher is already assigned to this grade")
	ErrActiveYearExists   = core.NewError(core.KindConflict, "grade already has an active academic year")
	ErrYearHasLessons     = core.NewError(core.KindConflict, "academic year still owns lessons")
)

type (
	Repository interface {
		CreateGrade(ctx context.Context, grd Grade) (Grade, error)
		GetGradeByID(ctx context.Context, id string) (Grade, error)
		QueryGrades(ctx context.Context, ordering ...core.DBOrdering) ([]Grade, error)
		UpdateGrade(ctx context.Context, grd Grade, isActive *bool) (Grade, error)

		GetGradeSettings(ctx context.Context, gradeID string) (GradeSettings, error)
		UpsertGradeSettings(ctx context.Context, settings GradeSettings) (GradeSettings, error)

		CreatePupil(ctx context.Context, pup Pupil) (Pupil, error)
		GetPupilByID(ctx context.Context, id string) (Pupil, error)
		QueryPupilsByGrade(ctx context.Context, gradeID string) ([]Pupil, error)
		UpdatePupil(ctx context.Context, pup Pupil, isActive *bool) (Pupil, error)

		CreateAssignment(ctx context.Context, asg TeacherGradeAssignment) (TeacherGradeAssignment, error)
		DeleteAssignment(ctx context.Context, userID, gradeID string) error
		// QueryAssignmentsByUser resolves assignments by secondary index on UserID.
		QueryAssignmentsByUser(ctx context.Context, userID string) ([]TeacherGradeAssignment, error)
		QueryAssignmentsByGrade(ctx context.Context, gradeID string) ([]TeacherGradeAssignment, error)

		CreateYear(ctx context.Context, yr AcademicYear) (AcademicYear, error)
		GetYearByID(ctx context.Context, id string) (AcademicYear, error)
		// GetActiveYear returns ErrYearNotFound when the grade has no ACTIVE year.
		GetActiveYear(ctx context.Context, gradeID string) (AcademicYear, error)
		QueryYearsByGrade(ctx context.Context, gradeID string) ([]AcademicYear, error)
		UpdateYearStatus(ctx context.Context, id, status string) (AcademicYear, error)
		DeleteYear(ctx context.Context, id string) error
	}

	// LessonCounter is the one thing this package needs from the lesson store:
	// how many lessons an academic year still owns.
	LessonCounter interface {
		CountLessonsByYear(ctx context.Context, yearID string) (int, error)
	}

	// TeacherMailer resolves an assignee's address for the notification mail.
	TeacherMailer interface {
		EmailAddress(ctx context.Context, userID string) (mail.Address, error)
	}

	Service struct {
		repo    Repository
		lessons LessonCounter
		mailer  TeacherMailer
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, lessons LessonCounter, mailer TeacherMailer, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		lessons: lessons,
		mailer:  mailer,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Grades

func (svc *Service) CreateGrade(ctx context.Context, ng NewGrade) (Grade, error) {
	now := time.Now().UTC()
	grd := Grade{
		Name:      ng.Name,
		IsActive:  true,
		MinAge:    ng.MinAge,
		MaxAge:    ng.MaxAge,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateGrade(ctx, grd)
}

func (svc *Service) GetGrade(ctx context.Context, id string) (Grade, error) {
	return svc.repo.GetGradeByID(ctx, id)
}

func (svc *Service) QueryGrades(ctx context.Context, ordering ...core.DBOrdering) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, ordering...)
}

func (svc *Service) UpdateGrade(ctx context.Context, id string, ug UpdateGrade) (Grade, error) {
	grd := Grade{
		ID:        id,
		Name:      ug.Name,
		MinAge:    ug.MinAge,
		MaxAge:    ug.MaxAge,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateGrade(ctx, grd, ug.IsActive)
}

// Settings

// Settings returns the grade's settings, or zero-value settings when none
// were ever saved for the grade.
func (svc *Service) Settings(ctx context.Context, gradeID string) (GradeSettings, error) {
	settings, err := svc.repo.GetGradeSettings(ctx, gradeID)
	if err != nil {
		if core.IsNotFound(err) {
			return GradeSettings{GradeID: gradeID}, nil
		}
		return GradeSettings{}, err
	}
	return settings, nil
}

func (svc *Service) UpdateSettings(ctx context.Context, gradeID string, us UpdateGradeSettings) (GradeSettings, error) {
	if _, err := svc.repo.GetGradeByID(ctx, gradeID); err != nil {
		return GradeSettings{}, err
	}
	settings, err := svc.Settings(ctx, gradeID)
	if err != nil {
		return GradeSettings{}, err
	}

	if us.EnableGoldenVerses != nil {
		settings.EnableGoldenVerses = *us.EnableGoldenVerses
	}
	if us.EnableTest != nil {
		settings.EnableTest = *us.EnableTest
	}
	if us.EnableNotebook != nil {
		settings.EnableNotebook = *us.EnableNotebook
	}
	if us.EnableSinging != nil {
		settings.EnableSinging = *us.EnableSinging
	}
	if us.PointsGoldenVerse != nil {
		settings.PointsGoldenVerse = *us.PointsGoldenVerse
	}
	if us.PointsTest != nil {
		settings.PointsTest = *us.PointsTest
	}
	if us.PointsNotebook != nil {
		settings.PointsNotebook = *us.PointsNotebook
	}
	if us.PointsSinging != nil {
		settings.PointsSinging = *us.PointsSinging
	}
	return svc.repo.UpsertGradeSettings(ctx, settings)
}

// ScoreSettings adapts the grade's settings for the homework scoring engine,
// read live at computation time.
func (svc *Service) ScoreSettings(ctx context.Context, gradeID string) (lesson.ScoreSettings, error) {
	settings, err := svc.Settings(ctx, gradeID)
	if err != nil {
		return lesson.ScoreSettings{}, err
	}
	return lesson.ScoreSettings{PointsSinging: settings.PointsSinging}, nil
}

// Pupils

func (svc *Service) CreatePupil(ctx context.Context, np NewPupil) (Pupil, error) {
	if _, err := svc.repo.GetGradeByID(ctx, np.GradeID); err != nil {
		return Pupil{}, err
	}
	now := time.Now().UTC()
	pup := Pupil{
		GradeID:   np.GradeID,
		FirstName: np.FirstName,
		LastName:  np.LastName,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreatePupil(ctx, pup)
}

func (svc *Service) GetPupil(ctx context.Context, id string) (Pupil, error) {
	return svc.repo.GetPupilByID(ctx, id)
}

func (svc *Service) QueryPupils(ctx context.Context, gradeID string) ([]Pupil, error) {
	return svc.repo.QueryPupilsByGrade(ctx, gradeID)
}

func (svc *Service) UpdatePupil(ctx context.Context, id string, up UpdatePupil) (Pupil, error) {
	orig, err := svc.repo.GetPupilByID(ctx, id)
	if err != nil {
		return Pupil{}, err
	}
	orig.FirstName = up.FirstName
	orig.LastName = up.LastName
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePupil(ctx, orig, up.IsActive)
}

// Assignments

func (svc *Service) AssignTeacher(ctx context.Context, na NewAssignment) (TeacherGradeAssignment, error) {
	grd, err := svc.repo.GetGradeByID(ctx, na.GradeID)
	if err != nil {
		return TeacherGradeAssignment{}, err
	}

	asg := TeacherGradeAssignment{
		UserID:    na.UserID,
		GradeID:   na.GradeID,
		CreatedAt: time.Now().UTC(),
	}
	asg, err = svc.repo.CreateAssignment(ctx, asg)
	if err != nil {
		return TeacherGradeAssignment{}, err
	}

	svc.notifyAssignment(ctx, asg, grd)
	return asg, nil
}

// notifyAssignment mails the teacher about their new grade. Notification
// failures never fail the assignment.
func (svc *Service) notifyAssignment(ctx context.Context, asg TeacherGradeAssignment, grd Grade) {
	addr, err := svc.mailer.EmailAddress(ctx, asg.UserID)
	if err != nil {
		svc.logger.Warn("resolving assignee address", errors.Wrap(err, asg.UserID))
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{addr},
		Subject: fmt.Sprintf("You have been assigned to %s", grd.Name),
		Body: fmt.Sprintf(
			"You now have access to the %s grade: its pupils, academic years, lessons and homework checks.",
			grd.Name,
		),
	})
}

func (svc *Service) UnassignTeacher(ctx context.Context, userID, gradeID string) error {
	return svc.repo.DeleteAssignment(ctx, userID, gradeID)
}

func (svc *Service) QueryAssignmentsByGrade(ctx context.Context, gradeID string) ([]TeacherGradeAssignment, error) {
	return svc.repo.QueryAssignmentsByGrade(ctx, gradeID)
}

func (svc *Service) QueryAssignmentsByUser(ctx context.Context, userID string) ([]TeacherGradeAssignment, error) {
	return svc.repo.QueryAssignmentsByUser(ctx, userID)
}

// TeacherGradeIDs resolves the grade IDs assigned to a teacher; the access
// guard consumes this as its upstream assignment source.
func (svc *Service) TeacherGradeIDs(ctx context.Context, userID string) ([]string, error) {
	assignments, err := svc.repo.QueryAssignmentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(assignments))
	for _, asg := range assignments {
		ids = append(ids, asg.GradeID)
	}
	return ids, nil
}

// Academic year lifecycle.
//
// Every transition is a precondition read followed by a write; there is no
// transaction tying the two together, so two concurrent writers can still
// race past the single-active-year check. Callers needing strict mutual
// exclusion must serialize externally.

func (svc *Service) CreateYear(ctx context.Context, ny NewAcademicYear) (AcademicYear, error) {
	if _, err := svc.repo.GetGradeByID(ctx, ny.GradeID); err != nil {
		return AcademicYear{}, err
	}
	if _, err := svc.repo.GetActiveYear(ctx, ny.GradeID); err == nil {
		return AcademicYear{}, ErrActiveYearExists
	} else if !core.IsNotFound(err) {
		return AcademicYear{}, err
	}

	now := time.Now().UTC()
	yr := AcademicYear{
		GradeID:   ny.GradeID,
		Name:      ny.Name,
		StartDate: ny.StartDate,
		EndDate:   ny.EndDate,
		Status:    YearActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateYear(ctx, yr)
}

// CompleteYear moves the grade's current ACTIVE year to FINISHED. With no
// ACTIVE year the lookup's not_found error surfaces as-is; completion is
// never a silent no-op.
func (svc *Service) CompleteYear(ctx context.Context, gradeID string) (AcademicYear, error) {
	yr, err := svc.repo.GetActiveYear(ctx, gradeID)
	if err != nil {
		return AcademicYear{}, err
	}
	return svc.repo.UpdateYearStatus(ctx, yr.ID, YearFinished)
}

// ActivateYear flips a FINISHED year back to ACTIVE, provided its grade has
// no other ACTIVE year.
func (svc *Service) ActivateYear(ctx context.Context, yearID string) (AcademicYear, error) {
	yr, err := svc.repo.GetYearByID(ctx, yearID)
	if err != nil {
		return AcademicYear{}, err
	}
	if yr.Status == YearActive {
		return yr, nil
	}
	if active, err := svc.repo.GetActiveYear(ctx, yr.GradeID); err == nil {
		if active.ID != yr.ID {
			return AcademicYear{}, ErrActiveYearExists
		}
		return active, nil
	} else if !core.IsNotFound(err) {
		return AcademicYear{}, err
	}
	return svc.repo.UpdateYearStatus(ctx, yr.ID, YearActive)
}

// DeleteYear removes the year entirely, in any status, as long as it owns
// zero lessons.
func (svc *Service) DeleteYear(ctx context.Context, yearID string) error {
	yr, err := svc.repo.GetYearByID(ctx, yearID)
	if err != nil {
		return err
	}
	cnt, err := svc.lessons.CountLessonsByYear(ctx, yr.ID)
	if err != nil {
		return errors.Wrap(err, "counting lessons")
	}
	if cnt > 0 {
		return ErrYearHasLessons
	}
	return svc.repo.DeleteYear(ctx, yr.ID)
}

func (svc *Service) QueryYears(ctx context.Context, gradeID string) ([]AcademicYear, error) {
	return svc.repo.QueryYearsByGrade(ctx, gradeID)
}

func (svc *Service) GetYear(ctx context.Context, id string) (AcademicYear, error) {
	return svc.repo.GetYearByID(ctx, id)
}
