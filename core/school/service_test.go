package school_test

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/lesson"
	"github.com/trezcool/darasa/core/school"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

type mailerStub struct{ addr mail.Address }

func (m mailerStub) EmailAddress(context.Context, string) (mail.Address, error) {
	return m.addr, nil
}

type mailServiceStub struct{ sent []*core.EmailMessage }

func (m *mailServiceStub) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

type testDeps struct {
	svc        *school.Service
	lessonRepo lesson.Repository
	mailSvc    *mailServiceStub
}

func newTestService(t *testing.T) testDeps {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)

	lessonRepo := inmemdb.NewLessonRepository(db)
	mailSvc := &mailServiceStub{}
	svc := school.NewService(
		inmemdb.NewSchoolRepository(db),
		lessonRepo,
		mailerStub{addr: mail.Address{Name: "Teach", Address: "teach@test.cd"}},
		mailSvc,
		core.NopLogger{},
	)
	return testDeps{svc: svc, lessonRepo: lessonRepo, mailSvc: mailSvc}
}

func createTestGrade(t *testing.T, svc *school.Service) school.Grade {
	t.Helper()
	grd, err := svc.CreateGrade(context.Background(), school.NewGrade{Name: "Beginners"})
	require.NoError(t, err)
	return grd
}

func TestCreateYearEnforcesSingleActive(t *testing.T) {
	ctx := context.Background()
	deps := newTestService(t)
	grd := createTestGrade(t, deps.svc)

	yr, err := deps.svc.CreateYear(ctx, school.NewAcademicYear{
		GradeID:   grd.ID,
		Name:      "2024-2025",
		StartDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, school.YearActive, yr.Status)

	// a second year cannot start while one is ACTIVE
	_, err = deps.svc.CreateYear(ctx, school.NewAcademicYear{
		GradeID:   grd.ID,
		Name:      "2025-2026",
		StartDate: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, school.ErrActiveYearExists, errors.Cause(err))

	// a missing grade aborts before any write
	_, err = deps.svc.CreateYear(ctx, school.NewAcademicYear{
		GradeID:   "nope",
		Name:      "2024-2025",
		StartDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	assert.True(t, core.IsNotFound(err))
}

func TestYearLifecycle(t *testing.T) {
	ctx := context.Background()
	deps := newTestService(t)
	grd := createTestGrade(t, deps.svc)

	first, err := deps.svc.CreateYear(ctx, school.NewAcademicYear{
		GradeID:   grd.ID,
		Name:      "2023-2024",
		StartDate: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// activating an already-ACTIVE year is a no-op
	got, err := deps.svc.ActivateYear(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, school.YearActive, got.Status)

	finished, err := deps.svc.CompleteYear(ctx, grd.ID)
	require.NoError(t, err)
	assert.Equal(t, school.YearFinished, finished.Status)

	// with no ACTIVE year left, completing again reports not_found
	_, err = deps.svc.CompleteYear(ctx, grd.ID)
	assert.True(t, core.IsNotFound(err))

	// the FINISHED year can be reactivated while no other year is ACTIVE
	got, err = deps.svc.ActivateYear(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, school.YearActive, got.Status)

	_, err = deps.svc.CompleteYear(ctx, grd.ID)
	require.NoError(t, err)

	_, err = deps.svc.CreateYear(ctx, school.NewAcademicYear{
		GradeID:   grd.ID,
		Name:      "2024-2025",
		StartDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// reactivating the old year must not yield two ACTIVE years
	_, err = deps.svc.ActivateYear(ctx, first.ID)
	assert.Equal(t, school.ErrActiveYearExists, errors.Cause(err))
}

func TestDeleteYear(t *testing.T) {
	ctx := context.Background()
	deps := newTestService(t)
	grd := createTestGrade(t, deps.svc)

	yr, err := deps.svc.CreateYear(ctx, school.NewAcademicYear{
		GradeID:   grd.ID,
		Name:      "2024-2025",
		StartDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = deps.lessonRepo.CreateLesson(ctx, lesson.Lesson{
		GradeID:        grd.ID,
		AcademicYearID: yr.ID,
		Title:          "Lesson 1",
	})
	require.NoError(t, err)

	// a year still owning lessons cannot be deleted, in any status
	err = deps.svc.DeleteYear(ctx, yr.ID)
	assert.Equal(t, school.ErrYearHasLessons, errors.Cause(err))

	empty, err := deps.svc.CreateYear(ctx, school.NewAcademicYear{
		GradeID:   createTestGrade(t, deps.svc).ID,
		Name:      "2024-2025",
		StartDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, deps.svc.DeleteYear(ctx, empty.ID))
	_, err = deps.svc.GetYear(ctx, empty.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestAssignTeacher(t *testing.T) {
	ctx := context.Background()
	deps := newTestService(t)
	grd := createTestGrade(t, deps.svc)

	asg, err := deps.svc.AssignTeacher(ctx, school.NewAssignment{UserID: "t1", GradeID: grd.ID})
	require.NoError(t, err)
	assert.Equal(t, grd.ID, asg.GradeID)

	// the assignee is notified
	require.Len(t, deps.mailSvc.sent, 1)
	assert.Contains(t, deps.mailSvc.sent[0].Subject, grd.Name)

	// (UserID, GradeID) pairs are unique
	_, err = deps.svc.AssignTeacher(ctx, school.NewAssignment{UserID: "t1", GradeID: grd.ID})
	assert.Equal(t, school.ErrAssignmentExists, errors.Cause(err))

	ids, err := deps.svc.TeacherGradeIDs(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{grd.ID}, ids)

	require.NoError(t, deps.svc.UnassignTeacher(ctx, "t1", grd.ID))
	ids, err = deps.svc.TeacherGradeIDs(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSettingsDefaultsWhenUnsaved(t *testing.T) {
	ctx := context.Background()
	deps := newTestService(t)
	grd := createTestGrade(t, deps.svc)

	settings, err := deps.svc.Settings(ctx, grd.ID)
	require.NoError(t, err)
	assert.Equal(t, school.GradeSettings{GradeID: grd.ID}, settings)

	points := 5
	enabled := true
	settings, err = deps.svc.UpdateSettings(ctx, grd.ID, school.UpdateGradeSettings{
		EnableSinging: &enabled,
		PointsSinging: &points,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, settings.PointsSinging)

	score, err := deps.svc.ScoreSettings(ctx, grd.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, score.PointsSinging)
}
