package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/lesson"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

type fixture struct {
	svc        *report.Service
	schoolRepo school.Repository
	lessonRepo lesson.Repository
	userRepo   user.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)

	f := fixture{
		schoolRepo: inmemdb.NewSchoolRepository(db),
		lessonRepo: inmemdb.NewLessonRepository(db),
		userRepo:   inmemdb.NewUserRepository(db),
	}
	f.svc = report.NewService(f.schoolRepo, f.lessonRepo, f.userRepo, core.NopLogger{})
	return f
}

func (f fixture) createGrade(t *testing.T) school.Grade {
	t.Helper()
	grd, err := f.schoolRepo.CreateGrade(context.Background(), school.Grade{Name: "Beginners", IsActive: true})
	require.NoError(t, err)
	return grd
}

func (f fixture) createPupil(t *testing.T, gradeID string, active bool) school.Pupil {
	t.Helper()
	pup, err := f.schoolRepo.CreatePupil(context.Background(), school.Pupil{
		GradeID:   gradeID,
		FirstName: "Pupil",
		LastName:  "Test",
		IsActive:  active,
	})
	require.NoError(t, err)
	return pup
}

func (f fixture) createYear(t *testing.T, gradeID, name string, start time.Time) school.AcademicYear {
	t.Helper()
	yr, err := f.schoolRepo.CreateYear(context.Background(), school.AcademicYear{
		GradeID:   gradeID,
		Name:      name,
		StartDate: start,
		EndDate:   start.AddDate(0, 10, 0),
		Status:    school.YearFinished,
	})
	require.NoError(t, err)
	return yr
}

func TestGradeFullViewMissingGrade(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GradeFullView(context.Background(), "nope")
	assert.True(t, core.IsNotFound(err))
}

func TestGradeFullViewYearOrdering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	grd := f.createGrade(t)

	f.createYear(t, grd.ID, "2022-2023", time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC))
	f.createYear(t, grd.ID, "2024-2025", time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
	f.createYear(t, grd.ID, "2023-2024", time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC))

	view, err := f.svc.GradeFullView(ctx, grd.ID)
	require.NoError(t, err)
	require.Len(t, view.Years, 3)

	// most recent year first
	assert.Equal(t, "2024-2025", view.Years[0].Name)
	assert.Equal(t, "2023-2024", view.Years[1].Name)
	assert.Equal(t, "2022-2023", view.Years[2].Name)
}

func TestGradeFullViewLessonStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	grd := f.createGrade(t)
	yr := f.createYear(t, grd.ID, "2024-2025", time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))

	// 5 active pupils form the stats denominator; the inactive one never counts
	pupils := make([]school.Pupil, 0, 5)
	for i := 0; i < 5; i++ {
		pupils = append(pupils, f.createPupil(t, grd.ID, true))
	}
	inactive := f.createPupil(t, grd.ID, false)

	lsn, err := f.lessonRepo.CreateLesson(ctx, lesson.Lesson{
		GradeID:        grd.ID,
		AcademicYearID: yr.ID,
		Title:          "Creation",
	})
	require.NoError(t, err)

	// 3 of 5 active pupils checked, plus a check for the inactive pupil
	for _, pup := range pupils[:3] {
		_, err = f.lessonRepo.CreateCheck(ctx, lesson.HomeworkCheck{LessonID: lsn.ID, PupilID: pup.ID, GradeID: grd.ID})
		require.NoError(t, err)
	}
	_, err = f.lessonRepo.CreateCheck(ctx, lesson.HomeworkCheck{LessonID: lsn.ID, PupilID: inactive.ID, GradeID: grd.ID})
	require.NoError(t, err)

	view, err := f.svc.GradeFullView(ctx, grd.ID)
	require.NoError(t, err)
	require.Len(t, view.Years, 1)
	require.Len(t, view.Years[0].Lessons, 1)

	stats := view.Years[0].Lessons[0].Stats
	assert.Equal(t, report.HomeworkStats{Total: 5, Checked: 3, Percentage: 60}, stats)
}

func TestGradeFullViewVerses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	grd := f.createGrade(t)
	yr := f.createYear(t, grd.ID, "2024-2025", time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))

	lsn, err := f.lessonRepo.CreateLesson(ctx, lesson.Lesson{
		GradeID:        grd.ID,
		AcademicYearID: yr.ID,
		Title:          "The Flood",
	})
	require.NoError(t, err)

	v1, err := f.lessonRepo.CreateGoldenVerse(ctx, lesson.GoldenVerse{Reference: "Gen 6:8", Text: "..."})
	require.NoError(t, err)
	v3, err := f.lessonRepo.CreateGoldenVerse(ctx, lesson.GoldenVerse{Reference: "Gen 9:13", Text: "..."})
	require.NoError(t, err)

	// junction rows arrive out of order; one points at a verse that no longer exists
	err = f.lessonRepo.SetLessonVerses(ctx, lsn.ID, []lesson.LessonGoldenVerse{
		{LessonID: lsn.ID, GoldenVerseID: v3.ID, Order: 3},
		{LessonID: lsn.ID, GoldenVerseID: v1.ID, Order: 1},
		{LessonID: lsn.ID, GoldenVerseID: "gone", Order: 2},
	})
	require.NoError(t, err)

	view, err := f.svc.GradeFullView(ctx, grd.ID)
	require.NoError(t, err)
	require.Len(t, view.Years, 1)
	require.Len(t, view.Years[0].Lessons, 1)

	verses := view.Years[0].Lessons[0].Verses
	require.Len(t, verses, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{verses[0].Order, verses[1].Order, verses[2].Order})
	assert.Equal(t, "Gen 6:8", verses[0].Reference)
	// an unresolvable verse still appears, with a placeholder reference
	assert.Equal(t, "Verse #2", verses[1].Reference)
	assert.Equal(t, "Gen 9:13", verses[2].Reference)
}

func TestGradeFullViewTeachers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	grd := f.createGrade(t)

	usr, err := f.userRepo.CreateUser(ctx, user.User{
		Name:     "Mwalimu",
		Email:    "mwalimu@test.cd",
		IsActive: true,
		Groups:   []string{user.GroupTeacher},
	})
	require.NoError(t, err)

	_, err = f.schoolRepo.CreateAssignment(ctx, school.TeacherGradeAssignment{UserID: usr.ID, GradeID: grd.ID})
	require.NoError(t, err)

	view, err := f.svc.GradeFullView(ctx, grd.ID)
	require.NoError(t, err)
	require.Len(t, view.Teachers, 1)
	assert.Equal(t, "Mwalimu", view.Teachers[0].Name)
}
