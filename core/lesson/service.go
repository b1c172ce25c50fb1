package lesson

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/darasa/core"
)

var (
	ErrNotFound      = core.NewError(core.KindNotFound, "lesson not found")
	ErrVerseNotFound = core.NewError(core.KindNotFound, "golden verse not found")
	ErrCheckNotFound = core.NewError(core.KindNotFound, "homework check not found")
	ErrCheckExists   = core.NewError(core.KindConflict, "pupil already has a homework check for this lesson")
)

type (
	Repository interface {
		CreateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id string) (Lesson, error)
		// QueryLessonsByYear resolves lessons by secondary index on AcademicYearID.
		QueryLessonsByYear(ctx context.Context, yearID string) ([]Lesson, error)
		CountLessonsByYear(ctx context.Context, yearID string) (int, error)
		UpdateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error

		CreateGoldenVerse(ctx context.Context, verse GoldenVerse) (GoldenVerse, error)
		GetGoldenVerseByID(ctx context.Context, id string) (GoldenVerse, error)
		QueryGoldenVerses(ctx context.Context, ordering ...core.DBOrdering) ([]GoldenVerse, error)

		// SetLessonVerses replaces the lesson's verse junction rows.
		SetLessonVerses(ctx context.Context, lessonID string, junctions []LessonGoldenVerse) error
		QueryLessonVerses(ctx context.Context, lessonID string) ([]LessonGoldenVerse, error)

		CreateCheck(ctx context.Context, chk HomeworkCheck) (HomeworkCheck, error)
		GetCheckByID(ctx context.Context, id string) (HomeworkCheck, error)
		QueryChecksByLesson(ctx context.Context, lessonID string) ([]HomeworkCheck, error)
		UpdateCheck(ctx context.Context, chk HomeworkCheck) (HomeworkCheck, error)
	}

	// SettingsSource reads a grade's scoring settings live, at computation time.
	SettingsSource interface {
		ScoreSettings(ctx context.Context, gradeID string) (ScoreSettings, error)
	}

	Service struct {
		repo     Repository
		settings SettingsSource
	}
)

func NewService(repo Repository, settings SettingsSource) *Service {
	return &Service{repo: repo, settings: settings}
}

// Lessons

func (svc *Service) Create(ctx context.Context, nl NewLesson) (Lesson, error) {
	now := time.Now().UTC()
	lsn := Lesson{
		GradeID:        nl.GradeID,
		AcademicYearID: nl.AcademicYearID,
		TeacherID:      nl.TeacherID,
		Title:          nl.Title,
		LessonDate:     nl.LessonDate,
		Order:          nl.Order,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	lsn, err := svc.repo.CreateLesson(ctx, lsn)
	if err != nil {
		return Lesson{}, err
	}
	if len(nl.Verses) > 0 {
		if err = svc.repo.SetLessonVerses(ctx, lsn.ID, junctions(lsn.ID, nl.Verses)); err != nil {
			return Lesson{}, err
		}
	}
	return lsn, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

// GradeID resolves the grade owning a lesson; access checks go through here.
func (svc *Service) GradeID(ctx context.Context, lessonID string) (string, error) {
	lsn, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return "", err
	}
	return lsn.GradeID, nil
}

func (svc *Service) QueryByYear(ctx context.Context, yearID string) ([]Lesson, error) {
	return svc.repo.QueryLessonsByYear(ctx, yearID)
}

func (svc *Service) CountLessonsByYear(ctx context.Context, yearID string) (int, error) {
	return svc.repo.CountLessonsByYear(ctx, yearID)
}

func (svc *Service) Update(ctx context.Context, id string, ul UpdateLesson) (Lesson, error) {
	lsn, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	lsn.Title = ul.Title
	if ul.LessonDate != nil {
		lsn.LessonDate = *ul.LessonDate
	}
	if ul.Order != nil {
		lsn.Order = *ul.Order
	}
	lsn.UpdatedAt = time.Now().UTC()

	lsn, err = svc.repo.UpdateLesson(ctx, lsn)
	if err != nil {
		return Lesson{}, err
	}
	if ul.Verses != nil {
		if err = svc.repo.SetLessonVerses(ctx, lsn.ID, junctions(lsn.ID, ul.Verses)); err != nil {
			return Lesson{}, err
		}
	}
	return lsn, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteLesson(ctx, id)
}

func junctions(lessonID string, verses []VerseOrder) []LessonGoldenVerse {
	rows := make([]LessonGoldenVerse, 0, len(verses))
	for _, v := range verses {
		rows = append(rows, LessonGoldenVerse{
			LessonID:      lessonID,
			GoldenVerseID: v.GoldenVerseID,
			Order:         v.Order,
		})
	}
	return rows
}

// Golden verses

func (svc *Service) CreateVerse(ctx context.Context, nv NewGoldenVerse) (GoldenVerse, error) {
	verse := GoldenVerse{
		Reference:  nv.Reference,
		Text:       nv.Text,
		BookID:     nv.BookID,
		Chapter:    nv.Chapter,
		VerseStart: nv.VerseStart,
		VerseEnd:   nv.VerseEnd,
	}
	return svc.repo.CreateGoldenVerse(ctx, verse)
}

func (svc *Service) GetVerse(ctx context.Context, id string) (GoldenVerse, error) {
	return svc.repo.GetGoldenVerseByID(ctx, id)
}

func (svc *Service) QueryVerses(ctx context.Context, ordering ...core.DBOrdering) ([]GoldenVerse, error) {
	return svc.repo.QueryGoldenVerses(ctx, ordering...)
}

// LessonVerses resolves a lesson's verse junctions sorted by display order.
func (svc *Service) LessonVerses(ctx context.Context, lessonID string) ([]LessonGoldenVerse, error) {
	rows, err := svc.repo.QueryLessonVerses(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Order < rows[j].Order })
	return rows, nil
}

// Homework checks

func (svc *Service) CreateCheck(ctx context.Context, nc NewHomeworkCheck) (HomeworkCheck, error) {
	lsn, err := svc.repo.GetLessonByID(ctx, nc.LessonID)
	if err != nil {
		return HomeworkCheck{}, err
	}

	now := time.Now().UTC()
	chk := HomeworkCheck{
		LessonID:      lsn.ID,
		PupilID:       nc.PupilID,
		GradeID:       lsn.GradeID,
		GoldenVerse1:  nc.GoldenVerse1,
		GoldenVerse2:  nc.GoldenVerse2,
		GoldenVerse3:  nc.GoldenVerse3,
		TestScore:     nc.TestScore,
		NotebookScore: nc.NotebookScore,
		Singing:       nc.Singing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	settings, err := svc.settings.ScoreSettings(ctx, lsn.GradeID)
	if err != nil {
		return HomeworkCheck{}, err
	}
	chk.Points = ComputePoints(chk, settings)

	return svc.repo.CreateCheck(ctx, chk)
}

// UpdateCheck merges the stored check with the partial patch, then recomputes
// Points against the grade's current settings. Any client-supplied points
// value is discarded.
func (svc *Service) UpdateCheck(ctx context.Context, id string, uc UpdateHomeworkCheck) (HomeworkCheck, error) {
	chk, err := svc.repo.GetCheckByID(ctx, id)
	if err != nil {
		return HomeworkCheck{}, err
	}

	if uc.GoldenVerse1 != nil {
		chk.GoldenVerse1 = *uc.GoldenVerse1
	}
	if uc.GoldenVerse2 != nil {
		chk.GoldenVerse2 = *uc.GoldenVerse2
	}
	if uc.GoldenVerse3 != nil {
		chk.GoldenVerse3 = *uc.GoldenVerse3
	}
	if uc.TestScore != nil {
		chk.TestScore = *uc.TestScore
	}
	if uc.NotebookScore != nil {
		chk.NotebookScore = *uc.NotebookScore
	}
	if uc.Singing != nil {
		chk.Singing = *uc.Singing
	}

	settings, err := svc.settings.ScoreSettings(ctx, chk.GradeID)
	if err != nil {
		return HomeworkCheck{}, err
	}
	chk.Points = ComputePoints(chk, settings)
	chk.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateCheck(ctx, chk)
}

func (svc *Service) GetCheck(ctx context.Context, id string) (HomeworkCheck, error) {
	return svc.repo.GetCheckByID(ctx, id)
}

func (svc *Service) QueryChecks(ctx context.Context, lessonID string) ([]HomeworkCheck, error) {
	return svc.repo.QueryChecksByLesson(ctx, lessonID)
}
