package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/lesson"
)

type lessonRepository struct {
	db *DB
}

var _ lesson.Repository = (*lessonRepository)(nil)

func NewLessonRepository(db *DB) *lessonRepository {
	return &lessonRepository{db: db}
}

// Lessons

func (repo *lessonRepository) CreateLesson(ctx context.Context, lsn lesson.Lesson) (lesson.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	lsn.ID = uuid.New().String()
	repo.db.lessons[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *lessonRepository) GetLessonByID(ctx context.Context, id string) (lesson.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if lsn, ok := repo.db.lessons[id]; ok {
		return *lsn, nil
	}
	return lesson.Lesson{}, lesson.ErrNotFound
}

func (repo *lessonRepository) QueryLessonsByYear(ctx context.Context, yearID string) ([]lesson.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var lessons []lesson.Lesson
	for _, lsn := range repo.db.lessons {
		if lsn.AcademicYearID == yearID {
			lessons = append(lessons, *lsn)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].Order != lessons[j].Order {
			return lessons[i].Order < lessons[j].Order
		}
		return lessons[i].LessonDate.Before(lessons[j].LessonDate)
	})
	return lessons, nil
}

func (repo *lessonRepository) CountLessonsByYear(ctx context.Context, yearID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int
	for _, lsn := range repo.db.lessons {
		if lsn.AcademicYearID == yearID {
			count++
		}
	}
	return count, nil
}

func (repo *lessonRepository) UpdateLesson(ctx context.Context, lsn lesson.Lesson) (lesson.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	origLsn, ok := repo.db.lessons[lsn.ID]
	if !ok {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	origLsn.Title = lsn.Title
	origLsn.LessonDate = lsn.LessonDate
	origLsn.Order = lsn.Order
	origLsn.UpdatedAt = lsn.UpdatedAt
	return *origLsn, nil
}

func (repo *lessonRepository) DeleteLesson(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.lessons[id]; !ok {
		return lesson.ErrNotFound
	}
	delete(repo.db.lessons, id)
	delete(repo.db.lessonVerses, id)
	return nil
}

// Golden verses

func (repo *lessonRepository) CreateGoldenVerse(ctx context.Context, verse lesson.GoldenVerse) (lesson.GoldenVerse, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	verse.ID = uuid.New().String()
	repo.db.verses[verse.ID] = &verse
	return verse, nil
}

func (repo *lessonRepository) GetGoldenVerseByID(ctx context.Context, id string) (lesson.GoldenVerse, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if verse, ok := repo.db.verses[id]; ok {
		return *verse, nil
	}
	return lesson.GoldenVerse{}, lesson.ErrVerseNotFound
}

func (repo *lessonRepository) QueryGoldenVerses(ctx context.Context, ordering ...core.DBOrdering) ([]lesson.GoldenVerse, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	verses := make([]lesson.GoldenVerse, 0, len(repo.db.verses))
	for _, verse := range repo.db.verses {
		verses = append(verses, *verse)
	}
	sort.Slice(verses, func(i, j int) bool { return verses[i].Reference < verses[j].Reference })
	return verses, nil
}

// Lesson verse junctions

func (repo *lessonRepository) SetLessonVerses(ctx context.Context, lessonID string, junctions []lesson.LessonGoldenVerse) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.lessonVerses[lessonID] = append([]lesson.LessonGoldenVerse(nil), junctions...)
	return nil
}

func (repo *lessonRepository) QueryLessonVerses(ctx context.Context, lessonID string) ([]lesson.LessonGoldenVerse, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return append([]lesson.LessonGoldenVerse(nil), repo.db.lessonVerses[lessonID]...), nil
}

// Homework checks

func (repo *lessonRepository) CreateCheck(ctx context.Context, chk lesson.HomeworkCheck) (lesson.HomeworkCheck, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.checks {
		if existing.LessonID == chk.LessonID && existing.PupilID == chk.PupilID {
			return lesson.HomeworkCheck{}, lesson.ErrCheckExists
		}
	}
	chk.ID = uuid.New().String()
	repo.db.checks[chk.ID] = &chk
	return chk, nil
}

func (repo *lessonRepository) GetCheckByID(ctx context.Context, id string) (lesson.HomeworkCheck, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if chk, ok := repo.db.checks[id]; ok {
		return *chk, nil
	}
	return lesson.HomeworkCheck{}, lesson.ErrCheckNotFound
}

func (repo *lessonRepository) QueryChecksByLesson(ctx context.Context, lessonID string) ([]lesson.HomeworkCheck, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var checks []lesson.HomeworkCheck
	for _, chk := range repo.db.checks {
		if chk.LessonID == lessonID {
			checks = append(checks, *chk)
		}
	}
	return checks, nil
}

func (repo *lessonRepository) UpdateCheck(ctx context.Context, chk lesson.HomeworkCheck) (lesson.HomeworkCheck, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.checks[chk.ID]; !ok {
		return lesson.HomeworkCheck{}, lesson.ErrCheckNotFound
	}
	repo.db.checks[chk.ID] = &chk
	return chk, nil
}
