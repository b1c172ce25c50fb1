// Package inmemdb provides map-backed repository implementations for tests
// and the DEV bootstrap. Semantics mirror the sqlx repositories, including
// the sentinel errors each returns.
package inmemdb

import (
	"sync"

	"github.com/trezcool/darasa/core/lesson"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		mutex sync.RWMutex

		users map[string]*user.User

		grades      map[string]*school.Grade
		settings    map[string]*school.GradeSettings // keyed by GradeID
		pupils      map[string]*school.Pupil
		assignments map[string]*school.TeacherGradeAssignment
		years       map[string]*school.AcademicYear

		lessons      map[string]*lesson.Lesson
		verses       map[string]*lesson.GoldenVerse
		lessonVerses map[string][]lesson.LessonGoldenVerse // keyed by LessonID
		checks       map[string]*lesson.HomeworkCheck
	}
)

func Open() (*DB, error) {
	db := &DB{
		users:        make(map[string]*user.User),
		grades:       make(map[string]*school.Grade),
		settings:     make(map[string]*school.GradeSettings),
		pupils:       make(map[string]*school.Pupil),
		assignments:  make(map[string]*school.TeacherGradeAssignment),
		years:        make(map[string]*school.AcademicYear),
		lessons:      make(map[string]*lesson.Lesson),
		verses:       make(map[string]*lesson.GoldenVerse),
		lessonVerses: make(map[string][]lesson.LessonGoldenVerse),
		checks:       make(map[string]*lesson.HomeworkCheck),
	}
	return db, nil
}
