package lesson

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type (
	// Lesson is one teaching session within an academic year.
	Lesson struct {
		ID             string    `json:"id"`
		GradeID        string    `json:"grade_id"`
		AcademicYearID string    `json:"academic_year_id"`
		TeacherID      string    `json:"teacher_id"`
		Title          string    `json:"title"`
		LessonDate     time.Time `json:"lesson_date"`
		Order          int       `json:"order"`
		CreatedAt      time.Time `json:"created_at"` // UTC
		UpdatedAt      time.Time `json:"updated_at"` // UTC
	}

	// GoldenVerse is a memorization passage reference.
	GoldenVerse struct {
		ID         string `json:"id"`
		Reference  string `json:"reference"`
		Text       string `json:"text"`
		BookID     string `json:"book_id"`
		Chapter    int    `json:"chapter"`
		VerseStart int    `json:"verse_start"`
		VerseEnd   int    `json:"verse_end"`
	}

	// LessonGoldenVerse attaches a verse to a lesson; Order defines the
	// display sequence.
	LessonGoldenVerse struct {
		LessonID      string `json:"lesson_id"`
		GoldenVerseID string `json:"golden_verse_id"`
		Order         int    `json:"order"`
	}

	// HomeworkCheck records a pupil's component scores for one lesson.
	// Points is always derived server-side; see ComputePoints.
	HomeworkCheck struct {
		ID            string    `json:"id"`
		LessonID      string    `json:"lesson_id"`
		PupilID       string    `json:"pupil_id"`
		GradeID       string    `json:"grade_id"`
		GoldenVerse1  int       `json:"golden_verse_1"`
		GoldenVerse2  int       `json:"golden_verse_2"`
		GoldenVerse3  int       `json:"golden_verse_3"`
		TestScore     int       `json:"test_score"`
		NotebookScore int       `json:"notebook_score"`
		Singing       bool      `json:"singing"`
		Points        int       `json:"points"`
		CreatedAt     time.Time `json:"created_at"` // UTC
		UpdatedAt     time.Time `json:"updated_at"` // UTC
	}
)

type NewLesson struct {
	GradeID        string       `json:"grade_id" validate:"required"`
	AcademicYearID string       `json:"academic_year_id" validate:"required"`
	TeacherID      string       `json:"teacher_id" validate:"required"`
	Title          string       `json:"title" validate:"required"`
	LessonDate     time.Time    `json:"lesson_date" validate:"required"`
	Order          int          `json:"order" validate:"min=0"`
	Verses         []VerseOrder `json:"verses" validate:"omitempty,max=3,dive"`
}

// VerseOrder binds an existing golden verse to a lesson at a display position.
type VerseOrder struct {
	GoldenVerseID string `json:"golden_verse_id" validate:"required"`
	Order         int    `json:"order" validate:"min=1"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

type UpdateLesson struct {
	Title      string       `json:"title"`
	LessonDate *time.Time   `json:"lesson_date"`
	Order      *int         `json:"order" validate:"omitempty,min=0"`
	Verses     []VerseOrder `json:"verses" validate:"omitempty,max=3,dive"`
}

func (ul *UpdateLesson) Validate(origLsn Lesson, validate *validator.Validate) error {
	if title := core.CleanString(ul.Title); title != "" {
		ul.Title = title
	} else {
		ul.Title = origLsn.Title
	}
	return validate.Struct(ul)
}

type NewGoldenVerse struct {
	Reference  string `json:"reference" validate:"required"`
	Text       string `json:"text" validate:"required"`
	BookID     string `json:"book_id" validate:"required"`
	Chapter    int    `json:"chapter" validate:"min=1"`
	VerseStart int    `json:"verse_start" validate:"min=1"`
	VerseEnd   int    `json:"verse_end" validate:"omitempty,gtefield=VerseStart"`
}

func (nv *NewGoldenVerse) Validate(validate *validator.Validate) error {
	nv.Reference = core.CleanString(nv.Reference)
	nv.Text = core.CleanString(nv.Text)
	return validate.Struct(nv)
}

type NewHomeworkCheck struct {
	LessonID      string `json:"lesson_id" validate:"required"`
	PupilID       string `json:"pupil_id" validate:"required"`
	GoldenVerse1  int    `json:"golden_verse_1" validate:"min=0"`
	GoldenVerse2  int    `json:"golden_verse_2" validate:"min=0"`
	GoldenVerse3  int    `json:"golden_verse_3" validate:"min=0"`
	TestScore     int    `json:"test_score" validate:"min=0"`
	NotebookScore int    `json:"notebook_score" validate:"min=0"`
	Singing       bool   `json:"singing"`
}

func (nc *NewHomeworkCheck) Validate(validate *validator.Validate) error {
	return validate.Struct(nc)
}

// UpdateHomeworkCheck is a partial patch; nil fields keep their stored value.
// Points is accepted on the wire but always discarded: the service recomputes
// it from the merged scores.
type UpdateHomeworkCheck struct {
	GoldenVerse1  *int  `json:"golden_verse_1" validate:"omitempty,min=0"`
	GoldenVerse2  *int  `json:"golden_verse_2" validate:"omitempty,min=0"`
	GoldenVerse3  *int  `json:"golden_verse_3" validate:"omitempty,min=0"`
	TestScore     *int  `json:"test_score" validate:"omitempty,min=0"`
	NotebookScore *int  `json:"notebook_score" validate:"omitempty,min=0"`
	Singing       *bool `json:"singing"`
	Points        *int  `json:"points"`
}

func (uc *UpdateHomeworkCheck) Validate(validate *validator.Validate) error {
	return validate.Struct(uc)
}
