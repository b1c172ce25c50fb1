package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// AcademicYear statuses.
const (
	YearActive   = "ACTIVE"
	YearFinished = "FINISHED"
)

type (
	// Grade is a cohort of pupils taught by one or more assigned teachers.
	// It is the root of the years -> lessons hierarchy.
	Grade struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		IsActive  bool      `json:"is_active"`
		MinAge    *int      `json:"min_age,omitempty"`
		MaxAge    *int      `json:"max_age,omitempty"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	// GradeSettings configures the homework components of a grade.
	// PointsSinging is the only weight consumed by the scoring formula;
	// the remaining fields drive the check form rendered above this core.
	GradeSettings struct {
		GradeID            string `json:"grade_id"`
		EnableGoldenVerses bool   `json:"enable_golden_verses"`
		EnableTest         bool   `json:"enable_test"`
		EnableNotebook     bool   `json:"enable_notebook"`
		EnableSinging      bool   `json:"enable_singing"`
		PointsGoldenVerse  int    `json:"points_golden_verse"`
		PointsTest         int    `json:"points_test"`
		PointsNotebook     int    `json:"points_notebook"`
		PointsSinging      int    `json:"points_singing"`
	}

	Pupil struct {
		ID        string    `json:"id"`
		GradeID   string    `json:"grade_id"`
		FirstName string    `json:"first_name"`
		LastName  string    `json:"last_name"`
		IsActive  bool      `json:"is_active"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	// TeacherGradeAssignment grants a TEACHER access to a grade's data.
	// (UserID, GradeID) pairs are unique.
	TeacherGradeAssignment struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		GradeID   string    `json:"grade_id"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	// AcademicYear is a bounded teaching period belonging to one grade.
	// At most one ACTIVE year may exist per grade at any instant.
	AcademicYear struct {
		ID        string    `json:"id"`
		GradeID   string    `json:"grade_id"`
		Name      string    `json:"name"`
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
		Status    string    `json:"status"` // ACTIVE | FINISHED
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}
)

type NewGrade struct {
	Name   string `json:"name" validate:"required,alphanum_"`
	MinAge *int   `json:"min_age" validate:"omitempty,min=0"`
	MaxAge *int   `json:"max_age" validate:"omitempty,min=0,gtefield=MinAge"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}

type UpdateGrade struct {
	Name     string `json:"name" validate:"omitempty,alphanum_"`
	IsActive *bool  `json:"is_active"`
	MinAge   *int   `json:"min_age" validate:"omitempty,min=0"`
	MaxAge   *int   `json:"max_age" validate:"omitempty,min=0"`
}

func (ug *UpdateGrade) Validate(origGrade Grade, validate *validator.Validate) error {
	if name := core.CleanString(ug.Name); name != "" {
		ug.Name = name
	} else {
		ug.Name = origGrade.Name
	}
	return validate.Struct(ug)
}

type UpdateGradeSettings struct {
	EnableGoldenVerses *bool `json:"enable_golden_verses"`
	EnableTest         *bool `json:"enable_test"`
	EnableNotebook     *bool `json:"enable_notebook"`
	EnableSinging      *bool `json:"enable_singing"`
	PointsGoldenVerse  *int  `json:"points_golden_verse" validate:"omitempty,min=0"`
	PointsTest         *int  `json:"points_test" validate:"omitempty,min=0"`
	PointsNotebook     *int  `json:"points_notebook" validate:"omitempty,min=0"`
	PointsSinging      *int  `json:"points_singing" validate:"omitempty,min=0"`
}

func (us *UpdateGradeSettings) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}

type NewPupil struct {
	GradeID   string `json:"grade_id" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

func (np *NewPupil) Validate(validate *validator.Validate) error {
	np.FirstName = core.CleanString(np.FirstName)
	np.LastName = core.CleanString(np.LastName)
	return validate.Struct(np)
}

type UpdatePupil struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsActive  *bool  `json:"is_active"`
}

func (up *UpdatePupil) Validate(origPupil Pupil, validate *validator.Validate) error {
	if first := core.CleanString(up.FirstName); first != "" {
		up.FirstName = first
	} else {
		up.FirstName = origPupil.FirstName
	}
	if last := core.CleanString(up.LastName); last != "" {
		up.LastName = last
	} else {
		up.LastName = origPupil.LastName
	}
	return validate.Struct(up)
}

type NewAssignment struct {
	UserID  string `json:"user_id" validate:"required"`
	GradeID string `json:"grade_id" validate:"required"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	return validate.Struct(na)
}

type NewAcademicYear struct {
	GradeID   string    `json:"grade_id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

func (ny *NewAcademicYear) Validate(validate *validator.Validate) error {
	ny.Name = core.CleanString(ny.Name)
	return validate.Struct(ny)
}
