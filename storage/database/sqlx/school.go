package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/storage/database"
)

type schoolRepository struct {
	db     *sqlx.DB
	tables *database.NameResolver
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB, tables *database.NameResolver) *schoolRepository {
	return &schoolRepository{db: db, tables: tables}
}

type (
	gradeRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		IsActive  bool      `db:"is_active"`
		MinAge    *int      `db:"min_age"`
		MaxAge    *int      `db:"max_age"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	settingsRow struct {
		GradeID            string `db:"grade_id"`
		EnableGoldenVerses bool   `db:"enable_golden_verses"`
		EnableTest         bool   `db:"enable_test"`
		EnableNotebook     bool   `db:"enable_notebook"`
		EnableSinging      bool   `db:"enable_singing"`
		PointsGoldenVerse  int    `db:"points_golden_verse"`
		PointsTest         int    `db:"points_test"`
		PointsNotebook     int    `db:"points_notebook"`
		PointsSinging      int    `db:"points_singing"`
	}

	pupilRow struct {
		ID        string    `db:"id"`
		GradeID   string    `db:"grade_id"`
		FirstName string    `db:"first_name"`
		LastName  string    `db:"last_name"`
		IsActive  bool      `db:"is_active"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	assignmentRow struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		GradeID   string    `db:"grade_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	yearRow struct {
		ID        string    `db:"id"`
		GradeID   string    `db:"grade_id"`
		Name      string    `db:"name"`
		StartDate time.Time `db:"start_date"`
		EndDate   time.Time `db:"end_date"`
		Status    string    `db:"status"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
)

// Grades

func (repo schoolRepository) CreateGrade(ctx context.Context, grd school.Grade) (school.Grade, error) {
	grd.ID = uuid.New().String()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, is_active, min_age, max_age, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		repo.tables.Resolve("grade"))
	_, err := repo.db.ExecContext(ctx, query,
		grd.ID, grd.Name, grd.IsActive, grd.MinAge, grd.MaxAge, grd.CreatedAt.UTC(), grd.UpdatedAt.UTC())
	if err != nil {
		return school.Grade{}, classify(err, school.ErrGradeNotFound, "inserting grade")
	}
	return grd, nil
}

func (repo schoolRepository) GetGradeByID(ctx context.Context, id string) (school.Grade, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Grade{}, school.ErrGradeNotFound
	}
	var row gradeRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", repo.tables.Resolve("grade"))
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return school.Grade{}, classify(err, school.ErrGradeNotFound, "finding grade by ID")
	}
	return school.Grade(row), nil
}

func (repo schoolRepository) QueryGrades(ctx context.Context, ordering ...core.DBOrdering) ([]school.Grade, error) {
	query := fmt.Sprintf("SELECT * FROM %s", repo.tables.Resolve("grade"))
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	}

	var rows []gradeRow
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, classify(err, school.ErrGradeNotFound, "querying grades")
	}
	grades := make([]school.Grade, 0, len(rows))
	for _, row := range rows {
		grades = append(grades, school.Grade(row))
	}
	return grades, nil
}

func (repo schoolRepository) UpdateGrade(ctx context.Context, grd school.Grade, isActive *bool) (school.Grade, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET
			name       = COALESCE(NULLIF($2, ''), name),
			min_age    = COALESCE($3, min_age),
			max_age    = COALESCE($4, max_age),
			is_active  = COALESCE($5, is_active),
			updated_at = $6
		WHERE id = $1
		RETURNING *`,
		repo.tables.Resolve("grade"))

	var row gradeRow
	err := repo.db.GetContext(ctx, &row, query, grd.ID, grd.Name, grd.MinAge, grd.MaxAge, isActive, grd.UpdatedAt.UTC())
	if err != nil {
		return school.Grade{}, classify(err, school.ErrGradeNotFound, "updating grade")
	}
	return school.Grade(row), nil
}

// Settings

func (repo schoolRepository) GetGradeSettings(ctx context.Context, gradeID string) (school.GradeSettings, error) {
	var row settingsRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE grade_id = $1", repo.tables.Resolve("grade_settings"))
	if err := repo.db.GetContext(ctx, &row, query, gradeID); err != nil {
		return school.GradeSettings{}, classify(err, school.ErrSettingsNotFound, "finding grade settings")
	}
	return school.GradeSettings(row), nil
}

func (repo schoolRepository) UpsertGradeSettings(ctx context.Context, settings school.GradeSettings) (school.GradeSettings, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (grade_id, enable_golden_verses, enable_test, enable_notebook, enable_singing,
		                points_golden_verse, points_test, points_notebook, points_singing)
		VALUES (:grade_id, :enable_golden_verses, :enable_test, :enable_notebook, :enable_singing,
		        :points_golden_verse, :points_test, :points_notebook, :points_singing)
		ON CONFLICT (grade_id) DO UPDATE SET
			enable_golden_verses = EXCLUDED.enable_golden_verses,
			enable_test          = EXCLUDED.enable_test,
			enable_notebook      = EXCLUDED.enable_notebook,
			enable_singing       = EXCLUDED.enable_singing,
			points_golden_verse  = EXCLUDED.points_golden_verse,
			points_test          = EXCLUDED.points_test,
			points_notebook      = EXCLUDED.points_notebook,
			points_singing       = EXCLUDED.points_singing`,
		repo.tables.Resolve("grade_settings"))
	if _, err := repo.db.NamedExecContext(ctx, query, settingsRow(settings)); err != nil {
		return school.GradeSettings{}, classify(err, school.ErrSettingsNotFound, "upserting grade settings")
	}
	return settings, nil
}

// Pupils

func (repo schoolRepository) CreatePupil(ctx context.Context, pup school.Pupil) (school.Pupil, error) {
	pup.ID = uuid.New().String()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, grade_id, first_name, last_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		repo.tables.Resolve("pupil"))
	_, err := repo.db.ExecContext(ctx, query,
		pup.ID, pup.GradeID, pup.FirstName, pup.LastName, pup.IsActive, pup.CreatedAt.UTC(), pup.UpdatedAt.UTC())
	if err != nil {
		return school.Pupil{}, classify(err, school.ErrPupilNotFound, "inserting pupil")
	}
	return pup, nil
}

func (repo schoolRepository) GetPupilByID(ctx context.Context, id string) (school.Pupil, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Pupil{}, school.ErrPupilNotFound
	}
	var row pupilRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", repo.tables.Resolve("pupil"))
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return school.Pupil{}, classify(err, school.ErrPupilNotFound, "finding pupil by ID")
	}
	return school.Pupil(row), nil
}

func (repo schoolRepository) QueryPupilsByGrade(ctx context.Context, gradeID string) ([]school.Pupil, error) {
	var rows []pupilRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE grade_id = $1 ORDER BY last_name, first_name", repo.tables.Resolve("pupil"))
	if err := repo.db.SelectContext(ctx, &rows, query, gradeID); err != nil {
		return nil, classify(err, school.ErrPupilNotFound, "querying pupils")
	}
	pupils := make([]school.Pupil, 0, len(rows))
	for _, row := range rows {
		pupils = append(pupils, school.Pupil(row))
	}
	return pupils, nil
}

func (repo schoolRepository) UpdatePupil(ctx context.Context, pup school.Pupil, isActive *bool) (school.Pupil, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET
			first_name = COALESCE(NULLIF($2, ''), first_name),
			last_name  = COALESCE(NULLIF($3, ''), last_name),
			is_active  = COALESCE($4, is_active),
			updated_at = $5
		WHERE id = $1
		RETURNING *`,
		repo.tables.Resolve("pupil"))

	var row pupilRow
	err := repo.db.GetContext(ctx, &row, query, pup.ID, pup.FirstName, pup.LastName, isActive, pup.UpdatedAt.UTC())
	if err != nil {
		return school.Pupil{}, classify(err, school.ErrPupilNotFound, "updating pupil")
	}
	return school.Pupil(row), nil
}

// Assignments

func (repo schoolRepository) CreateAssignment(ctx context.Context, asg school.TeacherGradeAssignment) (school.TeacherGradeAssignment, error) {
	asg.ID = uuid.New().String()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, grade_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		repo.tables.Resolve("teacher_grade_assignment"))
	if _, err := repo.db.ExecContext(ctx, query, asg.ID, asg.UserID, asg.GradeID, asg.CreatedAt.UTC()); err != nil {
		if isUniqueViolation(err) {
			return school.TeacherGradeAssignment{}, school.ErrAssignmentExists
		}
		return school.TeacherGradeAssignment{}, classify(err, school.ErrAssignmentNotFound, "inserting assignment")
	}
	return asg, nil
}

func (repo schoolRepository) DeleteAssignment(ctx context.Context, userID, gradeID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = $1 AND grade_id = $2", repo.tables.Resolve("teacher_grade_assignment"))
	res, err := repo.db.ExecContext(ctx, query, userID, gradeID)
	if err != nil {
		return classify(err, school.ErrAssignmentNotFound, "deleting assignment")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.ErrAssignmentNotFound
	}
	return nil
}

func (repo schoolRepository) QueryAssignmentsByUser(ctx context.Context, userID string) ([]school.TeacherGradeAssignment, error) {
	return repo.queryAssignments(ctx, "user_id", userID)
}

func (repo schoolRepository) QueryAssignmentsByGrade(ctx context.Context, gradeID string) ([]school.TeacherGradeAssignment, error) {
	return repo.queryAssignments(ctx, "grade_id", gradeID)
}

func (repo schoolRepository) queryAssignments(ctx context.Context, col, val string) ([]school.TeacherGradeAssignment, error) {
	var rows []assignmentRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", repo.tables.Resolve("teacher_grade_assignment"), col)
	if err := repo.db.SelectContext(ctx, &rows, query, val); err != nil {
		return nil, classify(err, school.ErrAssignmentNotFound, "querying assignments")
	}
	assignments := make([]school.TeacherGradeAssignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, school.TeacherGradeAssignment(row))
	}
	return assignments, nil
}

// Academic years

func (repo schoolRepository) CreateYear(ctx context.Context, yr school.AcademicYear) (school.AcademicYear, error) {
	yr.ID = uuid.New().String()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, grade_id, name, start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		repo.tables.Resolve("academic_year"))
	_, err := repo.db.ExecContext(ctx, query,
		yr.ID, yr.GradeID, yr.Name, yr.StartDate, yr.EndDate, yr.Status, yr.CreatedAt.UTC(), yr.UpdatedAt.UTC())
	if err != nil {
		return school.AcademicYear{}, classify(err, school.ErrYearNotFound, "inserting academic year")
	}
	return yr, nil
}

func (repo schoolRepository) GetYearByID(ctx context.Context, id string) (school.AcademicYear, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.AcademicYear{}, school.ErrYearNotFound
	}
	var row yearRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", repo.tables.Resolve("academic_year"))
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return school.AcademicYear{}, classify(err, school.ErrYearNotFound, "finding academic year by ID")
	}
	return school.AcademicYear(row), nil
}

func (repo schoolRepository) GetActiveYear(ctx context.Context, gradeID string) (school.AcademicYear, error) {
	var row yearRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE grade_id = $1 AND status = $2", repo.tables.Resolve("academic_year"))
	if err := repo.db.GetContext(ctx, &row, query, gradeID, school.YearActive); err != nil {
		return school.AcademicYear{}, classify(err, school.ErrYearNotFound, "finding active academic year")
	}
	return school.AcademicYear(row), nil
}

func (repo schoolRepository) QueryYearsByGrade(ctx context.Context, gradeID string) ([]school.AcademicYear, error) {
	var rows []yearRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE grade_id = $1", repo.tables.Resolve("academic_year"))
	if err := repo.db.SelectContext(ctx, &rows, query, gradeID); err != nil {
		return nil, classify(err, school.ErrYearNotFound, "querying academic years")
	}
	years := make([]school.AcademicYear, 0, len(rows))
	for _, row := range rows {
		years = append(years, school.AcademicYear(row))
	}
	return years, nil
}

func (repo schoolRepository) UpdateYearStatus(ctx context.Context, id, status string) (school.AcademicYear, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING *`,
		repo.tables.Resolve("academic_year"))

	var row yearRow
	if err := repo.db.GetContext(ctx, &row, query, id, status, time.Now().UTC()); err != nil {
		return school.AcademicYear{}, classify(err, school.ErrYearNotFound, "updating academic year status")
	}
	return school.AcademicYear(row), nil
}

func (repo schoolRepository) DeleteYear(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", repo.tables.Resolve("academic_year"))
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return classify(err, school.ErrYearNotFound, "deleting academic year")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return school.ErrYearNotFound
	}
	return nil
}
