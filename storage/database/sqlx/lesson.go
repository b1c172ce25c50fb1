package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/lesson"
	"github.com/trezcool/darasa/storage/database"
)

type lessonRepository struct {
	db     *sqlx.DB
	tables *database.NameResolver
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *sqlx.DB, tables *database.NameResolver) *lessonRepository {
	return &lessonRepository{db: db, tables: tables}
}

type (
	lessonRow struct {
		ID             string    `db:"id"`
		GradeID        string    `db:"grade_id"`
		AcademicYearID string    `db:"academic_year_id"`
		TeacherID      string    `db:"teacher_id"`
		Title          string    `db:"title"`
		LessonDate     time.Time `db:"lesson_date"`
		Order          int       `db:"order"`
		CreatedAt      time.Time `db:"created_at"`
		UpdatedAt      time.Time `db:"updated_at"`
	}

	goldenVerseRow struct {
		ID         string        `db:"id"`
		Reference  string        `db:"reference"`
		Text       string        `db:"text"`
		BookID     string        `db:"book_id"`
		Chapter    int           `db:"chapter"`
		VerseStart int           `db:"verse_start"`
		VerseEnd   sql.NullInt64 `db:"verse_end"`
	}

	lessonVerseRow struct {
		LessonID      string `db:"lesson_id"`
		GoldenVerseID string `db:"golden_verse_id"`
		Order         int    `db:"order"`
	}

	checkRow struct {
		ID            string    `db:"id"`
		LessonID      string    `db:"lesson_id"`
		PupilID       string    `db:"pupil_id"`
		GradeID       string    `db:"grade_id"`
		GoldenVerse1  int       `db:"golden_verse_1"`
		GoldenVerse2  int       `db:"golden_verse_2"`
		GoldenVerse3  int       `db:"golden_verse_3"`
		TestScore     int       `db:"test_score"`
		NotebookScore int       `db:"notebook_score"`
		Singing       bool      `db:"singing"`
		Points        int       `db:"points"`
		CreatedAt     time.Time `db:"created_at"`
		UpdatedAt     time.Time `db:"updated_at"`
	}
)

func unrowVerse(row goldenVerseRow) lesson.GoldenVerse {
	return lesson.GoldenVerse{
		ID:         row.ID,
		Reference:  row.Reference,
		Text:       row.Text,
		BookID:     row.BookID,
		Chapter:    row.Chapter,
		VerseStart: row.VerseStart,
		VerseEnd:   int(row.VerseEnd.Int64),
	}
}

// Lessons

func (repo lessonRepository) CreateLesson(ctx context.Context, lsn lesson.Lesson) (lesson.Lesson, error) {
	lsn.ID = uuid.New().String()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, grade_id, academic_year_id, teacher_id, title, lesson_date, "order", created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		repo.tables.Resolve("lesson"))
	_, err := repo.db.ExecContext(ctx, query,
		lsn.ID, lsn.GradeID, lsn.AcademicYearID, lsn.TeacherID, lsn.Title, lsn.LessonDate,
		lsn.Order, lsn.CreatedAt.UTC(), lsn.UpdatedAt.UTC())
	if err != nil {
		return lesson.Lesson{}, classify(err, lesson.ErrNotFound, "inserting lesson")
	}
	return lsn, nil
}

func (repo lessonRepository) GetLessonByID(ctx context.Context, id string) (lesson.Lesson, error) {
	if _, err := uuid.Parse(id); err != nil {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	var row lessonRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", repo.tables.Resolve("lesson"))
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return lesson.Lesson{}, classify(err, lesson.ErrNotFound, "finding lesson by ID")
	}
	return lesson.Lesson(row), nil
}

func (repo lessonRepository) QueryLessonsByYear(ctx context.Context, yearID string) ([]lesson.Lesson, error) {
	var rows []lessonRow
	query := fmt.Sprintf(`SELECT * FROM %s WHERE academic_year_id = $1 ORDER BY "order", lesson_date`, repo.tables.Resolve("lesson"))
	if err := repo.db.SelectContext(ctx, &rows, query, yearID); err != nil {
		return nil, classify(err, lesson.ErrNotFound, "querying lessons by year")
	}
	lessons := make([]lesson.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, lesson.Lesson(row))
	}
	return lessons, nil
}

func (repo lessonRepository) CountLessonsByYear(ctx context.Context, yearID string) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE academic_year_id = $1", repo.tables.Resolve("lesson"))
	if err := repo.db.GetContext(ctx, &count, query, yearID); err != nil {
		return 0, classify(err, lesson.ErrNotFound, "counting lessons by year")
	}
	return count, nil
}

func (repo lessonRepository) UpdateLesson(ctx context.Context, lsn lesson.Lesson) (lesson.Lesson, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET
			title       = $2,
			lesson_date = $3,
			"order"     = $4,
			updated_at  = $5
		WHERE id = $1
		RETURNING *`,
		repo.tables.Resolve("lesson"))

	var row lessonRow
	err := repo.db.GetContext(ctx, &row, query, lsn.ID, lsn.Title, lsn.LessonDate, lsn.Order, lsn.UpdatedAt.UTC())
	if err != nil {
		return lesson.Lesson{}, classify(err, lesson.ErrNotFound, "updating lesson")
	}
	return lesson.Lesson(row), nil
}

func (repo lessonRepository) DeleteLesson(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", repo.tables.Resolve("lesson"))
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return classify(err, lesson.ErrNotFound, "deleting lesson")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return lesson.ErrNotFound
	}
	return nil
}

// Golden verses

func (repo lessonRepository) CreateGoldenVerse(ctx context.Context, verse lesson.GoldenVerse) (lesson.GoldenVerse, error) {
	verse.ID = uuid.New().String()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, reference, text, book_id, chapter, verse_start, verse_end)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, 0))`,
		repo.tables.Resolve("golden_verse"))
	_, err := repo.db.ExecContext(ctx, query,
		verse.ID, verse.Reference, verse.Text, verse.BookID, verse.Chapter, verse.VerseStart, verse.VerseEnd)
	if err != nil {
		return lesson.GoldenVerse{}, classify(err, lesson.ErrVerseNotFound, "inserting golden verse")
	}
	return verse, nil
}

func (repo lessonRepository) GetGoldenVerseByID(ctx context.Context, id string) (lesson.GoldenVerse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return lesson.GoldenVerse{}, lesson.ErrVerseNotFound
	}
	var row goldenVerseRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", repo.tables.Resolve("golden_verse"))
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return lesson.GoldenVerse{}, classify(err, lesson.ErrVerseNotFound, "finding golden verse by ID")
	}
	return unrowVerse(row), nil
}

func (repo lessonRepository) QueryGoldenVerses(ctx context.Context, ordering ...core.DBOrdering) ([]lesson.GoldenVerse, error) {
	query := fmt.Sprintf("SELECT * FROM %s", repo.tables.Resolve("golden_verse"))
	if len(ordering) > 0 {
		query += " ORDER BY " + ordering[0].String()
		for _, ord := range ordering[1:] {
			query += ", " + ord.String()
		}
	} else {
		query += " ORDER BY book_id, chapter, verse_start"
	}

	var rows []goldenVerseRow
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, classify(err, lesson.ErrVerseNotFound, "querying golden verses")
	}
	verses := make([]lesson.GoldenVerse, 0, len(rows))
	for _, row := range rows {
		verses = append(verses, unrowVerse(row))
	}
	return verses, nil
}

// Lesson verse junctions

func (repo lessonRepository) SetLessonVerses(ctx context.Context, lessonID string, junctions []lesson.LessonGoldenVerse) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err, lesson.ErrNotFound, "beginning lesson verses tx")
	}
	defer tx.Rollback() //nolint:errcheck

	table := repo.tables.Resolve("lesson_golden_verse")
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE lesson_id = $1", table), lessonID); err != nil {
		return classify(err, lesson.ErrNotFound, "clearing lesson verses")
	}
	insert := fmt.Sprintf(`INSERT INTO %s (lesson_id, golden_verse_id, "order") VALUES ($1, $2, $3)`, table)
	for _, j := range junctions {
		if _, err = tx.ExecContext(ctx, insert, lessonID, j.GoldenVerseID, j.Order); err != nil {
			return classify(err, lesson.ErrNotFound, "inserting lesson verse")
		}
	}
	if err = tx.Commit(); err != nil {
		return classify(err, lesson.ErrNotFound, "committing lesson verses tx")
	}
	return nil
}

func (repo lessonRepository) QueryLessonVerses(ctx context.Context, lessonID string) ([]lesson.LessonGoldenVerse, error) {
	var rows []lessonVerseRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE lesson_id = $1", repo.tables.Resolve("lesson_golden_verse"))
	if err := repo.db.SelectContext(ctx, &rows, query, lessonID); err != nil {
		return nil, classify(err, lesson.ErrVerseNotFound, "querying lesson verses")
	}
	junctions := make([]lesson.LessonGoldenVerse, 0, len(rows))
	for _, row := range rows {
		junctions = append(junctions, lesson.LessonGoldenVerse(row))
	}
	return junctions, nil
}

// Homework checks

func (repo lessonRepository) CreateCheck(ctx context.Context, chk lesson.HomeworkCheck) (lesson.HomeworkCheck, error) {
	chk.ID = uuid.New().String()
	row := checkRow(chk)
	row.CreatedAt = row.CreatedAt.UTC()
	row.UpdatedAt = row.UpdatedAt.UTC()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, lesson_id, pupil_id, grade_id, golden_verse_1, golden_verse_2, golden_verse_3,
		                test_score, notebook_score, singing, points, created_at, updated_at)
		VALUES (:id, :lesson_id, :pupil_id, :grade_id, :golden_verse_1, :golden_verse_2, :golden_verse_3,
		        :test_score, :notebook_score, :singing, :points, :created_at, :updated_at)`,
		repo.tables.Resolve("homework_check"))
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return lesson.HomeworkCheck{}, lesson.ErrCheckExists
		}
		return lesson.HomeworkCheck{}, classify(err, lesson.ErrCheckNotFound, "inserting homework check")
	}
	return lesson.HomeworkCheck(row), nil
}

func (repo lessonRepository) GetCheckByID(ctx context.Context, id string) (lesson.HomeworkCheck, error) {
	if _, err := uuid.Parse(id); err != nil {
		return lesson.HomeworkCheck{}, lesson.ErrCheckNotFound
	}
	var row checkRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", repo.tables.Resolve("homework_check"))
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return lesson.HomeworkCheck{}, classify(err, lesson.ErrCheckNotFound, "finding homework check by ID")
	}
	return lesson.HomeworkCheck(row), nil
}

func (repo lessonRepository) QueryChecksByLesson(ctx context.Context, lessonID string) ([]lesson.HomeworkCheck, error) {
	var rows []checkRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE lesson_id = $1", repo.tables.Resolve("homework_check"))
	if err := repo.db.SelectContext(ctx, &rows, query, lessonID); err != nil {
		return nil, classify(err, lesson.ErrCheckNotFound, "querying homework checks")
	}
	checks := make([]lesson.HomeworkCheck, 0, len(rows))
	for _, row := range rows {
		checks = append(checks, lesson.HomeworkCheck(row))
	}
	return checks, nil
}

func (repo lessonRepository) UpdateCheck(ctx context.Context, chk lesson.HomeworkCheck) (lesson.HomeworkCheck, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET
			golden_verse_1 = $2,
			golden_verse_2 = $3,
			golden_verse_3 = $4,
			test_score     = $5,
			notebook_score = $6,
			singing        = $7,
			points         = $8,
			updated_at     = $9
		WHERE id = $1
		RETURNING *`,
		repo.tables.Resolve("homework_check"))

	var row checkRow
	err := repo.db.GetContext(ctx, &row, query, chk.ID,
		chk.GoldenVerse1, chk.GoldenVerse2, chk.GoldenVerse3,
		chk.TestScore, chk.NotebookScore, chk.Singing, chk.Points, chk.UpdatedAt.UTC())
	if err != nil {
		return lesson.HomeworkCheck{}, classify(err, lesson.ErrCheckNotFound, "updating homework check")
	}
	return lesson.HomeworkCheck(row), nil
}
