package report

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/lesson"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

type (
	// GradeFullView is the composed nested view of a grade:
	// years (most recent first) -> lessons -> statistics and verses.
	GradeFullView struct {
		Grade    school.Grade         `json:"grade"`
		Settings school.GradeSettings `json:"settings"`
		Pupils   []school.Pupil       `json:"pupils"`
		Teachers []user.User          `json:"teachers"`
		Years    []YearView           `json:"years"`
	}

	YearView struct {
		school.AcademicYear
		Lessons []LessonView `json:"lessons"`
	}

	LessonView struct {
		lesson.Lesson
		Stats  HomeworkStats `json:"stats"`
		Verses []VerseView   `json:"verses"`
	}

	// HomeworkStats summarizes a lesson's checking progress: Checked counts
	// distinct active pupils with at least one check, out of Total active
	// pupils in the grade.
	HomeworkStats struct {
		Total      int `json:"total"`
		Checked    int `json:"checked"`
		Percentage int `json:"percentage"`
	}

	VerseView struct {
		Order     int    `json:"order"`
		VerseID   string `json:"verse_id"`
		Reference string `json:"reference"`
		Text      string `json:"text,omitempty"`
	}

	Service struct {
		schoolRepo school.Repository
		lessonRepo lesson.Repository
		userRepo   user.Repository
		logger     core.Logger
	}
)

func NewService(schoolRepo school.Repository, lessonRepo lesson.Repository, userRepo user.Repository, logger core.Logger) *Service {
	return &Service{
		schoolRepo: schoolRepo,
		lessonRepo: lessonRepo,
		userRepo:   userRepo,
		logger:     logger,
	}
}

// GradeFullView composes the grade's entire hierarchy. Only a missing root
// grade aborts; every other related record degrades to an empty or default
// value. Years are walked sequentially; each year's lessons are resolved
// concurrently, with no limiter, so wide grades cost proportionally many
// upstream round trips.
func (svc *Service) GradeFullView(ctx context.Context, gradeID string) (GradeFullView, error) {
	grd, err := svc.schoolRepo.GetGradeByID(ctx, gradeID)
	if err != nil {
		return GradeFullView{}, err
	}
	view := GradeFullView{Grade: grd}

	view.Settings = svc.settings(ctx, gradeID)
	view.Pupils = svc.pupils(ctx, gradeID)
	view.Teachers = svc.teachers(ctx, gradeID)

	activePupils := make(map[string]struct{})
	for _, pup := range view.Pupils {
		if pup.IsActive {
			activePupils[pup.ID] = struct{}{}
		}
	}

	years, err := svc.schoolRepo.QueryYearsByGrade(ctx, gradeID)
	if err != nil {
		svc.logger.Warn("querying academic years", err)
		years = nil
	}
	// most recent year first
	sort.Slice(years, func(i, j int) bool { return years[i].StartDate.After(years[j].StartDate) })

	view.Years = make([]YearView, 0, len(years))
	for _, yr := range years {
		view.Years = append(view.Years, svc.yearView(ctx, yr, activePupils))
	}
	return view, nil
}

func (svc *Service) settings(ctx context.Context, gradeID string) school.GradeSettings {
	settings, err := svc.schoolRepo.GetGradeSettings(ctx, gradeID)
	if err != nil {
		if !core.IsNotFound(err) {
			svc.logger.Warn("querying grade settings", err)
		}
		return school.GradeSettings{GradeID: gradeID}
	}
	return settings
}

func (svc *Service) pupils(ctx context.Context, gradeID string) []school.Pupil {
	pupils, err := svc.schoolRepo.QueryPupilsByGrade(ctx, gradeID)
	if err != nil {
		svc.logger.Warn("querying pupils", err)
		return []school.Pupil{}
	}
	return pupils
}

func (svc *Service) teachers(ctx context.Context, gradeID string) []user.User {
	assignments, err := svc.schoolRepo.QueryAssignmentsByGrade(ctx, gradeID)
	if err != nil {
		svc.logger.Warn("querying teacher assignments", err)
		return []user.User{}
	}
	if len(assignments) == 0 {
		return []user.User{}
	}

	ids := make([]string, 0, len(assignments))
	for _, asg := range assignments {
		ids = append(ids, asg.UserID)
	}
	teachers, err := svc.userRepo.GetUsersByID(ctx, ids)
	if err != nil {
		svc.logger.Warn("querying assigned teachers", err)
		return []user.User{}
	}
	return teachers
}

// yearView resolves one year's lessons; each lesson's checks and verses are
// fetched in parallel. Once the fan-out starts it runs to completion; no
// cancellation propagates into it.
func (svc *Service) yearView(ctx context.Context, yr school.AcademicYear, activePupils map[string]struct{}) YearView {
	view := YearView{AcademicYear: yr}

	lessons, err := svc.lessonRepo.QueryLessonsByYear(ctx, yr.ID)
	if err != nil {
		svc.logger.Warn("querying lessons", err)
		view.Lessons = []LessonView{}
		return view
	}

	view.Lessons = make([]LessonView, len(lessons))
	var g errgroup.Group
	for i, lsn := range lessons {
		i, lsn := i, lsn
		g.Go(func() error {
			view.Lessons[i] = LessonView{
				Lesson: lsn,
				Stats:  svc.lessonStats(ctx, lsn.ID, activePupils),
				Verses: svc.lessonVerses(ctx, lsn.ID),
			}
			return nil
		})
	}
	_ = g.Wait()
	return view
}

// lessonStats counts distinct active pupils with at least one homework check
// for the lesson; duplicate checks per pupil collapse to one.
func (svc *Service) lessonStats(ctx context.Context, lessonID string, activePupils map[string]struct{}) HomeworkStats {
	stats := HomeworkStats{Total: len(activePupils)}

	checks, err := svc.lessonRepo.QueryChecksByLesson(ctx, lessonID)
	if err != nil {
		svc.logger.Warn("querying homework checks", err)
		return stats
	}

	checked := make(map[string]struct{})
	for _, chk := range checks {
		if _, ok := activePupils[chk.PupilID]; ok {
			checked[chk.PupilID] = struct{}{}
		}
	}
	stats.Checked = len(checked)
	stats.Percentage = percentage(stats.Checked, stats.Total)
	return stats
}

func percentage(checked, total int) int {
	if total == 0 {
		return 0
	}
	pct := int(math.Round(float64(checked) / float64(total) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// lessonVerses joins the lesson's junction rows against the verse entities,
// sorted by display order. A junction whose verse cannot be resolved still
// appears, with a placeholder reference, rather than vanishing or failing
// the lesson.
func (svc *Service) lessonVerses(ctx context.Context, lessonID string) []VerseView {
	junctions, err := svc.lessonRepo.QueryLessonVerses(ctx, lessonID)
	if err != nil {
		svc.logger.Warn("querying lesson verses", err)
		return []VerseView{}
	}
	sort.Slice(junctions, func(i, j int) bool { return junctions[i].Order < junctions[j].Order })

	views := make([]VerseView, 0, len(junctions))
	for _, row := range junctions {
		view := VerseView{Order: row.Order, VerseID: row.GoldenVerseID}
		if verse, err := svc.lessonRepo.GetGoldenVerseByID(ctx, row.GoldenVerseID); err == nil {
			view.Reference = verse.Reference
			view.Text = verse.Text
		} else {
			view.Reference = fmt.Sprintf("Verse #%d", row.Order)
		}
		views = append(views, view)
	}
	return views
}
