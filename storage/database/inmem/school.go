package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// Grades

func (repo *schoolRepository) CreateGrade(ctx context.Context, grd school.Grade) (school.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	grd.ID = uuid.New().String()
	repo.db.grades[grd.ID] = &grd
	return grd, nil
}

func (repo *schoolRepository) GetGradeByID(ctx context.Context, id string) (school.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if grd, ok := repo.db.grades[id]; ok {
		return *grd, nil
	}
	return school.Grade{}, school.ErrGradeNotFound
}

func (repo *schoolRepository) QueryGrades(ctx context.Context, ordering ...core.DBOrdering) ([]school.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	grades := make([]school.Grade, 0, len(repo.db.grades))
	for _, grd := range repo.db.grades {
		grades = append(grades, *grd)
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].Name < grades[j].Name })
	return grades, nil
}

func (repo *schoolRepository) UpdateGrade(ctx context.Context, grd school.Grade, isActive *bool) (school.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	origGrd, ok := repo.db.grades[grd.ID]
	if !ok {
		return school.Grade{}, school.ErrGradeNotFound
	}
	if grd.Name != "" {
		origGrd.Name = grd.Name
	}
	if grd.MinAge != nil {
		origGrd.MinAge = grd.MinAge
	}
	if grd.MaxAge != nil {
		origGrd.MaxAge = grd.MaxAge
	}
	if isActive != nil {
		origGrd.IsActive = *isActive
	}
	origGrd.UpdatedAt = grd.UpdatedAt
	return *origGrd, nil
}

// Settings

func (repo *schoolRepository) GetGradeSettings(ctx context.Context, gradeID string) (school.GradeSettings, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if settings, ok := repo.db.settings[gradeID]; ok {
		return *settings, nil
	}
	return school.GradeSettings{}, school.ErrSettingsNotFound
}

func (repo *schoolRepository) UpsertGradeSettings(ctx context.Context, settings school.GradeSettings) (school.GradeSettings, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.settings[settings.GradeID] = &settings
	return settings, nil
}

// Pupils

func (repo *schoolRepository) CreatePupil(ctx context.Context, pup school.Pupil) (school.Pupil, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	pup.ID = uuid.New().String()
	repo.db.pupils[pup.ID] = &pup
	return pup, nil
}

func (repo *schoolRepository) GetPupilByID(ctx context.Context, id string) (school.Pupil, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if pup, ok := repo.db.pupils[id]; ok {
		return *pup, nil
	}
	return school.Pupil{}, school.ErrPupilNotFound
}

func (repo *schoolRepository) QueryPupilsByGrade(ctx context.Context, gradeID string) ([]school.Pupil, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var pupils []school.Pupil
	for _, pup := range repo.db.pupils {
		if pup.GradeID == gradeID {
			pupils = append(pupils, *pup)
		}
	}
	sort.Slice(pupils, func(i, j int) bool {
		if pupils[i].LastName != pupils[j].LastName {
			return pupils[i].LastName < pupils[j].LastName
		}
		return pupils[i].FirstName < pupils[j].FirstName
	})
	return pupils, nil
}

func (repo *schoolRepository) UpdatePupil(ctx context.Context, pup school.Pupil, isActive *bool) (school.Pupil, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	origPup, ok := repo.db.pupils[pup.ID]
	if !ok {
		return school.Pupil{}, school.ErrPupilNotFound
	}
	if pup.FirstName != "" {
		origPup.FirstName = pup.FirstName
	}
	if pup.LastName != "" {
		origPup.LastName = pup.LastName
	}
	if isActive != nil {
		origPup.IsActive = *isActive
	}
	origPup.UpdatedAt = pup.UpdatedAt
	return *origPup, nil
}

// Assignments

func (repo *schoolRepository) CreateAssignment(ctx context.Context, asg school.TeacherGradeAssignment) (school.TeacherGradeAssignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.assignments {
		if existing.UserID == asg.UserID && existing.GradeID == asg.GradeID {
			return school.TeacherGradeAssignment{}, school.ErrAssignmentExists
		}
	}
	asg.ID = uuid.New().String()
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *schoolRepository) DeleteAssignment(ctx context.Context, userID, gradeID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, asg := range repo.db.assignments {
		if asg.UserID == userID && asg.GradeID == gradeID {
			delete(repo.db.assignments, id)
			return nil
		}
	}
	return school.ErrAssignmentNotFound
}

func (repo *schoolRepository) QueryAssignmentsByUser(ctx context.Context, userID string) ([]school.TeacherGradeAssignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var assignments []school.TeacherGradeAssignment
	for _, asg := range repo.db.assignments {
		if asg.UserID == userID {
			assignments = append(assignments, *asg)
		}
	}
	return assignments, nil
}

func (repo *schoolRepository) QueryAssignmentsByGrade(ctx context.Context, gradeID string) ([]school.TeacherGradeAssignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var assignments []school.TeacherGradeAssignment
	for _, asg := range repo.db.assignments {
		if asg.GradeID == gradeID {
			assignments = append(assignments, *asg)
		}
	}
	return assignments, nil
}

// Academic years

func (repo *schoolRepository) CreateYear(ctx context.Context, yr school.AcademicYear) (school.AcademicYear, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	yr.ID = uuid.New().String()
	repo.db.years[yr.ID] = &yr
	return yr, nil
}

func (repo *schoolRepository) GetYearByID(ctx context.Context, id string) (school.AcademicYear, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if yr, ok := repo.db.years[id]; ok {
		return *yr, nil
	}
	return school.AcademicYear{}, school.ErrYearNotFound
}

func (repo *schoolRepository) GetActiveYear(ctx context.Context, gradeID string) (school.AcademicYear, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, yr := range repo.db.years {
		if yr.GradeID == gradeID && yr.Status == school.YearActive {
			return *yr, nil
		}
	}
	return school.AcademicYear{}, school.ErrYearNotFound
}

func (repo *schoolRepository) QueryYearsByGrade(ctx context.Context, gradeID string) ([]school.AcademicYear, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var years []school.AcademicYear
	for _, yr := range repo.db.years {
		if yr.GradeID == gradeID {
			years = append(years, *yr)
		}
	}
	return years, nil
}

func (repo *schoolRepository) UpdateYearStatus(ctx context.Context, id, status string) (school.AcademicYear, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	yr, ok := repo.db.years[id]
	if !ok {
		return school.AcademicYear{}, school.ErrYearNotFound
	}
	yr.Status = status
	return *yr, nil
}

func (repo *schoolRepository) DeleteYear(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.years[id]; !ok {
		return school.ErrYearNotFound
	}
	delete(repo.db.years, id)
	return nil
}
