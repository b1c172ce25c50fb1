package access

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var ErrForbidden = errors.New("permission denied")

const cacheKeyPrefix = "teacher-grades:"

type (
	// AssignmentSource resolves the grade IDs assigned to a teacher,
	// by secondary index on the user ID.
	AssignmentSource interface {
		TeacherGradeIDs(ctx context.Context, userID string) ([]string, error)
	}

	// LessonSource resolves the grade owning a lesson.
	LessonSource interface {
		GradeID(ctx context.Context, lessonID string) (string, error)
	}

	// Guard decides whether a caller may touch a grade or lesson resource.
	// It must run before any read-detail or mutation on either.
	Guard struct {
		assignments AssignmentSource
		lessons     LessonSource
		cache       core.KVCache
		ttl         time.Duration
		logger      core.Logger

		nowFunc func() time.Time // swapped in tests
	}
)

func NewGuard(assignments AssignmentSource, lessons LessonSource, cache core.KVCache, ttl time.Duration, logger core.Logger) *Guard {
	return &Guard{
		assignments: assignments,
		lessons:     lessons,
		cache:       cache,
		ttl:         ttl,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

// cachedGrades is the per-caller payload persisted in the KV store.
type cachedGrades struct {
	GradeIDs  []string  `json:"gradeIds"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// TeacherGradeIDs returns the set of grade IDs the teacher may access.
//
// The per-caller cached payload is used when present and younger than the
// TTL; otherwise the assignment source is queried and the cache rewritten.
// Cache transport failures are non-fatal and fall back to a direct query.
// An upstream query failure yields the empty set: lookups that cannot be
// completed deny access rather than erroring.
func (g *Guard) TeacherGradeIDs(ctx context.Context, userID string) map[string]struct{} {
	key := cacheKeyPrefix + userID

	if entry, err := g.cache.Get(ctx, key); err == nil {
		var payload cachedGrades
		if err = json.Unmarshal(entry.Value, &payload); err == nil {
			if g.nowFunc().Sub(payload.FetchedAt) < g.ttl {
				return gradeSet(payload.GradeIDs)
			}
		} else {
			g.logger.Warn("corrupt grade-assignment cache entry", errors.Wrap(err, userID))
		}
	} else if errors.Cause(err) != core.ErrCacheMiss {
		g.logger.Warn("reading grade-assignment cache", errors.Wrap(err, userID))
	}

	gradeIDs, err := g.assignments.TeacherGradeIDs(ctx, userID)
	if err != nil {
		// fail closed: no assignments can be proven, none are granted
		g.logger.Error("resolving teacher grade assignments", errors.Wrap(err, userID))
		return map[string]struct{}{}
	}

	g.rewriteCache(ctx, key, userID, gradeIDs)
	return gradeSet(gradeIDs)
}

// rewriteCache is best-effort; a write failure only costs the next caller a
// round trip.
func (g *Guard) rewriteCache(ctx context.Context, key, userID string, gradeIDs []string) {
	payload, err := json.Marshal(cachedGrades{GradeIDs: gradeIDs, FetchedAt: g.nowFunc()})
	if err != nil {
		g.logger.Warn("marshaling grade-assignment cache entry", errors.Wrap(err, userID))
		return
	}
	if err = g.cache.Set(ctx, key, payload); err != nil {
		g.logger.Warn("writing grade-assignment cache", errors.Wrap(err, userID))
	}
}

// Invalidate drops the caller's cached assignments. A freshly (un)assigned
// teacher otherwise gains or loses access only once the TTL lapses.
func (g *Guard) Invalidate(ctx context.Context, userID string) {
	if err := g.cache.Delete(ctx, cacheKeyPrefix+userID); err != nil {
		g.logger.Warn("invalidating grade-assignment cache", errors.Wrap(err, userID))
	}
}

// CanAccessGrade reports whether the caller may read or mutate the grade.
// Admins always may; teachers only within their assigned grades; anyone
// else never.
func (g *Guard) CanAccessGrade(ctx context.Context, userID, gradeID, role string) bool {
	switch role {
	case user.GroupAdmin, user.GroupSuperAdmin:
		return true
	case user.GroupTeacher:
		_, ok := g.TeacherGradeIDs(ctx, userID)[gradeID]
		return ok
	}
	return false
}

// CanAccessLesson resolves the lesson's grade and delegates to
// CanAccessGrade. A missing lesson surfaces as a not_found error so callers
// can distinguish absence from denial where their context requires it.
func (g *Guard) CanAccessLesson(ctx context.Context, userID, lessonID, role string) (bool, error) {
	gradeID, err := g.lessons.GradeID(ctx, lessonID)
	if err != nil {
		return false, err
	}
	return g.CanAccessGrade(ctx, userID, gradeID, role), nil
}

func gradeSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
