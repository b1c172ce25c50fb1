package access

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	inmemcache "github.com/trezcool/darasa/storage/cache/inmem"
)

type assignmentSourceStub struct {
	grades map[string][]string
	err    error
	calls  int
}

func (s *assignmentSourceStub) TeacherGradeIDs(_ context.Context, userID string) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.grades[userID], nil
}

type lessonSourceStub struct {
	grades map[string]string
}

func (s *lessonSourceStub) GradeID(_ context.Context, lessonID string) (string, error) {
	gradeID, ok := s.grades[lessonID]
	if !ok {
		return "", core.NewError(core.KindNotFound, "lesson not found")
	}
	return gradeID, nil
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (core.CacheEntry, error) {
	return core.CacheEntry{}, errors.New("cache transport down")
}
func (failingCache) Set(context.Context, string, []byte) error { return errors.New("cache transport down") }
func (failingCache) Delete(context.Context, string) error      { return errors.New("cache transport down") }

func newTestGuard(assignments AssignmentSource, lessons LessonSource, cache core.KVCache, ttl time.Duration) *Guard {
	return NewGuard(assignments, lessons, cache, ttl, core.NopLogger{})
}

func TestTeacherGradeIDsCaching(t *testing.T) {
	ctx := context.Background()
	src := &assignmentSourceStub{grades: map[string][]string{"t1": {"g1", "g2"}}}
	guard := newTestGuard(src, &lessonSourceStub{}, inmemcache.New(), 15*time.Minute)

	// first resolution hits upstream and writes the cache
	got := guard.TeacherGradeIDs(ctx, "t1")
	if len(got) != 2 {
		t.Fatalf("TeacherGradeIDs() = %v, want 2 grades", got)
	}
	if src.calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", src.calls)
	}

	// within TTL the cached payload is served
	for i := 0; i < 3; i++ {
		got = guard.TeacherGradeIDs(ctx, "t1")
	}
	if _, ok := got["g1"]; !ok {
		t.Errorf("cached set missing g1: %v", got)
	}
	if src.calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (cache should serve within TTL)", src.calls)
	}

	// after TTL expiry exactly one refresh happens
	guard.nowFunc = func() time.Time { return time.Now().Add(16 * time.Minute) }
	guard.TeacherGradeIDs(ctx, "t1")
	if src.calls != 2 {
		t.Errorf("upstream calls = %d, want 2 (expiry should trigger one refresh)", src.calls)
	}
}

func TestTeacherGradeIDsFailurePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("cache transport failure falls back to upstream", func(t *testing.T) {
		src := &assignmentSourceStub{grades: map[string][]string{"t1": {"g1"}}}
		guard := newTestGuard(src, &lessonSourceStub{}, failingCache{}, time.Minute)

		got := guard.TeacherGradeIDs(ctx, "t1")
		if _, ok := got["g1"]; !ok {
			t.Errorf("TeacherGradeIDs() = %v, want g1 despite cache failure", got)
		}
		if src.calls != 1 {
			t.Errorf("upstream calls = %d, want 1", src.calls)
		}
	})

	t.Run("corrupt cache payload triggers refresh", func(t *testing.T) {
		cache := inmemcache.New()
		_ = cache.Set(ctx, "teacher-grades:t1", []byte("{not json"))
		src := &assignmentSourceStub{grades: map[string][]string{"t1": {"g1"}}}
		guard := newTestGuard(src, &lessonSourceStub{}, cache, time.Minute)

		got := guard.TeacherGradeIDs(ctx, "t1")
		if _, ok := got["g1"]; !ok {
			t.Errorf("TeacherGradeIDs() = %v, want g1", got)
		}
		if src.calls != 1 {
			t.Errorf("upstream calls = %d, want 1", src.calls)
		}
	})

	t.Run("upstream failure denies access", func(t *testing.T) {
		src := &assignmentSourceStub{err: errors.New("rate limited")}
		guard := newTestGuard(src, &lessonSourceStub{}, inmemcache.New(), time.Minute)

		if got := guard.TeacherGradeIDs(ctx, "t1"); len(got) != 0 {
			t.Errorf("TeacherGradeIDs() = %v, want empty set on upstream failure", got)
		}
	})
}

func TestCanAccessGrade(t *testing.T) {
	ctx := context.Background()
	src := &assignmentSourceStub{grades: map[string][]string{"t1": {"g1"}}}
	guard := newTestGuard(src, &lessonSourceStub{}, inmemcache.New(), time.Minute)

	tests := []struct {
		name    string
		userID  string
		gradeID string
		role    string
		want    bool
	}{
		{name: "admin always allowed", userID: "a1", gradeID: "g9", role: user.GroupAdmin, want: true},
		{name: "superadmin always allowed", userID: "s1", gradeID: "g9", role: user.GroupSuperAdmin, want: true},
		{name: "teacher within assignment", userID: "t1", gradeID: "g1", role: user.GroupTeacher, want: true},
		{name: "teacher outside assignment", userID: "t1", gradeID: "g2", role: user.GroupTeacher},
		{name: "unknown role", userID: "t1", gradeID: "g1", role: "PUPIL"},
		{name: "no role", userID: "t1", gradeID: "g1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := guard.CanAccessGrade(ctx, tt.userID, tt.gradeID, tt.role); got != tt.want {
				t.Errorf("CanAccessGrade() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanAccessLesson(t *testing.T) {
	ctx := context.Background()
	src := &assignmentSourceStub{grades: map[string][]string{"t1": {"g1"}}}
	lessons := &lessonSourceStub{grades: map[string]string{"l1": "g1", "l2": "g2"}}
	guard := newTestGuard(src, lessons, inmemcache.New(), time.Minute)

	ok, err := guard.CanAccessLesson(ctx, "t1", "l1", user.GroupTeacher)
	if err != nil || !ok {
		t.Errorf("CanAccessLesson(l1) = %v, %v; want true, nil", ok, err)
	}

	ok, err = guard.CanAccessLesson(ctx, "t1", "l2", user.GroupTeacher)
	if err != nil || ok {
		t.Errorf("CanAccessLesson(l2) = %v, %v; want false, nil", ok, err)
	}

	_, err = guard.CanAccessLesson(ctx, "t1", "nope", user.GroupTeacher)
	if !core.IsNotFound(err) {
		t.Errorf("CanAccessLesson(nope) err = %v, want not_found", err)
	}
}
