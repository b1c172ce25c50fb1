package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/lesson"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	inmemcache "github.com/trezcool/darasa/storage/cache/inmem"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

type apiFixture struct {
	server     Server
	userRepo   user.Repository
	schoolRepo school.Repository
	lessonRepo lesson.Repository
}

func setupServer(t *testing.T) apiFixture {
	t.Helper()

	conf := &core.Config{
		Env:                "TEST",
		TestMode:           true,
		AppName:            "Darasa",
		SecretKey:          "secret",
		DefaultFromEmail:   "noreply@localhost",
		AssignmentCacheTTL: time.Minute,
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	db, err := inmemdb.Open()
	require.NoError(t, err)
	f := apiFixture{
		userRepo:   inmemdb.NewUserRepository(db),
		schoolRepo: inmemdb.NewSchoolRepository(db),
		lessonRepo: inmemdb.NewLessonRepository(db),
	}

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(f.userRepo)
	schoolSvc := school.NewService(f.schoolRepo, f.lessonRepo, usrSvc, mailSvc, core.NopLogger{})
	lessonSvc := lesson.NewService(f.lessonRepo, schoolSvc)
	reportSvc := report.NewService(f.schoolRepo, f.lessonRepo, f.userRepo, core.NopLogger{})
	guard := access.NewGuard(schoolSvc, lessonSvc, inmemcache.New(), conf.AssignmentCacheTTL, core.NopLogger{})

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)

	f.server = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         core.NopLogger{},
		UserSvc:        usrSvc,
		SchoolSvc:      schoolSvc,
		LessonSvc:      lessonSvc,
		ReportSvc:      reportSvc,
		Guard:          guard,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return f
}

func (f apiFixture) createUser(t *testing.T, name, email string, groups []string) user.User {
	t.Helper()
	usr, err := f.userRepo.CreateUser(context.Background(), user.User{
		Name:     name,
		Email:    email,
		IsActive: true,
		Groups:   groups,
	})
	require.NoError(t, err)
	return usr
}

func (f apiFixture) createGrade(t *testing.T, name string) school.Grade {
	t.Helper()
	grd, err := f.schoolRepo.CreateGrade(context.Background(), school.Grade{Name: name, IsActive: true})
	require.NoError(t, err)
	return grd
}

func (f apiFixture) assign(t *testing.T, usr user.User, grd school.Grade) {
	t.Helper()
	_, err := f.schoolRepo.CreateAssignment(context.Background(), school.TeacherGradeAssignment{
		UserID:  usr.ID,
		GradeID: grd.ID,
	})
	require.NoError(t, err)
}

func (f apiFixture) createLesson(t *testing.T, grd school.Grade, title string) lesson.Lesson {
	t.Helper()
	lsn, err := f.lessonRepo.CreateLesson(context.Background(), lesson.Lesson{
		GradeID: grd.ID,
		Title:   title,
	})
	require.NoError(t, err)
	return lsn
}

// getToken must run after setupServer; token signing reads the server config.
func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	require.NoError(t, err)
	return token
}

func doRequest(f apiFixture, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

type httpAccessTest struct {
	name      string
	path      string
	token     string
	wantCode  int
	wantError string
}

func runAccessTests(t *testing.T, f apiFixture, tests []httpAccessTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(f, http.MethodGet, tt.path, tt.token)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantError != "" {
				var body struct {
					Error string `json:"error"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantError, body.Error)
			}
		})
	}
}

func TestGradeAccess(t *testing.T) {
	f := setupServer(t)

	assigned := f.createGrade(t, "Beginners")
	other := f.createGrade(t, "Juniors")

	teacher := f.createUser(t, "Teach", "teach@test.cd", []string{user.GroupTeacher})
	outsider := f.createUser(t, "Guest", "guest@test.cd", nil)
	admin := f.createUser(t, "Admin", "admin@test.cd", []string{user.GroupAdmin})
	f.assign(t, teacher, assigned)

	teacherToken := getToken(t, teacher)

	runAccessTests(t, f, []httpAccessTest{
		{
			name: "Auth required", path: "/v1/grades/" + assigned.ID,
			wantCode: http.StatusUnauthorized, wantError: "missing or malformed jwt",
		},
		{
			name: "Assigned teacher passes", path: "/v1/grades/" + assigned.ID,
			token: teacherToken, wantCode: http.StatusOK,
		},
		{
			name: "Unassigned grade is masked", path: "/v1/grades/" + other.ID,
			token: teacherToken, wantCode: http.StatusNotFound, wantError: "not found",
		},
		{
			name: "No recognized role", path: "/v1/grades/" + assigned.ID,
			token: getToken(t, outsider), wantCode: http.StatusForbidden, wantError: "permission denied",
		},
		{
			name: "Admin passes unassigned", path: "/v1/grades/" + other.ID,
			token: getToken(t, admin), wantCode: http.StatusOK,
		},
		{
			name: "Sub-resources masked too", path: "/v1/grades/" + other.ID + "/pupils",
			token: teacherToken, wantCode: http.StatusNotFound, wantError: "not found",
		},
	})
}

func TestLessonAccess(t *testing.T) {
	f := setupServer(t)

	assigned := f.createGrade(t, "Beginners")
	other := f.createGrade(t, "Juniors")
	ownLesson := f.createLesson(t, assigned, "Creation")
	otherLesson := f.createLesson(t, other, "The Flood")

	teacher := f.createUser(t, "Teach", "teach@test.cd", []string{user.GroupTeacher})
	outsider := f.createUser(t, "Guest", "guest@test.cd", nil)
	admin := f.createUser(t, "Admin", "admin@test.cd", []string{user.GroupAdmin})
	f.assign(t, teacher, assigned)

	teacherToken := getToken(t, teacher)

	runAccessTests(t, f, []httpAccessTest{
		{
			name: "Own lesson", path: "/v1/lessons/" + ownLesson.ID,
			token: teacherToken, wantCode: http.StatusOK,
		},
		{
			name: "Lesson outside assignment is masked", path: "/v1/lessons/" + otherLesson.ID,
			token: teacherToken, wantCode: http.StatusNotFound, wantError: "not found",
		},
		{
			name: "Missing lesson", path: "/v1/lessons/nope",
			token: getToken(t, admin), wantCode: http.StatusNotFound, wantError: "lesson not found",
		},
		{
			name: "No recognized role", path: "/v1/lessons/" + ownLesson.ID,
			token: getToken(t, outsider), wantCode: http.StatusForbidden, wantError: "permission denied",
		},
	})
}
