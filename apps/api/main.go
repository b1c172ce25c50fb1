package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/lesson"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/cache/redis"
	"github.com/trezcool/darasa/storage/database"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %+v", err)
	}

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	dbx := sqlx.NewDb(db, conf.Database.Engine)
	tables := database.NewNameResolver(conf.Database.TablePrefix)

	// set up cache
	cache := rediscache.New(conf)
	if err = cache.Ping(context.Background()); err != nil {
		// degraded start: the access guard falls back to direct queries
		logger.Warn(fmt.Sprintf("redis unreachable: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrRepo := sqlxrepos.NewUserRepository(dbx, tables)
	schoolRepo := sqlxrepos.NewSchoolRepository(dbx, tables)
	lessonRepo := sqlxrepos.NewLessonRepository(dbx, tables)

	usrSvc := user.NewService(usrRepo)
	schoolSvc := school.NewService(schoolRepo, lessonRepo, usrSvc, mailSvc, logger)
	lessonSvc := lesson.NewService(lessonRepo, schoolSvc)
	reportSvc := report.NewService(schoolRepo, lessonRepo, usrRepo, logger)
	guard := access.NewGuard(schoolSvc, lessonSvc, cache, conf.AssignmentCacheTTL, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		SchoolSvc:  schoolSvc,
		LessonSvc:  lessonSvc,
		ReportSvc:  reportSvc,
		Guard:      guard,
		Validate:   validate,
		Translator: translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
