package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/akilisha/funzo/apps/api/echo"
	"github.com/akilisha/funzo/core"
	"github.com/akilisha/funzo/core/booking"
	"github.com/akilisha/funzo/core/lesson"
	"github.com/akilisha/funzo/core/submission"
	"github.com/akilisha/funzo/core/user"
	emailsvc "github.com/akilisha/funzo/services/email"
	feedbacksvc "github.com/akilisha/funzo/services/feedback"
	logsvc "github.com/akilisha/funzo/services/logger"
	"github.com/akilisha/funzo/storage/database"
	sqlxrepos "github.com/akilisha/funzo/storage/database/sqlx"
)

// defaultGateRules maps a gated lesson to its prerequisite. Lessons absent
// from the map are open to everyone. Kept as wiring so authored content and
// gating stay reviewable in one place.
var defaultGateRules = lesson.GateRules{
	"algebra-quadratic-equations": {LessonID: "algebra-linear-equations", MinGrade: lesson.UnlockThreshold},
	"mechanics-newtons-laws":      {LessonID: "mechanics-motion-basics", MinGrade: lesson.UnlockThreshold},
}

func main() {
	// =========================================================================
	// Set up Dependencies

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(core.Conf.IsDeployed())

	// set up DB
	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close DB", err)
		}
	}()
	dbx := sqlx.NewDb(db, core.Conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	var feedbackSvc core.FeedbackService
	if core.Conf.Feedback.APIKey == "" {
		feedbackSvc = feedbacksvc.NewDummyService()
	} else {
		feedbackSvc = feedbacksvc.NewHTTPService(logger)
	}

	lsnRepo := sqlxrepos.NewLessonRepository(dbx)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(dbx), mailSvc, logger)
	lsnSvc := lesson.NewService(lsnRepo)
	subSvc := submission.NewService(sqlxrepos.NewSubmissionRepository(dbx), feedbackSvc, mailSvc, usrSvc, logger)
	bookSvc := booking.NewService(sqlxrepos.NewBookingRepository(dbx))
	gate := lesson.NewGate(defaultGateRules, lsnRepo, subSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(core.Conf.Build)
	expvar.NewString("env").Set(core.Conf.Env)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:       core.Conf.Address(),
			Logger:        logger,
			UserSvc:       usrSvc,
			LessonSvc:     lsnSvc,
			SubmissionSvc: subSvc,
			BookingSvc:    bookSvc,
			Gate:          gate,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB() (*sql.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}

	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
