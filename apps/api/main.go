package main

import (
	"log"
	"os"

	echoapi "github.com/darasa-lms/darasa/apps/api/echo"
	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enroll"
	"github.com/darasa-lms/darasa/core/submission"
	"github.com/darasa-lms/darasa/core/user"
	emailsvc "github.com/darasa-lms/darasa/services/email"
	logsvc "github.com/darasa-lms/darasa/services/logger"
	"github.com/darasa-lms/darasa/storage/database"
	"github.com/darasa-lms/darasa/storage/files"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	workDir, err := os.Getwd()
	errAndDie(std, err)
	conf, err := core.NewConfig(workDir)
	errAndDie(std, err)

	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(std, err)
	defer db.Close()
	errAndDie(std, db.Ping())

	// set up file storage
	uploads, err := files.NewLocalStorage(conf.Uploads.Dir)
	errAndDie(std, err)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrRepo := database.NewUserRepository(db)
	crsRepo := database.NewCourseRepository(db)
	enrRepo := database.NewEnrollmentRepository(db)
	subRepo := database.NewSubmissionRepository(db)

	usrSvc := user.NewService(conf, usrRepo, mailSvc, logger)
	crsSvc := course.NewService(crsRepo, uploads)
	enrSvc := enroll.NewService(enrRepo, crsRepo)
	subSvc := submission.NewService(subRepo, crsRepo, uploads)

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       usrSvc,
		CourseSvc:     crsSvc,
		EnrollSvc:     enrSvc,
		SubmissionSvc: subSvc,
	})
	app.Start()
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
