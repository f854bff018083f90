package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/subject"
	"github.com/trezcool/masomo-curriculum/core/user"
	emailsvc "github.com/trezcool/masomo-curriculum/services/email"
	logsvc "github.com/trezcool/masomo-curriculum/services/logger"
	"github.com/trezcool/masomo-curriculum/storage/database"
	sqlxrepos "github.com/trezcool/masomo-curriculum/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, std)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	subjectSvc, err := subject.NewService(sqlxrepos.NewSubjectRepository(db), logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up subject service: %v", err), err)
	}

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	subject.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:       conf,
		db:         db,
		usrSvc:     user.NewService(sqlxrepos.NewUserRepository(db)),
		subjectSvc: subjectSvc,
		validate:   validate,
		logger:     logger,
		mailSvc:    mailSvc,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
