package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/conference"
	"github.com/trezcool/confsys/core/user"
	emailsvc "github.com/trezcool/confsys/services/email"
	logsvc "github.com/trezcool/confsys/services/logger"
	"github.com/trezcool/confsys/storage/database"
	sqlxrepos "github.com/trezcool/confsys/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	if err = db.Ping(); err != nil {
		logger.Fatal("pinging database", err)
	}

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	// the CLI sends no emails
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleService(conf, logger), conf, logger)

	// start CLI
	cli := commandLine{
		db:       db.DB,
		dbEngine: conf.Database.Engine,
		usrSvc:   usrSvc,
		confSvc:  conference.NewService(sqlxrepos.NewConferenceRepository(db), usrSvc, logger),
		validate: validate,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			log.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
