// Package testutil wires real services on a throwaway sqlite database for tests.
package testutil

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/conference"
	"github.com/trezcool/confsys/core/paper"
	"github.com/trezcool/confsys/core/user"
	appfs "github.com/trezcool/confsys/fs"
	emailsvc "github.com/trezcool/confsys/services/email"
	"github.com/trezcool/confsys/services/filestore"
	"github.com/trezcool/confsys/storage/database"
	sqlxrepos "github.com/trezcool/confsys/storage/database/sqlx"
)

// DefaultPassword satisfies the password policy.
const DefaultPassword = "Sup3r-S3cret!"

type NopLogger struct{}

func (*NopLogger) Debug(string, ...interface{}) {}
func (*NopLogger) Info(string, ...interface{})  {}
func (*NopLogger) Warn(string, ...interface{})  {}
func (*NopLogger) Error(string, ...interface{}) {}
func (*NopLogger) Fatal(string, ...interface{}) {}

// PrepareDB returns a migrated sqlite database living in the test's temp dir.
func PrepareDB(t *testing.T, conf *core.Config) *sqlx.DB {
	t.Helper()

	conf.Database.Engine = core.EngineSQLite
	conf.Database.Path = filepath.Join(t.TempDir(), "test.db")

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB, appfs.FS, appfs.MigrationsDir, conf.Database.Engine); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator set up like the API server's.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)
	return validate, translator
}

// Env holds the services wired on a fresh database.
type Env struct {
	Conf       *core.Config
	DB         *sqlx.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Logger     core.Logger
	Mail       *emailsvc.ConsoleService
	Files      *filestore.LocalStore

	UserRepo       user.Repository
	ConferenceRepo conference.Repository
	PaperRepo      paper.Repository

	Users       *user.Service
	Conferences *conference.Service
	Papers      *paper.Service
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	env := &Env{Conf: core.NewTestConfig(), Logger: &NopLogger{}}
	env.DB = PrepareDB(t, env.Conf)
	env.Validate, env.Translator = NewValidator()
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, env.Logger, true)
	user.LoadCommonPasswords(appfs.FS, appfs.CommonPasswordsAsset, env.Logger)

	files, err := filestore.NewLocalStore(filepath.Join(t.TempDir(), "media"))
	if err != nil {
		t.Fatalf("NewEnv() failed: %v", err)
	}
	env.Files = files
	env.Mail = emailsvc.NewConsoleServiceMock(env.Conf, env.Logger)

	env.UserRepo = sqlxrepos.NewUserRepository(env.DB)
	env.ConferenceRepo = sqlxrepos.NewConferenceRepository(env.DB)
	env.PaperRepo = sqlxrepos.NewPaperRepository(env.DB)

	env.Users = user.NewService(env.UserRepo, env.Mail, env.Conf, env.Logger)
	env.Conferences = conference.NewService(env.ConferenceRepo, env.Users, env.Logger)
	env.Papers = paper.NewService(env.PaperRepo, env.Conferences, env.Users, env.Files, env.Mail, env.Validate, env.Logger)
	return env
}

// CreateUser creates an active user with DefaultPassword.
func (env *Env) CreateUser(t *testing.T, email, firstName, lastName string) user.User {
	t.Helper()

	usr, err := env.Users.Create(context.Background(), user.NewUser{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Password:  DefaultPassword,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateStaff creates an active staff user with DefaultPassword.
func (env *Env) CreateStaff(t *testing.T, email string) user.User {
	t.Helper()

	usr := env.CreateUser(t, email, "Staff", "Member")
	usr.IsStaff = true
	usr, err := env.Users.Save(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}
	return usr
}

// CreateConference creates a conference running from start to end ("2006-01-02") with the given tracks.
func (env *Env) CreateConference(t *testing.T, title, start, end string, tracks ...string) conference.Conference {
	t.Helper()
	ctx := context.Background()

	nc := conference.NewConference{Title: title, Institute: "Institute of " + title, StartDate: start, EndDate: end}
	if err := nc.Validate(env.Validate); err != nil {
		t.Fatalf("CreateConference() failed: %v", err)
	}
	conf, err := env.Conferences.Create(ctx, nc)
	if err != nil {
		t.Fatalf("CreateConference() failed: %v", err)
	}
	for _, track := range tracks {
		if _, err = env.Conferences.AddTrack(ctx, conference.NewTrack{ConferenceID: conf.ID, Title: track}); err != nil {
			t.Fatalf("CreateConference() failed: %v", err)
		}
	}
	if conf, err = env.Conferences.Get(ctx, conf.ID); err != nil {
		t.Fatalf("CreateConference() failed: %v", err)
	}
	return conf
}

// OpenConference creates a conference open for submissions with the given tracks.
func (env *Env) OpenConference(t *testing.T, title string, tracks ...string) conference.Conference {
	t.Helper()
	now := time.Now().UTC()
	return env.CreateConference(t, title,
		now.AddDate(0, -1, 0).Format(conference.DateLayout),
		now.AddDate(0, 1, 0).Format(conference.DateLayout),
		tracks...)
}

func (env *Env) SetChairs(t *testing.T, conf conference.Conference, users ...user.User) {
	t.Helper()

	ids := make([]string, 0, len(users))
	for _, usr := range users {
		ids = append(ids, usr.ID)
	}
	if _, err := env.Conferences.SetChairs(context.Background(), conf.ID, conference.SetChairs{UserIDs: ids}); err != nil {
		t.Fatalf("SetChairs() failed: %v", err)
	}
}

// NewPDF returns a small paper file.
func NewPDF(name string) *paper.File {
	content := []byte("%PDF-1.4\n% " + name + "\n")
	return &paper.File{
		Name:        name,
		ContentType: "application/pdf",
		Size:        int64(len(content)),
		Content:     bytes.NewReader(content),
	}
}

// SubmitPaper submits a paper to the first track of conf.
func (env *Env) SubmitPaper(t *testing.T, caller user.User, conf conference.Conference, title string, coauthors ...user.User) paper.Paper {
	t.Helper()

	ids := make([]string, 0, len(coauthors))
	for _, usr := range coauthors {
		ids = append(ids, usr.ID)
	}
	p, err := env.Papers.Submit(context.Background(), caller, paper.NewPaper{
		ConferenceID: conf.ID,
		Title:        title,
		Abstract:     "Abstract of " + title,
		TrackID:      conf.Tracks[0].ID,
		AuthorIDs:    ids,
		File:         NewPDF("paper.pdf"),
	})
	if err != nil {
		t.Fatalf("SubmitPaper() failed: %v", err)
	}
	return p
}

func (env *Env) AssignReviewer(t *testing.T, chair user.User, p paper.Paper, reviewer user.User) paper.Reviewer {
	t.Helper()

	rv, err := env.Papers.AssignReviewer(context.Background(), chair, p.ID, paper.AddReviewer{UserID: reviewer.ID})
	if err != nil {
		t.Fatalf("AssignReviewer() failed: %v", err)
	}
	return rv
}
