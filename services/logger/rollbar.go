package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/user"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
	levelFatal
)

var reporters = map[level]func(...interface{}){
	levelDebug: rollbar.Debug,
	levelInfo:  rollbar.Info,
	levelWarn:  rollbar.Warning,
	levelError: rollbar.Error,
	levelFatal: rollbar.Critical,
}

var tags = map[level]string{
	levelDebug: "DEBUG",
	levelInfo:  "INFO",
	levelWarn:  "WARN",
	levelError: "ERROR",
	levelFatal: "FATAL",
}

// RollbarLogger prints every entry to std and forwards it to Rollbar when
// a token is configured.
type RollbarLogger struct {
	std      *log.Logger
	hasToken bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std, hasToken: conf.RollbarToken != ""}
}

// Enable toggles reporting; printing is never disabled.
func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled && l.hasToken)
}

// splitPerson pulls the affected user out of args.
// Only the first user counts; the rest are dropped.
func splitPerson(args []interface{}) (*user.User, []interface{}) {
	var person *user.User
	rest := make([]interface{}, 0, len(args))
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if person == nil {
				person = &v
			}
		case *user.User:
			if person == nil && v != nil {
				person = v
			}
		default:
			rest = append(rest, arg)
		}
	}
	return person, rest
}

func (l *RollbarLogger) log(lvl level, msg string, args []interface{}) {
	person, rest := splitPerson(args)

	if person != nil {
		rollbar.SetPerson(person.ID, person.FullName(), person.Email)
	} else {
		rollbar.ClearPerson()
	}
	reporters[lvl](append([]interface{}{msg}, rest...)...)

	l.std.Printf("[%s] %s", tags[lvl], msg)
	for _, arg := range rest {
		l.std.Printf("%+v", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(levelDebug, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(levelInfo, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(levelWarn, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(levelError, msg, args) }

// Fatal waits for pending reports before exiting.
func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(levelFatal, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
