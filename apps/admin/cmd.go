package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/confsys/core/conference"
	"github.com/trezcool/confsys/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	dbEngine string
	usrSvc   *user.Service
	confSvc  *conference.Service
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run goose migration commands: up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix")
	fmt.Println("  adduser -email EMAIL [-firstname NAME] [-lastname NAME] [-staff] [-superuser] - add or update a user")
	fmt.Println("  resetpassword -email EMAIL - reset user's password")
	fmt.Println("  addconference -title TITLE -institute INSTITUTE -start YYYY-MM-DD -end YYYY-MM-DD [-description TEXT] - add a conference")
	fmt.Println("  addtrack -conference ID -title TITLE [-description TEXT] - add a track to a conference")
	fmt.Println("  setchairs -conference ID -emails EMAIL[,EMAIL...] - set the chairs of a conference")
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	out := cli.out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, format, args...)
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserFirstName := addUserCmd.String("firstname", "", "The user's first name.")
	addUserLastName := addUserCmd.String("lastname", "", "The user's last name.")
	addUserStaff := addUserCmd.Bool("staff", false, "Whether the user can manage conferences.")
	addUserSuperuser := addUserCmd.Bool("superuser", false, "Whether the user has all permissions.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	addConferenceCmd := flag.NewFlagSet("addconference", flag.ContinueOnError)
	addConferenceTitle := addConferenceCmd.String("title", "", "The conference title.")
	addConferenceInstitute := addConferenceCmd.String("institute", "", "The hosting institute.")
	addConferenceStart := addConferenceCmd.String("start", "", "The start date, eg. 2030-01-31.")
	addConferenceEnd := addConferenceCmd.String("end", "", "The end date, which is also the submission deadline.")
	addConferenceDesc := addConferenceCmd.String("description", "", "The conference description.")

	addTrackCmd := flag.NewFlagSet("addtrack", flag.ContinueOnError)
	addTrackConference := addTrackCmd.String("conference", "", "The conference ID.")
	addTrackTitle := addTrackCmd.String("title", "", "The track title.")
	addTrackDesc := addTrackCmd.String("description", "", "The track description.")

	setChairsCmd := flag.NewFlagSet("setchairs", flag.ContinueOnError)
	setChairsConference := setChairsCmd.String("conference", "", "The conference ID.")
	setChairsEmails := setChairsCmd.String("emails", "", "Comma separated emails of the chairs; other chairs are removed.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(newUserArgs{
			email:       *addUserEmail,
			firstName:   *addUserFirstName,
			lastName:    *addUserLastName,
			pwd:         pwd,
			isStaff:     *addUserStaff,
			isSuperuser: *addUserSuperuser,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "addconference":
		if err := addConferenceCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addConferenceTitle == "" || *addConferenceStart == "" || *addConferenceEnd == "" {
			addConferenceCmd.Usage()
			return errHelp
		}
		return cli.addConference(conference.NewConference{
			Title:       *addConferenceTitle,
			Institute:   *addConferenceInstitute,
			Description: *addConferenceDesc,
			StartDate:   *addConferenceStart,
			EndDate:     *addConferenceEnd,
		})

	case "addtrack":
		if err := addTrackCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTrackConference == "" || *addTrackTitle == "" {
			addTrackCmd.Usage()
			return errHelp
		}
		return cli.addTrack(conference.NewTrack{
			ConferenceID: *addTrackConference,
			Title:        *addTrackTitle,
			Description:  *addTrackDesc,
		})

	case "setchairs":
		if err := setChairsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setChairsConference == "" || *setChairsEmails == "" {
			setChairsCmd.Usage()
			return errHelp
		}
		return cli.setChairs(*setChairsConference, strings.Split(*setChairsEmails, ","))

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
