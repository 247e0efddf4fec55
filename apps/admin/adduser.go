package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/user"
)

type newUserArgs struct {
	email, firstName, lastName, pwd string
	isStaff, isSuperuser            bool
}

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(args newUserArgs) error {
	ctx := context.Background()
	email := core.CleanString(args.email, true /* lower */)

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email}
	}
	if name := core.CleanString(args.firstName); name != "" {
		usr.FirstName = name
	}
	if name := core.CleanString(args.lastName); name != "" {
		usr.LastName = name
	}
	usr.IsActive = true
	usr.IsStaff = args.isStaff || args.isSuperuser
	usr.IsSuperuser = args.isSuperuser
	if err = usr.SetPassword(args.pwd); err != nil {
		return err
	}
	if usr, err = cli.usrSvc.Save(ctx, usr); err != nil {
		return err
	}
	cli.printf("user %s saved: %s\n", usr.Email, usr.ID)
	return nil
}
