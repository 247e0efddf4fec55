package main

import (
	"context"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/conference"
)

func (cli *commandLine) addConference(nc conference.NewConference) error {
	if err := nc.Validate(cli.validate); err != nil {
		return err
	}
	conf, err := cli.confSvc.Create(context.Background(), nc)
	if err != nil {
		return err
	}
	cli.printf("conference %q added: %s\n", conf.Title, conf.ID)
	return nil
}

func (cli *commandLine) addTrack(nt conference.NewTrack) error {
	if err := nt.Validate(cli.validate); err != nil {
		return err
	}
	track, err := cli.confSvc.AddTrack(context.Background(), nt)
	if err != nil {
		return err
	}
	cli.printf("track %q added: %s\n", track.Title, track.ID)
	return nil
}

// setChairs makes the users owning `emails` the only chairs of the conference.
func (cli *commandLine) setChairs(conferenceID string, emails []string) error {
	ctx := context.Background()
	ids := make([]string, 0, len(emails))
	for _, email := range emails {
		if email = core.CleanString(email, true /* lower */); email == "" {
			continue
		}
		usr, err := cli.usrSvc.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		ids = append(ids, usr.ID)
	}
	users, err := cli.confSvc.SetChairs(ctx, conferenceID, conference.SetChairs{UserIDs: ids})
	if err != nil {
		return err
	}
	for _, usr := range users {
		cli.printf("chair: %s\n", usr.Email)
	}
	return nil
}
