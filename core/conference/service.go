package conference

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/user"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("conference not found")
	ErrTrackNotFound = core.NewNotFoundError("track not found")
	ErrChairNotFound = core.NewNotFoundError("chair not found")
)

type (
	Repository interface {
		// RunInTx runs fn with a Repository bound to a single transaction.
		RunInTx(ctx context.Context, fn func(repo Repository) error) error

		CreateConference(ctx context.Context, conf Conference) (Conference, error)
		// QueryConferences returns all conferences ordered by start date.
		QueryConferences(ctx context.Context) ([]Conference, error)
		// GetConference returns the conference with its tracks.
		GetConference(ctx context.Context, id string) (Conference, error)

		CreateTrack(ctx context.Context, track Track) (Track, error)
		GetTrack(ctx context.Context, id string) (Track, error)

		GetChairByUser(ctx context.Context, userID string) (Chair, error)
		CreateChair(ctx context.Context, chair Chair) (Chair, error)
		// AddChairConference is a no-op if the chair already runs the conference.
		AddChairConference(ctx context.Context, chairID, conferenceID string) error
		RemoveChairConference(ctx context.Context, chairID, conferenceID string) error
		// ListChairUsers returns the IDs of the users chairing the conference.
		ListChairUsers(ctx context.Context, conferenceID string) ([]string, error)
		IsChair(ctx context.Context, userID, conferenceID string) (bool, error)
	}

	// UserGetter resolves users by ID.
	UserGetter interface {
		GetManyByID(ctx context.Context, ids []string) ([]user.User, error)
	}

	Service struct {
		repo   Repository
		users  UserGetter
		logger core.Logger
	}
)

func NewService(repo Repository, users UserGetter, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{repo: repo, users: users, logger: logger}
}

func (svc *Service) Create(ctx context.Context, nc NewConference) (Conference, error) {
	start, end := nc.dates()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return svc.repo.CreateConference(ctx, Conference{
		Title:            nc.Title,
		Institute:        nc.Institute,
		InstituteDetails: nc.InstituteDetails,
		Description:      nc.Description,
		StartDate:        start,
		EndDate:          end,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (svc *Service) Query(ctx context.Context) ([]Conference, error) {
	return svc.repo.QueryConferences(ctx)
}

func (svc *Service) Get(ctx context.Context, id string) (Conference, error) {
	return svc.repo.GetConference(ctx, id)
}

func (svc *Service) AddTrack(ctx context.Context, nt NewTrack) (Track, error) {
	if _, err := svc.repo.GetConference(ctx, nt.ConferenceID); err != nil {
		return Track{}, err
	}
	return svc.repo.CreateTrack(ctx, Track{
		ConferenceID: nt.ConferenceID,
		Title:        nt.Title,
		Description:  nt.Description,
	})
}

func (svc *Service) GetTrack(ctx context.Context, id string) (Track, error) {
	return svc.repo.GetTrack(ctx, id)
}

// IsChair reports whether the user chairs the conference.
func (svc *Service) IsChair(ctx context.Context, userID, conferenceID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return svc.repo.IsChair(ctx, userID, conferenceID)
}

// Chairs returns the users chairing the conference.
func (svc *Service) Chairs(ctx context.Context, conferenceID string) ([]user.User, error) {
	ids, err := svc.repo.ListChairUsers(ctx, conferenceID)
	if err != nil {
		return nil, errors.Wrap(err, "listing chairs")
	}
	return svc.users.GetManyByID(ctx, ids)
}

// ChairedConferences returns the IDs of the conferences the user chairs.
func (svc *Service) ChairedConferences(ctx context.Context, userID string) ([]string, error) {
	chair, err := svc.repo.GetChairByUser(ctx, userID)
	if err != nil {
		if core.IsNotFound(err) {
			return []string{}, nil
		}
		return nil, err
	}
	return chair.ConferenceIDs, nil
}

// SetChairs reconciles the chairs of the conference so that they are exactly the given users.
// Chair rows are created as needed; users dropped from the set keep their other conferences.
func (svc *Service) SetChairs(ctx context.Context, conferenceID string, data SetChairs) ([]user.User, error) {
	if _, err := svc.repo.GetConference(ctx, conferenceID); err != nil {
		return nil, err
	}

	users, err := svc.users.GetManyByID(ctx, data.UserIDs)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, core.NewFieldError("user_ids", "unknown user")
		}
		return nil, err
	}

	wanted := make(map[string]bool, len(users))
	for _, usr := range users {
		wanted[usr.ID] = true
	}

	err = svc.repo.RunInTx(ctx, func(repo Repository) error {
		current, err := repo.ListChairUsers(ctx, conferenceID)
		if err != nil {
			return errors.Wrap(err, "listing chairs")
		}
		for _, userID := range current {
			if wanted[userID] {
				delete(wanted, userID) // already chairs
				continue
			}
			chair, err := repo.GetChairByUser(ctx, userID)
			if err != nil {
				return errors.Wrap(err, "finding chair")
			}
			if err = repo.RemoveChairConference(ctx, chair.ID, conferenceID); err != nil {
				return errors.Wrap(err, "removing chair")
			}
		}
		for _, usr := range users {
			if !wanted[usr.ID] {
				continue
			}
			chair, err := getOrCreateChair(ctx, repo, usr.ID)
			if err != nil {
				return err
			}
			if err = repo.AddChairConference(ctx, chair.ID, conferenceID); err != nil {
				return errors.Wrap(err, "adding chair")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func getOrCreateChair(ctx context.Context, repo Repository, userID string) (Chair, error) {
	chair, err := repo.GetChairByUser(ctx, userID)
	if err == nil {
		return chair, nil
	}
	if !core.IsNotFound(err) {
		return Chair{}, errors.Wrap(err, "finding chair")
	}
	chair, err = repo.CreateChair(ctx, Chair{UserID: userID})
	if err != nil {
		return Chair{}, errors.Wrap(err, "creating chair")
	}
	return chair, nil
}
