package conference

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/confsys/core"
)

const DateLayout = "2006-01-02"

var NowFunc = time.Now // mockable

type Conference struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Institute        string    `json:"institute"`
	InstituteDetails string    `json:"institute_details"`
	Description      string    `json:"description"`
	StartDate        time.Time `json:"start_date"` // UTC midnight
	EndDate          time.Time `json:"end_date"`   // UTC midnight; submission deadline
	Tracks           []Track   `json:"tracks,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SubmissionsOpen reports whether papers may still be submitted at `now`: its UTC date must not be after EndDate.
func (c Conference) SubmissionsOpen(now time.Time) bool {
	return !toDate(now).After(toDate(c.EndDate))
}

// HasTrack reports whether trackID is one of the loaded Tracks.
func (c Conference) HasTrack(trackID string) bool {
	for _, t := range c.Tracks {
		if t.ID == trackID {
			return true
		}
	}
	return false
}

type Track struct {
	ID           string `json:"id"`
	ConferenceID string `json:"conference_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
}

// Chair links a user to the conferences they run. A user has at most one Chair.
type Chair struct {
	ID            string   `json:"id"`
	UserID        string   `json:"user_id"`
	ConferenceIDs []string `json:"conference_ids"`
}

// NewConference contains information needed to create a new Conference.
type NewConference struct {
	Title            string `json:"title" validate:"required,notblank,max=255"`
	Institute        string `json:"institute" validate:"required,notblank,max=255"`
	InstituteDetails string `json:"institute_details"`
	Description      string `json:"description"`
	StartDate        string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate          string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

func (nc *NewConference) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Institute = core.CleanString(nc.Institute)
	nc.InstituteDetails = core.CleanString(nc.InstituteDetails)
	nc.Description = core.CleanString(nc.Description)
	nc.StartDate = core.CleanString(nc.StartDate)
	nc.EndDate = core.CleanString(nc.EndDate)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	start, end := nc.dates()
	if start.After(end) {
		return core.NewFieldError("end_date", "end date cannot be before start date")
	}
	return nil
}

// dates parses StartDate and EndDate, which must have been validated.
func (nc NewConference) dates() (time.Time, time.Time) {
	start, _ := time.Parse(DateLayout, nc.StartDate)
	end, _ := time.Parse(DateLayout, nc.EndDate)
	return start, end
}

type NewTrack struct {
	ConferenceID string `json:"-"`
	Title        string `json:"title" validate:"required,notblank,max=255"`
	Description  string `json:"description"`
}

func (nt *NewTrack) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	return validate.Struct(nt)
}

// SetChairs selects the users chairing a conference.
type SetChairs struct {
	UserIDs []string `json:"user_ids"`
}

func toDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
