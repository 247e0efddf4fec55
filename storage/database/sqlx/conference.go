package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core/conference"
)

const conferenceColumns = "id, title, institute, institute_details, description, start_date, end_date, created_at, updated_at"

type conferenceRow struct {
	ID               string    `db:"id"`
	Title            string    `db:"title"`
	Institute        string    `db:"institute"`
	InstituteDetails string    `db:"institute_details"`
	Description      string    `db:"description"`
	StartDate        time.Time `db:"start_date"`
	EndDate          time.Time `db:"end_date"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func toConferenceRow(c conference.Conference) conferenceRow {
	return conferenceRow{
		ID:               c.ID,
		Title:            c.Title,
		Institute:        c.Institute,
		InstituteDetails: c.InstituteDetails,
		Description:      c.Description,
		StartDate:        c.StartDate.UTC(),
		EndDate:          c.EndDate.UTC(),
		CreatedAt:        c.CreatedAt.UTC(),
		UpdatedAt:        c.UpdatedAt.UTC(),
	}
}

func (row conferenceRow) toConference() conference.Conference {
	return conference.Conference{
		ID:               row.ID,
		Title:            row.Title,
		Institute:        row.Institute,
		InstituteDetails: row.InstituteDetails,
		Description:      row.Description,
		StartDate:        row.StartDate.UTC(),
		EndDate:          row.EndDate.UTC(),
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
}

type trackRow struct {
	ID           string `db:"id"`
	ConferenceID string `db:"conference_id"`
	Title        string `db:"title"`
	Description  string `db:"description"`
}

func (row trackRow) toTrack() conference.Track {
	return conference.Track(row)
}

type chairRow struct {
	ID     string `db:"id"`
	UserID string `db:"user_id"`
}

type conferenceRepository struct {
	repo
}

var _ conference.Repository = (*conferenceRepository)(nil) // interface compliance check

func NewConferenceRepository(db *sqlx.DB) *conferenceRepository {
	return &conferenceRepository{repo: newRepo(db)}
}

func (r *conferenceRepository) RunInTx(ctx context.Context, fn func(repo conference.Repository) error) error {
	return r.runInTx(ctx, func(tx repo) error {
		return fn(&conferenceRepository{repo: tx})
	})
}

func (r *conferenceRepository) CreateConference(ctx context.Context, c conference.Conference) (conference.Conference, error) {
	c.ID = uuid.New().String()
	err := r.namedExec(ctx, `
		INSERT INTO conferences (`+conferenceColumns+`)
		VALUES (:id, :title, :institute, :institute_details, :description, :start_date, :end_date, :created_at, :updated_at)`,
		toConferenceRow(c))
	if err != nil {
		return conference.Conference{}, errors.Wrap(err, "inserting conference")
	}
	return c, nil
}

func (r *conferenceRepository) QueryConferences(ctx context.Context) ([]conference.Conference, error) {
	var rows []conferenceRow
	if err := r.selectAll(ctx, &rows, "SELECT "+conferenceColumns+" FROM conferences ORDER BY start_date, title"); err != nil {
		return nil, errors.Wrap(err, "querying conferences")
	}
	confs := make([]conference.Conference, 0, len(rows))
	for _, row := range rows {
		confs = append(confs, row.toConference())
	}
	return confs, nil
}

func (r *conferenceRepository) GetConference(ctx context.Context, id string) (conference.Conference, error) {
	var row conferenceRow
	if err := r.get(ctx, &row, "SELECT "+conferenceColumns+" FROM conferences WHERE id = ?", id); err != nil {
		return conference.Conference{}, trapNoRowsErr(err, conference.ErrNotFound, "getting conference")
	}
	c := row.toConference()

	var tracks []trackRow
	err := r.selectAll(ctx, &tracks,
		"SELECT id, conference_id, title, description FROM tracks WHERE conference_id = ? ORDER BY title", id)
	if err != nil {
		return conference.Conference{}, errors.Wrap(err, "getting conference tracks")
	}
	c.Tracks = make([]conference.Track, 0, len(tracks))
	for _, t := range tracks {
		c.Tracks = append(c.Tracks, t.toTrack())
	}
	return c, nil
}

func (r *conferenceRepository) CreateTrack(ctx context.Context, t conference.Track) (conference.Track, error) {
	t.ID = uuid.New().String()
	err := r.namedExec(ctx, `
		INSERT INTO tracks (id, conference_id, title, description)
		VALUES (:id, :conference_id, :title, :description)`,
		trackRow(t))
	if err != nil {
		return conference.Track{}, errors.Wrap(err, "inserting track")
	}
	return t, nil
}

func (r *conferenceRepository) GetTrack(ctx context.Context, id string) (conference.Track, error) {
	var row trackRow
	if err := r.get(ctx, &row, "SELECT id, conference_id, title, description FROM tracks WHERE id = ?", id); err != nil {
		return conference.Track{}, trapNoRowsErr(err, conference.ErrTrackNotFound, "getting track")
	}
	return row.toTrack(), nil
}

func (r *conferenceRepository) GetChairByUser(ctx context.Context, userID string) (conference.Chair, error) {
	var row chairRow
	if err := r.get(ctx, &row, "SELECT id, user_id FROM chairs WHERE user_id = ?", userID); err != nil {
		return conference.Chair{}, trapNoRowsErr(err, conference.ErrChairNotFound, "getting chair")
	}

	confIDs := make([]string, 0)
	err := r.selectAll(ctx, &confIDs,
		"SELECT conference_id FROM chair_conferences WHERE chair_id = ? ORDER BY conference_id", row.ID)
	if err != nil {
		return conference.Chair{}, errors.Wrap(err, "getting chair conferences")
	}
	return conference.Chair{ID: row.ID, UserID: row.UserID, ConferenceIDs: confIDs}, nil
}

func (r *conferenceRepository) CreateChair(ctx context.Context, chair conference.Chair) (conference.Chair, error) {
	chair.ID = uuid.New().String()
	if _, err := r.execOne(ctx, "INSERT INTO chairs (id, user_id) VALUES (?, ?)", chair.ID, chair.UserID); err != nil {
		return conference.Chair{}, errors.Wrap(err, "inserting chair")
	}
	for _, confID := range chair.ConferenceIDs {
		if err := r.AddChairConference(ctx, chair.ID, confID); err != nil {
			return conference.Chair{}, err
		}
	}
	return chair, nil
}

func (r *conferenceRepository) AddChairConference(ctx context.Context, chairID, conferenceID string) error {
	_, err := r.execOne(ctx, `
		INSERT INTO chair_conferences (chair_id, conference_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`,
		chairID, conferenceID)
	return errors.Wrap(err, "inserting chair conference")
}

func (r *conferenceRepository) RemoveChairConference(ctx context.Context, chairID, conferenceID string) error {
	_, err := r.execOne(ctx, "DELETE FROM chair_conferences WHERE chair_id = ? AND conference_id = ?", chairID, conferenceID)
	return errors.Wrap(err, "deleting chair conference")
}

func (r *conferenceRepository) ListChairUsers(ctx context.Context, conferenceID string) ([]string, error) {
	userIDs := make([]string, 0)
	err := r.selectAll(ctx, &userIDs, `
		SELECT c.user_id FROM chairs c
		JOIN chair_conferences cc ON cc.chair_id = c.id
		WHERE cc.conference_id = ?
		ORDER BY c.user_id`,
		conferenceID)
	if err != nil {
		return nil, errors.Wrap(err, "listing chair users")
	}
	return userIDs, nil
}

func (r *conferenceRepository) IsChair(ctx context.Context, userID, conferenceID string) (bool, error) {
	found, err := r.exists(ctx, `
		SELECT 1 FROM chairs c
		JOIN chair_conferences cc ON cc.chair_id = c.id
		WHERE c.user_id = ? AND cc.conference_id = ?`,
		userID, conferenceID)
	if err != nil {
		return false, errors.Wrap(err, "checking chair")
	}
	return found, nil
}
