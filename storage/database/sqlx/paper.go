package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core/paper"
)

const (
	paperColumns  = "id, title, abstract, file_key, file_name, content_type, conference_id, track_id, status, created_at, updated_at"
	reviewColumns = "id, paper_id, reviewer_id, score, comments, created_at, updated_at"
)

type paperRow struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Abstract     string    `db:"abstract"`
	FileKey      string    `db:"file_key"`
	FileName     string    `db:"file_name"`
	ContentType  string    `db:"content_type"`
	ConferenceID string    `db:"conference_id"`
	TrackID      string    `db:"track_id"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func toPaperRow(p paper.Paper) paperRow {
	return paperRow{
		ID:           p.ID,
		Title:        p.Title,
		Abstract:     p.Abstract,
		FileKey:      p.FileKey,
		FileName:     p.FileName,
		ContentType:  p.ContentType,
		ConferenceID: p.ConferenceID,
		TrackID:      p.TrackID,
		Status:       string(p.Status),
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
}

func (row paperRow) toPaper() paper.Paper {
	return paper.Paper{
		ID:           row.ID,
		Title:        row.Title,
		Abstract:     row.Abstract,
		FileKey:      row.FileKey,
		FileName:     row.FileName,
		ContentType:  row.ContentType,
		ConferenceID: row.ConferenceID,
		TrackID:      row.TrackID,
		Status:       paper.Status(row.Status),
		AuthorIDs:    []string{},
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

type paperAuthorRow struct {
	PaperID string `db:"paper_id"`
	UserID  string `db:"user_id"`
}

type roleRow struct {
	ID     string `db:"id"`
	UserID string `db:"user_id"`
}

type reviewRow struct {
	ID         string    `db:"id"`
	PaperID    string    `db:"paper_id"`
	ReviewerID string    `db:"reviewer_id"`
	Score      int       `db:"score"`
	Comments   string    `db:"comments"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func toReviewRow(rv paper.Review) reviewRow {
	rv.CreatedAt = rv.CreatedAt.UTC()
	rv.UpdatedAt = rv.UpdatedAt.UTC()
	return reviewRow(rv)
}

func (row reviewRow) toReview() paper.Review {
	rv := paper.Review(row)
	rv.CreatedAt = rv.CreatedAt.UTC()
	rv.UpdatedAt = rv.UpdatedAt.UTC()
	return rv
}

type paperRepository struct {
	repo
}

var _ paper.Repository = (*paperRepository)(nil) // interface compliance check

func NewPaperRepository(db *sqlx.DB) *paperRepository {
	return &paperRepository{repo: newRepo(db)}
}

func (r *paperRepository) RunInTx(ctx context.Context, fn func(repo paper.Repository) error) error {
	return r.runInTx(ctx, func(tx repo) error {
		return fn(&paperRepository{repo: tx})
	})
}

// Papers

func (r *paperRepository) CreatePaper(ctx context.Context, p paper.Paper) (paper.Paper, error) {
	p.ID = uuid.New().String()
	err := r.namedExec(ctx, `
		INSERT INTO papers (`+paperColumns+`)
		VALUES (:id, :title, :abstract, :file_key, :file_name, :content_type, :conference_id, :track_id, :status,
		        :created_at, :updated_at)`,
		toPaperRow(p))
	if err != nil {
		return paper.Paper{}, errors.Wrap(err, "inserting paper")
	}
	if p.AuthorIDs == nil {
		p.AuthorIDs = []string{}
	}
	return p, nil
}

func (r *paperRepository) GetPaper(ctx context.Context, id string) (paper.Paper, error) {
	var row paperRow
	if err := r.get(ctx, &row, "SELECT "+paperColumns+" FROM papers WHERE id = ?", id); err != nil {
		return paper.Paper{}, trapNoRowsErr(err, paper.ErrNotFound, "getting paper")
	}
	papers, err := r.withAuthors(ctx, []paperRow{row})
	if err != nil {
		return paper.Paper{}, err
	}
	return papers[0], nil
}

func (r *paperRepository) QueryPapers(ctx context.Context, filter paper.QueryFilter) ([]paper.Paper, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.ConferenceID != "" {
		conds = append(conds, "conference_id = ?")
		args = append(args, filter.ConferenceID)
	}
	if filter.AuthorUserID != "" {
		conds = append(conds, `id IN (
			SELECT pa.paper_id FROM paper_authors pa
			JOIN authors a ON a.id = pa.author_id
			WHERE a.user_id = ?)`)
		args = append(args, filter.AuthorUserID)
	}

	query := "SELECT " + paperColumns + " FROM papers"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"

	var rows []paperRow
	if err := r.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying papers")
	}
	return r.withAuthors(ctx, rows)
}

// withAuthors loads the author user IDs of the papers.
func (r *paperRepository) withAuthors(ctx context.Context, rows []paperRow) ([]paper.Paper, error) {
	papers := make([]paper.Paper, 0, len(rows))
	if len(rows) == 0 {
		return papers, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var authors []paperAuthorRow
	err := r.selectIn(ctx, &authors, `
		SELECT pa.paper_id, a.user_id FROM paper_authors pa
		JOIN authors a ON a.id = pa.author_id
		WHERE pa.paper_id IN (?)
		ORDER BY a.user_id`,
		ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting paper authors")
	}
	byPaper := make(map[string][]string, len(rows))
	for _, a := range authors {
		byPaper[a.PaperID] = append(byPaper[a.PaperID], a.UserID)
	}

	for _, row := range rows {
		p := row.toPaper()
		if userIDs, ok := byPaper[p.ID]; ok {
			p.AuthorIDs = userIDs
		}
		papers = append(papers, p)
	}
	return papers, nil
}

func (r *paperRepository) UpdatePaperStatus(ctx context.Context, id string, status paper.Status, updatedAt time.Time) error {
	n, err := r.execOne(ctx, "UPDATE papers SET status = ?, updated_at = ? WHERE id = ?", string(status), updatedAt.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating paper status")
	}
	if n == 0 {
		return paper.ErrNotFound
	}
	return nil
}

// Authors

func (r *paperRepository) GetAuthorByUser(ctx context.Context, userID string) (paper.Author, error) {
	var row roleRow
	if err := r.get(ctx, &row, "SELECT id, user_id FROM authors WHERE user_id = ?", userID); err != nil {
		return paper.Author{}, trapNoRowsErr(err, paper.ErrAuthorNotFound, "getting author")
	}

	confIDs := make([]string, 0)
	err := r.selectAll(ctx, &confIDs,
		"SELECT conference_id FROM author_conferences WHERE author_id = ? ORDER BY conference_id", row.ID)
	if err != nil {
		return paper.Author{}, errors.Wrap(err, "getting author conferences")
	}
	return paper.Author{ID: row.ID, UserID: row.UserID, ConferenceIDs: confIDs}, nil
}

func (r *paperRepository) CreateAuthor(ctx context.Context, a paper.Author) (paper.Author, error) {
	a.ID = uuid.New().String()
	if _, err := r.execOne(ctx, "INSERT INTO authors (id, user_id) VALUES (?, ?)", a.ID, a.UserID); err != nil {
		return paper.Author{}, errors.Wrap(err, "inserting author")
	}
	if a.ConferenceIDs == nil {
		a.ConferenceIDs = []string{}
	}
	return a, nil
}

func (r *paperRepository) AddAuthorConference(ctx context.Context, authorID, conferenceID string) error {
	_, err := r.execOne(ctx, `
		INSERT INTO author_conferences (author_id, conference_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`,
		authorID, conferenceID)
	return errors.Wrap(err, "inserting author conference")
}

func (r *paperRepository) SetPaperAuthors(ctx context.Context, paperID string, authorIDs []string) error {
	if _, err := r.execOne(ctx, "DELETE FROM paper_authors WHERE paper_id = ?", paperID); err != nil {
		return errors.Wrap(err, "clearing paper authors")
	}
	for _, authorID := range authorIDs {
		_, err := r.execOne(ctx, `
			INSERT INTO paper_authors (paper_id, author_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING`,
			paperID, authorID)
		if err != nil {
			return errors.Wrap(err, "inserting paper author")
		}
	}
	return nil
}

// Reviewers

func (r *paperRepository) getReviewer(ctx context.Context, col, val string) (paper.Reviewer, error) {
	var row roleRow
	if err := r.get(ctx, &row, "SELECT id, user_id FROM reviewers WHERE "+col+" = ?", val); err != nil {
		return paper.Reviewer{}, trapNoRowsErr(err, paper.ErrReviewerNotFound, "getting reviewer")
	}

	paperIDs := make([]string, 0)
	err := r.selectAll(ctx, &paperIDs,
		"SELECT paper_id FROM reviewer_papers WHERE reviewer_id = ? ORDER BY paper_id", row.ID)
	if err != nil {
		return paper.Reviewer{}, errors.Wrap(err, "getting reviewer papers")
	}
	return paper.Reviewer{ID: row.ID, UserID: row.UserID, PaperIDs: paperIDs}, nil
}

func (r *paperRepository) GetReviewer(ctx context.Context, id string) (paper.Reviewer, error) {
	return r.getReviewer(ctx, "id", id)
}

func (r *paperRepository) GetReviewerByUser(ctx context.Context, userID string) (paper.Reviewer, error) {
	return r.getReviewer(ctx, "user_id", userID)
}

func (r *paperRepository) CreateReviewer(ctx context.Context, rv paper.Reviewer) (paper.Reviewer, error) {
	rv.ID = uuid.New().String()
	if _, err := r.execOne(ctx, "INSERT INTO reviewers (id, user_id) VALUES (?, ?)", rv.ID, rv.UserID); err != nil {
		return paper.Reviewer{}, errors.Wrap(err, "inserting reviewer")
	}
	return rv, nil
}

func (r *paperRepository) AddReviewerPaper(ctx context.Context, reviewerID, paperID string) error {
	_, err := r.execOne(ctx, `
		INSERT INTO reviewer_papers (reviewer_id, paper_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`,
		reviewerID, paperID)
	return errors.Wrap(err, "inserting reviewer paper")
}

func (r *paperRepository) RemoveReviewerPaper(ctx context.Context, reviewerID, paperID string) error {
	_, err := r.execOne(ctx, "DELETE FROM reviewer_papers WHERE reviewer_id = ? AND paper_id = ?", reviewerID, paperID)
	return errors.Wrap(err, "deleting reviewer paper")
}

func (r *paperRepository) IsReviewer(ctx context.Context, userID, paperID string) (bool, error) {
	found, err := r.exists(ctx, `
		SELECT 1 FROM reviewers rv
		JOIN reviewer_papers rp ON rp.reviewer_id = rv.id
		WHERE rv.user_id = ? AND rp.paper_id = ?`,
		userID, paperID)
	if err != nil {
		return false, errors.Wrap(err, "checking reviewer")
	}
	return found, nil
}

func (r *paperRepository) ListPaperReviewers(ctx context.Context, paperID string) ([]paper.Reviewer, error) {
	var rows []roleRow
	err := r.selectAll(ctx, &rows, `
		SELECT rv.id, rv.user_id FROM reviewers rv
		JOIN reviewer_papers rp ON rp.reviewer_id = rv.id
		WHERE rp.paper_id = ?
		ORDER BY rv.id`,
		paperID)
	if err != nil {
		return nil, errors.Wrap(err, "listing paper reviewers")
	}
	reviewers := make([]paper.Reviewer, 0, len(rows))
	for _, row := range rows {
		reviewers = append(reviewers, paper.Reviewer{ID: row.ID, UserID: row.UserID})
	}
	return reviewers, nil
}

// Reviews

func (r *paperRepository) GetReview(ctx context.Context, paperID, reviewerID string) (paper.Review, error) {
	var row reviewRow
	err := r.get(ctx, &row, "SELECT "+reviewColumns+" FROM reviews WHERE paper_id = ? AND reviewer_id = ?", paperID, reviewerID)
	if err != nil {
		return paper.Review{}, trapNoRowsErr(err, paper.ErrReviewNotFound, "getting review")
	}
	return row.toReview(), nil
}

func (r *paperRepository) CreateReview(ctx context.Context, rv paper.Review) (paper.Review, error) {
	rv.ID = uuid.New().String()
	err := r.namedExec(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES (:id, :paper_id, :reviewer_id, :score, :comments, :created_at, :updated_at)`,
		toReviewRow(rv))
	if err != nil {
		if isUniqueViolation(err) {
			return paper.Review{}, paper.ErrDuplicateReview
		}
		return paper.Review{}, errors.Wrap(err, "inserting review")
	}
	return rv, nil
}

func (r *paperRepository) UpdateReview(ctx context.Context, rv paper.Review) (paper.Review, error) {
	n, err := r.execOne(ctx, "UPDATE reviews SET score = ?, comments = ?, updated_at = ? WHERE id = ?",
		rv.Score, rv.Comments, rv.UpdatedAt.UTC(), rv.ID)
	if err != nil {
		return paper.Review{}, errors.Wrap(err, "updating review")
	}
	if n == 0 {
		return paper.Review{}, paper.ErrReviewNotFound
	}
	return rv, nil
}

func (r *paperRepository) DeleteReview(ctx context.Context, paperID, reviewerID string) error {
	_, err := r.execOne(ctx, "DELETE FROM reviews WHERE paper_id = ? AND reviewer_id = ?", paperID, reviewerID)
	return errors.Wrap(err, "deleting review")
}

func (r *paperRepository) ListPaperReviews(ctx context.Context, paperID string) ([]paper.Review, error) {
	var rows []reviewRow
	err := r.selectAll(ctx, &rows, "SELECT "+reviewColumns+" FROM reviews WHERE paper_id = ? ORDER BY created_at", paperID)
	if err != nil {
		return nil, errors.Wrap(err, "listing paper reviews")
	}
	reviews := make([]paper.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, row.toReview())
	}
	return reviews, nil
}
