package paper

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/conference"
	"github.com/trezcool/confsys/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("paper not found")
	ErrReviewerNotFound = core.NewNotFoundError("reviewer not found")
	ErrAuthorNotFound   = core.NewNotFoundError("author not found")
	ErrReviewNotFound   = core.NewNotFoundError("review not found")
	ErrDuplicateReview  = core.NewConflictError("this paper has already been reviewed by this reviewer")

	// field error texts
	submissionsClosedText = "submissions are closed"
	invalidTrackText      = "select a valid track of this conference"
	unknownUserText       = "unknown user"
)

type (
	Repository interface {
		// RunInTx runs fn with a Repository bound to a single transaction.
		RunInTx(ctx context.Context, fn func(repo Repository) error) error

		CreatePaper(ctx context.Context, p Paper) (Paper, error)
		// GetPaper returns the paper with its AuthorIDs.
		GetPaper(ctx context.Context, id string) (Paper, error)
		// QueryPapers returns the papers matching filter, oldest first.
		QueryPapers(ctx context.Context, filter QueryFilter) ([]Paper, error)
		UpdatePaperStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error

		GetAuthorByUser(ctx context.Context, userID string) (Author, error)
		CreateAuthor(ctx context.Context, a Author) (Author, error)
		// AddAuthorConference is a no-op if the author is already linked to the conference.
		AddAuthorConference(ctx context.Context, authorID, conferenceID string) error
		// SetPaperAuthors replaces the paper's author set with authorIDs.
		SetPaperAuthors(ctx context.Context, paperID string, authorIDs []string) error

		GetReviewer(ctx context.Context, id string) (Reviewer, error)
		GetReviewerByUser(ctx context.Context, userID string) (Reviewer, error)
		CreateReviewer(ctx context.Context, r Reviewer) (Reviewer, error)
		// AddReviewerPaper is a no-op if the reviewer is already linked to the paper.
		AddReviewerPaper(ctx context.Context, reviewerID, paperID string) error
		RemoveReviewerPaper(ctx context.Context, reviewerID, paperID string) error
		IsReviewer(ctx context.Context, userID, paperID string) (bool, error)
		ListPaperReviewers(ctx context.Context, paperID string) ([]Reviewer, error)

		GetReview(ctx context.Context, paperID, reviewerID string) (Review, error)
		// CreateReview fails with ErrDuplicateReview if the reviewer already reviewed the paper.
		CreateReview(ctx context.Context, r Review) (Review, error)
		UpdateReview(ctx context.Context, r Review) (Review, error)
		DeleteReview(ctx context.Context, paperID, reviewerID string) error
		ListPaperReviews(ctx context.Context, paperID string) ([]Review, error)
	}

	ConferenceService interface {
		Get(ctx context.Context, id string) (conference.Conference, error)
		IsChair(ctx context.Context, userID, conferenceID string) (bool, error)
	}

	UserService interface {
		GetByID(ctx context.Context, id string) (user.User, error)
		GetManyByID(ctx context.Context, ids []string) ([]user.User, error)
	}

	// Permission checks the relation of a caller to a paper.
	Permission func(ctx context.Context, caller user.User, p Paper) (bool, error)

	Service struct {
		repo     Repository
		confs    ConferenceService
		users    UserService
		files    core.FileStore
		mailSvc  core.EmailService
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	confs ConferenceService,
	users UserService,
	files core.FileStore,
	mailSvc core.EmailService,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(confs, "confs"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(files, "files"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:     repo,
		confs:    confs,
		users:    users,
		files:    files,
		mailSvc:  mailSvc,
		validate: validate,
		logger:   logger,
	}
}

// Authorization

// CanView allows the paper's authors and the chairs of its conference.
func (svc *Service) CanView(ctx context.Context, caller user.User, p Paper) (bool, error) {
	if p.HasAuthor(caller.ID) {
		return true, nil
	}
	return svc.confs.IsChair(ctx, caller.ID, p.ConferenceID)
}

// CanDownload allows staff and superusers on top of CanView.
func (svc *Service) CanDownload(ctx context.Context, caller user.User, p Paper) (bool, error) {
	if caller.IsPrivileged() {
		return true, nil
	}
	return svc.CanView(ctx, caller, p)
}

// CanReview allows the reviewers assigned to the paper.
func (svc *Service) CanReview(ctx context.Context, caller user.User, p Paper) (bool, error) {
	return svc.repo.IsReviewer(ctx, caller.ID, p.ID)
}

// CanManage allows the chairs of the paper's conference.
func (svc *Service) CanManage(ctx context.Context, caller user.User, p Paper) (bool, error) {
	return svc.confs.IsChair(ctx, caller.ID, p.ConferenceID)
}

// Authorize returns core.ErrPermissionDenied unless perm allows the caller.
func (svc *Service) Authorize(ctx context.Context, caller user.User, p Paper, perm Permission) error {
	if caller.ID == "" {
		return core.ErrPermissionDenied
	}
	ok, err := perm(ctx, caller, p)
	if err != nil {
		return errors.Wrap(err, "checking permission")
	}
	if !ok {
		return core.ErrPermissionDenied
	}
	return nil
}

func (svc *Service) getAuthorized(ctx context.Context, caller user.User, id string, perm Permission) (Paper, error) {
	p, err := svc.repo.GetPaper(ctx, id)
	if err != nil {
		return Paper{}, err
	}
	if err = svc.Authorize(ctx, caller, p, perm); err != nil {
		return Paper{}, err
	}
	return p, nil
}

// Papers

func (svc *Service) Get(ctx context.Context, id string) (Paper, error) {
	return svc.repo.GetPaper(ctx, id)
}

// GetForViewer returns the paper if the caller may view it.
func (svc *Service) GetForViewer(ctx context.Context, caller user.User, id string) (Paper, error) {
	return svc.getAuthorized(ctx, caller, id, svc.CanView)
}

// ListAuthored returns the papers the caller is an author of.
func (svc *Service) ListAuthored(ctx context.Context, caller user.User) ([]Paper, error) {
	return svc.repo.QueryPapers(ctx, QueryFilter{AuthorUserID: caller.ID})
}

// ListByTrack returns the papers of a conference grouped by track, to its chairs only.
func (svc *Service) ListByTrack(ctx context.Context, caller user.User, conferenceID string) ([]TrackPapers, error) {
	conf, err := svc.confs.Get(ctx, conferenceID)
	if err != nil {
		return nil, err
	}
	isChair, err := svc.confs.IsChair(ctx, caller.ID, conf.ID)
	if err != nil {
		return nil, errors.Wrap(err, "checking chair")
	}
	if !isChair {
		return nil, core.ErrPermissionDenied
	}

	papers, err := svc.repo.QueryPapers(ctx, QueryFilter{ConferenceID: conf.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying papers")
	}
	byTrack := make(map[string][]Paper, len(conf.Tracks))
	for _, p := range papers {
		byTrack[p.TrackID] = append(byTrack[p.TrackID], p)
	}
	groups := make([]TrackPapers, 0, len(conf.Tracks))
	for _, track := range conf.Tracks {
		tp := TrackPapers{Track: track, Papers: byTrack[track.ID]}
		if tp.Papers == nil {
			tp.Papers = []Paper{}
		}
		groups = append(groups, tp)
	}
	return groups, nil
}

// Submission

// Validate checks a submission without side effects and returns its conference and author users.
func (svc *Service) Validate(ctx context.Context, caller user.User, np *NewPaper) (conference.Conference, []user.User, error) {
	np.clean()

	conf, err := svc.confs.Get(ctx, np.ConferenceID)
	if err != nil {
		return conference.Conference{}, nil, err
	}
	if err = svc.validate.Struct(np); err != nil {
		return conference.Conference{}, nil, err
	}
	if !conf.SubmissionsOpen(conference.NowFunc()) {
		return conference.Conference{}, nil, core.NewFieldError("conference", submissionsClosedText)
	}
	if !conf.HasTrack(np.TrackID) {
		return conference.Conference{}, nil, core.NewFieldError("track", invalidTrackText)
	}

	ids := make([]string, 0, len(np.AuthorIDs)+1)
	ids = append(ids, caller.ID)
	ids = append(ids, np.AuthorIDs...)
	authors, err := svc.users.GetManyByID(ctx, ids)
	if err != nil {
		if core.IsNotFound(err) {
			return conference.Conference{}, nil, core.NewFieldError("authors", unknownUserText)
		}
		return conference.Conference{}, nil, errors.Wrap(err, "finding authors")
	}
	return conf, authors, nil
}

// Submit validates the submission then stores the file and records the paper with its authors.
// Nothing is stored when validation fails.
func (svc *Service) Submit(ctx context.Context, caller user.User, np NewPaper) (Paper, error) {
	conf, authors, err := svc.Validate(ctx, caller, &np)
	if err != nil {
		return Paper{}, err
	}
	p, err := svc.Apply(ctx, conf, authors, np)
	if err != nil {
		return Paper{}, err
	}
	svc.notifyAuthors(conf, authors, p)
	return p, nil
}

// Apply stores the file then records the paper and its authors in one transaction.
// The file is deleted again if the transaction fails.
func (svc *Service) Apply(ctx context.Context, conf conference.Conference, authors []user.User, np NewPaper) (Paper, error) {
	key := path.Join("papers", conf.ID, uuid.New().String()+strings.ToLower(path.Ext(np.File.Name)))
	if err := svc.files.Save(ctx, key, np.File.Content, np.File.Size, np.File.ContentType); err != nil {
		return Paper{}, errors.Wrap(err, "saving paper file")
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	p := Paper{
		Title:        np.Title,
		Abstract:     np.Abstract,
		FileKey:      key,
		FileName:     path.Base(np.File.Name),
		ContentType:  np.File.ContentType,
		ConferenceID: conf.ID,
		TrackID:      np.TrackID,
		Status:       StatusSubmitted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := svc.repo.RunInTx(ctx, func(repo Repository) error {
		var err error
		if p, err = repo.CreatePaper(ctx, p); err != nil {
			return errors.Wrap(err, "inserting paper")
		}

		authorIDs := make([]string, 0, len(authors))
		userIDs := make([]string, 0, len(authors))
		for _, usr := range authors {
			author, err := getOrCreateAuthor(ctx, repo, usr.ID)
			if err != nil {
				return err
			}
			if err = repo.AddAuthorConference(ctx, author.ID, conf.ID); err != nil {
				return errors.Wrap(err, "linking author to conference")
			}
			authorIDs = append(authorIDs, author.ID)
			userIDs = append(userIDs, usr.ID)
		}
		if err = repo.SetPaperAuthors(ctx, p.ID, authorIDs); err != nil {
			return errors.Wrap(err, "setting paper authors")
		}
		p.AuthorIDs = userIDs
		return nil
	})
	if err != nil {
		if dErr := svc.files.Delete(ctx, key); dErr != nil {
			svc.logger.Error(fmt.Sprintf("deleting orphan paper file %s: %v", key, dErr), dErr)
		}
		return Paper{}, err
	}
	return p, nil
}

func (svc *Service) notifyAuthors(conf conference.Conference, authors []user.User, p Paper) {
	msgs := make([]*core.EmailMessage, 0, len(authors))
	for _, usr := range authors {
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{usr.Address()},
			Subject:      fmt.Sprintf("Paper submitted to %s", conf.Title),
			TemplateName: "paper_submitted",
			TemplateData: map[string]interface{}{
				"Name":       usr.FullName(),
				"Title":      p.Title,
				"Conference": conf.Title,
				"PaperID":    p.ID,
			},
		})
	}
	svc.mailSvc.SendMessages(msgs...)
}

func getOrCreateAuthor(ctx context.Context, repo Repository, userID string) (Author, error) {
	author, err := repo.GetAuthorByUser(ctx, userID)
	if err == nil {
		return author, nil
	}
	if !core.IsNotFound(err) {
		return Author{}, errors.Wrap(err, "finding author")
	}
	author, err = repo.CreateAuthor(ctx, Author{UserID: userID})
	if err != nil {
		return Author{}, errors.Wrap(err, "creating author")
	}
	return author, nil
}

// Download opens the paper's file if the caller may download it.
// The caller must close the returned reader.
func (svc *Service) Download(ctx context.Context, caller user.User, id string) (Paper, io.ReadCloser, error) {
	p, err := svc.getAuthorized(ctx, caller, id, svc.CanDownload)
	if err != nil {
		return Paper{}, nil, err
	}
	rc, err := svc.files.Open(ctx, p.FileKey)
	if err != nil {
		return Paper{}, nil, errors.Wrap(err, "opening paper file")
	}
	return p, rc, nil
}

// Reviewer assignment

// ListReviewers returns the paper's reviewers with their users and reviews, to the conference chairs only.
func (svc *Service) ListReviewers(ctx context.Context, caller user.User, paperID string) (Paper, []AssignedReviewer, error) {
	p, err := svc.getAuthorized(ctx, caller, paperID, svc.CanManage)
	if err != nil {
		return Paper{}, nil, err
	}

	reviewers, err := svc.repo.ListPaperReviewers(ctx, p.ID)
	if err != nil {
		return Paper{}, nil, errors.Wrap(err, "listing reviewers")
	}
	reviews, err := svc.repo.ListPaperReviews(ctx, p.ID)
	if err != nil {
		return Paper{}, nil, errors.Wrap(err, "listing reviews")
	}

	userIDs := make([]string, 0, len(reviewers))
	for _, r := range reviewers {
		userIDs = append(userIDs, r.UserID)
	}
	users, err := svc.users.GetManyByID(ctx, userIDs)
	if err != nil {
		return Paper{}, nil, errors.Wrap(err, "finding reviewer users")
	}
	usersByID := make(map[string]user.User, len(users))
	for _, usr := range users {
		usersByID[usr.ID] = usr
	}
	reviewsByReviewer := make(map[string]Review, len(reviews))
	for _, r := range reviews {
		reviewsByReviewer[r.ReviewerID] = r
	}

	assigned := make([]AssignedReviewer, 0, len(reviewers))
	for _, r := range reviewers {
		ar := AssignedReviewer{Reviewer: r, User: usersByID[r.UserID]}
		if review, ok := reviewsByReviewer[r.ID]; ok {
			ar.Review = &review
		}
		assigned = append(assigned, ar)
	}
	return p, assigned, nil
}

// AssignReviewer links the user as a reviewer of the paper. Assigning twice keeps a single link.
// The first assignment moves a submitted paper under review.
func (svc *Service) AssignReviewer(ctx context.Context, caller user.User, paperID string, data AddReviewer) (Reviewer, error) {
	p, err := svc.getAuthorized(ctx, caller, paperID, svc.CanManage)
	if err != nil {
		return Reviewer{}, err
	}

	data.UserID = core.CleanString(data.UserID)
	if err = svc.validate.Struct(data); err != nil {
		return Reviewer{}, err
	}
	usr, err := svc.users.GetByID(ctx, data.UserID)
	if err != nil {
		if core.IsNotFound(err) {
			return Reviewer{}, core.NewFieldError("user_id", unknownUserText)
		}
		return Reviewer{}, errors.Wrap(err, "finding user")
	}

	var reviewer Reviewer
	err = svc.repo.RunInTx(ctx, func(repo Repository) error {
		var err error
		if reviewer, err = getOrCreateReviewer(ctx, repo, usr.ID); err != nil {
			return err
		}
		if err = repo.AddReviewerPaper(ctx, reviewer.ID, p.ID); err != nil {
			return errors.Wrap(err, "linking reviewer to paper")
		}

		current, err := repo.GetPaper(ctx, p.ID)
		if err != nil {
			return errors.Wrap(err, "refreshing paper")
		}
		if current.Status == StatusSubmitted {
			now := time.Now().UTC().Truncate(time.Microsecond)
			if err = repo.UpdatePaperStatus(ctx, p.ID, StatusUnderReview, now); err != nil {
				return errors.Wrap(err, "updating paper status")
			}
		}
		return nil
	})
	if err != nil {
		return Reviewer{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{usr.Address()},
		Subject:      "New paper to review",
		TemplateName: "reviewer_assigned",
		TemplateData: map[string]interface{}{
			"Name":    usr.FullName(),
			"Title":   p.Title,
			"PaperID": p.ID,
		},
	})
	return reviewer, nil
}

func getOrCreateReviewer(ctx context.Context, repo Repository, userID string) (Reviewer, error) {
	reviewer, err := repo.GetReviewerByUser(ctx, userID)
	if err == nil {
		return reviewer, nil
	}
	if !core.IsNotFound(err) {
		return Reviewer{}, errors.Wrap(err, "finding reviewer")
	}
	reviewer, err = repo.CreateReviewer(ctx, Reviewer{UserID: userID})
	if err != nil {
		return Reviewer{}, errors.Wrap(err, "creating reviewer")
	}
	return reviewer, nil
}

// RemoveReviewer deletes the reviewer's review of the paper, if any, then unlinks them.
// Removing a reviewer that is not linked to the paper is a no-op.
func (svc *Service) RemoveReviewer(ctx context.Context, caller user.User, paperID, reviewerID string) error {
	p, err := svc.getAuthorized(ctx, caller, paperID, svc.CanManage)
	if err != nil {
		return err
	}
	reviewer, err := svc.repo.GetReviewer(ctx, reviewerID)
	if err != nil {
		return err
	}

	return svc.repo.RunInTx(ctx, func(repo Repository) error {
		if err := repo.DeleteReview(ctx, p.ID, reviewer.ID); err != nil {
			return errors.Wrap(err, "deleting review")
		}
		if err := repo.RemoveReviewerPaper(ctx, reviewer.ID, p.ID); err != nil {
			return errors.Wrap(err, "unlinking reviewer")
		}
		return nil
	})
}

// Reviews

// GetReview returns the caller's review of the paper, or ErrReviewNotFound if they did not review it yet.
func (svc *Service) GetReview(ctx context.Context, caller user.User, paperID string) (Paper, Review, error) {
	p, err := svc.getAuthorized(ctx, caller, paperID, svc.CanReview)
	if err != nil {
		return Paper{}, Review{}, err
	}
	reviewer, err := svc.repo.GetReviewerByUser(ctx, caller.ID)
	if err != nil {
		return Paper{}, Review{}, errors.Wrap(err, "finding reviewer")
	}
	review, err := svc.repo.GetReview(ctx, p.ID, reviewer.ID)
	if err != nil {
		return p, Review{}, err
	}
	return p, review, nil
}

// SubmitReview creates the caller's review of the paper or updates it in place.
func (svc *Service) SubmitReview(ctx context.Context, caller user.User, paperID string, nr NewReview) (Review, error) {
	p, err := svc.getAuthorized(ctx, caller, paperID, svc.CanReview)
	if err != nil {
		return Review{}, err
	}

	nr.Comments = core.CleanString(nr.Comments)
	if err = svc.validate.Struct(nr); err != nil {
		return Review{}, err
	}

	reviewer, err := svc.repo.GetReviewerByUser(ctx, caller.ID)
	if err != nil {
		return Review{}, errors.Wrap(err, "finding reviewer")
	}

	var review Review
	err = svc.repo.RunInTx(ctx, func(repo Repository) error {
		now := time.Now().UTC().Truncate(time.Microsecond)
		existing, err := repo.GetReview(ctx, p.ID, reviewer.ID)
		switch {
		case err == nil:
			existing.Score = nr.Score
			existing.Comments = nr.Comments
			existing.UpdatedAt = now
			review, err = repo.UpdateReview(ctx, existing)
			return errors.Wrap(err, "updating review")
		case core.IsNotFound(err):
			review, err = repo.CreateReview(ctx, Review{
				PaperID:    p.ID,
				ReviewerID: reviewer.ID,
				Score:      nr.Score,
				Comments:   nr.Comments,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
			return err
		default:
			return errors.Wrap(err, "finding review")
		}
	})
	if err != nil {
		return Review{}, err
	}
	return review, nil
}
