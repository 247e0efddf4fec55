package paper

import (
	"io"
	"time"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/conference"
	"github.com/trezcool/confsys/core/user"
)

type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
)

const (
	MinScore = 1
	MaxScore = 5
)

type Paper struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Abstract     string    `json:"abstract"`
	FileKey      string    `json:"-"`
	FileName     string    `json:"file_name"`
	ContentType  string    `json:"content_type"`
	ConferenceID string    `json:"conference_id"`
	TrackID      string    `json:"track_id"`
	Status       Status    `json:"status"`
	AuthorIDs    []string  `json:"author_ids"` // user IDs
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasAuthor reports whether the user is one of the paper's authors.
func (p Paper) HasAuthor(userID string) bool {
	for _, id := range p.AuthorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Author links a user to the conferences they submitted papers to.
type Author struct {
	ID            string   `json:"id"`
	UserID        string   `json:"user_id"`
	ConferenceIDs []string `json:"conference_ids"`
}

// Reviewer links a user to the papers they were assigned to review.
type Reviewer struct {
	ID       string   `json:"id"`
	UserID   string   `json:"user_id"`
	PaperIDs []string `json:"paper_ids,omitempty"`
}

type Review struct {
	ID         string    `json:"id"`
	PaperID    string    `json:"paper_id"`
	ReviewerID string    `json:"reviewer_id"`
	Score      int       `json:"score"`
	Comments   string    `json:"comments"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// File is an uploaded paper document.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// NewPaper contains information needed to submit a Paper to a conference.
type NewPaper struct {
	ConferenceID string   `json:"conference"`
	Title        string   `json:"title" validate:"required,notblank,max=255"`
	Abstract     string   `json:"abstract" validate:"required,notblank"`
	TrackID      string   `json:"track" validate:"required"`
	AuthorIDs    []string `json:"authors"` // co-authors; the submitter is always added
	File         *File    `json:"file" validate:"required"`
}

func (np *NewPaper) clean() {
	np.Title = core.CleanString(np.Title)
	np.Abstract = core.CleanString(np.Abstract)
	np.TrackID = core.CleanString(np.TrackID)
	ids := make([]string, 0, len(np.AuthorIDs))
	for _, id := range np.AuthorIDs {
		if id = core.CleanString(id); id != "" {
			ids = append(ids, id)
		}
	}
	np.AuthorIDs = core.UniqueStrings(ids)
}

type NewReview struct {
	Score    int    `json:"score" validate:"min=1,max=5"`
	Comments string `json:"comments" validate:"max=5000"`
}

// AddReviewer selects the user to assign as a reviewer.
type AddReviewer struct {
	UserID string `json:"user_id" validate:"required"`
}

// AssignedReviewer is a reviewer of a paper along with its user and review, if any.
type AssignedReviewer struct {
	Reviewer
	User   user.User `json:"user"`
	Review *Review   `json:"review,omitempty"`
}

// TrackPapers groups the papers submitted to a track.
type TrackPapers struct {
	Track  conference.Track `json:"track"`
	Papers []Paper           `json:"papers"`
}

// QueryFilter applies AND operation on its non-empty fields.
type QueryFilter struct {
	ConferenceID string
	AuthorUserID string
}
