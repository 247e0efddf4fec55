package echoapi

import (
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core/conference"
	"github.com/trezcool/confsys/core/paper"
	"github.com/trezcool/confsys/core/user"
)

type paperApi struct {
	usrSvc  *user.Service
	confSvc *conference.Service
	svc     *paper.Service
}

func registerPaperAPI(e *echo.Echo, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := paperApi{
		usrSvc:  deps.UserSvc,
		confSvc: deps.ConfSvc,
		svc:     deps.PaperSvc,
	}

	e.GET("/view_papers", api.authored, jwt)

	pg := e.Group("/papers/:id", jwt)
	pg.GET("", api.retrieve)
	pg.GET("/download_paper", api.download)
	pg.GET("/review_paper", api.reviewForm)
	pg.POST("/review_paper", api.review)
	pg.GET("/add_reviewers", api.reviewers)
	pg.POST("/add_reviewers", api.addReviewer)
	pg.POST("/remove_reviewer/:reviewer_id", api.removeReviewer)
}

type (
	paperDetail struct {
		paper.Paper
		SubmissionsOpen    bool `json:"submissions_open"`
		UserIsProgramChair bool `json:"user_is_program_chair"`
		UserIsReviewer     bool `json:"user_is_reviewer"`
		ReviewExists       bool `json:"review_exists"`
	}

	reviewForm struct {
		Paper  paper.Paper   `json:"paper"`
		Review *paper.Review `json:"review"`
	}

	reviewersPage struct {
		Paper      paper.Paper              `json:"paper"`
		Reviewers  []paper.AssignedReviewer `json:"reviewers"`
		Candidates []user.User              `json:"candidates"`
	}
)

// Handlers

func (api *paperApi) authored(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	papers, err := api.svc.ListAuthored(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "listing authored papers")
	}
	return ctx.JSON(http.StatusOK, papers)
}

func (api *paperApi) retrieve(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	p, err := api.svc.GetForViewer(reqCtx, usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting paper")
	}

	conf, err := api.confSvc.Get(reqCtx, p.ConferenceID)
	if err != nil {
		return errors.Wrap(err, "getting conference")
	}
	isChair, err := api.confSvc.IsChair(reqCtx, usr.ID, conf.ID)
	if err != nil {
		return errors.Wrap(err, "checking chair")
	}
	isReviewer, err := api.svc.CanReview(reqCtx, usr, p)
	if err != nil {
		return errors.Wrap(err, "checking reviewer")
	}
	var reviewExists bool
	if isReviewer {
		_, _, err = api.svc.GetReview(reqCtx, usr, p.ID)
		switch {
		case err == nil:
			reviewExists = true
		case errors.Cause(err) != paper.ErrReviewNotFound:
			return errors.Wrap(err, "getting review")
		}
	}

	return ctx.JSON(http.StatusOK, paperDetail{
		Paper:              p,
		SubmissionsOpen:    conf.SubmissionsOpen(conference.NowFunc()),
		UserIsProgramChair: isChair,
		UserIsReviewer:     isReviewer,
		ReviewExists:       reviewExists,
	})
}

func (api *paperApi) download(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	p, rc, err := api.svc.Download(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "downloading paper")
	}
	defer rc.Close()

	contentType := p.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": p.FileName}))
	return ctx.Stream(http.StatusOK, contentType, rc)
}

func (api *paperApi) reviewForm(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	p, review, err := api.svc.GetReview(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) != paper.ErrReviewNotFound {
			return errors.Wrap(err, "getting review")
		}
		return ctx.JSON(http.StatusOK, reviewForm{Paper: p})
	}
	return ctx.JSON(http.StatusOK, reviewForm{Paper: p, Review: &review})
}

func (api *paperApi) review(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data paper.NewReview
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}

	review, err := api.svc.SubmitReview(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting review")
	}
	return ctx.JSON(http.StatusOK, review)
}

// reviewers lists the paper's reviewers and the users that can be assigned.
// Candidates can be filtered with `?search=` and ordered with `?ordering=`.
func (api *paperApi) reviewers(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	p, assigned, err := api.svc.ListReviewers(reqCtx, usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing reviewers")
	}

	active := true
	filter := &user.QueryFilter{Search: ctx.QueryParam("search"), IsActive: &active}
	filter.Clean()
	users, err := api.usrSvc.Query(reqCtx, filter, bindOrdering(ctx, "email", "first_name", "last_name", "created_at"))
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	taken := make(map[string]bool, len(assigned))
	for _, ar := range assigned {
		taken[ar.UserID] = true
	}
	candidates := make([]user.User, 0, len(users))
	for _, u := range users {
		if !taken[u.ID] && !p.HasAuthor(u.ID) {
			candidates = append(candidates, u)
		}
	}
	return ctx.JSON(http.StatusOK, reviewersPage{Paper: p, Reviewers: assigned, Candidates: candidates})
}

func (api *paperApi) addReviewer(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data paper.AddReviewer
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddReviewer")
	}

	reviewer, err := api.svc.AssignReviewer(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "assigning reviewer")
	}
	return ctx.JSON(http.StatusCreated, reviewer)
}

func (api *paperApi) removeReviewer(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	err = api.svc.RemoveReviewer(ctx.Request().Context(), usr, ctx.Param("id"), ctx.Param("reviewer_id"))
	if err != nil {
		return errors.Wrapf(err, "removing reviewer %s", ctx.Param("reviewer_id"))
	}
	return ctx.NoContent(http.StatusNoContent)
}
