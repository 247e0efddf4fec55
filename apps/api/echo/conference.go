package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core/conference"
	"github.com/trezcool/confsys/core/paper"
	"github.com/trezcool/confsys/core/user"
)

var errNotMultipart = echo.NewHTTPError(http.StatusBadRequest, "expected a multipart/form-data request")

type conferenceApi struct {
	usrSvc   *user.Service
	svc      *conference.Service
	paperSvc *paper.Service
}

func registerConferenceAPI(e *echo.Echo, jwt, optionalJWT echo.MiddlewareFunc, deps ServerDeps) {
	api := conferenceApi{
		usrSvc:   deps.UserSvc,
		svc:      deps.ConfSvc,
		paperSvc: deps.PaperSvc,
	}

	e.GET("/conferences", api.query)
	e.GET("/conference/:id", api.retrieve, optionalJWT)

	// no Group here: its catch-all routes would shadow the public detail route above
	e.GET("/conference/:id/submit_paper", api.submitPaperForm, jwt)
	e.POST("/conference/:id/submit_paper", api.submitPaper, jwt)
	e.GET("/conference/:id/view_papers", api.viewPapers, jwt)
}

type (
	conferenceItem struct {
		conference.Conference
		SubmissionsOpen bool `json:"submissions_open"`
	}

	conferenceDetail struct {
		conferenceItem
		UserIsProgramChair bool `json:"user_is_program_chair"`
	}

	submitPaperForm struct {
		Conference conferenceItem     `json:"conference"`
		Tracks     []conference.Track `json:"tracks"`
		Users      []user.User        `json:"users"` // co-author choices
	}
)

func newConferenceItem(conf conference.Conference) conferenceItem {
	if conf.Tracks == nil {
		conf.Tracks = []conference.Track{}
	}
	return conferenceItem{Conference: conf, SubmissionsOpen: conf.SubmissionsOpen(conference.NowFunc())}
}

// Handlers

func (api *conferenceApi) query(ctx echo.Context) error {
	confs, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying conferences")
	}
	items := make([]conferenceItem, 0, len(confs))
	for _, conf := range confs {
		items = append(items, newConferenceItem(conf))
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *conferenceApi) retrieve(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	conf, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}
	usr, err := getOptionalContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	isChair, err := api.svc.IsChair(reqCtx, usr.ID, conf.ID)
	if err != nil {
		return errors.Wrap(err, "checking chair")
	}
	return ctx.JSON(http.StatusOK, conferenceDetail{conferenceItem: newConferenceItem(conf), UserIsProgramChair: isChair})
}

func (api *conferenceApi) submitPaperForm(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	conf, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}

	active := true
	users, err := api.usrSvc.Query(reqCtx, &user.QueryFilter{IsActive: &active}, nil)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	coauthors := make([]user.User, 0, len(users))
	for _, u := range users {
		if u.ID != usr.ID {
			coauthors = append(coauthors, u)
		}
	}
	item := newConferenceItem(conf)
	return ctx.JSON(http.StatusOK, submitPaperForm{Conference: item, Tracks: item.Tracks, Users: coauthors})
}

// submitPaper expects a multipart form with the fields title, abstract, track, authors (repeated) and file.
func (api *conferenceApi) submitPaper(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	form, err := ctx.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return errNotMultipart
		}
		var herr *echo.HTTPError // eg. body limit exceeded while reading
		if errors.As(err, &herr) {
			return herr
		}
		return errors.Wrap(err, "parsing multipart form")
	}

	np := paper.NewPaper{
		ConferenceID: ctx.Param("id"),
		Title:        ctx.FormValue("title"),
		Abstract:     ctx.FormValue("abstract"),
		TrackID:      ctx.FormValue("track"),
		AuthorIDs:    form.Value["authors"],
	}
	if fhs := form.File["file"]; len(fhs) > 0 {
		fh := fhs[0]
		f, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening uploaded file")
		}
		defer f.Close()
		np.File = &paper.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Size:        fh.Size,
			Content:     f,
		}
	}

	p, err := api.paperSvc.Submit(ctx.Request().Context(), usr, np)
	if err != nil {
		return errors.Wrap(err, "submitting paper")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *conferenceApi) viewPapers(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	groups, err := api.paperSvc.ListByTrack(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing papers by track")
	}
	return ctx.JSON(http.StatusOK, groups)
}
