package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core/conference"
	"github.com/trezcool/confsys/core/user"
)

// adminApi replaces the admin site: staff members manage conferences, tracks and chairs.
type adminApi struct {
	svc      *conference.Service
	validate *validator.Validate
}

func registerAdminAPI(e *echo.Echo, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := adminApi{
		svc:      deps.ConfSvc,
		validate: deps.Validate,
	}

	ag := e.Group("/admin", jwt, staffMiddleware(deps.UserSvc))
	ag.POST("/conferences", api.createConference)
	ag.POST("/conferences/:id/tracks", api.addTrack)
	ag.PUT("/conferences/:id/chairs", api.setChairs)
}

func (api *adminApi) createConference(ctx echo.Context) error {
	var data conference.NewConference
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewConference")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	conf, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating conference")
	}
	return ctx.JSON(http.StatusCreated, conf)
}

func (api *adminApi) addTrack(ctx echo.Context) error {
	var data conference.NewTrack
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTrack")
	}
	data.ConferenceID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	track, err := api.svc.AddTrack(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding track")
	}
	return ctx.JSON(http.StatusCreated, track)
}

func (api *adminApi) setChairs(ctx echo.Context) error {
	var data conference.SetChairs
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetChairs")
	}

	users, err := api.svc.SetChairs(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "setting chairs")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}
