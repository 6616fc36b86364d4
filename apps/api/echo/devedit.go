package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core/devedit"
)

type devEditApi struct {
	svc      *devedit.Service
	validate *validator.Validate
}

// registerDevEditAPI mounts the source editing routes. They are only mounted in development.
func registerDevEditAPI(g *echo.Group, svc *devedit.Service, validate *validator.Validate) {
	api := devEditApi{svc: svc, validate: validate}
	g.POST("/dev-edit", api.edit)
	g.POST("/dev-find-text", api.findText)
}

func (api *devEditApi) edit(ctx echo.Context) error {
	var data devedit.EditRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to devedit.EditRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	res, err := api.svc.Edit(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *devEditApi) findText(ctx echo.Context) error {
	var data devedit.FindRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to devedit.FindRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	res, err := api.svc.FindText(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
