package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core/enquiry"
)

type enquiryApi struct {
	svc      *enquiry.Service
	validate *validator.Validate
}

func registerEnquiryAPI(g, admin *echo.Group, svc *enquiry.Service, validate *validator.Validate) {
	api := enquiryApi{svc: svc, validate: validate}

	g.POST("/enquiries", api.submit)
	admin.PUT("/enquiries/:id/respond", api.respond)
}

func (api *enquiryApi) submit(ctx echo.Context) error {
	var data enquiry.NewEnquiry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnquiry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting enquiry")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *enquiryApi) respond(ctx echo.Context) error {
	var data enquiry.Reply
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Reply")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.Respond(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "responding to enquiry")
	}
	return ctx.JSON(http.StatusOK, e)
}
