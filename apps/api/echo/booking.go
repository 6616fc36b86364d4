package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/booking"
)

type bookingApi struct {
	svc      *booking.Service
	validate *validator.Validate
}

func registerBookingAPI(g, admin *echo.Group, svc *booking.Service, validate *validator.Validate) {
	api := bookingApi{svc: svc, validate: validate}

	g.POST("/camps/:slug/bookings", api.create)
	g.POST("/discount-codes/validate", api.validateDiscount)

	admin.PUT("/bookings/:id/status", api.setStatus)
	admin.GET("/dashboard", api.dashboard)
}

type DiscountRequest struct {
	Code     string `json:"code" validate:"required"`
	CampSlug string `json:"camp_slug" validate:"required"`
}

func (dr *DiscountRequest) Validate(validate *validator.Validate) error {
	dr.Code = booking.NormalizeCode(dr.Code)
	dr.CampSlug = core.CleanString(dr.CampSlug, true /* lower */)
	return validate.Struct(dr)
}

func (api *bookingApi) create(ctx echo.Context) error {
	var data booking.NewBooking
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBooking")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err := api.svc.Create(ctx.Request().Context(), ctx.Param("slug"), data)
	if err != nil {
		return errors.Wrap(err, "creating booking")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *bookingApi) validateDiscount(ctx echo.Context) error {
	var data DiscountRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DiscountRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	quote, err := api.svc.Quote(ctx.Request().Context(), data.CampSlug, data.Code)
	if err != nil {
		return errors.Wrap(err, "quoting discount")
	}
	return ctx.JSON(http.StatusOK, quote)
}

func (api *bookingApi) setStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	b, err := api.svc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), booking.Status(data.Status))
	if err != nil {
		return errors.Wrap(err, "setting booking status")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *bookingApi) dashboard(ctx echo.Context) error {
	dash, err := api.svc.Dashboard(ctx.Request().Context(), displayCurrency(ctx))
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
