package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/camp"
)

// maxUploadSize bounds camp media uploads.
const maxUploadSize = 50 << 20

type campApi struct {
	svc *camp.Service
}

func registerCampAPI(g, admin, organiser *echo.Group, svc *camp.Service) {
	api := campApi{svc: svc}

	g.GET("/camps", api.list)
	g.GET("/camps/:slug", api.retrieve)

	admin.GET("/camps", api.manage)
	admin.GET("/camps/export", api.export)
	admin.PUT("/camps/:id/status", api.setStatus)
	admin.POST("/camps/:id/media", api.uploadMedia)

	organiser.GET("/camps", api.manage)
	organiser.GET("/camps/export", api.export)
}

// ListResponse is a page of results with the total number of matches.
type ListResponse struct {
	Data    interface{} `json:"data"`
	Count   int         `json:"count"`
	Page    int         `json:"page,omitempty"`
	PerPage int         `json:"per_page,omitempty"`
}

func newListResponse(data interface{}, count int, p core.Pagination) ListResponse {
	p.Clean()
	return ListResponse{Data: data, Count: count, Page: p.Page, PerPage: p.PerPage}
}

func (api *campApi) list(ctx echo.Context) error {
	var filter camp.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to camp.QueryFilter")
	}
	camps, count, err := api.svc.ListPublished(ctx.Request().Context(), filter, displayCurrency(ctx))
	if err != nil {
		return errors.Wrap(err, "listing camps")
	}
	return ctx.JSON(http.StatusOK, newListResponse(camps, count, filter.Pagination))
}

func (api *campApi) retrieve(ctx echo.Context) error {
	detail, err := api.svc.GetPublished(ctx.Request().Context(), ctx.Param("slug"), displayCurrency(ctx))
	if err != nil {
		return errors.Wrap(err, "getting camp")
	}
	return ctx.JSON(http.StatusOK, detail)
}

// bindAdminFilter binds the camp filter, restricted to their own organisation for organisers.
func bindAdminFilter(ctx echo.Context) (camp.AdminFilter, error) {
	var filter camp.AdminFilter
	if err := ctx.Bind(&filter); err != nil {
		return filter, errors.Wrap(err, "binding to camp.AdminFilter")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return filter, errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin {
		filter.OrganisationID = claims.Organisation
	}
	return filter, nil
}

func (api *campApi) manage(ctx echo.Context) error {
	filter, err := bindAdminFilter(ctx)
	if err != nil {
		return err
	}
	camps, count, err := api.svc.Manage(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "managing camps")
	}
	return ctx.JSON(http.StatusOK, newListResponse(camps, count, filter.Pagination))
}

func (api *campApi) export(ctx echo.Context) error {
	filter, err := bindAdminFilter(ctx)
	if err != nil {
		return err
	}
	content, err := api.svc.ExportCSV(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "exporting camps")
	}
	return attachment(ctx, "camps-"+time.Now().UTC().Format("2006-01-02")+".csv", "text/csv", content)
}

type StatusRequest struct {
	Status string `json:"status"`
}

func (api *campApi) setStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	c, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), camp.Status(data.Status))
	if err != nil {
		return errors.Wrap(err, "setting camp status")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *campApi) uploadMedia(ctx echo.Context) error {
	ctx.Request().Body = http.MaxBytesReader(ctx.Response(), ctx.Request().Body, maxUploadSize)
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer func() { _ = f.Close() }()

	c, err := api.svc.UploadMedia(ctx.Request().Context(), ctx.Param("id"), fh.Filename, fh.Header.Get(echo.HeaderContentType), f)
	if err != nil {
		return errors.Wrap(err, "uploading camp media")
	}
	return ctx.JSON(http.StatusOK, c)
}

// attachment sends content as a file download.
func attachment(ctx echo.Context, filename, contentType string, content []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, contentType, content)
}
