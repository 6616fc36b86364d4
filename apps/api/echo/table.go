package echoapi

import (
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/datamgmt"
	"github.com/trezcool/summercamps/core/importexport"
)

type tableApi struct {
	svc     *datamgmt.Service
	porting *importexport.Service
}

func registerTableAPI(admin *echo.Group, svc *datamgmt.Service, porting *importexport.Service) {
	api := tableApi{svc: svc, porting: porting}

	tg := admin.Group("/tables")
	tg.GET("", api.tables)
	tg.GET("/:table", api.query)
	tg.POST("/:table", api.create)
	tg.PATCH("/:table", api.bulkUpdate)
	tg.DELETE("/:table", api.bulkDelete)
	tg.GET("/:table/lookup/:column", api.lookup)
	tg.POST("/:table/import", api.importRows)
	tg.GET("/:table/export", api.export)
	tg.GET("/:table/template", api.template)
	tg.GET("/:table/:id", api.retrieve)
	tg.PUT("/:table/:id", api.update)
	tg.DELETE("/:table/:id", api.destroy)
	tg.POST("/:table/:id/duplicate", api.duplicate)
}

// resultCode is the HTTP status of a failed core.Result.
func resultCode(err error) int {
	cause := errors.Cause(err)
	if code, ok := sentinelCodes[cause]; ok {
		return code
	}
	if _, ok := cause.(*core.ValidationError); ok || cause == core.ErrNoFieldsToUpdate {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// sendResult writes res with the status of its outcome.
func sendResult[T any](ctx echo.Context, okCode int, res core.Result[T]) error {
	if !res.Success {
		return ctx.JSON(resultCode(res.Err), res)
	}
	return ctx.JSON(okCode, res)
}

// bindQuery reads `?search=&ordering=&filter=col.op:value&page=&per_page=`.
func bindQuery(ctx echo.Context) (datamgmt.Query, error) {
	q := datamgmt.Query{Search: ctx.QueryParam("search")}
	for _, raw := range ctx.QueryParams()["filter"] {
		f, err := datamgmt.ParseFilter(raw)
		if err != nil {
			return q, core.NewValidationError(err)
		}
		q.Filters = append(q.Filters, f)
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	q.Sort = ordering.Orderings
	q.Pagination.Page, _ = strconv.Atoi(ctx.QueryParam("page"))
	q.Pagination.PerPage, _ = strconv.Atoi(ctx.QueryParam("per_page"))
	return q, nil
}

func (api *tableApi) tables(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Tables())
}

func (api *tableApi) query(ctx echo.Context) error {
	q, err := bindQuery(ctx)
	if err != nil {
		return err
	}
	return sendResult(ctx, http.StatusOK, api.svc.GetTableData(ctx.Request().Context(), ctx.Param("table"), q))
}

func (api *tableApi) retrieve(ctx echo.Context) error {
	return sendResult(ctx, http.StatusOK, api.svc.GetRecord(ctx.Request().Context(), ctx.Param("table"), ctx.Param("id")))
}

func (api *tableApi) create(ctx echo.Context) error {
	var values datamgmt.Row
	if err := ctx.Bind(&values); err != nil {
		return errors.Wrap(err, "binding to datamgmt.Row")
	}
	return sendResult(ctx, http.StatusCreated, api.svc.CreateRecord(ctx.Request().Context(), ctx.Param("table"), values))
}

func (api *tableApi) update(ctx echo.Context) error {
	var values datamgmt.Row
	if err := ctx.Bind(&values); err != nil {
		return errors.Wrap(err, "binding to datamgmt.Row")
	}
	return sendResult(ctx, http.StatusOK, api.svc.UpdateRecord(ctx.Request().Context(), ctx.Param("table"), ctx.Param("id"), values))
}

type BulkUpdateRequest struct {
	IDs    []string     `json:"ids"`
	Values datamgmt.Row `json:"values"`
}

func (api *tableApi) bulkUpdate(ctx echo.Context) error {
	var data BulkUpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkUpdateRequest")
	}
	return sendResult(ctx, http.StatusOK, api.svc.BulkUpdate(ctx.Request().Context(), ctx.Param("table"), data.IDs, data.Values))
}

func (api *tableApi) destroy(ctx echo.Context) error {
	return sendResult(ctx, http.StatusOK, api.svc.DeleteRecord(ctx.Request().Context(), ctx.Param("table"), ctx.Param("id")))
}

func (api *tableApi) bulkDelete(ctx echo.Context) error {
	return sendResult(ctx, http.StatusOK, api.svc.BulkDelete(ctx.Request().Context(), ctx.Param("table"), queryValues(ctx, "id")))
}

func (api *tableApi) duplicate(ctx echo.Context) error {
	return sendResult(ctx, http.StatusCreated, api.svc.DuplicateRecord(ctx.Request().Context(), ctx.Param("table"), ctx.Param("id")))
}

func (api *tableApi) lookup(ctx echo.Context) error {
	return sendResult(ctx, http.StatusOK, api.svc.LookupOptions(ctx.Request().Context(), ctx.Param("table"), ctx.Param("column")))
}

func (api *tableApi) importRows(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a file is required"})
	}
	format := ctx.FormValue("format")
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(path.Ext(fh.Filename)), ".")
	}
	f, err := importexport.ParseFormat(format)
	if err != nil {
		return err
	}
	dryRun, _ := strconv.ParseBool(ctx.FormValue("dry_run"))

	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer func() { _ = file.Close() }()

	return sendResult(ctx, http.StatusOK, api.porting.Import(ctx.Request().Context(), ctx.Param("table"), file, f, dryRun))
}

func (api *tableApi) export(ctx echo.Context) error {
	format, err := importexport.ParseFormat(ctx.QueryParam("format"))
	if err != nil {
		return err
	}
	q, err := bindQuery(ctx)
	if err != nil {
		return err
	}
	table := ctx.Param("table")
	res := api.porting.Export(ctx.Request().Context(), table, q, format)
	if !res.Success {
		return ctx.JSON(resultCode(res.Err), res)
	}

	contentType := "text/csv"
	if format == importexport.FormatJSON {
		contentType = echo.MIMEApplicationJSON
	}
	filename := table + "-" + time.Now().UTC().Format("2006-01-02") + "." + string(format)
	return attachment(ctx, filename, contentType, res.Data)
}

func (api *tableApi) template(ctx echo.Context) error {
	table := ctx.Param("table")
	res := api.porting.Template(table)
	if !res.Success {
		return ctx.JSON(resultCode(res.Err), res)
	}
	return attachment(ctx, table+"-template.csv", "text/csv", res.Data)
}
