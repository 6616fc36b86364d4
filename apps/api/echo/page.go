package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core/seo"
)

type pageApi struct {
	svc *seo.Service
}

func registerPageAPI(g, admin *echo.Group, svc *seo.Service) {
	api := pageApi{svc: svc}

	g.GET("/pages/:slug", api.retrieve)
	admin.POST("/pages/generate", api.generate)
}

func (api *pageApi) retrieve(ctx echo.Context) error {
	page, err := api.svc.GetPage(ctx.Request().Context(), ctx.Param("slug"), displayCurrency(ctx))
	if err != nil {
		return errors.Wrap(err, "getting page")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *pageApi) generate(ctx echo.Context) error {
	res, err := api.svc.GeneratePages(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "generating pages")
	}
	return ctx.JSON(http.StatusOK, res)
}
