package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core/blog"
)

type blogApi struct {
	svc *blog.Service
}

func registerBlogAPI(g *echo.Group, svc *blog.Service) {
	api := blogApi{svc: svc}

	bg := g.Group("/blog")
	bg.GET("/posts", api.listPosts)
	bg.GET("/posts/:slug", api.retrievePost)
	bg.GET("/posts/:slug/related", api.related)
	bg.GET("/categories", api.categories)
	bg.GET("/tags", api.tags)
	bg.GET("/authors", api.authors)
}

func (api *blogApi) listPosts(ctx echo.Context) error {
	var filter blog.PostFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to blog.PostFilter")
	}
	posts, count, err := api.svc.ListPosts(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing posts")
	}
	return ctx.JSON(http.StatusOK, newListResponse(posts, count, filter.Pagination))
}

func (api *blogApi) retrievePost(ctx echo.Context) error {
	post, err := api.svc.GetPost(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "getting post")
	}
	return ctx.JSON(http.StatusOK, post)
}

func (api *blogApi) related(ctx echo.Context) error {
	posts, err := api.svc.Related(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "getting related posts")
	}
	return ctx.JSON(http.StatusOK, posts)
}

func (api *blogApi) categories(ctx echo.Context) error {
	categories, err := api.svc.Categories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing categories")
	}
	return ctx.JSON(http.StatusOK, categories)
}

func (api *blogApi) tags(ctx echo.Context) error {
	tags, err := api.svc.Tags(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing tags")
	}
	return ctx.JSON(http.StatusOK, tags)
}

func (api *blogApi) authors(ctx echo.Context) error {
	authors, err := api.svc.Authors(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing authors")
	}
	return ctx.JSON(http.StatusOK, authors)
}
