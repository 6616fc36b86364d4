package sqlstore

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core/camp"
	"github.com/trezcool/summercamps/core/seo"
)

type seoRepository struct {
	*Store
}

var _ seo.Repository = (*seoRepository)(nil) // interface compliance check

func NewSEORepository(s *Store) seo.Repository {
	return &seoRepository{Store: s}
}

func (repo *seoRepository) PublishedCampFacets(ctx context.Context) ([]seo.Facet, error) {
	b := repo.sb.Select("location", "category", "min_age", "max_age").
		From("camps").
		Where(sq.Eq{"status": camp.StatusPublished}).
		OrderBy("created_at", "id")
	facets := make([]seo.Facet, 0)
	if err := repo.selectx(ctx, repo.db, &facets, b); err != nil {
		return nil, errors.Wrap(err, "querying camp facets")
	}
	return facets, nil
}

func (repo *seoRepository) GetPage(ctx context.Context, slug string) (seo.Page, error) {
	var page seo.Page
	b := repo.sb.Select("*").From("programmatic_pages").Where(sq.Eq{"slug": slug})
	if err := repo.getx(ctx, repo.db, &page, b); err != nil {
		return seo.Page{}, errors.Wrap(err, "finding page")
	}
	return page, nil
}

func pageValues(p seo.Page) map[string]interface{} {
	return map[string]interface{}{
		"slug":             p.Slug,
		"page_type":        p.PageType,
		"title":            p.Title,
		"h1":               p.H1,
		"meta_description": p.MetaDescription,
		"intro":            p.Intro,
		"location":         p.Location,
		"category":         p.Category,
		"min_age":          p.MinAge,
		"max_age":          p.MaxAge,
		"published":        p.Published,
		"updated_at":       p.UpdatedAt.UTC(),
	}
}

func (repo *seoRepository) CreatePage(ctx context.Context, p seo.Page) (seo.Page, error) {
	values := pageValues(p)
	values["id"] = p.ID
	values["created_at"] = p.CreatedAt.UTC()
	if _, err := repo.exec(ctx, repo.db, repo.sb.Insert("programmatic_pages").SetMap(values)); err != nil {
		return seo.Page{}, errors.Wrap(err, "inserting page")
	}
	return p, nil
}

func (repo *seoRepository) UpdatePage(ctx context.Context, p seo.Page) (seo.Page, error) {
	b := repo.sb.Update("programmatic_pages").SetMap(pageValues(p)).Where(sq.Eq{"id": p.ID})
	if err := repo.execOne(ctx, b); err != nil {
		return seo.Page{}, errors.Wrap(err, "updating page")
	}
	return p, nil
}
