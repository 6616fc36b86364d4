package seo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/camp"
)

const pageCampsLimit = 50

// Facet is what a published camp contributes to page generation.
type Facet struct {
	Location string `db:"location"`
	Category string `db:"category"`
	MinAge   int    `db:"min_age"`
	MaxAge   int    `db:"max_age"`
}

type Repository interface {
	PublishedCampFacets(ctx context.Context) ([]Facet, error)
	GetPage(ctx context.Context, slug string) (Page, error)
	CreatePage(ctx context.Context, p Page) (Page, error)
	UpdatePage(ctx context.Context, p Page) (Page, error)
}

// GenerateResult lists the slugs of the pages written by GeneratePages.
type GenerateResult struct {
	Created []string `json:"created"`
	Updated []string `json:"updated"`
}

// PageDetail is a page with the published camps it lists.
type PageDetail struct {
	Page
	Camps []camp.Listing `json:"camps"`
	Total int            `json:"total"`
}

type Service struct {
	repo    Repository
	camps   *camp.Service
	logger  core.Logger
	nowFunc func() time.Time
}

func NewService(repo Repository, camps *camp.Service, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		camps:   camps,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Plan derives the pages to generate from the facets of the published camps.
// Locations and categories are compared case-insensitively; the first spelling wins.
func Plan(facets []Facet) []Params {
	locations := newOrderedSet()
	categories := newOrderedSet()
	pairs := newOrderedSet()
	pairParams := make(map[string]Params)
	var params []Params

	for _, f := range facets {
		loc, cat := strings.TrimSpace(f.Location), strings.TrimSpace(f.Category)
		if loc != "" && locations.add(loc) {
			params = append(params, Params{Type: PageLocation, Location: loc})
		}
		if cat != "" && categories.add(cat) {
			params = append(params, Params{Type: PageCategory, Category: cat})
		}
		if loc != "" && cat != "" {
			key := strings.ToLower(loc) + "\x00" + strings.ToLower(cat)
			if pairs.add(key) {
				pairParams[key] = Params{Type: PageLocationCategory, Location: locations.canonical(loc), Category: categories.canonical(cat)}
			}
		}
	}
	for _, key := range pairs.items {
		params = append(params, pairParams[key])
	}
	for _, bracket := range AgeBrackets {
		for _, f := range facets {
			if f.MinAge <= bracket[1] && f.MaxAge >= bracket[0] {
				params = append(params, Params{Type: PageAge, MinAge: bracket[0], MaxAge: bracket[1]})
				break
			}
		}
	}
	return params
}

// GeneratePages writes a page for every location, category, location/category pair and
// age bracket of the published camps. Existing pages get fresh texts but keep their
// id and published flag.
func (svc *Service) GeneratePages(ctx context.Context) (GenerateResult, error) {
	res := GenerateResult{Created: []string{}, Updated: []string{}}
	facets, err := svc.repo.PublishedCampFacets(ctx)
	if err != nil {
		return res, errors.Wrap(err, "querying camp facets")
	}

	for _, params := range Plan(facets) {
		page, err := Build(params)
		if err != nil {
			return res, err
		}
		now := svc.nowFunc()
		page.UpdatedAt = now

		existing, err := svc.repo.GetPage(ctx, page.Slug)
		switch {
		case err == nil:
			page.ID, page.CreatedAt, page.Published = existing.ID, existing.CreatedAt, existing.Published
			if _, err := svc.repo.UpdatePage(ctx, page); err != nil {
				return res, errors.Wrapf(err, "updating page %s", page.Slug)
			}
			res.Updated = append(res.Updated, page.Slug)
		case errors.Cause(err) == core.ErrNotFound:
			page.ID, page.CreatedAt = uuid.New().String(), now
			if _, err := svc.repo.CreatePage(ctx, page); err != nil {
				return res, errors.Wrapf(err, "creating page %s", page.Slug)
			}
			res.Created = append(res.Created, page.Slug)
		default:
			return res, errors.Wrapf(err, "looking up page %s", page.Slug)
		}
	}
	sort.Strings(res.Created)
	sort.Strings(res.Updated)
	svc.logger.Info(fmt.Sprintf("seo.GeneratePages: %d created, %d updated", len(res.Created), len(res.Updated)))
	return res, nil
}

// GetPage returns a published page with the published camps matching it.
func (svc *Service) GetPage(ctx context.Context, slug, displayCurrency string) (PageDetail, error) {
	page, err := svc.repo.GetPage(ctx, core.CleanString(slug, true /* lower */))
	if err != nil {
		return PageDetail{}, err
	}
	if !page.Published {
		return PageDetail{}, core.ErrNotFound
	}

	filter := camp.QueryFilter{Pagination: core.Pagination{Page: 1, PerPage: pageCampsLimit}}
	switch page.PageType {
	case PageLocation:
		filter.Location = page.Location
	case PageCategory:
		filter.Category = page.Category
	case PageLocationCategory:
		filter.Location, filter.Category = page.Location, page.Category
	case PageAge:
		filter.AgeFrom, filter.AgeTo = page.MinAge, page.MaxAge
	}
	camps, total, err := svc.camps.ListPublished(ctx, filter, displayCurrency)
	if err != nil {
		return PageDetail{}, err
	}
	return PageDetail{Page: page, Camps: camps, Total: total}, nil
}

type orderedSet struct {
	seen  map[string]string // lower -> first spelling
	items []string
}

func newOrderedSet() *orderedSet { return &orderedSet{seen: make(map[string]string)} }

func (s *orderedSet) add(v string) bool {
	key := strings.ToLower(v)
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = v
	s.items = append(s.items, key)
	return true
}

func (s *orderedSet) canonical(v string) string { return s.seen[strings.ToLower(v)] }
